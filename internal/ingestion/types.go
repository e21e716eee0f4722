// Package ingestion defines the catalog change events exchanged between the
// import tooling and the navigator services.
package ingestion

import "time"

// Catalog change actions.
const (
	ActionUpsert  = "upsert"
	ActionDelete  = "delete"
	ActionRefresh = "refresh"
)

// CatalogEvent tells index owners that the catalog changed and the index
// has to be rebuilt.
type CatalogEvent struct {
	EpisodeID   string    `json:"episode_id,omitempty"`
	Action      string    `json:"action"`
	Segments    int       `json:"segments"`
	PublishedAt time.Time `json:"published_at"`
}

// ImportReport summarises one import run.
type ImportReport struct {
	Imported []string          `json:"imported"`
	Failed   map[string]string `json:"failed,omitempty"`
}
