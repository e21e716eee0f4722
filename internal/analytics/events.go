package analytics

import "time"

type EventType string

const (
	EventSearch EventType = "search"
	EventBrowse EventType = "browse"
	EventIndex  EventType = "index_build"
)

// SearchEvent describes one answered search request.
type SearchEvent struct {
	Type      EventType `json:"type"`
	Query     string    `json:"query"`
	TotalHits int       `json:"total_hits"`
	Returned  int       `json:"returned"`
	LatencyMs int64     `json:"latency_ms"`
	CacheHit  bool      `json:"cache_hit"`
	Epoch     uint64    `json:"epoch"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id"`
}

// BrowseEvent describes one episode segment listing.
type BrowseEvent struct {
	Type      EventType `json:"type"`
	EpisodeID string    `json:"episode_id"`
	Segments  int       `json:"segments"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id"`
}

// IndexEvent describes one completed index rebuild.
type IndexEvent struct {
	Type      EventType `json:"type"`
	Epoch     uint64    `json:"epoch"`
	Episodes  int       `json:"episodes"`
	Segments  int       `json:"segments"`
	LatencyMs int64     `json:"latency_ms"`
	Timestamp time.Time `json:"timestamp"`
}

// envelope peeks at the discriminator before decoding the full event.
type envelope struct {
	Type EventType `json:"type"`
}
