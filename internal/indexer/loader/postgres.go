package loader

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/lib/pq"

	"github.com/Adithya-Monish-Kumar-K/Podcast-Segment-Navigator/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/Podcast-Segment-Navigator/pkg/postgres"
)

// Schema creates the catalog tables. Episodes are stored separately from
// their segments so that an episode with no segments still exists.
var Schema = []string{
	`CREATE TABLE IF NOT EXISTS episodes (
	    episode_id  TEXT PRIMARY KEY,
	    origin      TEXT NOT NULL DEFAULT '',
	    updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS episode_segments (
	    episode_id     TEXT NOT NULL REFERENCES episodes(episode_id) ON DELETE CASCADE,
	    position       INTEGER NOT NULL,
	    segment_id     TEXT NOT NULL,
	    summary        TEXT,
	    keywords       TEXT[],
	    text_preview   TEXT,
	    start_time_sec DOUBLE PRECISION,
	    num_sentences  INTEGER,
	    PRIMARY KEY (episode_id, position)
	)`,
}

// Postgres is a catalog source and store backed by PostgreSQL. Nullable
// columns keep missing fields missing, so validation happens in the builder
// exactly as it does for files.
type Postgres struct {
	db     *postgres.Client
	logger *slog.Logger
}

func NewPostgres(db *postgres.Client) *Postgres {
	return &Postgres{
		db:     db,
		logger: slog.Default().With("component", "catalog-postgres"),
	}
}

func (p *Postgres) Name() string {
	return "postgres"
}

// EnsureSchema creates the catalog tables if they do not exist.
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	return p.db.EnsureSchema(ctx, Schema...)
}

func (p *Postgres) Load(ctx context.Context) ([]index.RawEpisode, error) {
	rows, err := p.db.DB.QueryContext(ctx,
		`SELECT e.episode_id, e.origin,
		        s.segment_id, s.summary, s.keywords, s.text_preview, s.start_time_sec, s.num_sentences
		 FROM episodes e
		 LEFT JOIN episode_segments s ON s.episode_id = e.episode_id
		 ORDER BY e.episode_id, s.position`)
	if err != nil {
		return nil, fmt.Errorf("querying catalog: %w", err)
	}
	defer rows.Close()

	var episodes []index.RawEpisode
	for rows.Next() {
		var (
			episodeID, origin string
			segmentID         sql.NullString
			summary, preview  sql.NullString
			keywords          pq.StringArray
			start             sql.NullFloat64
			sentences         sql.NullInt64
		)
		if err := rows.Scan(&episodeID, &origin, &segmentID, &summary, &keywords, &preview, &start, &sentences); err != nil {
			return nil, fmt.Errorf("scanning catalog row: %w", err)
		}
		if n := len(episodes); n == 0 || episodes[n-1].EpisodeID != episodeID {
			if origin == "" {
				origin = "postgres:episodes/" + episodeID
			}
			// A stored episode always has a (possibly empty) segment list.
			episodes = append(episodes, index.RawEpisode{
				EpisodeID: episodeID,
				Origin:    origin,
				Segments:  []index.RawSegment{},
			})
		}
		if !segmentID.Valid {
			continue
		}
		seg := index.RawSegment{
			SegmentID: index.RawID(segmentID.String),
			Keywords:  []string(keywords),
		}
		if summary.Valid {
			seg.Summary = &summary.String
		}
		if preview.Valid {
			seg.TextPreview = &preview.String
		}
		if start.Valid {
			seg.StartTimeSec = &start.Float64
		}
		if sentences.Valid {
			n := int(sentences.Int64)
			seg.NumSentences = &n
		}
		last := &episodes[len(episodes)-1]
		last.Segments = append(last.Segments, seg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating catalog rows: %w", err)
	}
	return episodes, nil
}

// Save replaces the stored episode and all of its segments.
func (p *Postgres) Save(ctx context.Context, ep index.RawEpisode) error {
	err := p.db.InTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO episodes (episode_id, origin, updated_at) VALUES ($1, $2, NOW())
			 ON CONFLICT (episode_id) DO UPDATE SET origin = EXCLUDED.origin, updated_at = NOW()`,
			ep.EpisodeID, ep.Origin,
		); err != nil {
			return fmt.Errorf("upserting episode: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM episode_segments WHERE episode_id = $1`, ep.EpisodeID,
		); err != nil {
			return fmt.Errorf("clearing segments: %w", err)
		}
		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO episode_segments
			   (episode_id, position, segment_id, summary, keywords, text_preview, start_time_sec, num_sentences)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`)
		if err != nil {
			return fmt.Errorf("preparing segment insert: %w", err)
		}
		defer stmt.Close()
		for i, seg := range ep.Segments {
			if _, err := stmt.ExecContext(ctx,
				ep.EpisodeID, i, string(seg.SegmentID),
				seg.Summary, pq.Array(seg.Keywords), seg.TextPreview,
				seg.StartTimeSec, seg.NumSentences,
			); err != nil {
				return fmt.Errorf("inserting segment %q: %w", seg.SegmentID, err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("saving episode %q: %w", ep.EpisodeID, err)
	}
	p.logger.Info("episode saved", "episode_id", ep.EpisodeID, "segments", len(ep.Segments))
	return nil
}

// Delete removes an episode and its segments. Deleting an absent episode is
// not an error.
func (p *Postgres) Delete(ctx context.Context, episodeID string) error {
	if _, err := p.db.DB.ExecContext(ctx,
		`DELETE FROM episodes WHERE episode_id = $1`, episodeID,
	); err != nil {
		return fmt.Errorf("deleting episode %q: %w", episodeID, err)
	}
	return nil
}
