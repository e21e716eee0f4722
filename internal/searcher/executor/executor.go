package executor

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/Adithya-Monish-Kumar-K/Podcast-Segment-Navigator/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/Podcast-Segment-Navigator/internal/searcher/highlight"
	"github.com/Adithya-Monish-Kumar-K/Podcast-Segment-Navigator/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/Podcast-Segment-Navigator/internal/searcher/progress"
	apperrors "github.com/Adithya-Monish-Kumar-K/Podcast-Segment-Navigator/pkg/errors"
)

// Hit is a segment with its presentation values precomputed.
type Hit struct {
	EpisodeID          string   `json:"episode_id"`
	EpisodeNumber      int      `json:"episode_number"`
	SegmentID          string   `json:"segment_id"`
	SegmentNumber      int      `json:"segment_number"`
	Summary            string   `json:"summary"`
	Keywords           string   `json:"keywords"`
	KeywordList        []string `json:"keyword_list"`
	TextPreview        string   `json:"text_preview"`
	HighlightedPreview string   `json:"highlighted_preview"`
	StartTimeSec       float64  `json:"start_time_sec"`
	NumSentences       int      `json:"num_sentences"`
	ProgressFraction   float64  `json:"progress_fraction"`
}

type SearchResult struct {
	Query       string `json:"query"`
	TotalHits   int    `json:"total_hits"`
	Results     []Hit  `json:"results"`
	Epoch       uint64 `json:"epoch"`
	Fingerprint string `json:"fingerprint"`
}

// EpisodeView is one episode's segments in browse order.
type EpisodeView struct {
	EpisodeID     string `json:"episode_id"`
	EpisodeNumber int    `json:"episode_number"`
	Segments      []Hit  `json:"segments"`
}

// Present derives the presentation values of seg within an episode whose
// highest segment number is maxSegment.
func Present(seg index.Segment, maxSegment int) (Hit, error) {
	fraction, err := progress.Fraction(seg.SegmentNumber, maxSegment)
	if err != nil {
		return Hit{}, fmt.Errorf("episode %q segment %q: %w", seg.EpisodeID, seg.SegmentID, err)
	}
	keywords := make([]string, len(seg.Keywords))
	copy(keywords, seg.Keywords)
	return Hit{
		EpisodeID:          seg.EpisodeID,
		EpisodeNumber:      seg.EpisodeNumber,
		SegmentID:          seg.SegmentID,
		SegmentNumber:      seg.SegmentNumber,
		Summary:            seg.Summary,
		Keywords:           seg.KeywordText(),
		KeywordList:        keywords,
		TextPreview:        seg.TextPreview,
		HighlightedPreview: highlight.Highlight(seg.TextPreview, seg.Keywords),
		StartTimeSec:       seg.StartTimeSec,
		NumSentences:       seg.NumSentences,
		ProgressFraction:   fraction,
	}, nil
}

// SearchAll returns every segment whose summary or keyword display string
// contains the query, ignoring case, in canonical order. An empty query
// matches nothing.
func SearchAll(idx *index.Index, plan *parser.QueryPlan) ([]Hit, error) {
	hits := make([]Hit, 0)
	if plan.Empty {
		return hits, nil
	}
	for _, seg := range idx.Matching(plan.Needle) {
		maxSegment, _ := idx.MaxSegmentNumber(seg.EpisodeID)
		hit, err := Present(seg, maxSegment)
		if err != nil {
			return nil, err
		}
		hits = append(hits, hit)
	}
	return hits, nil
}

// ListEpisodes returns the distinct episode ids by ascending episode number.
func ListEpisodes(idx *index.Index) []string {
	episodes := idx.Episodes()
	ids := make([]string, len(episodes))
	for i, ep := range episodes {
		ids[i] = ep.EpisodeID
	}
	return ids
}

// SegmentsForEpisode returns the episode's segments by ascending segment
// number, or ErrEpisodeNotFound.
func SegmentsForEpisode(idx *index.Index, episodeID string) ([]index.Segment, error) {
	segments, ok := idx.EpisodeSegments(episodeID)
	if !ok {
		return nil, apperrors.Newf(apperrors.ErrEpisodeNotFound, http.StatusNotFound,
			"episode %q", episodeID)
	}
	return segments, nil
}

// IndexSource yields the index to read. A nil index means nothing has been
// built yet.
type IndexSource interface {
	Current() *index.Index
}

type fixedSource struct {
	idx *index.Index
}

func (f fixedSource) Current() *index.Index { return f.idx }

// Fixed serves a single prebuilt index.
func Fixed(idx *index.Index) IndexSource {
	return fixedSource{idx: idx}
}

type Executor struct {
	source IndexSource
	logger *slog.Logger
}

func New(source IndexSource) *Executor {
	return &Executor{
		source: source,
		logger: slog.Default().With("component", "query-executor"),
	}
}

func (e *Executor) current() (*index.Index, error) {
	idx := e.source.Current()
	if idx == nil {
		return nil, apperrors.ErrIndexNotReady
	}
	return idx, nil
}

// Snapshot returns the index currently in service.
func (e *Executor) Snapshot() (*index.Index, error) {
	return e.current()
}

// SearchAll runs plan against a single snapshot of the current index.
func (e *Executor) SearchAll(ctx context.Context, plan *parser.QueryPlan) (*SearchResult, error) {
	idx, err := e.current()
	if err != nil {
		return nil, err
	}
	return e.Search(ctx, idx, plan)
}

// Search runs plan against idx.
func (e *Executor) Search(ctx context.Context, idx *index.Index, plan *parser.QueryPlan) (*SearchResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	hits, err := SearchAll(idx, plan)
	if err != nil {
		return nil, fmt.Errorf("searching %q: %w", plan.RawQuery, err)
	}
	e.logger.Debug("query executed",
		"query", plan.RawQuery,
		"epoch", idx.Epoch(),
		"results", len(hits),
	)
	return &SearchResult{
		Query:       plan.RawQuery,
		TotalHits:   len(hits),
		Results:     hits,
		Epoch:       idx.Epoch(),
		Fingerprint: idx.Fingerprint(),
	}, nil
}

func (e *Executor) ListEpisodes(ctx context.Context) ([]string, error) {
	idx, err := e.current()
	if err != nil {
		return nil, err
	}
	return ListEpisodes(idx), nil
}

// Episodes is ListEpisodes with per-episode counts.
func (e *Executor) Episodes(ctx context.Context) ([]index.EpisodeInfo, error) {
	idx, err := e.current()
	if err != nil {
		return nil, err
	}
	return idx.Episodes(), nil
}

func (e *Executor) SegmentsForEpisode(ctx context.Context, episodeID string) ([]index.Segment, error) {
	idx, err := e.current()
	if err != nil {
		return nil, err
	}
	return SegmentsForEpisode(idx, episodeID)
}

// Browse returns the episode's segments with progress and highlighting.
func (e *Executor) Browse(ctx context.Context, episodeID string) (*EpisodeView, error) {
	idx, err := e.current()
	if err != nil {
		return nil, err
	}
	segments, err := SegmentsForEpisode(idx, episodeID)
	if err != nil {
		return nil, err
	}
	info, _ := idx.Episode(episodeID)
	view := &EpisodeView{
		EpisodeID:     info.EpisodeID,
		EpisodeNumber: info.EpisodeNumber,
		Segments:      make([]Hit, 0, len(segments)),
	}
	for _, seg := range segments {
		hit, err := Present(seg, info.MaxSegmentNumber)
		if err != nil {
			return nil, err
		}
		view.Segments = append(view.Segments, hit)
	}
	return view, nil
}

// Stats reports the current index, or ErrIndexNotReady.
func (e *Executor) Stats(ctx context.Context) (index.Stats, error) {
	idx, err := e.current()
	if err != nil {
		return index.Stats{}, err
	}
	return idx.Stats(), nil
}
