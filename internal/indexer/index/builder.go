package index

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	apperrors "github.com/Adithya-Monish-Kumar-K/Podcast-Segment-Navigator/pkg/errors"
)

// LoadError reports the raw record that made a build fail.
type LoadError struct {
	Origin    string `json:"origin,omitempty"`
	EpisodeID string `json:"episode_id,omitempty"`
	SegmentID string `json:"segment_id,omitempty"`
	Field     string `json:"field,omitempty"`
	Reason    string `json:"reason"`
}

func (e *LoadError) Error() string {
	var b strings.Builder
	b.WriteString("load error")
	if e.Origin != "" {
		fmt.Fprintf(&b, " in %s", e.Origin)
	}
	fmt.Fprintf(&b, ": episode %q", e.EpisodeID)
	if e.SegmentID != "" {
		fmt.Fprintf(&b, " segment %q", e.SegmentID)
	}
	fmt.Fprintf(&b, ": %s %s", e.Field, e.Reason)
	return b.String()
}

func (e *LoadError) Unwrap() error {
	return apperrors.ErrLoad
}

type buildOptions struct {
	epoch   uint64
	builtAt time.Time
}

// BuildOption customises Build.
type BuildOption func(*buildOptions)

// WithEpoch stamps the index with a caller-assigned generation number.
func WithEpoch(epoch uint64) BuildOption {
	return func(o *buildOptions) { o.epoch = epoch }
}

// WithBuiltAt overrides the build timestamp.
func WithBuiltAt(t time.Time) BuildOption {
	return func(o *buildOptions) { o.builtAt = t }
}

// Build flattens raw episodes into an immutable Index ordered by
// (episode_number, segment_number). The first malformed record fails the
// whole build with a *LoadError.
func Build(raw []RawEpisode, opts ...BuildOption) (*Index, error) {
	o := buildOptions{builtAt: time.Now().UTC()}
	for _, opt := range opts {
		opt(&o)
	}

	total := 0
	for _, ep := range raw {
		total += len(ep.Segments)
	}
	segments := make([]Segment, 0, total)
	for _, ep := range raw {
		episodeNumber, err := parseEpisode(ep)
		if err != nil {
			return nil, err
		}
		for _, rs := range ep.Segments {
			seg, err := normalize(ep, episodeNumber, rs)
			if err != nil {
				return nil, err
			}
			segments = append(segments, seg)
		}
	}

	sort.SliceStable(segments, func(i, j int) bool {
		if segments[i].EpisodeNumber != segments[j].EpisodeNumber {
			return segments[i].EpisodeNumber < segments[j].EpisodeNumber
		}
		return segments[i].SegmentNumber < segments[j].SegmentNumber
	})
	if err := checkSegmentNumbering(raw, segments); err != nil {
		return nil, err
	}
	return newIndex(segments, o), nil
}

// checkSegmentNumbering rejects episodes whose highest segment number is
// 0: progress through such an episode is undefined.
func checkSegmentNumbering(raw []RawEpisode, segments []Segment) error {
	maxSegment := make(map[string]int)
	for _, seg := range segments {
		if cur, ok := maxSegment[seg.EpisodeID]; !ok || seg.SegmentNumber > cur {
			maxSegment[seg.EpisodeID] = seg.SegmentNumber
		}
	}
	for _, ep := range raw {
		if n, ok := maxSegment[ep.EpisodeID]; ok && n <= 0 {
			return &LoadError{
				Origin:    ep.Origin,
				EpisodeID: ep.EpisodeID,
				Field:     "segment_id",
				Reason:    "must number at least one segment above 0",
			}
		}
	}
	return nil
}

// ValidateEpisode applies the per-record checks of Build to a single
// episode without building anything.
func ValidateEpisode(ep RawEpisode) error {
	episodeNumber, err := parseEpisode(ep)
	if err != nil {
		return err
	}
	segments := make([]Segment, 0, len(ep.Segments))
	for _, rs := range ep.Segments {
		seg, err := normalize(ep, episodeNumber, rs)
		if err != nil {
			return err
		}
		segments = append(segments, seg)
	}
	return checkSegmentNumbering([]RawEpisode{ep}, segments)
}

func parseEpisode(ep RawEpisode) (int, error) {
	if ep.Segments == nil {
		return 0, &LoadError{
			Origin:    ep.Origin,
			EpisodeID: ep.EpisodeID,
			Field:     "segments",
			Reason:    "is required",
		}
	}
	n, err := ExtractNumber(ep.EpisodeID)
	if err != nil {
		return 0, &LoadError{
			Origin:    ep.Origin,
			EpisodeID: ep.EpisodeID,
			Field:     "episode_id",
			Reason:    err.Error(),
		}
	}
	return n, nil
}

func normalize(ep RawEpisode, episodeNumber int, rs RawSegment) (Segment, error) {
	segmentID := string(rs.SegmentID)
	fail := func(field, reason string) error {
		return &LoadError{
			Origin:    ep.Origin,
			EpisodeID: ep.EpisodeID,
			SegmentID: segmentID,
			Field:     field,
			Reason:    reason,
		}
	}

	segmentNumber, err := ExtractNumber(segmentID)
	if err != nil {
		return Segment{}, fail("segment_id", err.Error())
	}
	if rs.Summary == nil {
		return Segment{}, fail("summary", "is required")
	}
	if rs.TextPreview == nil {
		return Segment{}, fail("text_preview", "is required")
	}
	if rs.NumSentences == nil {
		return Segment{}, fail("num_sentences", "is required")
	}
	if *rs.NumSentences < 0 {
		return Segment{}, fail("num_sentences", "must not be negative")
	}
	start := 0.0
	if rs.StartTimeSec != nil {
		start = *rs.StartTimeSec
		if start < 0 || math.IsNaN(start) || math.IsInf(start, 0) {
			return Segment{}, fail("start_time_sec", "must be a non-negative number")
		}
	}

	keywords := make([]string, len(rs.Keywords))
	copy(keywords, rs.Keywords)
	keywordText := strings.Join(keywords, KeywordSeparator)

	return Segment{
		EpisodeID:     ep.EpisodeID,
		EpisodeNumber: episodeNumber,
		SegmentID:     segmentID,
		SegmentNumber: segmentNumber,
		Summary:       *rs.Summary,
		Keywords:      keywords,
		TextPreview:   *rs.TextPreview,
		StartTimeSec:  start,
		NumSentences:  *rs.NumSentences,
		keywordText:   keywordText,
		summaryLower:  strings.ToLower(*rs.Summary),
		keywordLower:  strings.ToLower(keywordText),
	}, nil
}
