// Package index holds the immutable segment index: the record model, the
// builder that normalises raw episode records, and read-only accessors in
// canonical (episode_number, segment_number) order. An *Index never changes
// after Build returns, so it is safe to share between goroutines.
package index

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// EpisodeInfo describes one distinct episode_id present in the index.
type EpisodeInfo struct {
	EpisodeID        string `json:"episode_id"`
	EpisodeNumber    int    `json:"episode_number"`
	SegmentCount     int    `json:"segment_count"`
	MaxSegmentNumber int    `json:"max_segment_number"`
}

type Index struct {
	segments    []Segment
	episodes    []EpisodeInfo
	byEpisode   map[string][]int
	position    map[string]int
	epoch       uint64
	fingerprint string
	builtAt     time.Time
}

func newIndex(segments []Segment, o buildOptions) *Index {
	idx := &Index{
		segments:  segments,
		byEpisode: make(map[string][]int),
		position:  make(map[string]int),
		epoch:     o.epoch,
		builtAt:   o.builtAt,
	}
	for i, seg := range segments {
		pos, seen := idx.position[seg.EpisodeID]
		if !seen {
			pos = len(idx.episodes)
			idx.position[seg.EpisodeID] = pos
			idx.episodes = append(idx.episodes, EpisodeInfo{
				EpisodeID:     seg.EpisodeID,
				EpisodeNumber: seg.EpisodeNumber,
			})
		}
		info := &idx.episodes[pos]
		info.SegmentCount++
		if seg.SegmentNumber > info.MaxSegmentNumber {
			info.MaxSegmentNumber = seg.SegmentNumber
		}
		idx.byEpisode[seg.EpisodeID] = append(idx.byEpisode[seg.EpisodeID], i)
	}
	idx.fingerprint = fingerprint(segments)
	return idx
}

// fingerprint hashes the canonical rows, so equal catalogs hash equally
// whichever process or generation built them.
func fingerprint(segments []Segment) string {
	h := sha256.New()
	for _, seg := range segments {
		fmt.Fprintf(h, "%q %d %q %d %q %q %q %g %d\n",
			seg.EpisodeID, seg.EpisodeNumber,
			seg.SegmentID, seg.SegmentNumber,
			seg.Summary, seg.Keywords, seg.TextPreview,
			seg.StartTimeSec, seg.NumSentences,
		)
	}
	return hex.EncodeToString(h.Sum(nil)[:16])
}

// Len returns the number of segments.
func (x *Index) Len() int {
	return len(x.segments)
}

// At returns a copy of the i-th segment in canonical order.
func (x *Index) At(i int) Segment {
	return x.segments[i].clone()
}

// Matching returns copies of the segments whose summary or keyword display
// string contains lowerNeedle, in canonical order.
func (x *Index) Matching(lowerNeedle string) []Segment {
	var out []Segment
	for i := range x.segments {
		if x.segments[i].Contains(lowerNeedle) {
			out = append(out, x.segments[i].clone())
		}
	}
	return out
}

// Episodes returns the distinct episodes in ascending episode_number order.
// Episodes sharing a number keep the order of their first segment.
func (x *Index) Episodes() []EpisodeInfo {
	out := make([]EpisodeInfo, len(x.episodes))
	copy(out, x.episodes)
	return out
}

// Episode looks up a single episode by id.
func (x *Index) Episode(episodeID string) (EpisodeInfo, bool) {
	pos, ok := x.position[episodeID]
	if !ok {
		return EpisodeInfo{}, false
	}
	return x.episodes[pos], true
}

// EpisodeSegments returns copies of the episode's segments ordered by
// segment_number. ok is false when the episode is not indexed.
func (x *Index) EpisodeSegments(episodeID string) (segments []Segment, ok bool) {
	rows, ok := x.byEpisode[episodeID]
	if !ok {
		return nil, false
	}
	out := make([]Segment, len(rows))
	for i, row := range rows {
		out[i] = x.segments[row].clone()
	}
	return out, true
}

// MaxSegmentNumber returns the largest segment_number of the episode.
func (x *Index) MaxSegmentNumber(episodeID string) (int, bool) {
	info, ok := x.Episode(episodeID)
	return info.MaxSegmentNumber, ok
}

func (x *Index) Epoch() uint64 {
	return x.epoch
}

// Fingerprint identifies the index content. Unlike Epoch it does not depend
// on how many builds preceded this one.
func (x *Index) Fingerprint() string {
	return x.fingerprint
}

func (x *Index) BuiltAt() time.Time {
	return x.builtAt
}

func (x *Index) Stats() Stats {
	return Stats{
		Epoch:       x.epoch,
		Fingerprint: x.fingerprint,
		Episodes:    len(x.episodes),
		Segments:    len(x.segments),
		BuiltAt:     x.builtAt.Format(time.RFC3339),
	}
}
