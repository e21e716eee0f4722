package index

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
)

// KeywordSeparator joins a segment's keywords into its display string.
const KeywordSeparator = ", "

// RawID is a record identifier as it appears in segment files. Producers
// emit segment ids both as strings ("seg3") and as bare numbers (3), so
// either JSON form is accepted and kept as text.
type RawID string

func (id *RawID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = RawID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("id must be a string or number: %w", err)
	}
	*id = RawID(n.String())
	return nil
}

// RawEpisode is one episode record handed to the builder by a loader.
type RawEpisode struct {
	EpisodeID string `json:"episode_id"`
	// Segments is nil when the record has no segments field (or it is
	// null); an episode with no segments carries an empty, non-nil slice.
	Segments []RawSegment `json:"segments"`
	// Origin locates the record (file path, table row, document id) for
	// error reporting. Loaders fill it in; it is never part of the wire form.
	Origin string `json:"-"`
}

// RawSegment is one segment as produced by the segmentation step. Pointer
// fields separate "absent" from the zero value.
type RawSegment struct {
	SegmentID    RawID    `json:"segment_id"`
	Summary      *string  `json:"summary"`
	Keywords     []string `json:"keywords,omitempty"`
	TextPreview  *string  `json:"text_preview"`
	StartTimeSec *float64 `json:"start_time_sec,omitempty"`
	NumSentences *int     `json:"num_sentences"`
}

// Segment is a normalised, immutable segment row of the index.
type Segment struct {
	EpisodeID     string   `json:"episode_id"`
	EpisodeNumber int      `json:"episode_number"`
	SegmentID     string   `json:"segment_id"`
	SegmentNumber int      `json:"segment_number"`
	Summary       string   `json:"summary"`
	Keywords      []string `json:"keywords"`
	TextPreview   string   `json:"text_preview"`
	StartTimeSec  float64  `json:"start_time_sec"`
	NumSentences  int      `json:"num_sentences"`

	keywordText  string
	summaryLower string
	keywordLower string
}

// KeywordText returns the comma-joined keyword display string.
func (s Segment) KeywordText() string {
	return s.keywordText
}

// Contains reports whether the lower-cased needle occurs in the segment's
// summary or keyword display string, ignoring case.
func (s Segment) Contains(lowerNeedle string) bool {
	return strings.Contains(s.summaryLower, lowerNeedle) ||
		strings.Contains(s.keywordLower, lowerNeedle)
}

// clone returns a copy that shares no mutable state with the receiver.
func (s Segment) clone() Segment {
	s.Keywords = slices.Clone(s.Keywords)
	return s
}

// Stats summarises a built index.
type Stats struct {
	Epoch       uint64 `json:"epoch"`
	Fingerprint string `json:"fingerprint"`
	Episodes    int    `json:"episodes"`
	Segments    int    `json:"segments"`
	BuiltAt     string `json:"built_at"`
}
