package index

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	apperrors "github.com/Adithya-Monish-Kumar-K/Podcast-Segment-Navigator/pkg/errors"
)

func strPtr(s string) *string     { return &s }
func intPtr(n int) *int           { return &n }
func floatPtr(f float64) *float64 { return &f }

func rawSeg(id, summary string, keywords ...string) RawSegment {
	return RawSegment{
		SegmentID:    RawID(id),
		Summary:      strPtr(summary),
		Keywords:     keywords,
		TextPreview:  strPtr("preview of " + id),
		NumSentences: intPtr(3),
	}
}

func TestBuildCanonicalOrder(t *testing.T) {
	raw := []RawEpisode{
		{EpisodeID: "ep10", Segments: []RawSegment{rawSeg("seg2", "b"), rawSeg("seg1", "a")}},
		{EpisodeID: "ep2", Segments: []RawSegment{rawSeg("seg10", "d"), rawSeg("seg9", "c")}},
	}
	idx, err := Build(raw)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	want := []struct {
		ep, seg int
	}{{2, 9}, {2, 10}, {10, 1}, {10, 2}}
	if idx.Len() != len(want) {
		t.Fatalf("Len = %d, want %d", idx.Len(), len(want))
	}
	for i, w := range want {
		got := idx.At(i)
		if got.EpisodeNumber != w.ep || got.SegmentNumber != w.seg {
			t.Errorf("row %d = (%d,%d), want (%d,%d)", i, got.EpisodeNumber, got.SegmentNumber, w.ep, w.seg)
		}
	}

	episodes := idx.Episodes()
	if len(episodes) != 2 || episodes[0].EpisodeID != "ep2" || episodes[1].EpisodeID != "ep10" {
		t.Errorf("Episodes = %+v", episodes)
	}
	if episodes[0].MaxSegmentNumber != 10 || episodes[0].SegmentCount != 2 {
		t.Errorf("ep2 info = %+v", episodes[0])
	}
}

func TestBuildDefaults(t *testing.T) {
	seg := RawSegment{
		SegmentID:    "seg1",
		Summary:      strPtr("Intro"),
		TextPreview:  strPtr("hello"),
		NumSentences: intPtr(0),
	}
	idx, err := Build([]RawEpisode{{EpisodeID: "ep1", Segments: []RawSegment{seg}}})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	got := idx.At(0)
	if got.Keywords == nil || len(got.Keywords) != 0 {
		t.Errorf("Keywords = %#v, want empty non-nil slice", got.Keywords)
	}
	if got.StartTimeSec != 0.0 {
		t.Errorf("StartTimeSec = %v, want 0", got.StartTimeSec)
	}
	if got.KeywordText() != "" {
		t.Errorf("KeywordText = %q, want empty", got.KeywordText())
	}
}

func TestBuildKeywordText(t *testing.T) {
	idx, err := Build([]RawEpisode{{
		EpisodeID: "ep1",
		Segments:  []RawSegment{rawSeg("seg1", "s", "machine", "learning")},
	}})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if got := idx.At(0).KeywordText(); got != "machine, learning" {
		t.Errorf("KeywordText = %q", got)
	}
}

func TestBuildStableForEqualKeys(t *testing.T) {
	idx, err := Build([]RawEpisode{
		{EpisodeID: "ep1", Segments: []RawSegment{rawSeg("a1", "first")}},
		{EpisodeID: "episode-1", Segments: []RawSegment{rawSeg("b1", "second")}},
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if idx.At(0).Summary != "first" || idx.At(1).Summary != "second" {
		t.Errorf("ties reordered: %q, %q", idx.At(0).Summary, idx.At(1).Summary)
	}
	episodes := idx.Episodes()
	if len(episodes) != 2 || episodes[0].EpisodeID != "ep1" {
		t.Errorf("Episodes = %+v", episodes)
	}
}

func TestBuildLoadErrors(t *testing.T) {
	tests := []struct {
		name  string
		ep    RawEpisode
		field string
	}{
		{
			name:  "episode id without numeral",
			ep:    RawEpisode{EpisodeID: "pilot", Segments: []RawSegment{rawSeg("seg1", "x")}},
			field: "episode_id",
		},
		{
			name:  "segment id without numeral",
			ep:    RawEpisode{EpisodeID: "ep1", Segments: []RawSegment{rawSeg("intro", "x")}},
			field: "segment_id",
		},
		{
			name:  "numeral overflow",
			ep:    RawEpisode{EpisodeID: "ep99999999999999999999999", Segments: []RawSegment{rawSeg("seg1", "x")}},
			field: "episode_id",
		},
		{
			name: "missing summary",
			ep: RawEpisode{EpisodeID: "ep1", Segments: []RawSegment{{
				SegmentID: "seg1", TextPreview: strPtr("t"), NumSentences: intPtr(1),
			}}},
			field: "summary",
		},
		{
			name: "missing text preview",
			ep: RawEpisode{EpisodeID: "ep1", Segments: []RawSegment{{
				SegmentID: "seg1", Summary: strPtr("s"), NumSentences: intPtr(1),
			}}},
			field: "text_preview",
		},
		{
			name: "missing sentence count",
			ep: RawEpisode{EpisodeID: "ep1", Segments: []RawSegment{{
				SegmentID: "seg1", Summary: strPtr("s"), TextPreview: strPtr("t"),
			}}},
			field: "num_sentences",
		},
		{
			name: "negative start time",
			ep: RawEpisode{EpisodeID: "ep1", Segments: []RawSegment{{
				SegmentID: "seg1", Summary: strPtr("s"), TextPreview: strPtr("t"),
				NumSentences: intPtr(1), StartTimeSec: floatPtr(-1),
			}}},
			field: "start_time_sec",
		},
		{
			name:  "missing segments",
			ep:    RawEpisode{EpisodeID: "ep1"},
			field: "segments",
		},
		{
			name:  "only segment numbered zero",
			ep:    RawEpisode{EpisodeID: "ep1", Segments: []RawSegment{rawSeg("seg0", "x")}},
			field: "segment_id",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.ep.Origin = "ep_segment.json"
			good := RawEpisode{EpisodeID: "ep5", Segments: []RawSegment{rawSeg("seg1", "fine")}}
			_, err := Build([]RawEpisode{good, tt.ep})
			if err == nil {
				t.Fatal("expected build to fail")
			}
			if !errors.Is(err, apperrors.ErrLoad) {
				t.Errorf("error %v does not wrap ErrLoad", err)
			}
			var loadErr *LoadError
			if !errors.As(err, &loadErr) {
				t.Fatalf("error %T is not *LoadError", err)
			}
			if loadErr.Field != tt.field {
				t.Errorf("Field = %q, want %q", loadErr.Field, tt.field)
			}
			if loadErr.Origin != "ep_segment.json" {
				t.Errorf("Origin = %q", loadErr.Origin)
			}
			if err := ValidateEpisode(tt.ep); err == nil {
				t.Error("ValidateEpisode accepted the record")
			}
		})
	}
}

func TestBuildExplicitlyEmptySegments(t *testing.T) {
	idx, err := Build([]RawEpisode{
		{EpisodeID: "ep1", Segments: []RawSegment{}},
		{EpisodeID: "ep2", Segments: []RawSegment{rawSeg("seg0", "cold open"), rawSeg("seg1", "intro")}},
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if idx.Len() != 2 || len(idx.Episodes()) != 1 {
		t.Errorf("segments = %d, episodes = %+v", idx.Len(), idx.Episodes())
	}
	if err := ValidateEpisode(RawEpisode{EpisodeID: "ep3", Segments: []RawSegment{}}); err != nil {
		t.Errorf("ValidateEpisode: %v", err)
	}
}

func TestBuildEmpty(t *testing.T) {
	idx, err := Build(nil, WithEpoch(7), WithBuiltAt(time.Unix(0, 0).UTC()))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if idx.Len() != 0 || len(idx.Episodes()) != 0 {
		t.Errorf("expected empty index")
	}
	stats := idx.Stats()
	if stats.Epoch != 7 || stats.BuiltAt != "1970-01-01T00:00:00Z" {
		t.Errorf("Stats = %+v", stats)
	}
}

func TestIndexReturnsCopies(t *testing.T) {
	idx, err := Build([]RawEpisode{{
		EpisodeID: "ep1",
		Segments:  []RawSegment{rawSeg("seg1", "s", "alpha")},
	}})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	segs, ok := idx.EpisodeSegments("ep1")
	if !ok {
		t.Fatal("episode missing")
	}
	segs[0].Keywords[0] = "mutated"
	segs[0].Summary = "mutated"

	again, _ := idx.EpisodeSegments("ep1")
	if again[0].Keywords[0] != "alpha" || again[0].Summary != "s" {
		t.Errorf("index was mutated through a returned copy: %+v", again[0])
	}
}

func TestBuildDoesNotAliasInput(t *testing.T) {
	keywords := []string{"alpha"}
	raw := []RawEpisode{{EpisodeID: "ep1", Segments: []RawSegment{rawSeg("seg1", "s", keywords...)}}}
	idx, err := Build(raw)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	raw[0].Segments[0].Keywords[0] = "changed"
	if idx.At(0).Keywords[0] != "alpha" {
		t.Errorf("index aliases caller's keyword slice")
	}
}

func TestRawIDUnmarshal(t *testing.T) {
	var seg RawSegment
	data := `{"segment_id": 4, "summary": "s", "text_preview": "t", "num_sentences": 2}`
	if err := json.Unmarshal([]byte(data), &seg); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if seg.SegmentID != "4" {
		t.Errorf("SegmentID = %q, want 4", seg.SegmentID)
	}
	if err := json.Unmarshal([]byte(`{"segment_id": "seg_07"}`), &seg); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if seg.SegmentID != "seg_07" {
		t.Errorf("SegmentID = %q", seg.SegmentID)
	}
	if err := json.Unmarshal([]byte(`{"segment_id": true}`), &seg); err == nil {
		t.Error("expected error for boolean id")
	}
}

func TestEpisodeLookup(t *testing.T) {
	idx, err := Build([]RawEpisode{{EpisodeID: "ep3", Segments: []RawSegment{rawSeg("seg4", "x"), rawSeg("seg2", "y")}}})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	maxSeg, ok := idx.MaxSegmentNumber("ep3")
	if !ok || maxSeg != 4 {
		t.Errorf("MaxSegmentNumber = %d, %v", maxSeg, ok)
	}
	if _, ok := idx.Episode("ep4"); ok {
		t.Error("unexpected episode ep4")
	}
	if _, ok := idx.EpisodeSegments("ep4"); ok {
		t.Error("unexpected segments for ep4")
	}
}

func TestFingerprintFollowsContent(t *testing.T) {
	raw := []RawEpisode{{EpisodeID: "ep1", Segments: []RawSegment{rawSeg("seg1", "intro", "welcome")}}}
	a, err := Build(raw, WithEpoch(1))
	if err != nil {
		t.Fatal(err)
	}
	b, err := Build(raw, WithEpoch(9), WithBuiltAt(time.Unix(0, 0)))
	if err != nil {
		t.Fatal(err)
	}
	if a.Fingerprint() == "" || a.Fingerprint() != b.Fingerprint() {
		t.Errorf("same content: %q vs %q", a.Fingerprint(), b.Fingerprint())
	}

	changed := []RawEpisode{{EpisodeID: "ep1", Segments: []RawSegment{rawSeg("seg1", "intro", "welcome back")}}}
	c, err := Build(changed, WithEpoch(1))
	if err != nil {
		t.Fatal(err)
	}
	if c.Fingerprint() == a.Fingerprint() {
		t.Error("different content shares a fingerprint")
	}
	if c.Stats().Fingerprint != c.Fingerprint() {
		t.Errorf("Stats fingerprint = %q", c.Stats().Fingerprint)
	}
}

func TestMatchingReturnsCopies(t *testing.T) {
	idx, err := Build([]RawEpisode{{EpisodeID: "ep1", Segments: []RawSegment{
		rawSeg("seg2", "Rocket science", "space"),
		rawSeg("seg1", "Cooking", "kitchen"),
		rawSeg("seg3", "More rockets", "space"),
	}}})
	if err != nil {
		t.Fatal(err)
	}
	hits := idx.Matching("rocket")
	if len(hits) != 2 || hits[0].SegmentID != "seg2" || hits[1].SegmentID != "seg3" {
		t.Fatalf("Matching = %+v", hits)
	}
	hits[0].Keywords[0] = "changed"
	hits[0].Summary = "changed"
	if again := idx.Matching("space"); again[0].Keywords[0] != "space" || again[0].Summary != "Rocket science" {
		t.Errorf("index mutated through Matching: %+v", again[0])
	}
	if idx.Matching("absent") != nil {
		t.Error("no match should return nil")
	}
}
