package executor

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/Podcast-Segment-Navigator/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/Podcast-Segment-Navigator/internal/searcher/parser"
	apperrors "github.com/Adithya-Monish-Kumar-K/Podcast-Segment-Navigator/pkg/errors"
)

func seg(id, summary string, keywords ...string) index.RawSegment {
	text := "text for " + id
	n := 2
	return index.RawSegment{
		SegmentID:    index.RawID(id),
		Summary:      &summary,
		Keywords:     keywords,
		TextPreview:  &text,
		NumSentences: &n,
	}
}

func buildIndex(t *testing.T, raw ...index.RawEpisode) *index.Index {
	t.Helper()
	idx, err := index.Build(raw)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return idx
}

func twoSegmentIndex(t *testing.T) *index.Index {
	return buildIndex(t, index.RawEpisode{
		EpisodeID: "ep2",
		Segments: []index.RawSegment{
			seg("seg2", "Deep dive", "analysis"),
			seg("seg1", "Intro topic", "intro"),
		},
	})
}

func segmentIDs(hits []Hit) []string {
	ids := make([]string, len(hits))
	for i, h := range hits {
		ids[i] = h.SegmentID
	}
	return ids
}

func TestSearchMatchesSummaryOnly(t *testing.T) {
	hits, err := SearchAll(twoSegmentIndex(t), parser.Parse("intro"))
	if err != nil {
		t.Fatalf("SearchAll: %v", err)
	}
	if got := segmentIDs(hits); !reflect.DeepEqual(got, []string{"seg1"}) {
		t.Fatalf("hits = %v, want [seg1]", got)
	}
	if hits[0].ProgressFraction != 0.5 {
		t.Errorf("ProgressFraction = %v, want 0.5", hits[0].ProgressFraction)
	}
	if hits[0].Keywords != "intro" || hits[0].EpisodeNumber != 2 || hits[0].SegmentNumber != 1 {
		t.Errorf("hit = %+v", hits[0])
	}
}

func TestSearchWithoutMatches(t *testing.T) {
	hits, err := SearchAll(twoSegmentIndex(t), parser.Parse("xyz"))
	if err != nil {
		t.Fatalf("SearchAll: %v", err)
	}
	if hits == nil || len(hits) != 0 {
		t.Errorf("hits = %#v, want empty", hits)
	}
}

func TestSegmentsForEpisodeInOrder(t *testing.T) {
	segments, err := SegmentsForEpisode(twoSegmentIndex(t), "ep2")
	if err != nil {
		t.Fatalf("SegmentsForEpisode: %v", err)
	}
	if len(segments) != 2 || segments[0].SegmentID != "seg1" || segments[1].SegmentID != "seg2" {
		t.Errorf("segments = %+v", segments)
	}
}

func TestSegmentsForUnknownEpisode(t *testing.T) {
	_, err := SegmentsForEpisode(twoSegmentIndex(t), "unknown")
	if !errors.Is(err, apperrors.ErrEpisodeNotFound) {
		t.Errorf("error = %v, want ErrEpisodeNotFound", err)
	}
}

func TestEmptyQueryMatchesNothing(t *testing.T) {
	hits, err := SearchAll(twoSegmentIndex(t), parser.Parse(""))
	if err != nil {
		t.Fatalf("SearchAll: %v", err)
	}
	if len(hits) != 0 {
		t.Errorf("empty query returned %d hits", len(hits))
	}
}

func TestSearchIgnoresCase(t *testing.T) {
	idx := twoSegmentIndex(t)
	upper, err := SearchAll(idx, parser.Parse("INTRO"))
	if err != nil {
		t.Fatal(err)
	}
	lower, err := SearchAll(idx, parser.Parse("intro"))
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(upper, lower) {
		t.Errorf("INTRO = %v, intro = %v", segmentIDs(upper), segmentIDs(lower))
	}
}

func TestSearchIsIdempotent(t *testing.T) {
	idx := twoSegmentIndex(t)
	first, _ := SearchAll(idx, parser.Parse("i"))
	second, _ := SearchAll(idx, parser.Parse("i"))
	if !reflect.DeepEqual(first, second) {
		t.Errorf("results differ between runs")
	}
}

func TestSearchMatchesEitherField(t *testing.T) {
	idx := buildIndex(t, index.RawEpisode{
		EpisodeID: "ep1",
		Segments: []index.RawSegment{
			seg("seg1", "talk about rockets"),
			seg("seg2", "weather", "rockets"),
			seg("seg3", "nothing", "here"),
		},
	})
	hits, err := SearchAll(idx, parser.Parse("Rockets"))
	if err != nil {
		t.Fatal(err)
	}
	if got := segmentIDs(hits); !reflect.DeepEqual(got, []string{"seg1", "seg2"}) {
		t.Errorf("hits = %v", got)
	}
}

func TestSearchMatchesJoinedKeywords(t *testing.T) {
	idx := buildIndex(t, index.RawEpisode{
		EpisodeID: "ep1",
		Segments:  []index.RawSegment{seg("seg1", "x", "machine", "learning")},
	})
	hits, _ := SearchAll(idx, parser.Parse("machine, learn"))
	if len(hits) != 1 {
		t.Errorf("joined keyword string not searched: %v", segmentIDs(hits))
	}
}

func TestSearchCanonicalOrderAcrossEpisodes(t *testing.T) {
	idx := buildIndex(t,
		index.RawEpisode{EpisodeID: "ep10", Segments: []index.RawSegment{seg("seg1", "news")}},
		index.RawEpisode{EpisodeID: "ep3", Segments: []index.RawSegment{seg("seg2", "news"), seg("seg1", "news")}},
	)
	hits, _ := SearchAll(idx, parser.Parse("news"))
	var got [][2]int
	for _, h := range hits {
		got = append(got, [2]int{h.EpisodeNumber, h.SegmentNumber})
	}
	want := [][2]int{{3, 1}, {3, 2}, {10, 1}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("order = %v, want %v", got, want)
	}
}

func TestPresentRejectsZeroMaxSegment(t *testing.T) {
	summary, text, n := "only", "t", 1
	_, err := Present(index.Segment{
		EpisodeID: "ep1", SegmentID: "seg0", Summary: summary, TextPreview: text, NumSentences: n,
	}, 0)
	if !errors.Is(err, apperrors.ErrDivision) {
		t.Errorf("error = %v, want ErrDivision", err)
	}
}

func TestSearchZeroNumberedFirstSegment(t *testing.T) {
	idx := buildIndex(t,
		index.RawEpisode{EpisodeID: "ep1", Segments: []index.RawSegment{seg("seg0", "intro zero"), seg("seg1", "intro one")}},
		index.RawEpisode{EpisodeID: "ep2", Segments: []index.RawSegment{seg("seg1", "intro two")}},
	)
	hits, err := SearchAll(idx, parser.Parse("intro"))
	if err != nil {
		t.Fatalf("SearchAll: %v", err)
	}
	if len(hits) != 3 || hits[0].ProgressFraction != 0 || hits[2].ProgressFraction != 1 {
		t.Errorf("hits = %+v", hits)
	}
}

func TestListEpisodes(t *testing.T) {
	idx := buildIndex(t,
		index.RawEpisode{EpisodeID: "ep12", Segments: []index.RawSegment{seg("seg1", "a")}},
		index.RawEpisode{EpisodeID: "ep2", Segments: []index.RawSegment{seg("seg1", "b"), seg("seg2", "c")}},
		index.RawEpisode{EpisodeID: "ep7", Segments: []index.RawSegment{seg("seg3", "d")}},
	)
	got := ListEpisodes(idx)
	if want := []string{"ep2", "ep7", "ep12"}; !reflect.DeepEqual(got, want) {
		t.Errorf("ListEpisodes = %v, want %v", got, want)
	}
}

func TestPresentHighlights(t *testing.T) {
	text := "machine learning basics"
	n := 1
	summary := "s"
	idx := buildIndex(t, index.RawEpisode{
		EpisodeID: "ep1",
		Segments: []index.RawSegment{{
			SegmentID: "seg1", Summary: &summary, TextPreview: &text, NumSentences: &n,
			Keywords: []string{"machine", "basics"},
		}},
	})
	hit, err := Present(idx.At(0), 1)
	if err != nil {
		t.Fatal(err)
	}
	if hit.HighlightedPreview != "**machine** learning **basics**" {
		t.Errorf("HighlightedPreview = %q", hit.HighlightedPreview)
	}
	if hit.TextPreview != text {
		t.Errorf("TextPreview changed: %q", hit.TextPreview)
	}
}

type nilSource struct{}

func (nilSource) Current() *index.Index { return nil }

func TestExecutorNotReady(t *testing.T) {
	e := New(nilSource{})
	ctx := context.Background()
	if _, err := e.SearchAll(ctx, parser.Parse("x")); !errors.Is(err, apperrors.ErrIndexNotReady) {
		t.Errorf("SearchAll error = %v", err)
	}
	if _, err := e.ListEpisodes(ctx); !errors.Is(err, apperrors.ErrIndexNotReady) {
		t.Errorf("ListEpisodes error = %v", err)
	}
	if _, err := e.Browse(ctx, "ep1"); !errors.Is(err, apperrors.ErrIndexNotReady) {
		t.Errorf("Browse error = %v", err)
	}
}

func TestExecutorBrowse(t *testing.T) {
	e := New(Fixed(twoSegmentIndex(t)))
	view, err := e.Browse(context.Background(), "ep2")
	if err != nil {
		t.Fatalf("Browse: %v", err)
	}
	if view.EpisodeNumber != 2 || len(view.Segments) != 2 {
		t.Fatalf("view = %+v", view)
	}
	if view.Segments[0].ProgressFraction != 0.5 || view.Segments[1].ProgressFraction != 1 {
		t.Errorf("progress = %v, %v", view.Segments[0].ProgressFraction, view.Segments[1].ProgressFraction)
	}
	if _, err := e.Browse(context.Background(), "ep9"); !errors.Is(err, apperrors.ErrEpisodeNotFound) {
		t.Errorf("Browse(ep9) error = %v", err)
	}
}

func TestExecutorConcurrentReads(t *testing.T) {
	e := New(Fixed(twoSegmentIndex(t)))
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := e.SearchAll(context.Background(), parser.Parse("Intro"))
			if err != nil || res.TotalHits != 1 {
				t.Errorf("SearchAll = %+v, %v", res, err)
			}
		}()
	}
	wg.Wait()
}
