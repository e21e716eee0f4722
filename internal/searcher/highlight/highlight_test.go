package highlight

import (
	"strings"
	"testing"
)

func TestHighlight(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		keywords []string
		want     string
	}{
		{"no keywords", "machine learning basics", nil, "machine learning basics"},
		{"two keywords", "machine learning basics", []string{"machine", "basics"}, "**machine** learning **basics**"},
		{"every occurrence", "data and more data", []string{"data"}, "**data** and more **data**"},
		{"case sensitive", "Machine learning", []string{"machine"}, "Machine learning"},
		{"trimmed and blank", "deep dive", []string{"  deep ", "", "   "}, "**deep** dive"},
		{"absent keyword", "deep dive", []string{"shallow"}, "deep dive"},
		{"sequential rewrap", "machine learning", []string{"machine learning", "machine"}, "****machine** learning**"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Highlight(tt.text, tt.keywords); got != tt.want {
				t.Errorf("Highlight(%q, %q) = %q, want %q", tt.text, tt.keywords, got, tt.want)
			}
		})
	}
}

func TestHighlightDoesNotMutateKeywords(t *testing.T) {
	keywords := []string{" alpha "}
	Highlight("alpha", keywords)
	if keywords[0] != " alpha " {
		t.Errorf("keywords mutated: %q", keywords)
	}
}

func TestSpans(t *testing.T) {
	got := Spans("machine learning basics", []string{"machine", "basics"})
	want := []Span{
		{Text: "machine", Keyword: true},
		{Text: " learning ", Keyword: false},
		{Text: "basics", Keyword: true},
	}
	if len(got) != len(want) {
		t.Fatalf("Spans = %+v, want %+v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("span %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestSpansOverlapMerges(t *testing.T) {
	got := Spans("machine learning", []string{"machine learning", "machine"})
	if len(got) != 1 || !got[0].Keyword || got[0].Text != "machine learning" {
		t.Errorf("Spans = %+v", got)
	}

	got = Spans("aaa", []string{"aa"})
	if len(got) != 1 || !got[0].Keyword {
		t.Errorf("overlapping occurrences not merged: %+v", got)
	}
}

func TestSpansReproduceText(t *testing.T) {
	texts := []string{"", "plain", "intro to the intro", "héllo wörld", "aXbXc"}
	keywords := []string{"intro", "wörld", "X", "zzz"}
	for _, text := range texts {
		var b strings.Builder
		for _, s := range Spans(text, keywords) {
			b.WriteString(s.Text)
		}
		if b.String() != text {
			t.Errorf("spans of %q joined to %q", text, b.String())
		}
	}
}

func TestRender(t *testing.T) {
	spans := Spans("machine learning basics", []string{"machine", "basics"})
	got := Render(spans, func(s string) string { return Marker + s + Marker })
	if got != "**machine** learning **basics**" {
		t.Errorf("Render = %q", got)
	}
}
