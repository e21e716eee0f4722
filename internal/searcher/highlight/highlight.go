// Package highlight marks keyword occurrences inside transcript previews.
// Matching is case-sensitive and literal, unlike search.
package highlight

import "strings"

// Marker wraps emphasised text in the markup form.
const Marker = "**"

// Span is a run of text that is either entirely keyword or entirely plain.
type Span struct {
	Text    string `json:"text"`
	Keyword bool   `json:"keyword"`
}

// Highlight wraps every occurrence of each keyword in Marker, one keyword at
// a time in the order given. A keyword that occurs inside an earlier
// keyword's output is wrapped again.
func Highlight(text string, keywords []string) string {
	for _, kw := range keywords {
		kw = strings.TrimSpace(kw)
		if kw == "" {
			continue
		}
		text = strings.ReplaceAll(text, kw, Marker+kw+Marker)
	}
	return text
}

// Spans splits text into plain and keyword runs. A byte is keyword text if
// any keyword occurrence in the original text covers it, so overlapping
// keywords merge instead of nesting. Joining the span texts yields text.
func Spans(text string, keywords []string) []Span {
	if text == "" {
		return []Span{}
	}
	mask := make([]bool, len(text))
	for _, kw := range keywords {
		kw = strings.TrimSpace(kw)
		if kw == "" {
			continue
		}
		for from := 0; from <= len(text)-len(kw); {
			i := strings.Index(text[from:], kw)
			if i < 0 {
				break
			}
			start := from + i
			for j := start; j < start+len(kw); j++ {
				mask[j] = true
			}
			from = start + 1
		}
	}

	spans := make([]Span, 0, 1)
	runStart := 0
	for i := 1; i <= len(text); i++ {
		if i < len(text) && mask[i] == mask[runStart] {
			continue
		}
		spans = append(spans, Span{Text: text[runStart:i], Keyword: mask[runStart]})
		runStart = i
	}
	return spans
}

// Render joins spans, passing keyword runs through emphasise.
func Render(spans []Span, emphasise func(string) string) string {
	var b strings.Builder
	for _, s := range spans {
		if s.Keyword {
			b.WriteString(emphasise(s.Text))
		} else {
			b.WriteString(s.Text)
		}
	}
	return b.String()
}
