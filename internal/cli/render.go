package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/Adithya-Monish-Kumar-K/Podcast-Segment-Navigator/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/Podcast-Segment-Navigator/internal/searcher/highlight"
)

const barWidth = 20

// Theme holds the colours of terminal output.
type Theme struct {
	Title   lipgloss.Color
	Keyword lipgloss.Color
	Muted   lipgloss.Color
	Bar     lipgloss.Color
}

var defaultTheme = Theme{
	Title:   lipgloss.Color("#5FAFD7"),
	Keyword: lipgloss.Color("#FFAF00"),
	Muted:   lipgloss.Color("#6C6C6C"),
	Bar:     lipgloss.Color("#00D787"),
}

func (t Theme) titleStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Title).Bold(true)
}

func (t Theme) keywordStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Keyword).Bold(true)
}

func (t Theme) mutedStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Muted)
}

func (t Theme) barStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Bar)
}

// printer writes hits either styled or in plain markup.
type printer struct {
	out   io.Writer
	plain bool
	theme Theme
}

func (p printer) style(s lipgloss.Style, text string) string {
	if p.plain {
		return text
	}
	return s.Render(text)
}

// preview returns the hit's preview with keywords emphasised.
func (p printer) preview(hit executor.Hit) string {
	if p.plain {
		return hit.HighlightedPreview
	}
	kw := p.theme.keywordStyle()
	return highlight.Render(highlight.Spans(hit.TextPreview, hit.KeywordList), func(s string) string { return kw.Render(s) })
}

func progressBar(fraction float64) string {
	filled := int(fraction*barWidth + 0.5)
	filled = max(0, min(barWidth, filled))
	return strings.Repeat("#", filled) + strings.Repeat("-", barWidth-filled)
}

func (p printer) hit(n int, hit executor.Hit) {
	header := fmt.Sprintf("%d. %s · segment %d", n, hit.EpisodeID, hit.SegmentNumber)
	fmt.Fprintln(p.out, p.style(p.theme.titleStyle(), header))
	fmt.Fprintf(p.out, "   %s\n", hit.Summary)
	if hit.Keywords != "" {
		fmt.Fprintf(p.out, "   %s\n", p.style(p.theme.mutedStyle(), "keywords: "+hit.Keywords))
	}
	fmt.Fprintf(p.out, "   %s\n", p.preview(hit))
	bar := p.style(p.theme.barStyle(), progressBar(hit.ProgressFraction))
	fmt.Fprintf(p.out, "   [%s] %3.0f%%  starts at %s\n", bar, hit.ProgressFraction*100, clock(hit.StartTimeSec))
	fmt.Fprintln(p.out)
}

// clock formats seconds as m:ss or h:mm:ss.
func clock(sec float64) string {
	total := int(sec)
	h, m, s := total/3600, (total%3600)/60, total%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}
