package executor

import (
	"fmt"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/Podcast-Segment-Navigator/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/Podcast-Segment-Navigator/internal/searcher/parser"
)

var benchKeywords = []string{"startup", "funding", "hiring", "climate", "music", "history", "product", "interview"}

func benchCatalog(episodes, segmentsPerEpisode int) []index.RawEpisode {
	raw := make([]index.RawEpisode, episodes)
	for e := range raw {
		segments := make([]index.RawSegment, segmentsPerEpisode)
		for s := range segments {
			kw := benchKeywords[(e+s)%len(benchKeywords)]
			segments[s] = seg(
				fmt.Sprintf("seg%d", s+1),
				fmt.Sprintf("Segment %d of episode %d covers %s in depth", s+1, e+1, kw),
				kw, benchKeywords[(e*s)%len(benchKeywords)],
			)
		}
		raw[e] = index.RawEpisode{EpisodeID: fmt.Sprintf("ep%d", e+1), Segments: segments}
	}
	return raw
}

// BenchmarkBuild measures index construction for catalogs of increasing size.
func BenchmarkBuild(b *testing.B) {
	for _, episodes := range []int{10, 100, 1000} {
		raw := benchCatalog(episodes, 20)
		b.Run(fmt.Sprintf("episodes_%d", episodes), func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				if _, err := index.Build(raw); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

// BenchmarkSearchAll measures a full scan with highlighting for selective
// and broad queries.
func BenchmarkSearchAll(b *testing.B) {
	idx, err := index.Build(benchCatalog(500, 20))
	if err != nil {
		b.Fatal(err)
	}
	queries := []struct {
		name  string
		query string
	}{
		{"no_match", "zzzz"},
		{"selective", "episode 42 covers"},
		{"keyword", "climate"},
		{"broad", "segment"},
	}
	for _, q := range queries {
		plan := parser.Parse(q.query)
		b.Run(q.name, func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				if _, err := SearchAll(idx, plan); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

// BenchmarkSearchAllParallel measures concurrent readers on one snapshot.
func BenchmarkSearchAllParallel(b *testing.B) {
	idx, err := index.Build(benchCatalog(500, 20))
	if err != nil {
		b.Fatal(err)
	}
	plan := parser.Parse("funding")
	b.ReportAllocs()
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			if _, err := SearchAll(idx, plan); err != nil {
				b.Error(err)
				return
			}
		}
	})
}
