// Command loadtest drives a running navigator with a mix of segment
// searches and episode browses and prints latency and cache statistics.
//
// Usage:
//
//	go run ./cmd/loadtest -url http://localhost:8080 -concurrency 20 -duration 1m
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"math"
	"math/rand/v2"
	"net/http"
	"net/url"
	"os"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
)

type Config struct {
	BaseURL     string
	Concurrency int
	Duration    time.Duration
	BrowseRatio float64
	Queries     []string
}

var defaultQueries = []string{
	"startup",
	"machine learning",
	"interview",
	"funding",
	"climate",
	"product",
	"hiring",
	"remote work",
	"music",
	"history",
}

// kind labels a request in the report.
type kind string

const (
	kindSearch kind = "search"
	kindBrowse kind = "browse"
)

type Stats struct {
	totalRequests atomic.Int64
	successCount  atomic.Int64
	errorCount    atomic.Int64
	cacheHits     atomic.Int64
	emptyResults  atomic.Int64

	mu          sync.Mutex
	latencies   map[kind][]time.Duration
	statusCodes map[int]int64
}

func NewStats() *Stats {
	return &Stats{
		latencies:   make(map[kind][]time.Duration),
		statusCodes: make(map[int]int64),
	}
}

func (s *Stats) RecordRequest(k kind, duration time.Duration, statusCode int, err error) {
	s.totalRequests.Add(1)
	if err != nil || statusCode < 200 || statusCode >= 300 {
		s.errorCount.Add(1)
	} else {
		s.successCount.Add(1)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		return
	}
	s.latencies[k] = append(s.latencies[k], duration)
	s.statusCodes[statusCode]++
}

type searchReply struct {
	TotalHits int  `json:"total_hits"`
	CacheHit  bool `json:"cache_hit"`
}

type episodesReply struct {
	Episodes []struct {
		EpisodeID string `json:"episode_id"`
	} `json:"episodes"`
}

func main() {
	baseURL := flag.String("url", "http://localhost:8080", "base URL of the navigator")
	concurrency := flag.Int("concurrency", 10, "number of concurrent workers")
	duration := flag.Duration("duration", 30*time.Second, "test duration")
	browseRatio := flag.Float64("browse-ratio", 0.2, "fraction of requests that browse an episode")
	queryFile := flag.String("queries", "", "file with one query per line (default: built-in list)")
	flag.Parse()

	queries := defaultQueries
	if *queryFile != "" {
		loaded, err := readQueries(*queryFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "reading queries: %v\n", err)
			os.Exit(1)
		}
		queries = loaded
	}

	cfg := Config{
		BaseURL:     strings.TrimRight(*baseURL, "/"),
		Concurrency: *concurrency,
		Duration:    *duration,
		BrowseRatio: *browseRatio,
		Queries:     queries,
	}

	fmt.Println("=== Segment Navigator Load Test ===")
	fmt.Printf("Target:       %s\n", cfg.BaseURL)
	fmt.Printf("Concurrency:  %d\n", cfg.Concurrency)
	fmt.Printf("Duration:     %s\n", cfg.Duration)
	fmt.Printf("Queries:      %d unique\n", len(cfg.Queries))
	fmt.Printf("Browse ratio: %.2f\n", cfg.BrowseRatio)
	fmt.Println()

	stats, err := runLoadTest(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load test aborted: %v\n", err)
		os.Exit(1)
	}
	printReport(stats, cfg.Duration)
}

func readQueries(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var queries []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if q := strings.TrimSpace(scanner.Text()); q != "" {
			queries = append(queries, q)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if len(queries) == 0 {
		return nil, fmt.Errorf("%s contains no queries", path)
	}
	return queries, nil
}

func runLoadTest(cfg Config) (*Stats, error) {
	stats := NewStats()
	client := &http.Client{
		Timeout: 10 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        cfg.Concurrency * 2,
			MaxIdleConnsPerHost: cfg.Concurrency * 2,
			IdleConnTimeout:     90 * time.Second,
		},
	}

	episodes, err := fetchEpisodes(client, cfg.BaseURL)
	if err != nil {
		return nil, err
	}
	if len(episodes) == 0 && cfg.BrowseRatio > 0 {
		fmt.Println("WARNING: index has no episodes, browsing disabled")
		cfg.BrowseRatio = 0
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Duration)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	fmt.Print("Running")

	for w := 0; w < cfg.Concurrency; w++ {
		rng := rand.New(rand.NewPCG(uint64(w), uint64(time.Now().UnixNano())))
		g.Go(func() error {
			for gctx.Err() == nil {
				if rng.Float64() < cfg.BrowseRatio {
					browse(gctx, client, cfg.BaseURL, episodes[rng.IntN(len(episodes))], stats)
					continue
				}
				search(gctx, client, cfg.BaseURL, cfg.Queries[rng.IntN(len(cfg.Queries))], stats)
			}
			return nil
		})
	}

	g.Go(func() error {
		ticker := time.NewTicker(5 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				fmt.Print(".")
			}
		}
	})

	err = g.Wait()
	fmt.Println(" done!")
	fmt.Println()
	return stats, err
}

func fetchEpisodes(client *http.Client, baseURL string) ([]string, error) {
	resp, err := client.Get(baseURL + "/api/v1/episodes")
	if err != nil {
		return nil, fmt.Errorf("listing episodes: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("listing episodes: status %d", resp.StatusCode)
	}
	var reply episodesReply
	if err := json.NewDecoder(resp.Body).Decode(&reply); err != nil {
		return nil, fmt.Errorf("decoding episode list: %w", err)
	}
	ids := make([]string, len(reply.Episodes))
	for i, ep := range reply.Episodes {
		ids[i] = ep.EpisodeID
	}
	return ids, nil
}

func search(ctx context.Context, client *http.Client, baseURL, query string, stats *Stats) {
	searchURL := fmt.Sprintf("%s/api/v1/search?q=%s&limit=10", baseURL, url.QueryEscape(query))
	start := time.Now()
	resp, err := get(ctx, client, searchURL)
	elapsed := time.Since(start)
	if err != nil {
		if ctx.Err() == nil {
			stats.RecordRequest(kindSearch, elapsed, 0, err)
		}
		return
	}
	defer resp.Body.Close()

	var reply searchReply
	if resp.StatusCode == http.StatusOK && json.NewDecoder(resp.Body).Decode(&reply) == nil {
		if reply.CacheHit {
			stats.cacheHits.Add(1)
		}
		if reply.TotalHits == 0 {
			stats.emptyResults.Add(1)
		}
	}
	stats.RecordRequest(kindSearch, elapsed, resp.StatusCode, nil)
}

func browse(ctx context.Context, client *http.Client, baseURL, episodeID string, stats *Stats) {
	browseURL := fmt.Sprintf("%s/api/v1/episodes/%s/segments", baseURL, url.PathEscape(episodeID))
	start := time.Now()
	resp, err := get(ctx, client, browseURL)
	elapsed := time.Since(start)
	if err != nil {
		if ctx.Err() == nil {
			stats.RecordRequest(kindBrowse, elapsed, 0, err)
		}
		return
	}
	resp.Body.Close()
	stats.RecordRequest(kindBrowse, elapsed, resp.StatusCode, nil)
}

func get(ctx context.Context, client *http.Client, rawURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	return client.Do(req)
}

func printReport(stats *Stats, duration time.Duration) {
	total := stats.totalRequests.Load()
	success := stats.successCount.Load()
	errors := stats.errorCount.Load()

	fmt.Println("=== Results ===")
	fmt.Printf("Total Requests:  %d\n", total)
	fmt.Printf("Successful:      %d\n", success)
	fmt.Printf("Errors:          %d\n", errors)

	if total > 0 {
		fmt.Printf("Error Rate:      %.2f%%\n", float64(errors)/float64(total)*100)
		fmt.Printf("Requests/sec:    %.2f\n", float64(total)/duration.Seconds())
	}

	stats.mu.Lock()
	defer stats.mu.Unlock()

	if searches := len(stats.latencies[kindSearch]); searches > 0 {
		fmt.Printf("Cache Hit Rate:  %.2f%%\n", float64(stats.cacheHits.Load())/float64(searches)*100)
		fmt.Printf("Empty Results:   %d\n", stats.emptyResults.Load())
	}

	for _, k := range []kind{kindSearch, kindBrowse} {
		latencies := stats.latencies[k]
		if len(latencies) == 0 {
			continue
		}
		sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })

		var sum time.Duration
		for _, l := range latencies {
			sum += l
		}
		avg := sum / time.Duration(len(latencies))

		fmt.Println()
		fmt.Printf("=== %s latency (%d requests) ===\n", k, len(latencies))
		fmt.Printf("Min:    %s\n", latencies[0])
		fmt.Printf("Avg:    %s\n", avg)
		fmt.Printf("P50:    %s\n", percentile(latencies, 50))
		fmt.Printf("P95:    %s\n", percentile(latencies, 95))
		fmt.Printf("P99:    %s\n", percentile(latencies, 99))
		fmt.Printf("Max:    %s\n", latencies[len(latencies)-1])
	}

	fmt.Println()
	fmt.Println("=== Status Codes ===")
	codes := make([]int, 0, len(stats.statusCodes))
	for code := range stats.statusCodes {
		codes = append(codes, code)
	}
	sort.Ints(codes)
	for _, code := range codes {
		fmt.Printf("  %d: %d\n", code, stats.statusCodes[code])
	}

	if total == 0 {
		fmt.Println()
		fmt.Println("WARNING: No requests completed. Is the navigator running?")
		os.Exit(1)
	}
}

func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(math.Ceil(p/100*float64(len(sorted)))) - 1
	idx = max(0, min(idx, len(sorted)-1))
	return sorted[idx]
}
