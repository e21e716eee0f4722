package loader

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/Podcast-Segment-Navigator/internal/indexer/index"
	apperrors "github.com/Adithya-Monish-Kumar-K/Podcast-Segment-Navigator/pkg/errors"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

const ep2JSON = `{
  "episode_id": "ep2",
  "segments": [
    {"segment_id": "seg2", "summary": "Deep dive", "keywords": ["analysis"],
     "text_preview": "we go deeper", "start_time_sec": 61.5, "num_sentences": 4},
    {"segment_id": 1, "summary": "Intro topic", "keywords": ["intro"],
     "text_preview": "welcome to the intro", "num_sentences": 2, "extra": true}
  ]
}`

func TestDirectoryLoad(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "ep2_segment.json", ep2JSON)
	writeFile(t, dir, "ep1_segment.json", `{"episode_id": "ep1", "segments": []}`)
	writeFile(t, dir, "notes.txt", "ignored")

	src := NewDirectory(dir, "")
	episodes, err := src.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(episodes) != 2 {
		t.Fatalf("loaded %d episodes, want 2", len(episodes))
	}
	if episodes[0].EpisodeID != "ep1" || episodes[1].EpisodeID != "ep2" {
		t.Errorf("file order = %s, %s", episodes[0].EpisodeID, episodes[1].EpisodeID)
	}
	if episodes[1].Origin != filepath.Join(dir, "ep2_segment.json") {
		t.Errorf("Origin = %q", episodes[1].Origin)
	}

	idx, err := index.Build(episodes)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	first := idx.At(0)
	if first.SegmentID != "1" || first.SegmentNumber != 1 || first.StartTimeSec != 0 {
		t.Errorf("first segment = %+v", first)
	}
	if idx.At(1).StartTimeSec != 61.5 {
		t.Errorf("start time = %v", idx.At(1).StartTimeSec)
	}
}

func TestDirectoryMalformedFile(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "bad_segment.json", `{"episode_id": "ep1", "segments": [`)

	_, err := NewDirectory(dir, "").Load(context.Background())
	if !errors.Is(err, apperrors.ErrLoad) {
		t.Fatalf("error = %v, want ErrLoad", err)
	}
	var loadErr *index.LoadError
	if !errors.As(err, &loadErr) || loadErr.Origin != path {
		t.Errorf("LoadError = %+v", loadErr)
	}
}

func TestDirectoryFileWithoutSegments(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "ep1_segment.json", `{"episode_id": "ep1"}`)
	writeFile(t, dir, "ep2_segment.json", ep2JSON)

	episodes, err := NewDirectory(dir, "").Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	_, err = index.Build(episodes)
	var loadErr *index.LoadError
	if !errors.As(err, &loadErr) {
		t.Fatalf("Build error = %v, want *LoadError", err)
	}
	if loadErr.Origin != path || loadErr.EpisodeID != "ep1" || loadErr.Field != "segments" {
		t.Errorf("LoadError = %+v", loadErr)
	}
}

func TestDirectoryMissing(t *testing.T) {
	_, err := NewDirectory(filepath.Join(t.TempDir(), "absent"), "").Load(context.Background())
	if err == nil {
		t.Fatal("expected error for missing directory")
	}
	if errors.Is(err, apperrors.ErrLoad) {
		t.Error("missing directory reported as bad data")
	}
}

func TestDirectoryCustomPattern(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.json", `{"episode_id": "ep1", "segments": []}`)
	writeFile(t, dir, "ep1_segment.json", `{"episode_id": "ep1", "segments": []}`)
	episodes, err := NewDirectory(dir, "*.json").Load(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(episodes) != 2 {
		t.Errorf("loaded %d files, want 2", len(episodes))
	}
}
