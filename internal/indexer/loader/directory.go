// Package loader reads raw episode records from the catalog backends: a
// directory of segment JSON files, PostgreSQL, or MongoDB.
package loader

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/Adithya-Monish-Kumar-K/Podcast-Segment-Navigator/internal/indexer/index"
)

// DefaultPattern matches the files written by the segmentation step.
const DefaultPattern = "*_segment.json"

// Directory loads one episode per JSON file.
type Directory struct {
	Dir     string
	Pattern string
}

func NewDirectory(dir, pattern string) *Directory {
	if pattern == "" {
		pattern = DefaultPattern
	}
	return &Directory{Dir: dir, Pattern: pattern}
}

func (d *Directory) Name() string {
	return "directory:" + d.Dir
}

// Files lists the matching files in lexical order.
func (d *Directory) Files() ([]string, error) {
	info, err := os.Stat(d.Dir)
	if err != nil {
		return nil, fmt.Errorf("reading segment directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("segment directory %s is not a directory", d.Dir)
	}
	files, err := filepath.Glob(filepath.Join(d.Dir, d.Pattern))
	if err != nil {
		return nil, fmt.Errorf("matching %s: %w", d.Pattern, err)
	}
	sort.Strings(files)
	return files, nil
}

func (d *Directory) Load(ctx context.Context) ([]index.RawEpisode, error) {
	files, err := d.Files()
	if err != nil {
		return nil, err
	}
	episodes := make([]index.RawEpisode, 0, len(files))
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		ep, err := ReadEpisodeFile(path)
		if err != nil {
			return nil, err
		}
		episodes = append(episodes, ep)
	}
	return episodes, nil
}

// ReadEpisodeFile decodes a single segment file. Content that is not a
// valid episode record is reported as a *index.LoadError naming the file.
func ReadEpisodeFile(path string) (index.RawEpisode, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return index.RawEpisode{}, fmt.Errorf("reading %s: %w", path, err)
	}
	var ep index.RawEpisode
	if err := json.Unmarshal(data, &ep); err != nil {
		return index.RawEpisode{}, &index.LoadError{
			Origin: path,
			Field:  "document",
			Reason: "is not a valid episode record: " + err.Error(),
		}
	}
	ep.Origin = path
	return ep, nil
}
