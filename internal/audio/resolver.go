// Package audio locates the audio file of an episode on disk.
package audio

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	apperrors "github.com/Adithya-Monish-Kumar-K/Podcast-Segment-Navigator/pkg/errors"
)

const DefaultExt = ".mp3"

// Resolver maps episode numbers to files named <Dir>/<number><Ext>.
type Resolver struct {
	Dir string
	Ext string
}

func (r Resolver) Path(episodeNumber int) string {
	ext := r.Ext
	if ext == "" {
		ext = DefaultExt
	}
	return filepath.Join(r.Dir, strconv.Itoa(episodeNumber)+ext)
}

// Resolve returns the path of the episode's audio, or ErrEpisodeNotFound if
// no regular file exists there.
func (r Resolver) Resolve(episodeNumber int) (string, error) {
	if episodeNumber < 0 {
		return "", apperrors.Newf(apperrors.ErrInvalidInput, http.StatusBadRequest,
			"episode number %d", episodeNumber)
	}
	path := r.Path(episodeNumber)
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", apperrors.Newf(apperrors.ErrEpisodeNotFound, http.StatusNotFound,
				"no audio for episode %d", episodeNumber)
		}
		return "", fmt.Errorf("checking audio %s: %w", path, err)
	}
	if info.IsDir() {
		return "", apperrors.Newf(apperrors.ErrEpisodeNotFound, http.StatusNotFound,
			"no audio for episode %d", episodeNumber)
	}
	return path, nil
}
