package audio

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	apperrors "github.com/Adithya-Monish-Kumar-K/Podcast-Segment-Navigator/pkg/errors"
)

func TestResolve(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "3.mp3"), []byte("ID3"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Mkdir(filepath.Join(dir, "4.mp3"), 0o755); err != nil {
		t.Fatal(err)
	}
	r := Resolver{Dir: dir}

	path, err := r.Resolve(3)
	if err != nil {
		t.Fatalf("Resolve(3): %v", err)
	}
	if path != filepath.Join(dir, "3.mp3") {
		t.Errorf("path = %s", path)
	}

	for _, n := range []int{4, 5} {
		if _, err := r.Resolve(n); !errors.Is(err, apperrors.ErrEpisodeNotFound) {
			t.Errorf("Resolve(%d) = %v, want ErrEpisodeNotFound", n, err)
		}
	}
	if _, err := r.Resolve(-1); !errors.Is(err, apperrors.ErrInvalidInput) {
		t.Errorf("Resolve(-1) = %v", err)
	}
}

func TestPathExtension(t *testing.T) {
	if got := (Resolver{Dir: "a", Ext: ".ogg"}).Path(12); got != filepath.Join("a", "12.ogg") {
		t.Errorf("Path = %s", got)
	}
	if got := (Resolver{Dir: "a"}).Path(1); got != filepath.Join("a", "1.mp3") {
		t.Errorf("Path = %s", got)
	}
}
