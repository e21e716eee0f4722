package errors

import (
	"fmt"
	"net/http"
	"testing"
)

func TestHTTPStatusCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not found", ErrEpisodeNotFound, http.StatusNotFound},
		{"wrapped not found", fmt.Errorf("browse: %w", ErrEpisodeNotFound), http.StatusNotFound},
		{"load", fmt.Errorf("build: %w", ErrLoad), http.StatusUnprocessableEntity},
		{"not ready", ErrIndexNotReady, http.StatusServiceUnavailable},
		{"division", ErrDivision, http.StatusInternalServerError},
		{"invalid", ErrInvalidInput, http.StatusBadRequest},
		{"rate limited", ErrRateLimited, http.StatusTooManyRequests},
		{"app error wins", New(ErrEpisodeNotFound, http.StatusGone, "gone"), http.StatusGone},
		{"unknown", fmt.Errorf("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HTTPStatusCode(tt.err); got != tt.want {
				t.Errorf("HTTPStatusCode(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}

func TestAppErrorUnwrap(t *testing.T) {
	err := Newf(ErrInvalidInput, http.StatusBadRequest, "limit %d", -1)
	if err.Error() != "invalid input: limit -1" {
		t.Errorf("unexpected message %q", err.Error())
	}
	if err.Unwrap() != ErrInvalidInput {
		t.Errorf("Unwrap did not return sentinel")
	}
}
