// Package progress computes how far into its episode a segment sits.
package progress

import (
	"net/http"

	apperrors "github.com/Adithya-Monish-Kumar-K/Podcast-Segment-Navigator/pkg/errors"
)

// Fraction returns segmentNumber / maxSegmentNumber. An episode whose
// highest segment number is zero has no defined progress and yields
// ErrDivision rather than a NaN or Inf.
func Fraction(segmentNumber, maxSegmentNumber int) (float64, error) {
	if maxSegmentNumber <= 0 {
		return 0, apperrors.Newf(apperrors.ErrDivision, http.StatusInternalServerError,
			"segment %d: episode max segment number is %d", segmentNumber, maxSegmentNumber)
	}
	if segmentNumber < 0 || segmentNumber > maxSegmentNumber {
		return 0, apperrors.Newf(apperrors.ErrInvalidInput, http.StatusBadRequest,
			"segment %d outside [0, %d]", segmentNumber, maxSegmentNumber)
	}
	return float64(segmentNumber) / float64(maxSegmentNumber), nil
}
