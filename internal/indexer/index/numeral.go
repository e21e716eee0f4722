package index

import (
	"errors"
	"strconv"
)

var (
	errNoNumeral = errors.New("contains no decimal numeral")
	errOverflow  = errors.New("numeral out of range")
)

// ExtractNumber returns the integer value of the first run of ASCII digits
// in id, e.g. "ep12_part3" -> 12.
func ExtractNumber(id string) (int, error) {
	start := -1
	for i := 0; i < len(id); i++ {
		if isDigit(id[i]) {
			start = i
			break
		}
	}
	if start < 0 {
		return 0, errNoNumeral
	}
	end := start
	for end < len(id) && isDigit(id[end]) {
		end++
	}
	n, err := strconv.Atoi(id[start:end])
	if err != nil {
		return 0, errOverflow
	}
	return n, nil
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
