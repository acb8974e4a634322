// Package duration converts between the catalog's "M:SS" song lengths and
// whole seconds.
package duration

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrInvalidFormat matches every *FormatError.
var ErrInvalidFormat = errors.New("invalid duration format")

// FormatError reports text that is not a valid minutes:seconds duration.
type FormatError struct {
	Raw string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("invalid duration format: %s", e.Raw)
}

// Is lets errors.Is(err, ErrInvalidFormat) match.
func (e *FormatError) Is(target error) bool {
	return target == ErrInvalidFormat
}

// maxMinutes keeps minutes*60 + 59 within an int.
const maxMinutes = (math.MaxInt - 59) / 60

// Parse returns the number of seconds in text. Minutes must be within
// [0, maxMinutes] and seconds within [0, 60).
func Parse(text string) (int, error) {
	parts := strings.Split(text, ":")
	if len(parts) != 2 {
		return 0, &FormatError{Raw: text}
	}

	minutes, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return 0, &FormatError{Raw: text}
	}
	seconds, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return 0, &FormatError{Raw: text}
	}

	if minutes < 0 || minutes > maxMinutes || seconds < 0 || seconds >= 60 {
		return 0, &FormatError{Raw: text}
	}
	return minutes*60 + seconds, nil
}

// Format renders seconds as M:SS. Negative input is treated as zero.
func Format(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%d:%02d", seconds/60, seconds%60)
}

// Sum adds up durations and formats the total. The first malformed entry
// aborts the sum, as does a total too large for an int. An empty list
// yields "0:00".
func Sum(texts []string) (string, error) {
	total := 0
	for _, text := range texts {
		secs, err := Parse(text)
		if err != nil {
			return "", err
		}
		if secs > math.MaxInt-total {
			return "", &FormatError{Raw: text}
		}
		total += secs
	}
	return Format(total), nil
}

// Valid reports whether text parses.
func Valid(text string) bool {
	_, err := Parse(text)
	return err == nil
}
