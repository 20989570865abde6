// Package screenshot derives review intervals from screen captures.
package screenshot

import (
	"regexp"
	"time"

	"github.com/Tiliavir/ttt-timesheet/internal/apperr"
)

var captureStamp = regexp.MustCompile(`(\d{4}-\d{2}-\d{2})_(\d{2})-(\d{2})-(\d{2})_`)

// ParseCaptureTime extracts the YYYY-MM-DD_HH-MM-SS_ timestamp embedded in a
// capture reference and interprets it as UTC.
func ParseCaptureTime(reference string) (time.Time, error) {
	m := captureStamp.FindStringSubmatch(reference)
	if m == nil {
		return time.Time{}, &apperr.CaptureParseError{Reference: reference}
	}
	t, err := time.ParseInLocation("2006-01-02 15:04:05", m[1]+" "+m[2]+":"+m[3]+":"+m[4], time.UTC)
	if err != nil {
		// Matched the shape but not a real instant, e.g. month 13.
		return time.Time{}, &apperr.CaptureParseError{Reference: reference}
	}
	return t, nil
}
