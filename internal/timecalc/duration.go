package timecalc

import "fmt"

// Duration is a span of whole seconds rendered as H:MM:SS.
type Duration int64

// Common spans.
const (
	Second Duration = 1
	Minute          = 60 * Second
	Hour            = 60 * Minute
)

// Add returns d + o.
func (d Duration) Add(o Duration) Duration {
	return d + o
}

// Seconds returns d as an integer count of seconds.
func (d Duration) Seconds() int64 {
	return int64(d)
}

// String renders d as H:MM:SS: hours unpadded, minutes and seconds
// zero-padded, never trimmed ("0:05:00", "12:00:09").
func (d Duration) String() string {
	sign := ""
	n := int64(d)
	if n < 0 {
		sign = "-"
		n = -n
	}
	return fmt.Sprintf("%s%d:%02d:%02d", sign, n/3600, (n%3600)/60, n%60)
}

// Sum adds up a list of durations.
func Sum(ds ...Duration) Duration {
	var total Duration
	for _, d := range ds {
		total = total.Add(d)
	}
	return total
}
