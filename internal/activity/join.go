// Package activity joins time intervals with activity-rate samples.
package activity

import (
	"math"

	"github.com/Tiliavir/ttt-timesheet/internal/model"
	"github.com/Tiliavir/ttt-timesheet/internal/timecalc"
)

// Overlaps is the inclusive join predicate: a sample spanning
// [sampleStart, sampleEnd] matches [start, stop] when
// sampleStart <= stop && sampleEnd >= start. It is symmetric in its two
// spans.
func Overlaps(start, stop, sampleStart, sampleEnd timecalc.Clock) bool {
	return sampleStart <= stop && sampleEnd >= start
}

// Matching returns the samples overlapping [start, stop].
func Matching(start, stop timecalc.Clock, samples []model.ActivitySample) []model.ActivitySample {
	var out []model.ActivitySample
	for _, s := range samples {
		if Overlaps(start, stop, s.Start, s.End) {
			out = append(out, s)
		}
	}
	return out
}

// Join averages the rates of the samples overlapping [start, stop], rounded
// to two decimals. ok is false when no sample matched.
func Join(start, stop timecalc.Clock, samples []model.ActivitySample) (rate float64, ok bool) {
	matched := Matching(start, stop, samples)
	if len(matched) == 0 {
		return 0, false
	}
	var sum float64
	for _, s := range matched {
		sum += s.Rate
	}
	return Round2(sum / float64(len(matched))), true
}

// AverageRate is Join without the match flag; 0 when nothing matches.
func AverageRate(start, stop timecalc.Clock, samples []model.ActivitySample) float64 {
	rate, _ := Join(start, stop, samples)
	return rate
}

// IntervalJoin is Join for a TimeInterval.
func IntervalJoin(iv model.TimeInterval, samples []model.ActivitySample) (float64, bool) {
	return Join(iv.Start, iv.Stop, samples)
}

// Round2 rounds half away from zero to two decimals.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// ByDate groups samples by their start date, which scopes the join to the
// day of the interval.
func ByDate(samples []model.ActivitySample) map[string][]model.ActivitySample {
	out := make(map[string][]model.ActivitySample)
	for _, s := range samples {
		out[s.StartDate] = append(out[s.StartDate], s)
	}
	return out
}

// BelowThreshold reports whether rate fails an optional minimum.
func BelowThreshold(rate float64, min *float64) bool {
	return min != nil && rate < *min
}
