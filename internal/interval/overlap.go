package interval

import (
	"github.com/Tiliavir/ttt-timesheet/internal/apperr"
	"github.com/Tiliavir/ttt-timesheet/internal/model"
)

// Conflicts reports whether candidate c conflicts with existing interval e:
//
//	(c.start >= e.start && c.start < e.stop) ||
//	(c.stop > e.start && c.stop <= e.stop) ||
//	(c.start <= e.start && c.stop >= e.stop)
//
// An interval ending exactly where another starts does not conflict.
func Conflicts(e, c model.TimeInterval) bool {
	return (c.Start >= e.Start && c.Start < e.Stop) ||
		(c.Stop > e.Start && c.Stop <= e.Stop) ||
		(c.Start <= e.Start && c.Stop >= e.Stop)
}

// CheckOverlap returns an *apperr.OverlapConflictError naming the first
// interval of existing that conflicts with candidate. The interval at index
// excluding is skipped; pass -1 to compare against all of them.
func CheckOverlap(existing []model.TimeInterval, candidate model.TimeInterval, excluding int) error {
	for i, e := range existing {
		if i == excluding {
			continue
		}
		if Conflicts(e, candidate) {
			return &apperr.OverlapConflictError{Candidate: candidate, Conflicting: e}
		}
	}
	return nil
}

// IndexOf returns the position of the interval with exactly the given start
// and stop, or -1.
func IndexOf(set []model.TimeInterval, target model.TimeInterval) int {
	for i, iv := range set {
		if iv.Start == target.Start && iv.Stop == target.Stop {
			return i
		}
	}
	return -1
}

// Remove returns set without the interval at idx. set is not modified.
func Remove(set []model.TimeInterval, idx int) []model.TimeInterval {
	out := make([]model.TimeInterval, 0, len(set))
	out = append(out, set[:idx]...)
	return append(out, set[idx+1:]...)
}
