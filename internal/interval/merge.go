// Package interval reconciles time intervals within one day log.
//
// Two operations live here and they deliberately use different overlap
// predicates: Merge folds a reported batch into the persisted set with a
// boundary-inclusive test, while CheckOverlap rejects single-interval edits
// with the asymmetric Conflicts test that lets back-to-back intervals touch.
package interval

import (
	"github.com/Tiliavir/ttt-timesheet/internal/model"
	"github.com/Tiliavir/ttt-timesheet/internal/timecalc"
)

// ReduceBatch collapses intervals sharing a start time, keeping the one with
// the latest stop. The result keeps the order in which each start was first
// seen.
func ReduceBatch(batch []model.TimeInterval) []model.TimeInterval {
	byStart := make(map[timecalc.Clock]int, len(batch))
	reduced := make([]model.TimeInterval, 0, len(batch))
	for _, iv := range batch {
		idx, seen := byStart[iv.Start]
		if !seen {
			byStart[iv.Start] = len(reduced)
			reduced = append(reduced, iv)
			continue
		}
		if iv.Stop > reduced[idx].Stop {
			reduced[idx].Stop = iv.Stop
		}
	}
	return reduced
}

// Merge folds incoming into existing and returns the new interval set.
// existing is not modified.
//
// For each reduced incoming interval N:
//   - an existing interval with the same start has its stop extended to the
//     later of the two; N's reason is dropped;
//   - otherwise an existing interval E with N.start or N.stop inside
//     [E.start, E.stop] has its stop extended (see findFoldTarget);
//   - otherwise N is appended.
//
// Merging the same batch twice yields the same set as merging it once.
func Merge(existing, incoming []model.TimeInterval) []model.TimeInterval {
	merged := make([]model.TimeInterval, len(existing), len(existing)+len(incoming))
	copy(merged, existing)

	byStart := make(map[timecalc.Clock]int, len(merged))
	for i, iv := range merged {
		if _, dup := byStart[iv.Start]; !dup {
			byStart[iv.Start] = i
		}
	}

	for _, n := range ReduceBatch(incoming) {
		if idx, ok := byStart[n.Start]; ok {
			extendStop(&merged[idx], n.Stop)
			continue
		}
		if idx := findFoldTarget(merged, n); idx >= 0 {
			extendStop(&merged[idx], n.Stop)
			continue
		}
		byStart[n.Start] = len(merged)
		merged = append(merged, n)
	}
	return merged
}

func extendStop(iv *model.TimeInterval, stop timecalc.Clock) {
	if stop > iv.Stop {
		iv.Stop = stop
	}
}

// findFoldTarget picks the interval n folds into. An interval already
// covering n.Stop wins over one that only covers n.Start; this keeps a
// re-merge of the same batch from extending a different interval than the
// first merge did.
func findFoldTarget(set []model.TimeInterval, n model.TimeInterval) int {
	first := -1
	for i, e := range set {
		if !foldOverlaps(e, n) {
			continue
		}
		if within(n.Stop, e) {
			return i
		}
		if first < 0 {
			first = i
		}
	}
	return first
}

// foldOverlaps is the closed-interval test used when folding a batch: n
// touches e when either of its endpoints lies within [e.Start, e.Stop].
func foldOverlaps(e, n model.TimeInterval) bool {
	return within(n.Start, e) || within(n.Stop, e)
}

func within(c timecalc.Clock, e model.TimeInterval) bool {
	return c >= e.Start && c <= e.Stop
}
