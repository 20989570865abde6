package interval_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tiliavir/ttt-timesheet/internal/apperr"
	"github.com/Tiliavir/ttt-timesheet/internal/interval"
	"github.com/Tiliavir/ttt-timesheet/internal/model"
	"github.com/Tiliavir/ttt-timesheet/internal/timecalc"
)

func iv(start, stop string) model.TimeInterval {
	return model.TimeInterval{
		Start: timecalc.MustParseClock(start),
		Stop:  timecalc.MustParseClock(stop),
	}
}

func spans(set []model.TimeInterval) []string {
	out := make([]string, len(set))
	for i, s := range set {
		out[i] = s.Start.HHMM() + "-" + s.Stop.HHMM()
	}
	return out
}

func TestReduceBatchKeepsLatestStop(t *testing.T) {
	got := interval.ReduceBatch([]model.TimeInterval{
		iv("10:00", "10:20"),
		iv("11:00", "11:10"),
		iv("10:00", "10:35"),
		iv("10:00", "10:05"),
	})
	assert.Equal(t, []string{"10:00-10:35", "11:00-11:10"}, spans(got))
}

func TestMerge(t *testing.T) {
	withReason := iv("13:00", "13:30")
	withReason.Reason = "client call"

	tests := []struct {
		name     string
		existing []model.TimeInterval
		incoming []model.TimeInterval
		want     []string
	}{
		{
			name:     "duplicate start in batch",
			incoming: []model.TimeInterval{iv("10:00", "10:20"), iv("10:00", "10:35")},
			want:     []string{"10:00-10:35"},
		},
		{
			name:     "overlap fold extends stop",
			existing: []model.TimeInterval{iv("09:00", "09:30")},
			incoming: []model.TimeInterval{iv("09:15", "09:45")},
			want:     []string{"09:00-09:45"},
		},
		{
			name:     "same start extends existing",
			existing: []model.TimeInterval{iv("09:00", "09:30")},
			incoming: []model.TimeInterval{iv("09:00", "09:50")},
			want:     []string{"09:00-09:50"},
		},
		{
			name:     "same start never shortens",
			existing: []model.TimeInterval{iv("09:00", "09:30")},
			incoming: []model.TimeInterval{iv("09:00", "09:10")},
			want:     []string{"09:00-09:30"},
		},
		{
			name:     "boundary contact folds",
			existing: []model.TimeInterval{iv("09:00", "09:30")},
			incoming: []model.TimeInterval{iv("09:30", "10:00")},
			want:     []string{"09:00-10:00"},
		},
		{
			name:     "stop inside existing keeps existing start",
			existing: []model.TimeInterval{iv("09:00", "09:30")},
			incoming: []model.TimeInterval{iv("08:50", "09:10")},
			want:     []string{"09:00-09:30"},
		},
		{
			name:     "disjoint appended in processing order",
			existing: []model.TimeInterval{iv("12:00", "12:30")},
			incoming: []model.TimeInterval{iv("15:00", "15:10"), iv("08:00", "08:05")},
			want:     []string{"12:00-12:30", "15:00-15:10", "08:00-08:05"},
		},
		{
			name:     "reason preserved on append",
			incoming: []model.TimeInterval{withReason},
			want:     []string{"13:00-13:30"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := interval.Merge(tt.existing, tt.incoming)
			assert.Equal(t, tt.want, spans(got))
		})
	}
}

func TestMergeReasonHandling(t *testing.T) {
	existing := iv("09:00", "09:30")
	existing.Reason = "standup"
	incoming := iv("09:00", "09:45")
	incoming.Reason = "ignored"
	appended := iv("14:00", "14:30")
	appended.Reason = "review"

	got := interval.Merge([]model.TimeInterval{existing}, []model.TimeInterval{incoming, appended})
	require.Len(t, got, 2)
	assert.Equal(t, "standup", got[0].Reason)
	assert.Equal(t, "review", got[1].Reason)
}

func TestMergeDoesNotMutateExisting(t *testing.T) {
	existing := []model.TimeInterval{iv("09:00", "09:30")}
	_ = interval.Merge(existing, []model.TimeInterval{iv("09:15", "10:00")})
	assert.Equal(t, []string{"09:00-09:30"}, spans(existing))
}

func TestMergeIdempotent(t *testing.T) {
	cases := []struct {
		existing []model.TimeInterval
		batch    []model.TimeInterval
	}{
		{
			existing: []model.TimeInterval{iv("09:00", "09:30")},
			batch:    []model.TimeInterval{iv("09:15", "09:45"), iv("10:00", "10:20"), iv("10:00", "10:35")},
		},
		{
			// A later batch entry grows an earlier interval past the start
			// of an entry that was folded elsewhere.
			existing: []model.TimeInterval{iv("09:00", "09:10"), iv("09:20", "09:30")},
			batch:    []model.TimeInterval{iv("09:25", "09:50"), iv("09:05", "09:26")},
		},
		{
			existing: nil,
			batch:    []model.TimeInterval{iv("08:00", "08:30"), iv("08:10", "09:00"), iv("08:45", "08:50")},
		},
	}
	for _, c := range cases {
		once := interval.Merge(c.existing, c.batch)
		twice := interval.Merge(once, c.batch)
		assert.Equal(t, spans(once), spans(twice))
	}
}

func TestConflicts(t *testing.T) {
	existing := iv("09:00", "09:30")
	tests := []struct {
		candidate model.TimeInterval
		want      bool
	}{
		{iv("09:30", "10:00"), false},
		{iv("08:30", "09:00"), false},
		{iv("09:29", "10:00"), true},
		{iv("08:30", "09:01"), true},
		{iv("09:10", "09:20"), true},
		{iv("08:00", "10:00"), true},
		{iv("09:00", "09:30"), true},
		{iv("10:00", "11:00"), false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, interval.Conflicts(existing, tt.candidate), "candidate %s", tt.candidate)
	}
}

func TestCheckOverlap(t *testing.T) {
	existing := []model.TimeInterval{iv("09:00", "09:30"), iv("11:00", "12:00")}

	require.NoError(t, interval.CheckOverlap(existing, iv("09:30", "10:00"), -1))

	err := interval.CheckOverlap(existing, iv("09:29", "10:00"), -1)
	require.ErrorIs(t, err, apperr.ErrOverlap)
	var conflict *apperr.OverlapConflictError
	require.True(t, errors.As(err, &conflict))
	assert.Equal(t, "09:00:00-09:30:00", conflict.Conflicting.String())
}

func TestCheckOverlapExcluding(t *testing.T) {
	existing := []model.TimeInterval{iv("09:00", "09:30"), iv("11:00", "12:00")}
	// Moving the first interval later only has to clear the second one.
	require.NoError(t, interval.CheckOverlap(existing, iv("09:10", "10:30"), 0))
	require.Error(t, interval.CheckOverlap(existing, iv("09:10", "11:30"), 0))
}

func TestIndexOfAndRemove(t *testing.T) {
	set := []model.TimeInterval{iv("09:00", "09:30"), iv("10:00", "10:15")}
	idx := interval.IndexOf(set, iv("10:00", "10:15"))
	require.Equal(t, 1, idx)
	assert.Equal(t, -1, interval.IndexOf(set, iv("10:00", "10:16")))

	out := interval.Remove(set, 0)
	assert.Equal(t, []string{"10:00-10:15"}, spans(out))
	assert.Len(t, set, 2)
}
