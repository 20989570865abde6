package timesheet_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tiliavir/ttt-timesheet/internal/apperr"
	"github.com/Tiliavir/ttt-timesheet/internal/model"
	"github.com/Tiliavir/ttt-timesheet/internal/timesheet"
)

// 2026-03-02 is a Monday.
func newFixture() *fakeStore {
	return &fakeStore{
		projects: map[string]string{"p-ecm": "ECM", "p-ops": "ops"},
		logs: []model.DayLog{
			dayLog("2026-03-02", "p-ecm", model.CategoryTracked, iv("09:00", "09:30"), iv("10:00", "10:15")),
			dayLog("2026-03-02", "p-ops", model.CategoryManual, iv("13:00", "14:00")),
			dayLog("2026-03-03", "p-ecm", model.CategoryIdle, iv("11:00", "11:20")),
			dayLog("2026-03-04", "p-gone", model.CategoryTracked, iv("08:00", "08:45")),
		},
		samples: []model.ActivitySample{
			sample("2026-03-02", "09:00", "09:10", 40),
			sample("2026-03-02", "09:10", "09:20", 60),
			sample("2026-03-02", "10:05", "10:10", 10),
			sample("2026-03-02", "13:00", "14:00", 50),
			// Same clock time on another date must not join with 2026-03-02.
			sample("2026-03-04", "09:00", "09:30", 99),
		},
	}
}

func TestDailyView(t *testing.T) {
	agg := timesheet.NewAggregator(newFixture(), newFixture(), newFixture())

	days, err := agg.Daily(context.Background(), owner, "2026-03-02", "2026-03-04", timesheet.Filters{})
	require.NoError(t, err)
	require.Len(t, days, 3)

	mon := days[0]
	assert.Equal(t, "2026-03-02", mon.Date)
	require.Len(t, mon.Logs, 3)

	first := mon.Logs[0]
	assert.Equal(t, "ECM", first.ProjectName)
	assert.Equal(t, "50.00%", first.Activity)
	assert.Equal(t, 50.0, first.ActivityRate)
	assert.Equal(t, "0%", first.Manual)
	assert.Equal(t, "0%", first.Idle)
	assert.Equal(t, "09:00:00 AM", first.Start)
	assert.Equal(t, "09:30:00 AM", first.End)
	assert.Equal(t, "0:30:00", first.Duration)

	manual := mon.Logs[2]
	assert.Equal(t, "ops", manual.ProjectName)
	assert.Equal(t, "100%", manual.Manual)
	assert.Equal(t, "50.00%", manual.Activity)
	assert.Equal(t, "01:00:00 PM", manual.Start)
	assert.Equal(t, "1:00:00", manual.Duration)

	idle := days[1].Logs[0]
	assert.Equal(t, "0:20:00", idle.Idle)
	assert.Equal(t, "0%", idle.Activity)

	unknown := days[2].Logs[0]
	assert.Equal(t, model.UnknownProject, unknown.ProjectName)
	assert.Equal(t, "0%", unknown.Activity)
}

func TestDailyViewZeroActivityStillMatched(t *testing.T) {
	store := &fakeStore{
		logs: []model.DayLog{dayLog("2026-03-02", "p-ecm", model.CategoryTracked, iv("09:00", "09:30"), iv("11:00", "11:30"))},
		samples: []model.ActivitySample{
			sample("2026-03-02", "09:00", "09:10", 0),
		},
	}
	agg := timesheet.NewAggregator(store, store, store)

	days, err := agg.Daily(context.Background(), owner, "2026-03-02", "2026-03-02", timesheet.Filters{})
	require.NoError(t, err)
	require.Len(t, days[0].Logs, 2)
	assert.Equal(t, "0.00%", days[0].Logs[0].Activity)
	assert.Equal(t, "0%", days[0].Logs[1].Activity)
}

func TestDailyViewThresholdDropsDate(t *testing.T) {
	agg := timesheet.NewAggregator(newFixture(), newFixture(), newFixture())

	days, err := agg.Daily(context.Background(), owner, "2026-03-02", "2026-03-04",
		timesheet.Filters{MinActivity: floatPtr(20)})
	require.NoError(t, err)

	// 2026-03-03 (idle, no samples) and 2026-03-04 (no samples for 08:00) fall away;
	// the 10:00-10:15 interval averages 10 and is dropped too.
	require.Len(t, days, 1)
	assert.Equal(t, "2026-03-02", days[0].Date)
	require.Len(t, days[0].Logs, 2)
	assert.Equal(t, "09:00:00 AM", days[0].Logs[0].Start)
	assert.Equal(t, "01:00:00 PM", days[0].Logs[1].Start)
}

func TestDailyViewFilters(t *testing.T) {
	agg := timesheet.NewAggregator(newFixture(), newFixture(), newFixture())

	days, err := agg.Daily(context.Background(), owner, "2026-03-02", "2026-03-04", timesheet.Filters{
		LogFilter: model.LogFilter{Categories: []string{model.CategoryManual}},
	})
	require.NoError(t, err)
	require.Len(t, days, 1)
	assert.Equal(t, "ops", days[0].Logs[0].ProjectName)
}

func TestDailyViewErrors(t *testing.T) {
	agg := timesheet.NewAggregator(newFixture(), newFixture(), newFixture())
	ctx := context.Background()

	_, err := agg.Daily(ctx, owner, "", "2026-03-04", timesheet.Filters{})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = agg.Daily(ctx, owner, "2026-03-05", "2026-03-04", timesheet.Filters{})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = agg.Daily(ctx, "nobody", "2026-03-02", "2026-03-04", timesheet.Filters{})
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	broken := &fakeStore{err: errBoom}
	_, err = timesheet.NewAggregator(broken, broken, broken).Daily(ctx, owner, "2026-03-02", "2026-03-04", timesheet.Filters{})
	assert.ErrorIs(t, err, apperr.ErrStore)
	assert.ErrorIs(t, err, errBoom)
}

func TestWeeklyView(t *testing.T) {
	store := newFixture()
	// A second log for ECM on Monday from another source is summed into the same cell.
	extra := dayLog("2026-03-02", "p-ecm", model.CategoryManual, iv("16:00", "16:05"))
	extra.Source = model.SourceBrowser
	store.logs = append(store.logs, extra)
	agg := timesheet.NewAggregator(store, store, store)

	week, err := agg.Weekly(context.Background(), owner, "2026-03-05", timesheet.Filters{})
	require.NoError(t, err)

	assert.Equal(t, []string{
		"2026-03-02", "2026-03-03", "2026-03-04", "2026-03-05",
		"2026-03-06", "2026-03-07", "2026-03-08",
	}, week.WeekDates)
	require.Len(t, week.Projects, 3)

	ecm := week.Projects[0]
	assert.Equal(t, "ECM", ecm.ProjectName)
	assert.Equal(t, "E", ecm.ProjectInitial)
	assert.Equal(t, [7]string{"0:50:00", "0:20:00", "-", "-", "-", "-", "-"}, ecm.Cells)

	ops := week.Projects[1]
	assert.Equal(t, "O", ops.ProjectInitial)
	assert.Equal(t, "1:00:00", ops.Cells[0])

	assert.Equal(t, model.UnknownProject, week.Projects[2].ProjectName)
	assert.Equal(t, "0:45:00", week.Projects[2].Cells[2])
}

func TestWeeklyViewFilteredCellsRenderZero(t *testing.T) {
	agg := timesheet.NewAggregator(newFixture(), newFixture(), newFixture())

	week, err := agg.Weekly(context.Background(), owner, "2026-03-02", timesheet.Filters{MinActivity: floatPtr(45)})
	require.NoError(t, err)

	ecm := week.Projects[0]
	assert.Equal(t, "0:30:00", ecm.Cells[0])
	assert.Equal(t, "0:00:00", ecm.Cells[1])
	assert.Equal(t, timesheet.EmptyCell, ecm.Cells[3])
}

func TestWeekRowJSON(t *testing.T) {
	row := timesheet.WeekRow{ProjectName: "ECM", ProjectInitial: "E"}
	for i := range row.Cells {
		row.Cells[i] = timesheet.EmptyCell
	}
	row.Cells[4] = "2:00:00"

	raw, err := json.Marshal(row)
	require.NoError(t, err)

	var decoded map[string]string
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, "2:00:00", decoded["friday"])
	assert.Equal(t, "-", decoded["monday"])
	assert.Equal(t, "ECM", decoded["projectName"])
}

func TestCalendarView(t *testing.T) {
	store := newFixture()
	store.logs = append(store.logs, dayLog("2026-03-02", "p-ops", model.CategoryTracked, iv("08:00", "08:30")))
	agg := timesheet.NewAggregator(store, store, store)

	days, err := agg.Calendar(context.Background(), owner, "2026-03-08", timesheet.Filters{})
	require.NoError(t, err)
	require.Len(t, days, 7)

	mon := days[0]
	require.Len(t, mon.Tasks, 4)
	assert.Equal(t, "08:00", mon.Tasks[0].StartTime)
	assert.Equal(t, "ops", mon.Tasks[0].Project)
	assert.Equal(t, "09:00", mon.Tasks[1].StartTime)
	assert.Equal(t, "09:30", mon.Tasks[1].EndTime)
	assert.Equal(t, "10:00", mon.Tasks[2].StartTime)
	assert.Equal(t, "13:00", mon.Tasks[3].StartTime)

	assert.Empty(t, days[6].Tasks)
	assert.Equal(t, "2026-03-08", days[6].Date)
}

func TestCalendarViewThreshold(t *testing.T) {
	agg := timesheet.NewAggregator(newFixture(), newFixture(), newFixture())

	days, err := agg.Calendar(context.Background(), owner, "2026-03-02", timesheet.Filters{MinActivity: floatPtr(45)})
	require.NoError(t, err)
	require.Len(t, days[0].Tasks, 2)
	assert.Empty(t, days[1].Tasks)
}

func TestTotalWorked(t *testing.T) {
	store := &fakeStore{logs: []model.DayLog{
		dayLog("2026-03-02", "p-ecm", model.CategoryTracked, iv("09:00", "09:30"), iv("10:00", "10:15")),
	}}
	agg := timesheet.NewAggregator(store, store, store)

	total, err := agg.TotalWorked(context.Background(), owner, "2026-03-02")
	require.NoError(t, err)
	assert.Equal(t, "0:45:00", total.TotalWorkedTime)

	_, err = agg.TotalWorked(context.Background(), owner, "2026-03-03")
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = agg.TotalWorked(context.Background(), owner, "03/02/2026")
	assert.ErrorIs(t, err, apperr.ErrValidation)
}
