package timesheet

import (
	"context"
	"sort"

	"github.com/Tiliavir/ttt-timesheet/internal/apperr"
	"github.com/Tiliavir/ttt-timesheet/internal/model"
	"github.com/Tiliavir/ttt-timesheet/internal/timecalc"
)

// CalendarTask is one interval placed on the calendar.
type CalendarTask struct {
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
	Project   string `json:"project"`

	start timecalc.Clock
}

// CalendarDay lists the tasks of one weekday.
type CalendarDay struct {
	Date  string         `json:"date"`
	Tasks []CalendarTask `json:"tasks"`
}

// Calendar returns the seven days of the ISO week containing anchor, each
// with the intervals that pass filters in chronological order.
func (a *Aggregator) Calendar(ctx context.Context, ownerID, anchor string, filters Filters) ([]CalendarDay, error) {
	from, to, dates, err := weekWindow(anchor)
	if err != nil {
		return nil, err
	}
	s, err := a.load(ctx, ownerID, from, to, filters.LogFilter)
	if err != nil {
		return nil, err
	}

	days := make([]CalendarDay, len(dates))
	for i, d := range dates {
		days[i] = CalendarDay{Date: d, Tasks: []CalendarTask{}}
	}
	s.visit(filters.MinActivity, func(l model.DayLog, iv model.TimeInterval, _ joinedRate) {
		idx := dayIndex(dates, l.Date)
		if idx < 0 {
			return
		}
		days[idx].Tasks = append(days[idx].Tasks, CalendarTask{
			StartTime: iv.Start.HHMM(),
			EndTime:   iv.Stop.HHMM(),
			Project:   s.names[l.ProjectID],
			start:     iv.Start,
		})
	})
	for i := range days {
		tasks := days[i].Tasks
		sort.SliceStable(tasks, func(x, y int) bool { return tasks[x].start < tasks[y].start })
	}
	return days, nil
}

// TotalWorked is the summed duration of a date.
type TotalWorked struct {
	Date            string            `json:"date"`
	TotalWorkedTime string            `json:"totalWorkedTime"`
	Duration        timecalc.Duration `json:"-"`
}

// TotalWorked sums every interval of every log the owner has on date. It
// fails with apperr.ErrNotFound when there are no logs for that date.
func (a *Aggregator) TotalWorked(ctx context.Context, ownerID, date string) (TotalWorked, error) {
	if _, err := parseDateArg("date", date); err != nil {
		return TotalWorked{}, err
	}
	logs, err := a.logs.FindLogs(ctx, ownerID, date, date, model.LogFilter{})
	if err != nil {
		return TotalWorked{}, apperr.Store("find logs", err)
	}
	if len(logs) == 0 {
		return TotalWorked{}, apperr.NotFound("no logs for %s on %s", ownerID, date)
	}
	perLog := make([]timecalc.Duration, len(logs))
	for i, l := range logs {
		perLog[i] = l.TotalDuration()
	}
	total := timecalc.Sum(perLog...)
	return TotalWorked{Date: date, TotalWorkedTime: total.String(), Duration: total}, nil
}
