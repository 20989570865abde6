package timesheet

import (
	"context"
	"sort"
	"strconv"

	"github.com/Tiliavir/ttt-timesheet/internal/apperr"
	"github.com/Tiliavir/ttt-timesheet/internal/model"
)

// DailyEntry is one interval row of the daily view.
type DailyEntry struct {
	ProjectName  string  `json:"projectName"`
	Activity     string  `json:"activity"`
	ActivityRate float64 `json:"activityRate"`
	Idle         string  `json:"idle"`
	Manual       string  `json:"manual"`
	Start        string  `json:"start"`
	End          string  `json:"end"`
	Duration     string  `json:"duration"`
	Source       string  `json:"source"`
	Category     string  `json:"category"`
}

// DailyDate groups the entries of one date.
type DailyDate struct {
	Date string       `json:"date"`
	Logs []DailyEntry `json:"logs"`
}

// Daily lists every interval in [from, to] that passes filters, grouped by
// date in ascending order. Dates left without entries are omitted. It fails
// with apperr.ErrNotFound when the owner has no matching logs at all.
func (a *Aggregator) Daily(ctx context.Context, ownerID, from, to string, filters Filters) ([]DailyDate, error) {
	fromT, err := parseDateArg("start date", from)
	if err != nil {
		return nil, err
	}
	toT, err := parseDateArg("end date", to)
	if err != nil {
		return nil, err
	}
	if toT.Before(fromT) {
		return nil, apperr.Validation("end date %s is before start date %s", to, from)
	}

	s, err := a.load(ctx, ownerID, from, to, filters.LogFilter)
	if err != nil {
		return nil, err
	}
	if len(s.logs) == 0 {
		return nil, apperr.NotFound("no timer logs for %s between %s and %s", ownerID, from, to)
	}

	byDate := map[string][]DailyEntry{}
	s.visit(filters.MinActivity, func(l model.DayLog, iv model.TimeInterval, rate joinedRate) {
		byDate[l.Date] = append(byDate[l.Date], dailyEntry(s.names[l.ProjectID], l, iv, rate))
	})

	dates := make([]string, 0, len(byDate))
	for d := range byDate {
		dates = append(dates, d)
	}
	sort.Strings(dates)

	out := make([]DailyDate, 0, len(dates))
	for _, d := range dates {
		out = append(out, DailyDate{Date: d, Logs: byDate[d]})
	}
	return out, nil
}

func dailyEntry(projectName string, l model.DayLog, iv model.TimeInterval, rate joinedRate) DailyEntry {
	duration := iv.Duration().String()
	e := DailyEntry{
		ProjectName:  projectName,
		Activity:     "0%",
		ActivityRate: rate.value,
		Idle:         "0%",
		Manual:       "0%",
		Start:        iv.Start.Format12h(),
		End:          iv.Stop.Format12h(),
		Duration:     duration,
		Source:       l.Source,
		Category:     l.Category,
	}
	switch l.Category {
	case model.CategoryIdle:
		e.Idle = duration
	case model.CategoryManual:
		e.Activity = FormatRate(rate.value, rate.matched)
		e.Manual = "100%"
	default:
		e.Activity = FormatRate(rate.value, rate.matched)
	}
	return e
}

// FormatRate renders an activity rate as a percentage with two decimals,
// or "0%" when no sample matched.
func FormatRate(rate float64, matched bool) string {
	if !matched {
		return "0%"
	}
	return strconv.FormatFloat(rate, 'f', 2, 64) + "%"
}
