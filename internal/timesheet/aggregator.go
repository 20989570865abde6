// Package timesheet builds daily, weekly, calendar and total views from day
// logs joined with activity samples.
package timesheet

import (
	"context"
	"time"

	"github.com/Tiliavir/ttt-timesheet/internal/activity"
	"github.com/Tiliavir/ttt-timesheet/internal/apperr"
	"github.com/Tiliavir/ttt-timesheet/internal/model"
	"github.com/Tiliavir/ttt-timesheet/internal/timecalc"
)

// LogReader reads day logs of one owner within an inclusive date range.
type LogReader interface {
	FindLogs(ctx context.Context, ownerID, from, to string, filter model.LogFilter) ([]model.DayLog, error)
}

// ActivityReader reads activity samples whose start date lies in [from, to].
type ActivityReader interface {
	FindActivity(ctx context.Context, ownerID, from, to string) ([]model.ActivitySample, error)
}

// ProjectLookup resolves a project id to its display name.
type ProjectLookup interface {
	ProjectName(ctx context.Context, projectID string) (string, bool, error)
}

// Filters narrow every view. MinActivity, when set, drops intervals whose
// joined activity rate is below it.
type Filters struct {
	model.LogFilter
	MinActivity *float64 `json:"min_activity,omitempty"`
}

// Aggregator produces timesheet views. It holds no state between calls.
type Aggregator struct {
	logs     LogReader
	activity ActivityReader
	projects ProjectLookup
}

// NewAggregator returns an Aggregator reading from the given stores.
func NewAggregator(logs LogReader, samples ActivityReader, projects ProjectLookup) *Aggregator {
	return &Aggregator{logs: logs, activity: samples, projects: projects}
}

// scan is the per-request snapshot every view is computed from.
type scan struct {
	logs    []model.DayLog
	samples map[string][]model.ActivitySample
	names   map[string]string
}

func (a *Aggregator) load(ctx context.Context, ownerID, from, to string, filter model.LogFilter) (*scan, error) {
	logs, err := a.logs.FindLogs(ctx, ownerID, from, to, filter)
	if err != nil {
		return nil, apperr.Store("find logs", err)
	}
	samples, err := a.activity.FindActivity(ctx, ownerID, from, to)
	if err != nil {
		return nil, apperr.Store("find activity", err)
	}
	s := &scan{logs: logs, samples: activity.ByDate(samples), names: map[string]string{}}
	for _, l := range logs {
		if _, done := s.names[l.ProjectID]; done {
			continue
		}
		name, err := a.resolve(ctx, l.ProjectID)
		if err != nil {
			return nil, err
		}
		s.names[l.ProjectID] = name
	}
	return s, nil
}

func (a *Aggregator) resolve(ctx context.Context, projectID string) (string, error) {
	if projectID == "" || a.projects == nil {
		return model.UnknownProject, nil
	}
	name, ok, err := a.projects.ProjectName(ctx, projectID)
	if err != nil {
		return "", apperr.Store("resolve project", err)
	}
	if !ok || name == "" {
		return model.UnknownProject, nil
	}
	return name, nil
}

// joinedRate is an interval's average activity; matched is false when no
// sample of the log's date overlapped it.
type joinedRate struct {
	value   float64
	matched bool
}

func (s *scan) rate(l model.DayLog, iv model.TimeInterval) joinedRate {
	v, ok := activity.IntervalJoin(iv, s.samples[l.Date])
	return joinedRate{value: v, matched: ok}
}

// visit calls fn for every interval that survives the activity filter.
func (s *scan) visit(min *float64, fn func(l model.DayLog, iv model.TimeInterval, rate joinedRate)) {
	for _, l := range s.logs {
		for _, iv := range l.Intervals {
			rate := s.rate(l, iv)
			if activity.BelowThreshold(rate.value, min) {
				continue
			}
			fn(l, iv, rate)
		}
	}
}

func parseDateArg(name, value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, apperr.Validation("%s is required", name)
	}
	t, err := timecalc.ParseDate(value)
	if err != nil {
		return time.Time{}, apperr.Validation("%s: %v", name, err)
	}
	return t, nil
}

func weekWindow(anchor string) (string, string, []string, error) {
	t, err := parseDateArg("date", anchor)
	if err != nil {
		return "", "", nil, err
	}
	dates := timecalc.WeekDates(t)
	return dates[0], dates[6], dates, nil
}
