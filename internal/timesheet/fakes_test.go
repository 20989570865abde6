package timesheet_test

import (
	"context"
	"errors"

	"github.com/Tiliavir/ttt-timesheet/internal/model"
	"github.com/Tiliavir/ttt-timesheet/internal/timecalc"
)

// fakeStore is an in-memory LogReader/ActivityReader/ProjectLookup used only in tests.
type fakeStore struct {
	logs     []model.DayLog
	samples  []model.ActivitySample
	projects map[string]string
	err      error
}

func (f *fakeStore) FindLogs(_ context.Context, ownerID, from, to string, filter model.LogFilter) ([]model.DayLog, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []model.DayLog
	for _, l := range f.logs {
		if l.OwnerID == ownerID && l.Date >= from && l.Date <= to && filter.Match(l) {
			out = append(out, l)
		}
	}
	return out, nil
}

func (f *fakeStore) FindActivity(_ context.Context, ownerID, from, to string) ([]model.ActivitySample, error) {
	var out []model.ActivitySample
	for _, s := range f.samples {
		if s.OwnerID == ownerID && s.StartDate >= from && s.StartDate <= to {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeStore) ProjectName(_ context.Context, id string) (string, bool, error) {
	name, ok := f.projects[id]
	return name, ok, nil
}

var errBoom = errors.New("disk on fire")

const owner = "u1"

func clk(s string) timecalc.Clock { return timecalc.MustParseClock(s) }

func iv(start, stop string) model.TimeInterval {
	return model.TimeInterval{Start: clk(start), Stop: clk(stop)}
}

func dayLog(date, project, category string, intervals ...model.TimeInterval) model.DayLog {
	return model.DayLog{
		OwnerID:   owner,
		Date:      date,
		ProjectID: project,
		Source:    model.SourceDesktop,
		Category:  category,
		Intervals: intervals,
	}
}

func sample(date, start, end string, rate float64) model.ActivitySample {
	return model.ActivitySample{
		OwnerID:   owner,
		Start:     clk(start),
		End:       clk(end),
		StartDate: date,
		EndDate:   date,
		Rate:      rate,
	}
}

func floatPtr(v float64) *float64 { return &v }
