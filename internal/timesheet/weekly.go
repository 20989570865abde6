package timesheet

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/Tiliavir/ttt-timesheet/internal/model"
	"github.com/Tiliavir/ttt-timesheet/internal/timecalc"
)

// EmptyCell marks a weekday without any log for the project.
const EmptyCell = "-"

// Weekdays are the row keys of the weekly view, Monday first.
var Weekdays = [7]string{"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday"}

// WeekRow is the per-project line of the weekly view. Cells holds H:MM:SS
// totals indexed Monday..Sunday, or EmptyCell.
type WeekRow struct {
	ProjectName    string
	ProjectInitial string
	Cells          [7]string
}

// MarshalJSON renders the row with one field per weekday.
func (r WeekRow) MarshalJSON() ([]byte, error) {
	m := map[string]string{
		"projectName":    r.ProjectName,
		"projectInitial": r.ProjectInitial,
	}
	for i, day := range Weekdays {
		m[day] = r.Cells[i]
	}
	return json.Marshal(m)
}

// Week is the weekly view.
type Week struct {
	WeekDates []string  `json:"weekDates"`
	Projects  []WeekRow `json:"projects"`
}

type weekAccumulator struct {
	name  string
	cells [7]*timecalc.Duration
}

// Weekly sums interval durations per project and weekday across the ISO
// week containing anchor. Intervals failing MinActivity contribute nothing,
// but a weekday with a log still renders a total ("0:00:00"). Rows appear in
// the order projects are first seen.
func (a *Aggregator) Weekly(ctx context.Context, ownerID, anchor string, filters Filters) (Week, error) {
	from, to, dates, err := weekWindow(anchor)
	if err != nil {
		return Week{}, err
	}
	s, err := a.load(ctx, ownerID, from, to, filters.LogFilter)
	if err != nil {
		return Week{}, err
	}

	var order []string
	rows := map[string]*weekAccumulator{}
	cell := func(l model.DayLog) **timecalc.Duration {
		name := s.names[l.ProjectID]
		acc, ok := rows[name]
		if !ok {
			acc = &weekAccumulator{name: name}
			rows[name] = acc
			order = append(order, name)
		}
		idx := dayIndex(dates, l.Date)
		return &acc.cells[idx]
	}

	for _, l := range s.logs {
		if dayIndex(dates, l.Date) < 0 {
			continue
		}
		c := cell(l)
		if *c == nil {
			zero := timecalc.Duration(0)
			*c = &zero
		}
	}
	s.visit(filters.MinActivity, func(l model.DayLog, iv model.TimeInterval, _ joinedRate) {
		if dayIndex(dates, l.Date) < 0 {
			return
		}
		c := cell(l)
		total := (*c).Add(iv.Duration())
		*c = &total
	})

	week := Week{WeekDates: dates, Projects: make([]WeekRow, 0, len(order))}
	for _, name := range order {
		acc := rows[name]
		row := WeekRow{ProjectName: name, ProjectInitial: initial(name)}
		for i, d := range acc.cells {
			row.Cells[i] = EmptyCell
			if d != nil {
				row.Cells[i] = d.String()
			}
		}
		week.Projects = append(week.Projects, row)
	}
	return week, nil
}

func dayIndex(dates []string, date string) int {
	for i, d := range dates {
		if d == date {
			return i
		}
	}
	return -1
}

func initial(name string) string {
	for _, r := range name {
		return strings.ToUpper(string(r))
	}
	return ""
}
