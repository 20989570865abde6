package export

import (
	"strconv"
	"strings"

	"github.com/Tiliavir/ttt-timesheet/internal/screenshot"
	"github.com/Tiliavir/ttt-timesheet/internal/timecalc"
	"github.com/Tiliavir/ttt-timesheet/internal/timesheet"
)

// WeeklyTable has one row per project and one column per weekday, headed by
// the weekday and its date.
func WeeklyTable(w timesheet.Week) Table {
	t := Table{Header: []string{"Project"}}
	if len(w.WeekDates) > 0 {
		t.Title = "Week of " + w.WeekDates[0]
		if monday, err := timecalc.ParseDate(w.WeekDates[0]); err == nil {
			t.Title = "Week " + timecalc.ISOWeekLabel(monday)
		}
	}
	for i, day := range timesheet.Weekdays {
		h := strings.ToUpper(day[:1]) + day[1:3]
		if i < len(w.WeekDates) {
			h += " " + w.WeekDates[i]
		}
		t.Header = append(t.Header, h)
	}
	for _, p := range w.Projects {
		row := append([]string{p.ProjectName}, p.Cells[:]...)
		t.Rows = append(t.Rows, row)
	}
	return t
}

// DailyTable flattens the daily view to one row per interval.
func DailyTable(days []timesheet.DailyDate) Table {
	t := Table{
		Title:  "Daily timesheet",
		Header: []string{"Date", "Project", "Start", "End", "Duration", "Activity", "Idle", "Manual", "Source", "Category"},
	}
	for _, d := range days {
		for _, e := range d.Logs {
			t.Rows = append(t.Rows, []string{
				d.Date, e.ProjectName, e.Start, e.End, e.Duration,
				e.Activity, e.Idle, e.Manual, e.Source, e.Category,
			})
		}
	}
	return t
}

// CalendarTable lists every task of the week in calendar order.
func CalendarTable(days []timesheet.CalendarDay) Table {
	t := Table{Title: "Calendar", Header: []string{"Date", "Start", "End", "Project"}}
	for _, d := range days {
		for _, task := range d.Tasks {
			t.Rows = append(t.Rows, []string{d.Date, task.StartTime, task.EndTime, task.Project})
		}
	}
	return t
}

// TotalTable is the single-row total worked time.
func TotalTable(tw timesheet.TotalWorked) Table {
	return Table{
		Title:  "Total worked",
		Header: []string{"Date", "Total"},
		Rows:   [][]string{{tw.Date, tw.TotalWorkedTime}},
	}
}

// ScreenshotTable has one row per review interval, repeating its hour block.
func ScreenshotTable(date string, blocks []screenshot.HourBlock) Table {
	t := Table{Title: "Screenshots " + date, Header: []string{"Hour", "Hour total", "Interval", "Activity", "Images"}}
	for _, b := range blocks {
		for _, iv := range b.Intervals {
			t.Rows = append(t.Rows, []string{
				b.TimeRange, b.TotalWorked, iv.Time,
				strconv.FormatFloat(iv.Activity, 'f', -1, 64),
				strings.Join(iv.Images, " "),
			})
		}
	}
	return t
}
