package cmd

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/Tiliavir/ttt-timesheet/internal/export"
	"github.com/Tiliavir/ttt-timesheet/internal/timecalc"
)

var (
	viewFrom string
	viewTo   string
	viewDate string
)

func today() string { return timecalc.FormatDate(time.Now()) }

func dateOrToday(s string) string {
	if s == "" {
		return today()
	}
	return s
}

var dailyCmd = &cobra.Command{
	Use:   "daily",
	Short: "List intervals per date with their activity",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		from := dateOrToday(viewFrom)
		to := viewTo
		if to == "" {
			to = from
		}
		days, err := app.Service.DailyView(cmd.Context(), app.Owner, from, to, filtersFromFlags(cmd))
		if err != nil {
			return err
		}
		return render(cmd, export.DailyTable(days), days)
	},
}

var weeklyCmd = &cobra.Command{
	Use:   "weekly",
	Short: "Per-project totals for each day of the ISO week",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		week, err := app.Service.WeeklyView(cmd.Context(), app.Owner, dateOrToday(viewDate), filtersFromFlags(cmd))
		if err != nil {
			return err
		}
		return render(cmd, export.WeeklyTable(week), week)
	},
}

var calendarCmd = &cobra.Command{
	Use:   "calendar",
	Short: "Intervals of the ISO week laid out per day",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		days, err := app.Service.CalendarView(cmd.Context(), app.Owner, dateOrToday(viewDate), filtersFromFlags(cmd))
		if err != nil {
			return err
		}
		return render(cmd, export.CalendarTable(days), days)
	},
}

var screenshotsCmd = &cobra.Command{
	Use:   "screenshots",
	Short: "Group a day's screenshots into hourly review blocks",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		date := dateOrToday(viewDate)
		blocks, err := app.Service.BucketizeScreenshots(cmd.Context(), app.Owner, date)
		if err != nil {
			return err
		}
		return render(cmd, export.ScreenshotTable(date, blocks), blocks)
	},
}

func init() {
	dailyCmd.Flags().StringVar(&viewFrom, "from", "", "First date (YYYY-MM-DD, default today)")
	dailyCmd.Flags().StringVar(&viewTo, "to", "", "Last date (YYYY-MM-DD, default --from)")
	addFilterFlags(dailyCmd)
	addOutputFlags(dailyCmd, "md")

	for _, c := range []*cobra.Command{weeklyCmd, calendarCmd} {
		c.Flags().StringVar(&viewDate, "date", "", "Any date of the week (YYYY-MM-DD, default today)")
		addFilterFlags(c)
		addOutputFlags(c, "md")
	}

	screenshotsCmd.Flags().StringVar(&viewDate, "date", "", "Date (YYYY-MM-DD, default today)")
	addOutputFlags(screenshotsCmd, "md")
}
