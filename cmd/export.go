package cmd

import (
	"github.com/spf13/cobra"

	"github.com/Tiliavir/ttt-timesheet/internal/apperr"
	"github.com/Tiliavir/ttt-timesheet/internal/export"
	"github.com/Tiliavir/ttt-timesheet/internal/timecalc"
)

var exportView string

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export a week of timesheet data",
	Long: `Export the ISO week containing --date (default this week). --view picks the
weekly totals, the daily interval list or the calendar layout.`,
	Args: cobra.NoArgs,
	RunE: runExport,
}

func init() {
	exportCmd.Flags().StringVar(&exportView, "view", "weekly", "View to export: weekly, daily, calendar")
	exportCmd.Flags().StringVar(&viewDate, "date", "", "Any date of the week (YYYY-MM-DD, default today)")
	addFilterFlags(exportCmd)
	addOutputFlags(exportCmd, "csv")
}

func runExport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	anchor := dateOrToday(viewDate)
	filters := filtersFromFlags(cmd)

	switch exportView {
	case "weekly":
		week, err := app.Service.WeeklyView(ctx, app.Owner, anchor, filters)
		if err != nil {
			return err
		}
		return render(cmd, export.WeeklyTable(week), week)
	case "calendar":
		days, err := app.Service.CalendarView(ctx, app.Owner, anchor, filters)
		if err != nil {
			return err
		}
		return render(cmd, export.CalendarTable(days), days)
	case "daily":
		d, err := timecalc.ParseDate(anchor)
		if err != nil {
			return apperr.Validation("date: %v", err)
		}
		from, to := timecalc.WeekRange(d)
		days, err := app.Service.DailyView(ctx, app.Owner, timecalc.FormatDate(from), timecalc.FormatDate(to), filters)
		if err != nil {
			return err
		}
		return render(cmd, export.DailyTable(days), days)
	default:
		return apperr.Validation("unknown view %q (want weekly, daily or calendar)", exportView)
	}
}
