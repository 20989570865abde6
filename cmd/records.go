package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Tiliavir/ttt-timesheet/internal/apperr"
	"github.com/Tiliavir/ttt-timesheet/internal/model"
	"github.com/Tiliavir/ttt-timesheet/internal/timecalc"
)

var captureCmd = &cobra.Command{
	Use:   "capture",
	Short: "Screenshot captures",
}

var captureAddCmd = &cobra.Command{
	Use:   "add <reference>...",
	Short: "Register screenshots; each reference must embed YYYY-MM-DD_HH-MM-SS_",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, ref := range args {
			c, err := app.Service.RegisterCapture(cmd.Context(), app.Owner, ref)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Registered %s at %s\n", c.Reference, c.CaptureTime.Format("2006-01-02 15:04:05"))
		}
		return nil
	},
}

var (
	actDate    string
	actEndDate string
	actStart   string
	actEnd     string
	actRate    float64
)

var activityCmd = &cobra.Command{
	Use:   "activity",
	Short: "Activity samples",
}

var activityAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Record an activity rate (0-100) over a span",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		start, err := timecalc.ParseClock(actStart)
		if err != nil {
			return apperr.Validation("start: %v", err)
		}
		end, err := timecalc.ParseClock(actEnd)
		if err != nil {
			return apperr.Validation("end: %v", err)
		}
		date := dateOrToday(actDate)
		endDate := actEndDate
		if endDate == "" {
			endDate = date
		}
		a, err := app.Service.RecordActivity(cmd.Context(), model.ActivitySample{
			OwnerID:   app.Owner,
			StartDate: date,
			EndDate:   endDate,
			Start:     start,
			End:       end,
			Rate:      actRate,
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Recorded %.2f%% for %s %s - %s %s\n", a.Rate, a.StartDate, a.Start, a.EndDate, a.End)
		return nil
	},
}

var projectCmd = &cobra.Command{
	Use:   "project",
	Short: "Project names",
}

var projectAddCmd = &cobra.Command{
	Use:   "add <id> <name>",
	Short: "Create or rename a project",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := app.Service.SaveProject(cmd.Context(), model.Project{ID: args[0], Name: args[1]}); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Project %s is %q\n", args[0], args[1])
		return nil
	},
}

func init() {
	captureCmd.AddCommand(captureAddCmd)

	activityAddCmd.Flags().StringVar(&actDate, "date", "", "Start date (YYYY-MM-DD, default today)")
	activityAddCmd.Flags().StringVar(&actEndDate, "end-date", "", "End date (default --date)")
	activityAddCmd.Flags().StringVar(&actStart, "start", "", "Start time")
	activityAddCmd.Flags().StringVar(&actEnd, "end", "", "End time")
	activityAddCmd.Flags().Float64Var(&actRate, "rate", 0, "Activity rate 0-100")
	_ = activityAddCmd.MarkFlagRequired("start")
	_ = activityAddCmd.MarkFlagRequired("end")
	_ = activityAddCmd.MarkFlagRequired("rate")
	activityCmd.AddCommand(activityAddCmd)

	projectCmd.AddCommand(projectAddCmd)
}
