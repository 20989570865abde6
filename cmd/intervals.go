package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/Tiliavir/ttt-timesheet/internal/apperr"
	"github.com/Tiliavir/ttt-timesheet/internal/tracker"
)

var (
	ivDate     string
	ivProject  string
	ivSource   string
	ivCategory string
	ivReason   string
	ivNewStart string
	ivNewStop  string
)

var addCmd = &cobra.Command{
	Use:   "add <start> <stop>",
	Short: "Add an interval by hand",
	Long: `Add an interval to a day log. Times accept HH:MM[:SS] or hh:mm[:ss] AM/PM.
The interval must not overlap any interval of the date, in any log.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		l, err := app.Service.AddInterval(cmd.Context(), tracker.AddRequest{
			OwnerID:   app.Owner,
			Date:      dateOrToday(ivDate),
			ProjectID: ivProject,
			Source:    ivSource,
			Category:  ivCategory,
			Start:     args[0],
			Stop:      args[1],
			Reason:    ivReason,
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Added %s-%s to %s (%d intervals, %s total)\n",
			args[0], args[1], l.Key(), len(l.Intervals), l.TotalDuration())
		return nil
	},
}

func ref(args []string) tracker.IntervalRef {
	return tracker.IntervalRef{
		OwnerID:   app.Owner,
		Date:      dateOrToday(ivDate),
		ProjectID: ivProject,
		Source:    ivSource,
		Category:  ivCategory,
		Start:     args[0],
		Stop:      args[1],
	}
}

var editCmd = &cobra.Command{
	Use:   "edit <start> <stop>",
	Short: "Move an interval to --new-start/--new-stop",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		iv, err := app.Service.EditInterval(cmd.Context(), tracker.EditRequest{
			IntervalRef: ref(args),
			NewStart:    ivNewStart,
			NewStop:     ivNewStop,
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Interval is now %s (%s)\n", iv, iv.Duration())
		return nil
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete <start> <stop>",
	Short: "Remove an interval",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		l, err := app.Service.DeleteInterval(cmd.Context(), tracker.DeleteRequest{IntervalRef: ref(args)})
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s-%s from %s (%d intervals left)\n",
			args[0], args[1], l.Key(), len(l.Intervals))
		return nil
	},
}

var ingestCmd = &cobra.Command{
	Use:   "ingest <file|->",
	Short: "Merge a JSON batch of reported intervals",
	Long: `Merge a batch reported by a tracking client. The file holds
{"project_id", "source", "category", "days": [{"date", "intervals": [{"start", "stop"}]}]}.
Re-ingesting the same batch changes nothing.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		req, err := readIngest(cmd, args[0])
		if err != nil {
			return err
		}
		res, err := app.Service.IngestBatch(cmd.Context(), app.Owner, req)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), res)
	},
}

func readIngest(cmd *cobra.Command, path string) (tracker.IngestRequest, error) {
	var r io.Reader = cmd.InOrStdin()
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return tracker.IngestRequest{}, apperr.Validation("opening batch: %v", err)
		}
		defer f.Close()
		r = f
	}
	var req tracker.IngestRequest
	if err := json.NewDecoder(r).Decode(&req); err != nil {
		return req, apperr.Validation("decoding batch: %v", err)
	}
	return req, nil
}

func init() {
	for _, c := range []*cobra.Command{addCmd, editCmd, deleteCmd} {
		c.Flags().StringVar(&ivDate, "date", "", "Date (YYYY-MM-DD, default today)")
		c.Flags().StringVar(&ivProject, "project", "", "Project id")
		c.Flags().StringVar(&ivSource, "source", "", "Log source")
		c.Flags().StringVar(&ivCategory, "category", "", "Log category")
	}
	addCmd.Flags().StringVar(&ivReason, "reason", "", "Why the interval was added")
	editCmd.Flags().StringVar(&ivNewStart, "new-start", "", "New start time")
	editCmd.Flags().StringVar(&ivNewStop, "new-stop", "", "New stop time")
	_ = editCmd.MarkFlagRequired("new-start")
	_ = editCmd.MarkFlagRequired("new-stop")
}
