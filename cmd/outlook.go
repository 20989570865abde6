package cmd

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/Tiliavir/ttt-timesheet/internal/apperr"
	"github.com/Tiliavir/ttt-timesheet/internal/msgraph"
	"github.com/Tiliavir/ttt-timesheet/internal/timecalc"
)

var (
	outlookSyncFrom    string
	outlookSyncTo      string
	outlookSyncDate    string
	outlookSyncDryRun  bool
	outlookSyncProject string
	outlookSyncTZ      string
)

var outlookCmd = &cobra.Command{
	Use:   "outlook",
	Short: "Outlook calendar integration",
}

var outlookSyncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Merge Outlook calendar events into meeting logs",
	Args:  cobra.NoArgs,
	RunE:  runOutlookSync,
}

func init() {
	outlookSyncCmd.Flags().StringVar(&outlookSyncFrom, "from", "", "Start date (YYYY-MM-DD); required when --to is specified")
	outlookSyncCmd.Flags().StringVar(&outlookSyncTo, "to", "", "End date (YYYY-MM-DD); defaults to today")
	outlookSyncCmd.Flags().StringVar(&outlookSyncDate, "date", "", "Sync a specific date (YYYY-MM-DD, default today)")
	outlookSyncCmd.Flags().BoolVar(&outlookSyncDryRun, "dry-run", false, "Print planned operations without writing")
	outlookSyncCmd.Flags().StringVar(&outlookSyncProject, "project", "", "Project id for imported events (default: outlook.default_project)")
	outlookSyncCmd.Flags().StringVar(&outlookSyncTZ, "timezone", "", "IANA timezone for event times (default: outlook.timezone)")
	outlookCmd.AddCommand(outlookSyncCmd)
}

func parseDay(flag, v string) (time.Time, error) {
	d, err := time.ParseInLocation(timecalc.DateLayout, v, time.Local)
	if err != nil {
		return time.Time{}, apperr.Validation("invalid --%s value %q: %v", flag, v, err)
	}
	return d, nil
}

// syncWindow resolves --date / --from / --to into [from, to].
func syncWindow(now time.Time) (time.Time, time.Time, error) {
	switch {
	case outlookSyncDate != "":
		d, err := parseDay("date", outlookSyncDate)
		if err != nil {
			return d, d, err
		}
		return timecalc.StartOfDay(d), timecalc.EndOfDay(d), nil

	case outlookSyncFrom != "" || outlookSyncTo != "":
		if outlookSyncFrom == "" {
			return now, now, apperr.Validation("--from is required when --to is specified")
		}
		from, err := parseDay("from", outlookSyncFrom)
		if err != nil {
			return from, from, err
		}
		to := now
		if outlookSyncTo != "" {
			if to, err = parseDay("to", outlookSyncTo); err != nil {
				return from, to, err
			}
		}
		if to.Before(from) {
			return from, to, apperr.Validation("--to %s is before --from %s", outlookSyncTo, outlookSyncFrom)
		}
		return timecalc.StartOfDay(from), timecalc.EndOfDay(to), nil

	default:
		return timecalc.StartOfDay(now), timecalc.EndOfDay(now), nil
	}
}

func runOutlookSync(cmd *cobra.Command, args []string) error {
	from, to, err := syncWindow(time.Now())
	if err != nil {
		return err
	}

	cfg := app.Config.Outlook
	opts := msgraph.SyncOptions{
		OwnerID:  app.Owner,
		Project:  cfg.DefaultProject,
		Timezone: cfg.Timezone,
		DryRun:   outlookSyncDryRun,
		Out:      cmd.OutOrStdout(),
	}
	if outlookSyncProject != "" {
		opts.Project = outlookSyncProject
	}
	if outlookSyncTZ != "" {
		opts.Timezone = outlookSyncTZ
	}

	out := cmd.OutOrStdout()
	dryTag := ""
	if opts.DryRun {
		dryTag = " [dry-run]"
	}
	fmt.Fprintf(out, "Syncing Outlook events (%s → %s)%s...\n\n",
		timecalc.FormatDate(from), timecalc.FormatDate(to), dryTag)

	ctx := cmd.Context()
	auth := &msgraph.Authenticator{
		TenantID:  cfg.TenantID,
		ClientID:  cfg.ClientID,
		TokenFile: msgraph.TokenPath(filepath.Dir(app.ConfigPath)),
		Out:       out,
		Log:       app.Log,
	}
	httpClient, err := auth.HTTPClient(ctx)
	if err != nil {
		return internal(fmt.Errorf("authentication failed: %w", err))
	}

	events, err := msgraph.NewClient(httpClient).GetCalendarView(ctx, from, to, opts.Timezone)
	if err != nil {
		return internal(fmt.Errorf("failed to fetch calendar events: %w", err))
	}

	result, err := msgraph.SyncEvents(ctx, app.Service, events, opts, app.Log)
	if err != nil {
		return err
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, "Summary:")
	fmt.Fprintf(out, "  %d imported\n", result.Imported)
	fmt.Fprintf(out, "  %d skipped\n", result.Skipped)
	fmt.Fprintf(out, "  %d day logs merged\n", result.Logs)
	if result.Errors > 0 {
		fmt.Fprintf(out, "  %d errors\n", result.Errors)
		return internal(fmt.Errorf("%d events could not be mapped", result.Errors))
	}
	return nil
}
