package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/Tiliavir/ttt-timesheet/internal/apperr"
)

var (
	flagOwner  string
	flagConfig string
	flagFormat string
	flagOut    string

	// app is built by rootCmd's PersistentPreRunE and closed after the run.
	app *App
)

var rootCmd = &cobra.Command{
	Use:   "ttt",
	Short: "ttt – timesheet reconciliation and reporting",
	Long: `ttt merges time intervals reported by tracking clients into per-day logs,
validates manual edits and renders daily, weekly and calendar timesheets.
Data lives in ~/.ttt/ (JSON files) unless a database is configured.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		a, err := NewApp(cmd.Context(), flagConfig, flagOwner)
		if err != nil {
			return err
		}
		app = a
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		return closeApp()
	},
}

// Execute is the entry point called from main. Caller errors exit with 1,
// internal failures with 2.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if cerr := closeApp(); err == nil {
		err = cerr
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(exitCode(err))
	}
}

func closeApp() error {
	if app == nil {
		return nil
	}
	a := app
	app = nil
	return a.Close()
}

// internalError marks failures that are not the caller's fault.
type internalError struct{ err error }

func (e *internalError) Error() string { return e.err.Error() }
func (e *internalError) Unwrap() error { return e.err }

func internal(err error) error {
	if err == nil {
		return nil
	}
	return &internalError{err: err}
}

func exitCode(err error) int {
	var ie *internalError
	switch {
	case apperr.IsCallerError(err):
		return 1
	case errors.Is(err, apperr.ErrStore), errors.As(err, &ie):
		return 2
	default:
		// flag and argument errors from cobra
		return 1
	}
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flagOwner, "owner", "", "Owner id (default: timesheet.owner from the config)")
	pf.StringVar(&flagConfig, "config", "", "Config file (default: $TTT_CONFIG or ~/.ttt/config.json)")

	rootCmd.AddCommand(
		ingestCmd,
		addCmd, editCmd, deleteCmd,
		dailyCmd, weeklyCmd, calendarCmd, totalCmd, screenshotsCmd,
		captureCmd, activityCmd, projectCmd,
		outlookCmd,
		exportCmd,
	)
}
