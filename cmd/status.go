package cmd

import (
	"github.com/spf13/cobra"

	"github.com/Tiliavir/ttt-timesheet/internal/export"
)

var totalCmd = &cobra.Command{
	Use:     "total",
	Aliases: []string{"status"},
	Short:   "Show the total time worked on a date",
	Args:    cobra.NoArgs,
	RunE:    runTotal,
}

func init() {
	totalCmd.Flags().StringVar(&viewDate, "date", "", "Date (YYYY-MM-DD, default today)")
	addOutputFlags(totalCmd, "md")
}

func runTotal(cmd *cobra.Command, args []string) error {
	tw, err := app.Service.TotalWorkedTime(cmd.Context(), app.Owner, dateOrToday(viewDate))
	if err != nil {
		return err
	}
	return render(cmd, export.TotalTable(tw), tw)
}
