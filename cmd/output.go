package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Tiliavir/ttt-timesheet/internal/apperr"
	"github.com/Tiliavir/ttt-timesheet/internal/export"
	"github.com/Tiliavir/ttt-timesheet/internal/timesheet"
)

func addOutputFlags(cmd *cobra.Command, defaultFormat string) {
	cmd.Flags().StringVar(&flagFormat, "format", defaultFormat, "Output format: md, csv, json, xlsx")
	cmd.Flags().StringVarP(&flagOut, "out", "o", "", "Write to file instead of stdout (required for xlsx)")
}

// render writes t (or raw for json) in the selected format. The format is
// inferred from the --out extension when --format was not given.
func render(cmd *cobra.Command, t export.Table, raw any) error {
	name := flagFormat
	if !cmd.Flags().Changed("format") {
		// Commands share flagFormat but not its default.
		name = cmd.Flags().Lookup("format").DefValue
		if ext := strings.TrimPrefix(filepath.Ext(flagOut), "."); flagOut != "" && ext != "" {
			name = ext
		}
	}
	format, err := export.ParseFormat(name)
	if err != nil {
		return apperr.Validation("%v", err)
	}
	if format == export.XLSX && flagOut == "" {
		return apperr.Validation("xlsx output needs --out <file>")
	}

	if flagOut == "" {
		return internal(export.Write(cmd.OutOrStdout(), format, t, raw))
	}
	f, err := os.Create(flagOut)
	if err != nil {
		return internal(fmt.Errorf("creating %s: %w", flagOut, err))
	}
	if err := export.Write(f, format, t, raw); err != nil {
		_ = f.Close()
		return internal(err)
	}
	if err := f.Close(); err != nil {
		return internal(err)
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %s\n", flagOut)
	return nil
}

// printJSON writes v as indented JSON; used for single mutation results.
func printJSON(w io.Writer, v any) error {
	return internal(export.Write(w, export.JSON, export.Table{}, v))
}

var (
	filterProjects   []string
	filterSources    []string
	filterCategories []string
	filterMinActive  float64
)

func addFilterFlags(cmd *cobra.Command) {
	cmd.Flags().StringSliceVar(&filterProjects, "project", nil, "Only these project ids (repeatable)")
	cmd.Flags().StringSliceVar(&filterSources, "source", nil, "Only these sources (repeatable)")
	cmd.Flags().StringSliceVar(&filterCategories, "category", nil, "Only these categories (repeatable)")
	cmd.Flags().Float64Var(&filterMinActive, "min-activity", 0, "Drop intervals whose activity rate is below this value")
}

func filtersFromFlags(cmd *cobra.Command) timesheet.Filters {
	f := timesheet.Filters{}
	f.Projects = filterProjects
	f.Sources = filterSources
	f.Categories = filterCategories
	if cmd.Flags().Changed("min-activity") {
		v := filterMinActive
		f.MinActivity = &v
	}
	return f
}
