// Package export renders timesheet views as Markdown, CSV, JSON or XLSX.
package export

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// Format is an output format name.
type Format string

// Supported formats.
const (
	Markdown Format = "md"
	CSV      Format = "csv"
	JSON     Format = "json"
	XLSX     Format = "xlsx"
)

// ParseFormat accepts "md" (or ""), "csv", "json" and "xlsx".
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "", Markdown:
		return Markdown, nil
	case CSV, JSON, XLSX:
		return f, nil
	default:
		return "", fmt.Errorf("unknown format %q (want md, csv, json or xlsx)", s)
	}
}

// Table is a flattened view: a title, a header row and data rows.
type Table struct {
	Title  string
	Header []string
	Rows   [][]string
}

// Write renders t in format f. JSON output encodes raw, the view value the
// table was built from, so field names match the service responses.
func Write(w io.Writer, f Format, t Table, raw any) error {
	switch f {
	case JSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(raw)
	case CSV:
		return writeCSV(w, t)
	case XLSX:
		return writeXLSX(w, t)
	default:
		return writeMarkdown(w, t)
	}
}

func writeCSV(w io.Writer, t Table) error {
	lines := append([][]string{t.Header}, t.Rows...)
	for _, row := range lines {
		cells := make([]string, len(row))
		for i, c := range row {
			cells[i] = csvEscape(c)
		}
		if _, err := fmt.Fprintln(w, strings.Join(cells, ",")); err != nil {
			return err
		}
	}
	return nil
}

// csvEscape wraps a field in quotes if it contains a comma, quote, or newline.
func csvEscape(s string) string {
	if !strings.ContainsAny(s, ",\"\n\r") {
		return s
	}
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

func writeMarkdown(w io.Writer, t Table) error {
	var b strings.Builder
	if t.Title != "" {
		fmt.Fprintf(&b, "## %s\n\n", t.Title)
	}
	if len(t.Rows) == 0 {
		b.WriteString("No entries found.\n")
		_, err := io.WriteString(w, b.String())
		return err
	}
	writeMDRow(&b, t.Header)
	sep := make([]string, len(t.Header))
	for i := range sep {
		sep[i] = "---"
	}
	writeMDRow(&b, sep)
	for _, r := range t.Rows {
		writeMDRow(&b, r)
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func writeMDRow(b *strings.Builder, cells []string) {
	b.WriteString("|")
	for _, c := range cells {
		c = strings.ReplaceAll(c, "|", `\|`)
		c = strings.ReplaceAll(c, "\n", " ")
		b.WriteString(" " + c + " |")
	}
	b.WriteString("\n")
}
