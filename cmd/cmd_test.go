package cmd

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tiliavir/ttt-timesheet/internal/apperr"
)

// resetFlags restores every flag to its default; cobra keeps parsed values
// in package variables between executions.
func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

type cli struct {
	t      *testing.T
	config string
}

func newCLI(t *testing.T) *cli {
	t.Helper()
	dir := t.TempDir()
	for k, v := range map[string]string{
		"TTT_CONFIG":         "",
		"TTT_STORAGE_DRIVER": "file",
		"TTT_STORAGE_PATH":   filepath.Join(dir, "data"),
		"TTT_LOCK_BACKEND":   "memory",
		"TTT_OWNER":          "tester",
		"LOG_LEVEL":          "error",
		"LOG_FORMAT":         "",
	} {
		t.Setenv(k, v)
	}
	return &cli{t: t, config: filepath.Join(dir, "config.json")}
}

func (c *cli) run(args ...string) (string, error) {
	c.t.Helper()
	resetFlags(rootCmd)
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(append([]string{"--config", c.config}, args...))
	err := rootCmd.Execute()
	if cerr := closeApp(); err == nil {
		err = cerr
	}
	return out.String(), err
}

func (c *cli) mustRun(args ...string) string {
	c.t.Helper()
	out, err := c.run(args...)
	require.NoError(c.t, err, "ttt %s\n%s", strings.Join(args, " "), out)
	return out
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, 1, exitCode(apperr.Validation("bad")))
	assert.Equal(t, 1, exitCode(apperr.NotFound("gone")))
	assert.Equal(t, 1, exitCode(&apperr.OverlapConflictError{}))
	assert.Equal(t, 2, exitCode(apperr.Store("upsert", errors.New("disk full"))))
	assert.Equal(t, 2, exitCode(internal(errors.New("no home"))))
	assert.Equal(t, 1, exitCode(fmt.Errorf("unknown flag: --nope")))
	assert.Nil(t, internal(nil))
}

func TestSyncWindow(t *testing.T) {
	now := time.Date(2026, 3, 4, 15, 0, 0, 0, time.Local)
	reset := func() { outlookSyncDate, outlookSyncFrom, outlookSyncTo = "", "", "" }
	defer reset()

	reset()
	from, to, err := syncWindow(now)
	require.NoError(t, err)
	assert.Equal(t, "2026-03-04 00:00:00", from.Format("2006-01-02 15:04:05"))
	assert.Equal(t, "2026-03-04 23:59:59", to.Format("2006-01-02 15:04:05"))

	reset()
	outlookSyncFrom, outlookSyncTo = "2026-03-01", "2026-03-02"
	from, to, err = syncWindow(now)
	require.NoError(t, err)
	assert.Equal(t, "2026-03-01", from.Format("2006-01-02"))
	assert.Equal(t, "2026-03-02 23:59:59", to.Format("2006-01-02 15:04:05"))

	reset()
	outlookSyncTo = "2026-03-02"
	_, _, err = syncWindow(now)
	assert.ErrorIs(t, err, apperr.ErrValidation)

	reset()
	outlookSyncFrom, outlookSyncTo = "2026-03-05", "2026-03-02"
	_, _, err = syncWindow(now)
	assert.ErrorIs(t, err, apperr.ErrValidation)

	reset()
	outlookSyncDate = "03/04/2026"
	_, _, err = syncWindow(now)
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestCLIWorkflow(t *testing.T) {
	c := newCLI(t)

	c.mustRun("project", "add", "p1", "Project One")

	out := c.mustRun("add", "09:00", "10:00", "--date", "2026-03-02", "--project", "p1")
	assert.Contains(t, out, "Added 09:00-10:00")

	_, err := c.run("add", "09:30", "09:45", "--date", "2026-03-02", "--project", "p1")
	require.ErrorIs(t, err, apperr.ErrOverlap)
	assert.Equal(t, 1, exitCode(err))

	batch := filepath.Join(t.TempDir(), "batch.json")
	require.NoError(t, os.WriteFile(batch, []byte(`{
  "project_id": "p1", "source": "desktop", "category": "tracked",
  "days": [{"date": "2026-03-03", "intervals": [{"start": "13:00:00", "stop": "13:30:00"}]}]
}`), 0o600))
	out = c.mustRun("ingest", batch)
	var res struct {
		Logs []struct {
			Version int `json:"version"`
		} `json:"logs"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &res), out)
	require.Len(t, res.Logs, 1)

	out = c.mustRun("weekly", "--date", "2026-03-04", "--format", "csv")
	assert.Contains(t, out, "Project One,1:00:00,0:30:00,-,-,-,-,-")

	out = c.mustRun("total", "--date", "2026-03-02", "--format", "json")
	assert.Contains(t, out, `"totalWorkedTime": "1:00:00"`)

	out = c.mustRun("delete", "09:00:00 AM", "10:00:00 AM", "--date", "2026-03-02")
	assert.Contains(t, out, "0 intervals left")

	_, err = c.run("delete", "09:00", "10:00", "--date", "2026-03-02")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestCLIExportXLSX(t *testing.T) {
	c := newCLI(t)
	c.mustRun("add", "09:00", "09:30", "--date", "2026-03-02", "--project", "p1")

	_, err := c.run("export", "--date", "2026-03-02", "--format", "xlsx")
	assert.ErrorIs(t, err, apperr.ErrValidation, "xlsx without --out")

	file := filepath.Join(t.TempDir(), "week.xlsx")
	c.mustRun("export", "--view", "daily", "--date", "2026-03-02", "--out", file)
	info, err := os.Stat(file)
	require.NoError(t, err)
	assert.Positive(t, info.Size())
}

func TestCLICaptures(t *testing.T) {
	c := newCLI(t)
	_, err := c.run("capture", "add", "no-timestamp.png")
	assert.ErrorIs(t, err, apperr.ErrValidation)

	c.mustRun("capture", "add", "shot_2026-03-02_09-05-00_a.png", "shot_2026-03-02_09-12-00_b.png")
	out := c.mustRun("screenshots", "--date", "2026-03-02", "--format", "csv")
	assert.Contains(t, out, "09:00 - 10:00,0:20:00")
}
