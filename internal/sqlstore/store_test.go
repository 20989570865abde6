package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Tiliavir/ttt-timesheet/internal/apperr"
	"github.com/Tiliavir/ttt-timesheet/internal/model"
	"github.com/Tiliavir/ttt-timesheet/internal/timecalc"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), Options{
		Dialect: SQLite,
		DSN:     filepath.Join(t.TempDir(), "ttt.db"),
	}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func setupMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock, *Store) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	return db, mock, New(db, Postgres, zap.NewNop())
}

func key(date, project string) model.LogKey {
	return model.LogKey{OwnerID: "u1", Date: date, ProjectID: project, Source: model.SourceDesktop, Category: model.CategoryTracked}
}

func span(start, stop string) model.TimeInterval {
	return model.TimeInterval{Start: timecalc.MustParseClock(start), Stop: timecalc.MustParseClock(stop)}
}

func TestRebind(t *testing.T) {
	q := "SELECT a FROM t WHERE x = ? AND y IN (?, ?)"
	assert.Equal(t, q, rebind(SQLite, q))
	assert.Equal(t, "SELECT a FROM t WHERE x = $1 AND y IN ($2, $3)", rebind(Postgres, q))
}

func TestMigrateIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, Migrate(s.db, SQLite, zap.NewNop()))

	var n int
	require.NoError(t, s.db.QueryRow(`SELECT COUNT(*) FROM day_logs`).Scan(&n))
	assert.Equal(t, 0, n)
}

func TestUpsertAndFindLogs(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	l := model.NewDayLog(key("2026-03-02", "ECM"))
	l.Intervals = []model.TimeInterval{span("09:00", "09:30"), {Start: timecalc.MustParseClock("10:00"), Stop: timecalc.MustParseClock("10:15"), Reason: "call"}}
	saved, err := s.UpsertLog(ctx, l)
	require.NoError(t, err)
	assert.Equal(t, int64(1), saved.Version)
	assert.NotEmpty(t, saved.ID)

	_, err = s.UpsertLog(ctx, l)
	assert.ErrorIs(t, err, apperr.ErrStaleVersion)

	saved.Intervals = saved.Intervals[:1]
	updated, err := s.UpsertLog(ctx, saved)
	require.NoError(t, err)
	assert.Equal(t, int64(2), updated.Version)
	assert.Equal(t, saved.ID, updated.ID)

	_, err = s.UpsertLog(ctx, saved)
	assert.ErrorIs(t, err, apperr.ErrStaleVersion)

	got, ok, err := s.GetLog(ctx, l.Key())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []model.TimeInterval{span("09:00", "09:30")}, got.Intervals)

	other := model.NewDayLog(key("2026-03-03", "OPS"))
	other.Intervals = []model.TimeInterval{span("11:00", "12:00")}
	_, err = s.UpsertLog(ctx, other)
	require.NoError(t, err)

	logs, err := s.FindLogs(ctx, "u1", "2026-03-01", "2026-03-07", model.LogFilter{})
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, "2026-03-02", logs[0].Date)
	assert.Len(t, logs[0].Intervals, 1)
	assert.Equal(t, "OPS", logs[1].ProjectID)

	logs, err = s.FindLogs(ctx, "u1", "2026-03-01", "2026-03-07", model.LogFilter{Projects: []string{"OPS"}, Sources: []string{model.SourceDesktop}})
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, "12:00:00", logs[0].Intervals[0].Stop.String())

	_, ok, err = s.GetLog(ctx, key("2026-03-04", "ECM"))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestActivityCapturesProjects(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	_, err := s.SaveActivity(ctx, model.ActivitySample{
		OwnerID: "u1", StartDate: "2026-03-02", EndDate: "2026-03-02",
		Start: timecalc.MustParseClock("09:00"), End: timecalc.MustParseClock("09:10"), Rate: 55.5,
	})
	require.NoError(t, err)
	samples, err := s.FindActivity(ctx, "u1", "2026-03-02", "2026-03-02")
	require.NoError(t, err)
	require.Len(t, samples, 1)
	assert.Equal(t, 55.5, samples[0].Rate)
	assert.Equal(t, timecalc.MustParseClock("09:10"), samples[0].End)

	at := time.Date(2026, 3, 2, 9, 5, 0, 0, time.UTC)
	_, err = s.SaveCapture(ctx, model.ScreenshotCapture{OwnerID: "u1", Reference: "2026-03-02_09-05-00_a.png", CaptureTime: at})
	require.NoError(t, err)
	caps, err := s.FindCaptures(ctx, "u1", "2026-03-02")
	require.NoError(t, err)
	require.Len(t, caps, 1)
	assert.True(t, caps[0].CaptureTime.Equal(at))

	require.NoError(t, s.SaveProject(ctx, model.Project{ID: "p1", Name: "ECM"}))
	require.NoError(t, s.SaveProject(ctx, model.Project{ID: "p1", Name: "ECM 2"}))
	name, ok, err := s.ProjectName(ctx, "p1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "ECM 2", name)

	_, ok, err = s.ProjectName(ctx, "nope")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPostgresUpdateStaleVersion(t *testing.T) {
	db, mock, s := setupMockDB(t)
	defer db.Close()

	l := model.NewDayLog(key("2026-03-02", "ECM"))
	l.Version = 3

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE day_logs SET version = version \+ 1\s+WHERE owner_id = \$1 .* AND version = \$6`).
		WithArgs("u1", "2026-03-02", "ECM", model.SourceDesktop, model.CategoryTracked, int64(3)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	_, err := s.UpsertLog(context.Background(), l)
	assert.ErrorIs(t, err, apperr.ErrStaleVersion)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresFindLogsFilterPlaceholders(t *testing.T) {
	db, mock, s := setupMockDB(t)
	defer db.Close()

	rows := sqlmock.NewRows([]string{"id", "owner_id", "log_date", "project_id", "source", "category", "version"}).
		AddRow("log-1", "u1", "2026-03-02", "ECM", "desktop", "tracked", 2)
	mock.ExpectQuery(`FROM day_logs d\s+WHERE d.owner_id = \$1 AND d.log_date >= \$2 AND d.log_date <= \$3 AND d.project_id IN \(\$4,\$5\)`).
		WithArgs("u1", "2026-03-02", "2026-03-08", "ECM", "OPS").
		WillReturnRows(rows)
	mock.ExpectQuery(`FROM log_intervals i`).
		WithArgs("u1", "2026-03-02", "2026-03-08", "ECM", "OPS").
		WillReturnRows(sqlmock.NewRows([]string{"log_id", "start_sec", "stop_sec", "reason"}).
			AddRow("log-1", 9*3600, 9*3600+1800, ""))

	logs, err := s.FindLogs(context.Background(), "u1", "2026-03-02", "2026-03-08", model.LogFilter{Projects: []string{"ECM", "OPS"}})
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, "09:00:00-09:30:00", logs[0].Intervals[0].String())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresQueryError(t *testing.T) {
	db, mock, s := setupMockDB(t)
	defer db.Close()

	boom := errors.New("connection refused")
	mock.ExpectQuery(`SELECT name FROM projects WHERE id = \$1`).WithArgs("p1").WillReturnError(boom)

	_, _, err := s.ProjectName(context.Background(), "p1")
	assert.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}
