package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Tiliavir/ttt-timesheet/internal/apperr"
	"github.com/Tiliavir/ttt-timesheet/internal/model"
	"github.com/Tiliavir/ttt-timesheet/internal/timecalc"
)

// Store implements the tracker store on database/sql.
type Store struct {
	db      *sql.DB
	dialect Dialect
	log     *zap.Logger
}

// New wraps an already migrated database.
func New(db *sql.DB, dialect Dialect, log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{db: db, dialect: dialect, log: log}
}

// Close closes the underlying database.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *Store) q(query string) string { return rebind(s.dialect, query) }

// logWhere builds the shared WHERE clause of the log queries.
func logWhere(owner, from, to string, filter model.LogFilter) (string, []any) {
	var b strings.Builder
	b.WriteString("d.owner_id = ? AND d.log_date >= ? AND d.log_date <= ?")
	args := []any{owner, from, to}
	in := func(col string, vals []string) {
		if len(vals) == 0 {
			return
		}
		b.WriteString(" AND " + col + " IN (" + strings.TrimSuffix(strings.Repeat("?,", len(vals)), ",") + ")")
		for _, v := range vals {
			args = append(args, v)
		}
	}
	in("d.project_id", filter.Projects)
	in("d.source", filter.Sources)
	in("d.category", filter.Categories)
	return b.String(), args
}

// FindLogs returns the matching logs ordered by date and insertion.
func (s *Store) FindLogs(ctx context.Context, owner, from, to string, filter model.LogFilter) ([]model.DayLog, error) {
	where, args := logWhere(owner, from, to, filter)

	rows, err := s.db.QueryContext(ctx, s.q(`
		SELECT d.id, d.owner_id, d.log_date, d.project_id, d.source, d.category, d.version
		FROM day_logs d
		WHERE `+where+`
		ORDER BY d.log_date, d.seq`), args...)
	if err != nil {
		return nil, fmt.Errorf("query day logs: %w", err)
	}
	var logs []model.DayLog
	index := map[string]int{}
	for rows.Next() {
		var l model.DayLog
		if err := rows.Scan(&l.ID, &l.OwnerID, &l.Date, &l.ProjectID, &l.Source, &l.Category, &l.Version); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan day log: %w", err)
		}
		l.Intervals = []model.TimeInterval{}
		index[l.ID] = len(logs)
		logs = append(logs, l)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("iterate day logs: %w", err)
	}
	rows.Close()
	if len(logs) == 0 {
		return nil, nil
	}

	irows, err := s.db.QueryContext(ctx, s.q(`
		SELECT i.log_id, i.start_sec, i.stop_sec, i.reason
		FROM log_intervals i
		JOIN day_logs d ON d.id = i.log_id
		WHERE `+where+`
		ORDER BY i.log_id, i.position`), args...)
	if err != nil {
		return nil, fmt.Errorf("query intervals: %w", err)
	}
	defer irows.Close()
	for irows.Next() {
		var (
			logID string
			iv    model.TimeInterval
		)
		if err := irows.Scan(&logID, &iv.Start, &iv.Stop, &iv.Reason); err != nil {
			return nil, fmt.Errorf("scan interval: %w", err)
		}
		if i, ok := index[logID]; ok {
			logs[i].Intervals = append(logs[i].Intervals, iv)
		}
	}
	return logs, irows.Err()
}

// GetLog returns the log stored under key.
func (s *Store) GetLog(ctx context.Context, key model.LogKey) (model.DayLog, bool, error) {
	var l model.DayLog
	err := s.db.QueryRowContext(ctx, s.q(`
		SELECT id, owner_id, log_date, project_id, source, category, version
		FROM day_logs
		WHERE owner_id = ? AND log_date = ? AND project_id = ? AND source = ? AND category = ?`),
		key.OwnerID, key.Date, key.ProjectID, key.Source, key.Category,
	).Scan(&l.ID, &l.OwnerID, &l.Date, &l.ProjectID, &l.Source, &l.Category, &l.Version)
	if errors.Is(err, sql.ErrNoRows) {
		return model.DayLog{}, false, nil
	}
	if err != nil {
		return model.DayLog{}, false, fmt.Errorf("get day log: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, s.q(`
		SELECT start_sec, stop_sec, reason FROM log_intervals WHERE log_id = ? ORDER BY position`), l.ID)
	if err != nil {
		return model.DayLog{}, false, fmt.Errorf("query intervals: %w", err)
	}
	defer rows.Close()
	l.Intervals = []model.TimeInterval{}
	for rows.Next() {
		var iv model.TimeInterval
		if err := rows.Scan(&iv.Start, &iv.Stop, &iv.Reason); err != nil {
			return model.DayLog{}, false, fmt.Errorf("scan interval: %w", err)
		}
		l.Intervals = append(l.Intervals, iv)
	}
	return l, true, rows.Err()
}

// UpsertLog writes l in one transaction if the stored version still equals
// l.Version (0 for a log that must not exist yet).
func (s *Store) UpsertLog(ctx context.Context, l model.DayLog) (model.DayLog, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return model.DayLog{}, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if l.Version == 0 {
		if l.ID == "" {
			l.ID = uuid.NewString()
		}
		res, err := tx.ExecContext(ctx, s.q(`
			INSERT INTO day_logs (id, seq, owner_id, log_date, project_id, source, category, version)
			VALUES (?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM day_logs), ?, ?, ?, ?, ?, 1)
			ON CONFLICT (owner_id, log_date, project_id, source, category) DO NOTHING`),
			l.ID, l.OwnerID, l.Date, l.ProjectID, l.Source, l.Category)
		if err != nil {
			return model.DayLog{}, fmt.Errorf("insert day log: %w", err)
		}
		if err := expectOne(res, l.Key()); err != nil {
			return model.DayLog{}, err
		}
	} else {
		res, err := tx.ExecContext(ctx, s.q(`
			UPDATE day_logs SET version = version + 1
			WHERE owner_id = ? AND log_date = ? AND project_id = ? AND source = ? AND category = ? AND version = ?`),
			l.OwnerID, l.Date, l.ProjectID, l.Source, l.Category, l.Version)
		if err != nil {
			return model.DayLog{}, fmt.Errorf("update day log: %w", err)
		}
		if err := expectOne(res, l.Key()); err != nil {
			return model.DayLog{}, err
		}
		if err := tx.QueryRowContext(ctx, s.q(`
			SELECT id FROM day_logs
			WHERE owner_id = ? AND log_date = ? AND project_id = ? AND source = ? AND category = ?`),
			l.OwnerID, l.Date, l.ProjectID, l.Source, l.Category).Scan(&l.ID); err != nil {
			return model.DayLog{}, fmt.Errorf("read day log id: %w", err)
		}
		if _, err := tx.ExecContext(ctx, s.q(`DELETE FROM log_intervals WHERE log_id = ?`), l.ID); err != nil {
			return model.DayLog{}, fmt.Errorf("clear intervals: %w", err)
		}
	}

	for pos, iv := range l.Intervals {
		if _, err := tx.ExecContext(ctx, s.q(`
			INSERT INTO log_intervals (log_id, position, start_sec, stop_sec, reason) VALUES (?, ?, ?, ?, ?)`),
			l.ID, pos, int(iv.Start), int(iv.Stop), iv.Reason); err != nil {
			return model.DayLog{}, fmt.Errorf("insert interval: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return model.DayLog{}, fmt.Errorf("commit: %w", err)
	}
	l.Version++
	return l, nil
}

func expectOne(res sql.Result, key model.LogKey) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n != 1 {
		return fmt.Errorf("%s: %w", key, apperr.ErrStaleVersion)
	}
	return nil
}

// FindActivity returns samples whose start date lies in [from, to].
func (s *Store) FindActivity(ctx context.Context, owner, from, to string) ([]model.ActivitySample, error) {
	rows, err := s.db.QueryContext(ctx, s.q(`
		SELECT id, owner_id, start_date, end_date, start_sec, end_sec, rate
		FROM activity_samples
		WHERE owner_id = ? AND start_date >= ? AND start_date <= ?
		ORDER BY start_date, start_sec`), owner, from, to)
	if err != nil {
		return nil, fmt.Errorf("query activity: %w", err)
	}
	defer rows.Close()
	var out []model.ActivitySample
	for rows.Next() {
		var a model.ActivitySample
		if err := rows.Scan(&a.ID, &a.OwnerID, &a.StartDate, &a.EndDate, &a.Start, &a.End, &a.Rate); err != nil {
			return nil, fmt.Errorf("scan activity: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// SaveActivity inserts a sample.
func (s *Store) SaveActivity(ctx context.Context, a model.ActivitySample) (model.ActivitySample, error) {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	_, err := s.db.ExecContext(ctx, s.q(`
		INSERT INTO activity_samples (id, owner_id, start_date, end_date, start_sec, end_sec, rate)
		VALUES (?, ?, ?, ?, ?, ?, ?)`),
		a.ID, a.OwnerID, a.StartDate, a.EndDate, int(a.Start), int(a.End), a.Rate)
	if err != nil {
		return model.ActivitySample{}, fmt.Errorf("insert activity: %w", err)
	}
	return a, nil
}

// FindCaptures returns the captures filed under date.
func (s *Store) FindCaptures(ctx context.Context, owner, date string) ([]model.ScreenshotCapture, error) {
	rows, err := s.db.QueryContext(ctx, s.q(`
		SELECT id, owner_id, capture_time, reference
		FROM screenshot_captures
		WHERE owner_id = ? AND capture_date = ?
		ORDER BY capture_time`), owner, date)
	if err != nil {
		return nil, fmt.Errorf("query captures: %w", err)
	}
	defer rows.Close()
	var out []model.ScreenshotCapture
	for rows.Next() {
		var (
			c  model.ScreenshotCapture
			at string
		)
		if err := rows.Scan(&c.ID, &c.OwnerID, &at, &c.Reference); err != nil {
			return nil, fmt.Errorf("scan capture: %w", err)
		}
		if c.CaptureTime, err = time.Parse(time.RFC3339, at); err != nil {
			return nil, fmt.Errorf("capture %s time %q: %w", c.ID, at, err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// SaveCapture files c under the UTC date of its capture time.
func (s *Store) SaveCapture(ctx context.Context, c model.ScreenshotCapture) (model.ScreenshotCapture, error) {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	at := c.CaptureTime.UTC()
	_, err := s.db.ExecContext(ctx, s.q(`
		INSERT INTO screenshot_captures (id, owner_id, capture_date, capture_time, reference)
		VALUES (?, ?, ?, ?, ?)`),
		c.ID, c.OwnerID, timecalc.FormatDate(at), at.Format(time.RFC3339), c.Reference)
	if err != nil {
		return model.ScreenshotCapture{}, fmt.Errorf("insert capture: %w", err)
	}
	return c, nil
}

// ProjectName resolves a project id.
func (s *Store) ProjectName(ctx context.Context, id string) (string, bool, error) {
	var name string
	err := s.db.QueryRowContext(ctx, s.q(`SELECT name FROM projects WHERE id = ?`), id).Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get project: %w", err)
	}
	return name, true, nil
}

// SaveProject creates or renames a project.
func (s *Store) SaveProject(ctx context.Context, p model.Project) error {
	_, err := s.db.ExecContext(ctx, s.q(`
		INSERT INTO projects (id, name) VALUES (?, ?)
		ON CONFLICT (id) DO UPDATE SET name = excluded.name`), p.ID, p.Name)
	if err != nil {
		return fmt.Errorf("upsert project: %w", err)
	}
	return nil
}
