// Package storage keeps timesheet data in one JSON file per owner and day,
// written atomically through a temp file and rename.
package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"github.com/Tiliavir/ttt-timesheet/internal/apperr"
	"github.com/Tiliavir/ttt-timesheet/internal/model"
	"github.com/Tiliavir/ttt-timesheet/internal/timecalc"
)

// DayFile is everything recorded for one owner on one date.
type DayFile struct {
	Date     string                    `json:"date"`
	Logs     []model.DayLog            `json:"logs"`
	Activity []model.ActivitySample    `json:"activity,omitempty"`
	Captures []model.ScreenshotCapture `json:"captures,omitempty"`
}

// dayFilePath returns the path for the given owner's and date's JSON file.
func dayFilePath(base, owner string, t time.Time) string {
	return filepath.Join(base, url.PathEscape(owner), t.Format("2006"), t.Format("01"), t.Format("02")+".json")
}

// LoadDay loads the DayFile for the given owner and date. Returns an empty DayFile if not found.
func LoadDay(base, owner string, t time.Time) (DayFile, error) {
	path := dayFilePath(base, owner, t)
	empty := DayFile{Date: timecalc.FormatDate(t), Logs: []model.DayLog{}}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return empty, nil
	}
	if err != nil {
		return DayFile{}, fmt.Errorf("storage error reading %s: %w", path, err)
	}

	var df DayFile
	if err := json.Unmarshal(data, &df); err != nil {
		// Back up corrupt file and abort.
		backupPath := path + ".corrupt"
		_ = os.Rename(path, backupPath)
		return DayFile{}, fmt.Errorf("corrupt JSON in %s (backed up to %s): %w", path, backupPath, err)
	}
	if df.Logs == nil {
		df.Logs = []model.DayLog{}
	}
	return df, nil
}

// SaveDay atomically writes a DayFile for the given owner and date. It does
// not lock; Store callers hold the day lock around load and save.
func SaveDay(base, owner string, t time.Time, df DayFile) error {
	path := dayFilePath(base, owner, t)
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("storage error creating directories: %w", err)
	}

	data, err := json.MarshalIndent(df, "", "  ")
	if err != nil {
		return fmt.Errorf("storage error marshalling JSON: %w", err)
	}
	return writeAtomic(path, data)
}

// writeAtomic writes data to a temp file unique to this call in path's
// directory, then renames it over path.
func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("storage error creating temp file: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("storage error writing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("storage error writing temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("storage error renaming temp file: %w", err)
	}
	return nil
}

// lockRetry is how often a blocked writer polls the lock file.
const lockRetry = 5 * time.Millisecond

// lockFile takes an exclusive flock on path+".lock", creating the directory
// if needed. The lock excludes every other holder, in this process or not.
func lockFile(ctx context.Context, path string) (unlock func(), err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("storage error creating directories: %w", err)
	}
	fl := flock.New(path + ".lock")
	ok, err := fl.TryLockContext(ctx, lockRetry)
	if err != nil {
		return nil, fmt.Errorf("storage error locking %s: %w", path, err)
	}
	if !ok {
		return nil, fmt.Errorf("storage error locking %s: %w", path, ctx.Err())
	}
	return func() { _ = fl.Unlock() }, nil
}

// Store is the file-backed store. Every load-modify-save cycle runs under an
// exclusive lock on the day file's .lock companion, so writers in other
// processes (or other Stores over the same base) cannot interleave with it.
// Readers need no lock: files are only ever replaced by rename.
type Store struct {
	base string
	mu   sync.Mutex
}

// New returns a Store rooted at base.
func New(base string) *Store {
	return &Store{base: base}
}

// Close is a no-op; it lets Store stand in wherever a closable store is expected.
func (s *Store) Close() error { return nil }

func (s *Store) load(owner, date string) (time.Time, DayFile, error) {
	t, err := timecalc.ParseDate(date)
	if err != nil {
		return time.Time{}, DayFile{}, err
	}
	df, err := LoadDay(s.base, owner, t)
	return t, df, err
}

// FindLogs returns the logs of owner dated within [from, to] that pass filter,
// ordered by date and then by insertion.
func (s *Store) FindLogs(ctx context.Context, owner, from, to string, filter model.LogFilter) ([]model.DayLog, error) {
	var out []model.DayLog
	err := s.eachDay(ctx, owner, from, to, func(df DayFile) {
		for _, l := range df.Logs {
			if filter.Match(l) {
				out = append(out, l)
			}
		}
	})
	return out, err
}

// GetLog returns the log stored under key.
func (s *Store) GetLog(ctx context.Context, key model.LogKey) (model.DayLog, bool, error) {
	if err := ctx.Err(); err != nil {
		return model.DayLog{}, false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, df, err := s.load(key.OwnerID, key.Date)
	if err != nil {
		return model.DayLog{}, false, err
	}
	if i := indexOfKey(df.Logs, key); i >= 0 {
		return df.Logs[i], true, nil
	}
	return model.DayLog{}, false, nil
}

// UpsertLog writes l if the stored version still equals l.Version (0 for a
// log that must not exist yet) and returns it with the next version.
func (s *Store) UpsertLog(ctx context.Context, l model.DayLog) (model.DayLog, error) {
	err := s.update(ctx, l.OwnerID, l.Date, func(df *DayFile) error {
		i := indexOfKey(df.Logs, l.Key())
		var stored int64
		if i >= 0 {
			stored = df.Logs[i].Version
		}
		if stored != l.Version {
			return fmt.Errorf("%s at version %d, have %d: %w", l.Key(), stored, l.Version, apperr.ErrStaleVersion)
		}

		l.Version++
		if l.ID == "" {
			if i >= 0 {
				l.ID = df.Logs[i].ID
			} else {
				l.ID = uuid.NewString()
			}
		}
		if i >= 0 {
			df.Logs[i] = l
		} else {
			df.Logs = append(df.Logs, l)
		}
		return nil
	})
	if err != nil {
		return model.DayLog{}, err
	}
	return l, nil
}

// FindActivity returns samples whose start date lies in [from, to].
func (s *Store) FindActivity(ctx context.Context, owner, from, to string) ([]model.ActivitySample, error) {
	var out []model.ActivitySample
	err := s.eachDay(ctx, owner, from, to, func(df DayFile) {
		out = append(out, df.Activity...)
	})
	return out, err
}

// SaveActivity appends a sample to the file of its start date.
func (s *Store) SaveActivity(ctx context.Context, a model.ActivitySample) (model.ActivitySample, error) {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	err := s.update(ctx, a.OwnerID, a.StartDate, func(df *DayFile) error {
		df.Activity = append(df.Activity, a)
		return nil
	})
	return a, err
}

// FindCaptures returns the captures filed under date.
func (s *Store) FindCaptures(ctx context.Context, owner, date string) ([]model.ScreenshotCapture, error) {
	var out []model.ScreenshotCapture
	err := s.eachDay(ctx, owner, date, date, func(df DayFile) {
		out = append(out, df.Captures...)
	})
	return out, err
}

// SaveCapture files c under the UTC date of its capture time.
func (s *Store) SaveCapture(ctx context.Context, c model.ScreenshotCapture) (model.ScreenshotCapture, error) {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	date := timecalc.FormatDate(c.CaptureTime.UTC())
	err := s.update(ctx, c.OwnerID, date, func(df *DayFile) error {
		df.Captures = append(df.Captures, c)
		return nil
	})
	return c, err
}

// update runs load, fn and save for one day under the day lock. Nothing is
// written when fn fails.
func (s *Store) update(ctx context.Context, owner, date string, fn func(*DayFile) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t, err := timecalc.ParseDate(date)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	unlock, err := lockFile(ctx, dayFilePath(s.base, owner, t))
	if err != nil {
		return err
	}
	defer unlock()

	df, err := LoadDay(s.base, owner, t)
	if err != nil {
		return err
	}
	if err := fn(&df); err != nil {
		return err
	}
	// The write must not be abandoned half way; ctx was checked above.
	return SaveDay(s.base, owner, t, df)
}

func (s *Store) eachDay(ctx context.Context, owner, from, to string, fn func(DayFile)) error {
	fromT, err := timecalc.ParseDate(from)
	if err != nil {
		return err
	}
	toT, err := timecalc.ParseDate(to)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, date := range timecalc.DatesBetween(fromT, toT) {
		if err := ctx.Err(); err != nil {
			return err
		}
		_, df, err := s.load(owner, date)
		if err != nil {
			return err
		}
		fn(df)
	}
	return nil
}

func indexOfKey(logs []model.DayLog, key model.LogKey) int {
	for i, l := range logs {
		if l.Key() == key {
			return i
		}
	}
	return -1
}
