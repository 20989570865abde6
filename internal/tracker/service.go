// Package tracker is the entry point for every timesheet operation. It
// validates requests, serialises mutations per owner and day, and turns
// persistence failures into opaque store errors after logging them.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Tiliavir/ttt-timesheet/internal/apperr"
	"github.com/Tiliavir/ttt-timesheet/internal/keylock"
	"github.com/Tiliavir/ttt-timesheet/internal/model"
	"github.com/Tiliavir/ttt-timesheet/internal/screenshot"
	"github.com/Tiliavir/ttt-timesheet/internal/timesheet"
)

// Store is the persistence the service needs. storage.Store and
// sqlstore.Store both implement it.
type Store interface {
	timesheet.LogReader
	timesheet.ActivityReader
	timesheet.ProjectLookup
	screenshot.CaptureReader

	GetLog(ctx context.Context, key model.LogKey) (model.DayLog, bool, error)
	UpsertLog(ctx context.Context, l model.DayLog) (model.DayLog, error)
	SaveActivity(ctx context.Context, a model.ActivitySample) (model.ActivitySample, error)
	SaveCapture(ctx context.Context, c model.ScreenshotCapture) (model.ScreenshotCapture, error)
	SaveProject(ctx context.Context, p model.Project) error
}

// Options tunes the service.
type Options struct {
	ReviewWindow       time.Duration
	ManualActivityRate float64 // recorded for manual adds; 0 disables
	StoreRetries       int     // extra attempts after a stale version
}

// DefaultOptions mirrors the configuration defaults.
func DefaultOptions() Options {
	return Options{
		ReviewWindow:       screenshot.DefaultReviewWindow,
		ManualActivityRate: 50,
		StoreRetries:       3,
	}
}

// Service implements the timesheet operations.
type Service struct {
	store   Store
	locker  keylock.Locker
	agg     *timesheet.Aggregator
	buckets *screenshot.Bucketizer
	opts    Options
	log     *zap.Logger
}

// New wires a Service. A nil locker means in-process locking only.
func New(store Store, locker keylock.Locker, opts Options, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	if locker == nil {
		locker = keylock.NewMemoryLocker()
	}
	if opts.StoreRetries < 0 {
		opts.StoreRetries = 0
	}
	return &Service{
		store:   store,
		locker:  locker,
		agg:     timesheet.NewAggregator(store, store, store),
		buckets: screenshot.NewBucketizer(store, store, opts.ReviewWindow, log),
		opts:    opts,
		log:     log,
	}
}

// withDayLock runs fn while holding the owner/date lock, re-running it when
// the store reports a stale version.
func (s *Service) withDayLock(ctx context.Context, ownerID, date string, fn func() error) error {
	scope := model.DayScope(ownerID, date)
	unlock, err := s.locker.Lock(ctx, scope)
	if err != nil {
		return fmt.Errorf("lock %s: %w", scope, err)
	}
	defer unlock()

	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := fn()
		if !errors.Is(err, apperr.ErrStaleVersion) {
			return err
		}
		if attempt >= s.opts.StoreRetries {
			return apperr.Store("upsert day log", err)
		}
		s.log.Debug("stale day log, retrying", zap.String("scope", scope), zap.Int("attempt", attempt+1))
	}
}

// fail logs store errors with their hidden cause and passes err through.
func (s *Service) fail(op string, err error, fields ...zap.Field) error {
	if err == nil {
		return nil
	}
	var se *apperr.StoreError
	if errors.As(err, &se) {
		fields = append(fields, zap.String("op", op), zap.String("store_op", se.Op), zap.Error(se.Cause))
		s.log.Error("storage failure", fields...)
	}
	return err
}

func requireField(name, value string) error {
	if value == "" {
		return apperr.Validation("%s is required", name)
	}
	return nil
}
