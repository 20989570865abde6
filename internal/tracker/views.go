package tracker

import (
	"context"

	"go.uber.org/zap"

	"github.com/Tiliavir/ttt-timesheet/internal/screenshot"
	"github.com/Tiliavir/ttt-timesheet/internal/timesheet"
)

// DailyView lists the owner's intervals in [from, to].
func (s *Service) DailyView(ctx context.Context, ownerID, from, to string, f timesheet.Filters) ([]timesheet.DailyDate, error) {
	if err := requireField("owner", ownerID); err != nil {
		return nil, err
	}
	days, err := s.agg.Daily(ctx, ownerID, from, to, f)
	return days, s.fail("daily view", err, zap.String("owner", ownerID))
}

// WeeklyView sums durations per project and weekday of anchor's ISO week.
func (s *Service) WeeklyView(ctx context.Context, ownerID, anchor string, f timesheet.Filters) (timesheet.Week, error) {
	if err := requireField("owner", ownerID); err != nil {
		return timesheet.Week{}, err
	}
	week, err := s.agg.Weekly(ctx, ownerID, anchor, f)
	return week, s.fail("weekly view", err, zap.String("owner", ownerID))
}

// CalendarView lists tasks per weekday of anchor's ISO week.
func (s *Service) CalendarView(ctx context.Context, ownerID, anchor string, f timesheet.Filters) ([]timesheet.CalendarDay, error) {
	if err := requireField("owner", ownerID); err != nil {
		return nil, err
	}
	days, err := s.agg.Calendar(ctx, ownerID, anchor, f)
	return days, s.fail("calendar view", err, zap.String("owner", ownerID))
}

// TotalWorkedTime sums every interval the owner has on date.
func (s *Service) TotalWorkedTime(ctx context.Context, ownerID, date string) (timesheet.TotalWorked, error) {
	if err := requireField("owner", ownerID); err != nil {
		return timesheet.TotalWorked{}, err
	}
	total, err := s.agg.TotalWorked(ctx, ownerID, date)
	return total, s.fail("total worked", err, zap.String("owner", ownerID))
}

// BucketizeScreenshots groups the owner's captures on date into hourly review blocks.
func (s *Service) BucketizeScreenshots(ctx context.Context, ownerID, date string) ([]screenshot.HourBlock, error) {
	if err := requireField("owner", ownerID); err != nil {
		return nil, err
	}
	blocks, err := s.buckets.Bucketize(ctx, ownerID, date)
	return blocks, s.fail("screenshots", err, zap.String("owner", ownerID))
}
