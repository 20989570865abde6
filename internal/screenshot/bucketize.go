package screenshot

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Tiliavir/ttt-timesheet/internal/activity"
	"github.com/Tiliavir/ttt-timesheet/internal/apperr"
	"github.com/Tiliavir/ttt-timesheet/internal/model"
	"github.com/Tiliavir/ttt-timesheet/internal/timecalc"
)

// DefaultReviewWindow is the span each capture stands for.
const DefaultReviewWindow = 10 * time.Minute

// CaptureReader lists the captures filed under one owner and date.
type CaptureReader interface {
	FindCaptures(ctx context.Context, ownerID, date string) ([]model.ScreenshotCapture, error)
}

// ActivityReader reads activity samples whose start date lies in [from, to].
type ActivityReader interface {
	FindActivity(ctx context.Context, ownerID, from, to string) ([]model.ActivitySample, error)
}

// ReviewInterval is the window anchored at one capture.
type ReviewInterval struct {
	Time     string   `json:"time"`
	Activity float64  `json:"activity"`
	Images   []string `json:"images"`
}

// HourBlock groups the review intervals starting in the same hour.
type HourBlock struct {
	TimeRange   string           `json:"timeRange"`
	TotalWorked string           `json:"totalWorked"`
	Intervals   []ReviewInterval `json:"intervals"`

	total timecalc.Duration
}

// Bucketizer turns captures into hourly review blocks.
type Bucketizer struct {
	captures CaptureReader
	samples  ActivityReader
	window   time.Duration
	log      *zap.Logger
}

// NewBucketizer returns a Bucketizer. A non-positive window falls back to
// DefaultReviewWindow.
func NewBucketizer(captures CaptureReader, samples ActivityReader, window time.Duration, log *zap.Logger) *Bucketizer {
	if window <= 0 {
		window = DefaultReviewWindow
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Bucketizer{captures: captures, samples: samples, window: window, log: log}
}

// Bucketize builds one review interval per capture of ownerID on date and
// groups them into hourly blocks in order of first appearance. Intervals are
// never coalesced, even when their windows overlap. Captures whose reference
// carries no timestamp are skipped.
func (b *Bucketizer) Bucketize(ctx context.Context, ownerID, date string) ([]HourBlock, error) {
	if _, err := timecalc.ParseDate(date); err != nil {
		return nil, apperr.Validation("date: %v", err)
	}
	captures, err := b.captures.FindCaptures(ctx, ownerID, date)
	if err != nil {
		return nil, apperr.Store("find captures", err)
	}
	if len(captures) == 0 {
		return nil, apperr.NotFound("no screenshots for %s on %s", ownerID, date)
	}
	samples, err := b.samples.FindActivity(ctx, ownerID, date, date)
	if err != nil {
		return nil, apperr.Store("find activity", err)
	}
	daySamples := activity.ByDate(samples)[date]

	var order []int
	blocks := map[int]*HourBlock{}
	step := timecalc.Duration(b.window / time.Second)
	for _, c := range captures {
		at, err := ParseCaptureTime(c.Reference)
		if err != nil {
			b.log.Warn("skipping capture", zap.String("owner", ownerID), zap.String("reference", c.Reference), zap.Error(err))
			continue
		}
		start := timecalc.ClockOf(at)
		iv := ReviewInterval{
			Time:     label(at, at.Add(b.window)),
			Activity: activity.AverageRate(start, start.Add(step), daySamples),
			Images:   []string{c.Reference},
		}

		hour := start.Hour()
		blk, ok := blocks[hour]
		if !ok {
			blk = &HourBlock{TimeRange: fmt.Sprintf("%02d:00 - %02d:00", hour, hour+1)}
			blocks[hour] = blk
			order = append(order, hour)
		}
		blk.total = blk.total.Add(step)
		blk.Intervals = append(blk.Intervals, iv)
	}

	out := make([]HourBlock, 0, len(order))
	for _, h := range order {
		blk := blocks[h]
		blk.TotalWorked = blk.total.String()
		out = append(out, *blk)
	}
	return out, nil
}

func label(from, to time.Time) string {
	return timecalc.ClockOf(from).Format12hShort() + " - " + timecalc.ClockOf(to).Format12hShort()
}
