package msgraph

import (
	"context"
	"fmt"
	"io"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/Tiliavir/ttt-timesheet/internal/model"
	"github.com/Tiliavir/ttt-timesheet/internal/timecalc"
	"github.com/Tiliavir/ttt-timesheet/internal/tracker"
)

// Ingester merges interval batches into day logs. *tracker.Service
// implements it.
type Ingester interface {
	IngestBatch(ctx context.Context, ownerID string, req tracker.IngestRequest) (tracker.IngestResult, error)
}

// SyncResult holds counters for a sync operation.
type SyncResult struct {
	Imported int
	Skipped  int
	Errors   int
	// Logs is the number of day logs the batch touched.
	Logs int
}

// SyncOptions configures a sync run.
type SyncOptions struct {
	OwnerID  string
	Project  string
	Timezone string
	DryRun   bool
	// Out receives one progress line per event; nil discards them.
	Out io.Writer
}

// parseGraphTime parses a Graph API dateTime string in the given location.
// Graph returns times like "2026-02-27T09:00:00.0000000" without a zone suffix
// when a Prefer: outlook.timezone header is set.
func parseGraphTime(dt string, loc *time.Location) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, time.RFC3339Nano} {
		if t, err := time.Parse(layout, dt); err == nil {
			return t.In(loc), nil
		}
	}
	for _, layout := range []string{
		"2006-01-02T15:04:05.0000000",
		"2006-01-02T15:04:05",
	} {
		if t, err := time.ParseInLocation(layout, dt, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("cannot parse graph time %q", dt)
}

func loadLocation(tz string) *time.Location {
	if tz == "" {
		return time.UTC
	}
	if l, err := time.LoadLocation(tz); err == nil {
		return l
	}
	return time.UTC
}

// buildReason labels an interval with the event subject and its location.
func buildReason(event CalendarEvent) string {
	switch {
	case event.Subject == "":
		return event.Location.DisplayName
	case event.Location.DisplayName == "":
		return event.Subject
	default:
		return event.Subject + " @ " + event.Location.DisplayName
	}
}

// shouldSkip returns true if the event should not be imported.
func shouldSkip(event CalendarEvent) bool {
	if event.IsCancelled {
		return true
	}
	if event.IsAllDay {
		return true
	}
	if event.Sensitivity == "private" {
		return true
	}
	if event.ShowAs == "free" {
		return true
	}
	if event.Start.DateTime == "" || event.End.DateTime == "" {
		return true
	}
	return false
}

// DatedInterval is an interval together with the date it belongs to.
type DatedInterval struct {
	Date     string
	Interval model.TimeInterval
}

// EventIntervals converts an event into day intervals in loc. An event
// crossing midnight is split; the part before midnight stops at 23:59:59.
func EventIntervals(event CalendarEvent, loc *time.Location) ([]DatedInterval, error) {
	start, err := parseGraphTime(event.Start.DateTime, loc)
	if err != nil {
		return nil, fmt.Errorf("parsing start time: %w", err)
	}
	end, err := parseGraphTime(event.End.DateTime, loc)
	if err != nil {
		return nil, fmt.Errorf("parsing end time: %w", err)
	}
	if !end.After(start) {
		return nil, fmt.Errorf("event ends at %s before it starts at %s", end.Format(time.RFC3339), start.Format(time.RFC3339))
	}

	reason := buildReason(event)
	var out []DatedInterval
	for day := timecalc.StartOfDay(start); day.Before(end); day = day.AddDate(0, 0, 1) {
		next := day.AddDate(0, 0, 1)
		from := timecalc.Midnight
		if start.After(day) {
			from = timecalc.ClockOf(start)
		}
		to := timecalc.LastSecond
		if end.Before(next) {
			to = timecalc.ClockOf(end)
		}
		if from >= to {
			continue
		}
		out = append(out, DatedInterval{
			Date:     timecalc.FormatDate(day),
			Interval: model.TimeInterval{Start: from, Stop: to, Reason: reason},
		})
	}
	return out, nil
}

// BuildIngest maps events to a single outlook/meeting batch for project.
// Days are ordered by date; intervals keep the order of the events.
func BuildIngest(events []CalendarEvent, opts SyncOptions) (tracker.IngestRequest, SyncResult) {
	out := opts.Out
	if out == nil {
		out = io.Discard
	}
	loc := loadLocation(opts.Timezone)

	var result SyncResult
	byDate := map[string][]model.TimeInterval{}
	for _, event := range events {
		if shouldSkip(event) {
			fmt.Fprintf(out, "  – Skipped:  %s\n", event.Subject)
			result.Skipped++
			continue
		}
		pieces, err := EventIntervals(event, loc)
		if err != nil {
			fmt.Fprintf(out, "  ! Error mapping event %q: %v\n", event.Subject, err)
			result.Errors++
			continue
		}
		var total timecalc.Duration
		for _, p := range pieces {
			byDate[p.Date] = append(byDate[p.Date], p.Interval)
			total += p.Interval.Duration()
		}
		fmt.Fprintf(out, "  ✓ Imported: %s (%s)\n", event.Subject, timecalc.FormatDuration(total.Seconds()))
		result.Imported++
	}

	req := tracker.IngestRequest{
		ProjectID: opts.Project,
		Source:    model.SourceOutlook,
		Category:  model.CategoryMeeting,
	}
	dates := make([]string, 0, len(byDate))
	for d := range byDate {
		dates = append(dates, d)
	}
	sort.Strings(dates)
	for _, d := range dates {
		req.Days = append(req.Days, tracker.IngestDay{Date: d, Intervals: byDate[d]})
	}
	return req, result
}

// SyncEvents maps events and merges them into the owner's meeting logs.
// Re-running a sync over the same events leaves the logs unchanged.
func SyncEvents(ctx context.Context, ing Ingester, events []CalendarEvent, opts SyncOptions, log *zap.Logger) (SyncResult, error) {
	req, result := BuildIngest(events, opts)
	if opts.DryRun || len(req.Days) == 0 {
		return result, nil
	}
	res, err := ing.IngestBatch(ctx, opts.OwnerID, req)
	result.Logs = len(res.Logs)
	if err != nil {
		return result, err
	}
	if log != nil {
		log.Info("outlook events merged",
			zap.String("owner", opts.OwnerID),
			zap.Int("imported", result.Imported),
			zap.Int("days", len(req.Days)),
			zap.Int("logs", result.Logs))
	}
	return result, nil
}
