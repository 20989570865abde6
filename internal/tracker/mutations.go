package tracker

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/Tiliavir/ttt-timesheet/internal/apperr"
	"github.com/Tiliavir/ttt-timesheet/internal/interval"
	"github.com/Tiliavir/ttt-timesheet/internal/model"
	"github.com/Tiliavir/ttt-timesheet/internal/screenshot"
	"github.com/Tiliavir/ttt-timesheet/internal/timecalc"
)

// IngestDay is one date's worth of reported intervals.
type IngestDay struct {
	Date      string               `json:"date"`
	Intervals []model.TimeInterval `json:"intervals"`
}

// IngestRequest is a batch from a tracking client. Every day is merged into
// the DayLog keyed by (owner, date, project, source, category).
type IngestRequest struct {
	ProjectID string      `json:"project_id"`
	Source    string      `json:"source"`
	Category  string      `json:"category"`
	Days      []IngestDay `json:"days"`
}

// IngestResult lists the logs as stored after merging.
type IngestResult struct {
	Logs []model.DayLog `json:"logs"`
}

// IngestBatch merges each day of req into its DayLog. The whole request is
// validated before anything is written; days are then applied one by one.
func (s *Service) IngestBatch(ctx context.Context, ownerID string, req IngestRequest) (IngestResult, error) {
	if err := validateIngest(ownerID, req); err != nil {
		return IngestResult{}, err
	}

	var res IngestResult
	for _, day := range req.Days {
		if len(day.Intervals) == 0 {
			continue
		}
		key := model.LogKey{OwnerID: ownerID, Date: day.Date, ProjectID: req.ProjectID, Source: req.Source, Category: req.Category}
		var stored model.DayLog
		err := s.withDayLock(ctx, ownerID, day.Date, func() error {
			l, err := s.loadOrNew(ctx, key)
			if err != nil {
				return err
			}
			merged := interval.Merge(l.Intervals, day.Intervals)
			if l.Version > 0 && sameIntervals(l.Intervals, merged) {
				stored = l
				return nil
			}
			l.Intervals = merged
			stored, err = s.store.UpsertLog(ctx, l)
			return apperr.Store("upsert day log", err)
		})
		if err != nil {
			return res, s.fail("ingest", err, zap.String("key", key.String()))
		}
		res.Logs = append(res.Logs, stored)
	}
	return res, nil
}

func validateIngest(ownerID string, req IngestRequest) error {
	for _, f := range []struct{ name, value string }{
		{"owner", ownerID}, {"source", req.Source}, {"category", req.Category},
	} {
		if err := requireField(f.name, f.value); err != nil {
			return err
		}
	}
	if len(req.Days) == 0 {
		return apperr.Validation("batch has no days")
	}
	for _, day := range req.Days {
		if _, err := timecalc.ParseDate(day.Date); err != nil {
			return apperr.Validation("date: %v", err)
		}
		for _, iv := range day.Intervals {
			if err := iv.Validate(); err != nil {
				return apperr.Validation("%s: %v", day.Date, err)
			}
		}
	}
	return nil
}

func (s *Service) loadOrNew(ctx context.Context, key model.LogKey) (model.DayLog, error) {
	l, ok, err := s.store.GetLog(ctx, key)
	if err != nil {
		return model.DayLog{}, apperr.Store("get day log", err)
	}
	if !ok {
		return model.NewDayLog(key), nil
	}
	return l, nil
}

func sameIntervals(a, b []model.TimeInterval) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// AddRequest adds one interval by hand. Times accept HH:MM:SS, HH:MM or
// hh:mm:ss AM/PM.
type AddRequest struct {
	OwnerID   string `json:"owner_id"`
	Date      string `json:"date"`
	ProjectID string `json:"project_id"`
	Source    string `json:"source"`
	Category  string `json:"category"`
	Start     string `json:"start"`
	Stop      string `json:"stop"`
	Reason    string `json:"reason,omitempty"`
}

// AddInterval appends an interval after checking it against every interval
// the owner has on that date, across all DayLogs. It never merges. A manual
// add also records an activity sample at the configured manual rate.
func (s *Service) AddInterval(ctx context.Context, req AddRequest) (model.DayLog, error) {
	if req.Source == "" {
		req.Source = model.SourceBrowser
	}
	if req.Category == "" {
		req.Category = model.CategoryManual
	}
	if err := requireField("owner", req.OwnerID); err != nil {
		return model.DayLog{}, err
	}
	if _, err := timecalc.ParseDate(req.Date); err != nil {
		return model.DayLog{}, apperr.Validation("date: %v", err)
	}
	candidate, err := parseSpan(req.Start, req.Stop)
	if err != nil {
		return model.DayLog{}, err
	}
	candidate.Reason = req.Reason

	key := model.LogKey{OwnerID: req.OwnerID, Date: req.Date, ProjectID: req.ProjectID, Source: req.Source, Category: req.Category}
	var stored model.DayLog
	err = s.withDayLock(ctx, req.OwnerID, req.Date, func() error {
		logs, err := s.store.FindLogs(ctx, req.OwnerID, req.Date, req.Date, model.LogFilter{})
		if err != nil {
			return apperr.Store("find logs", err)
		}
		var all []model.TimeInterval
		target := model.NewDayLog(key)
		for _, l := range logs {
			all = append(all, l.Intervals...)
			if l.Key() == key {
				target = l
			}
		}
		if err := interval.CheckOverlap(all, candidate, -1); err != nil {
			return err
		}
		target.Intervals = append(append([]model.TimeInterval{}, target.Intervals...), candidate)
		stored, err = s.store.UpsertLog(ctx, target)
		return apperr.Store("upsert day log", err)
	})
	if err != nil {
		return model.DayLog{}, s.fail("add", err, zap.String("key", key.String()))
	}

	if req.Category == model.CategoryManual && s.opts.ManualActivityRate > 0 {
		_, err := s.store.SaveActivity(ctx, model.ActivitySample{
			OwnerID:   req.OwnerID,
			Start:     candidate.Start,
			End:       candidate.Stop,
			StartDate: req.Date,
			EndDate:   req.Date,
			Rate:      s.opts.ManualActivityRate,
		})
		if err != nil {
			return stored, s.fail("add", apperr.Store("save manual activity", err), zap.String("key", key.String()))
		}
	}
	return stored, nil
}

// IntervalRef locates an existing interval by its exact start and stop.
// Empty ProjectID, Source or Category match any DayLog of the date.
type IntervalRef struct {
	OwnerID   string `json:"owner_id"`
	Date      string `json:"date"`
	ProjectID string `json:"project_id,omitempty"`
	Source    string `json:"source,omitempty"`
	Category  string `json:"category,omitempty"`
	Start     string `json:"start"`
	Stop      string `json:"stop"`
}

func (r IntervalRef) filter() model.LogFilter {
	var f model.LogFilter
	if r.ProjectID != "" {
		f.Projects = []string{r.ProjectID}
	}
	if r.Source != "" {
		f.Sources = []string{r.Source}
	}
	if r.Category != "" {
		f.Categories = []string{r.Category}
	}
	return f
}

// EditRequest moves the referenced interval to NewStart-NewStop.
type EditRequest struct {
	IntervalRef
	NewStart string `json:"new_start"`
	NewStop  string `json:"new_stop"`
}

// DeleteRequest removes the referenced interval.
type DeleteRequest struct {
	IntervalRef
}

// locate finds the first DayLog matching ref that holds the interval.
func (s *Service) locate(ctx context.Context, ref IntervalRef) (model.DayLog, int, model.TimeInterval, error) {
	target, err := parseSpan(ref.Start, ref.Stop)
	if err != nil {
		return model.DayLog{}, -1, target, err
	}
	logs, err := s.store.FindLogs(ctx, ref.OwnerID, ref.Date, ref.Date, ref.filter())
	if err != nil {
		return model.DayLog{}, -1, target, apperr.Store("find logs", err)
	}
	if len(logs) == 0 {
		return model.DayLog{}, -1, target, apperr.NotFound("no log for %s on %s", ref.OwnerID, ref.Date)
	}
	for _, l := range logs {
		if i := interval.IndexOf(l.Intervals, target); i >= 0 {
			return l, i, target, nil
		}
	}
	return model.DayLog{}, -1, target, apperr.NotFound("no interval %s for %s on %s", target, ref.OwnerID, ref.Date)
}

func validateRef(ref IntervalRef) error {
	if err := requireField("owner", ref.OwnerID); err != nil {
		return err
	}
	if _, err := timecalc.ParseDate(ref.Date); err != nil {
		return apperr.Validation("date: %v", err)
	}
	return nil
}

// EditInterval replaces an interval's times after checking the new span
// against the other intervals of the same DayLog. The reason is kept.
func (s *Service) EditInterval(ctx context.Context, req EditRequest) (model.TimeInterval, error) {
	if err := validateRef(req.IntervalRef); err != nil {
		return model.TimeInterval{}, err
	}
	candidate, err := parseSpan(req.NewStart, req.NewStop)
	if err != nil {
		return model.TimeInterval{}, err
	}

	var updated model.TimeInterval
	err = s.withDayLock(ctx, req.OwnerID, req.Date, func() error {
		l, idx, _, err := s.locate(ctx, req.IntervalRef)
		if err != nil {
			return err
		}
		if err := interval.CheckOverlap(l.Intervals, candidate, idx); err != nil {
			return err
		}
		candidate.Reason = l.Intervals[idx].Reason
		next := append([]model.TimeInterval{}, l.Intervals...)
		next[idx] = candidate
		l.Intervals = next
		if _, err := s.store.UpsertLog(ctx, l); err != nil {
			return apperr.Store("upsert day log", err)
		}
		updated = candidate
		return nil
	})
	if err != nil {
		return model.TimeInterval{}, s.fail("edit", err, zap.String("scope", model.DayScope(req.OwnerID, req.Date)))
	}
	return updated, nil
}

// DeleteInterval removes an interval. The DayLog itself stays, possibly empty.
func (s *Service) DeleteInterval(ctx context.Context, req DeleteRequest) (model.DayLog, error) {
	if err := validateRef(req.IntervalRef); err != nil {
		return model.DayLog{}, err
	}
	if _, err := parseSpan(req.Start, req.Stop); err != nil {
		return model.DayLog{}, err
	}

	var stored model.DayLog
	err := s.withDayLock(ctx, req.OwnerID, req.Date, func() error {
		l, idx, _, err := s.locate(ctx, req.IntervalRef)
		if err != nil {
			return err
		}
		l.Intervals = interval.Remove(l.Intervals, idx)
		stored, err = s.store.UpsertLog(ctx, l)
		return apperr.Store("upsert day log", err)
	})
	if err != nil {
		return model.DayLog{}, s.fail("delete", err, zap.String("scope", model.DayScope(req.OwnerID, req.Date)))
	}
	return stored, nil
}

func parseSpan(start, stop string) (model.TimeInterval, error) {
	var iv model.TimeInterval
	var err error
	if iv.Start, err = timecalc.ParseClock(start); err != nil {
		return iv, apperr.Validation("start: %v", err)
	}
	if iv.Stop, err = timecalc.ParseClock(stop); err != nil {
		return iv, apperr.Validation("stop: %v", err)
	}
	if err := iv.Validate(); err != nil {
		return iv, apperr.Validation("%v", err)
	}
	return iv, nil
}

// RecordActivity stores an activity sample.
func (s *Service) RecordActivity(ctx context.Context, a model.ActivitySample) (model.ActivitySample, error) {
	if err := requireField("owner", a.OwnerID); err != nil {
		return a, err
	}
	start, err := timecalc.ParseDate(a.StartDate)
	if err != nil {
		return a, apperr.Validation("start date: %v", err)
	}
	end, err := timecalc.ParseDate(a.EndDate)
	if err != nil {
		return a, apperr.Validation("end date: %v", err)
	}
	switch {
	case end.Before(start):
		return a, apperr.Validation("end date %s is before start date %s", a.EndDate, a.StartDate)
	case !a.Start.Valid() || !a.End.Valid():
		return a, apperr.Validation("sample times must lie within a day")
	case a.StartDate == a.EndDate && a.Start > a.End:
		return a, apperr.Validation("sample start %s is after end %s", a.Start, a.End)
	case a.Rate < 0 || a.Rate > 100:
		return a, apperr.Validation("activity rate %.2f is outside 0-100", a.Rate)
	}
	saved, err := s.store.SaveActivity(ctx, a)
	if err != nil {
		return a, s.fail("record activity", apperr.Store("save activity", err), zap.String("owner", a.OwnerID))
	}
	return saved, nil
}

// RegisterCapture stores screenshot metadata. A reference without an
// embedded timestamp is rejected.
func (s *Service) RegisterCapture(ctx context.Context, ownerID, reference string) (model.ScreenshotCapture, error) {
	if err := requireField("owner", ownerID); err != nil {
		return model.ScreenshotCapture{}, err
	}
	at, err := screenshot.ParseCaptureTime(reference)
	if err != nil {
		return model.ScreenshotCapture{}, fmt.Errorf("%w: %w", apperr.ErrValidation, err)
	}
	saved, err := s.store.SaveCapture(ctx, model.ScreenshotCapture{OwnerID: ownerID, Reference: reference, CaptureTime: at})
	if err != nil {
		return model.ScreenshotCapture{}, s.fail("register capture", apperr.Store("save capture", err), zap.String("owner", ownerID))
	}
	return saved, nil
}

// SaveProject creates or renames a project.
func (s *Service) SaveProject(ctx context.Context, p model.Project) error {
	if err := requireField("project id", p.ID); err != nil {
		return err
	}
	if err := requireField("project name", p.Name); err != nil {
		return err
	}
	return s.fail("save project", apperr.Store("save project", s.store.SaveProject(ctx, p)), zap.String("project", p.ID))
}
