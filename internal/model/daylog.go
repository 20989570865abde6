package model

import (
	"fmt"

	"github.com/Tiliavir/ttt-timesheet/internal/timecalc"
)

// Well-known DayLog sources and categories. Other tags are accepted as-is.
const (
	SourceBrowser = "browser"
	SourceDesktop = "desktop"
	SourceOutlook = "outlook"

	CategoryManual  = "manual"
	CategoryIdle    = "idle"
	CategoryTracked = "tracked"
	CategoryMeeting = "meeting"
)

// TimeInterval is one worked span within a day. Start must precede Stop.
type TimeInterval struct {
	Start  timecalc.Clock `json:"start"`
	Stop   timecalc.Clock `json:"stop"`
	Reason string         `json:"reason,omitempty"`
}

// Duration returns Stop - Start.
func (i TimeInterval) Duration() timecalc.Duration {
	return i.Stop.Sub(i.Start)
}

// Validate checks the start < stop invariant.
func (i TimeInterval) Validate() error {
	if !i.Start.Valid() || !i.Stop.Valid() {
		return fmt.Errorf("interval %s-%s is outside a single day", i.Start, i.Stop)
	}
	if i.Start >= i.Stop {
		return fmt.Errorf("interval start %s must be before stop %s", i.Start, i.Stop)
	}
	return nil
}

func (i TimeInterval) String() string {
	return i.Start.String() + "-" + i.Stop.String()
}

// LogKey identifies a DayLog.
type LogKey struct {
	OwnerID   string `json:"owner_id"`
	Date      string `json:"date"`
	ProjectID string `json:"project_id,omitempty"`
	Source    string `json:"source"`
	Category  string `json:"category"`
}

func (k LogKey) String() string {
	return fmt.Sprintf("%s/%s/%s/%s/%s", k.OwnerID, k.Date, k.ProjectID, k.Source, k.Category)
}

// DayScope returns the owner/date prefix shared by every DayLog of that day.
func (k LogKey) DayScope() string {
	return DayScope(k.OwnerID, k.Date)
}

// DayScope names the owner/date pair used to serialise mutations.
func DayScope(ownerID, date string) string {
	return ownerID + "/" + date
}

// DayLog is the interval collection for one LogKey. Version increments on
// every successful write and is used for optimistic concurrency.
type DayLog struct {
	ID        string         `json:"id"`
	OwnerID   string         `json:"owner_id"`
	Date      string         `json:"date"`
	ProjectID string         `json:"project_id,omitempty"`
	Source    string         `json:"source"`
	Category  string         `json:"category"`
	Version   int64          `json:"version"`
	Intervals []TimeInterval `json:"intervals"`
}

// Key returns the uniqueness key of the log.
func (l DayLog) Key() LogKey {
	return LogKey{
		OwnerID:   l.OwnerID,
		Date:      l.Date,
		ProjectID: l.ProjectID,
		Source:    l.Source,
		Category:  l.Category,
	}
}

// NewDayLog returns an empty, unversioned log for key.
func NewDayLog(key LogKey) DayLog {
	return DayLog{
		OwnerID:   key.OwnerID,
		Date:      key.Date,
		ProjectID: key.ProjectID,
		Source:    key.Source,
		Category:  key.Category,
		Intervals: []TimeInterval{},
	}
}

// TotalDuration sums the durations of all intervals.
func (l DayLog) TotalDuration() timecalc.Duration {
	var total timecalc.Duration
	for _, iv := range l.Intervals {
		total = total.Add(iv.Duration())
	}
	return total
}

// LogFilter narrows a log query. Empty slices match everything.
type LogFilter struct {
	Projects   []string `json:"projects,omitempty"`
	Sources    []string `json:"sources,omitempty"`
	Categories []string `json:"categories,omitempty"`
}

// Match reports whether l passes the filter.
func (f LogFilter) Match(l DayLog) bool {
	return matchAny(f.Projects, l.ProjectID) &&
		matchAny(f.Sources, l.Source) &&
		matchAny(f.Categories, l.Category)
}

func matchAny(allowed []string, v string) bool {
	if len(allowed) == 0 {
		return true
	}
	for _, a := range allowed {
		if a == v {
			return true
		}
	}
	return false
}
