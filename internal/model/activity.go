package model

import (
	"time"

	"github.com/Tiliavir/ttt-timesheet/internal/timecalc"
)

// ActivitySample is an independently measured utilisation rate (0-100)
// over a span of the day.
type ActivitySample struct {
	ID        string         `json:"id"`
	OwnerID   string         `json:"owner_id"`
	Start     timecalc.Clock `json:"start"`
	End       timecalc.Clock `json:"end"`
	StartDate string         `json:"start_date"`
	EndDate   string         `json:"end_date"`
	Rate      float64        `json:"rate"`
}

// ScreenshotCapture is a periodic screen capture. CaptureTime is derived
// from Reference; stores persist it only as a cache, and bucketing always
// re-derives it from Reference.
type ScreenshotCapture struct {
	ID          string    `json:"id"`
	OwnerID     string    `json:"owner_id"`
	Reference   string    `json:"reference"`
	CaptureTime time.Time `json:"capture_time"`
}

// Project maps a project id to its display name.
type Project struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// UnknownProject is the display name for unresolved project ids.
const UnknownProject = "Unknown"
