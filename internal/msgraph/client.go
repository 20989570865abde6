package msgraph

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
)

const graphBaseURL = "https://graph.microsoft.com/v1.0"

// Client is an authenticated Microsoft Graph API client.
type Client struct {
	rc *resty.Client
}

// Option customises a Client.
type Option func(*Client)

// WithBaseURL points the client at another Graph endpoint, e.g. a test server.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.rc.SetBaseURL(u) }
}

// WithRetries sets how often a failed request is retried.
func WithRetries(n int) Option {
	return func(c *Client) { c.rc.SetRetryCount(n) }
}

// NewClient wraps httpClient, which is expected to attach the bearer token
// (see Authenticator.HTTPClient).
func NewClient(httpClient *http.Client, opts ...Option) *Client {
	rc := resty.NewWithClient(httpClient).
		SetBaseURL(graphBaseURL).
		SetHeader("Accept", "application/json").
		SetRetryCount(2).
		SetRetryWaitTime(500 * time.Millisecond).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err == nil && (r.StatusCode() == http.StatusTooManyRequests || r.StatusCode() >= 500)
		})
	c := &Client{rc: rc}
	for _, o := range opts {
		o(c)
	}
	return c
}

// EventTime is a Graph dateTimeTimeZone value.
type EventTime struct {
	DateTime string `json:"dateTime"`
	TimeZone string `json:"timeZone"`
}

// CalendarEvent represents a Microsoft Graph calendar event.
type CalendarEvent struct {
	ID          string    `json:"id"`
	Subject     string    `json:"subject"`
	BodyPreview string    `json:"bodyPreview"`
	IsAllDay    bool      `json:"isAllDay"`
	IsCancelled bool      `json:"isCancelled"`
	Sensitivity string    `json:"sensitivity"` // "normal", "personal", "private", "confidential"
	ShowAs      string    `json:"showAs"`      // "free", "tentative", "busy", "oof", "workingElsewhere", "unknown"
	Start       EventTime `json:"start"`
	End         EventTime `json:"end"`
	Location    struct {
		DisplayName string `json:"displayName"`
	} `json:"location"`
}

type calendarViewResponse struct {
	Value    []CalendarEvent `json:"value"`
	NextLink string          `json:"@odata.nextLink"`
}

// GetCalendarView fetches calendar events in [from, to) using the calendarView endpoint.
// timezone is an IANA timezone name (e.g. "Europe/Berlin"); pass "" for UTC.
func (c *Client) GetCalendarView(ctx context.Context, from, to time.Time, timezone string) ([]CalendarEvent, error) {
	var all []CalendarEvent
	next := ""
	for page := 0; ; page++ {
		var body calendarViewResponse
		req := c.rc.R().
			SetContext(ctx).
			SetResult(&body).
			ForceContentType("application/json")
		if timezone != "" {
			req.SetHeader("Prefer", fmt.Sprintf(`outlook.timezone="%s"`, timezone))
		}

		var (
			resp *resty.Response
			err  error
		)
		if page == 0 {
			resp, err = req.SetQueryParams(map[string]string{
				"startDateTime": from.UTC().Format(time.RFC3339),
				"endDateTime":   to.UTC().Format(time.RFC3339),
				"$top":          "100",
			}).Get("/me/calendarView")
		} else {
			// nextLink is absolute and already carries the query.
			resp, err = req.Get(next)
		}
		if err != nil {
			return nil, fmt.Errorf("graph API request failed: %w", err)
		}
		if resp.IsError() {
			return nil, fmt.Errorf("graph API error %d: %s", resp.StatusCode(), resp.String())
		}

		all = append(all, body.Value...)
		if body.NextLink == "" {
			return all, nil
		}
		next = body.NextLink
	}
}
