package models

import (
	"time"
)

// DateLayout is the calendar-date format used on every draw boundary.
const DateLayout = "2006-01-02"

// DrawMode tells the backend where participants come from.
type DrawMode string

const (
	DrawModeLiveFeed        DrawMode = "LIVE_FEED"
	DrawModeWeightedEntries DrawMode = "WEIGHTED_ENTRIES"
)

// DrawRequest is a draw submission. Entries is nil for live-feed draws.
type DrawRequest struct {
	DrawDate         time.Time          `json:"drawDate"`
	PrizeStructureID string             `json:"prizeStructureId"`
	Entries          []ParticipantEntry `json:"entries,omitempty"`
}

// HasEntries reports whether the request carries an uploaded participant list.
func (r DrawRequest) HasEntries() bool {
	return len(r.Entries) > 0
}

// Mode returns the draw mode implied by the request.
func (r DrawRequest) Mode() DrawMode {
	if r.HasEntries() {
		return DrawModeWeightedEntries
	}
	return DrawModeLiveFeed
}

// DateString formats the draw date as YYYY-MM-DD.
func (r DrawRequest) DateString() string {
	return r.DrawDate.Format(DateLayout)
}

// DrawResult is the outcome of a successful execute or rerun call.
type DrawResult struct {
	DrawID  string         `json:"drawId"`
	Date    time.Time      `json:"date"`
	Winners []WinnerRecord `json:"winners"`
}

// DrawSummary is one row of the draw list view.
type DrawSummary struct {
	ID               string    `json:"id"`
	Date             time.Time `json:"date"`
	PrizeStructureID string    `json:"prizeStructureId,omitempty"`
	Status           string    `json:"status,omitempty"`
}

// TruncateToDate drops the clock part of t, keeping its calendar date in UTC.
func TruncateToDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD string. RFC3339 timestamps are accepted and
// truncated to their date, since backends send both.
func ParseDate(s string) (time.Time, error) {
	if t, err := time.Parse(DateLayout, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, err
	}
	return TruncateToDate(t), nil
}
