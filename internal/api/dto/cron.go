package dto

import (
	"time"

	ierr "github.com/fitclub/billing/internal/errors"
	"github.com/fitclub/billing/internal/types"
)

// SweepRequest lets operators replay a sweep for a given day. Date defaults to today.
type SweepRequest struct {
	Date       string `json:"date,omitempty"`
	DaysBefore *int   `json:"days_before,omitempty"`
}

// GetDate returns the requested day, or fallback when none was given
func (r *SweepRequest) GetDate(fallback time.Time) (time.Time, error) {
	if r == nil || r.Date == "" {
		return fallback, nil
	}
	return types.ParseDate(r.Date)
}

// GetDaysBefore returns the reminder offset, or fallback when none was given
func (r *SweepRequest) GetDaysBefore(fallback int) (int, error) {
	if r == nil || r.DaysBefore == nil {
		return fallback, nil
	}
	if *r.DaysBefore < 0 {
		return 0, ierr.NewError("days_before cannot be negative").
			WithHint("Days before must be zero or more").
			WithReportableDetails(map[string]any{"days_before": *r.DaysBefore}).
			Mark(ierr.ErrValidation)
	}
	return *r.DaysBefore, nil
}

type SweepResponse struct {
	Sweep     string `json:"sweep"`
	Date      string `json:"date"`
	Scanned   int    `json:"scanned"`
	Processed int    `json:"processed"`
	Skipped   int    `json:"skipped"`
	Failed    int    `json:"failed"`
}
