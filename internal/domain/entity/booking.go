package entity

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/garyjia/travel-approval/internal/domain/apperr"
)

// Booking is a flight, hotel or other reservation attached to one TravelRequest
type Booking struct {
	ID              int64           `json:"id"`
	TravelRequestID int64           `json:"travelRequestId"`
	Type            string          `json:"type"`
	Provider        string          `json:"provider"`
	Cost            decimal.Decimal `json:"cost"`
	Reference       string          `json:"reference,omitempty"`
	Status          string          `json:"status"`
	CreatedBy       int64           `json:"createdBy"`
	CreatedAt       time.Time       `json:"createdAt"`
}

// Validate checks a booking before it is attached
func (b *Booking) Validate() error {
	if b.TravelRequestID <= 0 {
		return apperr.InvalidInput("travelRequestId is required")
	}
	if !validBookingTypes[b.Type] {
		return apperr.InvalidInput("booking type %q is not one of flight, hotel, other", b.Type)
	}
	if strings.TrimSpace(b.Provider) == "" {
		return apperr.InvalidInput("provider is required")
	}
	if b.Cost.IsNegative() {
		return apperr.InvalidInput("cost must not be negative")
	}
	if b.Status != "" && !validBookingStatuses[b.Status] {
		return apperr.InvalidInput("booking status %q is not valid", b.Status)
	}
	return nil
}

// CostSummary aggregates the cost of the bookings attached to a request
type CostSummary struct {
	BookingCount int             `json:"bookingCount"`
	Total        decimal.Decimal `json:"total"`
}

// SummarizeCosts sums booking costs, skipping cancelled bookings
func SummarizeCosts(bookings []*Booking) CostSummary {
	summary := CostSummary{Total: decimal.Zero}
	for _, b := range bookings {
		if b == nil || b.Status == BookingStatusCancelled {
			continue
		}
		summary.BookingCount++
		summary.Total = summary.Total.Add(b.Cost)
	}
	return summary
}
