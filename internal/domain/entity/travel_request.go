package entity

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/garyjia/travel-approval/internal/domain/apperr"
	"github.com/garyjia/travel-approval/internal/domain/role"
)

// TravelRequest represents one proposed trip moving through the approval lifecycle
type TravelRequest struct {
	ID            int64     `json:"id"`
	RequesterID   int64     `json:"requesterId"`
	TravelerID    int64     `json:"travelerId"`
	Origin        string    `json:"origin"`
	Destination   string    `json:"destination"`
	Destinations  []string  `json:"destinations,omitempty"` // optional multi-leg route
	DepartureDate time.Time `json:"departureDate"`
	ReturnDate    time.Time `json:"returnDate"`
	Purpose       string    `json:"purpose"`
	CustomPurpose string    `json:"customPurpose,omitempty"`
	ProjectID     *int64    `json:"projectId,omitempty"`
	Status        string    `json:"status"`

	// Decision metadata, set by both approve and reject
	PMDecidedBy       *int64     `json:"pmDecidedBy,omitempty"`
	PMDecidedAt       *time.Time `json:"pmDecidedAt,omitempty"`
	PMRejectionReason string     `json:"pmRejectionReason,omitempty"`

	// Empty until approval
	AssignedOperationsTeam string `json:"assignedOperationsTeam,omitempty"`

	OperationsCompletedBy *int64           `json:"operationsCompletedBy,omitempty"`
	OperationsCompletedAt *time.Time       `json:"operationsCompletedAt,omitempty"`
	ActualTotalCost       *decimal.Decimal `json:"actualTotalCost,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Validate checks the caller-supplied fields of a new request
func (r *TravelRequest) Validate() error {
	if r.RequesterID <= 0 {
		return apperr.InvalidInput("requester is required")
	}
	if strings.TrimSpace(r.Origin) == "" {
		return apperr.InvalidInput("origin is required")
	}
	if strings.TrimSpace(r.Destination) == "" {
		return apperr.InvalidInput("destination is required")
	}
	for i, leg := range r.Destinations {
		if strings.TrimSpace(leg) == "" {
			return apperr.InvalidInput("destinations[%d] is empty", i)
		}
	}
	if r.DepartureDate.IsZero() {
		return apperr.InvalidInput("departureDate is required")
	}
	if r.ReturnDate.IsZero() {
		return apperr.InvalidInput("returnDate is required")
	}
	if r.DepartureDate.After(r.ReturnDate) {
		return apperr.InvalidInput("departureDate %s is after returnDate %s",
			r.DepartureDate.Format(DateLayout), r.ReturnDate.Format(DateLayout))
	}
	if !IsValidPurpose(r.Purpose) {
		return apperr.InvalidInput("purpose %q is not one of delivery, sales, event, other", r.Purpose)
	}
	if r.Purpose == PurposeOther && strings.TrimSpace(r.CustomPurpose) == "" {
		return apperr.InvalidInput("customPurpose is required when purpose is other")
	}
	return nil
}

// IsTerminal reports whether no further transition can apply
func (r *TravelRequest) IsTerminal() bool {
	return r.Status == StatusPMRejected || r.Status == StatusOperationsCompleted
}

// CheckAssignedTeam enforces that region-team work on the request is done by its
// assigned operations team. Admins pass once a team is assigned.
func (r *TravelRequest) CheckAssignedTeam(actor *role.Actor) error {
	if r.AssignedOperationsTeam == "" {
		return apperr.Conflict("request %d has no assigned operations team (status %s)", r.ID, r.Status)
	}
	if actor.IsAdmin() {
		return nil
	}
	if effective := role.EffectiveRole(actor); string(effective) != r.AssignedOperationsTeam {
		return apperr.Forbidden("request %d is assigned to %s, not %s", r.ID, r.AssignedOperationsTeam, effective)
	}
	return nil
}

// Clone returns a deep copy so callers can mutate without touching the original snapshot
func (r *TravelRequest) Clone() *TravelRequest {
	if r == nil {
		return nil
	}
	c := *r
	if r.Destinations != nil {
		c.Destinations = append([]string(nil), r.Destinations...)
	}
	c.ProjectID = cloneInt64(r.ProjectID)
	c.PMDecidedBy = cloneInt64(r.PMDecidedBy)
	c.PMDecidedAt = cloneTime(r.PMDecidedAt)
	c.OperationsCompletedBy = cloneInt64(r.OperationsCompletedBy)
	c.OperationsCompletedAt = cloneTime(r.OperationsCompletedAt)
	if r.ActualTotalCost != nil {
		v := *r.ActualTotalCost
		c.ActualTotalCost = &v
	}
	return &c
}

// ParseDate parses a YYYY-MM-DD date, also accepting full RFC3339 timestamps
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(DateLayout, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, apperr.InvalidInput("date %q must be YYYY-MM-DD", s)
	}
	return t, nil
}

func cloneInt64(p *int64) *int64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneTime(p *time.Time) *time.Time {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
