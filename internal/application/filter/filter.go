// Package filter projects the shared travel request table into per-role views.
package filter

import (
	"github.com/garyjia/travel-approval/internal/domain/apperr"
	"github.com/garyjia/travel-approval/internal/domain/entity"
	"github.com/garyjia/travel-approval/internal/domain/role"
)

// Flags are the caller-supplied list query options
type Flags struct {
	NeedsApproval  bool
	MyRequestsOnly bool
	History        bool
	ProjectID      *int64
	Status         string
	Limit          int
	Offset         int
}

// Filter is the predicate produced for one actor. Zero-valued fields do not constrain.
type Filter struct {
	// RequesterID forces requester_id equality
	RequesterID *int64
	// Statuses forces status membership
	Statuses []string
	// AssignedTeam forces assigned_operations_team equality
	AssignedTeam string

	// Orthogonal filters ANDed on top of the role-forced predicate
	ProjectID *int64
	Status    string

	Limit  int
	Offset int
}

const (
	DefaultLimit = 100
	MaxLimit     = 500
)

// Build computes the list predicate for the actor's effective role.
// Manager and operations predicates are forced regardless of flags.
func Build(actor *role.Actor, flags Flags) (Filter, error) {
	if actor == nil || actor.ID == 0 {
		return Filter{}, apperr.Unauthenticated("no authenticated actor")
	}
	if flags.Status != "" && !entity.IsValidStatus(flags.Status) {
		return Filter{}, apperr.InvalidInput("unknown status %q", flags.Status)
	}
	if flags.Limit < 0 || flags.Offset < 0 {
		return Filter{}, apperr.InvalidInput("limit and offset must not be negative")
	}

	f := Filter{
		ProjectID: flags.ProjectID,
		Status:    flags.Status,
		Limit:     flags.Limit,
		Offset:    flags.Offset,
	}
	if f.Limit == 0 {
		f.Limit = DefaultLimit
	}
	if f.Limit > MaxLimit {
		f.Limit = MaxLimit
	}

	effective := role.EffectiveRole(actor)
	switch {
	case effective == role.Manager:
		id := actor.ID
		f.RequesterID = &id

	case effective == role.PM || effective == role.Admin:
		if flags.MyRequestsOnly {
			id := actor.ID
			f.RequesterID = &id
		} else if flags.NeedsApproval {
			f.Statuses = []string{entity.StatusSubmitted}
		}

	case effective.IsOperationsTeam():
		f.AssignedTeam = string(effective)
		if flags.History {
			f.Statuses = []string{entity.StatusPMRejected, entity.StatusOperationsCompleted}
		} else {
			f.Statuses = []string{entity.StatusPMApproved}
		}

	default:
		return Filter{}, apperr.Forbidden("role %q has no request view", effective)
	}

	return f, nil
}

// Matches reports whether a request falls inside the filter. Paging is ignored.
func (f Filter) Matches(r *entity.TravelRequest) bool {
	if r == nil {
		return false
	}
	if f.RequesterID != nil && r.RequesterID != *f.RequesterID {
		return false
	}
	if f.AssignedTeam != "" && r.AssignedOperationsTeam != f.AssignedTeam {
		return false
	}
	if len(f.Statuses) > 0 && !contains(f.Statuses, r.Status) {
		return false
	}
	if f.Status != "" && r.Status != f.Status {
		return false
	}
	if f.ProjectID != nil && (r.ProjectID == nil || *r.ProjectID != *f.ProjectID) {
		return false
	}
	return true
}

// Unrestricted reports whether the filter only pages
func (f Filter) Unrestricted() bool {
	return f.RequesterID == nil && f.AssignedTeam == "" && len(f.Statuses) == 0 &&
		f.Status == "" && f.ProjectID == nil
}

// WithoutPaging returns a copy that selects every matching row
func (f Filter) WithoutPaging() Filter {
	f.Limit = 0
	f.Offset = 0
	return f
}

func contains(values []string, v string) bool {
	for _, s := range values {
		if s == v {
			return true
		}
	}
	return false
}
