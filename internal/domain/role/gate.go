// Package role holds the role model and the gate that decides which roles may
// perform which operation.
package role

import (
	"github.com/garyjia/travel-approval/internal/domain/apperr"
)

// Operation names an action guarded by the gate
type Operation string

const (
	OpCreateRequest     Operation = "create_request"
	OpListRequests      Operation = "list_requests"
	OpViewRequest       Operation = "view_request"
	OpApproveRequest    Operation = "approve_request"
	OpRejectRequest     Operation = "reject_request"
	OpCompleteRequest   Operation = "complete_request"
	OpDeleteRequest     Operation = "delete_request"
	OpExportRequests    Operation = "export_requests"
	OpCreateBooking     Operation = "create_booking"
	OpListBookings      Operation = "list_bookings"
	OpListProjects      Operation = "list_projects"
	OpManageUsers       Operation = "manage_users"
	OpSwitchActiveRole  Operation = "switch_active_role"
	OpListNotifications Operation = "list_notifications"
	OpRetryNotification Operation = "retry_notification"
)

var everyone = []Role{Manager, PM, OperationsKSA, OperationsUAE, Admin}

// policy is the single source of truth for {operation -> allowed roles}
var policy = map[Operation][]Role{
	OpCreateRequest:     {Manager, PM},
	OpListRequests:      everyone,
	OpViewRequest:       everyone,
	OpApproveRequest:    {PM, Admin},
	OpRejectRequest:     {PM, Admin},
	OpCompleteRequest:   {OperationsKSA, OperationsUAE},
	OpDeleteRequest:     {Admin},
	OpExportRequests:    {PM, Admin},
	OpCreateBooking:     {OperationsKSA, OperationsUAE},
	OpListBookings:      everyone,
	OpListProjects:      everyone,
	OpManageUsers:       {Admin},
	OpSwitchActiveRole:  {Admin},
	OpListNotifications: {Admin},
	OpRetryNotification: {Admin},
}

// Outcome is the result kind of an authorization decision
type Outcome int

const (
	Allow Outcome = iota
	DenyUnauthenticated
	DenyForbidden
)

// Decision is the result of Authorize
type Decision struct {
	Outcome Outcome
	Reason  string
}

// Allowed returns true when the operation may proceed
func (d Decision) Allowed() bool {
	return d.Outcome == Allow
}

// Err converts a denial into an apperr error, nil when allowed
func (d Decision) Err() error {
	switch d.Outcome {
	case DenyUnauthenticated:
		return apperr.Unauthenticated("%s", d.Reason)
	case DenyForbidden:
		return apperr.Forbidden("%s", d.Reason)
	default:
		return nil
	}
}

// AllowedRoles returns a copy of the allow-list declared for op
func AllowedRoles(op Operation) []Role {
	roles := policy[op]
	out := make([]Role, len(roles))
	copy(out, roles)
	return out
}

// Authorize decides whether actor may perform op. It has no side effects.
// Admins pass every check regardless of their effective role.
func Authorize(actor *Actor, op Operation) Decision {
	if actor == nil || actor.ID == 0 {
		return Decision{Outcome: DenyUnauthenticated, Reason: "authentication required"}
	}

	allowed, known := policy[op]
	if !known {
		return Decision{Outcome: DenyForbidden, Reason: "unknown operation " + string(op)}
	}

	if actor.IsAdmin() {
		return Decision{Outcome: Allow}
	}

	effective := EffectiveRole(actor)
	for _, r := range allowed {
		if r == effective {
			return Decision{Outcome: Allow}
		}
	}

	return Decision{
		Outcome: DenyForbidden,
		Reason:  "role " + effective.String() + " may not " + string(op),
	}
}
