package service

import (
	"github.com/garyjia/travel-approval/internal/application/port"
	"github.com/garyjia/travel-approval/internal/domain/entity"
	"github.com/garyjia/travel-approval/internal/domain/event"
	"github.com/garyjia/travel-approval/internal/domain/role"
)

// ResolveRecipients selects who is told about an event, from the request snapshot
// and a set of candidate users. The result is deduplicated by email, skips users
// without an email and keeps candidate order.
func ResolveRecipients(eventType event.Type, req *entity.TravelRequest, users []*entity.User) []port.Recipient {
	if req == nil {
		return nil
	}

	var match func(u *entity.User) bool
	switch eventType {
	case event.TypeRequestSubmitted:
		match = func(u *entity.User) bool { return u.Role == role.PM }

	case event.TypeRequestApproved:
		team := role.Role(req.AssignedOperationsTeam)
		match = func(u *entity.User) bool { return team != "" && u.Role == team }

	case event.TypeRequestRejected:
		match = func(u *entity.User) bool { return u.ID == req.RequesterID || u.ID == req.TravelerID }

	case event.TypeBookingCompleted:
		match = func(u *entity.User) bool {
			return u.ID == req.RequesterID || (req.PMDecidedBy != nil && u.ID == *req.PMDecidedBy)
		}

	default:
		return nil
	}

	seen := make(map[string]bool)
	var recipients []port.Recipient
	for _, u := range users {
		if u == nil || !match(u) {
			continue
		}
		email := entity.NormalizeEmail(u.Email)
		if email == "" || seen[email] {
			continue
		}
		seen[email] = true
		recipients = append(recipients, port.Recipient{Email: email, Role: string(u.Role)})
	}
	return recipients
}
