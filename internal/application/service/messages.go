package service

import (
	"fmt"
	"strings"

	"github.com/garyjia/travel-approval/internal/domain/entity"
	"github.com/garyjia/travel-approval/internal/domain/event"
)

// composeMessage renders the subject and body sent for an event
func composeMessage(evt *event.Event) (subject, body string) {
	req := evt.Request
	route := fmt.Sprintf("%s → %s", req.Origin, req.Destination)
	if len(req.Destinations) > 0 {
		route = req.Origin + " → " + strings.Join(req.Destinations, " → ")
	}
	dates := fmt.Sprintf("%s to %s", req.DepartureDate.Format(entity.DateLayout), req.ReturnDate.Format(entity.DateLayout))

	purpose := req.Purpose
	if req.Purpose == entity.PurposeOther && req.CustomPurpose != "" {
		purpose = req.CustomPurpose
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Route: %s\nDates: %s\nPurpose: %s\n", route, dates, purpose)

	switch evt.Type {
	case event.TypeRequestSubmitted:
		subject = fmt.Sprintf("Travel request #%d awaits your approval", req.ID)

	case event.TypeRequestApproved:
		subject = fmt.Sprintf("Travel request #%d approved for %s", req.ID, req.AssignedOperationsTeam)
		b.WriteString("Please arrange the bookings for this trip.\n")

	case event.TypeRequestRejected:
		subject = fmt.Sprintf("Travel request #%d was rejected", req.ID)
		fmt.Fprintf(&b, "Reason: %s\n", req.PMRejectionReason)

	case event.TypeBookingCompleted:
		subject = fmt.Sprintf("Travel request #%d bookings completed", req.ID)
		if req.ActualTotalCost != nil {
			fmt.Fprintf(&b, "Total cost: %s\n", req.ActualTotalCost.StringFixed(2))
		}
		if n := evt.GetPayloadInt("booking_count"); n > 0 {
			fmt.Fprintf(&b, "Bookings: %d\n", n)
		}

	default:
		subject = fmt.Sprintf("Travel request #%d updated", req.ID)
	}

	return subject, b.String()
}
