package event

// Type identifies the type of domain event
type Type string

const (
	TypeRequestSubmitted Type = "request_submitted"
	TypeRequestApproved  Type = "request_approved"
	TypeRequestRejected  Type = "request_rejected"
	TypeBookingCompleted Type = "booking_completed"
)

func (t Type) String() string {
	return string(t)
}

// IsValid checks if the event type is one of the lifecycle events
func (t Type) IsValid() bool {
	switch t {
	case TypeRequestSubmitted,
		TypeRequestApproved,
		TypeRequestRejected,
		TypeBookingCompleted:
		return true
	default:
		return false
	}
}
