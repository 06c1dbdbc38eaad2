package entity

// Status constants for TravelRequest
const (
	StatusSubmitted           = "submitted"
	StatusPMApproved          = "pm_approved"
	StatusPMRejected          = "pm_rejected"
	StatusOperationsCompleted = "operations_completed"
)

// Purpose constants for TravelRequest
const (
	PurposeDelivery = "delivery"
	PurposeSales    = "sales"
	PurposeEvent    = "event"
	PurposeOther    = "other"
)

// Booking type constants
const (
	BookingTypeFlight = "flight"
	BookingTypeHotel  = "hotel"
	BookingTypeOther  = "other"
)

// Booking status constants
const (
	BookingStatusPending   = "pending"
	BookingStatusConfirmed = "confirmed"
	BookingStatusCancelled = "cancelled"
)

// Project status constants
const (
	ProjectStatusActive   = "active"
	ProjectStatusInactive = "inactive"
)

// Notification status constants
const (
	NotificationStatusPending = "PENDING"
	NotificationStatusSent    = "SENT"
	NotificationStatusFailed  = "FAILED"
)

// DateLayout is the wire format for departure and return dates
const DateLayout = "2006-01-02"

var validPurposes = map[string]bool{
	PurposeDelivery: true,
	PurposeSales:    true,
	PurposeEvent:    true,
	PurposeOther:    true,
}

var validBookingTypes = map[string]bool{
	BookingTypeFlight: true,
	BookingTypeHotel:  true,
	BookingTypeOther:  true,
}

var validBookingStatuses = map[string]bool{
	BookingStatusPending:   true,
	BookingStatusConfirmed: true,
	BookingStatusCancelled: true,
}

// IsValidPurpose reports whether p is one of the enumerated purposes
func IsValidPurpose(p string) bool {
	return validPurposes[p]
}

// IsValidStatus reports whether s is a travel request status
func IsValidStatus(s string) bool {
	switch s {
	case StatusSubmitted, StatusPMApproved, StatusPMRejected, StatusOperationsCompleted:
		return true
	default:
		return false
	}
}
