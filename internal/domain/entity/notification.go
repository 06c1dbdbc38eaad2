package entity

import "time"

// Notification records one delivery attempt chain for one recipient of one event
type Notification struct {
	ID              int64      `json:"id"`
	TravelRequestID int64      `json:"travelRequestId"`
	EventType       string     `json:"eventType"`
	RecipientEmail  string     `json:"recipientEmail"`
	RecipientRole   string     `json:"recipientRole"`
	Subject         string     `json:"subject"`
	Body            string     `json:"body"`
	Status          string     `json:"status"`
	Attempts        int        `json:"attempts"`
	ErrorMessage    string     `json:"errorMessage,omitempty"`
	SentAt          *time.Time `json:"sentAt,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
}
