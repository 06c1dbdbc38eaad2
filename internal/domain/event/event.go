// Package event defines the lifecycle events emitted after a committed transition.
package event

import (
	"time"

	"github.com/google/uuid"

	"github.com/garyjia/travel-approval/internal/domain/entity"
)

// Event is emitted after a lifecycle transition has been committed
type Event struct {
	ID              string                 `json:"id"`
	Type            Type                   `json:"type"`
	TravelRequestID int64                  `json:"travelRequestId"`
	ActorID         int64                  `json:"actorId"`
	Request         *entity.TravelRequest  `json:"request,omitempty"` // post-transition snapshot
	Payload         map[string]interface{} `json:"payload,omitempty"`
	Timestamp       time.Time              `json:"timestamp"`
}

// NewEvent snapshots req so later mutation by the caller is not observed by subscribers
func NewEvent(eventType Type, actorID int64, req *entity.TravelRequest, payload map[string]interface{}) *Event {
	evt := &Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		ActorID:   actorID,
		Request:   req.Clone(),
		Payload:   payload,
		Timestamp: time.Now().UTC(),
	}
	if req != nil {
		evt.TravelRequestID = req.ID
	}
	return evt
}

// GetPayloadString returns the string at key, or "" when absent or of another type
func (e *Event) GetPayloadString(key string) string {
	s, _ := e.Payload[key].(string)
	return s
}

// GetPayloadInt returns the integer at key. JSON-decoded numbers arrive as float64.
func (e *Event) GetPayloadInt(key string) int64 {
	switch v := e.Payload[key].(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case float64:
		return int64(v)
	}
	return 0
}
