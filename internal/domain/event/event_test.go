package event

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/garyjia/travel-approval/internal/domain/entity"
)

func TestType_IsValid(t *testing.T) {
	tests := []struct {
		eventType Type
		want      bool
	}{
		{TypeRequestSubmitted, true},
		{TypeRequestApproved, true},
		{TypeRequestRejected, true},
		{TypeBookingCompleted, true},
		{Type("request_cancelled"), false},
		{Type(""), false},
	}

	for _, tt := range tests {
		t.Run(string(tt.eventType), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.eventType.IsValid())
		})
	}
}

func TestNewEvent(t *testing.T) {
	req := &entity.TravelRequest{ID: 42, Status: entity.StatusPMApproved}
	evt := NewEvent(TypeRequestApproved, 7, req, map[string]interface{}{"team": "operations_ksa"})

	assert.NotEmpty(t, evt.ID)
	assert.Equal(t, int64(42), evt.TravelRequestID)
	assert.Equal(t, int64(7), evt.ActorID)
	assert.False(t, evt.Timestamp.IsZero())

	// snapshot is detached from the caller's request
	req.Status = entity.StatusOperationsCompleted
	assert.Equal(t, entity.StatusPMApproved, evt.Request.Status)
}

func TestNewEvent_UniqueIDs(t *testing.T) {
	a := NewEvent(TypeRequestSubmitted, 1, nil, nil)
	b := NewEvent(TypeRequestSubmitted, 1, nil, nil)
	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, int64(0), a.TravelRequestID)
}

func TestEvent_PayloadAccessors(t *testing.T) {
	evt := NewEvent(TypeBookingCompleted, 1, nil, map[string]interface{}{
		"booking_total": "1500.75",
		"booking_count": 2,
		"decoded":       float64(4),
		"wrong_type":    true,
	})

	assert.Equal(t, "1500.75", evt.GetPayloadString("booking_total"))
	assert.Equal(t, "", evt.GetPayloadString("wrong_type"))
	assert.Equal(t, int64(2), evt.GetPayloadInt("booking_count"))
	assert.Equal(t, int64(4), evt.GetPayloadInt("decoded"))
	assert.Equal(t, int64(0), evt.GetPayloadInt("missing"))
}
