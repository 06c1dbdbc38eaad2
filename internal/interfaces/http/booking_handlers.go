package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/garyjia/travel-approval/internal/application/service"
	"github.com/garyjia/travel-approval/internal/domain/entity"
)

// CreateBookingBody is the payload of POST /bookings
type CreateBookingBody struct {
	TravelRequestID int64           `json:"travelRequestId"`
	Type            string          `json:"type"`
	Provider        string          `json:"provider"`
	Cost            decimal.Decimal `json:"cost"`
	Reference       string          `json:"reference"`
	Status          string          `json:"status"`
}

// BookingListResponse is a request's bookings plus their cost summary
type BookingListResponse struct {
	Bookings []*entity.Booking  `json:"bookings"`
	Summary  entity.CostSummary `json:"summary"`
}

// CreateBooking handles POST /bookings
func (h *Handlers) CreateBooking(c *gin.Context) {
	var body CreateBookingBody
	if err := bindJSON(c, &body); err != nil {
		h.fail(c, err)
		return
	}

	booking, err := h.deps.Bookings.Create(c.Request.Context(), actorFrom(c), service.BookingInput{
		TravelRequestID: body.TravelRequestID,
		Type:            body.Type,
		Provider:        body.Provider,
		Cost:            body.Cost,
		Reference:       body.Reference,
		Status:          body.Status,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, http.StatusCreated, booking)
}

// ListBookings handles GET /travel-requests/:id/bookings
func (h *Handlers) ListBookings(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		h.fail(c, err)
		return
	}

	bookings, summary, err := h.deps.Bookings.ListByRequest(c.Request.Context(), actorFrom(c), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	if bookings == nil {
		bookings = []*entity.Booking{}
	}
	h.ok(c, http.StatusOK, BookingListResponse{Bookings: bookings, Summary: summary})
}
