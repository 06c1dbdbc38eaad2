package http

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/garyjia/travel-approval/internal/application/filter"
	"github.com/garyjia/travel-approval/internal/application/workflow"
	"github.com/garyjia/travel-approval/internal/domain/entity"
)

// CreateTravelRequestBody is the payload of POST /travel-requests.
// Traveler and project may be referenced by local id or by directory id.
type CreateTravelRequestBody struct {
	Origin             string   `json:"origin"`
	Destination        string   `json:"destination"`
	Destinations       []string `json:"destinations"`
	DepartureDate      string   `json:"departureDate"`
	ReturnDate         string   `json:"returnDate"`
	Purpose            string   `json:"purpose"`
	CustomPurpose      string   `json:"customPurpose"`
	TravelerID         *int64   `json:"travelerId"`
	TravelerExternalID string   `json:"travelerExternalId"`
	ProjectID          *int64   `json:"projectId"`
	ProjectExternalID  string   `json:"projectExternalId"`
}

// ApproveBody is the payload of PATCH /travel-requests/:id/approve
type ApproveBody struct {
	AssignedOperationsTeam string `json:"assignedOperationsTeam"`
}

// RejectBody is the payload of PATCH /travel-requests/:id/reject
type RejectBody struct {
	Reason string `json:"reason"`
}

// CompleteBody is the payload of POST /travel-requests/:id/complete
type CompleteBody struct {
	TotalCost *decimal.Decimal `json:"totalCost"`
}

func (b CreateTravelRequestBody) toInput() (workflow.CreateInput, error) {
	in := workflow.CreateInput{
		Origin:        b.Origin,
		Destination:   b.Destination,
		Destinations:  b.Destinations,
		Purpose:       b.Purpose,
		CustomPurpose: b.CustomPurpose,
		Traveler:      workflow.EntityRef{ID: b.TravelerID, ExternalID: b.TravelerExternalID},
		Project:       workflow.EntityRef{ID: b.ProjectID, ExternalID: b.ProjectExternalID},
	}

	var err error
	if b.DepartureDate != "" {
		if in.DepartureDate, err = entity.ParseDate(b.DepartureDate); err != nil {
			return in, err
		}
	}
	if b.ReturnDate != "" {
		if in.ReturnDate, err = entity.ParseDate(b.ReturnDate); err != nil {
			return in, err
		}
	}
	return in, nil
}

// CreateTravelRequest handles POST /travel-requests
func (h *Handlers) CreateTravelRequest(c *gin.Context) {
	var body CreateTravelRequestBody
	if err := bindJSON(c, &body); err != nil {
		h.fail(c, err)
		return
	}

	in, err := body.toInput()
	if err != nil {
		h.fail(c, err)
		return
	}

	req, err := h.deps.Engine.Create(c.Request.Context(), actorFrom(c), in)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, http.StatusCreated, req)
}

// listFlags reads the view-filter query flags
func listFlags(c *gin.Context) (filter.Flags, error) {
	var flags filter.Flags
	var err error

	if flags.NeedsApproval, err = queryBool(c, "needsApproval"); err != nil {
		return flags, err
	}
	if flags.MyRequestsOnly, err = queryBool(c, "myRequestsOnly"); err != nil {
		return flags, err
	}
	if flags.History, err = queryBool(c, "history"); err != nil {
		return flags, err
	}
	if flags.ProjectID, err = queryInt64Ptr(c, "projectId"); err != nil {
		return flags, err
	}
	if flags.Limit, err = queryInt(c, "limit"); err != nil {
		return flags, err
	}
	if flags.Offset, err = queryInt(c, "offset"); err != nil {
		return flags, err
	}
	flags.Status = c.Query("status")
	return flags, nil
}

// ListTravelRequests handles GET /travel-requests
func (h *Handlers) ListTravelRequests(c *gin.Context) {
	flags, err := listFlags(c)
	if err != nil {
		h.fail(c, err)
		return
	}

	requests, err := h.deps.Requests.List(c.Request.Context(), actorFrom(c), flags)
	if err != nil {
		h.fail(c, err)
		return
	}
	if requests == nil {
		requests = []*entity.TravelRequest{}
	}
	h.ok(c, http.StatusOK, requests)
}

// GetTravelRequest handles GET /travel-requests/:id
func (h *Handlers) GetTravelRequest(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		h.fail(c, err)
		return
	}

	req, err := h.deps.Requests.Get(c.Request.Context(), actorFrom(c), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, http.StatusOK, req)
}

// DeleteTravelRequest handles DELETE /travel-requests/:id
func (h *Handlers) DeleteTravelRequest(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		h.fail(c, err)
		return
	}

	if err := h.deps.Requests.Delete(c.Request.Context(), actorFrom(c), id); err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, http.StatusOK, gin.H{"id": id, "deleted": true})
}

// ApproveTravelRequest handles PATCH /travel-requests/:id/approve
func (h *Handlers) ApproveTravelRequest(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		h.fail(c, err)
		return
	}

	var body ApproveBody
	if err := bindJSON(c, &body); err != nil {
		h.fail(c, err)
		return
	}

	req, err := h.deps.Engine.Approve(c.Request.Context(), actorFrom(c), id, body.AssignedOperationsTeam)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, http.StatusOK, req)
}

// RejectTravelRequest handles PATCH /travel-requests/:id/reject
func (h *Handlers) RejectTravelRequest(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		h.fail(c, err)
		return
	}

	var body RejectBody
	if err := bindJSON(c, &body); err != nil {
		h.fail(c, err)
		return
	}

	req, err := h.deps.Engine.Reject(c.Request.Context(), actorFrom(c), id, body.Reason)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, http.StatusOK, req)
}

// CompleteTravelRequest handles POST /travel-requests/:id/complete
func (h *Handlers) CompleteTravelRequest(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		h.fail(c, err)
		return
	}

	var body CompleteBody
	if err := bindJSON(c, &body); err != nil {
		h.fail(c, err)
		return
	}

	result, err := h.deps.Engine.Complete(c.Request.Context(), actorFrom(c), id, body.TotalCost)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, http.StatusOK, result)
}

// ExportTravelRequests handles GET /travel-requests/export
func (h *Handlers) ExportTravelRequests(c *gin.Context) {
	flags, err := listFlags(c)
	if err != nil {
		h.fail(c, err)
		return
	}

	// Buffer so a failure can still be reported as JSON
	var buf bytes.Buffer
	if err := h.deps.Requests.Export(c.Request.Context(), actorFrom(c), flags, &buf); err != nil {
		h.fail(c, err)
		return
	}

	contentType, ext := "application/octet-stream", "bin"
	if h.deps.ExportFormat != nil {
		contentType, ext = h.deps.ExportFormat.ContentType(), h.deps.ExportFormat.FileExtension()
	}
	filename := fmt.Sprintf("travel-requests-%s.%s", time.Now().UTC().Format("20060102"), ext)
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(http.StatusOK, contentType, buf.Bytes())
}
