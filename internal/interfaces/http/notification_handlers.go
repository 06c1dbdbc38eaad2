package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/travel-approval/internal/domain/entity"
)

// ListNotifications handles GET /notifications?status=FAILED&limit=N
func (h *Handlers) ListNotifications(c *gin.Context) {
	limit, err := queryInt(c, "limit")
	if err != nil {
		h.fail(c, err)
		return
	}

	status := strings.ToUpper(strings.TrimSpace(c.Query("status")))
	notifications, err := h.deps.Notifications.List(c.Request.Context(), actorFrom(c), status, limit)
	if err != nil {
		h.fail(c, err)
		return
	}
	if notifications == nil {
		notifications = []*entity.Notification{}
	}
	h.ok(c, http.StatusOK, notifications)
}

// RetryNotification handles POST /notifications/:id/retry
func (h *Handlers) RetryNotification(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		h.fail(c, err)
		return
	}

	n, err := h.deps.Notifications.Retry(c.Request.Context(), actorFrom(c), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, http.StatusOK, n)
}
