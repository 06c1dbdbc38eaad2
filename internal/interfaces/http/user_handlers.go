package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/travel-approval/internal/domain/entity"
	"github.com/garyjia/travel-approval/internal/domain/role"
)

// RoleBody is the payload of role-changing endpoints
type RoleBody struct {
	Role string `json:"role"`
}

// Me handles GET /me
func (h *Handlers) Me(c *gin.Context) {
	user, err := h.deps.Users.Me(c.Request.Context(), actorFrom(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, http.StatusOK, user)
}

// SetActiveRole handles PUT /me/active-role; an empty role clears the override
func (h *Handlers) SetActiveRole(c *gin.Context) {
	var body RoleBody
	if err := bindJSON(c, &body); err != nil {
		h.fail(c, err)
		return
	}

	user, err := h.deps.Users.SetActiveRole(c.Request.Context(), actorFrom(c), role.Role(body.Role))
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, http.StatusOK, user)
}

// ListUsers handles GET /users
func (h *Handlers) ListUsers(c *gin.Context) {
	users, err := h.deps.Users.List(c.Request.Context(), actorFrom(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	if users == nil {
		users = []*entity.User{}
	}
	h.ok(c, http.StatusOK, users)
}

// UpdateUserRole handles PATCH /users/:id/role
func (h *Handlers) UpdateUserRole(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		h.fail(c, err)
		return
	}

	var body RoleBody
	if err := bindJSON(c, &body); err != nil {
		h.fail(c, err)
		return
	}

	user, err := h.deps.Users.UpdateRole(c.Request.Context(), actorFrom(c), id, role.Role(body.Role))
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, http.StatusOK, user)
}

// ListProjects handles GET /projects
func (h *Handlers) ListProjects(c *gin.Context) {
	projects, err := h.deps.Projects.List(c.Request.Context(), actorFrom(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	if projects == nil {
		projects = []*entity.Project{}
	}
	h.ok(c, http.StatusOK, projects)
}
