package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/petekamm/teamup/internal/services"
	"github.com/petekamm/teamup/pkg/response"
)

// InviteHandler exposes invite code retrieval and rotation.
type InviteHandler struct {
	svc *services.MembershipService
}

// NewInviteHandler constructs an InviteHandler.
func NewInviteHandler(svc *services.MembershipService) *InviteHandler {
	return &InviteHandler{svc: svc}
}

// GET /api/teams/:id/invite
func (h *InviteHandler) Get(c *gin.Context) {
	info, err := h.svc.InviteCode(requestContext(c), c.Param("id"), currentUserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, info)
}

// POST /api/invites/:code/rotate
func (h *InviteHandler) Rotate(c *gin.Context) {
	info, err := h.svc.RotateInvite(requestContext(c), c.Param("code"), currentUserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, info)
}
