package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/petekamm/teamup/internal/services"
	appErrors "github.com/petekamm/teamup/pkg/errors"
	"github.com/petekamm/teamup/pkg/response"
)

var errBadPatch = appErrors.NewBadRequest("no fields provided for update")

// TeamHandler exposes the team membership action surface over the coordinator.
type TeamHandler struct {
	svc *services.MembershipService
}

type createTeamRequest struct {
	Name                string `json:"name" validate:"required,min=4,max=128"`
	Description         string `json:"description" validate:"omitempty,max=512"`
	Contact             string `json:"contact" validate:"omitempty,max=256"`
	LookingForTeammates bool   `json:"looking_for_teammates"`
}

type updateTeamRequest struct {
	Name                *string `json:"name" validate:"omitempty,min=4,max=128"`
	Description         *string `json:"description" validate:"omitempty,max=512"`
	Contact             *string `json:"contact" validate:"omitempty,max=256"`
	LookingForTeammates *bool   `json:"looking_for_teammates"`
}

type joinTeamRequest struct {
	Code string `json:"code" validate:"required,min=4,max=64"`
}

// NewTeamHandler constructs a TeamHandler.
func NewTeamHandler(svc *services.MembershipService) *TeamHandler {
	return &TeamHandler{svc: svc}
}

// POST /api/events/:eventID/teams
func (h *TeamHandler) Create(c *gin.Context) {
	var body createTeamRequest
	if !bindAndValidate(c, &body) {
		return
	}

	team, err := h.svc.CreateTeam(requestContext(c), c.Param("eventID"), currentUserID(c), services.CreateTeamInput{
		Name:                strings.TrimSpace(body.Name),
		Description:         strings.TrimSpace(body.Description),
		Contact:             strings.TrimSpace(body.Contact),
		LookingForTeammates: body.LookingForTeammates,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, team)
}

// POST /api/events/:eventID/teams/join
func (h *TeamHandler) Join(c *gin.Context) {
	var body joinTeamRequest
	if !bindAndValidate(c, &body) {
		return
	}

	team, err := h.svc.JoinTeam(requestContext(c), strings.TrimSpace(body.Code), currentUserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, team)
}

// GET /api/teams/:id
func (h *TeamHandler) Get(c *gin.Context) {
	info, err := h.svc.Info(requestContext(c), c.Param("id"), currentUserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, info)
}

// PATCH /api/teams/:id
func (h *TeamHandler) Update(c *gin.Context) {
	var body updateTeamRequest
	if !bindAndValidate(c, &body) {
		return
	}

	if body.Name == nil && body.Description == nil && body.Contact == nil && body.LookingForTeammates == nil {
		response.Error(c, errBadPatch)
		return
	}

	team, err := h.svc.UpdateTeam(requestContext(c), c.Param("id"), currentUserID(c), services.TeamPatch{
		Name:                trimmed(body.Name),
		Description:         trimmed(body.Description),
		Contact:             trimmed(body.Contact),
		LookingForTeammates: body.LookingForTeammates,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, team)
}

// DELETE /api/teams/:id/members/:memberID
func (h *TeamHandler) RemoveMember(c *gin.Context) {
	err := h.svc.RemoveMember(requestContext(c), c.Param("id"), c.Param("memberID"), currentUserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"removed": true})
}

// GET /api/teams/:id/membership
func (h *TeamHandler) Membership(c *gin.Context) {
	isMember, err := h.svc.IsMember(requestContext(c), c.Param("id"), currentUserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"is_member": isMember})
}

func trimmed(value *string) *string {
	if value == nil {
		return nil
	}
	t := strings.TrimSpace(*value)
	return &t
}
