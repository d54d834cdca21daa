package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/petekamm/teamup/internal/services"
	"github.com/petekamm/teamup/pkg/response"
)

// EventHandler exposes read access to hackathon events and their team listings.
type EventHandler struct {
	events *services.EventService
	teams  *services.TeamStore
}

// NewEventHandler constructs an EventHandler.
func NewEventHandler(events *services.EventService, teams *services.TeamStore) *EventHandler {
	return &EventHandler{events: events, teams: teams}
}

// GET /api/events
func (h *EventHandler) List(c *gin.Context) {
	events, err := h.events.List(requestContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, events)
}

// GET /api/events/:eventID
func (h *EventHandler) Get(c *gin.Context) {
	event, err := h.events.Get(requestContext(c), c.Param("eventID"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, event)
}

// GET /api/events/:eventID/teams
// With ?looking=true only teams still looking for teammates are returned.
func (h *EventHandler) ListTeams(c *gin.Context) {
	ctx := requestContext(c)

	if _, err := h.events.Get(ctx, c.Param("eventID")); err != nil {
		response.Error(c, err)
		return
	}

	lookingOnly, _ := strconv.ParseBool(c.DefaultQuery("looking", "false"))
	teams, err := h.teams.ListByEvent(ctx, c.Param("eventID"), lookingOnly)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, teams)
}
