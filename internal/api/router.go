package api

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/petekamm/teamup/internal/app"
	iauth "github.com/petekamm/teamup/internal/auth"
	"github.com/petekamm/teamup/internal/handlers"
	"github.com/petekamm/teamup/internal/middleware"
	"github.com/petekamm/teamup/internal/services"
)

// NewRouter builds the Gin engine, wires middleware and registers routes.
func NewRouter(db *gorm.DB, jwt *iauth.JWTService, cfg *app.Config) (*gin.Engine, error) {
	if db == nil {
		return nil, fmt.Errorf("database handle must be provided")
	}
	if jwt == nil {
		return nil, fmt.Errorf("jwt service must be provided")
	}
	if cfg == nil {
		return nil, fmt.Errorf("config must be provided")
	}

	auditSvc, err := services.NewAuditService(db)
	if err != nil {
		return nil, err
	}
	userSvc, err := services.NewUserService(db)
	if err != nil {
		return nil, err
	}
	eventSvc, err := services.NewEventService(db)
	if err != nil {
		return nil, err
	}
	participantSvc, err := services.NewParticipantService(db, auditSvc)
	if err != nil {
		return nil, err
	}
	teamStore, err := services.NewTeamStore(db)
	if err != nil {
		return nil, err
	}
	inviteSvc, err := services.NewInviteService(db,
		services.WithInviteBaseURL(cfg.Teams.InviteBaseURL),
		services.WithInviteCodeLength(cfg.Teams.InviteCodeLength),
	)
	if err != nil {
		return nil, err
	}
	membershipSvc, err := services.NewMembershipService(db, participantSvc, teamStore, inviteSvc, auditSvc,
		services.WithMaxTeamSize(cfg.Teams.MaxSize),
	)
	if err != nil {
		return nil, err
	}

	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.Metrics())

	// Health endpoint (public)
	r.GET("/health", handlers.Health())

	authHandler := handlers.NewAuthHandler(userSvc, jwt)

	// Public auth routes
	auth := r.Group("/api/auth")
	{
		auth.POST("/register", authHandler.Register)
		auth.POST("/login", authHandler.Login)
	}

	requireAuth := middleware.Auth(jwt)

	api := r.Group("/api")
	api.Use(requireAuth)

	api.GET("/auth/me", authHandler.Me)

	// Events
	eventHandler := handlers.NewEventHandler(eventSvc, teamStore)
	events := api.Group("/events")
	{
		events.GET("", eventHandler.List)
		events.GET("/:eventID", eventHandler.Get)
		events.GET("/:eventID/teams", eventHandler.ListTeams)
	}

	// Teams
	teamHandler := handlers.NewTeamHandler(membershipSvc)
	inviteHandler := handlers.NewInviteHandler(membershipSvc)

	events.POST("/:eventID/teams", teamHandler.Create)
	events.POST("/:eventID/teams/join", teamHandler.Join)

	teams := api.Group("/teams")
	{
		teams.GET("/:id", teamHandler.Get)
		teams.PATCH("/:id", teamHandler.Update)
		teams.DELETE("/:id/members/:memberID", teamHandler.RemoveMember)
		teams.GET("/:id/membership", teamHandler.Membership)
		teams.GET("/:id/invite", inviteHandler.Get)
	}
	api.POST("/invites/:code/rotate", inviteHandler.Rotate)

	// Metrics endpoint
	if cfg.Monitoring.Prometheus.Enabled {
		r.GET(cfg.Monitoring.Prometheus.Endpoint, gin.WrapH(promhttp.Handler()))
	}

	// NotFound fallback
	r.NoRoute(func(c *gin.Context) {
		c.JSON(404, gin.H{
			"success": false,
			"error":   gin.H{"code": "NOT_FOUND", "message": fmt.Sprintf("route %s not found", c.Request.URL.Path)},
		})
	})

	return r, nil
}
