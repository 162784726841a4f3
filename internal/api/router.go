// Package api assembles the HTTP router from the domain handlers.
package api

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/eventhub/backend/internal/auth"
	"github.com/eventhub/backend/internal/checkin"
	"github.com/eventhub/backend/internal/events"
	"github.com/eventhub/backend/internal/exports"
	"github.com/eventhub/backend/internal/metrics"
	"github.com/eventhub/backend/internal/middleware"
	"github.com/eventhub/backend/internal/models"
	"github.com/eventhub/backend/internal/profiles"
	"github.com/eventhub/backend/internal/realtime"
	"github.com/eventhub/backend/internal/registrations"
	"github.com/eventhub/backend/internal/store"
	"github.com/eventhub/backend/internal/team"
	"github.com/eventhub/backend/pkg/response"
)

// Deps are the collaborators the router is built from.
type Deps struct {
	Store          store.Store
	JWT            *auth.JWTService
	Hub            *realtime.Hub
	Jobs           exports.Enqueuer
	Links          exports.Linker
	Metrics        *metrics.Metrics // optional
	AllowedOrigins []string
	Logger         *zap.Logger
}

// NewRouter wires services and handlers onto a gin engine.
func NewRouter(d Deps) *gin.Engine {
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	profileSvc := profiles.NewService(d.Store, logger)
	eventSvc := events.NewService(d.Store, logger)
	registrationSvc := registrations.NewService(d.Store, logger)
	teamSvc := team.NewService(d.Store, logger)
	checkinSvc := checkin.NewService(d.Store, d.Hub, logger)
	exportSvc := exports.NewService(d.Store, d.Jobs, d.Links, logger)

	profileHandler := profiles.NewHandler(profileSvc, logger)
	eventHandler := events.NewHandler(eventSvc)
	registrationHandler := registrations.NewHandler(registrationSvc, logger)
	teamHandler := team.NewHandler(teamSvc)
	checkinHandler := checkin.NewHandler(checkinSvc)
	exportHandler := exports.NewHandler(exportSvc)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(d.AllowedOrigins))
	router.Use(middleware.Logger(logger))
	if d.Metrics != nil {
		router.Use(d.Metrics.Middleware())
		router.GET("/metrics", gin.WrapH(d.Metrics.Handler()))
	}

	router.GET("/health", func(c *gin.Context) { response.OK(c, gin.H{"status": "ok"}) })

	api := router.Group("")
	api.Use(middleware.JWT(d.JWT), profileHandler.EnsureProfile())
	{
		// Profile
		api.GET("/me", profileHandler.Me)
		api.PUT("/me", profileHandler.Sync)
		api.GET("/me/agenda", registrationHandler.Agenda)
		api.GET("/me/matches", profileHandler.Matches)
		api.GET("/me/invites", teamHandler.Invites)
		api.POST("/users/:id/connect", profileHandler.Connect)
		api.PATCH("/connections/:id/respond", profileHandler.RespondToConnection)

		// Events
		api.POST("/events", eventHandler.Create)
		api.GET("/events", eventHandler.List)
		api.GET("/events/recommended", eventHandler.Recommended)
		api.GET("/events/:id", eventHandler.Get)
		api.PATCH("/events/:id", eventHandler.Update)

		// Registrations
		api.POST("/events/:id/register", registrationHandler.Register)
		api.GET("/events/:id/ticket", registrationHandler.Ticket)
		api.GET("/events/:id/registrations", registrationHandler.ListForEvent)
		api.PATCH("/registrations/:id", registrationHandler.Review)

		// Team
		api.POST("/events/:id/team/apply", teamHandler.Apply)
		api.POST("/events/:id/team/invite", teamHandler.Invite)
		api.GET("/events/:id/team", teamHandler.List)
		api.DELETE("/events/:id/team/:userId", teamHandler.Remove)
		api.PATCH("/team/:id/respond", teamHandler.Respond)
		api.PATCH("/team/:id/review", teamHandler.Review)

		// Check-in
		api.POST("/checkin", checkinHandler.CheckIn)
		api.GET("/events/:id/checkin/stats", checkinHandler.Stats)

		// Exports
		api.POST("/events/:id/exports", exportHandler.Request)
		api.GET("/exports/:id", exportHandler.Get)
	}

	// WebSocket (token in query; no Authorization header required)
	router.GET("/ws", realtime.ServeWs(d.Hub, realtime.FeedConfig{
		Authenticate: func(token string) (models.Actor, error) {
			claims, err := d.JWT.Validate(token)
			if err != nil {
				return models.Actor{}, err
			}
			return claims.Actor(), nil
		},
		Authorize:      checkinSvc.AuthorizeFeed,
		Stats:          checkinSvc.Stats,
		AllowedOrigins: d.AllowedOrigins,
	}, logger))

	return router
}
