package profiles

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/eventhub/backend/internal/middleware"
	"github.com/eventhub/backend/internal/models"
	"github.com/eventhub/backend/pkg/response"
)

// SyncRequest is the body for PUT /me.
type SyncRequest struct {
	Name      *string          `json:"name"`
	Category  *models.Category `json:"category"`
	Interests *[]string        `json:"interests"`
}

// RespondRequest is the body for PATCH /connections/:id/respond.
type RespondRequest struct {
	Status models.Status `json:"status" binding:"required"`
}

// Handler handles profile HTTP endpoints.
type Handler struct {
	svc    *Service
	logger *zap.Logger
}

// NewHandler creates a profiles handler.
func NewHandler(svc *Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{svc: svc, logger: logger}
}

func identity(c *gin.Context) Identity {
	actor := middleware.MustActor(c)
	return Identity{ID: actor.ID, Email: actor.Email, Name: c.GetString(middleware.ContextUserName), Category: actor.Category}
}

// EnsureProfile provisions the caller's profile on first request.
// It runs after the JWT middleware.
func (h *Handler) EnsureProfile() gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := h.svc.Ensure(c.Request.Context(), identity(c)); err != nil {
			h.logger.Warn("ensure profile failed", zap.Error(err))
			response.Error(c, err)
			c.Abort()
			return
		}
		c.Next()
	}
}

// Me handles GET /me.
func (h *Handler) Me(c *gin.Context) {
	p, err := h.svc.Profile(c.Request.Context(), middleware.MustActor(c).ID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, p)
}

// Sync handles PUT /me.
func (h *Handler) Sync(c *gin.Context) {
	var req SyncRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	u, err := h.svc.Sync(c.Request.Context(), identity(c), Update{Name: req.Name, Category: req.Category, Interests: req.Interests})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, u)
}

// Matches handles GET /me/matches?limit=.
func (h *Handler) Matches(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit <= 0 || limit > 100 {
		limit = 20
	}
	list, err := h.svc.Matches(c.Request.Context(), middleware.MustActor(c), limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, list)
}

// Connect handles POST /users/:id/connect.
func (h *Handler) Connect(c *gin.Context) {
	target, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid user id")
		return
	}
	conn, err := h.svc.Connect(c.Request.Context(), middleware.MustActor(c), target)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, conn)
}

// RespondToConnection handles PATCH /connections/:id/respond.
func (h *Handler) RespondToConnection(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid connection id")
		return
	}
	var req RespondRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	conn, err := h.svc.RespondToConnection(c.Request.Context(), id, middleware.MustActor(c), req.Status)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, conn)
}
