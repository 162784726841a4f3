package checkin

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/eventhub/backend/internal/middleware"
	"github.com/eventhub/backend/pkg/response"
)

// CheckInRequest is the body for POST /checkin.
type CheckInRequest struct {
	TicketHash string `json:"ticket_hash" binding:"required"`
}

// Handler handles check-in HTTP endpoints.
type Handler struct {
	svc *Service
}

// NewHandler creates a check-in handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// CheckIn handles POST /checkin.
func (h *Handler) CheckIn(c *gin.Context) {
	var req CheckInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	res, err := h.svc.CheckIn(c.Request.Context(), strings.TrimSpace(req.TicketHash), middleware.MustActor(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, res)
}

// Stats handles GET /events/:id/checkin/stats.
func (h *Handler) Stats(c *gin.Context) {
	eventID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}
	stats, err := h.svc.Stats(c.Request.Context(), eventID, middleware.MustActor(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, stats)
}
