package exports

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/eventhub/backend/internal/middleware"
	"github.com/eventhub/backend/pkg/response"
)

// Handler handles export HTTP endpoints.
type Handler struct {
	svc *Service
}

// NewHandler creates an exports handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// Request handles POST /events/:id/exports.
func (h *Handler) Request(c *gin.Context) {
	eventID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}
	exp, err := h.svc.Request(c.Request.Context(), eventID, middleware.MustActor(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Accepted(c, exp)
}

// Get handles GET /exports/:id.
func (h *Handler) Get(c *gin.Context) {
	exportID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid export id")
		return
	}
	view, err := h.svc.Get(c.Request.Context(), exportID, middleware.MustActor(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, view)
}
