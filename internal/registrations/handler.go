package registrations

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/skip2/go-qrcode"
	"go.uber.org/zap"

	"github.com/eventhub/backend/internal/middleware"
	"github.com/eventhub/backend/internal/models"
	"github.com/eventhub/backend/pkg/response"
)

// qrSize is the edge length in pixels of rendered ticket QR codes.
const qrSize = 320

// ReviewRequest is the body for PATCH /registrations/:id.
type ReviewRequest struct {
	Status models.Status `json:"status" binding:"required"`
}

// Handler handles registration HTTP endpoints.
type Handler struct {
	svc    *Service
	logger *zap.Logger
}

// NewHandler creates a registrations handler.
func NewHandler(svc *Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{svc: svc, logger: logger}
}

// Register handles POST /events/:id/register.
func (h *Handler) Register(c *gin.Context) {
	eventID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}
	reg, err := h.svc.Register(c.Request.Context(), eventID, middleware.MustActor(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, reg)
}

// Review handles PATCH /registrations/:id.
func (h *Handler) Review(c *gin.Context) {
	regID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid registration id")
		return
	}
	var req ReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	reg, err := h.svc.Review(c.Request.Context(), regID, req.Status, middleware.MustActor(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, reg)
}

// ListForEvent handles GET /events/:id/registrations.
func (h *Handler) ListForEvent(c *gin.Context) {
	eventID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}
	list, err := h.svc.ListForEvent(c.Request.Context(), eventID, middleware.MustActor(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	if list == nil {
		list = []models.Registration{}
	}
	response.OK(c, list)
}

// Agenda handles GET /me/agenda.
func (h *Handler) Agenda(c *gin.Context) {
	list, err := h.svc.ListMine(c.Request.Context(), middleware.MustActor(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	if list == nil {
		list = []models.AgendaEntry{}
	}
	response.OK(c, list)
}

// Ticket handles GET /events/:id/ticket. ?format=png renders the ticket as a QR code.
func (h *Handler) Ticket(c *gin.Context) {
	eventID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}
	reg, err := h.svc.Ticket(c.Request.Context(), eventID, middleware.MustActor(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	if c.Query("format") != "png" {
		response.OK(c, reg)
		return
	}
	png, err := qrcode.Encode(reg.TicketHash, qrcode.Medium, qrSize)
	if err != nil {
		h.logger.Error("render ticket qr failed", zap.Error(err), zap.String("registration_id", reg.ID.String()))
		response.Internal(c, "failed to render ticket")
		return
	}
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, "image/png", png)
}
