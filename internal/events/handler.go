package events

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/eventhub/backend/internal/middleware"
	"github.com/eventhub/backend/internal/models"
	"github.com/eventhub/backend/pkg/response"
)

// CreateRequest is the body for POST /events.
type CreateRequest struct {
	Title           string     `json:"title" binding:"required"`
	Description     string     `json:"description"`
	Venue           string     `json:"venue"`
	StartsAt        time.Time  `json:"starts_at" binding:"required"`
	EndsAt          time.Time  `json:"ends_at" binding:"required"`
	Timezone        string     `json:"timezone"`
	ParentEventID   *uuid.UUID `json:"parent_event_id"`
	IsInviteOnly    bool       `json:"is_invite_only"`
	IsVolunteerOpen bool       `json:"is_volunteer_open"`
	Tags            []string   `json:"tags"`
}

// UpdateRequest is the body for PATCH /events/:id. Absent fields are left unchanged.
type UpdateRequest struct {
	Title           *string    `json:"title"`
	Description     *string    `json:"description"`
	Venue           *string    `json:"venue"`
	StartsAt        *time.Time `json:"starts_at"`
	EndsAt          *time.Time `json:"ends_at"`
	Timezone        *string    `json:"timezone"`
	IsInviteOnly    *bool      `json:"is_invite_only"`
	IsVolunteerOpen *bool      `json:"is_volunteer_open"`
	Tags            *[]string  `json:"tags"`
}

// Handler handles event HTTP endpoints.
type Handler struct {
	svc *Service
}

// NewHandler creates an events handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// Create handles POST /events.
func (h *Handler) Create(c *gin.Context) {
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	e, err := h.svc.Create(c.Request.Context(), CreateInput{
		Title:           req.Title,
		Description:     req.Description,
		Venue:           req.Venue,
		StartsAt:        req.StartsAt,
		EndsAt:          req.EndsAt,
		Timezone:        req.Timezone,
		ParentEventID:   req.ParentEventID,
		IsInviteOnly:    req.IsInviteOnly,
		IsVolunteerOpen: req.IsVolunteerOpen,
		Tags:            req.Tags,
	}, middleware.MustActor(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, e)
}

// Get handles GET /events/:id.
func (h *Handler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}
	e, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, e)
}

// Update handles PATCH /events/:id.
func (h *Handler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}
	var req UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	e, err := h.svc.Update(c.Request.Context(), id, models.EventPatch{
		Title:           req.Title,
		Description:     req.Description,
		Venue:           req.Venue,
		StartsAt:        req.StartsAt,
		EndsAt:          req.EndsAt,
		Timezone:        req.Timezone,
		IsInviteOnly:    req.IsInviteOnly,
		IsVolunteerOpen: req.IsVolunteerOpen,
		Tags:            req.Tags,
	}, middleware.MustActor(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, e)
}

// List handles GET /events?tag=&limit=.
func (h *Handler) List(c *gin.Context) {
	list, err := h.svc.List(c.Request.Context(), c.Query("tag"), queryLimit(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	if list == nil {
		list = []models.Event{}
	}
	response.OK(c, list)
}

// Recommended handles GET /events/recommended.
func (h *Handler) Recommended(c *gin.Context) {
	list, err := h.svc.Recommend(c.Request.Context(), middleware.MustActor(c), queryLimit(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, list)
}

func queryLimit(c *gin.Context) int {
	n, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || n <= 0 || n > 200 {
		return 50
	}
	return n
}
