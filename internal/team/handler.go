package team

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/eventhub/backend/internal/middleware"
	"github.com/eventhub/backend/internal/models"
	"github.com/eventhub/backend/pkg/response"
)

// ApplyRequest is the body for POST /events/:id/team/apply. Role defaults to VOLUNTEER.
type ApplyRequest struct {
	Role models.TeamRole `json:"role"`
}

// InviteRequest is the body for POST /events/:id/team/invite.
type InviteRequest struct {
	Email string `json:"email" binding:"required,email"`
	InvitePermissions
}

// DecisionRequest is the body for PATCH /team/:id/respond and /team/:id/review.
type DecisionRequest struct {
	Status         models.Status `json:"status" binding:"required"`
	CanScanQR      *bool         `json:"can_scan_qr"`
	CanManageTasks *bool         `json:"can_manage_tasks"`
}

// Handler handles team HTTP endpoints.
type Handler struct {
	svc *Service
}

// NewHandler creates a team handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// Apply handles POST /events/:id/team/apply.
func (h *Handler) Apply(c *gin.Context) {
	eventID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}
	var req ApplyRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, "invalid request: "+err.Error())
			return
		}
	}
	if req.Role == "" {
		req.Role = models.RoleVolunteer
	}
	m, err := h.svc.Apply(c.Request.Context(), eventID, middleware.MustActor(c), req.Role)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, m)
}

// Invite handles POST /events/:id/team/invite.
func (h *Handler) Invite(c *gin.Context) {
	eventID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}
	var req InviteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	m, err := h.svc.InviteOrganizer(c.Request.Context(), eventID, middleware.MustActor(c), req.Email, req.InvitePermissions)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, m)
}

// List handles GET /events/:id/team.
func (h *Handler) List(c *gin.Context) {
	eventID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}
	list, err := h.svc.List(c.Request.Context(), eventID, middleware.MustActor(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	if list == nil {
		list = []models.TeamMemberView{}
	}
	response.OK(c, list)
}

// Remove handles DELETE /events/:id/team/:userId.
func (h *Handler) Remove(c *gin.Context) {
	eventID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}
	userID, err := uuid.Parse(c.Param("userId"))
	if err != nil {
		response.BadRequest(c, "invalid user id")
		return
	}
	if err := h.svc.Remove(c.Request.Context(), eventID, userID, middleware.MustActor(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Respond handles PATCH /team/:id/respond.
func (h *Handler) Respond(c *gin.Context) {
	id, req, ok := bindDecision(c)
	if !ok {
		return
	}
	m, err := h.svc.RespondToInvite(c.Request.Context(), id, middleware.MustActor(c), req.Status)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, m)
}

// Review handles PATCH /team/:id/review.
func (h *Handler) Review(c *gin.Context) {
	id, req, ok := bindDecision(c)
	if !ok {
		return
	}
	var perms *ApprovalPermissions
	if req.CanScanQR != nil || req.CanManageTasks != nil {
		perms = &ApprovalPermissions{
			CanScanQR:      req.CanScanQR != nil && *req.CanScanQR,
			CanManageTasks: req.CanManageTasks != nil && *req.CanManageTasks,
		}
	}
	m, err := h.svc.ReviewApplication(c.Request.Context(), id, req.Status, middleware.MustActor(c), perms)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, m)
}

// Invites handles GET /me/invites.
func (h *Handler) Invites(c *gin.Context) {
	list, err := h.svc.ListInvites(c.Request.Context(), middleware.MustActor(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	if list == nil {
		list = []models.TeamMember{}
	}
	response.OK(c, list)
}

func bindDecision(c *gin.Context) (uuid.UUID, DecisionRequest, bool) {
	var req DecisionRequest
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid membership id")
		return id, req, false
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return id, req, false
	}
	return id, req, true
}
