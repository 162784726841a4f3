package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/eventhub/backend/internal/apperr"
)

// Body is the standard API response envelope.
type Body struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Code    apperr.Kind `json:"code,omitempty"`
}

// OK sends a 200 JSON response with data.
func OK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Body{Success: true, Data: data})
}

// Created sends a 201 JSON response with data.
func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Body{Success: true, Data: data})
}

// Accepted sends a 202 JSON response with data.
func Accepted(c *gin.Context, data interface{}) {
	c.JSON(http.StatusAccepted, Body{Success: true, Data: data})
}

// NoContent sends 204.
func NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// BadRequest sends 400 with error message.
func BadRequest(c *gin.Context, err string) {
	c.JSON(http.StatusBadRequest, Body{Success: false, Error: err, Code: apperr.Invalid})
}

// Unauthorized sends 401 (missing or invalid credentials).
func Unauthorized(c *gin.Context, err string) {
	c.JSON(http.StatusUnauthorized, Body{Success: false, Error: err})
}

// Forbidden sends 403.
func Forbidden(c *gin.Context, err string) {
	c.JSON(http.StatusForbidden, Body{Success: false, Error: err, Code: apperr.Forbidden})
}

// NotFound sends 404.
func NotFound(c *gin.Context, err string) {
	c.JSON(http.StatusNotFound, Body{Success: false, Error: err, Code: apperr.NotFound})
}

// Internal sends 500.
func Internal(c *gin.Context, err string) {
	c.JSON(http.StatusInternalServerError, Body{Success: false, Error: err})
}

// Status maps an error kind to its HTTP status.
// Unauthorized here is the domain denial (authenticated but not permitted), so it is 403.
func Status(kind apperr.Kind) int {
	switch kind {
	case apperr.NotFound, apperr.InvalidTicket:
		return http.StatusNotFound
	case apperr.Conflict, apperr.AlreadyCheckedIn:
		return http.StatusConflict
	case apperr.Unauthorized, apperr.Forbidden:
		return http.StatusForbidden
	case apperr.Invalid:
		return http.StatusBadRequest
	default:
		return http.StatusServiceUnavailable
	}
}

// Error sends the envelope for a service error, keeping the cause out of the body.
func Error(c *gin.Context, err error) {
	kind := apperr.KindOf(err)
	c.JSON(Status(kind), Body{Success: false, Error: apperr.Message(err), Code: kind})
}
