package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/eventhub/backend/internal/auth"
	"github.com/eventhub/backend/internal/models"
	"github.com/eventhub/backend/pkg/response"
)

const (
	// ContextUserID is the key for user ID in gin context.
	ContextUserID = "user_id"
	// ContextUserEmail is the key for user email in gin context.
	ContextUserEmail = "user_email"
	// ContextUserName is the key for the display name in gin context.
	ContextUserName = "user_name"
	// ContextUserCategory is the key for the user category in gin context.
	ContextUserCategory = "user_category"
)

// JWT validates the bearer token and stores the caller's identity in the context.
func JWT(jwtService *auth.JWTService) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			response.Unauthorized(c, "missing authorization header")
			c.Abort()
			return
		}
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			response.Unauthorized(c, "invalid authorization header")
			c.Abort()
			return
		}
		claims, err := jwtService.Validate(parts[1])
		if err != nil {
			response.Unauthorized(c, "invalid or expired token")
			c.Abort()
			return
		}
		SetClaims(c, claims)
		c.Next()
	}
}

// SetClaims stores validated claims in the context.
func SetClaims(c *gin.Context, claims *auth.Claims) {
	actor := claims.Actor()
	c.Set(ContextUserID, actor.ID)
	c.Set(ContextUserEmail, actor.Email)
	c.Set(ContextUserName, claims.Name)
	c.Set(ContextUserCategory, actor.Category)
}

// Actor returns the authenticated caller. ok is false outside the JWT middleware.
func Actor(c *gin.Context) (models.Actor, bool) {
	id, ok := c.Get(ContextUserID)
	if !ok {
		return models.Actor{}, false
	}
	uid, ok := id.(uuid.UUID)
	if !ok {
		return models.Actor{}, false
	}
	category, _ := c.Get(ContextUserCategory)
	cat, _ := category.(models.Category)
	return models.Actor{ID: uid, Email: c.GetString(ContextUserEmail), Category: cat}, true
}

// MustActor returns the authenticated caller and panics outside the JWT middleware.
func MustActor(c *gin.Context) models.Actor {
	actor, ok := Actor(c)
	if !ok {
		panic("middleware: no authenticated actor in context")
	}
	return actor
}
