package registrations

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eventhub/backend/internal/auth"
	"github.com/eventhub/backend/internal/middleware"
	"github.com/eventhub/backend/internal/models"
)

func TestTicketPNG(t *testing.T) {
	gin.SetMode(gin.TestMode)
	f := newFixture(t)
	a := attendee()
	_, err := f.svc.Register(context.Background(), f.event.ID, a)
	require.NoError(t, err)

	jwtSvc := auth.NewJWTService("secret", "", 1)
	tok, err := jwtSvc.Generate(a.ID, "a@example.com", "A", models.CategoryStudent)
	require.NoError(t, err)

	h := NewHandler(f.svc, nil)
	r := gin.New()
	r.GET("/events/:id/ticket", middleware.JWT(jwtSvc), h.Ticket)

	req := httptest.NewRequest(http.MethodGet, "/events/"+f.event.ID.String()+"/ticket?format=png", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("\x89PNG")))
}
