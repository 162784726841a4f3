package exports

import (
	"encoding/json"
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

func TestHandlerRequestAndGet(t *testing.T) {
	gin.SetMode(gin.TestMode)
	f := newFixture(t)
	jwtSvc := auth.NewJWTService("secret", "", 1)
	tok, err := jwtSvc.Generate(f.owner.ID, "owner@example.com", "Owner", models.CategoryProfessional)
	require.NoError(t, err)

	h := NewHandler(f.svc)
	r := gin.New()
	authed := r.Group("", middleware.JWT(jwtSvc))
	authed.POST("/events/:id/exports", h.Request)
	authed.GET("/exports/:id", h.Get)

	do := func(method, path string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, path, nil)
		req.Header.Set("Authorization", "Bearer "+tok)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	w := do(http.MethodPost, "/events/"+f.event.ID.String()+"/exports")
	require.Equal(t, http.StatusAccepted, w.Code)
	var body struct {
		Data models.Export `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, models.ExportQueued, body.Data.Status)

	w = do(http.MethodGet, "/exports/"+body.Data.ID.String())
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(http.MethodGet, "/exports/not-a-uuid")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
