package events

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eventhub/backend/internal/auth"
	"github.com/eventhub/backend/internal/middleware"
	"github.com/eventhub/backend/internal/models"
	"github.com/eventhub/backend/pkg/response"
)

func TestHandlerCreateAndPatch(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc, _ := newService(t)
	h := NewHandler(svc)
	jwtSvc := auth.NewJWTService("secret", "", 1)

	r := gin.New()
	g := r.Group("/", middleware.JWT(jwtSvc))
	g.POST("/events", h.Create)
	g.PATCH("/events/:id", h.Update)

	do := func(method, path, token string, body any) *httptest.ResponseRecorder {
		b, _ := json.Marshal(body)
		req := httptest.NewRequest(method, path, bytes.NewReader(b))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	proTok, _ := jwtSvc.Generate(pro.ID, pro.Email, "Pro", models.CategoryProfessional)
	studentTok, _ := jwtSvc.Generate(uuid.New(), "s@example.com", "Stu", models.CategoryStudent)
	body := map[string]any{"title": "Launch", "starts_at": t0, "ends_at": t0.Add(2 * time.Hour), "tags": []string{"Go"}}

	w := do(http.MethodPost, "/events", studentTok, body)
	require.Equal(t, http.StatusForbidden, w.Code)
	var env response.Body
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	assert.Equal(t, "forbidden", string(env.Code))

	w = do(http.MethodPost, "/events", proTok, body)
	require.Equal(t, http.StatusCreated, w.Code)
	var created struct {
		Data models.Event `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Equal(t, pro.ID, created.Data.OwnerID)

	w = do(http.MethodPatch, "/events/"+created.Data.ID.String(), studentTok, map[string]any{"title": "x"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = do(http.MethodPatch, "/events/"+created.Data.ID.String(), proTok, map[string]any{"venue": "Main hall"})
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(http.MethodPatch, "/events/not-a-uuid", proTok, map[string]any{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
