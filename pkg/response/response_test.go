package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eventhub/backend/internal/apperr"
)

func TestErrorMapsKinds(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cases := []struct {
		err    error
		status int
		code   apperr.Kind
		msg    string
	}{
		{apperr.E(apperr.NotFound, "event not found"), http.StatusNotFound, apperr.NotFound, "event not found"},
		{apperr.E(apperr.InvalidTicket, "invalid ticket"), http.StatusNotFound, apperr.InvalidTicket, "invalid ticket"},
		{apperr.E(apperr.Conflict, "already registered"), http.StatusConflict, apperr.Conflict, "already registered"},
		{apperr.E(apperr.AlreadyCheckedIn, "already checked in"), http.StatusConflict, apperr.AlreadyCheckedIn, "already checked in"},
		{apperr.E(apperr.Unauthorized, "not allowed"), http.StatusForbidden, apperr.Unauthorized, "not allowed"},
		{apperr.E(apperr.Forbidden, "owner only"), http.StatusForbidden, apperr.Forbidden, "owner only"},
		{apperr.E(apperr.Invalid, "bad status"), http.StatusBadRequest, apperr.Invalid, "bad status"},
		{apperr.Backend("load event", errors.New("dial tcp: refused")), http.StatusServiceUnavailable, apperr.BackendUnavailable, "load event failed"},
		{errors.New("boom"), http.StatusServiceUnavailable, apperr.BackendUnavailable, "service unavailable"},
	}
	for _, tc := range cases {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		Error(c, tc.err)

		require.Equal(t, tc.status, w.Code)
		var body Body
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.False(t, body.Success)
		assert.Equal(t, tc.code, body.Code)
		assert.Equal(t, tc.msg, body.Error)
	}
}
