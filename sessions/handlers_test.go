package sessions

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/shahram8708/PromptX/internal/apperr"
	"github.com/stretchr/testify/require"
)

func TestRespondErrorMapsAppErrors(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"validation", apperr.NewValidation("prompt must not be empty"), http.StatusBadRequest},
		{"not found", apperr.NewNotFound("session not found: x"), http.StatusNotFound},
		{"upstream", apperr.NewUpstream("pexels", errors.New("down")), http.StatusBadGateway},
		{"resource", apperr.NewResource("write clip", errors.New("disk full")), http.StatusInternalServerError},
		{"untyped", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)

			respondError(c, tt.err)
			require.Equal(t, tt.wantStatus, w.Code)
			require.Contains(t, w.Body.String(), "error")
		})
	}
}

func TestStartSessionRejectsMissingPrompt(t *testing.T) {
	gin.SetMode(gin.TestMode)

	h := &Handler{}
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest("POST", "/generate", nil)

	h.StartSession(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}
