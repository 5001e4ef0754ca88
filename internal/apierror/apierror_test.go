package apierror

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("upload 42: %w", ErrNotFound), http.StatusNotFound},
		{fmt.Errorf("bad: %w", ErrInvalidInput), http.StatusBadRequest},
		{ErrForbidden, http.StatusForbidden},
		{ErrConflict, http.StatusConflict},
		{fmt.Errorf("upload: %w", ErrTooLarge), http.StatusRequestEntityTooLarge},
		{fmt.Errorf("openai: %w", ErrRateLimited), http.StatusTooManyRequests},
		{fmt.Errorf("mistral: %w", ErrUpstream), http.StatusBadGateway},
		{fmt.Errorf("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		got, _ := Status(tt.err)
		assert.Equal(t, tt.want, got, tt.err.Error())
	}
}

func TestRespond_Messages(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name    string
		err     error
		status  int
		message string
	}{
		{"client error keeps message", fmt.Errorf("file type not allowed: %w", ErrInvalidInput), 400, "file type not allowed: invalid input"},
		{"rate limit", fmt.Errorf("openai: %w", ErrRateLimited), 429, RateLimitedMessage},
		{"internal uses fallback", fmt.Errorf("db down"), 500, FallbackMessage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, "/x", nil)

			Respond(c, tt.err)

			require.Equal(t, tt.status, w.Code)
			var body Response
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tt.message, body.Message)
		})
	}
}
