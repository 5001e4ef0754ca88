package ocr

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func processRouter(svc *Service, userID, role string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("userID", userID)
		c.Set("userRole", role)
		c.Next()
	})
	r.POST("/api/process-ocr", NewHandler(svc).Process)
	return r
}

func postJSON(r http.Handler, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/process-ocr", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestProcessHandler(t *testing.T) {
	svc, _, _, _ := fixture(t)
	r := processRouter(svc, "user-1", "USER")

	w := postJSON(r, `{"uploadId":"u1"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var body struct {
		Processed int `json:"processed"`
		Skipped   int `json:"skipped"`
		Failed    int `json:"failed"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 4, body.Processed)
	assert.Equal(t, 1, body.Skipped)
}

func TestProcessHandler_Queue(t *testing.T) {
	svc, _, _, _ := fixture(t)
	r := processRouter(svc, "user-1", "USER")

	w := postJSON(r, `{"uploadId":"u1","fileName":"rates.pdf","queue":true}`)
	assert.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
}

func TestProcessHandler_Rejects(t *testing.T) {
	svc, _, _, _ := fixture(t)

	assert.Equal(t, http.StatusBadRequest, postJSON(processRouter(svc, "user-1", "USER"), `{}`).Code)
	assert.Equal(t, http.StatusNotFound, postJSON(processRouter(svc, "user-2", "USER"), `{"uploadId":"u1"}`).Code)
	assert.Equal(t, http.StatusNotFound, postJSON(processRouter(svc, "user-1", "USER"), `{"uploadId":"missing"}`).Code)
	assert.Equal(t, http.StatusOK, postJSON(processRouter(svc, "admin", "ADMIN"), `{"uploadId":"u1"}`).Code)
}
