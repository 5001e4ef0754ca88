package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"hotelpricing/internal/analysis"
	"hotelpricing/internal/auth"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testOwners = analysis.OwnerMap{"u1": "alice", "u2": "bob"}

// aiRouter serves h as alice, who owns u1.
func aiRouter(h *Handler) *gin.Engine {
	return aiRouterAs(h, "alice", auth.RoleUser)
}

func aiRouterAs(h *Handler, userID, role string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("userID", userID)
		c.Set("userRole", role)
	})
	g := r.Group("/api/ai")
	g.POST("/mass-summary", h.MassSummary)
	g.POST("/fresh-analysis", h.FreshAnalysis)
	g.POST("/intelligent-restoration", h.Restore)
	g.POST("/comprehensive-analysis", h.StartComprehensive)
	g.GET("/comprehensive-analysis/:jobId", h.GetComprehensive)
	g.POST("/analytics-query", h.AnalyticsQuery)
	return r
}

func do(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHandlers_Batch(t *testing.T) {
	f := &fakeLLM{}
	svc, repo, _ := newTestService(f)
	seed(t, repo, "u1", "a.pdf", analysis.StatusCompleted, "")
	r := aiRouter(NewHandler(svc, NewJobManager(svc), testOwners))

	w := do(r, http.MethodPost, "/api/ai/mass-summary", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var body struct {
		Processed int `json:"processed"`
		Skipped   int `json:"skipped"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 1, body.Processed)

	w = do(r, http.MethodPost, "/api/ai/intelligent-restoration", `{"uploadId":"u1"}`)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 1, body.Skipped)

	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodPost, "/api/ai/fresh-analysis", `{"uploadId":`).Code)
}

func TestHandlers_ComprehensiveJob(t *testing.T) {
	svc, repo, _ := newTestService(&fakeLLM{})
	seed(t, repo, "u1", "a.pdf", analysis.StatusCompleted, currentEnvelope)
	jobs := NewJobManager(svc)
	r := aiRouter(NewHandler(svc, jobs, testOwners))

	w := do(r, http.MethodPost, "/api/ai/comprehensive-analysis", "")
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())

	var job Job
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &job))
	require.NotEmpty(t, job.ID)
	jobs.Wait()

	w = do(r, http.MethodGet, "/api/ai/comprehensive-analysis/"+job.ID, "")
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &job))
	assert.Equal(t, JobCompleted, job.Status)

	assert.Equal(t, http.StatusNotFound, do(r, http.MethodGet, "/api/ai/comprehensive-analysis/missing", "").Code)
}

func TestHandlers_AnalyticsQuery(t *testing.T) {
	svc, repo, _ := newTestService(&fakeLLM{})
	seed(t, repo, "u1", "rates.pdf", analysis.StatusCompleted, currentEnvelope)
	r := aiRouter(NewHandler(svc, NewJobManager(svc), testOwners))

	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodPost, "/api/ai/analytics-query", `{}`).Code)

	w := do(r, http.MethodPost, "/api/ai/analytics-query", `{"question":"Average rate?"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp AnalyticsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.AnswerHTML)
}

func TestHandlers_ScopeToOwnUploads(t *testing.T) {
	f := &fakeLLM{}
	svc, repo, _ := newTestService(f)
	seed(t, repo, "u1", "mine.pdf", analysis.StatusCompleted, "")
	theirs := seed(t, repo, "u2", "theirs.pdf", analysis.StatusCompleted, "")
	jobs := NewJobManager(svc)
	h := NewHandler(svc, jobs, testOwners)
	r := aiRouter(h)

	assert.Equal(t, http.StatusNotFound, do(r, http.MethodPost, "/api/ai/mass-summary", `{"uploadId":"u2"}`).Code)
	assert.Equal(t, http.StatusNotFound, do(r, http.MethodPost, "/api/ai/comprehensive-analysis", `{"uploadId":"u2"}`).Code)
	assert.Equal(t, 0, f.count())

	w := do(r, http.MethodPost, "/api/ai/mass-summary", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var body struct {
		Processed int `json:"processed"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 1, body.Processed)

	got, err := repo.Get(context.Background(), theirs.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Insights, "bob's analysis stays untouched")

	w = do(r, http.MethodPost, "/api/ai/comprehensive-analysis", "")
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
	var job Job
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &job))
	jobs.Wait()

	bob := aiRouterAs(h, "bob", auth.RoleUser)
	assert.Equal(t, http.StatusNotFound, do(bob, http.MethodGet, "/api/ai/comprehensive-analysis/"+job.ID, "").Code)
	admin := aiRouterAs(h, "root", auth.RoleAdmin)
	assert.Equal(t, http.StatusOK, do(admin, http.MethodGet, "/api/ai/comprehensive-analysis/"+job.ID, "").Code)
}
