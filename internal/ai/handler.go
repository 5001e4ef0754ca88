package ai

import (
	"errors"
	"io"
	"net/http"

	"hotelpricing/internal/analysis"
	"hotelpricing/internal/apierror"
	"hotelpricing/internal/auth"

	"github.com/gin-gonic/gin"
)

// Handler runs AI operations over the uploads the caller owns. Admins
// reach every upload.
type Handler struct {
	service *Service
	jobs    *JobManager
	owners  analysis.Owners
}

func NewHandler(service *Service, jobs *JobManager, owners analysis.Owners) *Handler {
	return &Handler{service: service, jobs: jobs, owners: owners}
}

type scopeRequest struct {
	UploadID string `json:"uploadId"`
}

// bindScope accepts an empty body as "all uploads of the caller".
func (h *Handler) bindScope(c *gin.Context) (analysis.Scope, bool) {
	var req scopeRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
			apierror.BadRequest(c, "invalid request body")
			return analysis.Scope{}, false
		}
	}
	return analysis.RequestScope(c, h.owners, req.UploadID)
}

func (h *Handler) batch(c *gin.Context, run func(c *gin.Context, scope analysis.Scope) (*BatchResult, error)) {
	scope, ok := h.bindScope(c)
	if !ok {
		return
	}

	res, err := run(c, scope)
	if err != nil && (res == nil || !errors.Is(err, apierror.ErrRateLimited)) {
		apierror.Respond(c, err)
		return
	}

	status := http.StatusOK
	body := gin.H{
		"success":    err == nil,
		"processed":  res.Processed,
		"skipped":    res.Skipped,
		"failed":     res.Failed,
		"restored":   res.Restored,
		"results":    res.Results,
		"invalidate": []string{"document-analyses"},
	}
	if err != nil {
		status = http.StatusTooManyRequests
		body["message"] = apierror.RateLimitedMessage
	}
	c.JSON(status, body)
}

// --------------------------------------------------
// POST /api/ai/mass-summary
// --------------------------------------------------
func (h *Handler) MassSummary(c *gin.Context) {
	h.batch(c, func(c *gin.Context, scope analysis.Scope) (*BatchResult, error) {
		return h.service.MassSummary(c.Request.Context(), scope)
	})
}

// --------------------------------------------------
// POST /api/ai/fresh-analysis
// --------------------------------------------------
func (h *Handler) FreshAnalysis(c *gin.Context) {
	h.batch(c, func(c *gin.Context, scope analysis.Scope) (*BatchResult, error) {
		return h.service.FreshAnalysis(c.Request.Context(), scope)
	})
}

// --------------------------------------------------
// POST /api/ai/intelligent-restoration
// --------------------------------------------------
func (h *Handler) Restore(c *gin.Context) {
	h.batch(c, func(c *gin.Context, scope analysis.Scope) (*BatchResult, error) {
		return h.service.Restore(c.Request.Context(), scope)
	})
}

// --------------------------------------------------
// POST /api/ai/comprehensive-analysis
// --------------------------------------------------
func (h *Handler) StartComprehensive(c *gin.Context) {
	scope, ok := h.bindScope(c)
	if !ok {
		return
	}

	job, err := h.jobs.Start(c.Request.Context(), scope)
	if err != nil {
		apierror.Respond(c, err)
		return
	}
	c.JSON(http.StatusAccepted, job)
}

// --------------------------------------------------
// GET /api/ai/comprehensive-analysis/:jobId
// --------------------------------------------------
func (h *Handler) GetComprehensive(c *gin.Context) {
	// only the caller identity matters here, not the upload list
	scope := analysis.OwnedBy(c.GetString("userID"))
	if c.GetString("userRole") == auth.RoleAdmin {
		scope = analysis.Scope{UserID: c.GetString("userID")}
	}

	job, err := h.jobs.Get(c.Param("jobId"), scope)
	if err != nil {
		apierror.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, job)
}

type queryRequest struct {
	Question string `json:"question" binding:"required"`
}

// --------------------------------------------------
// POST /api/ai/analytics-query
// --------------------------------------------------
func (h *Handler) AnalyticsQuery(c *gin.Context) {
	var req queryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierror.BadRequest(c, "question is required")
		return
	}

	scope, ok := analysis.RequestScope(c, h.owners, "")
	if !ok {
		return
	}

	resp, err := h.service.Query(c.Request.Context(), scope, req.Question)
	if err != nil {
		apierror.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
