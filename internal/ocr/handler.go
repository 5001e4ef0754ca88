package ocr

import (
	"errors"
	"net/http"

	"hotelpricing/internal/apierror"
	"hotelpricing/internal/auth"
	"hotelpricing/internal/documents"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type processRequest struct {
	UploadID string `json:"uploadId" binding:"required"`
	FileName string `json:"fileName"`
	Queue    bool   `json:"queue"`
}

// --------------------------------------------------
// POST /api/process-ocr
// --------------------------------------------------
func (h *Handler) Process(c *gin.Context) {
	var req processRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierror.BadRequest(c, "uploadId is required")
		return
	}

	u, err := h.service.Upload(c.Request.Context(), req.UploadID)
	if err != nil {
		apierror.Respond(c, err)
		return
	}
	if u.UserID != c.GetString("userID") && c.GetString("userRole") != auth.RoleAdmin {
		apierror.Respond(c, documents.ErrUploadNotFound)
		return
	}

	res, err := h.service.Process(c.Request.Context(), u, req.FileName, req.Queue)
	if err != nil && !(res != nil && errors.Is(err, apierror.ErrRateLimited)) {
		apierror.Respond(c, err)
		return
	}

	status := http.StatusOK
	switch {
	case err != nil:
		// partial results are still useful to the client
		status = http.StatusTooManyRequests
	case req.Queue && res.Queued > 0:
		status = http.StatusAccepted
	}

	c.JSON(status, gin.H{
		"success":    err == nil,
		"uploadId":   res.UploadID,
		"processed":  res.Processed,
		"skipped":    res.Skipped,
		"failed":     res.Failed,
		"queued":     res.Queued,
		"released":   res.Released,
		"results":    res.Results,
		"invalidate": []string{"document-analyses"},
	})
}
