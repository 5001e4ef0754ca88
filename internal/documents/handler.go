package documents

import (
	"errors"
	"net/http"

	"hotelpricing/internal/apierror"
	"hotelpricing/internal/auth"

	"github.com/gin-gonic/gin"
)

// InvalidateKeys are the client cache keys made stale by a new upload.
var InvalidateKeys = []string{"document-uploads", "document-analyses", "document-insights"}

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type uploadResponse struct {
	*Upload
	Invalidate []string `json:"invalidate"`
	Message    string   `json:"message"`
}

// --------------------------------------------------
// POST /api/document-uploads
// --------------------------------------------------
func (h *Handler) Upload(c *gin.Context) {
	userID := c.GetString("userID")

	// multipart framing needs some room above the file limit
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.service.maxBytes+1<<20)

	file, header, err := c.Request.FormFile("file")
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		apierror.Respond(c, h.service.tooLarge())
		return
	case err != nil:
		apierror.BadRequest(c, "file is required")
		return
	}
	defer file.Close()

	if err := ValidateFileExtension(header.Filename); err != nil {
		apierror.Respond(c, err)
		return
	}

	u, err := h.service.Upload(
		c.Request.Context(),
		userID,
		file,
		header.Filename,
		header.Size,
	)
	if err != nil {
		apierror.Respond(c, err)
		return
	}

	c.JSON(http.StatusCreated, uploadResponse{
		Upload:     u,
		Invalidate: InvalidateKeys,
		Message:    "Upload received. Extraction will start automatically.",
	})
}

// GET /api/document-uploads
func (h *Handler) List(c *gin.Context) {
	owner := c.GetString("userID")
	if c.GetString("userRole") == auth.RoleAdmin {
		owner = ""
	}

	list, err := h.service.List(c.Request.Context(), owner)
	if err != nil {
		apierror.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// GET /api/document-uploads/:id
func (h *Handler) Get(c *gin.Context) {
	u, ok := h.load(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, u)
}

// GET /api/document-uploads/:id/status
func (h *Handler) Status(c *gin.Context) {
	u, ok := h.load(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, NewStatusView(u))
}

// GET /api/document-uploads/:id/tree
func (h *Handler) Tree(c *gin.Context) {
	u, ok := h.load(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, BuildTree(u.ExtractedFiles))
}

// POST /api/document-uploads/:id/retry
func (h *Handler) Retry(c *gin.Context) {
	u, ok := h.load(c)
	if !ok {
		return
	}

	if err := h.service.Retry(c.Request.Context(), u.ID); err != nil {
		apierror.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":           u.ID,
		"uploadStatus": StatusPending,
		"message":      "Extraction restarted.",
	})
}

// DELETE /api/document-uploads/:id
func (h *Handler) Delete(c *gin.Context) {
	u, ok := h.load(c)
	if !ok {
		return
	}

	if err := h.service.Delete(c.Request.Context(), u.ID); err != nil {
		apierror.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":         u.ID,
		"deleted":    true,
		"invalidate": InvalidateKeys,
	})
}

// load fetches the upload in :id. Uploads of other users look missing
// unless the caller is an admin.
func (h *Handler) load(c *gin.Context) (*Upload, bool) {
	u, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		apierror.Respond(c, err)
		return nil, false
	}

	if u.UserID != c.GetString("userID") && c.GetString("userRole") != auth.RoleAdmin {
		apierror.Respond(c, ErrUploadNotFound)
		return nil, false
	}
	return u, true
}
