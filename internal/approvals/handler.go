package approvals

import (
	"net/http"

	"hotelpricing/internal/apierror"
	"hotelpricing/internal/auth"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func actor(c *gin.Context) Actor {
	return Actor{
		UserID: c.GetString("userID"),
		Admin:  c.GetString("userRole") == auth.RoleAdmin,
	}
}

// --------------------------------------------------
// POST /api/approvals
// --------------------------------------------------
func (h *Handler) Create(c *gin.Context) {
	var in CreateInput
	if err := c.ShouldBindJSON(&in); err != nil {
		apierror.BadRequest(c, "starCategory (1-5), inputSnapshot and calculationSnapshot are required")
		return
	}

	r, err := h.service.Create(c.Request.Context(), actor(c), in)
	if err != nil {
		apierror.Respond(c, err)
		return
	}
	c.JSON(http.StatusCreated, r)
}

// --------------------------------------------------
// GET /api/approvals?status=
// --------------------------------------------------
func (h *Handler) List(c *gin.Context) {
	status := c.Query("status")
	switch status {
	case "", StatusPending, StatusApproved, StatusRejected:
	default:
		apierror.BadRequest(c, "invalid status filter")
		return
	}

	list, err := h.service.List(c.Request.Context(), actor(c), status)
	if err != nil {
		apierror.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// --------------------------------------------------
// GET /api/approvals/stats
// --------------------------------------------------
func (h *Handler) Stats(c *gin.Context) {
	stats, err := h.service.Stats(c.Request.Context(), actor(c))
	if err != nil {
		apierror.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *Handler) Get(c *gin.Context) {
	r, err := h.service.Get(c.Request.Context(), actor(c), c.Param("id"))
	if err != nil {
		apierror.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, r)
}

type decisionRequest struct {
	AdminComment string `json:"adminComment"`
}

func bindDecision(c *gin.Context) (decisionRequest, bool) {
	var req decisionRequest
	if c.Request.ContentLength == 0 {
		return req, true
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		apierror.BadRequest(c, "invalid request body")
		return req, false
	}
	return req, true
}

// --------------------------------------------------
// POST /api/approvals/:id/approve  (ADMIN)
// --------------------------------------------------
func (h *Handler) Approve(c *gin.Context) {
	req, ok := bindDecision(c)
	if !ok {
		return
	}
	r, err := h.service.Approve(c.Request.Context(), actor(c), c.Param("id"), req.AdminComment)
	if err != nil {
		apierror.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, r)
}

// --------------------------------------------------
// POST /api/approvals/:id/reject  (ADMIN)
// --------------------------------------------------
func (h *Handler) Reject(c *gin.Context) {
	req, ok := bindDecision(c)
	if !ok {
		return
	}
	r, err := h.service.Reject(c.Request.Context(), actor(c), c.Param("id"), req.AdminComment)
	if err != nil {
		apierror.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, r)
}

// --------------------------------------------------
// DELETE /api/approvals/:id  (creator, pending only)
// --------------------------------------------------
func (h *Handler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), actor(c), c.Param("id")); err != nil {
		apierror.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": c.Param("id"), "deleted": true})
}
