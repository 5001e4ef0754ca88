package analysis

import (
	"net/http"

	"hotelpricing/internal/apierror"
	"hotelpricing/internal/auth"

	"github.com/gin-gonic/gin"
)

// Handler serves analyses and insights. Both follow the owner of their
// upload; rows of other users look missing.
type Handler struct {
	analyses Repository
	insights InsightRepository
	owners   Owners
}

func NewHandler(analyses Repository, insights InsightRepository, owners Owners) *Handler {
	return &Handler{analyses: analyses, insights: insights, owners: owners}
}

// View is an analysis as returned to the dashboard.
type View struct {
	Analysis
	Badge string `json:"badge"`
}

func NewView(a Analysis) View {
	return View{Analysis: a, Badge: BadgeFor(&a)}
}

// GET /api/document-analyses
func (h *Handler) List(c *gin.Context) {
	scope, ok := RequestScope(c, h.owners, c.Query("uploadId"))
	if !ok {
		return
	}

	list, err := h.analyses.List(c.Request.Context(), Filter{
		UploadID:     scope.UploadID(),
		AnalysisType: c.Query("analysisType"),
		Status:       c.Query("status"),
		Scope:        scope,
	})
	if err != nil {
		apierror.Respond(c, err)
		return
	}

	views := make([]View, 0, len(list))
	for _, a := range list {
		views = append(views, NewView(a))
	}
	c.JSON(http.StatusOK, views)
}

// GET /api/document-analyses/:id
func (h *Handler) Get(c *gin.Context) {
	a, ok := h.load(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, NewView(*a))
}

// DELETE /api/document-analyses/:id
func (h *Handler) Delete(c *gin.Context) {
	a, ok := h.load(c)
	if !ok {
		return
	}
	if err := h.analyses.Delete(c.Request.Context(), a.ID); err != nil {
		apierror.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": a.ID, "deleted": true})
}

// load fetches the analysis in :id if the caller may see its upload.
func (h *Handler) load(c *gin.Context) (*Analysis, bool) {
	a, err := h.analyses.Get(c.Request.Context(), c.Param("id"))
	if err == nil && !h.visible(c, a.UploadID) {
		err = ErrAnalysisNotFound
	}
	if err != nil {
		apierror.Respond(c, err)
		return nil, false
	}
	return a, true
}

// visible checks a single upload without listing every upload of the caller.
func (h *Handler) visible(c *gin.Context, uploadID string) bool {
	if c.GetString("userRole") == auth.RoleAdmin {
		return true
	}
	owner, err := h.owners.UploadOwner(c.Request.Context(), uploadID)
	return err == nil && owner == c.GetString("userID")
}

// GET /api/document-insights
func (h *Handler) ListInsights(c *gin.Context) {
	scope, ok := RequestScope(c, h.owners, c.Query("uploadId"))
	if !ok {
		return
	}

	list, err := h.insights.List(c.Request.Context(), scope.UploadID())
	if err != nil {
		apierror.Respond(c, err)
		return
	}

	out := list[:0]
	for i := range list {
		if scope.AllowsInsight(&list[i]) {
			out = append(out, list[i])
		}
	}
	c.JSON(http.StatusOK, out)
}

// DELETE /api/document-insights/:id
func (h *Handler) DeleteInsight(c *gin.Context) {
	ctx := c.Request.Context()

	in, err := h.insights.Get(ctx, c.Param("id"))
	if err == nil && !h.insightVisible(c, in) {
		err = ErrInsightNotFound
	}
	if err == nil {
		err = h.insights.Delete(ctx, in.ID)
	}
	if err != nil {
		apierror.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": in.ID, "deleted": true})
}

func (h *Handler) insightVisible(c *gin.Context, in *Insight) bool {
	switch {
	case c.GetString("userRole") == auth.RoleAdmin:
		return true
	case in.UploadID != nil:
		return h.visible(c, *in.UploadID)
	default:
		return in.UserID != nil && *in.UserID == c.GetString("userID")
	}
}
