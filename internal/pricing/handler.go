package pricing

import (
	"math"
	"net/http"
	"strconv"

	"hotelpricing/internal/analysis"
	"hotelpricing/internal/apierror"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	service *Service
	owners  analysis.Owners
}

func NewHandler(service *Service, owners analysis.Owners) *Handler {
	return &Handler{service: service, owners: owners}
}

// GET /api/pricing/summary?price=120&uploadId=...
func (h *Handler) Summary(c *gin.Context) {
	var price *float64
	if raw := c.Query("price"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			apierror.BadRequest(c, "price must be a non-negative number")
			return
		}
		price = &v
	}

	scope, ok := analysis.RequestScope(c, h.owners, c.Query("uploadId"))
	if !ok {
		return
	}

	summary, err := h.service.Summarize(c.Request.Context(), scope, price)
	if err != nil {
		apierror.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}
