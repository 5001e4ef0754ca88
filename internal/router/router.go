package router

import (
	"context"
	"net/http"
	"time"

	"hotelpricing/internal/ai"
	"hotelpricing/internal/analysis"
	"hotelpricing/internal/approvals"
	"hotelpricing/internal/auth"
	"hotelpricing/internal/documents"
	"hotelpricing/internal/middleware"
	"hotelpricing/internal/ocr"
	"hotelpricing/internal/pricing"

	"github.com/gin-gonic/gin"
)

// Deps carries everything the HTTP layer needs. Ping is optional and is
// used by /health to report database reachability.
type Deps struct {
	Tokens         *auth.TokenManager
	CookieName     string
	AllowedOrigins []string
	Ping           func(ctx context.Context) error

	Auth      *auth.Handler
	Documents *documents.Handler
	Analyses  *analysis.Handler
	OCR       *ocr.Handler
	AI        *ai.Handler
	Pricing   *pricing.Handler
	Approvals *approvals.Handler
}

func New(d Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())
	r.Use(middleware.CORS(d.AllowedOrigins))

	r.GET("/health", health(d.Ping))

	// ───────────────────────── AUTH ─────────────────────────
	authGroup := r.Group("/api/auth")
	{
		authGroup.POST("/register", d.Auth.Register)
		authGroup.POST("/login", d.Auth.Login)
		authGroup.POST("/logout", d.Auth.Logout)
	}

	api := r.Group("/api")
	api.Use(middleware.AuthMiddleware(d.Tokens, d.CookieName))

	api.GET("/auth/user", d.Auth.User)

	// ───────────────────────── UPLOADS ─────────────────────────
	uploads := api.Group("/document-uploads")
	{
		uploads.POST("", d.Documents.Upload)
		uploads.GET("", d.Documents.List)
		uploads.GET("/:id", d.Documents.Get)
		uploads.GET("/:id/status", d.Documents.Status)
		uploads.GET("/:id/tree", d.Documents.Tree)
		uploads.POST("/:id/retry", d.Documents.Retry)
		uploads.DELETE("/:id", d.Documents.Delete)
	}

	// ───────────────────────── ANALYSES ─────────────────────────
	analyses := api.Group("/document-analyses")
	{
		analyses.GET("", d.Analyses.List)
		analyses.GET("/:id", d.Analyses.Get)
		analyses.DELETE("/:id", d.Analyses.Delete)
	}

	insights := api.Group("/document-insights")
	{
		insights.GET("", d.Analyses.ListInsights)
		insights.DELETE("/:id", d.Analyses.DeleteInsight)
	}

	api.POST("/process-ocr", d.OCR.Process)

	// ───────────────────────── AI ─────────────────────────
	aiGroup := api.Group("/ai")
	{
		aiGroup.POST("/mass-summary", d.AI.MassSummary)
		aiGroup.POST("/fresh-analysis", d.AI.FreshAnalysis)
		aiGroup.POST("/intelligent-restoration", d.AI.Restore)
		aiGroup.POST("/comprehensive-analysis", d.AI.StartComprehensive)
		aiGroup.GET("/comprehensive-analysis/:jobId", d.AI.GetComprehensive)
		aiGroup.POST("/analytics-query", d.AI.AnalyticsQuery)
	}

	api.GET("/pricing/summary", d.Pricing.Summary)

	// ───────────────────────── APPROVALS ─────────────────────────
	approvalGroup := api.Group("/approvals")
	{
		approvalGroup.POST("", d.Approvals.Create)
		approvalGroup.GET("", d.Approvals.List)
		approvalGroup.GET("/stats", d.Approvals.Stats)
		approvalGroup.GET("/:id", d.Approvals.Get)
		approvalGroup.DELETE("/:id", d.Approvals.Delete)

		admin := approvalGroup.Group("")
		admin.Use(middleware.RequireRole(auth.RoleAdmin))
		admin.POST("/:id/approve", d.Approvals.Approve)
		admin.POST("/:id/reject", d.Approvals.Reject)
	}

	return r
}

func health(ping func(ctx context.Context) error) gin.HandlerFunc {
	return func(c *gin.Context) {
		if ping != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			if err := ping(ctx); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "database": "unreachable"})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}
