package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/rfeflow/rfe-api/internal/middleware"
	"github.com/rfeflow/rfe-api/internal/service"
)

// Handlers bundles every handler for route registration.
type Handlers struct {
	Auth      *AuthHandler
	Tenant    *TenantHandler
	Users     *UserHandler
	Cases     *CaseHandler
	Documents *DocumentHandler
	Sections  *SectionHandler
	Checklist *ChecklistHandler
	Drafts    *DraftHandler
	Exhibits  *ExhibitHandler
	Knowledge *KnowledgeDocHandler
	Dashboard *DashboardHandler
	Exports   *ExportHandler
	Analysis  *AnalysisHandler
}

// RegisterRoutes mounts the API under the given prefix. Auth login/refresh
// and the engine callbacks are the only routes outside the JWT guard.
func RegisterRoutes(r *gin.Engine, prefix string, h Handlers, authService *service.AuthService) {
	api := r.Group(prefix)

	auth := api.Group("/auth")
	auth.POST("/login", h.Auth.Login)
	auth.POST("/refresh", h.Auth.Refresh)

	engine := api.Group("/internal/analysis", h.Analysis.Authenticate)
	engine.POST("/results", h.Analysis.IngestResults)
	engine.POST("/drafts", h.Analysis.IngestDraft)
	engine.POST("/documents", h.Analysis.DocumentProcessed)

	secured := api.Group("", middleware.JWT(authService))

	secured.POST("/auth/logout", h.Auth.Logout)
	secured.PUT("/auth/password", h.Auth.ChangePassword)
	secured.GET("/auth/me", h.Auth.Me)

	secured.GET("/tenant", h.Tenant.Get)
	secured.PATCH("/tenant", h.Tenant.Update)

	secured.GET("/users", h.Users.List)
	secured.POST("/users", h.Users.Create)
	secured.GET("/users/:id", h.Users.Get)
	secured.PATCH("/users/:id", h.Users.Update)
	secured.POST("/users/:id/resend-invitation", h.Users.ResendInvitation)

	secured.GET("/dashboard", h.Dashboard.Summary)

	secured.GET("/knowledge-docs", h.Knowledge.List)
	secured.POST("/knowledge-docs", h.Knowledge.Create)
	secured.GET("/knowledge-docs/:id", h.Knowledge.Get)
	secured.PATCH("/knowledge-docs/:id", h.Knowledge.Update)
	secured.DELETE("/knowledge-docs/:id", h.Knowledge.Delete)

	secured.GET("/exports/download", h.Exports.Download)
	secured.GET("/exports/:jobId", h.Exports.GetJob)

	cases := secured.Group("/cases")
	cases.GET("", h.Cases.List)
	cases.POST("", h.Cases.Create)
	cases.GET("/:id", h.Cases.Get)
	cases.PATCH("/:id", h.Cases.Update)
	cases.DELETE("/:id", h.Cases.Delete)
	cases.GET("/:id/audit", h.Cases.AuditTrail)

	cases.POST("/:id/start-analysis", h.Cases.StartAnalysis)
	cases.POST("/:id/complete-analysis", h.Cases.CompleteAnalysis)
	cases.POST("/:id/mark-reviewed", h.Cases.MarkReviewed)
	cases.POST("/:id/mark-responded", h.Cases.MarkResponded)
	cases.POST("/:id/archive", h.Cases.Archive)
	cases.POST("/:id/reopen", h.Cases.Reopen)
	cases.POST("/:id/assign-attorney", h.Cases.AssignAttorney)

	cases.POST("/:id/export", h.Exports.Enqueue)
	cases.GET("/:id/exports", h.Exports.ListJobs)

	cases.GET("/:id/documents", h.Documents.List)
	cases.POST("/:id/documents", h.Documents.Create)
	cases.GET("/:id/documents/:documentId", h.Documents.Get)

	cases.GET("/:id/sections", h.Sections.List)
	cases.GET("/:id/sections/:sectionId", h.Sections.Get)
	cases.PATCH("/:id/sections/:sectionId", h.Sections.Update)
	cases.POST("/:id/sections/:sectionId/reclassify", h.Sections.Reclassify)

	cases.GET("/:id/checklist", h.Checklist.List)
	cases.PATCH("/:id/checklist/:itemId", h.Checklist.Update)
	cases.POST("/:id/checklist/:itemId/toggle", h.Checklist.ToggleCollected)

	cases.GET("/:id/drafts", h.Drafts.List)
	cases.GET("/:id/drafts/:draftId", h.Drafts.Get)
	cases.PATCH("/:id/drafts/:draftId", h.Drafts.Update)
	cases.POST("/:id/drafts/:draftId/approve", h.Drafts.Approve)
	cases.POST("/:id/drafts/:draftId/regenerate", h.Drafts.Regenerate)

	cases.GET("/:id/exhibits", h.Exhibits.List)
	cases.POST("/:id/exhibits", h.Exhibits.Create)
	cases.GET("/:id/exhibits/:exhibitId", h.Exhibits.Get)
	cases.PATCH("/:id/exhibits/:exhibitId", h.Exhibits.Update)
	cases.DELETE("/:id/exhibits/:exhibitId", h.Exhibits.Delete)
}
