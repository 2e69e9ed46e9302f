package server

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Subaashini27/precision-marketing-intelligence/internal/domain"
)

func (s *Server) registerRoutes() {
	// Observability endpoints (no auth required)
	s.echo.GET("/health/live", s.handleLiveness)
	s.echo.GET("/health/ready", s.handleReadiness)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	s.echo.GET("/version", s.handleVersion)

	api := s.echo.Group("/api")

	// Credential endpoints are rate limited per IP
	auth := api.Group("/auth")
	auth.POST("/register", s.handleRegister, authRateLimiter())
	auth.POST("/login", s.handleLogin, authRateLimiter())
	auth.GET("/me", s.handleMe, s.requireAuth)

	users := api.Group("/users", s.requireAuth)
	users.GET("", s.handleListUsers, s.requireAdmin)
	users.GET("/:id", s.handleGetUser)
	users.PUT("/me", s.handleUpdateProfile)
	users.DELETE("/:id", s.handleDeleteUser, s.requireAdmin)

	campaigns := api.Group("/campaigns", s.requireAuth)
	campaigns.POST("", s.handleCreateCampaign)
	campaigns.GET("", s.handleListCampaigns)
	campaigns.GET("/:id", s.handleGetCampaign)
	campaigns.PUT("/:id", s.handleUpdateCampaign)
	campaigns.PUT("/:id/metrics", s.handleUpdateCampaignMetrics)
	campaigns.DELETE("/:id", s.handleDeleteCampaign)
	campaigns.GET("/:id/performance", s.handleCampaignPerformance)
	campaigns.GET("/:id/predictions", s.handleCampaignPredictions)

	analytics := api.Group("/analytics", s.requireAuth)
	analytics.POST("", s.handleCreateAnalytics)
	analytics.GET("", s.handleListAnalytics)
	analytics.GET("/summary", s.handleAnalyticsSummary)
	analytics.GET("/:id", s.handleGetAnalytics)
	analytics.DELETE("/:id", s.handleDeleteAnalytics)

	ml := api.Group("/ml", s.requireAuth)
	ml.POST("/predict/conversion", s.handlePredict(domain.PredictionTypeConversion))
	ml.POST("/predict/churn", s.handlePredict(domain.PredictionTypeChurn))
	ml.POST("/predict/roi", s.handlePredict(domain.PredictionTypeROI))
	ml.POST("/predict/campaign-performance", s.handlePredict(predictTypeCampaignPerformance))
	ml.GET("/predictions", s.handleListPredictions)
	ml.GET("/models/status", s.handleModelStatus)

	powerbi := api.Group("/powerbi", s.requireAuth)
	powerbi.GET("/status", s.handlePowerBIStatus)
	powerbi.GET("/workspaces", s.handleListWorkspaces)
	powerbi.GET("/workspaces/:workspaceID/reports", s.handleWorkspaceReports)
	powerbi.GET("/workspaces/:workspaceID/datasets", s.handleWorkspaceDatasets)
	powerbi.POST("/reports", s.handleCreateReport)
	powerbi.GET("/reports", s.handleListReports)
	powerbi.GET("/reports/:id", s.handleGetReport)
	powerbi.PUT("/reports/:id", s.handleUpdateReport)
	powerbi.DELETE("/reports/:id", s.handleDeleteReport)
	powerbi.POST("/reports/:id/favorite", s.handleFavoriteReport)
	powerbi.GET("/reports/:id/embed-config", s.handleEmbedConfig)
	powerbi.POST("/reports/:id/refresh", s.handleRefreshReport)
	powerbi.GET("/reports/:id/refresh-history", s.handleRefreshHistory)
	powerbi.GET("/reports/:id/pages", s.handleReportPages)

	alerts := api.Group("/alerts")
	alerts.GET("/ws", s.handleAlertsWebSocket, wsRateLimiter()) // token check inside (query param)
	alerts.POST("/publish", s.handlePublishAlert, s.requireAuth)
	alerts.POST("/check/budget", s.handleCheckBudget, s.requireAuth)
	alerts.POST("/check/performance", s.handleCheckPerformance, s.requireAuth)
	alerts.POST("/check/campaign/:id", s.handleCheckCampaign, s.requireAuth)
	alerts.POST("/reports/weekly", s.handleSendWeeklyReport, s.requireAuth)
}
