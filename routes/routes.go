package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"incidentwatch/controllers"
	"incidentwatch/middleware"
	ws "incidentwatch/websocket"
)

// Dependencies holds everything the route table needs, wired by main.
type Dependencies struct {
	AuthController      *controllers.AuthController
	ReportController    *controllers.ReportController
	AnalyticsController *controllers.AnalyticsController
	HealthController    *controllers.HealthController

	AuthMiddleware *middleware.AuthMiddleware
	RateLimiter    *middleware.RateLimiter

	Hub *ws.Hub
}

// Setup registers every route on the engine.
func Setup(router *gin.Engine, deps Dependencies) {
	router.Use(middleware.RequestLogger(middleware.LoggerConfig{
		SkipPaths: []string{"/health", "/metrics"},
	}))
	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))
	router.Use(middleware.Metrics())
	if deps.RateLimiter != nil {
		router.Use(deps.RateLimiter.Middleware())
	}

	router.GET("/health", deps.HealthController.Health)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	router.GET("/ws", deps.AuthMiddleware.RequireAuth(), func(c *gin.Context) {
		reporterID := c.GetString(middleware.ContextReporterID)
		ws.Serve(deps.Hub, c.Writer, c.Request, reporterID)
	})

	v1 := router.Group("/api/v1")

	auth := v1.Group("/auth")
	{
		auth.POST("/register", deps.AuthController.Register)
		auth.POST("/login", deps.AuthController.Login)
		auth.GET("/me", deps.AuthMiddleware.RequireAuth(), deps.AuthController.Me)
	}

	reports := v1.Group("/reports")
	{
		reports.GET("", deps.ReportController.QueryReports)
		reports.GET("/:reportId", deps.ReportController.GetReport)

		authed := reports.Group("", deps.AuthMiddleware.RequireAuth())
		{
			authed.POST("", deps.ReportController.SubmitReport)
			authed.POST("/:reportId/evidence", deps.ReportController.UploadEvidence)
			authed.POST("/:reportId/verifications", deps.ReportController.SubmitVerification)
			authed.POST("/:reportId/updates", deps.ReportController.AddUpdate)
			authed.POST("/:reportId/response", deps.ReportController.AttachOfficialResponse)
			authed.POST("/:reportId/resolve", deps.ReportController.ResolveReport)
		}
	}

	v1.GET("/analytics", deps.AnalyticsController.GetAnalytics)
}
