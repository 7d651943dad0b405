package api

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"leadboard-go/internal/metrics"
	"leadboard-go/internal/middleware"
)

// SetupRoutes configures all the application routes with their handlers and middleware.
// Global middleware (logging, recovery, CORS, CSRF) is applied to router by the caller.
// m may be nil, in which case /metrics is not served.
func SetupRoutes(
	router *gin.Engine,
	logger *zap.Logger,
	dashboard Dashboard,
	mutations ClientMutator,
	m *metrics.Metrics,
) error {
	tmpl, err := LoadTemplates()
	if err != nil {
		return fmt.Errorf("failed to parse templates: %w", err)
	}
	router.SetHTMLTemplate(tmpl)

	requireSession := middleware.RequireSession(dashboard)
	dashboardHandler := NewDashboardHandler(dashboard, mutations, logger)
	stateHandler := NewStateHandler(dashboard, mutations, logger)

	// --- Server-rendered screens ---
	router.GET("/", dashboardHandler.Page)
	router.POST("/logout", dashboardHandler.Logout)
	router.POST("/clients", dashboardHandler.AddClient)
	router.POST("/clients/:clientId/delete", dashboardHandler.DeleteClient)
	router.POST("/clients/:clientId/leads", dashboardHandler.ViewLeads)
	router.POST("/back", dashboardHandler.Back)

	// --- JSON API ---
	apiV1 := router.Group("/api/v1")
	{
		apiV1.GET("/state", stateHandler.GetState)
		apiV1.GET("/events", stateHandler.Events)
		apiV1.POST("/logout", stateHandler.Logout)

		sessionGroup := apiV1.Group("", requireSession)
		{
			sessionGroup.POST("/clients", stateHandler.CreateClient)
			sessionGroup.DELETE("/clients/:clientId", stateHandler.DeleteClient)
			sessionGroup.POST("/clients/:clientId/leads", stateHandler.ViewLeads)
			sessionGroup.POST("/back", stateHandler.Back)
		}
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "UP",
			"message": "Leadboard is healthy.",
			"view":    dashboard.State().View,
		})
	})
	if m != nil {
		router.GET("/metrics", gin.WrapH(m.Handler()))
	}

	logger.Info("Routes configured: screens at /, API under /api/v1, /health and /metrics.")
	return nil
}
