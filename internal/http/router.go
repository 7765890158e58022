package http

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/DarienLibrary/covercache-public/internal/logger"
)

// NewRouter creates the HTTP router with all endpoints.
func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(logger.GinMiddleware(log.Logger))
	router.Use(gin.Recovery())

	if cfg.CoversDir != "" && cfg.MediaPath != "" {
		router.Static(cfg.MediaPath, cfg.CoversDir)
	}

	health := NewHealthController(cfg.Database, cfg.CoversDir, cfg.Version)
	router.GET("/health", health.Status)

	worksController := NewWorksController(cfg.Works)
	worksGroup := router.Group("/works")
	{
		worksGroup.GET("/stats", worksController.Stats)
		worksGroup.GET("/:id", worksController.Retrieve)
		worksGroup.POST("/:id/poll_sources", worksController.PollSources)
		worksGroup.POST("/:id/override", worksController.Override)
		worksGroup.GET("/:id/recommendations", worksController.Recommendations)
	}

	if cfg.TaskClient != nil {
		tasksController := NewTasksController(cfg.TaskClient)
		router.GET("/api/tasks/types", tasksController.ListTaskTypes)
		router.POST("/api/tasks/:type/run", tasksController.RunTask)
		router.GET("/api/tasks/:id", tasksController.GetTaskStatus)
	}

	if cfg.Progress != nil {
		maintenance := NewMaintenanceController(cfg.Progress, cfg.RunMaintenance)
		router.GET("/api/maintenance/status", maintenance.Status)
		router.POST("/api/maintenance/run", maintenance.Run)
	}

	return router
}
