package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/DarienLibrary/covercache-public/internal/database"
)

// MaintenanceController reports and triggers maintenance runs.
type MaintenanceController struct {
	progress ProgressReader
	run      func()
}

func NewMaintenanceController(progress ProgressReader, run func()) *MaintenanceController {
	return &MaintenanceController{progress: progress, run: run}
}

// Status handles GET /api/maintenance/status
func (mc *MaintenanceController) Status(c *gin.Context) {
	p, err := mc.progress.Get()
	if errors.Is(err, database.ErrNotFound) {
		c.JSON(http.StatusOK, gin.H{"status": "idle"})
		return
	}
	if err != nil {
		respondInternalError(c, err, "maintenance status")
		return
	}
	c.JSON(http.StatusOK, p)
}

// Run handles POST /api/maintenance/run
func (mc *MaintenanceController) Run(c *gin.Context) {
	if mc.run == nil {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "maintenance trigger not configured"})
		return
	}
	mc.run()
	c.JSON(http.StatusAccepted, gin.H{"message": "maintenance started"})
}
