package http

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
)

type HealthResponse struct {
	Status  string            `json:"status"`
	Time    string            `json:"time"`
	Version string            `json:"version,omitempty"`
	Checks  map[string]string `json:"checks"`
}

// healthCheck returns "" when the dependency is usable.
type healthCheck func() string

type HealthController struct {
	checks  map[string]healthCheck
	version string
}

// NewHealthController reports on the local database and the covers
// directory. An empty coversDir skips the directory check.
func NewHealthController(db Pinger, coversDir, version string) *HealthController {
	checks := map[string]healthCheck{"database": pingCheck(db)}
	if coversDir != "" {
		checks["covers_dir"] = dirCheck(coversDir)
	}
	return &HealthController{checks: checks, version: version}
}

func pingCheck(db Pinger) healthCheck {
	return func() string {
		if db == nil {
			return ""
		}
		if err := db.Ping(); err != nil {
			return err.Error()
		}
		return ""
	}
}

func dirCheck(dir string) healthCheck {
	return func() string {
		info, err := os.Stat(dir)
		if err != nil {
			return err.Error()
		}
		if !info.IsDir() {
			return fmt.Sprintf("%s is not a directory", dir)
		}
		return ""
	}
}

// Status handles GET /health. Any failing check turns the response into a 503.
func (h *HealthController) Status(c *gin.Context) {
	resp := HealthResponse{
		Status:  "healthy",
		Time:    time.Now().UTC().Format(time.RFC3339),
		Version: h.version,
		Checks:  make(map[string]string, len(h.checks)),
	}
	for name, check := range h.checks {
		if problem := check(); problem != "" {
			resp.Checks[name] = "error: " + problem
			resp.Status = "unhealthy"
			continue
		}
		resp.Checks[name] = "ok"
	}

	code := http.StatusOK
	if resp.Status != "healthy" {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, resp)
}
