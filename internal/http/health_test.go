package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DarienLibrary/covercache-public/internal/database"
)

type failingPinger struct{}

func (failingPinger) Ping() error { return errors.New("connection refused") }

func checkHealth(t *testing.T, db Pinger, coversDir string) (int, HealthResponse) {
	t.Helper()
	router := gin.New()
	router.GET("/health", NewHealthController(db, coversDir, "1.0.0").Status)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	var response HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	return w.Code, response
}

func TestHealthController_Status(t *testing.T) {
	t.Run("returns healthy when database is connected", func(t *testing.T) {
		db, err := database.NewDatabase(filepath.Join(t.TempDir(), "health.db"))
		require.NoError(t, err)
		defer db.Close()

		code, response := checkHealth(t, db, t.TempDir())
		assert.Equal(t, http.StatusOK, code)
		assert.Equal(t, "healthy", response.Status)
		assert.Equal(t, "1.0.0", response.Version)
		assert.Equal(t, "ok", response.Checks["database"])
		assert.Equal(t, "ok", response.Checks["covers_dir"])
		assert.NotEmpty(t, response.Time)
	})

	t.Run("returns unhealthy when ping fails", func(t *testing.T) {
		code, response := checkHealth(t, failingPinger{}, "")
		assert.Equal(t, http.StatusServiceUnavailable, code)
		assert.Equal(t, "unhealthy", response.Status)
		assert.Contains(t, response.Checks["database"], "connection refused")
	})

	t.Run("missing covers directory", func(t *testing.T) {
		code, response := checkHealth(t, nil, filepath.Join(t.TempDir(), "gone"))
		assert.Equal(t, http.StatusServiceUnavailable, code)
		assert.Equal(t, "ok", response.Checks["database"])
		assert.Contains(t, response.Checks["covers_dir"], "error:")
	})
}
