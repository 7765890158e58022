package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DarienLibrary/covercache-public/internal/entities"
)

func TestNewConfig_Defaults(t *testing.T) {
	cfg, err := NewConfig()
	require.NoError(t, err)

	assert.Equal(t, int32(8000), cfg.HTTP.Port)
	assert.Equal(t, DefaultDatabasePath, cfg.Database.Path)
	assert.Equal(t, 400, cfg.Covers.TargetWidth)
	assert.Equal(t, 400, cfg.Covers.MinWidth, "min width falls back to target width")
	assert.Equal(t, 7*24*time.Hour, cfg.Acquisition.RetryPeriod)
	assert.Equal(t, entities.SourceStaff, cfg.Acquisition.SourcePrecedence[0])
	assert.Equal(t, entities.SourceZola, cfg.Recommendations.Source)
	assert.Equal(t, "0 3 * * *", cfg.Maintenance.Schedule)
}

func TestNewConfig_Environment(t *testing.T) {
	t.Setenv("IMAGE_WIDTH", "200")
	t.Setenv("IMAGE_MIN_WIDTH", "150")
	t.Setenv("RETRY_PERIOD_DAYS", "1")
	t.Setenv("SOURCE_PRECEDENCE", "amazon, Link ,,syndetics")

	cfg, err := NewConfig()
	require.NoError(t, err)

	assert.Equal(t, 200, cfg.Covers.TargetWidth)
	assert.Equal(t, 150, cfg.Covers.MinWidth)
	assert.Equal(t, 24*time.Hour, cfg.Acquisition.RetryPeriod)
	assert.Equal(t, []entities.SourceName{"amazon", "link", "syndetics"}, cfg.Acquisition.SourcePrecedence)
}

func TestNewConfig_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "covercache.yaml")
	content := `
provider_indicators:
  bibliotheca: 'ebook\.3m\.com/library/[^?]*\?.*document_id=([a-z0-9]+)'
  overdrive: 'overdrive\.com/ContentDetails\.htm\?ID=([A-Fa-f0-9-]+)'
link_indicators:
  - pattern: 'https?://covers\.example\.org/.+'
    substitutions:
      - pattern: '^http:'
        replacement: 'https:'
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	t.Setenv("COVERCACHE_CONFIG_FILE", path)

	cfg, err := NewConfig()
	require.NoError(t, err)

	require.Len(t, cfg.Catalog.ProviderIndicators, 2)
	assert.Contains(t, cfg.Catalog.ProviderIndicators, entities.SourceBibliotheca)
	require.Len(t, cfg.Catalog.LinkIndicators, 1)
	assert.Equal(t, `https?://covers\.example\.org/.+`, cfg.Catalog.LinkIndicators[0].Pattern)
	require.Len(t, cfg.Catalog.LinkIndicators[0].Substitutions, 1)
	assert.Equal(t, "https:", cfg.Catalog.LinkIndicators[0].Substitutions[0].Replacement)
}

func TestNewConfig_MissingFile(t *testing.T) {
	t.Setenv("COVERCACHE_CONFIG_FILE", filepath.Join(t.TempDir(), "missing.yaml"))

	_, err := NewConfig()
	assert.Error(t, err)
}
