package interfaces

// This file contains compile-time interface implementation checks.
// These ensure that concrete types satisfy their interfaces at compile time,
// catching missing methods before runtime.
//
// To verify all checks pass: go build ./internal/interfaces/...

import (
	"github.com/DarienLibrary/covercache-public/internal/acquisition"
	"github.com/DarienLibrary/covercache-public/internal/catalog"
	"github.com/DarienLibrary/covercache-public/internal/covers"
	"github.com/DarienLibrary/covercache-public/internal/database"
	"github.com/DarienLibrary/covercache-public/internal/database/identifiers"
	"github.com/DarienLibrary/covercache-public/internal/database/manifestations"
	"github.com/DarienLibrary/covercache-public/internal/database/progress"
	workstore "github.com/DarienLibrary/covercache-public/internal/database/works"
	"github.com/DarienLibrary/covercache-public/internal/http"
	"github.com/DarienLibrary/covercache-public/internal/maintenance"
	"github.com/DarienLibrary/covercache-public/internal/recommendations"
	"github.com/DarienLibrary/covercache-public/internal/sources"
	"github.com/DarienLibrary/covercache-public/internal/tasks"
	"github.com/DarienLibrary/covercache-public/internal/works"
)

// =============================================================================
// Data Access Layer
// =============================================================================

var _ acquisition.WorkIdentifiers = (*workstore.Repository)(nil)
var _ acquisition.IdentifierWriter = (*identifiers.Repository)(nil)
var _ maintenance.ManifestationStore = (*manifestations.Repository)(nil)
var _ maintenance.CoverlessWorks = (*workstore.Repository)(nil)
var _ recommendations.WorkLookup = (*workstore.Repository)(nil)
var _ works.Store = (*workstore.Repository)(nil)
var _ works.IdentifierStore = (*identifiers.Repository)(nil)
var _ http.Pinger = (*database.Database)(nil)

// =============================================================================
// External Catalog
// =============================================================================

var _ catalog.Source = (*catalog.Polaris)(nil)

// =============================================================================
// Image Providers
// =============================================================================

var _ sources.Source = (*sources.Amazon)(nil)
var _ sources.Source = (*sources.Bibliotheca)(nil)
var _ sources.Source = (*sources.Direct)(nil)
var _ sources.Source = (*sources.Overdrive)(nil)
var _ sources.Source = (*sources.Syndetics)(nil)
var _ sources.Source = (*sources.Worldcat)(nil)
var _ sources.Source = (*sources.Zola)(nil)
var _ sources.Recommender = (*sources.Zola)(nil)

// =============================================================================
// Cover Pipeline
// =============================================================================

var _ acquisition.FileStore = (*covers.Store)(nil)
var _ acquisition.ImageProcessor = (*covers.Processor)(nil)
var _ works.URLBuilder = (*covers.Store)(nil)
var _ works.Acquirer = (*acquisition.Engine)(nil)
var _ works.Recommender = (*recommendations.Service)(nil)
var _ maintenance.CoverAcquirer = (*acquisition.Engine)(nil)

// =============================================================================
// Progress Tracking and Background Work
// =============================================================================

var _ maintenance.ProgressReporter = (*progress.Repository)(nil)
var _ http.ProgressReader = (*progress.Repository)(nil)
var _ http.TaskQueue = (*tasks.Client)(nil)
var _ http.WorksService = (*works.Service)(nil)
var _ tasks.Maintainer = (*maintenance.Orchestrator)(nil)
var _ tasks.Poller = (*works.Service)(nil)
