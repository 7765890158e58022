package entrypoint

import (
	"errors"
	"fmt"
	"net/url"

	"github.com/rs/zerolog/log"

	"github.com/DarienLibrary/covercache-public/internal/acquisition"
	"github.com/DarienLibrary/covercache-public/internal/catalog"
	"github.com/DarienLibrary/covercache-public/internal/config"
	"github.com/DarienLibrary/covercache-public/internal/covers"
	"github.com/DarienLibrary/covercache-public/internal/database"
	"github.com/DarienLibrary/covercache-public/internal/database/identifiers"
	"github.com/DarienLibrary/covercache-public/internal/database/manifestations"
	"github.com/DarienLibrary/covercache-public/internal/database/progress"
	workstore "github.com/DarienLibrary/covercache-public/internal/database/works"
	"github.com/DarienLibrary/covercache-public/internal/entities"
	"github.com/DarienLibrary/covercache-public/internal/maintenance"
	"github.com/DarienLibrary/covercache-public/internal/recommendations"
	"github.com/DarienLibrary/covercache-public/internal/sources"
	"github.com/DarienLibrary/covercache-public/internal/works"
)

// ErrNoCatalog is returned by maintenance when no catalog DSN is configured.
var ErrNoCatalog = errors.New("catalog DSN is not configured")

// App holds the wired components shared by the server and the CLI.
type App struct {
	Config   *config.Config
	DB       *database.Database
	Files    *covers.Store
	Progress *progress.Repository
	Engine   *acquisition.Engine
	Works    *works.Service

	// Nil when no catalog is configured.
	Catalog     *catalog.Polaris
	Maintenance *maintenance.Orchestrator
}

// Build opens the databases and wires every component.
func Build(cfg *config.Config) (*App, error) {
	db, err := database.NewDatabase(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("initialize database: %w", err)
	}
	app := &App{Config: cfg, DB: db}

	app.Files, err = covers.NewStore(cfg.Covers.Dir, cfg.Covers.MediaURL)
	if err != nil {
		app.Close()
		return nil, err
	}
	log.Info().Str("dir", cfg.Covers.Dir).Msg("Cover store initialized")

	worksRepo := workstore.NewRepository(db.DB)
	identRepo := identifiers.NewRepository(db.DB)
	app.Progress = progress.NewRepository(db.DB)

	fetcher := sources.NewFetcher(cfg.Acquisition)
	registry := sources.NewDefaultRegistry(cfg.Acquisition.SourcePrecedence, cfg.Providers, fetcher)
	processor := covers.NewProcessor(cfg.Covers.TargetWidth, cfg.Covers.MinWidth, cfg.Covers.JPEGQuality)
	app.Engine = acquisition.NewEngine(worksRepo, identRepo, registry, fetcher, processor, app.Files,
		cfg.Acquisition.RetryPeriod)

	var recommender sources.Recommender
	if cfg.Recommendations.Source != "" {
		if r, ok := registry.Recommender(cfg.Recommendations.Source); ok {
			recommender = r
		} else {
			log.Warn().Str("source", string(cfg.Recommendations.Source)).Msg("Recommendation source cannot recommend, recommendations disabled")
		}
	}

	staff, _ := registry.Get(entities.SourceStaff)
	app.Works = works.NewService(works.Dependencies{
		Works:       worksRepo,
		Identifiers: identRepo,
		Acquirer:    app.Engine,
		Staff:       staff,
		Recommender: recommendations.NewService(worksRepo, recommender, cfg.Recommendations),
		URLs:        app.Files,
		Precedence:  cfg.Acquisition.SourcePrecedence,
	})

	if cfg.Catalog.DSN == "" {
		log.Warn().Msg("CATALOG_DSN is not set, maintenance is disabled")
		return app, nil
	}
	extractor, err := catalog.NewExtractor(cfg.Catalog)
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("catalog indicators: %w", err)
	}
	app.Catalog, err = catalog.NewPolaris(cfg.Catalog.DSN, cfg.Catalog.Timezone)
	if err != nil {
		app.Close()
		return nil, err
	}
	app.Maintenance = maintenance.NewOrchestrator(app.Catalog, extractor,
		manifestations.NewRepository(db.DB), worksRepo, app.Engine, app.Progress,
		cfg.Acquisition.Workers)
	return app, nil
}

// mediaPath is the path part of the covers media URL.
func (a *App) mediaPath() string {
	u, err := url.Parse(a.Config.Covers.MediaURL)
	if err != nil || u.Path == "" {
		return ""
	}
	return u.Path
}

// Close releases the catalog and database connections.
func (a *App) Close() {
	if a.Catalog != nil {
		if err := a.Catalog.Close(); err != nil {
			log.Warn().Err(err).Msg("Error closing catalog connection")
		}
	}
	if a.DB != nil {
		if err := a.DB.Close(); err != nil {
			log.Warn().Err(err).Msg("Error closing database")
		}
	}
}
