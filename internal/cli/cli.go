// Package cli holds the command line surface of covercache.
package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/urfave/cli/v2"

	"github.com/DarienLibrary/covercache-public/internal/config"
	"github.com/DarienLibrary/covercache-public/internal/entrypoint"
	"github.com/DarienLibrary/covercache-public/internal/logger"
)

// ConfigLoader produces the configuration commands run with.
type ConfigLoader func() (*config.Config, error)

// BuildInfo is stamped at build time.
type BuildInfo struct {
	Version string
	Commit  string
}

type runner struct {
	load  ConfigLoader
	build BuildInfo
	cfg   *config.Config
}

// NewApp builds the command tree. Without a subcommand the HTTP server runs.
func NewApp(load ConfigLoader, build BuildInfo) *cli.App {
	r := &runner{load: load, build: build}
	return &cli.App{
		Name:    "covercache",
		Usage:   "Cache and serve book cover images for the library catalog",
		Version: fmt.Sprintf("%s (%s)", build.Version, build.Commit),
		Before:  r.before,
		Action:  r.serve,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the HTTP API, task queue and maintenance scheduler",
				Action: r.serve,
			},
			maintainCommand(r),
			pollCommand(r),
			overrideCommand(r),
			statsCommand(r),
		},
	}
}

func (r *runner) before(c *cli.Context) error {
	cfg, err := r.load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger.Setup(logger.Config{
		Level:  cfg.Log.Level,
		Format: logger.ParseFormat(cfg.Log.Format),
		Output: c.App.ErrWriter,
	})
	r.cfg = cfg
	return nil
}

func (r *runner) serve(c *cli.Context) error {
	return entrypoint.Run(r.cfg, r.build.Version)
}

// withApp builds the wired components for a one-shot command.
func (r *runner) withApp(fn func(app *entrypoint.App) error) error {
	app, err := entrypoint.Build(r.cfg)
	if err != nil {
		return err
	}
	defer app.Close()
	return fn(app)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
