// Package entrypoint wires the service together and runs it.
package entrypoint

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/DarienLibrary/covercache-public/internal/config"
	http_controllers "github.com/DarienLibrary/covercache-public/internal/http"
	"github.com/DarienLibrary/covercache-public/internal/maintenance"
	"github.com/DarienLibrary/covercache-public/internal/scheduler"
	"github.com/DarienLibrary/covercache-public/internal/tasks"
)

// ShutdownFunc is called during graceful shutdown to clean up resources.
type ShutdownFunc func(ctx context.Context)

// Serve runs the HTTP server until SIGINT or SIGTERM.
func Serve(router *gin.Engine, cfg *config.Config, onShutdown ShutdownFunc) error {
	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler: router,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-errCh:
		return fmt.Errorf("listen: %w", err)
	}

	timeout := time.Duration(cfg.Global.ShutdownTimeoutInSeconds) * time.Second
	log.Info().Dur("timeout", timeout).Msg("Shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if onShutdown != nil {
		onShutdown(ctx)
	}
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	log.Info().Msg("Server exiting")
	return nil
}

// Run starts the HTTP API together with the task queue and the maintenance
// scheduler.
func Run(cfg *config.Config, version string) error {
	log.Info().Str("version", version).Msg("Starting covercache")

	app, err := Build(cfg)
	if err != nil {
		return err
	}
	defer app.Close()

	bgCtx, cancelBackground := context.WithCancel(context.Background())
	defer cancelBackground()

	var taskClient *tasks.Client
	if cfg.Tasks.Enabled {
		taskClient, err = tasks.NewClient(cfg.Database.Path, cfg.Tasks)
		if err != nil {
			return fmt.Errorf("initialize task queue: %w", err)
		}
		defer func() {
			if err := taskClient.Close(); err != nil {
				log.Warn().Err(err).Msg("Error closing task client")
			}
		}()

		var maintainer tasks.Maintainer
		if app.Maintenance != nil {
			maintainer = app.Maintenance
		}
		taskClient.Register(
			tasks.NewMaintainQueue(maintainer),
			tasks.NewPollSourcesQueue(app.Works),
		)
		go taskClient.Start(bgCtx)
	}

	var sched *scheduler.MaintenanceScheduler
	if app.Maintenance != nil {
		sched = scheduler.NewMaintenanceScheduler(cfg.Maintenance, maintenanceJob(app.Maintenance, taskClient))
		if err := sched.Start(bgCtx); err != nil {
			return err
		}
	}

	routerCfg := http_controllers.RouterConfig{
		Works:     app.Works,
		Progress:  app.Progress,
		Database:  app.DB,
		CoversDir: cfg.Covers.Dir,
		MediaPath: app.mediaPath(),
		Version:   version,
	}
	if taskClient != nil {
		routerCfg.TaskClient = taskClient
	}
	if sched != nil {
		routerCfg.RunMaintenance = sched.RunNow
	}
	router := http_controllers.NewRouter(routerCfg)

	onShutdown := func(ctx context.Context) {
		if sched != nil {
			sched.Stop()
		}
		if taskClient != nil {
			taskClient.Stop(ctx)
		}
		cancelBackground()
	}
	return Serve(router, cfg, onShutdown)
}

// maintenanceJob enqueues a maintenance task when the queue is available so
// runs survive restarts, and runs inline otherwise.
func maintenanceJob(m *maintenance.Orchestrator, taskClient *tasks.Client) scheduler.Job {
	return func(ctx context.Context) error {
		if taskClient != nil {
			id, err := taskClient.Enqueue(tasks.MaintainTask{})
			if err != nil {
				return err
			}
			log.Info().Str("task_id", id).Msg("Maintenance task enqueued")
			return nil
		}
		_, err := m.Run(ctx)
		if errors.Is(err, maintenance.ErrAlreadyRunning) {
			return nil
		}
		return err
	}
}
