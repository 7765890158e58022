package http

import (
	"context"

	"github.com/mikestefanello/backlite"

	workstore "github.com/DarienLibrary/covercache-public/internal/database/works"
	"github.com/DarienLibrary/covercache-public/internal/entities"
	"github.com/DarienLibrary/covercache-public/internal/works"
)

// WorksService is what the works endpoints need from the cover service.
type WorksService interface {
	GetCovers(workID int) ([]works.CoverView, error)
	PollSources(ctx context.Context, workID int) error
	Override(ctx context.Context, workID int, url string) ([]works.CoverView, error)
	Stats() (*workstore.Stats, error)
	Recommendations(ctx context.Context, workID int) ([]works.RecommendedWork, error)
}

// TaskQueue enqueues background tasks and reports their state.
type TaskQueue interface {
	Enqueue(task backlite.Task) (string, error)
	Status(ctx context.Context, taskID string) (backlite.TaskStatus, error)
}

// ProgressReader returns the state of the latest maintenance run.
type ProgressReader interface {
	Get() (*entities.MaintenanceRun, error)
}

// Pinger checks database connectivity.
type Pinger interface {
	Ping() error
}
