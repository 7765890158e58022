package tasks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mikestefanello/backlite"
	"github.com/rs/zerolog/log"

	"github.com/DarienLibrary/covercache-public/internal/works"
)

const PollSourcesQueue = "poll_sources"

// Poller searches the providers for one work.
type Poller interface {
	PollSources(ctx context.Context, workID int) error
}

// PollSourcesTask requests a provider search for a single work.
type PollSourcesTask struct {
	WorkID int `json:"work_id"`
}

// Config returns the queue configuration for single work polls.
func (t PollSourcesTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        PollSourcesQueue,
		MaxAttempts: 3,
		Backoff:     30 * time.Second,
		Timeout:     2 * time.Minute,
		Retention: &backlite.Retention{
			Duration:   24 * time.Hour,
			OnlyFailed: false,
			Data:       &backlite.RetainData{OnlyFailed: true},
		},
	}
}

// PollSourcesProcessor polls one work. Unknown works are not retried.
func PollSourcesProcessor(p Poller) backlite.QueueProcessor[PollSourcesTask] {
	return func(ctx context.Context, task PollSourcesTask) error {
		if p == nil {
			return fmt.Errorf("poller not configured")
		}
		err := p.PollSources(ctx, task.WorkID)
		if errors.Is(err, works.ErrNotFound) {
			log.Warn().Int("work_id", task.WorkID).Msg("Poll requested for unknown work")
			return nil
		}
		if err != nil {
			return fmt.Errorf("poll sources for work %d: %w", task.WorkID, err)
		}
		return nil
	}
}

func NewPollSourcesQueue(p Poller) backlite.Queue {
	return backlite.NewQueue(PollSourcesProcessor(p))
}
