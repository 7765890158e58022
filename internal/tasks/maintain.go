package tasks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mikestefanello/backlite"
	"github.com/rs/zerolog/log"

	"github.com/DarienLibrary/covercache-public/internal/maintenance"
)

const MaintainQueue = "maintain"

// Maintainer runs one full maintenance pass.
type Maintainer interface {
	Run(ctx context.Context) (*maintenance.Report, error)
}

// MaintainTask requests a full catalog sync and cover sweep.
type MaintainTask struct{}

// Config returns the queue configuration for maintenance runs.
func (t MaintainTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        MaintainQueue,
		MaxAttempts: 1,
		Backoff:     time.Minute,
		Timeout:     6 * time.Hour,
		Retention: &backlite.Retention{
			Duration:   7 * 24 * time.Hour,
			OnlyFailed: false,
			Data:       &backlite.RetainData{OnlyFailed: true},
		},
	}
}

// MaintainProcessor runs maintenance. A run requested while another is in
// progress is dropped.
func MaintainProcessor(m Maintainer) backlite.QueueProcessor[MaintainTask] {
	return func(ctx context.Context, _ MaintainTask) error {
		if m == nil {
			return fmt.Errorf("maintenance not configured")
		}
		report, err := m.Run(ctx)
		if errors.Is(err, maintenance.ErrAlreadyRunning) {
			log.Info().Msg("Maintenance already running, task skipped")
			return nil
		}
		if err != nil {
			return fmt.Errorf("maintenance: %w", err)
		}
		log.Info().
			Int("covers_acquired", report.CoversAcquired).
			Dur("duration", report.Duration).
			Msg("Maintenance task complete")
		return nil
	}
}

func NewMaintainQueue(m Maintainer) backlite.Queue {
	return backlite.NewQueue(MaintainProcessor(m))
}
