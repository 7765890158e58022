package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DarienLibrary/covercache-public/internal/config"
)

func TestValidateSchedule(t *testing.T) {
	tests := []struct {
		schedule string
		valid    bool
	}{
		{"0 3 * * *", true},
		{"*/15 * * * *", true},
		{"0 3 * *", false},
		{"every day", false},
	}
	for _, tt := range tests {
		t.Run(tt.schedule, func(t *testing.T) {
			err := ValidateSchedule(tt.schedule)
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestNextRun(t *testing.T) {
	from := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	next, err := NextRun(DefaultSchedule, from)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 6, 2, 3, 0, 0, 0, time.UTC), next)
}

func TestMaintenanceScheduler_DisabledDoesNothing(t *testing.T) {
	s := NewMaintenanceScheduler(config.Maintenance{Enabled: false}, func(context.Context) error { return nil })
	require.NoError(t, s.Start(context.Background()))
	assert.False(t, s.isRunning)
	s.Stop()
}

func TestMaintenanceScheduler_InvalidSchedule(t *testing.T) {
	s := NewMaintenanceScheduler(config.Maintenance{Enabled: true, Schedule: "nope"}, func(context.Context) error { return nil })
	assert.Error(t, s.Start(context.Background()))
}

func TestMaintenanceScheduler_StartStop(t *testing.T) {
	s := NewMaintenanceScheduler(config.Maintenance{Enabled: true}, func(context.Context) error { return nil })
	require.NoError(t, s.Start(context.Background()))
	assert.True(t, s.isRunning)
	require.NoError(t, s.Start(context.Background()))
	s.Stop()
	assert.False(t, s.isRunning)
}

func TestMaintenanceScheduler_RunNowSkipsOverlap(t *testing.T) {
	var calls int32
	release := make(chan struct{})
	started := make(chan struct{}, 1)
	s := NewMaintenanceScheduler(config.Maintenance{}, func(context.Context) error {
		atomic.AddInt32(&calls, 1)
		started <- struct{}{}
		<-release
		return nil
	})

	s.RunNow()
	<-started
	s.run()
	close(release)

	assert.Eventually(t, func() bool { return s.busy.TryLock() }, time.Second, 10*time.Millisecond)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}
