package tasks

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mikestefanello/backlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DarienLibrary/covercache-public/internal/config"
	"github.com/DarienLibrary/covercache-public/internal/maintenance"
	"github.com/DarienLibrary/covercache-public/internal/works"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()
	client, err := NewClient(filepath.Join(t.TempDir(), "covercache.db"), config.Tasks{Workers: 1})
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	return client
}

func TestNewClient(t *testing.T) {
	tmpDir := t.TempDir()
	client, err := NewClient(filepath.Join(tmpDir, "covercache.db"), config.Tasks{})
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(tmpDir, "covercache-tasks.db"))
	assert.NoError(t, err, "tasks database should be created")
	assert.Equal(t, 2, client.workers)
	assert.NoError(t, client.Close())
}

func TestQueueDBPath(t *testing.T) {
	assert.Equal(t, filepath.Join("data", "covers-tasks.db"), QueueDBPath(filepath.Join("data", "covers.db")))
	assert.Equal(t, "covers-tasks", QueueDBPath("covers"))
}

func TestClientStartStop(t *testing.T) {
	client := newTestClient(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go client.Start(ctx)
	time.Sleep(50 * time.Millisecond)

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer stopCancel()
	assert.True(t, client.Stop(stopCtx), "stop should succeed gracefully")
}

type pollerFunc func(ctx context.Context, workID int) error

func (f pollerFunc) PollSources(ctx context.Context, workID int) error { return f(ctx, workID) }

func TestPollSourcesTaskRuns(t *testing.T) {
	client := newTestClient(t)

	polled := make(chan int, 1)
	client.Register(NewPollSourcesQueue(pollerFunc(func(_ context.Context, workID int) error {
		polled <- workID
		return nil
	})))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go client.Start(ctx)

	id, err := client.Enqueue(PollSourcesTask{WorkID: 42})
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	select {
	case id := <-polled:
		assert.Equal(t, 42, id)
	case <-time.After(5 * time.Second):
		t.Fatal("task was not executed within timeout")
	}
}

func TestPollSourcesProcessor(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		wantErr bool
	}{
		{"success", nil, false},
		{"unknown work is dropped", works.ErrNotFound, false},
		{"other errors retry", errors.New("database locked"), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			process := PollSourcesProcessor(pollerFunc(func(context.Context, int) error { return tt.err }))
			err := process(context.Background(), PollSourcesTask{WorkID: 1})
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

type maintainerFunc func(ctx context.Context) (*maintenance.Report, error)

func (f maintainerFunc) Run(ctx context.Context) (*maintenance.Report, error) { return f(ctx) }

func TestMaintainProcessor(t *testing.T) {
	ok := MaintainProcessor(maintainerFunc(func(context.Context) (*maintenance.Report, error) {
		return &maintenance.Report{CoversAcquired: 3}, nil
	}))
	assert.NoError(t, ok(context.Background(), MaintainTask{}))

	busy := MaintainProcessor(maintainerFunc(func(context.Context) (*maintenance.Report, error) {
		return nil, maintenance.ErrAlreadyRunning
	}))
	assert.NoError(t, busy(context.Background(), MaintainTask{}))

	failed := MaintainProcessor(maintainerFunc(func(context.Context) (*maintenance.Report, error) {
		return nil, errors.New("catalog unavailable")
	}))
	assert.Error(t, failed(context.Background(), MaintainTask{}))

	assert.Error(t, MaintainProcessor(nil)(context.Background(), MaintainTask{}))
}

func TestTaskConfigs(t *testing.T) {
	tests := []struct {
		name        string
		cfg         backlite.QueueConfig
		wantName    string
		maxAttempts int
	}{
		{"maintain", MaintainTask{}.Config(), MaintainQueue, 1},
		{"poll sources", PollSourcesTask{WorkID: 1}.Config(), PollSourcesQueue, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantName, tt.cfg.Name)
			assert.Equal(t, tt.maxAttempts, tt.cfg.MaxAttempts)
			assert.NotNil(t, tt.cfg.Retention)
		})
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := withDefaults(config.Tasks{Workers: 4})

	assert.Equal(t, 4, cfg.Workers)
	assert.Equal(t, 6*time.Hour, cfg.ReleaseAfter)
	assert.Equal(t, time.Hour, cfg.CleanupInterval)
}
