// Package progress persists the state of the latest maintenance run.
//
// # Interface Implementation
//
//	var _ maintenance.ProgressReporter = (*Repository)(nil)
//
// # Usage
//
//	repo := progress.NewRepository(db)
//	err := repo.StartRun()
//	err = repo.StartStage("acquire_covers", 1200)
package progress

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/DarienLibrary/covercache-public/internal/database"
	"github.com/DarienLibrary/covercache-public/internal/entities"
)

// staleAfter marks a running record as abandoned when nothing updated it
// for this long (the process died mid-run).
const staleAfter = 30 * time.Minute

// Repository handles maintenance progress records.
type Repository struct {
	db  *gorm.DB
	job entities.RunJob
}

// NewRepository creates a repository tracking maintenance runs.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db, job: entities.JobMaintenance}
}

// Get returns the latest progress record.
func (r *Repository) Get() (*entities.MaintenanceRun, error) {
	var p entities.MaintenanceRun
	err := r.db.Where("job = ?", r.job).First(&p).Error
	if err != nil {
		return nil, database.NotFound(err)
	}
	return &p, nil
}

// StartRun resets the run record, creating it on first use.
func (r *Repository) StartRun() error {
	var existing entities.MaintenanceRun
	err := r.db.Where("job = ?", r.job).First(&existing).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	now := time.Now()
	run := entities.MaintenanceRun{
		ID:        existing.ID,
		Job:       r.job,
		Status:    entities.RunRunning,
		StartedAt: now,
		UpdatedAt: now,
	}
	return r.db.Save(&run).Error
}

// StartStage records the stage now running and resets the counters.
func (r *Repository) StartStage(stage string, totalItems int) error {
	return r.db.Model(&entities.MaintenanceRun{}).
		Where("job = ?", r.job).
		Updates(map[string]any{
			"stage":       stage,
			"stage_total": totalItems,
			"processed":   0,
			"succeeded":   0,
			"failed":      0,
			"skipped":     0,
			"current":     "",
			"updated_at":  time.Now(),
		}).Error
}

// UpdateProgress updates the counters of the current stage.
func (r *Repository) UpdateProgress(processed, succeeded, failed, skipped int, current string) error {
	return r.db.Model(&entities.MaintenanceRun{}).
		Where("job = ?", r.job).
		Updates(map[string]any{
			"processed":  processed,
			"succeeded":  succeeded,
			"failed":     failed,
			"skipped":    skipped,
			"current":    current,
			"updated_at": time.Now(),
		}).Error
}

// CompleteRun marks the run as completed or failed.
func (r *Repository) CompleteRun(succeeded bool, errorMsg string) error {
	now := time.Now()
	status := entities.RunCompleted
	if !succeeded {
		status = entities.RunFailed
	}

	updates := map[string]any{
		"status":      status,
		"current":     "",
		"updated_at":  now,
		"finished_at": now,
	}
	if errorMsg != "" {
		updates["error"] = errorMsg
	}
	return r.db.Model(&entities.MaintenanceRun{}).
		Where("job = ?", r.job).
		Updates(updates).Error
}

// IsRunning reports whether a run is in progress. Stale records are closed
// as failed.
func (r *Repository) IsRunning() (bool, error) {
	var p entities.MaintenanceRun
	err := r.db.Where("job = ? AND status = ?", r.job, entities.RunRunning).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	if p.UpdatedAt.Before(time.Now().Add(-staleAfter)) {
		_ = r.CompleteRun(false, "run was interrupted")
		return false, nil
	}

	return true, nil
}
