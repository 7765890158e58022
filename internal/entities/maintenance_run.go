package entities

import "time"

// RunJob names the background job a MaintenanceRun row tracks.
type RunJob string

const JobMaintenance RunJob = "maintenance"

type RunState string

const (
	RunRunning   RunState = "running"
	RunCompleted RunState = "completed"
	RunFailed    RunState = "failed"
)

// MaintenanceRun is the single, reused record of the latest run of a job.
// Counters describe the stage currently executing.
type MaintenanceRun struct {
	ID         uint       `gorm:"primaryKey" json:"-"`
	Job        RunJob     `gorm:"size:32;uniqueIndex" json:"job"`
	Status     RunState   `gorm:"size:16" json:"status"`
	Stage      string     `gorm:"size:64" json:"stage,omitempty"`
	StageTotal int        `json:"stage_total"`
	Processed  int        `json:"processed"`
	Succeeded  int        `json:"succeeded"`
	Failed     int        `json:"failed"`
	Skipped    int        `json:"skipped"`
	Current    string     `gorm:"size:255" json:"current,omitempty"`
	Error      string     `gorm:"type:text" json:"error,omitempty"`
	StartedAt  time.Time  `json:"started_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

func (MaintenanceRun) TableName() string {
	return "maintenance_runs"
}
