package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ProcessKind identifies what a background job does.
type ProcessKind string

const (
	ProcessExport ProcessKind = "export"
)

// ProcessState tracks a background job through the worker.
type ProcessState string

const (
	ProcessPending ProcessState = "pending"
	ProcessRunning ProcessState = "running"
	ProcessDone    ProcessState = "done"
	ProcessFailed  ProcessState = "failed"
)

// Process is a queued background job, polled by the worker loop.
type Process struct {
	ID    string       `gorm:"primaryKey;size:36" json:"id"`
	Kind  ProcessKind  `gorm:"not null;index" json:"kind"`
	State ProcessState `gorm:"not null;default:'pending';index" json:"state"`

	CampaignID string   `gorm:"size:36;not null;index" json:"campaign_id"`
	Campaign   Campaign `json:"-"`

	CreatedByID string `gorm:"size:36;not null" json:"created_by_id"`
	CreatedBy   User   `json:"created_by,omitempty"`

	// Absolute path of the produced file once the job succeeded
	OutputPath string `json:"output_path,omitempty"`
	Error      string `json:"error,omitempty"`

	StartedAt  *time.Time `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

func (p *Process) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}

// ActivityKind classifies a recorded contributor action.
type ActivityKind string

const (
	ActivityAnnotated ActivityKind = "annotated"
	ActivitySkipped   ActivityKind = "skipped"
	ActivityValidated ActivityKind = "validated"
	ActivityRejected  ActivityKind = "rejected"
	ActivityJoined    ActivityKind = "joined"
)

// ActivityEvent records one contributor action, aggregated by the daily
// statistics worker into manager emails.
type ActivityEvent struct {
	ID         uint         `gorm:"primaryKey" json:"id"`
	Kind       ActivityKind `gorm:"not null;index" json:"kind"`
	UserID     string       `gorm:"size:36;not null;index" json:"user_id"`
	CampaignID string       `gorm:"size:36;not null;index" json:"campaign_id"`
	CreatedAt  time.Time    `gorm:"index" json:"created_at"`
}
