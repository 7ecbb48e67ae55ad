package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"taskscribe/modes"
)

// CampaignState tracks a campaign's lifecycle.
type CampaignState string

const (
	CampaignCreated  CampaignState = "created"
	CampaignRunning  CampaignState = "running"
	CampaignClosed   CampaignState = "closed"
	CampaignArchived CampaignState = "archived"
)

// Campaign is an annotation campaign over a project's elements.
type Campaign struct {
	ID          string  `gorm:"primaryKey;size:36" json:"id"`
	ProjectID   string  `gorm:"size:36;not null;index" json:"project_id"`
	Project     Project `json:"-"`
	Name        string  `gorm:"not null" json:"name"`
	Description string  `json:"description"`

	Mode  modes.Mode    `gorm:"not null" json:"mode"`
	State CampaignState `gorm:"not null;default:'created'" json:"state"`

	// Number of tasks handed out per auto-assignment request
	NbTasksAutoAssignment int `gorm:"default:50" json:"nb_tasks_auto_assignment"`

	// Maximum number of contributors assigned to each task
	MaxUserTasks int `gorm:"default:1" json:"max_user_tasks"`

	Configuration modes.CampaignConfig `gorm:"type:jsonb;serializer:json" json:"configuration"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Tasks []Task `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}

func (c *Campaign) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}

// IsClosed reports whether the campaign no longer accepts new work.
func (c *Campaign) IsClosed() bool {
	return c.State == CampaignClosed || c.State == CampaignArchived
}
