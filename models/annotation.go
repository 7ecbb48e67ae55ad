package models

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	// ErrInvalidTask is returned when a task's element does not satisfy
	// the campaign it belongs to.
	ErrInvalidTask = errors.New("the element cannot be annotated in this campaign")

	// ErrNotAMember is returned when an assignment targets a user without
	// a membership on the campaign's project.
	ErrNotAMember = errors.New("the user is not a member of the campaign's project")

	// ErrSelfParent is returned when an annotation references itself as
	// its parent.
	ErrSelfParent = errors.New("an annotation cannot be its own parent")

	// ErrCrossTaskParent is returned when an annotation's parent belongs
	// to a different assignment.
	ErrCrossTaskParent = errors.New("the parent annotation belongs to another assignment")
)

// Task is one unit of annotation work: a single element within a campaign.
type Task struct {
	ID         string   `gorm:"primaryKey;size:36" json:"id"`
	CampaignID string   `gorm:"size:36;not null;uniqueIndex:idx_task_campaign_element" json:"campaign_id"`
	Campaign   Campaign `json:"-"`
	ElementID  string   `gorm:"size:36;not null;uniqueIndex:idx_task_campaign_element" json:"element_id"`
	Element    Element  `json:"element,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	UserTasks []TaskUser `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}

func (t *Task) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	return nil
}

// Validate checks the task's element against its campaign: both must
// belong to the same project, and campaigns whose mode displays an image
// require the element to carry one.
func (t *Task) Validate(campaign *Campaign, element *Element) error {
	if element.ProjectID != campaign.ProjectID {
		return ErrInvalidTask
	}
	if campaign.Mode.RequiresImage() && element.ImageID == nil {
		return ErrInvalidTask
	}
	return nil
}

// TaskState tracks the progress of one user's assignment on a task.
type TaskState string

const (
	TaskDraft     TaskState = "draft"
	TaskPending   TaskState = "pending"
	TaskAnnotated TaskState = "annotated"
	TaskValidated TaskState = "validated"
	TaskRejected  TaskState = "rejected"
	TaskSkipped   TaskState = "skipped"
)

// CompletedStates are the assignment states counting as finished work.
var CompletedStates = []TaskState{TaskAnnotated, TaskValidated, TaskRejected, TaskSkipped}

// TaskUser is the assignment of a task to a user, carrying the state of
// their annotation chain.
type TaskUser struct {
	ID     string    `gorm:"primaryKey;size:36" json:"id"`
	TaskID string    `gorm:"size:36;not null;uniqueIndex:idx_usertask_task_user" json:"task_id"`
	Task   Task      `json:"-"`
	UserID string    `gorm:"size:36;not null;uniqueIndex:idx_usertask_task_user" json:"user_id"`
	User   User      `json:"user,omitempty"`
	State  TaskState `gorm:"not null;default:'draft'" json:"state"`

	// Preview assignments let managers try a campaign out without
	// counting against the task's contributor quota.
	IsPreview bool `gorm:"default:false" json:"is_preview"`

	// Denormalized from the latest annotation so feedback filters stay a
	// single query.
	HasUncertainValue bool `gorm:"default:false" json:"has_uncertain_value"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Annotations []Annotation `gorm:"foreignKey:UserTaskID;constraint:OnDelete:CASCADE" json:"-"`
}

func (tu *TaskUser) BeforeCreate(tx *gorm.DB) error {
	if tu.ID == "" {
		tu.ID = uuid.NewString()
	}
	return nil
}

// Validate checks that the assignee is a member of the campaign's project.
func (tu *TaskUser) Validate(tx *gorm.DB, projectID string) error {
	var count int64
	err := tx.Model(&Membership{}).
		Where("project_id = ? AND user_id = ?", projectID, tu.UserID).
		Count(&count).Error
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrNotAMember
	}
	return nil
}

// IsCompleted reports whether the assignment reached a terminal state.
func (tu *TaskUser) IsCompleted() bool {
	for _, state := range CompletedStates {
		if tu.State == state {
			return true
		}
	}
	return false
}

// AnnotationState is the moderation state of a single annotation version.
type AnnotationState string

const (
	AnnotationValidated AnnotationState = "validated"
	AnnotationRejected  AnnotationState = "rejected"
)

// Annotation is one immutable version in the chain of a user's work on a
// task. Versions grow monotonically per assignment and are never reused.
type Annotation struct {
	ID         string   `gorm:"primaryKey;size:36" json:"id"`
	UserTaskID string   `gorm:"size:36;not null;uniqueIndex:idx_annotation_version" json:"user_task_id"`
	UserTask   TaskUser `json:"-"`
	Version    int      `gorm:"not null;uniqueIndex:idx_annotation_version" json:"version"`

	ParentID *string     `gorm:"size:36" json:"parent_id"`
	Parent   *Annotation `json:"-"`

	// Mode-shaped payload, interpreted by the modes package
	Value map[string]interface{} `gorm:"type:jsonb;serializer:json" json:"value"`

	// False while the form is only saved as a draft
	Published bool `gorm:"default:false" json:"published"`

	// Time spent on the form, in seconds
	Duration *int `json:"duration"`

	State       *AnnotationState `json:"state"`
	ModeratorID *string          `gorm:"size:36" json:"moderator_id"`
	Moderator   *User            `json:"moderator,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (a *Annotation) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return nil
}

// Validate checks the parent link: an annotation may only descend from an
// earlier annotation of the same assignment, never from itself.
func (a *Annotation) Validate(parent *Annotation) error {
	if parent == nil {
		return nil
	}
	if parent.ID == a.ID {
		return ErrSelfParent
	}
	if parent.UserTaskID != a.UserTaskID {
		return ErrCrossTaskParent
	}
	return nil
}

// Comment is a discussion message attached to a task, shared by every
// contributor assigned to it.
type Comment struct {
	ID       string `gorm:"primaryKey;size:36" json:"id"`
	TaskID   string `gorm:"size:36;not null;index" json:"task_id"`
	Task     Task   `json:"-"`
	AuthorID string `gorm:"size:36;not null" json:"author_id"`
	Author   User   `json:"author,omitempty"`
	Body     string `gorm:"not null" json:"body"`

	CreatedAt time.Time `json:"created_at"`
}

func (c *Comment) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}
