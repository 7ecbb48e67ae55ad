package annotations

import (
	"gorm.io/gorm"

	"taskscribe/models"
)

// Feedback narrows assignment listings to the ones needing a second look.
type Feedback string

const (
	// FeedbackAny keeps every assignment.
	FeedbackAny Feedback = ""
	// FeedbackUncertain keeps assignments whose latest annotation carries
	// an uncertain entry.
	FeedbackUncertain Feedback = "uncertain"
	// FeedbackComments keeps assignments whose task carries at least one
	// discussion message.
	FeedbackComments Feedback = "with_comments"
	// FeedbackAll keeps assignments that are both uncertain and discussed.
	FeedbackAll Feedback = "all"
	// FeedbackNone keeps assignments that are neither.
	FeedbackNone Feedback = "none"
)

// ListFilter narrows an assignment listing.
type ListFilter struct {
	States   []models.TaskState
	UserID   string
	Feedback Feedback
}

// assignmentOrder is the stable navigation order of a campaign's
// assignments: task creation first, then ids as tie-breakers, so two
// contributors on the same task sit next to each other.
const assignmentOrder = "tasks.created_at, task_users.task_id, task_users.created_at, task_users.id"

func assignmentQuery(db *gorm.DB, campaignID string, filter ListFilter) *gorm.DB {
	query := db.Model(&models.TaskUser{}).
		Joins("JOIN tasks ON tasks.id = task_users.task_id").
		Where("tasks.campaign_id = ?", campaignID).
		Order(assignmentOrder)

	if len(filter.States) > 0 {
		query = query.Where("task_users.state IN ?", filter.States)
	}
	if filter.UserID != "" {
		query = query.Where("task_users.user_id = ?", filter.UserID)
	}

	commented := db.Model(&models.Comment{}).
		Select("1").
		Where("comments.task_id = task_users.task_id")
	switch filter.Feedback {
	case FeedbackUncertain:
		query = query.Where("task_users.has_uncertain_value = ?", true)
	case FeedbackComments:
		query = query.Where("EXISTS (?)", commented)
	case FeedbackAll:
		query = query.Where("task_users.has_uncertain_value = ? AND EXISTS (?)", true, commented)
	case FeedbackNone:
		query = query.Where("task_users.has_uncertain_value = ? AND NOT EXISTS (?)", false, commented)
	}

	return query
}

// ListAssignments returns a campaign's assignments in navigation order.
func ListAssignments(db *gorm.DB, campaignID string, filter ListFilter) ([]models.TaskUser, error) {
	var assignments []models.TaskUser
	err := assignmentQuery(db, campaignID, filter).
		Preload("User").
		Preload("Task").
		Find(&assignments).Error
	return assignments, err
}

// Neighbors returns the assignments right before and after the current one
// under the same filter, nil at either end of the list.
func Neighbors(db *gorm.DB, campaignID string, current *models.TaskUser, filter ListFilter) (*models.TaskUser, *models.TaskUser, error) {
	var ids []string
	err := assignmentQuery(db, campaignID, filter).
		Pluck("task_users.id", &ids).Error
	if err != nil {
		return nil, nil, err
	}

	position := -1
	for i, id := range ids {
		if id == current.ID {
			position = i
			break
		}
	}
	if position == -1 {
		return nil, nil, nil
	}

	load := func(id string) (*models.TaskUser, error) {
		var assignment models.TaskUser
		if err := db.First(&assignment, "id = ?", id).Error; err != nil {
			return nil, err
		}
		return &assignment, nil
	}

	var previous, next *models.TaskUser
	if position > 0 {
		if previous, err = load(ids[position-1]); err != nil {
			return nil, nil, err
		}
	}
	if position < len(ids)-1 {
		if next, err = load(ids[position+1]); err != nil {
			return nil, nil, err
		}
	}
	return previous, next, nil
}
