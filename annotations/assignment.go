package annotations

import (
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"taskscribe/models"
)

// JoinOptions tunes a join request.
type JoinOptions struct {
	// TaskID restricts the claim to one specific task instead of the
	// next batch in sequential order.
	TaskID string
}

// JoinResult reports what a join handed out.
type JoinResult struct {
	Assigned []models.TaskUser

	// Exhausted is true when no task capacity remains after this join,
	// so managers can be notified that the campaign ran dry.
	Exhausted bool
}

// Join hands out the next batch of available tasks to a user, in the
// sequential order of the campaign's elements. Users who are not members
// of the project yet join it as contributors; members holding another
// role are refused.
func Join(db *gorm.DB, campaignID, userID string, opts JoinOptions) (*JoinResult, error) {
	var campaign models.Campaign
	if err := db.First(&campaign, "id = ?", campaignID).Error; err != nil {
		return nil, err
	}
	if campaign.IsClosed() {
		return nil, ErrCampaignClosed
	}
	if campaign.NbTasksAutoAssignment == 0 {
		return nil, ErrNoAutoAssignment
	}

	// Drafts do not block a join: they are dealt by managers before the
	// campaign is published and are not the contributor's own backlog.
	var unfinished int64
	err := db.Model(&models.TaskUser{}).
		Joins("JOIN tasks ON tasks.id = task_users.task_id").
		Where("tasks.campaign_id = ? AND task_users.user_id = ?", campaignID, userID).
		Where("task_users.state = ?", models.TaskPending).
		Count(&unfinished).Error
	if err != nil {
		return nil, err
	}
	if unfinished > 0 {
		return nil, ErrAlreadyHasPendingTasks
	}

	membership := models.Membership{UserID: userID, ProjectID: campaign.ProjectID}
	err = db.Where("user_id = ? AND project_id = ?", userID, campaign.ProjectID).
		Attrs(models.Membership{Role: models.RoleContributor}).
		FirstOrCreate(&membership).Error
	if err != nil {
		return nil, err
	}
	if membership.Role != models.RoleContributor {
		return nil, ErrNotAContributor
	}

	result := &JoinResult{}
	err = db.Transaction(func(tx *gorm.DB) error {
		limit := campaign.NbTasksAutoAssignment
		if opts.TaskID != "" {
			limit = 1
		}

		candidates, err := availableTasks(tx, &campaign, userID, opts.TaskID, limit)
		if err != nil {
			return err
		}
		if len(candidates) == 0 {
			return ErrNoAvailableTasks
		}

		for _, task := range candidates {
			// The candidate query counted occupancy on a snapshot that
			// may predate a concurrent claim committed while we waited
			// on the row lock. Count again now that the lock is held.
			full, err := taskAtCapacity(tx, &campaign, task.ID)
			if err != nil {
				return err
			}
			if full {
				continue
			}

			assignment := models.TaskUser{
				TaskID: task.ID,
				UserID: userID,
				State:  models.TaskPending,
			}
			if err := tx.Create(&assignment).Error; err != nil {
				// Another contributor claimed this task between the
				// candidate query and the insert.
				if errors.Is(err, gorm.ErrDuplicatedKey) {
					continue
				}
				return err
			}
			result.Assigned = append(result.Assigned, assignment)
		}
		if len(result.Assigned) == 0 {
			return ErrNoAvailableTasks
		}

		if campaign.State == models.CampaignCreated {
			if err := tx.Model(&campaign).Update("state", models.CampaignRunning).Error; err != nil {
				return err
			}
		}

		// Capacity is campaign-wide: a task this user holds can still
		// take other contributors, so the check runs without the user
		// filter.
		remaining, err := availableTasks(tx, &campaign, "", "", 1)
		if err != nil {
			return err
		}
		result.Exhausted = len(remaining) == 0

		return tx.Create(&models.ActivityEvent{
			Kind:       models.ActivityJoined,
			UserID:     userID,
			CampaignID: campaign.ID,
		}).Error
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// AssignTask lets a manager hand a specific task to a member directly.
// Assignments on an unpublished campaign start as drafts and are promoted
// when the campaign is published.
func AssignTask(db *gorm.DB, task *models.Task, userID string, isPreview bool) (*models.TaskUser, error) {
	var campaign models.Campaign
	if err := db.First(&campaign, "id = ?", task.CampaignID).Error; err != nil {
		return nil, err
	}
	if campaign.IsClosed() {
		return nil, ErrCampaignClosed
	}

	state := models.TaskPending
	if campaign.State == models.CampaignCreated {
		state = models.TaskDraft
	}
	assignment := &models.TaskUser{
		TaskID:    task.ID,
		UserID:    userID,
		State:     state,
		IsPreview: isPreview,
	}
	if err := assignment.Validate(db, campaign.ProjectID); err != nil {
		return nil, err
	}
	if err := db.Create(assignment).Error; err != nil {
		return nil, err
	}
	return assignment, nil
}

// availableTasks returns up to limit tasks of the campaign that the user
// does not hold yet and whose non-preview assignments are below the
// campaign's quota, in the sequential order of the elements.
//
// Under Postgres the candidate rows are locked for the duration of the
// surrounding transaction, so concurrent joins racing on the same tasks
// serialize here. The occupancy count may still be stale by the time the
// lock is granted; callers recount per task before claiming.
func availableTasks(tx *gorm.DB, campaign *models.Campaign, userID, taskID string, limit int) ([]models.Task, error) {
	held := tx.Model(&models.TaskUser{}).
		Select("task_id").
		Where("user_id = ?", userID)
	occupancy := tx.Model(&models.TaskUser{}).
		Select("COUNT(*)").
		Where("task_users.task_id = tasks.id AND task_users.is_preview = ?", false)

	query := tx.Model(&models.Task{}).
		Joins("JOIN elements ON elements.id = tasks.element_id").
		Where("tasks.campaign_id = ?", campaign.ID).
		Where("tasks.id NOT IN (?)", held).
		Where("(?) < ?", occupancy, campaign.MaxUserTasks).
		Order(`elements.parent_id, elements."order", tasks.created_at, tasks.id`).
		Limit(limit)
	if taskID != "" {
		query = query.Where("tasks.id = ?", taskID)
	}
	if tx.Dialector.Name() == "postgres" {
		query = query.Clauses(clause.Locking{
			Strength: "UPDATE",
			Table:    clause.Table{Name: "tasks"},
		})
	}

	var tasks []models.Task
	if err := query.Find(&tasks).Error; err != nil {
		return nil, err
	}
	return tasks, nil
}

// taskAtCapacity reports whether the task's non-preview assignments
// reached the campaign quota. It runs as its own statement so the count
// sees claims committed after the candidate query took its snapshot.
func taskAtCapacity(tx *gorm.DB, campaign *models.Campaign, taskID string) (bool, error) {
	var count int64
	err := tx.Model(&models.TaskUser{}).
		Where("task_id = ? AND is_preview = ?", taskID, false).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count >= int64(campaign.MaxUserTasks), nil
}
