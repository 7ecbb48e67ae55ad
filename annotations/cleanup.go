package annotations

import (
	"gorm.io/gorm"

	"taskscribe/models"
)

// CleanupAssignments drops the unfinished assignments tied to a role a
// member just lost, on demotion or removal. Completed work is always kept.
//
// Losing the contributor role drops the member's draft and pending tasks
// across the project's campaigns. Losing the manager role drops their
// preview assignments. Moderators hold nothing of their own, so losing
// that role removes nothing.
func CleanupAssignments(db *gorm.DB, projectID, userID string, removed models.Role) error {
	scope := db.
		Where("user_id = ?", userID).
		Where("task_id IN (?)", db.Model(&models.Task{}).
			Select("tasks.id").
			Joins("JOIN campaigns ON campaigns.id = tasks.campaign_id").
			Where("campaigns.project_id = ?", projectID))

	switch removed {
	case models.RoleContributor:
		return scope.
			Where("state IN ?", []models.TaskState{models.TaskDraft, models.TaskPending}).
			Where("is_preview = ?", false).
			Delete(&models.TaskUser{}).Error
	case models.RoleManager:
		return scope.
			Where("is_preview = ?", true).
			Delete(&models.TaskUser{}).Error
	case models.RoleModerator:
		return nil
	}
	return nil
}
