package annotations

import (
	"errors"

	"gorm.io/gorm"

	"taskscribe/models"
	"taskscribe/modes"
)

// CreateAnnotation inserts a new version at the end of an assignment's
// chain. The version number is always max(version)+1 at insertion time and
// is never supplied by callers. Two writers racing on the same assignment
// both compute the same next version; the unique constraint rejects the
// loser, which retries once on top of the winner's version.
func CreateAnnotation(db *gorm.DB, annotation *models.Annotation) error {
	if annotation.ParentID != nil {
		var parent models.Annotation
		if err := db.First(&parent, "id = ?", *annotation.ParentID).Error; err != nil {
			return err
		}
		if err := annotation.Validate(&parent); err != nil {
			return err
		}
	}

	insert := func() error {
		return db.Transaction(func(tx *gorm.DB) error {
			next, err := nextVersion(tx, annotation.UserTaskID)
			if err != nil {
				return err
			}
			annotation.Version = next
			return tx.Create(annotation).Error
		})
	}

	if err := insert(); err != nil {
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			return err
		}
		annotation.ID = ""
		if err := insert(); err != nil {
			return err
		}
	}

	return RefreshUncertainValue(db, annotation.UserTaskID)
}

// UpdateAnnotation persists changes to an existing annotation. The version
// is immutable once assigned, so updates never recompute it.
func UpdateAnnotation(db *gorm.DB, annotation *models.Annotation) error {
	if err := db.Model(annotation).
		Select("value", "published", "duration", "state", "moderator_id").
		Updates(annotation).Error; err != nil {
		return err
	}
	return RefreshUncertainValue(db, annotation.UserTaskID)
}

// LatestAnnotation returns the highest version of an assignment's chain,
// or ErrNoAnnotation when the chain is empty.
func LatestAnnotation(db *gorm.DB, userTaskID string) (*models.Annotation, error) {
	var annotation models.Annotation
	err := db.Where("user_task_id = ?", userTaskID).
		Order("version DESC").
		First(&annotation).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNoAnnotation
	}
	if err != nil {
		return nil, err
	}
	return &annotation, nil
}

// RefreshUncertainValue recomputes the assignment's uncertainty flag from
// its latest annotation. Older versions never influence the flag.
func RefreshUncertainValue(db *gorm.DB, userTaskID string) error {
	latest, err := LatestAnnotation(db, userTaskID)
	if errors.Is(err, ErrNoAnnotation) {
		return db.Model(&models.TaskUser{}).
			Where("id = ?", userTaskID).
			Update("has_uncertain_value", false).Error
	}
	if err != nil {
		return err
	}

	var mode modes.Mode
	err = db.Model(&models.TaskUser{}).
		Select("campaigns.mode").
		Joins("JOIN tasks ON tasks.id = task_users.task_id").
		Joins("JOIN campaigns ON campaigns.id = tasks.campaign_id").
		Where("task_users.id = ?", userTaskID).
		Scan(&mode).Error
	if err != nil {
		return err
	}

	uncertain := modes.HasUncertainValue(mode, latest.Value)
	return db.Model(&models.TaskUser{}).
		Where("id = ?", userTaskID).
		Update("has_uncertain_value", uncertain).Error
}

func nextVersion(tx *gorm.DB, userTaskID string) (int, error) {
	var max *int
	err := tx.Model(&models.Annotation{}).
		Where("user_task_id = ?", userTaskID).
		Select("MAX(version)").
		Scan(&max).Error
	if err != nil {
		return 0, err
	}
	if max == nil {
		return 1, nil
	}
	return *max + 1, nil
}
