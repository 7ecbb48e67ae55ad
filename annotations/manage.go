package annotations

import (
	"errors"

	"gorm.io/gorm"

	"taskscribe/models"
	"taskscribe/modes"
)

// AnnotateRequest is a contributor's submission on an assignment.
type AnnotateRequest struct {
	Value    modes.Value
	Draft    bool
	Duration *int
}

// Annotate validates a contributor's submission and appends it to the
// assignment's chain. Draft saves overwrite the previous unpublished
// version in place instead of growing the chain; publishing marks the
// assignment as annotated.
func Annotate(db *gorm.DB, userTask *models.TaskUser, userID string, req AnnotateRequest) (*models.Annotation, error) {
	if userTask.UserID != userID {
		return nil, ErrNotAssignee
	}
	if userTask.IsCompleted() {
		return nil, ErrTaskCompleted
	}

	task, campaign, element, err := loadTaskScope(db, userTask.TaskID)
	if err != nil {
		return nil, err
	}
	_ = task
	if campaign.IsClosed() {
		return nil, ErrCampaignClosed
	}

	ctx, err := BuildValidationContext(db, campaign, element)
	if err != nil {
		return nil, err
	}
	if err := modes.Validate(campaign.Configuration, ctx, req.Value); err != nil {
		return nil, err
	}
	normalized := modes.Normalize(ctx, req.Value)

	latest, err := LatestAnnotation(db, userTask.ID)
	if err != nil && !errors.Is(err, ErrNoAnnotation) {
		return nil, err
	}

	var annotation *models.Annotation
	if latest != nil && !latest.Published {
		latest.Value = normalized.ToMap()
		latest.Published = !req.Draft
		latest.Duration = req.Duration
		if err := UpdateAnnotation(db, latest); err != nil {
			return nil, err
		}
		annotation = latest
	} else {
		annotation = &models.Annotation{
			UserTaskID: userTask.ID,
			Value:      normalized.ToMap(),
			Published:  !req.Draft,
			Duration:   req.Duration,
		}
		if latest != nil {
			annotation.ParentID = &latest.ID
		}
		if err := CreateAnnotation(db, annotation); err != nil {
			return nil, err
		}
	}

	if req.Draft {
		return annotation, nil
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(userTask).Update("state", models.TaskAnnotated).Error; err != nil {
			return err
		}
		return tx.Create(&models.ActivityEvent{
			Kind:       models.ActivityAnnotated,
			UserID:     userID,
			CampaignID: campaign.ID,
		}).Error
	})
	if err != nil {
		return nil, err
	}
	userTask.State = models.TaskAnnotated
	return annotation, nil
}

// Skip marks an assignment as skipped without writing any annotation.
func Skip(db *gorm.DB, userTask *models.TaskUser, userID string) error {
	if userTask.UserID != userID {
		return ErrNotAssignee
	}
	if userTask.IsCompleted() {
		return ErrTaskCompleted
	}

	var task models.Task
	if err := db.First(&task, "id = ?", userTask.TaskID).Error; err != nil {
		return err
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(userTask).Update("state", models.TaskSkipped).Error; err != nil {
			return err
		}
		return tx.Create(&models.ActivityEvent{
			Kind:       models.ActivitySkipped,
			UserID:     userID,
			CampaignID: task.CampaignID,
		}).Error
	})
	if err != nil {
		return err
	}
	userTask.State = models.TaskSkipped
	return nil
}

// ModerateAction is a moderator's decision on an annotated assignment.
type ModerateAction string

const (
	ActionValidate ModerateAction = "validate"
	ActionReject   ModerateAction = "reject"
)

// ModerateRequest carries a moderation decision, with an optional
// correction applied on validation.
type ModerateRequest struct {
	Action     ModerateAction
	Correction *modes.Value
	Duration   *int
}

// Moderate applies a moderator's decision to an annotated assignment.
// Rejection marks the latest annotation and the assignment as rejected.
// Validation with a correction that differs from the contributor's value
// appends a new validated version on top of it; otherwise the latest
// annotation itself is validated. Either way the moderator is recorded.
func Moderate(db *gorm.DB, userTask *models.TaskUser, moderatorID string, req ModerateRequest) (*models.Annotation, error) {
	latest, err := LatestAnnotation(db, userTask.ID)
	if errors.Is(err, ErrNoAnnotation) {
		return nil, ErrNotModeratable
	}
	if err != nil {
		return nil, err
	}
	if !latest.Published {
		return nil, ErrNotModeratable
	}

	_, campaign, element, err := loadTaskScope(db, userTask.TaskID)
	if err != nil {
		return nil, err
	}

	if req.Action == ActionReject {
		state := models.AnnotationRejected
		latest.State = &state
		latest.ModeratorID = &moderatorID
		if err := UpdateAnnotation(db, latest); err != nil {
			return nil, err
		}
		if err := finishModeration(db, userTask, moderatorID, campaign.ID, models.TaskRejected); err != nil {
			return nil, err
		}
		return latest, nil
	}

	state := models.AnnotationValidated
	annotation := latest

	if req.Correction != nil {
		current, err := modes.FromMap(campaign.Mode, latest.Value)
		if err != nil {
			return nil, err
		}
		if !req.Correction.Equal(current) {
			ctx, err := BuildValidationContext(db, campaign, element)
			if err != nil {
				return nil, err
			}
			if err := modes.Validate(campaign.Configuration, ctx, *req.Correction); err != nil {
				return nil, err
			}
			normalized := modes.Normalize(ctx, *req.Correction)

			annotation = &models.Annotation{
				UserTaskID:  userTask.ID,
				ParentID:    &latest.ID,
				Value:       normalized.ToMap(),
				Published:   true,
				Duration:    req.Duration,
				State:       &state,
				ModeratorID: &moderatorID,
			}
			if err := CreateAnnotation(db, annotation); err != nil {
				return nil, err
			}
			if err := finishModeration(db, userTask, moderatorID, campaign.ID, models.TaskValidated); err != nil {
				return nil, err
			}
			return annotation, nil
		}
	}

	annotation.State = &state
	annotation.ModeratorID = &moderatorID
	if err := UpdateAnnotation(db, annotation); err != nil {
		return nil, err
	}
	if err := finishModeration(db, userTask, moderatorID, campaign.ID, models.TaskValidated); err != nil {
		return nil, err
	}
	return annotation, nil
}

func finishModeration(db *gorm.DB, userTask *models.TaskUser, moderatorID, campaignID string, state models.TaskState) error {
	kind := models.ActivityValidated
	if state == models.TaskRejected {
		kind = models.ActivityRejected
	}
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(userTask).Update("state", state).Error; err != nil {
			return err
		}
		return tx.Create(&models.ActivityEvent{
			Kind:       kind,
			UserID:     moderatorID,
			CampaignID: campaignID,
		}).Error
	})
	if err != nil {
		return err
	}
	userTask.State = state
	return nil
}

func loadTaskScope(db *gorm.DB, taskID string) (*models.Task, *models.Campaign, *models.Element, error) {
	var task models.Task
	if err := db.First(&task, "id = ?", taskID).Error; err != nil {
		return nil, nil, nil, err
	}
	var campaign models.Campaign
	if err := db.First(&campaign, "id = ?", task.CampaignID).Error; err != nil {
		return nil, nil, nil, err
	}
	var element models.Element
	if err := db.First(&element, "id = ?", task.ElementID).Error; err != nil {
		return nil, nil, nil, err
	}
	return &task, &campaign, &element, nil
}

// BuildValidationContext assembles the database facts a mode validation
// needs for one task: the element's transcription, the configured children
// and the sets of allowed classes, types and elements.
func BuildValidationContext(db *gorm.DB, campaign *models.Campaign, element *models.Element) (modes.ValidationContext, error) {
	ctx := modes.ValidationContext{}
	cfg := campaign.Configuration

	if element.ImportedTranscription != nil {
		ctx.TranscriptionText = element.ImportedTranscription.Text
	}

	ctx.AllowedClasses = cfg.Classes
	if len(ctx.AllowedClasses) == 0 {
		err := db.Model(&models.Class{}).
			Where("project_id = ?", campaign.ProjectID).
			Pluck("id", &ctx.AllowedClasses).Error
		if err != nil {
			return ctx, err
		}
	}

	ctx.AllowedElementTypes = cfg.ElementTypes
	if len(ctx.AllowedElementTypes) == 0 {
		err := db.Model(&models.ElementType{}).
			Where("project_id = ? AND folder = ?", campaign.ProjectID, false).
			Pluck("id", &ctx.AllowedElementTypes).Error
		if err != nil {
			return ctx, err
		}
	}

	configured, err := configuredElements(db, cfg, element)
	if err != nil {
		return ctx, err
	}
	ctx.ConfiguredElementIDs = configured

	children := db.Model(&models.Element{}).
		Where("parent_id = ?", element.ID).
		Order(`"order"`)
	if cfg.GroupType != "" {
		children = children.Where("type_id = ?", cfg.GroupType)
	}
	if err := children.Pluck("id", &ctx.AllowedElementIDs).Error; err != nil {
		return ctx, err
	}

	ctx.AuthorityHas = func(authorityID, value string) bool {
		var count int64
		db.Model(&models.AuthorityValue{}).
			Where("authority_id = ? AND value = ?", authorityID, value).
			Count(&count)
		return count > 0
	}

	return ctx, nil
}

// configuredElements lists the transcribed elements of a task: the task's
// element itself plus its children, restricted to the configured children
// types when the campaign declares some.
func configuredElements(db *gorm.DB, cfg modes.CampaignConfig, element *models.Element) ([]string, error) {
	ids := []string{element.ID}

	query := db.Model(&models.Element{}).
		Where("parent_id = ?", element.ID).
		Order(`"order"`)
	if len(cfg.ChildrenTypes) > 0 {
		query = query.Where("type_id IN ?", cfg.ChildrenTypes)
		// With explicit children types the parent itself is not
		// transcribed.
		ids = ids[:0]
	}

	var children []string
	if err := query.Pluck("id", &children).Error; err != nil {
		return nil, err
	}
	return append(ids, children...), nil
}
