package controller

import (
	"encoding/json"
	"errors"
	"log"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"taskscribe/annotations"
	"taskscribe/models"
	"taskscribe/modes"
	"taskscribe/utils"
)

type AnnotationController struct {
	DB     *gorm.DB
	Logger *log.Logger
}

func NewAnnotationController(db *gorm.DB, logger *log.Logger) *AnnotationController {
	return &AnnotationController{
		DB:     db,
		Logger: logger,
	}
}

// loadAssignment fetches an assignment with its task and campaign, and
// checks the caller may see it: the assignee always can, project admins
// too.
func (ac *AnnotationController) loadAssignment(c *fiber.Ctx, adminOnly bool) (*models.TaskUser, *models.Campaign, error) {
	user := c.Locals("user").(*models.User)

	var assignment models.TaskUser
	if err := ac.DB.First(&assignment, "id = ?", c.Params("id")).Error; err != nil {
		return nil, nil, c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Task not found",
		})
	}

	var task models.Task
	if err := ac.DB.First(&task, "id = ?", assignment.TaskID).Error; err != nil {
		return nil, nil, c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load task",
		})
	}
	var campaign models.Campaign
	if err := ac.DB.First(&campaign, "id = ?", task.CampaignID).Error; err != nil {
		return nil, nil, c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load campaign",
		})
	}

	isAdmin := utils.HasAdminAccess(ac.DB, campaign.ProjectID, user.ID)
	if adminOnly && !isAdmin {
		return nil, nil, c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "Only project admins can moderate tasks",
		})
	}
	if !adminOnly && assignment.UserID != user.ID && !isAdmin {
		return nil, nil, c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "This task is not assigned to you",
		})
	}

	return &assignment, &campaign, nil
}

// GetTask returns everything the annotation form needs: the element, the
// pre-filled value, the low confidence flags and the navigation neighbors.
func (ac *AnnotationController) GetTask(c *fiber.Ctx) error {
	assignment, campaign, err := ac.loadAssignment(c, false)
	if assignment == nil {
		return err
	}

	var task models.Task
	if err := ac.DB.Preload("Element").Preload("Element.Image").
		First(&task, "id = ?", assignment.TaskID).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load task",
		})
	}

	prefill, err2 := ac.buildPrefill(campaign, &task.Element, assignment)
	if err2 != nil {
		ac.Logger.Printf("Error pre-filling task %s: %v", assignment.ID, err2)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to build the annotation form",
		})
	}

	filter := annotations.ListFilter{UserID: assignment.UserID}
	previous, next, err2 := annotations.Neighbors(ac.DB, campaign.ID, assignment, filter)
	if err2 != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to resolve navigation",
		})
	}

	response := fiber.Map{
		"assignment":     assignment,
		"campaign":       campaign,
		"element":        task.Element,
		"value":          prefill.Value.ToMap(),
		"low_confidence": prefill.LowConfidence,
	}
	if previous != nil {
		response["previous_id"] = previous.ID
	}
	if next != nil {
		response["next_id"] = next.ID
	}
	return c.JSON(response)
}

// buildPrefill assembles the initial form value, resuming from the latest
// annotation when the chain already exists.
func (ac *AnnotationController) buildPrefill(campaign *models.Campaign, element *models.Element, assignment *models.TaskUser) (modes.PrefillResult, error) {
	ctx := modes.PrefillContext{}

	latest, err := annotations.LatestAnnotation(ac.DB, assignment.ID)
	if err != nil && !errors.Is(err, annotations.ErrNoAnnotation) {
		return modes.PrefillResult{}, err
	}
	if latest != nil {
		parent, err := modes.FromMap(campaign.Mode, latest.Value)
		if err == nil {
			ctx.Parent = &parent
		}
	}

	vctx, err := annotations.BuildValidationContext(ac.DB, campaign, element)
	if err != nil {
		return modes.PrefillResult{}, err
	}
	ctx.TranscriptionText = vctx.TranscriptionText
	ctx.ConfiguredElementIDs = vctx.ConfiguredElementIDs
	ctx.AllowedElementTypes = vctx.AllowedElementTypes
	ctx.AllowedElementIDs = vctx.AllowedElementIDs

	ctx.ImportedTranscriptions = map[string]modes.ImportedTranscription{}
	var configured []models.Element
	if err := ac.DB.Where("id IN ?", vctx.ConfiguredElementIDs).Find(&configured).Error; err != nil {
		return modes.PrefillResult{}, err
	}
	for _, child := range configured {
		if child.ImportedTranscription == nil {
			continue
		}
		ctx.ImportedTranscriptions[child.ID] = modes.ImportedTranscription{
			Text:       child.ImportedTranscription.Text,
			Confidence: child.ImportedTranscription.Confidence,
		}
	}
	for _, imported := range element.ImportedEntities {
		ctx.ImportedEntities = append(ctx.ImportedEntities, modes.ImportedEntity{
			Type:       imported.Type,
			Name:       imported.Name,
			Offset:     imported.Offset,
			Length:     imported.Length,
			Confidence: imported.Confidence,
		})
	}

	var children []models.Element
	if err := ac.DB.Where("parent_id = ?", element.ID).Order(`"order"`).Find(&children).Error; err != nil {
		return modes.PrefillResult{}, err
	}
	for _, child := range children {
		ctx.ChildElements = append(ctx.ChildElements, modes.ChildElement{
			ID:      child.ID,
			Polygon: child.Polygon,
			TypeID:  child.TypeID,
		})
	}

	return modes.Prefill(campaign.Mode, campaign.Configuration, ctx), nil
}

type AnnotateRequest struct {
	Value    json.RawMessage `json:"value"`
	Draft    bool            `json:"draft"`
	Duration *int            `json:"duration"`
}

func (ac *AnnotationController) Annotate(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	assignment, campaign, err := ac.loadAssignment(c, false)
	if assignment == nil {
		return err
	}

	var req AnnotateRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	value, err2 := modes.ParseValue(campaign.Mode, req.Value)
	if err2 != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err2.Error(),
		})
	}

	annotation, err2 := annotations.Annotate(ac.DB, assignment, user.ID, annotations.AnnotateRequest{
		Value:    value,
		Draft:    req.Draft,
		Duration: req.Duration,
	})
	if err2 != nil {
		return ac.annotationError(c, err2)
	}

	if !req.Draft {
		Hub.Notify(string(models.ActivityAnnotated), campaign.ID, user.ID)
	}

	return c.Status(fiber.StatusCreated).JSON(annotation)
}

func (ac *AnnotationController) SkipTask(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	assignment, campaign, err := ac.loadAssignment(c, false)
	if assignment == nil {
		return err
	}

	if err := annotations.Skip(ac.DB, assignment, user.ID); err != nil {
		return ac.annotationError(c, err)
	}

	Hub.Notify(string(models.ActivitySkipped), campaign.ID, user.ID)

	return c.JSON(assignment)
}

type ModerateTaskRequest struct {
	Action   string          `json:"action" validate:"required,oneof=validate reject"`
	Value    json.RawMessage `json:"value"`
	Duration *int            `json:"duration"`
}

func (ac *AnnotationController) ModerateTask(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	assignment, campaign, err := ac.loadAssignment(c, true)
	if assignment == nil {
		return err
	}

	var req ModerateTaskRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	moderation := annotations.ModerateRequest{
		Action:   annotations.ModerateAction(req.Action),
		Duration: req.Duration,
	}
	if req.Action == string(annotations.ActionValidate) && len(req.Value) > 0 {
		value, err := modes.ParseValue(campaign.Mode, req.Value)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": err.Error(),
			})
		}
		moderation.Correction = &value
	}

	annotation, err2 := annotations.Moderate(ac.DB, assignment, user.ID, moderation)
	if err2 != nil {
		return ac.annotationError(c, err2)
	}

	kind := models.ActivityValidated
	if moderation.Action == annotations.ActionReject {
		kind = models.ActivityRejected
	}
	Hub.Notify(string(kind), campaign.ID, user.ID)

	return c.JSON(fiber.Map{
		"assignment": assignment,
		"annotation": annotation,
	})
}

// TaskHistory returns the whole annotation chain of an assignment, oldest
// first, each version rendered with the display formatter.
func (ac *AnnotationController) TaskHistory(c *fiber.Ctx) error {
	assignment, campaign, err := ac.loadAssignment(c, false)
	if assignment == nil {
		return err
	}

	var chain []models.Annotation
	err2 := ac.DB.Where("user_task_id = ?", assignment.ID).
		Order("version").
		Preload("Moderator").
		Find(&chain).Error
	if err2 != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load history",
		})
	}

	var task models.Task
	if err := ac.DB.First(&task, "id = ?", assignment.TaskID).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load task",
		})
	}
	var element models.Element
	if err := ac.DB.First(&element, "id = ?", task.ElementID).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load element",
		})
	}

	ctx, err2 := ac.displayContext(campaign, &element)
	if err2 != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to render history",
		})
	}

	entries := make([]fiber.Map, 0, len(chain))
	for i := range chain {
		annotation := &chain[i]
		entries = append(entries, fiber.Map{
			"annotation": annotation,
			"answers":    modes.FormatAnnotation(campaign.Mode, campaign.Configuration, ctx, annotation.Value),
		})
	}
	return c.JSON(entries)
}

func (ac *AnnotationController) displayContext(campaign *models.Campaign, element *models.Element) (modes.DisplayContext, error) {
	vctx, err := annotations.BuildValidationContext(ac.DB, campaign, element)
	if err != nil {
		return modes.DisplayContext{}, err
	}

	return modes.DisplayContext{
		ConfiguredElementIDs: vctx.ConfiguredElementIDs,
		ElementName: func(elementID string) (string, bool) {
			var named models.Element
			if err := ac.DB.Select("name").First(&named, "id = ?", elementID).Error; err != nil {
				return "", false
			}
			return named.Name, true
		},
		ClassName: func(classID string) (string, bool) {
			var class models.Class
			if err := ac.DB.Select("name").First(&class, "id = ?", classID).Error; err != nil {
				return "", false
			}
			return class.Name, true
		},
	}, nil
}

// annotationError maps domain errors to HTTP statuses.
func (ac *AnnotationController) annotationError(c *fiber.Ctx, err error) error {
	var validation *modes.ValidationError
	if errors.As(err, &validation) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":  "The submitted value is invalid",
			"fields": validation.Fields,
		})
	}

	switch {
	case errors.Is(err, annotations.ErrNotAssignee):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": err.Error(),
		})
	case errors.Is(err, annotations.ErrTaskCompleted),
		errors.Is(err, annotations.ErrCampaignClosed),
		errors.Is(err, annotations.ErrNotModeratable):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	LogError("annotation", err, map[string]interface{}{
		"path": c.Path(),
	})
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error": "Internal error",
	})
}
