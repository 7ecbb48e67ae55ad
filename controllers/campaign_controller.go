package controller

import (
	"errors"
	"fmt"
	"log"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"taskscribe/annotations"
	"taskscribe/config"
	"taskscribe/models"
	"taskscribe/modes"
	"taskscribe/utils"
)

type CampaignController struct {
	DB     *gorm.DB
	Logger *log.Logger
}

func NewCampaignController(db *gorm.DB, logger *log.Logger) *CampaignController {
	return &CampaignController{
		DB:     db,
		Logger: logger,
	}
}

type CreateCampaignRequest struct {
	Name                  string               `json:"name" validate:"required,max=250"`
	Description           string               `json:"description"`
	Mode                  string               `json:"mode" validate:"required,campaign_mode"`
	NbTasksAutoAssignment *int                 `json:"nb_tasks_auto_assignment" validate:"omitempty,min=0"`
	MaxUserTasks          *int                 `json:"max_user_tasks" validate:"omitempty,min=1"`
	Configuration         modes.CampaignConfig `json:"configuration"`
}

func (cc *CampaignController) CreateCampaign(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)
	projectID := c.Params("id")

	if !utils.HasManagerAccess(cc.DB, projectID, user.ID) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "Only managers can create campaigns",
		})
	}

	var req CreateCampaignRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if err := utils.ValidateStruct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	campaign := models.Campaign{
		ProjectID:             projectID,
		Name:                  req.Name,
		Description:           req.Description,
		Mode:                  modes.Mode(req.Mode),
		State:                 models.CampaignCreated,
		NbTasksAutoAssignment: 50,
		MaxUserTasks:          1,
		Configuration:         req.Configuration,
	}
	if req.NbTasksAutoAssignment != nil {
		campaign.NbTasksAutoAssignment = *req.NbTasksAutoAssignment
	}
	if req.MaxUserTasks != nil {
		campaign.MaxUserTasks = *req.MaxUserTasks
	}

	if err := cc.DB.Create(&campaign).Error; err != nil {
		cc.Logger.Printf("Error creating campaign: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to create campaign",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(campaign)
}

func (cc *CampaignController) ListCampaigns(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	var project models.Project
	if err := cc.DB.First(&project, "id = ?", c.Params("id")).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Project not found",
		})
	}
	if !utils.HasAccess(cc.DB, &project, user.ID) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "You do not have access to this project",
		})
	}

	query := cc.DB.Where("project_id = ?", project.ID)
	// Unpublished campaigns only show up for the project's admins
	if !utils.HasAdminAccess(cc.DB, project.ID, user.ID) {
		query = query.Where("state <> ?", models.CampaignCreated)
	}

	var campaigns []models.Campaign
	if err := query.Order("created_at DESC").Find(&campaigns).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to list campaigns",
		})
	}

	return c.JSON(campaigns)
}

func (cc *CampaignController) getCampaign(c *fiber.Ctx) (*models.Campaign, error) {
	var campaign models.Campaign
	if err := cc.DB.First(&campaign, "id = ?", c.Params("id")).Error; err != nil {
		return nil, c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Campaign not found",
		})
	}
	return &campaign, nil
}

func (cc *CampaignController) GetCampaign(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	campaign, err := cc.getCampaign(c)
	if campaign == nil {
		return err
	}

	var project models.Project
	if err := cc.DB.First(&project, "id = ?", campaign.ProjectID).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load project",
		})
	}
	if !utils.HasAccess(cc.DB, &project, user.ID) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "You do not have access to this campaign",
		})
	}

	var taskCount int64
	cc.DB.Model(&models.Task{}).Where("campaign_id = ?", campaign.ID).Count(&taskCount)

	return c.JSON(fiber.Map{
		"campaign":   campaign,
		"task_count": taskCount,
	})
}

type GenerateTasksRequest struct {
	TypeID   string  `json:"type_id" validate:"required"`
	ParentID *string `json:"parent_id"`
}

// GenerateTasks creates one task per matching element. Elements already
// covered by a task, or not satisfying the campaign mode, are skipped and
// counted.
func (cc *CampaignController) GenerateTasks(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	campaign, err := cc.getCampaign(c)
	if campaign == nil {
		return err
	}
	if !utils.HasManagerAccess(cc.DB, campaign.ProjectID, user.ID) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "Only managers can generate tasks",
		})
	}
	if campaign.IsClosed() {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": annotations.ErrCampaignClosed.Error(),
		})
	}

	var req GenerateTasksRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if err := utils.ValidateStruct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	query := cc.DB.Where("project_id = ? AND type_id = ?", campaign.ProjectID, req.TypeID).
		Order(`parent_id, "order", id`)
	if req.ParentID != nil {
		query = query.Where("parent_id = ?", *req.ParentID)
	}

	var elements []models.Element
	if err := query.Find(&elements).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to list elements",
		})
	}

	created, skipped := 0, 0
	for i := range elements {
		element := &elements[i]
		task := models.Task{CampaignID: campaign.ID, ElementID: element.ID}
		if err := task.Validate(campaign, element); err != nil {
			skipped++
			continue
		}
		if err := cc.DB.Create(&task).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				skipped++
				continue
			}
			cc.Logger.Printf("Error creating task for element %s: %v", element.ID, err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Failed to generate tasks",
			})
		}
		created++
	}

	return c.JSON(fiber.Map{
		"created": created,
		"skipped": skipped,
	})
}

// PublishCampaign opens a campaign to contributors. Assignments drafted
// before publication become pending.
func (cc *CampaignController) PublishCampaign(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	campaign, err := cc.getCampaign(c)
	if campaign == nil {
		return err
	}
	if !utils.HasManagerAccess(cc.DB, campaign.ProjectID, user.ID) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "Only managers can publish a campaign",
		})
	}
	if campaign.State != models.CampaignCreated {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Only a created campaign can be published",
		})
	}

	txErr := cc.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(campaign).Update("state", models.CampaignRunning).Error; err != nil {
			return err
		}
		return tx.Model(&models.TaskUser{}).
			Where("state = ?", models.TaskDraft).
			Where("task_id IN (?)", tx.Model(&models.Task{}).
				Select("id").
				Where("campaign_id = ?", campaign.ID)).
			Update("state", models.TaskPending).Error
	})
	if txErr != nil {
		cc.Logger.Printf("Error publishing campaign %s: %v", campaign.ID, txErr)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to publish campaign",
		})
	}

	campaign.State = models.CampaignRunning
	LogEvent("campaign_published", map[string]interface{}{
		"campaign_id": campaign.ID,
		"user_id":     user.ID,
	})
	return c.JSON(campaign)
}

func (cc *CampaignController) CloseCampaign(c *fiber.Ctx) error {
	return cc.transitionCampaign(c, models.CampaignClosed, "Only a running campaign can be closed", models.CampaignRunning)
}

// ReopenCampaign puts a closed campaign back in front of contributors.
// Archived campaigns stay archived.
func (cc *CampaignController) ReopenCampaign(c *fiber.Ctx) error {
	return cc.transitionCampaign(c, models.CampaignRunning, "Only a closed campaign can be reopened", models.CampaignClosed)
}

func (cc *CampaignController) ArchiveCampaign(c *fiber.Ctx) error {
	return cc.transitionCampaign(c, models.CampaignArchived, "Only a closed campaign can be archived", models.CampaignClosed)
}

func (cc *CampaignController) transitionCampaign(c *fiber.Ctx, target models.CampaignState, message string, allowed ...models.CampaignState) error {
	user := c.Locals("user").(*models.User)

	campaign, err := cc.getCampaign(c)
	if campaign == nil {
		return err
	}
	if !utils.HasManagerAccess(cc.DB, campaign.ProjectID, user.ID) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "Only managers can change the campaign state",
		})
	}

	permitted := false
	for _, state := range allowed {
		if campaign.State == state {
			permitted = true
			break
		}
	}
	if !permitted {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": message,
		})
	}

	if err := cc.DB.Model(campaign).Update("state", target).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to update campaign state",
		})
	}

	campaign.State = target
	LogEvent("campaign_state_changed", map[string]interface{}{
		"campaign_id": campaign.ID,
		"state":       string(target),
		"user_id":     user.ID,
	})
	return c.JSON(campaign)
}

type JoinCampaignRequest struct {
	TaskID string `json:"task_id"`
}

// JoinCampaign hands the caller their next batch of tasks. When the batch
// empties the campaign, its managers are emailed so they can feed it or
// close it.
func (cc *CampaignController) JoinCampaign(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	var req JoinCampaignRequest
	// Joining without a body claims the next sequential batch
	_ = c.BodyParser(&req)

	result, err := annotations.Join(cc.DB, c.Params("id"), user.ID, annotations.JoinOptions{
		TaskID: req.TaskID,
	})
	if err != nil {
		switch {
		case errors.Is(err, annotations.ErrCampaignClosed),
			errors.Is(err, annotations.ErrNoAutoAssignment),
			errors.Is(err, annotations.ErrAlreadyHasPendingTasks):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": err.Error(),
			})
		case errors.Is(err, annotations.ErrNotAContributor):
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": err.Error(),
			})
		case errors.Is(err, annotations.ErrNoAvailableTasks):
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"error": err.Error(),
			})
		case errors.Is(err, gorm.ErrRecordNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Campaign not found",
			})
		}
		LogError("campaign_join", err, map[string]interface{}{
			"campaign_id": c.Params("id"),
			"user_id":     user.ID,
		})
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to join campaign",
		})
	}

	if result.Exhausted {
		go cc.notifyExhausted(c.Params("id"))
	}
	Hub.Notify(string(models.ActivityJoined), c.Params("id"), user.ID)

	return c.JSON(fiber.Map{
		"assigned": result.Assigned,
	})
}

// notifyExhausted emails the managers that every task has been handed out.
func (cc *CampaignController) notifyExhausted(campaignID string) {
	var campaign models.Campaign
	if err := cc.DB.First(&campaign, "id = ?", campaignID).Error; err != nil {
		return
	}
	recipients, err := utils.ManagerEmails(cc.DB, campaign.ProjectID)
	if err != nil || len(recipients) == 0 {
		return
	}

	link := fmt.Sprintf("%s/campaigns/%s", config.AppConfig.FrontendURL, campaign.ID)
	if err := utils.SendNoMoreTasksEmail(recipients, campaign.Name, link); err != nil {
		cc.Logger.Printf("Error sending exhaustion email for campaign %s: %v", campaign.ID, err)
	}
}

// PreviewCampaign assigns one specific task to the calling admin as a
// preview, outside the contributor quota.
func (cc *CampaignController) PreviewCampaign(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	campaign, err := cc.getCampaign(c)
	if campaign == nil {
		return err
	}
	if !utils.HasAdminAccess(cc.DB, campaign.ProjectID, user.ID) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "Only project admins can preview a campaign",
		})
	}

	var req JoinCampaignRequest
	if err := c.BodyParser(&req); err != nil || req.TaskID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "task_id is required",
		})
	}

	var task models.Task
	if err := cc.DB.First(&task, "id = ? AND campaign_id = ?", req.TaskID, campaign.ID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Task not found",
		})
	}

	assignment, err := annotations.AssignTask(cc.DB, &task, user.ID, true)
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"error": "You already hold this task",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to create preview assignment",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(assignment)
}

// CampaignTasks lists a campaign's assignments for moderation, with the
// state, contributor and feedback filters of the navigation.
func (cc *CampaignController) CampaignTasks(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	campaign, err := cc.getCampaign(c)
	if campaign == nil {
		return err
	}
	if !utils.HasAdminAccess(cc.DB, campaign.ProjectID, user.ID) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "Only project admins can list a campaign's tasks",
		})
	}

	filter := annotations.ListFilter{
		UserID:   c.Query("user_id"),
		Feedback: annotations.Feedback(c.Query("user_feedback")),
	}
	if state := c.Query("state"); state != "" {
		filter.States = []models.TaskState{models.TaskState(state)}
	}

	assignments, err2 := annotations.ListAssignments(cc.DB, campaign.ID, filter)
	if err2 != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to list assignments",
		})
	}

	return c.JSON(assignments)
}
