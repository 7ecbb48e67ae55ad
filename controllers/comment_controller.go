package controller

import (
	"fmt"
	"log"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"taskscribe/config"
	"taskscribe/models"
	"taskscribe/utils"
)

type CommentController struct {
	DB     *gorm.DB
	Logger *log.Logger
}

func NewCommentController(db *gorm.DB, logger *log.Logger) *CommentController {
	return &CommentController{
		DB:     db,
		Logger: logger,
	}
}

// loadDiscussion resolves an assignment and checks the caller may take
// part in its discussion: the assignee and the project's admins.
func (cc *CommentController) loadDiscussion(c *fiber.Ctx) (*models.TaskUser, *models.Campaign, error) {
	user := c.Locals("user").(*models.User)

	var assignment models.TaskUser
	if err := cc.DB.First(&assignment, "id = ?", c.Params("id")).Error; err != nil {
		return nil, nil, c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Task not found",
		})
	}
	var task models.Task
	if err := cc.DB.First(&task, "id = ?", assignment.TaskID).Error; err != nil {
		return nil, nil, c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load task",
		})
	}
	var campaign models.Campaign
	if err := cc.DB.First(&campaign, "id = ?", task.CampaignID).Error; err != nil {
		return nil, nil, c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load campaign",
		})
	}

	if assignment.UserID != user.ID && !utils.HasAdminAccess(cc.DB, campaign.ProjectID, user.ID) {
		return nil, nil, c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "You cannot access this discussion",
		})
	}
	return &assignment, &campaign, nil
}

func (cc *CommentController) ListComments(c *fiber.Ctx) error {
	assignment, _, err := cc.loadDiscussion(c)
	if assignment == nil {
		return err
	}

	var comments []models.Comment
	err2 := cc.DB.Where("task_id = ?", assignment.TaskID).
		Preload("Author").
		Order("created_at").
		Find(&comments).Error
	if err2 != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to list comments",
		})
	}

	return c.JSON(comments)
}

type CreateCommentRequest struct {
	Body string `json:"body" validate:"required,max=2000"`
}

// CreateComment posts a message on an assignment's discussion and emails
// the other participants.
func (cc *CommentController) CreateComment(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	assignment, campaign, err := cc.loadDiscussion(c)
	if assignment == nil {
		return err
	}

	var req CreateCommentRequest
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

	comment := models.Comment{
		TaskID:   assignment.TaskID,
		AuthorID: user.ID,
		Body:     req.Body,
	}
	if err := cc.DB.Create(&comment).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to post comment",
		})
	}

	go cc.notifyParticipants(assignment, campaign, user, req.Body)

	return c.Status(fiber.StatusCreated).JSON(comment)
}

// notifyParticipants emails everyone involved in the discussion except
// the author: the task's assignees plus anyone who already commented.
func (cc *CommentController) notifyParticipants(assignment *models.TaskUser, campaign *models.Campaign, author *models.User, body string) {
	recipients := map[string]bool{}

	var assignees []string
	err := cc.DB.Model(&models.TaskUser{}).
		Joins("JOIN users ON users.id = task_users.user_id").
		Where("task_users.task_id = ?", assignment.TaskID).
		Distinct().
		Pluck("users.email", &assignees).Error
	if err == nil {
		for _, email := range assignees {
			recipients[email] = true
		}
	}

	var commenters []string
	err = cc.DB.Model(&models.Comment{}).
		Joins("JOIN users ON users.id = comments.author_id").
		Where("comments.task_id = ?", assignment.TaskID).
		Distinct().
		Pluck("users.email", &commenters).Error
	if err == nil {
		for _, email := range commenters {
			recipients[email] = true
		}
	}
	delete(recipients, author.Email)
	if len(recipients) == 0 {
		return
	}

	emails := make([]string, 0, len(recipients))
	for email := range recipients {
		emails = append(emails, email)
	}

	link := fmt.Sprintf("%s/tasks/%s", config.AppConfig.FrontendURL, assignment.ID)
	if err := utils.SendTaskCommentEmail(emails, author.Name, campaign.Name, body, link); err != nil {
		cc.Logger.Printf("Error sending comment notification for task %s: %v", assignment.ID, err)
	}
}
