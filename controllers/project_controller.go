package controller

import (
	"log"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"taskscribe/models"
	"taskscribe/utils"
)

type ProjectController struct {
	DB     *gorm.DB
	Logger *log.Logger
}

func NewProjectController(db *gorm.DB, logger *log.Logger) *ProjectController {
	return &ProjectController{
		DB:     db,
		Logger: logger,
	}
}

type CreateProjectRequest struct {
	Name        string `json:"name" validate:"required,max=250"`
	Description string `json:"description"`
	Public      bool   `json:"public"`
}

func (pc *ProjectController) CreateProject(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	var req CreateProjectRequest
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

	project := models.Project{
		Name:        req.Name,
		Description: req.Description,
		Public:      req.Public,
	}

	err := pc.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&project).Error; err != nil {
			return err
		}
		// The creator manages their own project
		return tx.Create(&models.Membership{
			UserID:    user.ID,
			ProjectID: project.ID,
			Role:      models.RoleManager,
		}).Error
	})
	if err != nil {
		pc.Logger.Printf("Error creating project: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to create project",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(project)
}

func (pc *ProjectController) ListProjects(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	var projects []models.Project
	err := pc.DB.
		Where("public = ?", true).
		Or("id IN (?)", pc.DB.Model(&models.Membership{}).
			Select("project_id").
			Where("user_id = ?", user.ID)).
		Order("created_at DESC").
		Find(&projects).Error
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to list projects",
		})
	}

	return c.JSON(projects)
}

func (pc *ProjectController) GetProject(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	var project models.Project
	if err := pc.DB.First(&project, "id = ?", c.Params("id")).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Project not found",
		})
	}
	if !utils.HasAccess(pc.DB, &project, user.ID) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "You do not have access to this project",
		})
	}

	return c.JSON(project)
}

func (pc *ProjectController) UpdateProject(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	var project models.Project
	if err := pc.DB.First(&project, "id = ?", c.Params("id")).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Project not found",
		})
	}
	if !utils.HasManagerAccess(pc.DB, project.ID, user.ID) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "Only managers can update a project",
		})
	}

	var req CreateProjectRequest
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

	err := pc.DB.Model(&project).Updates(map[string]interface{}{
		"name":        req.Name,
		"description": req.Description,
		"public":      req.Public,
	}).Error
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to update project",
		})
	}

	return c.JSON(project)
}

func (pc *ProjectController) DeleteProject(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	var project models.Project
	if err := pc.DB.First(&project, "id = ?", c.Params("id")).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Project not found",
		})
	}
	if !utils.HasManagerAccess(pc.DB, project.ID, user.ID) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "Only managers can delete a project",
		})
	}

	if err := pc.DB.Delete(&project).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to delete project",
		})
	}

	return c.JSON(fiber.Map{
		"message": "Project deleted",
	})
}

// JoinWithToken adds the caller to the project behind an invite token, as
// a contributor.
func (pc *ProjectController) JoinWithToken(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	var project models.Project
	if err := pc.DB.First(&project, "invite_token = ?", c.Params("token")).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Invalid invite token",
		})
	}

	membership := models.Membership{UserID: user.ID, ProjectID: project.ID}
	err := pc.DB.Where("user_id = ? AND project_id = ?", user.ID, project.ID).
		FirstOrCreate(&membership).Error
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to join project",
		})
	}

	return c.JSON(membership)
}
