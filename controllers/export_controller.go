package controller

import (
	"log"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"taskscribe/models"
	"taskscribe/utils"
	"taskscribe/worker"
)

type ExportController struct {
	DB     *gorm.DB
	Logger *log.Logger
}

func NewExportController(db *gorm.DB, logger *log.Logger) *ExportController {
	return &ExportController{
		DB:     db,
		Logger: logger,
	}
}

// StartExport queues a CSV export of the campaign; the worker loop picks
// it up.
func (ec *ExportController) StartExport(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	var campaign models.Campaign
	if err := ec.DB.First(&campaign, "id = ?", c.Params("id")).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Campaign not found",
		})
	}
	if !utils.HasAdminAccess(ec.DB, campaign.ProjectID, user.ID) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "Only project admins can export a campaign",
		})
	}

	process, err := worker.EnqueueExport(ec.DB, campaign.ID, user.ID)
	if err != nil {
		ec.Logger.Printf("Error enqueueing export for campaign %s: %v", campaign.ID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to queue export",
		})
	}

	return c.Status(fiber.StatusAccepted).JSON(process)
}

func (ec *ExportController) GetExport(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	var process models.Process
	if err := ec.DB.First(&process, "id = ?", c.Params("id")).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Export not found",
		})
	}

	var campaign models.Campaign
	if err := ec.DB.First(&campaign, "id = ?", process.CampaignID).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load campaign",
		})
	}
	if !utils.HasAdminAccess(ec.DB, campaign.ProjectID, user.ID) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "Only project admins can view exports",
		})
	}

	return c.JSON(process)
}

// DownloadExport streams the produced CSV file.
func (ec *ExportController) DownloadExport(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	var process models.Process
	if err := ec.DB.First(&process, "id = ?", c.Params("id")).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Export not found",
		})
	}

	var campaign models.Campaign
	if err := ec.DB.First(&campaign, "id = ?", process.CampaignID).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load campaign",
		})
	}
	if !utils.HasAdminAccess(ec.DB, campaign.ProjectID, user.ID) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "Only project admins can download exports",
		})
	}

	if process.State != models.ProcessDone || process.OutputPath == "" {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": "Export is not finished",
			"state": process.State,
		})
	}

	return c.Download(process.OutputPath)
}
