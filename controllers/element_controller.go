package controller

import (
	"log"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"taskscribe/models"
	"taskscribe/modes"
	"taskscribe/utils"
)

type ElementController struct {
	DB     *gorm.DB
	Logger *log.Logger
}

func NewElementController(db *gorm.DB, logger *log.Logger) *ElementController {
	return &ElementController{
		DB:     db,
		Logger: logger,
	}
}

type CreateElementTypeRequest struct {
	Name   string `json:"name" validate:"required,max=100"`
	Folder bool   `json:"folder"`
}

func (ec *ElementController) CreateElementType(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)
	projectID := c.Params("id")

	if !utils.HasManagerAccess(ec.DB, projectID, user.ID) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "Only managers can create element types",
		})
	}

	var req CreateElementTypeRequest
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

	elementType := models.ElementType{
		ProjectID: projectID,
		Name:      req.Name,
		Folder:    req.Folder,
	}
	if err := ec.DB.Create(&elementType).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to create element type",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(elementType)
}

type CreateElementRequest struct {
	Name            string        `json:"name" validate:"required,max=250"`
	TypeID          string        `json:"type_id" validate:"required"`
	ParentID        *string       `json:"parent_id"`
	Order           *int          `json:"order"`
	ImageID         *string       `json:"image_id"`
	Polygon         modes.Polygon `json:"polygon"`
	TextOrientation string        `json:"text_orientation" validate:"omitempty,oneof=horizontal-lr horizontal-rl vertical-lr vertical-rl"`

	ProviderObjectID      string                        `json:"provider_object_id"`
	ImportedTranscription *models.ImportedTranscription `json:"imported_transcription"`
	ImportedEntities      []models.ImportedEntity       `json:"imported_entities"`
}

func (ec *ElementController) CreateElement(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)
	projectID := c.Params("id")

	if !utils.HasManagerAccess(ec.DB, projectID, user.ID) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "Only managers can create elements",
		})
	}

	var req CreateElementRequest
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

	var elementType models.ElementType
	err := ec.DB.First(&elementType, "id = ? AND project_id = ?", req.TypeID, projectID).Error
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unknown element type for this project",
		})
	}

	polygon := req.Polygon
	if len(polygon) > 0 {
		canonical, err := polygon.Canonical()
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": err.Error(),
			})
		}
		polygon = canonical
	}

	orientation := models.TextOrientation(req.TextOrientation)
	if orientation == "" {
		orientation = models.OrientationHorizontalLR
	}

	element := models.Element{
		ProjectID:             projectID,
		Name:                  req.Name,
		TypeID:                req.TypeID,
		ParentID:              req.ParentID,
		Order:                 req.Order,
		ImageID:               req.ImageID,
		Polygon:               polygon,
		TextOrientation:       orientation,
		ProviderObjectID:      req.ProviderObjectID,
		ImportedTranscription: req.ImportedTranscription,
		ImportedEntities:      req.ImportedEntities,
	}
	if err := ec.DB.Create(&element).Error; err != nil {
		ec.Logger.Printf("Error creating element: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to create element",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(element)
}

// ListElements returns a project's elements, optionally restricted to the
// children of one parent, in sibling order.
func (ec *ElementController) ListElements(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	var project models.Project
	if err := ec.DB.First(&project, "id = ?", c.Params("id")).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Project not found",
		})
	}
	if !utils.HasAccess(ec.DB, &project, user.ID) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "You do not have access to this project",
		})
	}

	query := ec.DB.Where("project_id = ?", project.ID).
		Preload("Image").
		Order(`"order"`)
	if parent := c.Query("parent_id"); parent != "" {
		query = query.Where("parent_id = ?", parent)
	} else if c.QueryBool("roots") {
		query = query.Where("parent_id IS NULL")
	}

	var elements []models.Element
	if err := query.Find(&elements).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to list elements",
		})
	}

	return c.JSON(elements)
}

type CreateClassRequest struct {
	Name             string `json:"name" validate:"required,max=100"`
	ProviderObjectID string `json:"provider_object_id"`
}

func (ec *ElementController) CreateClass(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)
	projectID := c.Params("id")

	if !utils.HasManagerAccess(ec.DB, projectID, user.ID) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "Only managers can create classes",
		})
	}

	var req CreateClassRequest
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

	class := models.Class{
		ProjectID:        projectID,
		Name:             req.Name,
		ProviderObjectID: req.ProviderObjectID,
	}
	if err := ec.DB.Create(&class).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to create class",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(class)
}

type CreateImageRequest struct {
	IIIFURL string `json:"iiif_url" validate:"required,url"`
	Width   int    `json:"width" validate:"required,min=1"`
	Height  int    `json:"height" validate:"required,min=1"`
}

func (ec *ElementController) CreateImage(c *fiber.Ctx) error {
	var req CreateImageRequest
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

	image := models.Image{IIIFURL: req.IIIFURL, Width: req.Width, Height: req.Height}
	err := ec.DB.Where("iiif_url = ?", req.IIIFURL).FirstOrCreate(&image).Error
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to create image",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(image)
}

type CreateProviderRequest struct {
	Name     string `json:"name" validate:"required,max=100"`
	Type     string `json:"type" validate:"omitempty,oneof=arkindex iiif"`
	APIURL   string `json:"api_url" validate:"required,url"`
	APIToken string `json:"api_token"`
}

func (ec *ElementController) CreateProvider(c *fiber.Ctx) error {
	var req CreateProviderRequest
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

	// API tokens are stored encrypted
	token, err := utils.Encrypt(req.APIToken)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to encrypt provider token",
		})
	}

	providerType := models.ProviderType(req.Type)
	if providerType == "" {
		providerType = models.ProviderArkindex
	}

	provider := models.Provider{
		Name:     req.Name,
		Type:     providerType,
		APIURL:   req.APIURL,
		APIToken: token,
	}
	if err := ec.DB.Create(&provider).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to create provider",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(provider)
}
