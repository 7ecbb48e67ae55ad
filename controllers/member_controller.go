package controller

import (
	"log"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"taskscribe/annotations"
	"taskscribe/models"
	"taskscribe/utils"
)

type MemberController struct {
	DB     *gorm.DB
	Logger *log.Logger
}

func NewMemberController(db *gorm.DB, logger *log.Logger) *MemberController {
	return &MemberController{
		DB:     db,
		Logger: logger,
	}
}

func (mc *MemberController) ListMembers(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)
	projectID := c.Params("id")

	if _, ok := utils.MemberRole(mc.DB, projectID, user.ID); !ok {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "You are not a member of this project",
		})
	}

	var memberships []models.Membership
	err := mc.DB.Where("project_id = ?", projectID).
		Preload("User").
		Order("created_at").
		Find(&memberships).Error
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to list members",
		})
	}

	return c.JSON(memberships)
}

type UpdateMemberRequest struct {
	Role string `json:"role" validate:"required,oneof=contributor moderator manager"`
}

// UpdateMember changes a member's role. Assignments tied to the role the
// member loses are cleaned up, so a demoted manager does not keep preview
// tasks around.
func (mc *MemberController) UpdateMember(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)
	projectID := c.Params("id")

	if !utils.HasManagerAccess(mc.DB, projectID, user.ID) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "Only managers can update members",
		})
	}

	var req UpdateMemberRequest
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

	var membership models.Membership
	err := mc.DB.First(&membership, "id = ? AND project_id = ?", c.Params("memberID"), projectID).Error
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Member not found",
		})
	}

	oldRole := membership.Role
	newRole := models.Role(req.Role)
	if oldRole == newRole {
		return c.JSON(membership)
	}

	err = mc.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&membership).Update("role", newRole).Error; err != nil {
			return err
		}
		return annotations.CleanupAssignments(tx, projectID, membership.UserID, oldRole)
	})
	if err != nil {
		mc.Logger.Printf("Error updating member %s: %v", membership.ID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to update member",
		})
	}

	membership.Role = newRole
	return c.JSON(membership)
}

// RemoveMember deletes a membership and the unfinished assignments the
// member held through it. Completed work stays attributed to them.
func (mc *MemberController) RemoveMember(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)
	projectID := c.Params("id")

	var membership models.Membership
	err := mc.DB.First(&membership, "id = ? AND project_id = ?", c.Params("memberID"), projectID).Error
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Member not found",
		})
	}

	// Members can leave on their own; removing anyone else takes a manager
	if membership.UserID != user.ID && !utils.HasManagerAccess(mc.DB, projectID, user.ID) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "Only managers can remove members",
		})
	}

	err = mc.DB.Transaction(func(tx *gorm.DB) error {
		if err := annotations.CleanupAssignments(tx, projectID, membership.UserID, membership.Role); err != nil {
			return err
		}
		return tx.Delete(&membership).Error
	})
	if err != nil {
		mc.Logger.Printf("Error removing member %s: %v", membership.ID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to remove member",
		})
	}

	return c.JSON(fiber.Map{
		"message": "Member removed",
	})
}
