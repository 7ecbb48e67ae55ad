package utils

import (
	"gorm.io/gorm"

	"taskscribe/models"
)

// MemberRole returns the role of a user on a project, or false when they
// are not a member.
func MemberRole(db *gorm.DB, projectID, userID string) (models.Role, bool) {
	var membership models.Membership
	err := db.Where("project_id = ? AND user_id = ?", projectID, userID).
		First(&membership).Error
	if err != nil {
		return "", false
	}
	return membership.Role, true
}

// HasAccess reports whether a user can see a project: members always can,
// anyone can on public projects.
func HasAccess(db *gorm.DB, project *models.Project, userID string) bool {
	if project.Public {
		return true
	}
	_, ok := MemberRole(db, project.ID, userID)
	return ok
}

// HasAdminAccess reports whether a user moderates or manages the project.
func HasAdminAccess(db *gorm.DB, projectID, userID string) bool {
	role, ok := MemberRole(db, projectID, userID)
	if !ok {
		return false
	}
	for _, admin := range models.AdminRoles {
		if role == admin {
			return true
		}
	}
	return false
}

// HasManagerAccess reports whether a user manages the project.
func HasManagerAccess(db *gorm.DB, projectID, userID string) bool {
	role, ok := MemberRole(db, projectID, userID)
	return ok && role == models.RoleManager
}

// ManagerEmails lists the email addresses of a project's managers.
func ManagerEmails(db *gorm.DB, projectID string) ([]string, error) {
	var emails []string
	err := db.Model(&models.Membership{}).
		Joins("JOIN users ON users.id = memberships.user_id").
		Where("memberships.project_id = ? AND memberships.role = ?", projectID, models.RoleManager).
		Pluck("users.email", &emails).Error
	return emails, err
}
