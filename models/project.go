package models

import (
	"crypto/rand"
	"encoding/base64"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Role of a member on a project.
type Role string

const (
	RoleContributor Role = "contributor"
	RoleModerator   Role = "moderator"
	RoleManager     Role = "manager"
)

// AdminRoles are the roles granting moderation and management pages.
var AdminRoles = []Role{RoleModerator, RoleManager}

// Project is a workspace owning elements, campaigns and memberships.
type Project struct {
	ID          string `gorm:"primaryKey;size:36" json:"id"`
	Name        string `gorm:"uniqueIndex;not null" json:"name"`
	Description string `json:"description"`
	Public      bool   `gorm:"default:false" json:"public"`

	// Token shared with invited users to let them join the project
	InviteToken string `gorm:"uniqueIndex;not null" json:"-"`

	ProviderID *string   `gorm:"index" json:"provider_id"`
	Provider   *Provider `json:"provider,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Memberships []Membership `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Campaigns   []Campaign   `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Elements    []Element    `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}

func (p *Project) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.InviteToken == "" {
		p.InviteToken = generateToken()
	}
	return nil
}

func generateToken() string {
	raw := make([]byte, 16)
	if _, err := rand.Read(raw); err != nil {
		return uuid.NewString()
	}
	return base64.RawURLEncoding.EncodeToString(raw)
}

// Membership links a user to a project with a role.
type Membership struct {
	ID        string  `gorm:"primaryKey;size:36" json:"id"`
	UserID    string  `gorm:"size:36;not null;uniqueIndex:idx_membership_project_user" json:"user_id"`
	User      User    `json:"user,omitempty"`
	ProjectID string  `gorm:"size:36;not null;uniqueIndex:idx_membership_project_user" json:"project_id"`
	Project   Project `json:"-"`
	Role      Role    `gorm:"not null;default:'contributor'" json:"role"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (m *Membership) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return nil
}

// ProviderType identifies the kind of content provider.
type ProviderType string

const (
	ProviderArkindex ProviderType = "arkindex"
	ProviderIIIF     ProviderType = "iiif"
)

// Provider is an external content source seeding elements with images,
// transcriptions and entities.
type Provider struct {
	ID       string       `gorm:"primaryKey;size:36" json:"id"`
	Name     string       `gorm:"uniqueIndex;not null" json:"name"`
	Type     ProviderType `gorm:"not null;default:'arkindex'" json:"type"`
	APIURL   string       `gorm:"uniqueIndex;not null" json:"api_url"`
	APIToken string       `gorm:"not null" json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (p *Provider) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}

// ElementType describes a kind of element in a project's tree (page,
// paragraph, folder...).
type ElementType struct {
	ID        string  `gorm:"primaryKey;size:36" json:"id"`
	ProjectID string  `gorm:"size:36;not null;index" json:"project_id"`
	Project   Project `json:"-"`
	Name      string  `gorm:"not null" json:"name"`
	Folder    bool    `gorm:"default:false" json:"folder"`

	CreatedAt time.Time `json:"created_at"`
}

func (t *ElementType) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	return nil
}

// Class is a classification label imported from the provider.
type Class struct {
	ID               string  `gorm:"primaryKey;size:36" json:"id"`
	ProjectID        string  `gorm:"size:36;not null;index" json:"project_id"`
	Project          Project `json:"-"`
	Name             string  `gorm:"not null" json:"name"`
	ProviderObjectID string  `json:"provider_object_id"`

	CreatedAt time.Time `json:"created_at"`
}

func (c *Class) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}

// Authority is a controlled vocabulary usable by entity form fields.
type Authority struct {
	ID          string `gorm:"primaryKey;size:36" json:"id"`
	Name        string `gorm:"uniqueIndex;not null" json:"name"`
	Description string `json:"description"`

	Values []AuthorityValue `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}

func (a *Authority) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return nil
}

// AuthorityValue is one allowed value of an authority.
type AuthorityValue struct {
	ID          string    `gorm:"primaryKey;size:36" json:"id"`
	AuthorityID string    `gorm:"size:36;not null;index" json:"authority_id"`
	Authority   Authority `json:"-"`
	Value       string    `gorm:"not null" json:"value"`
}

func (v *AuthorityValue) BeforeCreate(tx *gorm.DB) error {
	if v.ID == "" {
		v.ID = uuid.NewString()
	}
	return nil
}
