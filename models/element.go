package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"taskscribe/modes"
)

// TextOrientation of an element's transcription.
type TextOrientation string

const (
	OrientationHorizontalLR TextOrientation = "horizontal-lr"
	OrientationHorizontalRL TextOrientation = "horizontal-rl"
	OrientationVerticalLR   TextOrientation = "vertical-lr"
	OrientationVerticalRL   TextOrientation = "vertical-rl"
)

// Image backs one or more elements with a IIIF endpoint.
type Image struct {
	ID      string `gorm:"primaryKey;size:36" json:"id"`
	IIIFURL string `gorm:"uniqueIndex;not null" json:"iiif_url"`
	Width   int    `gorm:"not null" json:"width"`
	Height  int    `gorm:"not null" json:"height"`

	CreatedAt time.Time `json:"created_at"`
}

func (i *Image) BeforeCreate(tx *gorm.DB) error {
	if i.ID == "" {
		i.ID = uuid.NewString()
	}
	return nil
}

// Element is a node of a project's document tree, usually imported from
// the content provider together with its image, transcription and
// entities.
type Element struct {
	ID        string  `gorm:"primaryKey;size:36" json:"id"`
	ProjectID string  `gorm:"size:36;not null;index" json:"project_id"`
	Project   Project `json:"-"`
	Name      string  `gorm:"not null" json:"name"`

	TypeID string      `gorm:"size:36;not null;index" json:"type_id"`
	Type   ElementType `json:"type,omitempty"`

	ParentID *string  `gorm:"size:36;index" json:"parent_id"`
	Parent   *Element `json:"-"`

	// Position among siblings, assigned on creation when left unset
	Order *int `gorm:"column:order;index" json:"order"`

	ImageID *string       `gorm:"size:36;index" json:"image_id"`
	Image   *Image        `json:"image,omitempty"`
	Polygon modes.Polygon `gorm:"type:jsonb;serializer:json" json:"polygon"`

	TextOrientation TextOrientation `gorm:"default:'horizontal-lr'" json:"text_orientation"`

	ProviderObjectID string `gorm:"index" json:"provider_object_id"`

	// Provider payloads used to pre-fill annotation forms
	ImportedTranscription *ImportedTranscription `gorm:"type:jsonb;serializer:json" json:"imported_transcription,omitempty"`
	ImportedEntities      []ImportedEntity       `gorm:"type:jsonb;serializer:json" json:"imported_entities,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ImportedTranscription is the provider transcription stored on an element.
type ImportedTranscription struct {
	Text       string   `json:"text"`
	Confidence *float64 `json:"confidence,omitempty"`
}

// ImportedEntity is a provider entity stored on an element.
type ImportedEntity struct {
	Type       string   `json:"type"`
	Name       string   `json:"name"`
	Offset     int      `json:"offset"`
	Length     int      `json:"length"`
	Confidence *float64 `json:"confidence,omitempty"`
}

// BeforeCreate assigns the element an id and, when no explicit order was
// given, the next free position among its siblings.
func (e *Element) BeforeCreate(tx *gorm.DB) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Order != nil {
		return nil
	}

	query := tx.Model(&Element{}).Where("project_id = ?", e.ProjectID)
	if e.ParentID == nil {
		query = query.Where("parent_id IS NULL")
	} else {
		query = query.Where("parent_id = ?", *e.ParentID)
	}

	var max *int
	if err := query.Select(`MAX("order")`).Scan(&max).Error; err != nil {
		return err
	}
	next := 0
	if max != nil {
		next = *max + 1
	}
	e.Order = &next
	return nil
}
