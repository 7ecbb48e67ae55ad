package models_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskscribe/models"
	"taskscribe/modes"
	"taskscribe/testutil"
)

func TestElementOrderAssignment(t *testing.T) {
	db, err := testutil.NewInMemoryDB()
	require.NoError(t, err)
	fixture, err := testutil.NewFixture(db)
	require.NoError(t, err)

	var roots []*models.Element
	for _, name := range []string{"page 1", "page 2", "page 3"} {
		element, err := fixture.CreateElement(name, nil)
		require.NoError(t, err)
		roots = append(roots, element)
	}
	for i, element := range roots {
		require.NotNil(t, element.Order)
		assert.Equal(t, i, *element.Order, element.Name)
	}

	// Each parent numbers its children independently
	for parent := 0; parent < 2; parent++ {
		for line := 0; line < 2; line++ {
			child, err := fixture.CreateElement("line", &roots[parent].ID)
			require.NoError(t, err)
			require.NotNil(t, child.Order)
			assert.Equal(t, line, *child.Order)
		}
	}

	// An explicit order is never overwritten
	five := 5
	explicit := models.Element{
		ProjectID: fixture.Project.ID,
		Name:      "out of sequence",
		TypeID:    fixture.PageType.ID,
		Order:     &five,
	}
	require.NoError(t, db.Create(&explicit).Error)
	assert.Equal(t, 5, *explicit.Order)
}

func TestTaskValidate(t *testing.T) {
	db, err := testutil.NewInMemoryDB()
	require.NoError(t, err)
	fixture, err := testutil.NewFixture(db)
	require.NoError(t, err)

	campaign, err := fixture.CreateCampaign(modes.ModeElements, modes.CampaignConfig{})
	require.NoError(t, err)
	element, err := fixture.CreateElement("page 1", nil)
	require.NoError(t, err)

	task := models.Task{CampaignID: campaign.ID, ElementID: element.ID}
	require.ErrorIs(t, task.Validate(campaign, element), models.ErrInvalidTask,
		"element delineation needs an image")

	image := models.Image{IIIFURL: "https://iiif.example.com/page1", Width: 800, Height: 600}
	require.NoError(t, db.Create(&image).Error)
	require.NoError(t, db.Model(element).Update("image_id", image.ID).Error)
	element.ImageID = &image.ID
	require.NoError(t, task.Validate(campaign, element))

	other := models.Project{Name: "Elsewhere"}
	require.NoError(t, db.Create(&other).Error)
	foreign := models.Element{ProjectID: other.ID, Name: "foreign", TypeID: fixture.PageType.ID, ImageID: &image.ID}
	require.NoError(t, db.Create(&foreign).Error)
	require.ErrorIs(t, task.Validate(campaign, &foreign), models.ErrInvalidTask)
}
