package models_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskscribe/models"
	"taskscribe/modes"
	"taskscribe/testutil"
)

func TestTaskUserDefaultState(t *testing.T) {
	db, err := testutil.NewInMemoryDB()
	require.NoError(t, err)
	fixture, err := testutil.NewFixture(db)
	require.NoError(t, err)

	campaign, err := fixture.CreateCampaign(modes.ModeTranscription, modes.CampaignConfig{})
	require.NoError(t, err)
	element, err := fixture.CreateElement("page 1", nil)
	require.NoError(t, err)
	task, err := fixture.CreateTask(campaign, element)
	require.NoError(t, err)

	// An assignment created without a state starts as a draft.
	assignment := models.TaskUser{TaskID: task.ID, UserID: fixture.Contributor.ID}
	require.NoError(t, db.Create(&assignment).Error)

	var stored models.TaskUser
	require.NoError(t, db.First(&stored, "id = ?", assignment.ID).Error)
	assert.Equal(t, models.TaskDraft, stored.State)
}
