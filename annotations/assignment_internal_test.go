package annotations

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskscribe/models"
	"taskscribe/modes"
	"taskscribe/testutil"
)

// The candidate query counts occupancy on a snapshot that can go stale
// while the transaction waits on row locks, so the insert loop counts
// again right before claiming each task. This covers the recount.
func TestTaskAtCapacity(t *testing.T) {
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

	full, err := taskAtCapacity(db, campaign, task.ID)
	require.NoError(t, err)
	assert.False(t, full)

	// Previews never count against the quota.
	preview := models.TaskUser{
		TaskID:    task.ID,
		UserID:    fixture.Manager.ID,
		State:     models.TaskPending,
		IsPreview: true,
	}
	require.NoError(t, db.Create(&preview).Error)
	full, err = taskAtCapacity(db, campaign, task.ID)
	require.NoError(t, err)
	assert.False(t, full)

	// A claim committed by another contributor takes the task's only slot.
	_, err = fixture.Assign(task, &fixture.Moderator, models.TaskPending)
	require.NoError(t, err)
	full, err = taskAtCapacity(db, campaign, task.ID)
	require.NoError(t, err)
	assert.True(t, full)
}
