package annotations_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskscribe/annotations"
	"taskscribe/models"
	"taskscribe/modes"
	"taskscribe/testutil"
)

// campaignWithTasks seeds a campaign with one task per named element, in
// element order.
func campaignWithTasks(t *testing.T, fixture *testutil.Fixture, names ...string) (*models.Campaign, []*models.Task) {
	t.Helper()
	campaign, err := fixture.CreateCampaign(modes.ModeTranscription, modes.CampaignConfig{})
	require.NoError(t, err)

	tasks := make([]*models.Task, 0, len(names))
	for _, name := range names {
		element, err := fixture.CreateElement(name, nil)
		require.NoError(t, err)
		task, err := fixture.CreateTask(campaign, element)
		require.NoError(t, err)
		tasks = append(tasks, task)
	}
	return campaign, tasks
}

func newFixture(t *testing.T) *testutil.Fixture {
	t.Helper()
	db, err := testutil.NewInMemoryDB()
	require.NoError(t, err)
	fixture, err := testutil.NewFixture(db)
	require.NoError(t, err)
	return fixture
}

func TestJoinAssignsInSequentialOrder(t *testing.T) {
	fixture := newFixture(t)
	campaign, tasks := campaignWithTasks(t, fixture, "page 1", "page 2", "page 3")
	require.NoError(t, fixture.DB.Model(campaign).Update("nb_tasks_auto_assignment", 2).Error)

	result, err := annotations.Join(fixture.DB, campaign.ID, fixture.Contributor.ID, annotations.JoinOptions{})
	require.NoError(t, err)
	require.Len(t, result.Assigned, 2)
	assert.Equal(t, tasks[0].ID, result.Assigned[0].TaskID)
	assert.Equal(t, tasks[1].ID, result.Assigned[1].TaskID)
	assert.Equal(t, models.TaskPending, result.Assigned[0].State)
	assert.False(t, result.Exhausted, "one task remains")

	var events int64
	require.NoError(t, fixture.DB.Model(&models.ActivityEvent{}).
		Where("kind = ? AND campaign_id = ?", models.ActivityJoined, campaign.ID).
		Count(&events).Error)
	assert.EqualValues(t, 1, events)
}

func TestJoinRefusedWhileTasksRemainUnfinished(t *testing.T) {
	fixture := newFixture(t)
	campaign, _ := campaignWithTasks(t, fixture, "page 1", "page 2")
	require.NoError(t, fixture.DB.Model(campaign).Update("nb_tasks_auto_assignment", 1).Error)

	_, err := annotations.Join(fixture.DB, campaign.ID, fixture.Contributor.ID, annotations.JoinOptions{})
	require.NoError(t, err)

	_, err = annotations.Join(fixture.DB, campaign.ID, fixture.Contributor.ID, annotations.JoinOptions{})
	require.ErrorIs(t, err, annotations.ErrAlreadyHasPendingTasks)
}

func TestJoinSkipsFullTasks(t *testing.T) {
	fixture := newFixture(t)
	campaign, tasks := campaignWithTasks(t, fixture, "page 1", "page 2")

	// MaxUserTasks is 1: a task already held by someone else is full.
	_, err := fixture.Assign(tasks[0], &fixture.Moderator, models.TaskAnnotated)
	require.NoError(t, err)

	result, err := annotations.Join(fixture.DB, campaign.ID, fixture.Contributor.ID, annotations.JoinOptions{})
	require.NoError(t, err)
	require.Len(t, result.Assigned, 1)
	assert.Equal(t, tasks[1].ID, result.Assigned[0].TaskID)
	assert.True(t, result.Exhausted)
}

func TestJoinIgnoresPreviewOccupancy(t *testing.T) {
	fixture := newFixture(t)
	campaign, tasks := campaignWithTasks(t, fixture, "page 1")

	preview, err := annotations.AssignTask(fixture.DB, tasks[0], fixture.Manager.ID, true)
	require.NoError(t, err)
	require.True(t, preview.IsPreview)

	result, err := annotations.Join(fixture.DB, campaign.ID, fixture.Contributor.ID, annotations.JoinOptions{})
	require.NoError(t, err)
	require.Len(t, result.Assigned, 1, "previews never count against the quota")
}

func TestJoinSpecificTask(t *testing.T) {
	fixture := newFixture(t)
	campaign, tasks := campaignWithTasks(t, fixture, "page 1", "page 2")

	result, err := annotations.Join(fixture.DB, campaign.ID, fixture.Contributor.ID, annotations.JoinOptions{TaskID: tasks[1].ID})
	require.NoError(t, err)
	require.Len(t, result.Assigned, 1)
	assert.Equal(t, tasks[1].ID, result.Assigned[0].TaskID)
}

func TestJoinErrors(t *testing.T) {
	fixture := newFixture(t)
	campaign, _ := campaignWithTasks(t, fixture, "page 1")

	require.NoError(t, fixture.DB.Model(campaign).Update("state", models.CampaignClosed).Error)
	_, err := annotations.Join(fixture.DB, campaign.ID, fixture.Contributor.ID, annotations.JoinOptions{})
	require.ErrorIs(t, err, annotations.ErrCampaignClosed)

	require.NoError(t, fixture.DB.Model(campaign).Update("state", models.CampaignRunning).Error)
	require.NoError(t, fixture.DB.Model(campaign).Update("nb_tasks_auto_assignment", 0).Error)
	_, err = annotations.Join(fixture.DB, campaign.ID, fixture.Contributor.ID, annotations.JoinOptions{})
	require.ErrorIs(t, err, annotations.ErrNoAutoAssignment)

	empty, err := fixture.CreateCampaign(modes.ModeTranscription, modes.CampaignConfig{})
	require.NoError(t, err)
	_, err = annotations.Join(fixture.DB, empty.ID, fixture.Contributor.ID, annotations.JoinOptions{})
	require.ErrorIs(t, err, annotations.ErrNoAvailableTasks)
}

func TestJoinAllowedWithManagerDealtDrafts(t *testing.T) {
	fixture := newFixture(t)
	campaign, tasks := campaignWithTasks(t, fixture, "page 1", "page 2")

	// Draft assignments dealt by a manager before publication are not the
	// contributor's own backlog and must not block a join.
	_, err := fixture.Assign(tasks[0], &fixture.Contributor, models.TaskDraft)
	require.NoError(t, err)

	result, err := annotations.Join(fixture.DB, campaign.ID, fixture.Contributor.ID, annotations.JoinOptions{})
	require.NoError(t, err)
	require.Len(t, result.Assigned, 1)
	assert.Equal(t, tasks[1].ID, result.Assigned[0].TaskID)
}

func TestJoinRefusesNonContributorMembers(t *testing.T) {
	fixture := newFixture(t)
	campaign, _ := campaignWithTasks(t, fixture, "page 1")

	for _, user := range []*models.User{&fixture.Manager, &fixture.Moderator} {
		_, err := annotations.Join(fixture.DB, campaign.ID, user.ID, annotations.JoinOptions{})
		require.ErrorIs(t, err, annotations.ErrNotAContributor)

		var held int64
		require.NoError(t, fixture.DB.Model(&models.TaskUser{}).
			Where("user_id = ?", user.ID).
			Count(&held).Error)
		assert.Zero(t, held, "no tasks handed out on a refused join")
	}
}

func TestJoinExhaustedCountsOtherUsersCapacity(t *testing.T) {
	fixture := newFixture(t)
	campaign, _ := campaignWithTasks(t, fixture, "page 1")
	require.NoError(t, fixture.DB.Model(campaign).Update("max_user_tasks", 2).Error)

	// The joiner takes one of the task's two slots; the other is still
	// open to a different contributor, so the campaign is not exhausted.
	result, err := annotations.Join(fixture.DB, campaign.ID, fixture.Contributor.ID, annotations.JoinOptions{})
	require.NoError(t, err)
	require.Len(t, result.Assigned, 1)
	assert.False(t, result.Exhausted)
}

func TestJoinCreatesContributorMembership(t *testing.T) {
	fixture := newFixture(t)
	campaign, _ := campaignWithTasks(t, fixture, "page 1")

	outsider := models.User{Name: "newcomer", Email: "newcomer@example.com", PasswordHash: "x"}
	require.NoError(t, fixture.DB.Create(&outsider).Error)

	_, err := annotations.Join(fixture.DB, campaign.ID, outsider.ID, annotations.JoinOptions{})
	require.NoError(t, err)

	var membership models.Membership
	require.NoError(t, fixture.DB.First(&membership, "project_id = ? AND user_id = ?", fixture.Project.ID, outsider.ID).Error)
	assert.Equal(t, models.RoleContributor, membership.Role)
}

func TestJoinStartsCreatedCampaign(t *testing.T) {
	fixture := newFixture(t)
	campaign, _ := campaignWithTasks(t, fixture, "page 1")
	require.NoError(t, fixture.DB.Model(campaign).Update("state", models.CampaignCreated).Error)

	_, err := annotations.Join(fixture.DB, campaign.ID, fixture.Contributor.ID, annotations.JoinOptions{})
	require.NoError(t, err)

	var stored models.Campaign
	require.NoError(t, fixture.DB.First(&stored, "id = ?", campaign.ID).Error)
	assert.Equal(t, models.CampaignRunning, stored.State)
}

func TestAssignTask(t *testing.T) {
	fixture := newFixture(t)
	campaign, tasks := campaignWithTasks(t, fixture, "page 1", "page 2")

	assignment, err := annotations.AssignTask(fixture.DB, tasks[0], fixture.Contributor.ID, false)
	require.NoError(t, err)
	assert.Equal(t, models.TaskPending, assignment.State)

	// Assignments on an unpublished campaign wait as drafts
	require.NoError(t, fixture.DB.Model(campaign).Update("state", models.CampaignCreated).Error)
	draft, err := annotations.AssignTask(fixture.DB, tasks[1], fixture.Contributor.ID, false)
	require.NoError(t, err)
	assert.Equal(t, models.TaskDraft, draft.State)

	outsider := models.User{Name: "outsider", Email: "outsider@example.com", PasswordHash: "x"}
	require.NoError(t, fixture.DB.Create(&outsider).Error)
	_, err = annotations.AssignTask(fixture.DB, tasks[0], outsider.ID, false)
	require.ErrorIs(t, err, models.ErrNotAMember)
}
