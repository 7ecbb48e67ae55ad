package annotations_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskscribe/annotations"
	"taskscribe/models"
	"taskscribe/modes"
	"taskscribe/testutil"
)

// navigationSetup seeds a campaign with three annotated assignments at
// distinct creation times: one uncertain and commented, one commented
// only, one plain.
func navigationSetup(t *testing.T) (*testutil.Fixture, *models.Campaign, []*models.TaskUser) {
	t.Helper()
	fixture := newFixture(t)

	campaign, err := fixture.CreateCampaign(modes.ModeTranscription, modes.CampaignConfig{})
	require.NoError(t, err)

	base := time.Now().Add(-time.Hour)
	assignments := make([]*models.TaskUser, 0, 3)
	for i, name := range []string{"page 1", "page 2", "page 3"} {
		element, err := fixture.CreateElement(name, nil)
		require.NoError(t, err)
		task := &models.Task{
			CampaignID: campaign.ID,
			ElementID:  element.ID,
			CreatedAt:  base.Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, fixture.DB.Create(task).Error)
		assignment, err := fixture.Assign(task, &fixture.Contributor, models.TaskAnnotated)
		require.NoError(t, err)
		assignments = append(assignments, assignment)
	}

	require.NoError(t, fixture.DB.Model(assignments[0]).Update("has_uncertain_value", true).Error)
	for _, assignment := range assignments[:2] {
		comment := models.Comment{
			TaskID:   assignment.TaskID,
			AuthorID: fixture.Contributor.ID,
			Body:     "is this a 5 or a 6?",
		}
		require.NoError(t, fixture.DB.Create(&comment).Error)
	}

	return fixture, campaign, assignments
}

func assignmentIDs(assignments []models.TaskUser) []string {
	ids := make([]string, 0, len(assignments))
	for _, assignment := range assignments {
		ids = append(ids, assignment.ID)
	}
	return ids
}

func TestListAssignmentsOrder(t *testing.T) {
	fixture, campaign, assignments := navigationSetup(t)

	listed, err := annotations.ListAssignments(fixture.DB, campaign.ID, annotations.ListFilter{})
	require.NoError(t, err)
	require.Len(t, listed, 3)
	assert.Equal(t, []string{assignments[0].ID, assignments[1].ID, assignments[2].ID}, assignmentIDs(listed))
	assert.Equal(t, fixture.Contributor.Name, listed[0].User.Name, "users come preloaded")
}

func TestListAssignmentsFilters(t *testing.T) {
	fixture, campaign, assignments := navigationSetup(t)

	listed, err := annotations.ListAssignments(fixture.DB, campaign.ID, annotations.ListFilter{
		States: []models.TaskState{models.TaskAnnotated},
		UserID: fixture.Contributor.ID,
	})
	require.NoError(t, err)
	assert.Len(t, listed, 3)

	listed, err = annotations.ListAssignments(fixture.DB, campaign.ID, annotations.ListFilter{
		States: []models.TaskState{models.TaskValidated},
	})
	require.NoError(t, err)
	assert.Empty(t, listed)

	cases := []struct {
		feedback annotations.Feedback
		expected []string
	}{
		{annotations.FeedbackUncertain, []string{assignments[0].ID}},
		{annotations.FeedbackComments, []string{assignments[0].ID, assignments[1].ID}},
		{annotations.FeedbackAll, []string{assignments[0].ID}},
		{annotations.FeedbackNone, []string{assignments[2].ID}},
	}
	for _, c := range cases {
		listed, err = annotations.ListAssignments(fixture.DB, campaign.ID, annotations.ListFilter{Feedback: c.feedback})
		require.NoError(t, err)
		assert.Equal(t, c.expected, assignmentIDs(listed), string(c.feedback))
	}
}

func TestCommentsAreSharedAcrossTaskAssignments(t *testing.T) {
	fixture := newFixture(t)
	campaign, tasks := campaignWithTasks(t, fixture, "page 1")
	task := tasks[0]

	first, err := fixture.Assign(task, &fixture.Contributor, models.TaskAnnotated)
	require.NoError(t, err)
	second, err := fixture.Assign(task, &fixture.Moderator, models.TaskAnnotated)
	require.NoError(t, err)

	// A message posted by one assignee belongs to the task, so the
	// feedback filter surfaces every assignment on it.
	comment := models.Comment{
		TaskID:   task.ID,
		AuthorID: fixture.Contributor.ID,
		Body:     "the margin note is cut off",
	}
	require.NoError(t, fixture.DB.Create(&comment).Error)

	listed, err := annotations.ListAssignments(fixture.DB, campaign.ID, annotations.ListFilter{
		Feedback: annotations.FeedbackComments,
	})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{first.ID, second.ID}, assignmentIDs(listed))
}

func TestNeighbors(t *testing.T) {
	fixture, campaign, assignments := navigationSetup(t)

	previous, next, err := annotations.Neighbors(fixture.DB, campaign.ID, assignments[1], annotations.ListFilter{})
	require.NoError(t, err)
	require.NotNil(t, previous)
	require.NotNil(t, next)
	assert.Equal(t, assignments[0].ID, previous.ID)
	assert.Equal(t, assignments[2].ID, next.ID)

	previous, next, err = annotations.Neighbors(fixture.DB, campaign.ID, assignments[0], annotations.ListFilter{})
	require.NoError(t, err)
	assert.Nil(t, previous)
	require.NotNil(t, next)
	assert.Equal(t, assignments[1].ID, next.ID)

	previous, next, err = annotations.Neighbors(fixture.DB, campaign.ID, assignments[2], annotations.ListFilter{})
	require.NoError(t, err)
	require.NotNil(t, previous)
	assert.Nil(t, next)

	// Under a filter that excludes the current assignment there is no
	// position to navigate from.
	previous, next, err = annotations.Neighbors(fixture.DB, campaign.ID, assignments[2], annotations.ListFilter{
		Feedback: annotations.FeedbackUncertain,
	})
	require.NoError(t, err)
	assert.Nil(t, previous)
	assert.Nil(t, next)
}
