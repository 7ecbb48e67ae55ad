package exports_test

import (
	"bytes"
	"encoding/csv"
	"io"
	"os"
	"testing"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskscribe/annotations"
	"taskscribe/exports"
	"taskscribe/models"
	"taskscribe/modes"
	"taskscribe/testutil"
)

func newExporter(t *testing.T) (*exports.Exporter, *testutil.Fixture) {
	t.Helper()
	db, err := testutil.NewInMemoryDB()
	require.NoError(t, err)
	fixture, err := testutil.NewFixture(db)
	require.NoError(t, err)

	logger := log.New()
	logger.SetOutput(io.Discard)
	return &exports.Exporter{DB: db, Logger: logger}, fixture
}

func annotate(t *testing.T, fixture *testutil.Fixture, assignment *models.TaskUser, value map[string]interface{}) {
	t.Helper()
	annotation := &models.Annotation{
		UserTaskID: assignment.ID,
		Value:      value,
		Published:  true,
	}
	require.NoError(t, annotations.CreateAnnotation(fixture.DB, annotation))
}

func TestHeader(t *testing.T) {
	exporter, _ := newExporter(t)

	transcription := &models.Campaign{Mode: modes.ModeTranscription}
	assert.Equal(t,
		[]string{"task_id", "element_id", "element_name", "annotator", "state", "created", "text", "uncertain"},
		exporter.Header(transcription))

	classification := &models.Campaign{Mode: modes.ModeClassification}
	assert.Equal(t, []string{"class_id", "class_provider_id", "class_name"}, exporter.Header(classification)[6:])

	form := &models.Campaign{
		Mode: modes.ModeEntityForm,
		Configuration: modes.CampaignConfig{Fields: []modes.FieldConfig{
			{Legend: "Identity", Mode: modes.FieldGroupMode, Fields: []modes.FieldConfig{
				{EntityType: "name", Instruction: "Last name"},
				{EntityType: "name", Instruction: "First name"},
			}},
			{EntityType: "place", Instruction: "Birth place"},
		}},
	}
	header := exporter.Header(form)
	assert.Equal(t, []string{"Identity / Last name", "Identity / First name", "Birth place"}, header[6:])
}

func TestRunTranscriptionCSV(t *testing.T) {
	exporter, fixture := newExporter(t)

	campaign, err := fixture.CreateCampaign(modes.ModeTranscription, modes.CampaignConfig{})
	require.NoError(t, err)
	element, err := fixture.CreateElement("page 1", nil)
	require.NoError(t, err)
	task, err := fixture.CreateTask(campaign, element)
	require.NoError(t, err)
	assignment, err := fixture.Assign(task, &fixture.Contributor, models.TaskAnnotated)
	require.NoError(t, err)
	annotate(t, fixture, assignment, map[string]interface{}{
		"transcription": map[string]interface{}{
			element.ID: map[string]interface{}{"text": "In the year 1852", "uncertain": true},
		},
	})

	// Pending assignments never show up in the export
	other, err := fixture.CreateElement("page 2", nil)
	require.NoError(t, err)
	pendingTask, err := fixture.CreateTask(campaign, other)
	require.NoError(t, err)
	_, err = fixture.Assign(pendingTask, &fixture.Moderator, models.TaskPending)
	require.NoError(t, err)

	var buffer bytes.Buffer
	count, err := exporter.Run(campaign, &buffer)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	records, err := csv.NewReader(&buffer).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)

	row := records[1]
	assert.Equal(t, task.ID, row[0])
	assert.Equal(t, element.ID, row[1])
	assert.Equal(t, "page 1", row[2])
	assert.Equal(t, fixture.Contributor.Email, row[3])
	assert.Equal(t, "annotated", row[4])
	assert.Equal(t, "In the year 1852", row[6])
	assert.Equal(t, "true", row[7])
}

func TestRunSkipsBrokenRows(t *testing.T) {
	exporter, fixture := newExporter(t)

	campaign, err := fixture.CreateCampaign(modes.ModeTranscription, modes.CampaignConfig{})
	require.NoError(t, err)

	good, err := fixture.CreateElement("page 1", nil)
	require.NoError(t, err)
	goodTask, err := fixture.CreateTask(campaign, good)
	require.NoError(t, err)
	goodAssignment, err := fixture.Assign(goodTask, &fixture.Contributor, models.TaskAnnotated)
	require.NoError(t, err)
	annotate(t, fixture, goodAssignment, map[string]interface{}{
		"transcription": map[string]interface{}{
			good.ID: map[string]interface{}{"text": "fine", "uncertain": false},
		},
	})

	bad, err := fixture.CreateElement("page 2", nil)
	require.NoError(t, err)
	badTask, err := fixture.CreateTask(campaign, bad)
	require.NoError(t, err)
	badAssignment, err := fixture.Assign(badTask, &fixture.Moderator, models.TaskAnnotated)
	require.NoError(t, err)
	annotate(t, fixture, badAssignment, map[string]interface{}{
		"transcription": "not a mapping",
	})

	var buffer bytes.Buffer
	count, err := exporter.Run(campaign, &buffer)
	require.NoError(t, err)
	assert.Equal(t, 1, count, "the corrupt chain is skipped, not fatal")
}

func TestRunEmptyExport(t *testing.T) {
	exporter, fixture := newExporter(t)

	campaign, err := fixture.CreateCampaign(modes.ModeTranscription, modes.CampaignConfig{})
	require.NoError(t, err)

	var buffer bytes.Buffer
	_, err = exporter.Run(campaign, &buffer)
	require.ErrorIs(t, err, exports.ErrEmptyExport)
}

func TestRowClassification(t *testing.T) {
	exporter, fixture := newExporter(t)

	class := models.Class{ProjectID: fixture.Project.ID, Name: "marriage record", ProviderObjectID: "prov-42"}
	require.NoError(t, fixture.DB.Create(&class).Error)

	campaign, err := fixture.CreateCampaign(modes.ModeClassification, modes.CampaignConfig{})
	require.NoError(t, err)
	element, err := fixture.CreateElement("page 1", nil)
	require.NoError(t, err)
	task, err := fixture.CreateTask(campaign, element)
	require.NoError(t, err)
	assignment, err := fixture.Assign(task, &fixture.Contributor, models.TaskAnnotated)
	require.NoError(t, err)
	annotate(t, fixture, assignment, map[string]interface{}{"classification": class.ID})

	row, err := exporter.Row(campaign, assignment)
	require.NoError(t, err)
	assert.Equal(t, []string{class.ID, "prov-42", "marriage record"}, row[6:])

	// A class deleted after annotation keeps its id in the export
	require.NoError(t, fixture.DB.Delete(&class).Error)
	row, err = exporter.Row(campaign, assignment)
	require.NoError(t, err)
	assert.Equal(t, []string{class.ID, "", ""}, row[6:])
}

func TestRowEntityForm(t *testing.T) {
	exporter, fixture := newExporter(t)

	cfg := modes.CampaignConfig{Fields: []modes.FieldConfig{
		{EntityType: "name", Instruction: "Last name"},
		{EntityType: "place", Instruction: "Birth place"},
	}}
	campaign, err := fixture.CreateCampaign(modes.ModeEntityForm, cfg)
	require.NoError(t, err)
	element, err := fixture.CreateElement("record 1", nil)
	require.NoError(t, err)
	task, err := fixture.CreateTask(campaign, element)
	require.NoError(t, err)
	assignment, err := fixture.Assign(task, &fixture.Contributor, models.TaskAnnotated)
	require.NoError(t, err)
	annotate(t, fixture, assignment, map[string]interface{}{
		"values": []interface{}{
			map[string]interface{}{"entity_type": "name", "instruction": "Last name", "value": "Durand"},
		},
	})

	row, err := exporter.Row(campaign, assignment)
	require.NoError(t, err)
	assert.Equal(t, []string{"Durand", ""}, row[6:], "unfilled fields emit empty cells")
}

func TestRunToFile(t *testing.T) {
	exporter, fixture := newExporter(t)

	campaign, err := fixture.CreateCampaign(modes.ModeTranscription, modes.CampaignConfig{})
	require.NoError(t, err)
	element, err := fixture.CreateElement("page 1", nil)
	require.NoError(t, err)
	task, err := fixture.CreateTask(campaign, element)
	require.NoError(t, err)
	assignment, err := fixture.Assign(task, &fixture.Contributor, models.TaskAnnotated)
	require.NoError(t, err)
	annotate(t, fixture, assignment, map[string]interface{}{
		"transcription": map[string]interface{}{
			element.ID: map[string]interface{}{"text": "fine", "uncertain": false},
		},
	})

	path, count, err := exporter.RunToFile(campaign, t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	_, err = os.Stat(path)
	require.NoError(t, err)

	empty, err := fixture.CreateCampaign(modes.ModeClassification, modes.CampaignConfig{})
	require.NoError(t, err)
	dir := t.TempDir()
	_, _, err = exporter.RunToFile(empty, dir)
	require.ErrorIs(t, err, exports.ErrEmptyExport)
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "failed exports leave no file behind")
}
