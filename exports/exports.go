package exports

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"taskscribe/annotations"
	"taskscribe/models"
	"taskscribe/modes"
)

// ErrEmptyExport is returned when none of a campaign's assignments could
// be turned into a row.
var ErrEmptyExport = errors.New("no annotation could be exported")

// Exporter projects a campaign's completed assignments into tabular rows.
type Exporter struct {
	DB     *gorm.DB
	Logger *log.Logger
}

var baseColumns = []string{"task_id", "element_id", "element_name", "annotator", "state", "created"}

// Header returns the column names of a campaign's export. The base
// columns identify the assignment; the mode appends its own.
func (e *Exporter) Header(campaign *models.Campaign) []string {
	header := append([]string{}, baseColumns...)

	switch campaign.Mode {
	case modes.ModeTranscription:
		header = append(header, "text", "uncertain")
	case modes.ModeClassification:
		header = append(header, "class_id", "class_provider_id", "class_name")
	case modes.ModeEntityForm:
		for _, flat := range campaign.Configuration.FlattenFields() {
			label := flat.Field.Instruction
			if flat.Group != "" {
				label = fmt.Sprintf("%s / %s", flat.Group, flat.Field.Instruction)
			}
			header = append(header, label)
		}
	case modes.ModeEntity:
		header = append(header, "entities")
	case modes.ModeElements:
		header = append(header, "elements")
	case modes.ModeElementGroup:
		header = append(header, "groups")
	}
	return header
}

// Row projects one assignment into a row matching Header. The latest
// annotation of the chain is the exported one.
func (e *Exporter) Row(campaign *models.Campaign, assignment *models.TaskUser) ([]string, error) {
	var task models.Task
	if err := e.DB.Preload("Element").First(&task, "id = ?", assignment.TaskID).Error; err != nil {
		return nil, err
	}
	var annotator models.User
	if err := e.DB.First(&annotator, "id = ?", assignment.UserID).Error; err != nil {
		return nil, err
	}

	latest, err := annotations.LatestAnnotation(e.DB, assignment.ID)
	if err != nil {
		return nil, err
	}
	value, err := modes.FromMap(campaign.Mode, latest.Value)
	if err != nil {
		return nil, err
	}

	row := []string{
		task.ID,
		task.ElementID,
		task.Element.Name,
		annotator.Email,
		string(assignment.State),
		latest.CreatedAt.UTC().Format("2006-01-02 15:04:05"),
	}

	switch campaign.Mode {
	case modes.ModeTranscription:
		text, uncertain, err := e.transcriptionCells(campaign, &task, value)
		if err != nil {
			return nil, err
		}
		row = append(row, text, uncertain)
	case modes.ModeClassification:
		cells, err := e.classCells(value.Classification)
		if err != nil {
			return nil, err
		}
		row = append(row, cells...)
	case modes.ModeEntityForm:
		row = append(row, fieldCells(campaign.Configuration, value)...)
	case modes.ModeEntity:
		row = append(row, strconv.Itoa(len(value.Entities)))
	case modes.ModeElements:
		row = append(row, strconv.Itoa(len(value.Elements)))
	case modes.ModeElementGroup:
		row = append(row, strconv.Itoa(len(value.Groups)))
	}
	return row, nil
}

// transcriptionCells joins the non-empty transcription entries in the
// configured element order, one line per element. Entries on elements no
// longer in the configuration are appended last so no text is lost.
func (e *Exporter) transcriptionCells(campaign *models.Campaign, task *models.Task, value modes.Value) (string, string, error) {
	var element models.Element
	if err := e.DB.First(&element, "id = ?", task.ElementID).Error; err != nil {
		return "", "", err
	}
	ctx, err := annotations.BuildValidationContext(e.DB, campaign, &element)
	if err != nil {
		return "", "", err
	}

	var lines []string
	uncertain := false
	seen := map[string]bool{}
	appendEntry := func(entry modes.TranscriptionEntry) {
		if entry.Text != "" {
			lines = append(lines, entry.Text)
		}
		uncertain = uncertain || entry.Uncertain
	}

	for _, elementID := range ctx.ConfiguredElementIDs {
		if entry, ok := value.Transcription[elementID]; ok {
			seen[elementID] = true
			appendEntry(entry)
		}
	}
	for elementID, entry := range value.Transcription {
		if !seen[elementID] {
			appendEntry(entry)
		}
	}

	return strings.Join(lines, "\n"), fmt.Sprintf("%t", uncertain), nil
}

func (e *Exporter) classCells(classID string) ([]string, error) {
	var class models.Class
	err := e.DB.First(&class, "id = ?", classID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		// The class was deleted after the annotation was written; keep
		// the id so the row still carries the information.
		return []string{classID, "", ""}, nil
	}
	if err != nil {
		return nil, err
	}
	return []string{class.ID, class.ProviderObjectID, class.Name}, nil
}

// fieldCells emits one cell per configured field, in header order. Values
// not matching any configured field are dropped from the table, as there
// is no column to hold them.
func fieldCells(cfg modes.CampaignConfig, value modes.Value) []string {
	flattened := cfg.FlattenFields()
	cells := make([]string, 0, len(flattened))
	for _, flat := range flattened {
		cell := ""
		for _, filled := range value.Fields {
			if filled.EntityType == flat.Field.EntityType && filled.Instruction == flat.Field.Instruction {
				if filled.Value != nil {
					cell = *filled.Value
				}
				break
			}
		}
		cells = append(cells, cell)
	}
	return cells
}

