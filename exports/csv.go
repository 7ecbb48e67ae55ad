package exports

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"

	log "github.com/sirupsen/logrus"

	"taskscribe/annotations"
	"taskscribe/models"
)

// exportedStates are the assignment states included in an export. Skipped
// and rejected assignments carry no work worth projecting.
var exportedStates = []models.TaskState{models.TaskAnnotated, models.TaskValidated}

// Run writes the campaign's export as CSV. Assignments that cannot be
// projected are logged and skipped so one corrupt chain never sinks the
// whole export; a campaign yielding no row at all is an error.
func (e *Exporter) Run(campaign *models.Campaign, w io.Writer) (int, error) {
	writer := csv.NewWriter(w)
	if err := writer.Write(e.Header(campaign)); err != nil {
		return 0, err
	}

	assignments, err := annotations.ListAssignments(e.DB, campaign.ID, annotations.ListFilter{
		States: exportedStates,
	})
	if err != nil {
		return 0, err
	}

	count := 0
	for i := range assignments {
		assignment := &assignments[i]
		row, err := e.Row(campaign, assignment)
		if err != nil {
			e.Logger.WithFields(log.Fields{
				"campaign_id": campaign.ID,
				"user_task":   assignment.ID,
				"error":       err,
			}).Warn("Skipping assignment from export")
			continue
		}
		if err := writer.Write(row); err != nil {
			return count, err
		}
		count++
	}
	if count == 0 {
		return 0, ErrEmptyExport
	}

	writer.Flush()
	return count, writer.Error()
}

// RunToFile runs the export into dir and returns the path of the produced
// file.
func (e *Exporter) RunToFile(campaign *models.Campaign, dir string) (string, int, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", 0, err
	}
	path := filepath.Join(dir, fmt.Sprintf("campaign-%s.csv", campaign.ID))

	file, err := os.Create(path)
	if err != nil {
		return "", 0, err
	}
	defer file.Close()

	count, err := e.Run(campaign, file)
	if err != nil {
		os.Remove(path)
		return "", 0, err
	}
	return path, count, nil
}
