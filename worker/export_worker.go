package worker

import (
	"context"
	"log"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"taskscribe/config"
	"taskscribe/exports"
	"taskscribe/models"
)

type ExportWorker struct {
	DB     *gorm.DB
	Logger *log.Logger
}

func NewExportWorker(db *gorm.DB, logger *log.Logger) *ExportWorker {
	return &ExportWorker{
		DB:     db,
		Logger: logger,
	}
}

func (ew *ExportWorker) Start(ctx context.Context) {
	// Initial delay to let the server start up
	time.Sleep(5 * time.Second)

	ew.Logger.Println("Export worker started")

	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			ew.Logger.Println("Export worker shutting down...")
			return
		case <-ticker.C:
			ew.processPendingExports()
		}
	}
}

func (ew *ExportWorker) processPendingExports() {
	var pending []models.Process
	err := ew.DB.Where("kind = ? AND state = ?", models.ProcessExport, models.ProcessPending).
		Order("created_at").
		Find(&pending).Error
	if err != nil {
		ew.Logger.Printf("Error fetching pending exports: %v", err)
		return
	}

	for i := range pending {
		process := &pending[i]
		if err := ew.runExport(process); err != nil {
			ew.Logger.Printf("Error running export %s: %v", process.ID, err)
			ew.failProcess(process, err)
		}
	}
}

func (ew *ExportWorker) runExport(process *models.Process) error {
	// Claim the row so a second worker instance skips it
	claimed := ew.DB.Model(process).
		Where("state = ?", models.ProcessPending).
		Updates(map[string]interface{}{
			"state":      models.ProcessRunning,
			"started_at": time.Now(),
		})
	if claimed.Error != nil {
		return claimed.Error
	}
	if claimed.RowsAffected == 0 {
		return nil
	}

	var campaign models.Campaign
	if err := ew.DB.First(&campaign, "id = ?", process.CampaignID).Error; err != nil {
		return err
	}

	exporter := &exports.Exporter{DB: ew.DB, Logger: logrus.StandardLogger()}
	path, count, err := exporter.RunToFile(&campaign, config.AppConfig.ExportDir)
	if err != nil {
		return err
	}

	ew.Logger.Printf("Exported %d rows of campaign %s to %s", count, campaign.ID, path)
	return ew.DB.Model(process).Updates(map[string]interface{}{
		"state":       models.ProcessDone,
		"output_path": path,
		"finished_at": time.Now(),
	}).Error
}

func (ew *ExportWorker) failProcess(process *models.Process, cause error) {
	sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("process_kind", string(models.ProcessExport))
		scope.SetExtra("process_id", process.ID)
		scope.SetExtra("campaign_id", process.CampaignID)
		sentry.CaptureException(cause)
	})

	err := ew.DB.Model(process).Updates(map[string]interface{}{
		"state":       models.ProcessFailed,
		"error":       cause.Error(),
		"finished_at": time.Now(),
	}).Error
	if err != nil {
		ew.Logger.Printf("Error marking export %s as failed: %v", process.ID, err)
	}
}
