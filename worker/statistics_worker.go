package worker

import (
	"context"
	"log"
	"time"

	"gorm.io/gorm"

	"taskscribe/models"
	"taskscribe/utils"
)

type StatisticsWorker struct {
	DB     *gorm.DB
	Logger *log.Logger

	lastReport time.Time
}

func NewStatisticsWorker(db *gorm.DB, logger *log.Logger) *StatisticsWorker {
	return &StatisticsWorker{
		DB:     db,
		Logger: logger,
	}
}

func (sw *StatisticsWorker) Start(ctx context.Context) {
	time.Sleep(10 * time.Second)

	sw.Logger.Println("Statistics worker started")

	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			sw.Logger.Println("Statistics worker shutting down...")
			return
		case <-ticker.C:
			sw.maybeSendDailyReports(time.Now())
		}
	}
}

// maybeSendDailyReports sends yesterday's summaries once per day, on the
// first tick after midnight UTC.
func (sw *StatisticsWorker) maybeSendDailyReports(now time.Time) {
	today := now.UTC().Truncate(24 * time.Hour)
	if !sw.lastReport.Before(today) {
		return
	}

	if err := sw.SendDailyReports(today.Add(-24*time.Hour), today); err != nil {
		sw.Logger.Printf("Error sending daily reports: %v", err)
		return
	}
	sw.lastReport = today
}

// SendDailyReports emails every running campaign's managers a summary of
// the activity recorded between from and to. Campaigns without any
// activity are skipped.
func (sw *StatisticsWorker) SendDailyReports(from, to time.Time) error {
	var campaigns []models.Campaign
	err := sw.DB.Where("state = ?", models.CampaignRunning).Find(&campaigns).Error
	if err != nil {
		return err
	}

	for i := range campaigns {
		campaign := &campaigns[i]

		stats, total, err := sw.campaignStats(campaign, from, to)
		if err != nil {
			sw.Logger.Printf("Error computing stats for campaign %s: %v", campaign.ID, err)
			continue
		}
		if total == 0 {
			continue
		}

		recipients, err := utils.ManagerEmails(sw.DB, campaign.ProjectID)
		if err != nil {
			sw.Logger.Printf("Error listing managers of campaign %s: %v", campaign.ID, err)
			continue
		}
		if len(recipients) == 0 {
			continue
		}

		if err := utils.SendDailyStatsEmail(recipients, stats); err != nil {
			sw.Logger.Printf("Error emailing stats for campaign %s: %v", campaign.ID, err)
		}
	}
	return nil
}

func (sw *StatisticsWorker) campaignStats(campaign *models.Campaign, from, to time.Time) (utils.DailyStats, int64, error) {
	stats := utils.DailyStats{
		CampaignName: campaign.Name,
		Date:         from.Format("2006-01-02"),
	}

	counts := map[models.ActivityKind]*int64{
		models.ActivityAnnotated: &stats.Annotated,
		models.ActivitySkipped:   &stats.Skipped,
		models.ActivityValidated: &stats.Validated,
		models.ActivityRejected:  &stats.Rejected,
		models.ActivityJoined:    &stats.Joined,
	}

	var total int64
	for kind, target := range counts {
		err := sw.DB.Model(&models.ActivityEvent{}).
			Where("campaign_id = ? AND kind = ?", campaign.ID, kind).
			Where("created_at >= ? AND created_at < ?", from, to).
			Count(target).Error
		if err != nil {
			return stats, 0, err
		}
		total += *target
	}
	return stats, total, nil
}

// EnqueueExport queues an export job for the worker loop.
func EnqueueExport(db *gorm.DB, campaignID, userID string) (*models.Process, error) {
	process := &models.Process{
		Kind:        models.ProcessExport,
		State:       models.ProcessPending,
		CampaignID:  campaignID,
		CreatedByID: userID,
	}
	if err := db.Create(process).Error; err != nil {
		return nil, err
	}
	return process, nil
}
