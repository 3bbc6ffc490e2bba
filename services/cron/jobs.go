package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/bektursun/kursplatform/model"
)

// RefreshVideoStatuses polls the hosting provider for every lesson whose
// video is still being processed
func (m *CronManager) RefreshVideoStatuses() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	jobName := "refresh_video_statuses"

	checked, err := m.lessons.RefreshPendingVideos(ctx)
	if err != nil {
		m.logJobError(jobName, err)
		return
	}

	if checked == 0 {
		m.logJobComplete(jobName, "No pending videos")
		return
	}
	m.logJobComplete(jobName, fmt.Sprintf("Checked %d pending videos", checked))
}

// RebuildAnalytics reconstructs every course's rollups from the event
// history, repairing any drift the incremental counters may have picked up
func (m *CronManager) RebuildAnalytics() {
	jobName := "rebuild_analytics"

	rebuilt, err := m.analytics.RebuildAll()
	if err != nil {
		m.logJobError(jobName, err)
		return
	}

	m.logJobComplete(jobName, fmt.Sprintf("Rebuilt analytics for %d courses", rebuilt))
}

// CleanupCronLogs prunes job logs older than 90 days
func (m *CronManager) CleanupCronLogs() {
	jobName := "cleanup_cron_logs"
	cutoff := time.Now().AddDate(0, 0, -90)

	result := m.db.Unscoped().
		Where("started_at < ?", cutoff).
		Delete(&model.CronJobLog{})
	if result.Error != nil {
		m.logJobError(jobName, result.Error)
		return
	}

	m.logJobComplete(jobName, fmt.Sprintf("Deleted %d old logs", result.RowsAffected))
}
