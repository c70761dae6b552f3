package searchlog

import (
	"context"
	"time"

	"mealplan-backend/lib/chrono"
)

const (
	report_prune         = "prune"
	report_prune_deleted = "prune.deleted"
)

// DefaultRetentionSchedule prunes once an hour.
const DefaultRetentionSchedule = "@hourly"

// ScheduleRetention registers a job on cron that deletes entries older than
// retention on every tick of spec. A zero retention keeps everything.
func (s Store) ScheduleRetention(ctx context.Context, cron chrono.CronAPI, spec string, retention time.Duration) error {
	if retention <= 0 {
		return nil
	}
	if spec == "" {
		spec = DefaultRetentionSchedule
	}
	return cron.Cron(spec, func() {
		deleted, err := s.Prune(ctx, retention)
		if err != nil {
			s.tel.ReportBroken(report_prune, err)
			return
		}
		s.tel.ReportCount(report_prune_deleted, deleted)
	})
}
