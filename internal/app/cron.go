package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mendian-cloud/core/internal/config"
	"github.com/mendian-cloud/core/internal/modules/notify/channel"
	"github.com/mendian-cloud/core/internal/modules/notify/dispatch"
	pkgcron "github.com/mendian-cloud/core/internal/pkg/cron"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// registerCronJobs registers all scheduled background jobs. The due-task sweep
// is safe to run from several hosts at once: overlap resolves through the
// per-task claim, not scheduling discipline.
func registerCronJobs(sched *pkgcron.Scheduler, db *gorm.DB, cfg *config.AppConfig, logger *zap.Logger) {
	dispatchSvc := dispatch.NewService(db, channel.NewService(db), logger)
	cronLogger := logger.Named("CronService")

	sched.Register(pkgcron.Job{
		Name:        "notify_due_followups",
		Description: "推送到期回访任务提醒",
		Interval:    time.Duration(cfg.Dispatch.SweepIntervalSec) * time.Second,
		Fn: func(ctx context.Context) error {
			opts := dispatch.DispatchOptions{
				Limit:       cfg.Dispatch.SweepLimit,
				RetryFailed: cfg.Dispatch.SweepRetryFailed,
			}
			result, err := dispatchSvc.NotifyDueFollowups(opts, dispatch.TriggerCron)
			if err != nil {
				if errors.Is(err, dispatch.ErrNoEnabledChannel) {
					// Nothing configured yet; not worth a reject status.
					return nil
				}
				cronLogger.Warn("回访提醒推送失败", zap.Error(err))
				return err
			}
			if result.Total > 0 {
				cronLogger.Info(fmt.Sprintf("回访提醒推送完成，共 %d 条，成功 %d，失败 %d，跳过 %d",
					result.Total, result.Sent, result.Failed, result.Skipped))
			}
			return nil
		},
	})
}
