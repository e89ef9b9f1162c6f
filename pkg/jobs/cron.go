package jobs

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/paperhub/admindata/pkg/admindata"
	"github.com/paperhub/admindata/pkg/logger"
)

// CronManager manages the scheduled background jobs
type CronManager struct {
	cron    *cron.Cron
	service *admindata.Service
	logger  logger.Logger
}

// NewCronManager creates a new cron manager
func NewCronManager(service *admindata.Service, log logger.Logger) *CronManager {
	if log == nil {
		log = logger.Default()
	}

	return &CronManager{
		cron:    cron.New(),
		service: service,
		logger:  log,
	}
}

// SetupJobs configures all scheduled jobs. refreshSchedule is a cron expression
// controlling how often the entity caches are invalidated and refetched.
func (cm *CronManager) SetupJobs(refreshSchedule string) error {
	cm.logger.Info("setting up cron jobs", "refresh_schedule", refreshSchedule)

	// Periodic refresh: invalidate every entity cache and refetch so the
	// dashboard converges back to upstream data once it is reachable again
	_, err := cm.cron.AddFunc(refreshSchedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()

		if err := cm.service.Refresh(ctx); err != nil {
			cm.logger.Error("background refresh failed", "error", err)
			return
		}
		cm.logger.Info("background refresh completed")
	})
	if err != nil {
		return err
	}

	// Daily at 4 AM: log the derived aggregates
	_, err = cm.cron.AddFunc("0 4 * * *", func() {
		ctx, cancel := context.WithTimeout(context.Background(), 1*time.Minute)
		defer cancel()

		stats, err := cm.service.Stats(ctx)
		if err != nil {
			cm.logger.Error("failed computing stats", "error", err)
			return
		}

		cm.logger.Info("daily statistics",
			"partners", stats.TotalPartners,
			"verified_partners", stats.VerifiedPartners,
			"unpaid_earnings", stats.UnpaidEarningsCount,
			"open_disputes", stats.OpenDisputes,
		)
	})
	if err != nil {
		return err
	}

	cm.logger.Info("cron jobs configured")
	return nil
}

// Start starts the cron scheduler
func (cm *CronManager) Start() {
	cm.logger.Info("starting cron scheduler")
	cm.cron.Start()
}

// Stop stops the cron scheduler
func (cm *CronManager) Stop() {
	cm.logger.Info("stopping cron scheduler")
	cm.cron.Stop()
}
