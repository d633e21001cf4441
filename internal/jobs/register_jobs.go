package jobs

import (
	"time"

	"github.com/go-co-op/gocron"
	"github.com/go-redis/redis/v8"

	"github.com/nexarise/backend/internal/config"
	"github.com/nexarise/backend/internal/services/rank"
	"github.com/nexarise/backend/internal/services/roi"
	"github.com/nexarise/backend/internal/store"
)

// ScheduleRecurringJobs wires all recurring jobs onto a scheduler and starts
// it. Callers keep the returned scheduler to stop it on shutdown.
func ScheduleRecurringJobs(
	cfg *config.Config,
	st store.Store,
	roiSvc *roi.Service,
	rankSvc *rank.Service,
	redisClient *redis.Client,
) (*gocron.Scheduler, error) {
	scheduler := gocron.NewScheduler(time.UTC)

	roiJob := NewRoiDistributionJob(roiSvc, redisClient)
	if err := roiJob.Schedule(scheduler, cfg.Scheduler.RoiRunHourUTC); err != nil {
		return nil, err
	}

	sweepJob := NewRankSweepJob(st, rankSvc)
	if err := sweepJob.Schedule(scheduler, cfg.Scheduler.RankSweepMinutes); err != nil {
		return nil, err
	}

	scheduler.StartAsync()
	return scheduler, nil
}
