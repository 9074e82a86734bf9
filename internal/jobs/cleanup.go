package jobs

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/omnipushdigital/smartretail/internal/repository"
)

// CleanupJob expires stale pairing pins and prunes old heartbeat rows on a
// fixed interval.
type CleanupJob struct {
	deviceRepo         repository.DeviceRepository
	heartbeatRepo      repository.HeartbeatRepository
	heartbeatRetention time.Duration
	interval           time.Duration
	done               chan struct{}
}

func NewCleanupJob(
	deviceRepo repository.DeviceRepository,
	heartbeatRepo repository.HeartbeatRepository,
	heartbeatRetention time.Duration,
	interval time.Duration,
) *CleanupJob {
	return &CleanupJob{
		deviceRepo:         deviceRepo,
		heartbeatRepo:      heartbeatRepo,
		heartbeatRetention: heartbeatRetention,
		interval:           interval,
		done:               make(chan struct{}),
	}
}

func (j *CleanupJob) Start() {
	go j.run()
	log.Info().Dur("interval", j.interval).Msg("cleanup job started")
}

func (j *CleanupJob) Stop() {
	close(j.done)
	log.Info().Msg("cleanup job stopped")
}

func (j *CleanupJob) run() {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	j.cleanup()

	for {
		select {
		case <-j.done:
			return
		case <-ticker.C:
			j.cleanup()
		}
	}
}

func (j *CleanupJob) cleanup() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	j.runCleanup(ctx, "expired pairing pins", j.deviceRepo.ExpirePins)
	j.runCleanup(ctx, "old heartbeats", func(ctx context.Context) (int64, error) {
		cutoff := time.Now().Add(-j.heartbeatRetention)
		return j.heartbeatRepo.DeleteOlderThan(ctx, cutoff)
	})
}

func (j *CleanupJob) runCleanup(ctx context.Context, name string, fn func(context.Context) (int64, error)) {
	count, err := fn(ctx)
	if err != nil {
		log.Error().Err(err).Msgf("failed to cleanup %s", name)
	} else if count > 0 {
		log.Info().Int64("count", count).Msgf("cleaned up %s", name)
	}
}
