// Package scheduler runs periodic background tasks over the world registry:
// snapshot broadcasts and movement pruning.
package scheduler

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/riftwatch/riftwatch/internal/config"
	"github.com/riftwatch/riftwatch/internal/events"
	"github.com/riftwatch/riftwatch/internal/world"
)

// Scheduler manages periodic background tasks.
type Scheduler struct {
	cfg      config.SchedulerConfig
	world    *world.Registry
	eventBus *events.EventBus
	now      func() time.Time
	logger   zerolog.Logger
}

// NewScheduler creates a new task scheduler.
func NewScheduler(cfg config.SchedulerConfig, reg *world.Registry, eventBus *events.EventBus) *Scheduler {
	return &Scheduler{
		cfg:      cfg,
		world:    reg,
		eventBus: eventBus,
		now:      time.Now,
		logger:   log.With().Str("component", "scheduler").Logger(),
	}
}

// Start runs all enabled tasks and blocks until ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) {
	s.logger.Info().Msg("scheduler started")

	if s.cfg.SnapshotInterval > 0 {
		go s.every(ctx, time.Duration(s.cfg.SnapshotInterval)*time.Second, s.BroadcastSnapshot)
	}
	if s.cfg.MovementTTL > 0 {
		ttl := time.Duration(s.cfg.MovementTTL) * time.Second
		// Pruning at half the TTL keeps records at most 1.5 TTL old.
		go s.every(ctx, ttl/2, func() { s.PruneMovements(ttl) })
	}

	<-ctx.Done()
	s.logger.Info().Msg("scheduler stopped")
}

func (s *Scheduler) every(ctx context.Context, interval time.Duration, task func()) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			task()
		}
	}
}

// BroadcastSnapshot emits a world_snapshot event with the current store sizes.
func (s *Scheduler) BroadcastSnapshot() {
	loc := s.world.Location()
	counts := s.world.Counts()

	s.eventBus.Emit(context.Background(), events.Event{
		Type:       events.EventWorldSnapshot,
		Source:     "scheduler",
		ObservedAt: s.now(),
		Cluster:    loc.Cluster,
		Region:     loc.Region,
		Payload: events.WorldSnapshotPayload{
			Cluster:   loc.Cluster,
			Region:    loc.Region,
			Players:   counts.Players,
			Mobs:      counts.Mobs,
			Dungeons:  counts.Dungeons,
			Wisps:     counts.Wisps,
			Movements: counts.Movements,
		},
	})

	s.logger.Debug().
		Str("cluster", loc.Cluster).
		Int("players", counts.Players).
		Int("mobs", counts.Mobs).
		Msg("world snapshot broadcast")
}

// PruneMovements drops movement records older than ttl.
func (s *Scheduler) PruneMovements(ttl time.Duration) int {
	removed := s.world.PruneMovements(s.now(), ttl)
	if removed > 0 {
		s.logger.Debug().Int("removed", removed).Msg("pruned stale movements")
	}
	return removed
}
