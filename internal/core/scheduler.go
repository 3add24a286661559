package core

// scheduler.go runs periodic maintenance for import history.
//
// History entries older than the retention window are pruned; the specimens
// an import created are kept. The job is context-aware for graceful shutdown
// and a failed cycle is logged, never fatal.

import (
	"context"
	"time"
)

// HistoryPruner is implemented by history stores that support retention.
type HistoryPruner interface {
	// PruneImports deletes history entries completed before cutoff.
	PruneImports(ctx context.Context, cutoff time.Time) (int64, error)
}

// RetentionConfig holds configuration for the history retention job.
type RetentionConfig struct {
	RetentionDays int           // Days of history to keep (default: 365)
	CheckInterval time.Duration // How often to run (default: 24h)
}

func (c RetentionConfig) withDefaults() RetentionConfig {
	if c.RetentionDays <= 0 {
		c.RetentionDays = 365
	}
	if c.CheckInterval <= 0 {
		c.CheckInterval = 24 * time.Hour
	}
	return c
}

// StartHistoryRetention prunes old import history immediately and then
// every CheckInterval until ctx is cancelled. It returns at once if the
// history store does not support pruning.
func (s *Service) StartHistoryRetention(ctx context.Context, cfg RetentionConfig) {
	pruner, ok := s.stores.History.(HistoryPruner)
	if !ok {
		s.logger.Debug("history retention disabled: store cannot prune")
		return
	}
	cfg = cfg.withDefaults()

	s.logger.Info("history retention started",
		"retention_days", cfg.RetentionDays,
		"interval", cfg.CheckInterval.String(),
	)

	s.pruneHistory(ctx, pruner, cfg)

	ticker := time.NewTicker(cfg.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("history retention stopped")
			return
		case <-ticker.C:
			s.pruneHistory(ctx, pruner, cfg)
		}
	}
}

// pruneHistory performs one retention cycle and returns the number pruned.
func (s *Service) pruneHistory(ctx context.Context, pruner HistoryPruner, cfg RetentionConfig) int64 {
	start := time.Now()
	cutoff := start.AddDate(0, 0, -cfg.RetentionDays)

	pruned, err := pruner.PruneImports(ctx, cutoff)
	if err != nil {
		s.logger.Error("history prune failed", "error", err)
		return 0
	}

	s.logger.Info("pruned import history",
		"entries_pruned", pruned,
		"cutoff", cutoff.Format(time.RFC3339),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return pruned
}
