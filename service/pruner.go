package service

import (
	"context"
	"log/slog"
	"time"
)

// Pruner periodically removes expired challenges from a LoginService.
type Pruner struct {
	service  *LoginService
	interval time.Duration
	logger   *slog.Logger
}

// NewPruner creates a pruner that runs every interval.
func NewPruner(service *LoginService, interval time.Duration, logger *slog.Logger) *Pruner {
	if logger == nil {
		logger = service.logger
	}
	return &Pruner{service: service, interval: interval, logger: logger}
}

// Run prunes on every tick until ctx is cancelled. Errors are logged and the
// loop keeps going. A non-positive interval disables pruning.
func (p *Pruner) Run(ctx context.Context) {
	if p.interval <= 0 {
		p.logger.Error("challenge pruning disabled", "interval", p.interval)
		return
	}

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := p.service.PruneExpired(ctx)
			if err != nil {
				p.logger.Error("challenge pruning failed", "error", err)
				continue
			}
			if removed > 0 {
				p.logger.Debug("pruned expired challenges", "removed", removed)
			}
		}
	}
}
