package revocation

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/gatherd/gatherd/metrics"
)

// StartSweepWorker starts a background goroutine that periodically removes
// expired entries from the revocation registry. Sweep failures are logged
// and the next scheduled run proceeds independently; the worker stops when
// ctx is cancelled.
func StartSweepWorker(ctx context.Context, registry Registry, interval time.Duration, logger *zap.Logger) {
	if registry == nil {
		logger.Error("Cannot start sweep worker: registry is nil")
		return
	}

	go func() {
		logger.Info("Starting revocation sweep worker",
			zap.Duration("interval", interval))

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				sweep(registry, logger)
			case <-ctx.Done():
				logger.Info("Revocation sweep worker shutting down")
				return
			}
		}
	}()
}

func sweep(registry Registry, logger *zap.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	count, err := registry.Sweep(ctx)
	if err != nil {
		logger.Error("Failed to sweep revocation registry", zap.Error(err))
		return
	}

	if count > 0 {
		metrics.RevocationSweepDeletedTotal.Add(float64(count))
		logger.Info("Cleaned up expired revocation entries",
			zap.Int("count", count))
	}
}
