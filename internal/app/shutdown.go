package app

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/xenking/storefront/pkg/health"
)

type shutdowner interface {
	Shutdown(ctx context.Context) error
}

// drain marks the service not ready, waits for load balancers to notice and
// then shuts srv down within the configured timeout.
func drain(lg *zap.Logger, h *health.Health, srv shutdowner, cfg GracefulConfig) {
	h.SetReady(false)
	lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.ReadinessDelay))
	time.Sleep(cfg.ReadinessDelay)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	lg.Info("Shutting down server", zap.Duration("timeout", cfg.ShutdownTimeout))
	if err := srv.Shutdown(ctx); err != nil {
		lg.Error("Server shutdown error", zap.Error(err))
	}
}
