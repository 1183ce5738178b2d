package telemetry

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// ShutdownTimeout bounds the final flush of each provider
const ShutdownTimeout = 10 * time.Second

// shutdownProvider flushes and stops one SDK provider. A nil shutdown func
// means the signal was disabled.
func shutdownProvider(ctx context.Context, logger *zap.Logger, signal string, shutdown func(context.Context) error) error {
	if shutdown == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, ShutdownTimeout)
	defer cancel()

	if err := shutdown(ctx); err != nil {
		logger.Error("Telemetry provider shutdown failed", zap.String("signal", signal), zap.Error(err))
		return fmt.Errorf("failed to shutdown %s provider: %w", signal, err)
	}
	logger.Info("Telemetry provider stopped", zap.String("signal", signal))
	return nil
}
