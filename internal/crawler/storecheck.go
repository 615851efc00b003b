package crawler

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// StoreCheck is the outcome of a connectivity check.
type StoreCheck struct {
	OK      bool
	Message string
}

// CheckStore opens the document store, pings it, and releases it again.
// Failures are reported in the result and logged, never returned.
func CheckStore(ctx context.Context, open StoreOpener, logger *zap.Logger) StoreCheck {
	ctx, span := tracer.Start(ctx, "CheckStore")
	defer span.End()

	store, err := open(ctx)
	if err != nil {
		msg := fmt.Sprintf("Failed to connect to the document store: %v", err)
		logger.Error(msg)
		return StoreCheck{Message: msg}
	}
	defer func() {
		if cerr := store.Close(ctx); cerr != nil {
			logger.Warn("failed to close document store", zap.Error(cerr))
		}
	}()

	if err := store.Ping(ctx); err != nil {
		msg := fmt.Sprintf("Failed to ping the document store: %v", err)
		logger.Error(msg)
		return StoreCheck{Message: msg}
	}
	msg := "Pinged the deployment. Successfully connected to the document store."
	logger.Info(msg)
	return StoreCheck{OK: true, Message: msg}
}
