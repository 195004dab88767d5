// Package logging adapts zap to the reservation core and the HTTP layer.
package logging

import (
	"context"

	"go.uber.org/zap"

	"github.com/iliyamo/railway-reservation/internal/service"
)

// OperationLogger writes service.OperationLog entries to zap.  Failed
// operations are logged at warn level, except storage outages at error.
type OperationLogger struct {
	logger *zap.Logger
}

// NewOperationLogger wraps logger; a nil logger discards everything.
func NewOperationLogger(logger *zap.Logger) *OperationLogger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OperationLogger{logger: logger.Named("reservation")}
}

// LogOperation implements service.OperationLogger.
func (l *OperationLogger) LogOperation(_ context.Context, entry service.OperationLog) {
	fields := []zap.Field{
		zap.String("operation", entry.Operation),
		zap.Uint64("reservation_id", entry.ReservationID),
		zap.Uint64("train_id", entry.TrainID),
		zap.Uint64("passenger_id", entry.PassengerID),
		zap.String("status", string(entry.Status)),
	}
	switch {
	case entry.Error == nil:
		l.logger.Info("reservation operation", fields...)
	case isStorageFailure(entry.Error):
		l.logger.Error("reservation operation failed", append(fields, zap.Error(entry.Error))...)
	default:
		l.logger.Warn("reservation operation rejected", append(fields, zap.Error(entry.Error))...)
	}
}
