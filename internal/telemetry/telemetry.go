// Package telemetry wires up the ambient logging and metrics stack
// shared by the orchestrator: a zap logger and a small set of
// Prometheus collectors describing generation progress.
package telemetry

import (
	"go.uber.org/zap"
)

// NewLogger builds a production zap logger, or a no-op logger if
// construction fails (matching zap's own recommended fallback so a
// logging misconfiguration never prevents evolution from running).
func NewLogger() *zap.Logger {
	logger, err := zap.NewProduction()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}
