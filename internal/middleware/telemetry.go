package middleware

import (
	"go.uber.org/zap"

	"github.com/peter-kozarec/fixsim/internal/bus"
	"github.com/peter-kozarec/fixsim/internal/fix"
	"github.com/peter-kozarec/fixsim/internal/model"
)

// Telemetry counts report outcomes flowing through the client.
type Telemetry struct {
	logger *zap.Logger

	sessionOpens int64
	reports      int64
	fills        int64
	partialFills int64
	rejects      int64
	cancels      int64
	replaces     int64
}

func NewTelemetry(logger *zap.Logger) *Telemetry {
	return &Telemetry{
		logger: logger,
	}
}

func (telemetry *Telemetry) WithSessionOpen(handler bus.SessionOpenEventHandler) bus.SessionOpenEventHandler {
	return func(msg *fix.Message) error {
		telemetry.sessionOpens++
		return handler(msg)
	}
}

func (telemetry *Telemetry) WithReport(handler bus.ReportEventHandler) bus.ReportEventHandler {
	return func(msg *fix.Message) error {
		telemetry.reports++
		if raw, ok := msg.Get(fix.TagOrdStatus); ok {
			if status, ok := model.StatusFromWire(raw); ok {
				switch status {
				case model.StatusFilled:
					telemetry.fills++
				case model.StatusPartiallyFilled:
					telemetry.partialFills++
				case model.StatusRejected:
					telemetry.rejects++
				case model.StatusCancelled:
					telemetry.cancels++
				case model.StatusReplaced:
					telemetry.replaces++
				default:
				}
			}
		}
		return handler(msg)
	}
}

func (telemetry *Telemetry) PrintStatistics() {
	telemetry.logger.Info("telemetry statistics",
		zap.Int64("session_opens", telemetry.sessionOpens),
		zap.Int64("reports", telemetry.reports),
		zap.Int64("fills", telemetry.fills),
		zap.Int64("partial_fills", telemetry.partialFills),
		zap.Int64("rejects", telemetry.rejects),
		zap.Int64("cancels", telemetry.cancels),
		zap.Int64("replaces", telemetry.replaces))
}
