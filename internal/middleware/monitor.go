package middleware

import (
	"go.uber.org/zap"

	"github.com/peter-kozarec/fixsim/internal/bus"
	"github.com/peter-kozarec/fixsim/internal/fix"
)

type Monitor struct {
	logger *zap.Logger
}

func NewMonitor(logger *zap.Logger) *Monitor {
	return &Monitor{
		logger: logger,
	}
}

func (monitor *Monitor) WithSessionOpen(handler bus.SessionOpenEventHandler) bus.SessionOpenEventHandler {
	return func(msg *fix.Message) error {
		monitor.logger.Debug("monitor", zap.String("session_open", msg.String()))
		return handler(msg)
	}
}

func (monitor *Monitor) WithReport(handler bus.ReportEventHandler) bus.ReportEventHandler {
	return func(msg *fix.Message) error {
		monitor.logger.Debug("monitor", zap.String("report", msg.String()))
		return handler(msg)
	}
}
