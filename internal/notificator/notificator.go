// Package notificator delivers operational alerts about the pipeline to the
// ops chat. Alerting is fire-and-forget: a delivery failure is logged and
// never propagates into the pipeline.
package notificator

import (
	"github.com/coinlaunch/launchbot/pkg/logger"
)

// Noop is the AlertService used when no alert channel is configured.
type Noop struct {
	logger *logger.Logger
}

func NewNoop(logger *logger.Logger) *Noop {
	return &Noop{logger: logger}
}

func (n *Noop) SendAlert(message string) {
	n.logger.Debug("Alert (no channel configured): ", message)
}

// safeCall invokes fn and recovers from any panic, so a failure inside the
// messaging client cannot take down the caller.
func safeCall(logger *logger.Logger, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Recovered from panic in notificator: ", r)
		}
	}()
	fn()
}
