package collab

import (
	"context"
	"log/slog"
	"time"
)

// LivenessMonitor drives the engine's sweep on a fixed interval. A session
// must produce some proof of life (a pong or any inbound message) between
// two consecutive sweeps or it is terminated.
type LivenessMonitor struct {
	engine   *Engine
	interval time.Duration
	log      *slog.Logger
}

// NewLivenessMonitor creates a monitor; Run starts it.
func NewLivenessMonitor(engine *Engine, interval time.Duration, logger *slog.Logger) *LivenessMonitor {
	return &LivenessMonitor{
		engine:   engine,
		interval: interval,
		log:      logger.With("component", "liveness"),
	}
}

// Run sweeps until ctx is canceled. It is meant to be launched as a
// goroutine by the composition root.
func (m *LivenessMonitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.log.Info("liveness monitor started", slog.Duration("interval", m.interval))

	for {
		select {
		case <-ctx.Done():
			m.log.Info("liveness monitor stopped")
			return
		case <-ticker.C:
			pinged, reaped := m.engine.Sweep()
			if reaped > 0 {
				m.log.Info("liveness sweep",
					slog.Int("pinged", pinged),
					slog.Int("reaped", reaped),
				)
			}
		}
	}
}
