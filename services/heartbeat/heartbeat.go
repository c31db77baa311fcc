// Package heartbeat publishes a retained liveness counter so an attached
// host (or a test) can tell the firmware loop is still scheduling.
package heartbeat

import (
	"context"
	"time"

	"buttonboard-go/bus"
)

// DefaultInterval between beats.
const DefaultInterval = 10 * time.Second

// Service ticks a counter onto the heartbeat topic.
type Service struct {
	interval time.Duration
}

// New creates a heartbeat. interval <= 0 selects the default.
func New(interval time.Duration) *Service {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Service{interval: interval}
}

// Run blocks until ctx is cancelled.
func (s *Service) Run(ctx context.Context, conn *bus.Connection) error {
	tick := time.NewTicker(s.interval)
	defer tick.Stop()

	start := time.Now()
	beat := uint32(0)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-tick.C:
			beat++
			conn.Publish(conn.NewMessage(bus.TopicHeartbeat, map[string]any{
				"beat":     beat,
				"uptime_s": int64(time.Since(start) / time.Second),
			}, true))
		}
	}
}
