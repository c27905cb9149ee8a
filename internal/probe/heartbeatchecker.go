package probe

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/pulsemon/pulsemon/internal/domain"
)

// BeatSource exposes the last heartbeat signal recorded for a monitor.
// A nil time means no signal has ever been received.
type BeatSource interface {
	LastBeat(ctx context.Context, monitorID uuid.UUID) (*time.Time, error)
}

type HeartbeatChecker struct {
	Beats BeatSource
	// GraceFactor widens the liveness window: a monitor is DOWN once no
	// signal has arrived for interval*GraceFactor.
	GraceFactor float64
}

func NewHeartbeatChecker(beats BeatSource, graceFactor float64) *HeartbeatChecker {
	if graceFactor < 1 {
		graceFactor = 2
	}
	return &HeartbeatChecker{Beats: beats, GraceFactor: graceFactor}
}

// Check is a liveness comparison, not a network probe: UP if the most recent
// signal is within the grace window. A monitor that has never signaled and
// never been checked is UP, so fresh heartbeat monitors don't alert before
// the first ping can arrive.
func (c *HeartbeatChecker) Check(ctx context.Context, m domain.Monitor) domain.CheckOutcome {
	now := time.Now().UTC()
	beat, err := c.Beats.LastBeat(ctx, m.ID)
	if err != nil {
		return domain.CheckOutcome{
			Status:    domain.StatusError,
			Error:     trimErr(err.Error()),
			CheckedAt: now,
		}
	}

	if beat == nil {
		if m.LastCheck == nil {
			return domain.CheckOutcome{
				Status:         domain.StatusUp,
				ResponseTimeMS: msPtr(0),
				CheckedAt:      now,
			}
		}
		return domain.CheckOutcome{
			Status:    domain.StatusDown,
			Error:     "no heartbeat received",
			CheckedAt: now,
		}
	}

	window := time.Duration(float64(m.Interval) * c.GraceFactor)
	if age := now.Sub(*beat); age > window {
		return domain.CheckOutcome{
			Status:    domain.StatusDown,
			Error:     fmt.Sprintf("no heartbeat for %ds", int(age.Seconds())),
			CheckedAt: now,
		}
	}
	return domain.CheckOutcome{
		Status:         domain.StatusUp,
		ResponseTimeMS: msPtr(0),
		CheckedAt:      now,
	}
}
