package domain

import (
	"time"

	"github.com/google/uuid"
)

// CheckOutcome is the ephemeral result of one probe. ResponseTimeMS is nil
// when no request completed (timeouts, refused connections).
type CheckOutcome struct {
	Status         Status
	ResponseTimeMS *float64
	Error          string
	CheckedAt      time.Time
}

// TransitionResult reports what applying an outcome did to a monitor's state.
// Changed is false for the very first completed check (previous UNKNOWN) so
// startup does not produce an alert storm.
type TransitionResult struct {
	Previous Status
	New      Status
	Changed  bool
}

// StatusEvent is published on the engine's event stream after every completed
// check. Subscribers that only care about transitions filter on
// Transition.Changed.
type StatusEvent struct {
	MonitorID   uuid.UUID
	MonitorName string
	Transition  TransitionResult
	Outcome     CheckOutcome
}
