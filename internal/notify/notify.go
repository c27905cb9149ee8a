// Package notify delivers transition alerts through independent, best-effort
// channels and records every attempt.
package notify

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/pulsemon/pulsemon/internal/domain"
)

// Payload is the channel-independent alert content.
type Payload struct {
	MonitorID   uuid.UUID
	MonitorName string
	Status      domain.Status
	Message     string
	Timestamp   time.Time
	Test        bool
}

// Notifier is one delivery channel. Send reads everything it needs from the
// settings snapshot passed in, so updated credentials apply to the very next
// dispatch with no channel restart. The returned detail is stored in the
// notification history (message id, HTTP status, or error text).
type Notifier interface {
	Kind() domain.Channel
	Configured(s domain.NotificationSettings) bool
	Send(ctx context.Context, s domain.NotificationSettings, p Payload) (detail string, err error)
}
