package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Status is a monitor's current up/down state.
type Status string

const (
	StatusUp      Status = "UP"
	StatusDown    Status = "DOWN"
	StatusUnknown Status = "UNKNOWN" // no completed check yet
	StatusError   Status = "ERROR"   // the check itself failed, not the target
)

// CheckKind selects how a monitor's target is probed.
type CheckKind string

const (
	KindHTTP      CheckKind = "HTTP"
	KindKeyword   CheckKind = "KEYWORD"
	KindHeartbeat CheckKind = "HEARTBEAT"
)

// MinInterval is the floor for check intervals.
const MinInterval = 5 * time.Second

type Monitor struct {
	ID             uuid.UUID     `json:"id"`
	Name           string        `json:"name"`
	Kind           CheckKind     `json:"kind"`
	URL            string        `json:"url"`
	Keyword        string        `json:"keyword,omitempty"`
	Interval       time.Duration `json:"interval"`
	Enabled        bool          `json:"enabled"`
	Status         Status        `json:"status"`
	LastCheck      *time.Time    `json:"last_check,omitempty"`
	ResponseTimeMS *float64      `json:"response_time_ms,omitempty"`
	CreatedAt      time.Time     `json:"created_at"`
}

var (
	ErrKeywordRequired = errors.New("keyword monitors require a keyword")
	ErrKeywordUnused   = errors.New("keyword is only valid for keyword monitors")
	ErrIntervalTooLow  = errors.New("interval below minimum")
	ErrUnknownKind     = errors.New("unknown check kind")
)

// Validate enforces the monitor invariants: a keyword is set if and only if
// the kind is KEYWORD, and the interval respects the floor.
func (m *Monitor) Validate() error {
	switch m.Kind {
	case KindHTTP, KindKeyword, KindHeartbeat:
	default:
		return ErrUnknownKind
	}
	if m.Kind == KindKeyword && m.Keyword == "" {
		return ErrKeywordRequired
	}
	if m.Kind != KindKeyword && m.Keyword != "" {
		return ErrKeywordUnused
	}
	if m.Interval < MinInterval {
		return ErrIntervalTooLow
	}
	return nil
}
