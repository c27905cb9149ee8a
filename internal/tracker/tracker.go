// Package tracker applies check outcomes to monitor state and decides
// whether a notifiable transition happened.
package tracker

import (
	"context"

	"go.uber.org/zap"

	"github.com/pulsemon/pulsemon/internal/domain"
	"github.com/pulsemon/pulsemon/internal/repo"
)

type Tracker struct {
	Logs   repo.LogStore
	Logger *zap.Logger
}

func New(logs repo.LogStore, logger *zap.Logger) *Tracker {
	return &Tracker{Logs: logs, Logger: logger}
}

// Apply records one outcome: it always appends a status log entry and updates
// the monitor's status fields (persisted atomically by the store, mirrored on
// the in-memory copy here). Changed is true only for a real transition: the
// first completed check (previous UNKNOWN) is recorded but never notifiable,
// and ERROR counts as its own state, so UP to ERROR and back both transition.
//
// A persistence failure is reported alongside the computed result rather than
// swallowing it: the caller keeps the fresh state and transition decision and
// chooses to log and carry on, so one bad write never kills a schedule.
func (t *Tracker) Apply(ctx context.Context, m *domain.Monitor, out domain.CheckOutcome) (domain.TransitionResult, error) {
	prev := m.Status
	if prev == "" {
		prev = domain.StatusUnknown
	}

	_, err := t.Logs.RecordCheck(ctx, m.ID, out)
	if err != nil {
		t.Logger.Error("record_check_failed",
			zap.String("monitor_id", m.ID.String()),
			zap.String("status", string(out.Status)),
			zap.Error(err),
		)
	}

	checkedAt := out.CheckedAt
	m.Status = out.Status
	m.LastCheck = &checkedAt
	m.ResponseTimeMS = out.ResponseTimeMS

	res := domain.TransitionResult{
		Previous: prev,
		New:      out.Status,
		Changed:  prev != out.Status && prev != domain.StatusUnknown,
	}
	if res.Changed {
		t.Logger.Info("status_transition",
			zap.String("monitor_id", m.ID.String()),
			zap.String("monitor", m.Name),
			zap.String("previous", string(res.Previous)),
			zap.String("new", string(res.New)),
		)
	}
	return res, err
}
