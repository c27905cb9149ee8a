package probe

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/pulsemon/pulsemon/internal/domain"
)

// Executor dispatches a check to the right Checker for the monitor's kind.
// It is the one place that guarantees a probe can never crash a scheduling
// loop: panics and unknown kinds come back as ERROR outcomes.
type Executor struct {
	HTTP      Checker
	Keyword   Checker
	Heartbeat Checker
	Logger    *zap.Logger
}

func NewExecutor(timeout time.Duration, beats BeatSource, graceFactor float64, logger *zap.Logger) *Executor {
	return &Executor{
		HTTP:      NewHTTPChecker(timeout),
		Keyword:   NewKeywordChecker(timeout),
		Heartbeat: NewHeartbeatChecker(beats, graceFactor),
		Logger:    logger,
	}
}

func (e *Executor) Check(ctx context.Context, m domain.Monitor) (out domain.CheckOutcome) {
	defer func() {
		if r := recover(); r != nil {
			e.Logger.Error("probe_panic",
				zap.String("monitor_id", m.ID.String()),
				zap.Any("panic", r),
			)
			out = domain.CheckOutcome{
				Status:    domain.StatusError,
				Error:     trimErr(fmt.Sprintf("probe panic: %v", r)),
				CheckedAt: time.Now().UTC(),
			}
		}
	}()

	switch m.Kind {
	case domain.KindHTTP:
		return e.HTTP.Check(ctx, m)
	case domain.KindKeyword:
		return e.Keyword.Check(ctx, m)
	case domain.KindHeartbeat:
		return e.Heartbeat.Check(ctx, m)
	default:
		return domain.CheckOutcome{
			Status:    domain.StatusError,
			Error:     fmt.Sprintf("unknown monitor kind: %s", m.Kind),
			CheckedAt: time.Now().UTC(),
		}
	}
}
