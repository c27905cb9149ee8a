// Package scheduler owns one periodic check task per enabled monitor and
// orchestrates probe → tracker → store → dispatcher for each check.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pulsemon/pulsemon/internal/domain"
	"github.com/pulsemon/pulsemon/internal/repo"
)

// Prober executes one check for a monitor's kind.
type Prober interface {
	Check(ctx context.Context, m domain.Monitor) domain.CheckOutcome
}

// Applier persists an outcome and reports the resulting transition.
type Applier interface {
	Apply(ctx context.Context, m *domain.Monitor, out domain.CheckOutcome) (domain.TransitionResult, error)
}

// Dispatcher receives transition events. Implementations must not block.
type Dispatcher interface {
	Dispatch(ev domain.StatusEvent)
}

type checkReply struct {
	outcome domain.CheckOutcome
	err     error
}

type checkReq struct {
	reply chan checkReply
}

// task is one monitor's running schedule. Manual checks are funneled through
// kick so checks for a single monitor are strictly sequential.
type task struct {
	cancel context.CancelFunc
	done   chan struct{}
	kick   chan checkReq
}

type Supervisor struct {
	logger   *zap.Logger
	monitors repo.MonitorStore
	prober   Prober
	applier  Applier
	dispatch Dispatcher
	events   *Broadcaster

	baseCtx    context.Context
	baseCancel context.CancelFunc

	mu    sync.Mutex
	tasks map[uuid.UUID]*task
}

func NewSupervisor(logger *zap.Logger, monitors repo.MonitorStore, prober Prober, applier Applier, dispatch Dispatcher) *Supervisor {
	ctx, cancel := context.WithCancel(context.Background())
	return &Supervisor{
		logger:     logger,
		monitors:   monitors,
		prober:     prober,
		applier:    applier,
		dispatch:   dispatch,
		events:     NewBroadcaster(),
		baseCtx:    ctx,
		baseCancel: cancel,
		tasks:      make(map[uuid.UUID]*task),
	}
}

// Subscribe exposes the status event stream.
func (s *Supervisor) Subscribe() (<-chan domain.StatusEvent, func()) {
	return s.events.Subscribe()
}

// StartAll loads every monitor and starts a task for the enabled ones. A load
// failure here is the one fatal error in the engine: with no monitors there
// is nothing to supervise.
func (s *Supervisor) StartAll(ctx context.Context) error {
	monitors, err := s.monitors.List(ctx)
	if err != nil {
		return fmt.Errorf("load monitors: %w", err)
	}
	for _, m := range monitors {
		if m.Enabled {
			s.Start(m)
		}
	}
	s.logger.Info("supervisor_started", zap.Int("monitors", len(monitors)))
	return nil
}

// Start launches the periodic task for a monitor. Idempotent: a monitor that
// is already Running keeps its existing task.
func (s *Supervisor) Start(m domain.Monitor) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tasks[m.ID]; ok {
		return
	}
	if s.baseCtx.Err() != nil {
		return // shutting down
	}
	ctx, cancel := context.WithCancel(s.baseCtx)
	t := &task{
		cancel: cancel,
		done:   make(chan struct{}),
		kick:   make(chan checkReq),
	}
	s.tasks[m.ID] = t
	go s.runLoop(ctx, m, t)
}

// Stop cancels a monitor's task and waits until it reaches Stopped. The
// in-flight check, if any, finishes first, so no log entry is appended after
// Stop returns.
func (s *Supervisor) Stop(id uuid.UUID) {
	s.mu.Lock()
	t, ok := s.tasks[id]
	if ok {
		delete(s.tasks, id)
	}
	s.mu.Unlock()
	if !ok {
		return
	}
	t.cancel()
	<-t.done
}

// Reconfigure restarts a monitor's task with fresh parameters. Other
// monitors' schedules are untouched.
func (s *Supervisor) Reconfigure(m domain.Monitor) {
	s.Stop(m.ID)
	if m.Enabled {
		s.Start(m)
	}
}

// Running reports whether a task exists for the monitor.
func (s *Supervisor) Running(id uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.tasks[id]
	return ok
}

// Shutdown cancels every task and waits for all of them to stop, so no check
// is left writing to storage afterwards.
func (s *Supervisor) Shutdown() {
	s.baseCancel()
	s.mu.Lock()
	tasks := make([]*task, 0, len(s.tasks))
	for id, t := range s.tasks {
		tasks = append(tasks, t)
		delete(s.tasks, id)
	}
	s.mu.Unlock()
	for _, t := range tasks {
		<-t.done
	}
	s.logger.Info("supervisor_stopped")
}

// CheckNow performs one immediate out-of-cycle check. For a running monitor
// the request is handed to its task, keeping checks sequential and leaving
// the regular tick cadence alone; for a stopped one it runs directly.
func (s *Supervisor) CheckNow(ctx context.Context, id uuid.UUID) (domain.CheckOutcome, error) {
	s.mu.Lock()
	t, running := s.tasks[id]
	s.mu.Unlock()

	if running {
		req := checkReq{reply: make(chan checkReply, 1)}
		select {
		case t.kick <- req:
		case <-t.done:
			running = false
		case <-ctx.Done():
			return domain.CheckOutcome{}, ctx.Err()
		}
		if running {
			select {
			case rep := <-req.reply:
				return rep.outcome, rep.err
			case <-ctx.Done():
				return domain.CheckOutcome{}, ctx.Err()
			}
		}
	}

	m, err := s.monitors.Get(ctx, id)
	if err != nil {
		return domain.CheckOutcome{}, err
	}
	out, _, err := s.runCheck(ctx, m)
	return out, err
}

// runLoop is one monitor's Stopped→Running→Stopped lifecycle. The first check
// fires immediately; later checks follow the ticker, whose fixed cadence is
// measured from the start of the previous check. A check that overruns its
// interval makes the loop skip ticks, not queue them.
func (s *Supervisor) runLoop(ctx context.Context, m domain.Monitor, t *task) {
	defer close(t.done)
	s.logger.Info("monitor_task_started",
		zap.String("monitor_id", m.ID.String()),
		zap.String("monitor", m.Name),
		zap.Duration("interval", m.Interval),
	)

	ticker := time.NewTicker(m.Interval)
	defer ticker.Stop()

	if _, _, err := s.runCheck(ctx, &m); err != nil {
		s.logger.Warn("check_persist_failed", zap.String("monitor_id", m.ID.String()), zap.Error(err))
	}

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("monitor_task_stopped", zap.String("monitor_id", m.ID.String()))
			return
		case req := <-t.kick:
			out, _, err := s.runCheck(ctx, &m)
			req.reply <- checkReply{outcome: out, err: err}
		case <-ticker.C:
			if _, _, err := s.runCheck(ctx, &m); err != nil {
				s.logger.Warn("check_persist_failed", zap.String("monitor_id", m.ID.String()), zap.Error(err))
			}
		}
	}
}

// runCheck executes probe → apply → publish → dispatch for one check. The
// probe and the write are shielded from task cancellation (each is bounded by
// its own timeout) so a disable mid-check never truncates a log write.
func (s *Supervisor) runCheck(ctx context.Context, m *domain.Monitor) (domain.CheckOutcome, domain.TransitionResult, error) {
	checkCtx := context.WithoutCancel(ctx)
	out := s.prober.Check(checkCtx, *m)
	res, err := s.applier.Apply(checkCtx, m, out)

	s.logger.Debug("check_completed",
		zap.String("monitor_id", m.ID.String()),
		zap.String("monitor", m.Name),
		zap.String("status", string(out.Status)),
		zap.String("error", out.Error),
	)

	ev := domain.StatusEvent{
		MonitorID:   m.ID,
		MonitorName: m.Name,
		Transition:  res,
		Outcome:     out,
	}
	s.events.Publish(ev)
	if res.Changed && s.dispatch != nil {
		s.dispatch.Dispatch(ev)
	}
	return out, res, err
}
