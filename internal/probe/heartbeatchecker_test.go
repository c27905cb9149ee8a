package probe

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/pulsemon/pulsemon/internal/domain"
)

type fakeBeats struct {
	beat *time.Time
	err  error
}

func (f *fakeBeats) LastBeat(ctx context.Context, id uuid.UUID) (*time.Time, error) {
	return f.beat, f.err
}

func heartbeatMonitor(interval time.Duration) domain.Monitor {
	return domain.Monitor{
		ID:       uuid.New(),
		Name:     "worker",
		Kind:     domain.KindHeartbeat,
		Interval: interval,
	}
}

func TestHeartbeatChecker_FreshMonitorNeverBeatenIsUp(t *testing.T) {
	chk := NewHeartbeatChecker(&fakeBeats{}, 2)
	m := heartbeatMonitor(time.Minute) // LastCheck nil: never checked

	out := chk.Check(context.Background(), m)
	if out.Status != domain.StatusUp {
		t.Fatalf("fresh heartbeat monitor must start UP, got %+v", out)
	}
}

func TestHeartbeatChecker_CheckedButNeverBeatenIsDown(t *testing.T) {
	chk := NewHeartbeatChecker(&fakeBeats{}, 2)
	m := heartbeatMonitor(time.Minute)
	checked := time.Now().UTC().Add(-time.Minute)
	m.LastCheck = &checked

	out := chk.Check(context.Background(), m)
	if out.Status != domain.StatusDown || out.Error != "no heartbeat received" {
		t.Fatalf("want DOWN/no heartbeat received, got %+v", out)
	}
}

func TestHeartbeatChecker_RecentBeatIsUp(t *testing.T) {
	beat := time.Now().UTC().Add(-30 * time.Second)
	chk := NewHeartbeatChecker(&fakeBeats{beat: &beat}, 2)

	out := chk.Check(context.Background(), heartbeatMonitor(time.Minute))
	if out.Status != domain.StatusUp {
		t.Fatalf("beat within grace window must be UP, got %+v", out)
	}
}

func TestHeartbeatChecker_StaleBeatIsDown(t *testing.T) {
	// Window is interval*2 = 2m; beat is 3m old.
	beat := time.Now().UTC().Add(-3 * time.Minute)
	chk := NewHeartbeatChecker(&fakeBeats{beat: &beat}, 2)

	out := chk.Check(context.Background(), heartbeatMonitor(time.Minute))
	if out.Status != domain.StatusDown {
		t.Fatalf("stale beat must be DOWN, got %+v", out)
	}
	if !strings.HasPrefix(out.Error, "no heartbeat for ") {
		t.Fatalf("unexpected error detail: %q", out.Error)
	}
}

func TestHeartbeatChecker_SourceFailureIsError(t *testing.T) {
	chk := NewHeartbeatChecker(&fakeBeats{err: errors.New("db gone")}, 2)

	out := chk.Check(context.Background(), heartbeatMonitor(time.Minute))
	if out.Status != domain.StatusError {
		t.Fatalf("source failure must be ERROR, got %+v", out)
	}
}
