package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/pulsemon/pulsemon/internal/domain"
	"github.com/pulsemon/pulsemon/internal/repo"
)

func addMonitor(t *testing.T, s *Store) *domain.Monitor {
	t.Helper()
	m := &domain.Monitor{
		Name:     "site",
		Kind:     domain.KindHTTP,
		URL:      "https://example.com",
		Interval: 30 * time.Second,
		Enabled:  true,
	}
	if err := s.Add(context.Background(), m); err != nil {
		t.Fatalf("Add: %v", err)
	}
	return m
}

func TestMonitorCRUD(t *testing.T) {
	ctx := context.Background()
	s := New()
	m := addMonitor(t, s)

	if m.ID == uuid.Nil {
		t.Fatalf("Add must assign an id")
	}
	if m.Status != domain.StatusUnknown {
		t.Fatalf("new monitor must start UNKNOWN, got %s", m.Status)
	}

	got, err := s.Get(ctx, m.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Name != "site" {
		t.Fatalf("unexpected monitor: %+v", got)
	}

	got.Name = "renamed"
	got.Interval = time.Minute
	if err := s.Update(ctx, got); err != nil {
		t.Fatalf("Update: %v", err)
	}
	got2, _ := s.Get(ctx, m.ID)
	if got2.Name != "renamed" || got2.Interval != time.Minute {
		t.Fatalf("update not applied: %+v", got2)
	}

	if err := s.SetEnabled(ctx, m.ID, false); err != nil {
		t.Fatalf("SetEnabled: %v", err)
	}
	got3, _ := s.Get(ctx, m.ID)
	if got3.Enabled {
		t.Fatalf("monitor still enabled")
	}

	if err := s.Delete(ctx, m.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Get(ctx, m.ID); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("want ErrNotFound after delete, got %v", err)
	}
	if err := s.Delete(ctx, m.ID); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("double delete must be ErrNotFound, got %v", err)
	}
}

func TestRecordCheck_UpdatesMonitorAndAppendsLog(t *testing.T) {
	ctx := context.Background()
	s := New()
	m := addMonitor(t, s)

	ms := 12.5
	out := domain.CheckOutcome{
		Status:         domain.StatusDown,
		ResponseTimeMS: &ms,
		Error:          "HTTP 503",
		CheckedAt:      time.Now().UTC(),
	}
	id, err := s.RecordCheck(ctx, m.ID, out)
	if err != nil {
		t.Fatalf("RecordCheck: %v", err)
	}
	if id == 0 {
		t.Fatalf("want log id")
	}

	got, _ := s.Get(ctx, m.ID)
	if got.Status != domain.StatusDown || got.LastCheck == nil || got.ResponseTimeMS == nil {
		t.Fatalf("monitor not updated with check: %+v", got)
	}

	logs, err := s.Logs(ctx, m.ID, 10)
	if err != nil {
		t.Fatalf("Logs: %v", err)
	}
	if len(logs) != 1 || logs[0].Status != domain.StatusDown || logs[0].Error != "HTTP 503" {
		t.Fatalf("unexpected logs: %+v", logs)
	}
}

func TestRecordCheck_UnknownMonitor(t *testing.T) {
	s := New()
	_, err := s.RecordCheck(context.Background(), uuid.New(), domain.CheckOutcome{Status: domain.StatusUp})
	if !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestLogs_NewestFirstAndLimited(t *testing.T) {
	ctx := context.Background()
	s := New()
	m := addMonitor(t, s)

	for i := 0; i < 5; i++ {
		st := domain.StatusUp
		if i == 4 {
			st = domain.StatusDown
		}
		s.RecordCheck(ctx, m.ID, domain.CheckOutcome{Status: st, CheckedAt: time.Now().UTC()})
	}

	logs, _ := s.Logs(ctx, m.ID, 2)
	if len(logs) != 2 {
		t.Fatalf("want 2 entries, got %d", len(logs))
	}
	if logs[0].Status != domain.StatusDown {
		t.Fatalf("want newest entry first, got %+v", logs[0])
	}
}

func TestUptimePercent(t *testing.T) {
	ctx := context.Background()
	s := New()
	m := addMonitor(t, s)

	now := time.Now().UTC()
	for i, st := range []domain.Status{domain.StatusUp, domain.StatusUp, domain.StatusUp, domain.StatusDown} {
		s.RecordCheck(ctx, m.ID, domain.CheckOutcome{Status: st, CheckedAt: now.Add(time.Duration(i) * time.Second)})
	}
	// Outside the window, must not count.
	s.RecordCheck(ctx, m.ID, domain.CheckOutcome{Status: domain.StatusDown, CheckedAt: now.Add(-48 * time.Hour)})

	pct, err := s.UptimePercent(ctx, m.ID, 24*time.Hour)
	if err != nil {
		t.Fatalf("UptimePercent: %v", err)
	}
	if pct != 75 {
		t.Fatalf("want 75, got %v", pct)
	}

	empty, _ := s.UptimePercent(ctx, uuid.New(), 24*time.Hour)
	if empty != 0 {
		t.Fatalf("no data must be 0, got %v", empty)
	}
}

func TestPruneLogs(t *testing.T) {
	ctx := context.Background()
	s := New()
	m := addMonitor(t, s)

	now := time.Now().UTC()
	s.RecordCheck(ctx, m.ID, domain.CheckOutcome{Status: domain.StatusUp, CheckedAt: now.Add(-2 * time.Hour)})
	s.RecordCheck(ctx, m.ID, domain.CheckOutcome{Status: domain.StatusUp, CheckedAt: now})

	removed, err := s.PruneLogs(ctx, now.Add(-time.Hour))
	if err != nil {
		t.Fatalf("PruneLogs: %v", err)
	}
	if removed != 1 {
		t.Fatalf("want 1 removed, got %d", removed)
	}
	logs, _ := s.Logs(ctx, m.ID, 0)
	if len(logs) != 1 {
		t.Fatalf("want 1 remaining, got %d", len(logs))
	}
}

func TestNotificationHistory(t *testing.T) {
	ctx := context.Background()
	s := New()

	for i := 0; i < 3; i++ {
		res := domain.DispatchSent
		if i == 2 {
			res = domain.DispatchFailed
		}
		err := s.AppendNotification(ctx, &domain.NotificationRecord{
			MonitorID: uuid.New(),
			Channel:   domain.ChannelWebhook,
			Status:    domain.StatusDown,
			Result:    res,
		})
		if err != nil {
			t.Fatalf("AppendNotification: %v", err)
		}
	}

	hist, err := s.NotificationHistory(ctx, 2)
	if err != nil {
		t.Fatalf("NotificationHistory: %v", err)
	}
	if len(hist) != 2 {
		t.Fatalf("want 2, got %d", len(hist))
	}
	if hist[0].Result != domain.DispatchFailed {
		t.Fatalf("want newest first, got %+v", hist[0])
	}
	if hist[0].SentAt.IsZero() {
		t.Fatalf("SentAt must be stamped")
	}
}

func TestSettingsRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := New()

	got, err := s.LoadSettings(ctx)
	if err != nil {
		t.Fatalf("LoadSettings: %v", err)
	}
	if got.WebhookURL != "" {
		t.Fatalf("want empty settings initially, got %+v", got)
	}

	want := domain.NotificationSettings{
		WebhookURL:  "https://hooks.example.com/x",
		AWSRegion:   "eu-west-1",
		SNSTopicARN: "arn:aws:sns:eu-west-1:1:alerts",
	}
	if err := s.SaveSettings(ctx, want); err != nil {
		t.Fatalf("SaveSettings: %v", err)
	}
	got, _ = s.LoadSettings(ctx)
	if got != want {
		t.Fatalf("settings round trip: got %+v", got)
	}
}

func TestHeartbeats(t *testing.T) {
	ctx := context.Background()
	s := New()
	m := addMonitor(t, s)

	beat, err := s.LastBeat(ctx, m.ID)
	if err != nil {
		t.Fatalf("LastBeat: %v", err)
	}
	if beat != nil {
		t.Fatalf("want nil before any beat, got %v", beat)
	}

	first := time.Now().UTC().Add(-time.Minute)
	second := time.Now().UTC()
	s.RecordBeat(ctx, m.ID, first)
	s.RecordBeat(ctx, m.ID, second)

	beat, _ = s.LastBeat(ctx, m.ID)
	if beat == nil || !beat.Equal(second) {
		t.Fatalf("want latest beat, got %v", beat)
	}

	// Deleting the monitor clears its beats.
	s.Delete(ctx, m.ID)
	beat, _ = s.LastBeat(ctx, m.ID)
	if beat != nil {
		t.Fatalf("beats must not survive delete, got %v", beat)
	}
}
