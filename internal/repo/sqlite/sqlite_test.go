package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/pulsemon/pulsemon/internal/domain"
	"github.com/pulsemon/pulsemon/internal/repo"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func addMonitor(t *testing.T, s *Store) *domain.Monitor {
	t.Helper()
	m := &domain.Monitor{
		Name:     "site",
		Kind:     domain.KindKeyword,
		URL:      "https://example.com",
		Keyword:  "Welcome",
		Interval: 30 * time.Second,
		Enabled:  true,
	}
	if err := s.Add(context.Background(), m); err != nil {
		t.Fatalf("Add: %v", err)
	}
	return m
}

func TestMigrationsAreIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := New(path)
	if err != nil {
		t.Fatalf("first open: %v", err)
	}
	m := addMonitor(t, s)
	s.Close()

	// Reopening must replay nothing and keep the data.
	s2, err := New(path)
	if err != nil {
		t.Fatalf("second open: %v", err)
	}
	defer s2.Close()
	got, err := s2.Get(context.Background(), m.ID)
	if err != nil {
		t.Fatalf("Get after reopen: %v", err)
	}
	if got.Name != "site" || got.Keyword != "Welcome" {
		t.Fatalf("data lost across reopen: %+v", got)
	}
}

func TestMonitorRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	m := addMonitor(t, s)

	got, err := s.Get(ctx, m.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Kind != domain.KindKeyword || got.Interval != 30*time.Second || !got.Enabled {
		t.Fatalf("round trip mismatch: %+v", got)
	}
	if got.Status != domain.StatusUnknown || got.LastCheck != nil {
		t.Fatalf("new monitor must be UNKNOWN with no last check: %+v", got)
	}

	got.Name = "renamed"
	got.Interval = 2 * time.Minute
	if err := s.Update(ctx, got); err != nil {
		t.Fatalf("Update: %v", err)
	}
	again, _ := s.Get(ctx, m.ID)
	if again.Name != "renamed" || again.Interval != 2*time.Minute {
		t.Fatalf("update not persisted: %+v", again)
	}

	if err := s.Update(ctx, &domain.Monitor{ID: uuid.New()}); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("update of missing monitor: want ErrNotFound, got %v", err)
	}
}

func TestRecordCheck_MonitorAndLogAgree(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	m := addMonitor(t, s)

	ms := 42.0
	out := domain.CheckOutcome{
		Status:         domain.StatusDown,
		ResponseTimeMS: &ms,
		Error:          "HTTP 503",
		CheckedAt:      time.Now().UTC().Truncate(time.Second),
	}
	logID, err := s.RecordCheck(ctx, m.ID, out)
	if err != nil {
		t.Fatalf("RecordCheck: %v", err)
	}
	if logID == 0 {
		t.Fatalf("want log id")
	}

	got, _ := s.Get(ctx, m.ID)
	logs, _ := s.Logs(ctx, m.ID, 1)
	if len(logs) != 1 {
		t.Fatalf("want 1 log, got %d", len(logs))
	}
	if got.Status != logs[0].Status {
		t.Fatalf("monitor %s disagrees with log %s", got.Status, logs[0].Status)
	}
	if logs[0].Error != "HTTP 503" || logs[0].ResponseTimeMS == nil || *logs[0].ResponseTimeMS != 42.0 {
		t.Fatalf("unexpected log: %+v", logs[0])
	}
}

func TestRecordCheck_UnknownMonitorRollsBack(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	m := addMonitor(t, s)

	_, err := s.RecordCheck(ctx, uuid.New(), domain.CheckOutcome{
		Status:    domain.StatusUp,
		CheckedAt: time.Now().UTC(),
	})
	if !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
	logs, _ := s.Logs(ctx, m.ID, 10)
	if len(logs) != 0 {
		t.Fatalf("failed check must leave no log rows, got %d", len(logs))
	}
}

func TestDeleteCascadesLogs(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	m := addMonitor(t, s)
	s.RecordCheck(ctx, m.ID, domain.CheckOutcome{Status: domain.StatusUp, CheckedAt: time.Now().UTC()})

	if err := s.Delete(ctx, m.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	logs, _ := s.Logs(ctx, m.ID, 10)
	if len(logs) != 0 {
		t.Fatalf("logs must cascade on delete, got %d", len(logs))
	}
}

func TestUptimePercentAndPrune(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	m := addMonitor(t, s)

	now := time.Now().UTC()
	for _, st := range []domain.Status{domain.StatusUp, domain.StatusUp, domain.StatusDown, domain.StatusUp} {
		if _, err := s.RecordCheck(ctx, m.ID, domain.CheckOutcome{Status: st, CheckedAt: now}); err != nil {
			t.Fatalf("RecordCheck: %v", err)
		}
	}

	pct, err := s.UptimePercent(ctx, m.ID, time.Hour)
	if err != nil {
		t.Fatalf("UptimePercent: %v", err)
	}
	if pct != 75 {
		t.Fatalf("want 75, got %v", pct)
	}

	removed, err := s.PruneLogs(ctx, now.Add(time.Hour))
	if err != nil {
		t.Fatalf("PruneLogs: %v", err)
	}
	if removed != 4 {
		t.Fatalf("want 4 pruned, got %d", removed)
	}
}

func TestNotificationHistoryRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	m := addMonitor(t, s)

	rec := &domain.NotificationRecord{
		MonitorID: m.ID,
		Channel:   domain.ChannelSNS,
		Status:    domain.StatusDown,
		Result:    domain.DispatchSent,
		Message:   "MessageId: abc",
	}
	if err := s.AppendNotification(ctx, rec); err != nil {
		t.Fatalf("AppendNotification: %v", err)
	}
	if rec.ID == 0 {
		t.Fatalf("want record id assigned")
	}

	hist, err := s.NotificationHistory(ctx, 10)
	if err != nil {
		t.Fatalf("NotificationHistory: %v", err)
	}
	if len(hist) != 1 || hist[0].Channel != domain.ChannelSNS || hist[0].Result != domain.DispatchSent {
		t.Fatalf("unexpected history: %+v", hist)
	}
}

func TestSettingsRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	empty, err := s.LoadSettings(ctx)
	if err != nil {
		t.Fatalf("LoadSettings: %v", err)
	}
	if empty != (domain.NotificationSettings{}) {
		t.Fatalf("want empty settings, got %+v", empty)
	}

	want := domain.NotificationSettings{
		WebhookURL:   "https://hooks.example.com/x",
		AWSAccessKey: "AKIA123",
		AWSSecretKey: "secret",
		AWSRegion:    "eu-west-1",
		SNSTopicARN:  "arn:aws:sns:eu-west-1:1:alerts",
	}
	if err := s.SaveSettings(ctx, want); err != nil {
		t.Fatalf("SaveSettings: %v", err)
	}
	got, _ := s.LoadSettings(ctx)
	if got != want {
		t.Fatalf("settings round trip: got %+v", got)
	}

	// Overwrite replaces, not appends.
	want.WebhookURL = ""
	s.SaveSettings(ctx, want)
	got, _ = s.LoadSettings(ctx)
	if got.WebhookURL != "" {
		t.Fatalf("cleared value must stay cleared: %+v", got)
	}
}

func TestHeartbeatUpsert(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	m := addMonitor(t, s)

	beat, err := s.LastBeat(ctx, m.ID)
	if err != nil {
		t.Fatalf("LastBeat: %v", err)
	}
	if beat != nil {
		t.Fatalf("want nil before any beat")
	}

	first := time.Now().UTC().Add(-time.Minute).Truncate(time.Second)
	second := time.Now().UTC().Truncate(time.Second)
	if err := s.RecordBeat(ctx, m.ID, first); err != nil {
		t.Fatalf("RecordBeat: %v", err)
	}
	if err := s.RecordBeat(ctx, m.ID, second); err != nil {
		t.Fatalf("RecordBeat upsert: %v", err)
	}

	beat, _ = s.LastBeat(ctx, m.ID)
	if beat == nil || !beat.Equal(second) {
		t.Fatalf("want latest beat %v, got %v", second, beat)
	}
}
