package notify

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/pulsemon/pulsemon/internal/domain"
	"github.com/pulsemon/pulsemon/internal/repo"
)

// Dispatcher fans a transition event out to every configured channel. It is
// an independent failure domain: channel errors are logged and recorded but
// never reach the check loop, and delivery happens off the caller's goroutine
// so dispatch can never stall a schedule.
type Dispatcher struct {
	channels []Notifier
	records  repo.NotificationStore
	logger   *zap.Logger

	// retry budget per channel, decoupled from the check loop
	attempts int
	backoff  time.Duration
	timeout  time.Duration

	settings atomic.Pointer[domain.NotificationSettings]
	wg       sync.WaitGroup
}

type DispatcherConfig struct {
	RetryAttempts int           // extra attempts after the first send
	RetryBackoff  time.Duration // doubled each retry, total budget stays small
	SendTimeout   time.Duration
}

func NewDispatcher(records repo.NotificationStore, logger *zap.Logger, cfg DispatcherConfig, channels ...Notifier) *Dispatcher {
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = 10 * time.Second
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = 500 * time.Millisecond
	}
	d := &Dispatcher{
		channels: channels,
		records:  records,
		logger:   logger,
		attempts: cfg.RetryAttempts,
		backoff:  cfg.RetryBackoff,
		timeout:  cfg.SendTimeout,
	}
	d.settings.Store(&domain.NotificationSettings{})
	return d
}

// UpdateSettings atomically replaces the snapshot read by subsequent sends.
func (d *Dispatcher) UpdateSettings(s domain.NotificationSettings) {
	d.settings.Store(&s)
}

func (d *Dispatcher) Settings() domain.NotificationSettings {
	return *d.settings.Load()
}

// Dispatch delivers the event through all configured channels asynchronously.
func (d *Dispatcher) Dispatch(ev domain.StatusEvent) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.dispatch(ev)
	}()
}

func (d *Dispatcher) dispatch(ev domain.StatusEvent) {
	msg := ev.Outcome.Error
	if msg == "" {
		msg = "status changed from " + string(ev.Transition.Previous) + " to " + string(ev.Transition.New)
	}
	p := Payload{
		MonitorID:   ev.MonitorID,
		MonitorName: ev.MonitorName,
		Status:      ev.Transition.New,
		Message:     msg,
		Timestamp:   ev.Outcome.CheckedAt,
	}

	s := d.Settings()
	for _, ch := range d.channels {
		if !ch.Configured(s) {
			continue
		}
		detail, err := d.sendWithRetry(ch, s, p)
		d.record(ch.Kind(), p, detail, err)
	}
}

func (d *Dispatcher) sendWithRetry(ch Notifier, s domain.NotificationSettings, p Payload) (string, error) {
	backoff := d.backoff
	var lastErr error
	for attempt := 0; attempt <= d.attempts; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		detail, err := ch.Send(ctx, s, p)
		cancel()
		if err == nil {
			return detail, nil
		}
		lastErr = err
		d.logger.Warn("dispatch_attempt_failed",
			zap.String("channel", string(ch.Kind())),
			zap.String("monitor_id", p.MonitorID.String()),
			zap.Int("attempt", attempt+1),
			zap.Error(err),
		)
		if attempt < d.attempts {
			time.Sleep(backoff)
			backoff *= 2
		}
	}
	return "", lastErr
}

func (d *Dispatcher) record(kind domain.Channel, p Payload, detail string, sendErr error) {
	rec := &domain.NotificationRecord{
		MonitorID: p.MonitorID,
		Channel:   kind,
		Status:    p.Status,
		Result:    domain.DispatchSent,
		Message:   detail,
		SentAt:    time.Now().UTC(),
	}
	if sendErr != nil {
		rec.Result = domain.DispatchFailed
		rec.Message = sendErr.Error()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := d.records.AppendNotification(ctx, rec); err != nil {
		d.logger.Error("notification_record_failed",
			zap.String("channel", string(kind)),
			zap.Error(err),
		)
	}
	if sendErr != nil {
		d.logger.Warn("dispatch_failed",
			zap.String("channel", string(kind)),
			zap.String("monitor", p.MonitorName),
			zap.Error(sendErr),
		)
	} else {
		d.logger.Info("dispatch_sent",
			zap.String("channel", string(kind)),
			zap.String("monitor", p.MonitorName),
			zap.String("detail", detail),
		)
	}
}

var ErrChannelNotConfigured = errors.New("channel not configured")

// Test sends a synthetic payload through one channel, bypassing the live
// check flow. Used by the settings UI to verify credentials.
func (d *Dispatcher) Test(ctx context.Context, kind domain.Channel) (string, error) {
	s := d.Settings()
	for _, ch := range d.channels {
		if ch.Kind() != kind {
			continue
		}
		if !ch.Configured(s) {
			return "", ErrChannelNotConfigured
		}
		return ch.Send(ctx, s, Payload{
			MonitorName: "pulsemon",
			Status:      domain.StatusUp,
			Message:     "This is a test notification from your uptime monitor.",
			Timestamp:   time.Now().UTC(),
			Test:        true,
		})
	}
	return "", errors.New("unknown channel: " + string(kind))
}

// Wait blocks until in-flight dispatches finish. Called during shutdown.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}
