package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/pulsemon/pulsemon/internal/domain"
)

// Webhook POSTs a minimal JSON document to the configured URL.
type Webhook struct {
	Client *http.Client
}

func NewWebhook(timeout time.Duration) *Webhook {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Webhook{Client: &http.Client{Timeout: timeout}}
}

func (w *Webhook) Kind() domain.Channel { return domain.ChannelWebhook }

func (w *Webhook) Configured(s domain.NotificationSettings) bool {
	return s.WebhookConfigured()
}

type webhookPayload struct {
	MonitorID   string `json:"monitor_id"`
	MonitorName string `json:"monitor_name"`
	Status      string `json:"status"`
	Message     string `json:"message"`
	Timestamp   string `json:"timestamp"`
	Test        bool   `json:"test,omitempty"`
}

func (w *Webhook) Send(ctx context.Context, s domain.NotificationSettings, p Payload) (string, error) {
	body, err := json.Marshal(webhookPayload{
		MonitorID:   p.MonitorID.String(),
		MonitorName: p.MonitorName,
		Status:      string(p.Status),
		Message:     p.Message,
		Timestamp:   p.Timestamp.Format(time.RFC3339),
		Test:        p.Test,
	})
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.WebhookURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.Client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return "", fmt.Errorf("webhook returned HTTP %d", resp.StatusCode)
	}
	return fmt.Sprintf("HTTP %d", resp.StatusCode), nil
}
