package domain

import (
	"time"

	"github.com/google/uuid"
)

// StatusLogEntry is the immutable historical record of one check. Append-only;
// pruned by the retention job, never by the check loop.
type StatusLogEntry struct {
	ID             int64      `json:"id"`
	MonitorID      uuid.UUID  `json:"monitor_id"`
	Status         Status     `json:"status"`
	ResponseTimeMS *float64   `json:"response_time_ms,omitempty"`
	Error          string     `json:"error,omitempty"`
	CheckedAt      time.Time  `json:"checked_at"`
}

// Channel identifies a notification delivery mechanism.
type Channel string

const (
	ChannelSNS     Channel = "SNS"
	ChannelWebhook Channel = "WEBHOOK"
)

// Dispatch result recorded in NotificationRecord.Result.
const (
	DispatchSent   = "SENT"
	DispatchFailed = "FAILED"
)

// NotificationRecord is the immutable record of one dispatch attempt.
type NotificationRecord struct {
	ID        int64     `json:"id"`
	MonitorID uuid.UUID `json:"monitor_id"`
	Channel   Channel   `json:"channel"`
	Status    Status    `json:"status"` // the status that triggered the dispatch
	Result    string    `json:"result"` // SENT or FAILED
	Message   string    `json:"message"`
	SentAt    time.Time `json:"sent_at"`
}

// NotificationSettings is process-wide dispatch configuration. The dispatcher
// reads the current snapshot on every send; updates replace it atomically.
type NotificationSettings struct {
	WebhookURL   string `json:"webhook_url"`
	AWSAccessKey string `json:"aws_access_key"`
	AWSSecretKey string `json:"aws_secret_key"`
	AWSRegion    string `json:"aws_region"`
	SNSTopicARN  string `json:"sns_topic_arn"`
}

// SNSConfigured reports whether the SNS channel has enough settings to send.
func (s NotificationSettings) SNSConfigured() bool {
	return s.AWSAccessKey != "" && s.AWSSecretKey != "" && s.SNSTopicARN != ""
}

// WebhookConfigured reports whether the webhook channel is usable.
func (s NotificationSettings) WebhookConfigured() bool {
	return s.WebhookURL != ""
}
