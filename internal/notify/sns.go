package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sns"

	"github.com/pulsemon/pulsemon/internal/domain"
)

// SNS publishes a human-readable alert to the configured topic. The client is
// rebuilt from the settings snapshot on each send, so rotated credentials or
// a changed topic take effect on the next dispatch.
type SNS struct{}

func NewSNS() *SNS { return &SNS{} }

func (n *SNS) Kind() domain.Channel { return domain.ChannelSNS }

func (n *SNS) Configured(s domain.NotificationSettings) bool {
	return s.SNSConfigured()
}

func (n *SNS) Send(ctx context.Context, s domain.NotificationSettings, p Payload) (string, error) {
	region := s.AWSRegion
	if region == "" {
		region = "us-east-1"
	}
	client := sns.New(sns.Options{
		Region: region,
		Credentials: aws.NewCredentialsCache(
			credentials.NewStaticCredentialsProvider(s.AWSAccessKey, s.AWSSecretKey, ""),
		),
	})

	subject := fmt.Sprintf("Alert: %s is %s", p.MonitorName, p.Status)
	if p.Test {
		subject = "Test notification from pulsemon"
	}
	out, err := client.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(s.SNSTopicARN),
		Subject:  aws.String(subject),
		Message:  aws.String(renderSNSBody(p)),
	})
	if err != nil {
		return "", err
	}
	return "MessageId: " + aws.ToString(out.MessageId), nil
}

func renderSNSBody(p Payload) string {
	if p.Test {
		return "This is a test notification. Your SNS integration is working correctly."
	}
	return fmt.Sprintf(`Uptime Monitor Alert
====================

Monitor: %s
Status: %s
Message: %s
Monitor ID: %s
Time: %s

This is an automated alert from your uptime monitoring system.
`,
		p.MonitorName, p.Status, p.Message, p.MonitorID, p.Timestamp.Format(time.RFC3339))
}
