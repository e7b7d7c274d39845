package worker

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/support-engine/internal/service"
)

// RedisSink publishes channel-addressed intents on pub/sub. Agent consoles
// and supervisor dashboards subscribe to their own channel.
type RedisSink struct {
	client *redis.Client
	logger *zap.Logger
}

// NewRedisSink builds the sink.
func NewRedisSink(client *redis.Client, logger *zap.Logger) *RedisSink {
	return &RedisSink{client: client, logger: logger}
}

// Name implements DeliverySink.
func (s *RedisSink) Name() string { return "redis" }

// Deliver publishes the event under the recipient channel. Recipients
// without a channel prefix are someone else's concern.
func (s *RedisSink) Deliver(ctx context.Context, intent service.NotificationIntent) error {
	if !strings.HasPrefix(intent.Recipient, service.RecipientAgentPrefix) &&
		!strings.HasPrefix(intent.Recipient, service.RecipientSupervisorPrefix) {
		return nil
	}
	if s.client == nil {
		return nil
	}
	body, err := json.Marshal(intent.Event)
	if err != nil {
		return err
	}
	return s.client.Publish(ctx, intent.Recipient, body).Err()
}

// EmailSink is a placeholder for requester email until a provider is wired.
// It records what would have been sent.
type EmailSink struct {
	from   string
	logger *zap.Logger
}

// NewEmailSink builds the sink.
func NewEmailSink(from string, logger *zap.Logger) *EmailSink {
	return &EmailSink{from: from, logger: logger}
}

// Name implements DeliverySink.
func (s *EmailSink) Name() string { return "email" }

// Deliver implements DeliverySink.
func (s *EmailSink) Deliver(_ context.Context, intent service.NotificationIntent) error {
	if intent.Recipient != service.RecipientRequester || s.from == "" {
		return nil
	}
	s.logger.Debug("email notification",
		zap.String("from", s.from),
		zap.String("ticket_id", intent.Event.TicketID),
		zap.String("event_type", string(intent.Event.Type)))
	return nil
}

// WebhookSink mirrors every intent to an external endpoint when one is
// configured. Delivery itself is stubbed out pending an agreed payload
// contract with the consumer.
type WebhookSink struct {
	url    string
	logger *zap.Logger
}

// NewWebhookSink builds the sink.
func NewWebhookSink(url string, logger *zap.Logger) *WebhookSink {
	return &WebhookSink{url: url, logger: logger}
}

// Name implements DeliverySink.
func (s *WebhookSink) Name() string { return "webhook" }

// Deliver implements DeliverySink.
func (s *WebhookSink) Deliver(_ context.Context, intent service.NotificationIntent) error {
	if s.url == "" {
		return nil
	}
	s.logger.Debug("webhook notification",
		zap.String("url", s.url),
		zap.String("recipient", intent.Recipient),
		zap.String("ticket_id", intent.Event.TicketID),
		zap.String("event_type", string(intent.Event.Type)))
	return nil
}
