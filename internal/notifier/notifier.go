// Package notifier is the fire-and-forget notification sink. Publishing a
// notification must never abort the booking operation that triggered it, so
// failures are logged and swallowed here.
package notifier

import (
	"context"
	"log/slog"
	"time"

	"github.com/flexmatch/flexmatch-api/internal/models"
	"github.com/flexmatch/flexmatch-api/pkg/rabbitmq"
	"github.com/google/uuid"
)

const RoutingKeyCreated = "notification.created"

// Message is the notification payload handed to the sink.
type Message struct {
	RecipientID  uint                    `json:"recipient_id"`
	SenderID     *uint                   `json:"sender_id,omitempty"`
	Type         models.NotificationType `json:"type"`
	Title        string                  `json:"title"`
	Content      string                  `json:"content"`
	RelatedModel string                  `json:"related_model"`
	RelatedID    uint                    `json:"related_id"`
}

// Envelope wraps a Message for the wire. The ID lets downstream consumers
// deduplicate redelivered events.
type Envelope struct {
	ID         string    `json:"id"`
	OccurredAt time.Time `json:"occurred_at"`
	Message    Message   `json:"message"`
}

type Sink interface {
	Notify(ctx context.Context, msg Message)
}

type rabbitSink struct {
	publisher *rabbitmq.Publisher
	logger    *slog.Logger
}

func NewRabbitSink(publisher *rabbitmq.Publisher, logger *slog.Logger) Sink {
	return &rabbitSink{publisher: publisher, logger: logger}
}

func (s *rabbitSink) Notify(ctx context.Context, msg Message) {
	if s.publisher == nil {
		return
	}
	env := Envelope{
		ID:         uuid.NewString(),
		OccurredAt: time.Now().UTC(),
		Message:    msg,
	}
	if err := s.publisher.PublishJSON(ctx, RoutingKeyCreated, env); err != nil {
		s.logger.Error("failed to publish notification",
			"recipient_id", msg.RecipientID,
			"type", msg.Type,
			"error", err,
		)
	}
}
