package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/flexmatch/flexmatch-api/internal/models"
	"github.com/flexmatch/flexmatch-api/internal/notifier"
	"github.com/flexmatch/flexmatch-api/internal/realtime"
	"github.com/flexmatch/flexmatch-api/internal/repository"
	"github.com/flexmatch/flexmatch-api/pkg/rabbitmq"
	amqp "github.com/rabbitmq/amqp091-go"
)

// NotificationConsumer drains the notification queue: every event is
// persisted to the recipient's inbox, and recipients with a live connection
// get the event republished on their realtime routing key for the delivery
// collaborator to pick up.
type NotificationConsumer struct {
	notifications repository.NotificationRepository
	registry      realtime.Registry
	publisher     *rabbitmq.Publisher
	logger        *slog.Logger
}

func NewNotificationConsumer(
	notifications repository.NotificationRepository,
	registry realtime.Registry,
	publisher *rabbitmq.Publisher,
	logger *slog.Logger,
) *NotificationConsumer {
	return &NotificationConsumer{
		notifications: notifications,
		registry:      registry,
		publisher:     publisher,
		logger:        logger,
	}
}

// Start listens for messages until the channel closes.
func (nc *NotificationConsumer) Start(msgs <-chan amqp.Delivery) {
	go func() {
		for msg := range msgs {
			nc.handleMessage(msg)
		}
		nc.logger.Info("notification consumer stopped, channel closed")
	}()
}

func (nc *NotificationConsumer) handleMessage(msg amqp.Delivery) {
	ctx := context.Background()

	var env notifier.Envelope
	if err := json.Unmarshal(msg.Body, &env); err != nil {
		nc.logger.Error("failed to unmarshal notification event", "error", err)
		msg.Nack(false, false)
		return
	}

	n := models.Notification{
		RecipientID:  env.Message.RecipientID,
		SenderID:     env.Message.SenderID,
		Type:         env.Message.Type,
		Title:        env.Message.Title,
		Content:      env.Message.Content,
		RelatedModel: env.Message.RelatedModel,
		RelatedID:    env.Message.RelatedID,
	}
	if err := nc.notifications.Create(ctx, &n); err != nil {
		nc.logger.Error("failed to store notification", "event_id", env.ID, "error", err)
		msg.Nack(false, true) // requeue
		return
	}

	nc.forwardRealtime(ctx, env)
	msg.Ack(false)
}

// forwardRealtime republishes the event for online recipients. Delivery is
// best-effort; the stored notification is the source of truth.
func (nc *NotificationConsumer) forwardRealtime(ctx context.Context, env notifier.Envelope) {
	online, err := nc.registry.IsOnline(ctx, env.Message.RecipientID)
	if err != nil {
		nc.logger.Warn("presence lookup failed", "recipient_id", env.Message.RecipientID, "error", err)
		return
	}
	if !online {
		return
	}

	key := fmt.Sprintf("realtime.user.%d", env.Message.RecipientID)
	if err := nc.publisher.PublishJSON(ctx, key, env); err != nil {
		nc.logger.Warn("realtime forward failed", "recipient_id", env.Message.RecipientID, "error", err)
	}
}
