package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// DiscardEvent is one citation claim the reconciler rejected, queued for
// asynchronous persistence.
type DiscardEvent struct {
	InteractionID   uint   `json:"interaction_id"`
	ClaimedFilename string `json:"claimed_filename"`
}

type DiscardPublisher struct {
	conn      *amqp.Connection
	queueName string
}

func NewDiscardPublisher(conn *amqp.Connection, queueName string) *DiscardPublisher {
	return &DiscardPublisher{
		conn:      conn,
		queueName: queueName,
	}
}

// PublishDiscards enqueues one event per rejected claim on a durable queue.
func (p *DiscardPublisher) PublishDiscards(ctx context.Context, interactionID uint, claimed []string) error {
	if len(claimed) == 0 {
		return nil
	}

	ch, err := p.conn.Channel()
	if err != nil {
		return fmt.Errorf("open rabbitmq channel failed: %w", err)
	}
	defer ch.Close()

	_, err = ch.QueueDeclare(
		p.queueName,
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("declare queue failed: %w", err)
	}

	for _, filename := range claimed {
		payload, err := json.Marshal(DiscardEvent{
			InteractionID:   interactionID,
			ClaimedFilename: filename,
		})
		if err != nil {
			return fmt.Errorf("marshal discard event failed: %w", err)
		}

		if err := ch.PublishWithContext(
			ctx,
			"",
			p.queueName,
			false,
			false,
			amqp.Publishing{
				ContentType:  "application/json",
				Body:         payload,
				DeliveryMode: amqp.Persistent,
			},
		); err != nil {
			return fmt.Errorf("publish discard event failed: %w", err)
		}
	}
	return nil
}
