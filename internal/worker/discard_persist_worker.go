package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog/log"

	"docuchat/internal/model"
	"docuchat/internal/platform/rabbitmq"
	"docuchat/internal/repository"
)

// DiscardPersistWorker drains the discard queue into attribution_discards so
// rejected citation claims survive for analytics without slowing chat turns.
type DiscardPersistWorker struct {
	conn      *amqp.Connection
	repo      *repository.DiscardRepository
	queueName string

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewDiscardPersistWorker(conn *amqp.Connection, repo *repository.DiscardRepository, queueName string) *DiscardPersistWorker {
	return &DiscardPersistWorker{
		conn:      conn,
		repo:      repo,
		queueName: queueName,
	}
}

func (w *DiscardPersistWorker) Start(ctx context.Context) error {
	if w.cancel != nil {
		return nil
	}

	workerCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	ch, err := w.conn.Channel()
	if err != nil {
		cancel()
		return fmt.Errorf("open worker channel failed: %w", err)
	}

	_, err = ch.QueueDeclare(
		w.queueName,
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("declare worker queue failed: %w", err)
	}

	deliveries, err := ch.Consume(
		w.queueName,
		"",
		false,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("consume queue failed: %w", err)
	}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer ch.Close()

		for {
			select {
			case <-workerCtx.Done():
				return
			case d, ok := <-deliveries:
				if !ok {
					return
				}

				var event rabbitmq.DiscardEvent
				if err := json.Unmarshal(d.Body, &event); err != nil {
					log.Error().Err(err).Msg("worker decode discard event failed")
					_ = d.Nack(false, false)
					continue
				}

				if err := w.repo.Create(&model.AttributionDiscard{
					InteractionID:   event.InteractionID,
					ClaimedFilename: event.ClaimedFilename,
				}); err != nil {
					log.Error().Err(err).Uint("interaction_id", event.InteractionID).Msg("worker persist discard failed")
					_ = d.Nack(false, false)
					continue
				}

				_ = d.Ack(false)
			}
		}
	}()

	return nil
}

func (w *DiscardPersistWorker) Close() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
}
