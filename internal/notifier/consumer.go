package notifier

import (
	"context"
	"fmt"
	"log/slog"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/voltmatch/voltmatch-be/internal/api/domain"
)

// setupConsumer sets up the RabbitMQ consumer with QoS and returns the
// delivery channel
func (w *Worker) setupConsumer(ctx context.Context) (<-chan amqp.Delivery, error) {
	channel := w.rabbitClient.Channel()
	if channel == nil {
		return nil, fmt.Errorf("rabbitmq channel is nil")
	}

	// prefetch_count caps unacknowledged messages per consumer;
	// prefetch_size 0 means no byte limit; global false means per-consumer
	err := channel.Qos(
		w.prefetchCount, // prefetch count from config
		0,               // prefetch size
		false,           // global
	)

	if err != nil {
		return nil, fmt.Errorf("failed to set QoS: %w", err)
	}

	w.logger.Info("RabbitMQ QoS configured",
		slog.Int("prefetch_count", w.prefetchCount),
	)

	deliveries, err := w.rabbitClient.Consume(w.workerID)
	if err != nil {
		return nil, fmt.Errorf("failed to start consuming: %w", err)
	}

	w.logger.Info("RabbitMQ consumer started",
		slog.String("consumer_tag", w.workerID),
		slog.String("queue", w.queueName),
	)

	return deliveries, nil
}

// startMessageDispatcher reads queue deliveries, decodes the event
// envelope and feeds the worker pool. It blocks until the context is
// canceled or the delivery channel closes.
func (w *Worker) startMessageDispatcher(ctx context.Context, deliveries <-chan amqp.Delivery) {
	w.logger.Info("Event dispatcher started",
		slog.String("worker_id", w.workerID),
	)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("Event dispatcher stopped - context canceled")
			return

		case delivery, ok := <-deliveries:
			if !ok {
				w.logger.Warn("RabbitMQ delivery channel closed")
				return
			}

			ev, err := domain.DecodeEvent(delivery.Body)
			if err != nil {
				w.logger.Error("Failed to decode event envelope",
					slog.Any("error", err),
					slog.String("body", string(delivery.Body)),
				)
				// NACK without requeue - malformed envelopes go to the DLQ
				if nackErr := delivery.Nack(false, false); nackErr != nil {
					w.logger.Error("Failed to NACK malformed event",
						slog.Any("error", nackErr),
					)
				}
				continue
			}

			msg := &eventMessage{
				Event:       ev,
				DeliveryTag: delivery.DeliveryTag,
			}

			select {
			case w.eventsChan <- msg:
				w.logger.Debug("Event dispatched to worker pool",
					slog.String("event_type", string(ev.Kind())),
					slog.Uint64("delivery_tag", delivery.DeliveryTag),
				)
			case <-ctx.Done():
				w.logger.Info("Event dispatcher stopped while dispatching")
				// NACK with requeue so the event survives the shutdown
				if nackErr := delivery.Nack(false, true); nackErr != nil {
					w.logger.Error("Failed to NACK event on shutdown",
						slog.Any("error", nackErr),
					)
				}
				return
			}
		}
	}
}
