package notifier

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/voltmatch/voltmatch-be/internal/api/domain"
	"github.com/voltmatch/voltmatch-be/shared/rabbitmq"
)

// eventMessage pairs a decoded event with its AMQP delivery tag so the
// worker loop can ack after processing.
type eventMessage struct {
	Event       domain.Event
	DeliveryTag uint64
}

// Config holds worker configuration
type Config struct {
	Logger        *slog.Logger
	RabbitClient  *rabbitmq.Client
	Dispatcher    *Dispatcher
	Concurrency   int
	PrefetchCount int
	QueueName     string
}

// Worker consumes lifecycle events from the queue and feeds them to the
// dispatcher through a pool of delivery goroutines.
type Worker struct {
	logger        *slog.Logger
	rabbitClient  *rabbitmq.Client
	dispatcher    *Dispatcher
	concurrency   int
	prefetchCount int
	queueName     string
	workerID      string
	eventsChan    chan *eventMessage
	wg            sync.WaitGroup
	stopChan      chan struct{}
}

// NewWorker creates a new worker instance
func NewWorker(cfg *Config) *Worker {
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 4
	}

	return &Worker{
		logger:        cfg.Logger,
		rabbitClient:  cfg.RabbitClient,
		dispatcher:    cfg.Dispatcher,
		concurrency:   concurrency,
		prefetchCount: cfg.PrefetchCount,
		queueName:     cfg.QueueName,
		workerID:      fmt.Sprintf("notifier-%s", uuid.New().String()[:8]),
		eventsChan:    make(chan *eventMessage, concurrency*2),
		stopChan:      make(chan struct{}),
	}
}

// Start begins consuming and dispatching events. It blocks until the
// context is canceled.
func (w *Worker) Start(ctx context.Context) error {
	w.logger.Info("Starting notifier worker",
		slog.String("worker_id", w.workerID),
		slog.Int("concurrency", w.concurrency),
	)

	deliveries, err := w.setupConsumer(ctx)
	if err != nil {
		return fmt.Errorf("failed to set up consumer: %w", err)
	}

	w.spawnWorkerPool(ctx)
	w.startMessageDispatcher(ctx, deliveries)

	return nil
}

// Stop gracefully stops the worker
func (w *Worker) Stop() {
	w.logger.Info("Stopping notifier worker...")
	close(w.stopChan)
	w.wg.Wait()
	w.logger.Info("Notifier worker stopped")
}
