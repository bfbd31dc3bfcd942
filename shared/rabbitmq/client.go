package rabbitmq

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Config holds RabbitMQ connection configuration
type Config struct {
	Host               string
	Port               int
	User               string
	Password           string
	VHost              string
	ExchangeName       string
	ExchangeType       string
	ExchangeDurable    bool
	ExchangeAutoDelete bool
	QueueName          string
	QueueDurable       bool
	QueueAutoDelete    bool
	QueueExclusive     bool
	BindingKeys        []string
	RetryAttempts      int
	RetryInterval      time.Duration
	Heartbeat          time.Duration
	ConnectionTimeout  time.Duration
	PublishRetries     int
	PublishRetryDelay  time.Duration
	PublishBackoffMult float64
}

// Client wraps a single AMQP connection and channel with the exchange,
// queue, and bindings from Config already declared.
type Client struct {
	cfg     *Config
	conn    *amqp.Connection
	channel *amqp.Channel
	logger  *slog.Logger
	closed  chan *amqp.Error
}

// NewClient dials RabbitMQ and declares the configured topology.
func NewClient(cfg *Config, logger *slog.Logger) (*Client, error) {
	c := &Client{cfg: cfg, logger: logger}

	conn, err := c.dial()
	if err != nil {
		return nil, err
	}
	c.conn = conn

	c.channel, err = conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	if err := c.declareTopology(); err != nil {
		c.channel.Close()
		conn.Close()
		return nil, err
	}

	c.closed = make(chan *amqp.Error)
	c.channel.NotifyClose(c.closed)

	logger.Info("RabbitMQ client ready",
		slog.String("exchange", cfg.ExchangeName),
		slog.String("queue", cfg.QueueName),
	)
	return c, nil
}

func (c *Client) dial() (*amqp.Connection, error) {
	url := fmt.Sprintf("amqp://%s:%s@%s:%d%s",
		c.cfg.User, c.cfg.Password, c.cfg.Host, c.cfg.Port, c.cfg.VHost)

	amqpCfg := amqp.Config{
		Heartbeat: c.cfg.Heartbeat,
		Dial:      amqp.DefaultDial(c.cfg.ConnectionTimeout),
	}

	var lastErr error
	for attempt := 1; attempt <= c.cfg.RetryAttempts; attempt++ {
		conn, err := amqp.DialConfig(url, amqpCfg)
		if err == nil {
			return conn, nil
		}
		lastErr = err

		c.logger.Warn("RabbitMQ dial failed",
			slog.Int("attempt", attempt),
			slog.Int("max_attempts", c.cfg.RetryAttempts),
			slog.Any("error", err),
		)
		if attempt < c.cfg.RetryAttempts {
			time.Sleep(c.cfg.RetryInterval)
		}
	}
	return nil, fmt.Errorf("failed to connect to RabbitMQ after %d attempts: %w", c.cfg.RetryAttempts, lastErr)
}

// declareTopology declares the exchange and queue, then binds the queue
// under every configured routing-key pattern. With no patterns configured
// the queue receives everything.
func (c *Client) declareTopology() error {
	err := c.channel.ExchangeDeclare(
		c.cfg.ExchangeName,
		c.cfg.ExchangeType,
		c.cfg.ExchangeDurable,
		c.cfg.ExchangeAutoDelete,
		false, // internal
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to declare exchange %q: %w", c.cfg.ExchangeName, err)
	}

	_, err = c.channel.QueueDeclare(
		c.cfg.QueueName,
		c.cfg.QueueDurable,
		c.cfg.QueueAutoDelete,
		c.cfg.QueueExclusive,
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to declare queue %q: %w", c.cfg.QueueName, err)
	}

	keys := c.cfg.BindingKeys
	if len(keys) == 0 {
		keys = []string{"#"}
	}
	for _, key := range keys {
		if err := c.channel.QueueBind(c.cfg.QueueName, key, c.cfg.ExchangeName, false, nil); err != nil {
			return fmt.Errorf("failed to bind queue with key %q: %w", key, err)
		}
	}
	return nil
}

// PublishWithRetry publishes a persistent message, retrying transient
// failures with exponential backoff before giving up.
func (c *Client) PublishWithRetry(ctx context.Context, routingKey string, body []byte, contentType string) error {
	maxRetries := c.cfg.PublishRetries
	if maxRetries <= 0 {
		maxRetries = 3
	}
	delay := c.cfg.PublishRetryDelay
	if delay <= 0 {
		delay = 100 * time.Millisecond
	}
	mult := c.cfg.PublishBackoffMult
	if mult <= 0 {
		mult = 2.0
	}

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		err := c.channel.PublishWithContext(ctx,
			c.cfg.ExchangeName,
			routingKey,
			false, // mandatory
			false, // immediate
			amqp.Publishing{
				ContentType:  contentType,
				Body:         body,
				DeliveryMode: amqp.Persistent,
				Timestamp:    time.Now(),
			},
		)
		if err == nil {
			c.logger.Debug("published message",
				slog.String("routing_key", routingKey),
				slog.Int("body_size", len(body)),
				slog.Int("attempt", attempt+1),
			)
			return nil
		}
		lastErr = err

		if attempt < maxRetries {
			c.logger.Warn("publish failed, retrying",
				slog.String("routing_key", routingKey),
				slog.Int("attempt", attempt+1),
				slog.Duration("retry_after", delay),
				slog.Any("error", err),
			)
			time.Sleep(delay)
			delay = time.Duration(float64(delay) * mult)
		}
	}

	c.logger.Error("publish gave up",
		slog.String("routing_key", routingKey),
		slog.Int("attempts", maxRetries+1),
		slog.Any("error", lastErr),
	)
	return fmt.Errorf("failed to publish message after %d attempts: %w", maxRetries+1, lastErr)
}

// Consume starts delivering messages from the configured queue.
// Deliveries require manual acknowledgement.
func (c *Client) Consume(consumerTag string) (<-chan amqp.Delivery, error) {
	deliveries, err := c.channel.Consume(
		c.cfg.QueueName,
		consumerTag,
		false, // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to consume from queue %q: %w", c.cfg.QueueName, err)
	}

	c.logger.Info("consuming from queue",
		slog.String("queue", c.cfg.QueueName),
		slog.String("consumer_tag", consumerTag),
	)
	return deliveries, nil
}

// Channel exposes the underlying AMQP channel for QoS tuning.
func (c *Client) Channel() *amqp.Channel {
	return c.channel
}

// Close shuts down the channel and connection.
func (c *Client) Close() error {
	if c.channel != nil {
		if err := c.channel.Close(); err != nil {
			c.logger.Warn("failed to close RabbitMQ channel", slog.Any("error", err))
		}
	}
	if c.conn != nil {
		if err := c.conn.Close(); err != nil {
			return fmt.Errorf("failed to close RabbitMQ connection: %w", err)
		}
	}
	c.logger.Info("RabbitMQ connection closed")
	return nil
}
