// Package worker consumes the RabbitMQ job queues.
package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"legiseye/internal/logging"
	"legiseye/internal/metrics"
	"legiseye/internal/platform/rabbitmq"
)

const defaultPrefetch = 4

// ErrInvalidPayload marks deliveries that can never be processed.
var ErrInvalidPayload = errors.New("invalid job payload")

// Handler processes one delivery body. A returned error nacks the delivery
// without requeueing it.
type Handler func(ctx context.Context, body []byte) error

// Consumer runs a Handler for every delivery on one durable queue.
type Consumer struct {
	conn      *amqp.Connection
	queueName string
	handler   Handler
	prefetch  int
	logger    *zap.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewConsumer(conn *amqp.Connection, queueName string, handler Handler, logger *zap.Logger) *Consumer {
	return &Consumer{
		conn:      conn,
		queueName: queueName,
		handler:   handler,
		prefetch:  defaultPrefetch,
		logger:    logging.OrNop(logger).With(zap.String("queue", queueName)),
	}
}

func (c *Consumer) Start(ctx context.Context) error {
	if c.cancel != nil {
		return nil
	}

	workerCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel

	ch, err := c.conn.Channel()
	if err != nil {
		cancel()
		return fmt.Errorf("open worker channel failed: %w", err)
	}
	if err := rabbitmq.DeclareQueue(ch, c.queueName); err != nil {
		_ = ch.Close()
		cancel()
		return err
	}
	if err := ch.Qos(c.prefetch, 0, false); err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("set worker qos failed: %w", err)
	}

	deliveries, err := ch.Consume(
		c.queueName,
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

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer ch.Close()

		for {
			select {
			case <-workerCtx.Done():
				return
			case d, ok := <-deliveries:
				if !ok {
					c.logger.Warn("delivery channel closed")
					return
				}
				c.handle(workerCtx, d)
			}
		}
	}()

	c.logger.Info("worker started")
	return nil
}

func (c *Consumer) handle(ctx context.Context, d amqp.Delivery) {
	err := c.handler(ctx, d.Body)
	switch {
	case err == nil:
		metrics.Jobs.WithLabelValues(c.queueName, "success").Inc()
		_ = d.Ack(false)
	case errors.Is(err, ErrInvalidPayload):
		metrics.Jobs.WithLabelValues(c.queueName, "invalid").Inc()
		c.logger.Error("worker decode job failed", zap.Error(err))
		_ = d.Nack(false, false)
	default:
		metrics.Jobs.WithLabelValues(c.queueName, "error").Inc()
		c.logger.Error("worker process job failed", zap.Error(err))
		_ = d.Nack(false, false)
	}
}

func (c *Consumer) Close() {
	if c.cancel != nil {
		c.cancel()
	}
	c.wg.Wait()
}
