// Package broker wraps the Kafka transport behind the small surface the
// pipeline needs: connect with retry, idempotent topic creation, persistent
// publish, and consume with explicit per-message acknowledgment.
package broker

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// Disposition is the terminal state a message handler assigns to one
// delivery. The transport maps it onto offset commits.
type Disposition int

const (
	// Ack marks the message fully processed; its offset is committed.
	Ack Disposition = iota
	// Requeue leaves the message uncommitted so the broker redelivers it.
	Requeue
	// Reject commits the offset without processing, permanently dropping a
	// poison message so it can never loop.
	Reject
)

func (d Disposition) String() string {
	switch d {
	case Ack:
		return "ack"
	case Requeue:
		return "requeue"
	case Reject:
		return "reject"
	default:
		return "unknown"
	}
}

// Handler processes one delivered payload and returns its terminal state.
type Handler func(ctx context.Context, payload []byte) Disposition

// ErrRequeue is returned by Consume when a handler asked for redelivery.
// The caller restarts the reader, which resumes from the last committed
// offset and so delivers the message again.
var ErrRequeue = errors.New("message requeued for redelivery")

// Fetcher is the part of kafka.Reader the consume loop uses.
type Fetcher interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
}

// Client holds broker addresses and the shared retry policy.
type Client struct {
	brokers       []string
	retryInterval time.Duration
	logger        *zap.SugaredLogger

	// sleep is replaceable so tests can run the reconnect loop without
	// real delays.
	sleep func(ctx context.Context, d time.Duration) error
}

func NewClient(brokers []string, retryInterval time.Duration, logger *zap.SugaredLogger) *Client {
	return &Client{
		brokers:       brokers,
		retryInterval: retryInterval,
		logger:        logger,
		sleep:         sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Sleep waits one retry interval or until the context is cancelled.
func (c *Client) Sleep(ctx context.Context) error {
	return c.sleep(ctx, c.retryInterval)
}

// dialAny tries each configured broker in turn and returns the first
// connection that succeeds, so one down broker never masks the rest.
func (c *Client) dialAny(ctx context.Context) (*kafka.Conn, error) {
	var lastErr error
	for _, addr := range c.brokers {
		conn, err := kafka.DialContext(ctx, "tcp", addr)
		if err == nil {
			return conn, nil
		}
		lastErr = err
	}
	return nil, lastErr
}

// WaitForBroker dials the brokers until one answers, retrying indefinitely
// at the configured interval. Only context cancellation surfaces an error.
func (c *Client) WaitForBroker(ctx context.Context) error {
	for {
		conn, err := c.dialAny(ctx)
		if err == nil {
			conn.Close()
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.logger.Warnw("no broker reachable, retrying", "brokers", c.brokers, "retry_in", c.retryInterval, "error", err)
		if err := c.sleep(ctx, c.retryInterval); err != nil {
			return err
		}
	}
}

// EnsureTopic creates the topic if it does not exist. Redeclaring an
// existing topic is a no-op, so startup order between services does not
// matter.
func (c *Client) EnsureTopic(ctx context.Context, topic string) error {
	conn, err := c.dialAny(ctx)
	if err != nil {
		return fmt.Errorf("dial broker: %w", err)
	}
	defer conn.Close()

	controller, err := conn.Controller()
	if err != nil {
		return fmt.Errorf("resolve controller: %w", err)
	}

	controllerConn, err := kafka.DialContext(ctx, "tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	if err != nil {
		return fmt.Errorf("dial controller: %w", err)
	}
	defer controllerConn.Close()

	err = controllerConn.CreateTopics(kafka.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	})
	if err != nil && !errors.Is(err, kafka.TopicAlreadyExists) {
		return fmt.Errorf("create topic %s: %w", topic, err)
	}
	return nil
}

// NewWriter returns a writer with acknowledgment from all replicas, the
// persistent-publish analogue for this transport.
func (c *Client) NewWriter(topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(c.brokers...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireAll,
	}
}

// NewReader returns a consumer-group reader for the topic. Offsets are
// committed explicitly by the consume loop, never automatically.
func (c *Client) NewReader(topic, groupID string) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:           c.brokers,
		Topic:             topic,
		GroupID:           groupID,
		StartOffset:       kafka.FirstOffset,
		ReadLagInterval:   -1,
		HeartbeatInterval: 3 * time.Second,
		SessionTimeout:    30 * time.Second,
	})
}

// Consume fetches messages one at a time, hands each to the handler, and
// maps the returned disposition onto commits. Per-reader delivery order is
// FIFO; an uncommitted message survives connection loss and is redelivered.
func (c *Client) Consume(ctx context.Context, r Fetcher, handler Handler) error {
	for {
		m, err := r.FetchMessage(ctx)
		if err != nil {
			return err
		}

		switch d := handler(ctx, m.Value); d {
		case Ack, Reject:
			if err := r.CommitMessages(ctx, m); err != nil {
				// The work is done but the offset is not recorded; the
				// message comes back after reconnect. At-least-once allows
				// the duplicate.
				return fmt.Errorf("commit offset: %w", err)
			}
		case Requeue:
			return ErrRequeue
		default:
			return fmt.Errorf("handler returned unknown disposition %d", d)
		}
	}
}
