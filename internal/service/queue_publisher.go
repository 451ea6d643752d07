package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/iliyamo/ordermgmt/internal/metrics"
	"github.com/iliyamo/ordermgmt/internal/queue"
)

// EventPublisher hands auth events to the audit pipeline. Publish must
// not block the request for long; delivery failures are the
// publisher's concern, not the caller's.
type EventPublisher interface {
	Publish(ctx context.Context, ev queue.AuthEvent) error
}

// NopPublisher drops every event. Used when EVENTS_ENABLED is false.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, queue.AuthEvent) error { return nil }

// ErrPublisherClosed / ErrPublisherBusy are returned by Publish when the
// event could not be queued.
var (
	ErrPublisherClosed = errors.New("event publisher closed")
	ErrPublisherBusy   = errors.New("event publisher buffer full")
)

const (
	publishBuffer  = 256
	publishTimeout = 5 * time.Second
)

// AMQPPublisher queues events in memory and publishes them to the
// auth.events queue from a single background goroutine, reusing one
// connection until it fails.
type AMQPPublisher struct {
	url  string
	log  *zap.Logger
	send func(ctx context.Context, body []byte) error

	events chan queue.AuthEvent
	done   chan struct{}

	mu     sync.Mutex
	closed bool
	conn   *amqp.Connection
	ch     *amqp.Channel
}

// NewAMQPPublisher starts the publishing goroutine. Close stops it after
// draining queued events.
func NewAMQPPublisher(url string, log *zap.Logger) *AMQPPublisher {
	p := &AMQPPublisher{
		url:    url,
		log:    log,
		events: make(chan queue.AuthEvent, publishBuffer),
		done:   make(chan struct{}),
	}
	p.send = p.publishAMQP
	go p.run()
	return p
}

// Publish queues ev without waiting for the broker.
func (p *AMQPPublisher) Publish(_ context.Context, ev queue.AuthEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrPublisherClosed
	}
	select {
	case p.events <- ev:
		return nil
	default:
		metrics.EventsPublished.WithLabelValues(metrics.OutcomeFailure).Inc()
		return ErrPublisherBusy
	}
}

// Close stops accepting events, waits for the queue to drain and closes
// the broker connection.
func (p *AMQPPublisher) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.events)
	p.mu.Unlock()
	<-p.done
	p.reset()
}

func (p *AMQPPublisher) run() {
	defer close(p.done)
	for ev := range p.events {
		body, err := json.Marshal(ev)
		if err != nil {
			p.log.Error("event publisher: marshal failed", zap.Error(err))
			continue
		}
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		err = p.send(ctx, body)
		cancel()
		if err != nil {
			metrics.EventsPublished.WithLabelValues(metrics.OutcomeError).Inc()
			p.log.Warn("event publisher: publish failed",
				zap.String("type", ev.Type), zap.String("user_id", ev.UserID), zap.Error(err))
			continue
		}
		metrics.EventsPublished.WithLabelValues(metrics.OutcomeSuccess).Inc()
	}
}

func (p *AMQPPublisher) publishAMQP(ctx context.Context, body []byte) error {
	ch, err := p.channel()
	if err != nil {
		return err
	}
	err = ch.PublishWithContext(ctx, "", queue.AuthEventsQueue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	})
	if err != nil {
		p.reset()
		return fmt.Errorf("publish: %w", err)
	}
	return nil
}

// channel returns the cached channel, dialing when there is none.
// Only the run goroutine calls it.
func (p *AMQPPublisher) channel() (*amqp.Channel, error) {
	if p.ch != nil && !p.ch.IsClosed() {
		return p.ch, nil
	}
	p.reset()
	conn, err := amqp.Dial(p.url)
	if err != nil {
		return nil, fmt.Errorf("dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("channel open: %w", err)
	}
	if _, err := ch.QueueDeclare(queue.AuthEventsQueue, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("queue declare: %w", err)
	}
	p.conn, p.ch = conn, ch
	return ch, nil
}

func (p *AMQPPublisher) reset() {
	if p.ch != nil {
		_ = p.ch.Close()
		p.ch = nil
	}
	if p.conn != nil {
		_ = p.conn.Close()
		p.conn = nil
	}
}
