// Package feed consumes invoice lifecycle events from RabbitMQ and applies them.
package feed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/aevon-lab/revenue-engine/internal/core/revenue"
	"github.com/aevon-lab/revenue-engine/internal/feed/codec"
	"github.com/rabbitmq/amqp091-go"
)

const maxBackoff = 30 * time.Second

// Submitter queues a decoded event and answers on the returned channel;
// satisfied by the aggregation dispatcher.
type Submitter interface {
	Submit(ctx context.Context, evt revenue.LifecycleEvent) (<-chan error, error)
}

// Config names the broker topology the consumer declares.
type Config struct {
	URL         string
	Exchange    string
	Queue       string
	RoutingKey  string
	Prefetch    int
	ConsumerTag string
}

// Consumer reads the invoice event queue with manual acknowledgements:
// applied and duplicate events are acked, malformed events are dropped,
// and retryable failures are requeued.
//
// Deliveries are submitted in arrival order, so events for one invoice keep
// their order on the dispatcher lane, while up to Prefetch results are awaited
// concurrently.
type Consumer struct {
	cfg       Config
	submitter Submitter
	codecs    *codec.Registry
	dial      func(url string) (*amqp091.Connection, error)
}

func NewConsumer(cfg Config, submitter Submitter, codecs *codec.Registry) *Consumer {
	if cfg.RoutingKey == "" {
		cfg.RoutingKey = cfg.Queue
	}
	return &Consumer{cfg: cfg, submitter: submitter, codecs: codecs, dial: amqp091.Dial}
}

// Run consumes until ctx is cancelled, reconnecting with exponential backoff
// when the broker connection drops.
func (c *Consumer) Run(ctx context.Context) error {
	attempt := 0
	for {
		err := c.consumeOnce(ctx, func() { attempt = 0 })
		if ctx.Err() != nil {
			slog.Info("[Feed] Stopping consumer", "queue", c.cfg.Queue)
			return nil
		}
		if err != nil && !isConnectionError(err) {
			return err
		}

		wait := exponentialBackoff(attempt)
		attempt++
		slog.Warn("[Feed] Broker connection lost, reconnecting",
			"error", err,
			"attempt", attempt,
			"backoff", wait)

		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return nil
		}
	}
}

// consumeOnce holds one connection until it fails or ctx ends. connected is
// called once the consumer is registered.
func (c *Consumer) consumeOnce(ctx context.Context, connected func()) error {
	conn, err := c.dial(c.cfg.URL)
	if err != nil {
		return fmt.Errorf("dial AMQP: %w", err)
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("open channel: %w", err)
	}
	defer ch.Close()

	if err := c.setup(ch); err != nil {
		return fmt.Errorf("setup exchange and queue: %w", err)
	}

	deliveries, err := ch.Consume(
		c.cfg.Queue,       // queue
		c.cfg.ConsumerTag, // consumer
		false,             // auto-ack
		false,             // exclusive
		false,             // no-local
		false,             // no-wait
		nil,               // args
	)
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}
	connected()

	slog.Info("[Feed] Consuming invoice events",
		"exchange", c.cfg.Exchange,
		"queue", c.cfg.Queue,
		"prefetch", c.cfg.Prefetch)

	return c.consume(ctx, deliveries, conn.NotifyClose(make(chan *amqp091.Error, 1)))
}

// consume submits deliveries until ctx ends or the connection drops. It returns
// only after every in-flight delivery has been acknowledged.
func (c *Consumer) consume(ctx context.Context, deliveries <-chan amqp091.Delivery, closed <-chan *amqp091.Error) error {
	inFlight := make(chan struct{}, max(c.cfg.Prefetch, 1))
	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		select {
		case <-ctx.Done():
			return nil
		case amqpErr := <-closed:
			if amqpErr == nil {
				return errors.New("connection closed")
			}
			return fmt.Errorf("connection closed: %w", amqpErr)
		case d, ok := <-deliveries:
			if !ok {
				return errors.New("delivery channel closed")
			}

			select {
			case inFlight <- struct{}{}:
			case <-ctx.Done():
				_ = d.Nack(false, true)
				return nil
			}
			p := c.start(ctx, d)
			wg.Add(1)
			go func() {
				defer wg.Done()
				defer func() { <-inFlight }()
				c.finish(ctx, p)
			}()
		}
	}
}

func (c *Consumer) setup(ch *amqp091.Channel) error {
	if c.cfg.Prefetch > 0 {
		if err := ch.Qos(c.cfg.Prefetch, 0, false); err != nil {
			return fmt.Errorf("set qos: %w", err)
		}
	}

	if err := ch.ExchangeDeclare(
		c.cfg.Exchange, // name
		"direct",       // type
		true,           // durable
		false,          // auto-deleted
		false,          // internal
		false,          // no-wait
		nil,            // arguments
	); err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}

	if _, err := ch.QueueDeclare(
		c.cfg.Queue, // name
		true,        // durable
		false,       // delete when unused
		false,       // exclusive
		false,       // no-wait
		nil,         // arguments
	); err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}

	if err := ch.QueueBind(c.cfg.Queue, c.cfg.RoutingKey, c.cfg.Exchange, false, nil); err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}
	return nil
}

// disposition is what the consumer did with one delivery.
type disposition int

const (
	acked disposition = iota
	dropped
	requeued
)

// pending is a delivery whose event was decoded and submitted, or that already
// has its disposition.
type pending struct {
	delivery amqp091.Delivery
	evt      revenue.LifecycleEvent
	result   <-chan error
	disp     disposition
	err      error
}

// handle submits one delivery and acknowledges it once applied.
func (c *Consumer) handle(ctx context.Context, d amqp091.Delivery) disposition {
	return c.finish(ctx, c.start(ctx, d))
}

func (c *Consumer) start(ctx context.Context, d amqp091.Delivery) pending {
	p := pending{delivery: d}
	evt, err := c.codecs.Decode(d.ContentType, d.Body)
	if err != nil {
		p.disp, p.err = dropped, err
		return p
	}
	p.evt = evt

	result, err := c.submitter.Submit(ctx, evt)
	if err != nil {
		p.disp, p.err = classify(err), err
		return p
	}
	p.result = result
	return p
}

func (c *Consumer) finish(ctx context.Context, p pending) disposition {
	if p.result != nil {
		select {
		case err := <-p.result:
			p.disp, p.err = classify(err), err
		case <-ctx.Done():
			p.disp, p.err = requeued, ctx.Err()
		}
	}
	if p.disp == acked && p.err == nil {
		slog.Debug("[Feed] Applied invoice event", "event_id", p.evt.EventID, "operation", p.evt.Operation)
	}
	return acknowledge(p.delivery, p.disp, p.evt.EventID, p.err)
}

func acknowledge(d amqp091.Delivery, disp disposition, evtID string, err error) disposition {
	var ackErr error
	switch disp {
	case acked:
		ackErr = d.Ack(false)
	case dropped:
		slog.Error("[Feed] Dropping invoice event",
			"delivery_tag", d.DeliveryTag,
			"message_id", d.MessageId,
			"error", err)
		ackErr = d.Nack(false, false)
	case requeued:
		slog.Error("[Feed] Invoice event failed, requeueing",
			"event_id", evtID,
			"redelivered", d.Redelivered,
			"error", err)
		ackErr = d.Nack(false, true)
	}
	if ackErr != nil {
		slog.Error("[Feed] Failed to acknowledge delivery", "delivery_tag", d.DeliveryTag, "error", ackErr)
	}
	return disp
}

// classify decides what happens to a delivery given the apply result.
func classify(err error) disposition {
	switch {
	case err == nil, errors.Is(err, revenue.ErrAlreadyApplied):
		return acked
	case errors.Is(err, revenue.ErrValidation), errors.Is(err, revenue.ErrInvariant):
		return dropped
	default:
		// Unknown failures are treated as transient.
		return requeued
	}
}

func exponentialBackoff(attempt int) time.Duration {
	if attempt > 5 {
		return maxBackoff
	}
	d := time.Second << attempt
	if d > maxBackoff {
		return maxBackoff
	}
	return d
}

func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	var amqpErr *amqp091.Error
	if errors.As(err, &amqpErr) {
		return true
	}
	if errors.Is(err, amqp091.ErrClosed) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, s := range []string{"connection", "closed", "eof", "broken pipe", "dial"} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}
