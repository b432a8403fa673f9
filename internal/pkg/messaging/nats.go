package messaging

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
)

// ErrNATSURLRequired is returned when the NATS server URL is missing.
var ErrNATSURLRequired = errors.New("messaging: nats url is required")

// NATSConfig configures the NATS implementation.
type NATSConfig struct {
	URL     string
	Options []nats.Option
}

// NATS is a Messaging implementation backed by core NATS.
//
// Core NATS has no redelivery; a handler error is logged by the caller and the
// message is gone.
type NATS struct {
	conn *nats.Conn

	mu     sync.Mutex
	closed bool
}

// NewNATS connects to cfg.URL.
func NewNATS(cfg NATSConfig) (*NATS, error) {
	if cfg.URL == "" {
		return nil, ErrNATSURLRequired
	}

	conn, err := nats.Connect(cfg.URL, cfg.Options...)
	if err != nil {
		return nil, fmt.Errorf("messaging: nats connect: %w", err)
	}

	return &NATS{conn: conn}, nil
}

// Close drains the connection.
func (n *NATS) Close() error {
	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		return nil
	}
	n.closed = true
	n.mu.Unlock()

	err := n.conn.Drain()
	n.conn.Close()
	return err
}

// Publish sends msg to the subject named topic.
func (n *NATS) Publish(ctx context.Context, topic string, msg OutgoingMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if topic == "" {
		return ErrTopicRequired
	}

	nmsg := nats.NewMsg(topic)
	nmsg.Data = msg.Body
	for k, v := range outgoingHeaders(ctx, msg) {
		nmsg.Header.Set(k, v)
	}
	if msg.Key != "" {
		nmsg.Header.Set("Nats-Msg-Key", msg.Key)
	}

	if err := n.conn.PublishMsg(nmsg); err != nil {
		return fmt.Errorf("messaging: nats publish: %w", err)
	}
	if err := n.conn.FlushWithContext(ctx); err != nil {
		return fmt.Errorf("messaging: nats flush: %w", err)
	}

	return nil
}

// Consume subscribes to topic with the group as queue group.
func (n *NATS) Consume(ctx context.Context, topic string, handler Handler, opts ...ConsumeOption) error {
	if topic == "" {
		return ErrTopicRequired
	}
	if handler == nil {
		return ErrHandlerRequired
	}

	n.mu.Lock()
	closed := n.closed
	n.mu.Unlock()
	if closed {
		return ErrClosed
	}

	co := newConsumeOptions(topic, opts...)
	msgCh := make(chan *nats.Msg, co.maxInFlight)

	sub, err := n.conn.ChanQueueSubscribe(topic, co.group, msgCh)
	if err != nil {
		return fmt.Errorf("messaging: nats subscribe: %w", err)
	}

	var wg sync.WaitGroup
	for range co.concurrency {
		wg.Go(func() {
			for {
				select {
				case <-ctx.Done():
					return
				case m := <-msgCh:
					_ = handle(ctx, DriverNATS, handler, natsToMessage(m))
				}
			}
		})
	}

	<-ctx.Done()
	uerr := sub.Unsubscribe()
	wg.Wait()

	if errors.Is(uerr, nats.ErrConnectionClosed) || errors.Is(uerr, nats.ErrBadSubscription) {
		uerr = nil
	}
	return errors.Join(ctx.Err(), uerr)
}

func natsToMessage(m *nats.Msg) Message {
	headers := make(map[string]string, len(m.Header))
	for k := range m.Header {
		headers[k] = m.Header.Get(k)
	}

	return Message{
		Topic:      m.Subject,
		Key:        m.Header.Get("Nats-Msg-Key"),
		Body:       m.Data,
		Headers:    headers,
		Attempt:    1,
		ReceivedAt: time.Now(),
	}
}
