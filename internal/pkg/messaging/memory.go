package messaging

import (
	"context"
	"log/slog"
	"maps"
	"sync"
	"time"
)

const memoryMaxAttempts = 3

// Memory is an in-process broker for local runs and tests.
//
// Each group receives every message of a topic once; consumers inside a group
// take turns. A handler error redelivers the message up to three attempts.
type Memory struct {
	mu     sync.Mutex
	subs   map[string][]*memorySub
	next   map[string]int
	closed bool
	done   chan struct{}
}

type memorySub struct {
	group string
	ch    chan Message
}

// NewMemory returns an empty in-process broker.
func NewMemory() *Memory {
	return &Memory{
		subs: map[string][]*memorySub{},
		next: map[string]int{},
		done: make(chan struct{}),
	}
}

// Close stops every running Consume.
func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.closed {
		m.closed = true
		close(m.done)
	}
	return nil
}

// Subscribers returns how many consumers are registered on topic.
func (m *Memory) Subscribers(topic string) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.subs[topic])
}

// Publish delivers msg to one consumer of every group subscribed to topic.
// Messages published to a topic without consumers are dropped.
func (m *Memory) Publish(ctx context.Context, topic string, msg OutgoingMessage) error {
	if topic == "" {
		return ErrTopicRequired
	}

	delivered := Message{
		Topic:      topic,
		Key:        msg.Key,
		Body:       append([]byte(nil), msg.Body...),
		Headers:    outgoingHeaders(ctx, msg),
		Attempt:    1,
		ReceivedAt: time.Now(),
	}

	targets, err := m.targets(topic)
	if err != nil {
		return err
	}

	for _, sub := range targets {
		out := delivered
		out.Headers = maps.Clone(delivered.Headers)
		select {
		case sub.ch <- out:
		case <-ctx.Done():
			return ctx.Err()
		case <-m.done:
			return ErrClosed
		}
	}
	return nil
}

func (m *Memory) targets(topic string) ([]*memorySub, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, ErrClosed
	}

	byGroup := map[string][]*memorySub{}
	var order []string
	for _, sub := range m.subs[topic] {
		if _, ok := byGroup[sub.group]; !ok {
			order = append(order, sub.group)
		}
		byGroup[sub.group] = append(byGroup[sub.group], sub)
	}

	targets := make([]*memorySub, 0, len(order))
	for _, g := range order {
		members := byGroup[g]
		key := topic + "\x00" + g
		targets = append(targets, members[m.next[key]%len(members)])
		m.next[key]++
	}
	return targets, nil
}

// Consume registers a consumer and blocks until ctx is done or the broker closes.
func (m *Memory) Consume(ctx context.Context, topic string, handler Handler, opts ...ConsumeOption) error {
	if topic == "" {
		return ErrTopicRequired
	}
	if handler == nil {
		return ErrHandlerRequired
	}

	co := newConsumeOptions(topic, opts...)
	sub := &memorySub{group: co.group, ch: make(chan Message, co.maxInFlight)}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrClosed
	}
	m.subs[topic] = append(m.subs[topic], sub)
	m.mu.Unlock()

	var wg sync.WaitGroup
	for range co.concurrency {
		wg.Go(func() {
			for {
				select {
				case <-ctx.Done():
					return
				case <-m.done:
					return
				case msg := <-sub.ch:
					m.deliver(ctx, sub, handler, msg)
				}
			}
		})
	}

	select {
	case <-ctx.Done():
	case <-m.done:
	}

	m.mu.Lock()
	subs := m.subs[topic]
	for i := range subs {
		if subs[i] == sub {
			m.subs[topic] = append(subs[:i], subs[i+1:]...)
			break
		}
	}
	m.mu.Unlock()
	wg.Wait()

	return ctx.Err()
}

func (m *Memory) deliver(ctx context.Context, sub *memorySub, handler Handler, msg Message) {
	err := handle(ctx, DriverMemory, handler, msg)
	if err == nil {
		return
	}

	if msg.Attempt >= memoryMaxAttempts {
		slog.WarnContext(ctx, "memory broker dropped message", "topic", msg.Topic, "attempt", msg.Attempt, "error", err)
		return
	}

	msg.Attempt++
	select {
	case sub.ch <- msg:
	default:
		slog.WarnContext(ctx, "memory broker redelivery buffer full", "topic", msg.Topic, "attempt", msg.Attempt)
	}
}
