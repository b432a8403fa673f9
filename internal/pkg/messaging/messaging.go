package messaging

import (
	"context"
	"errors"
	"io"
	"time"
)

// HeaderCorrelationID carries the request correlation ID across the broker.
const HeaderCorrelationID = "X-Correlation-ID"

var (
	// ErrTopicRequired is returned when publishing or consuming without a topic.
	ErrTopicRequired = errors.New("messaging: topic is required")
	// ErrHandlerRequired is returned when Consume is called with a nil handler.
	ErrHandlerRequired = errors.New("messaging: handler is required")
	// ErrClosed is returned after Close.
	ErrClosed = io.ErrClosedPipe
)

// Messaging is a broker client that can publish and consume messages.
type Messaging interface {
	io.Closer

	Publisher
	Consumer
}

// Publisher publishes messages to a topic.
type Publisher interface {
	Publish(ctx context.Context, topic string, msg OutgoingMessage) error
}

// Consumer consumes messages from a topic. Consume blocks until ctx is done
// or the subscription fails.
type Consumer interface {
	Consume(ctx context.Context, topic string, handler Handler, opts ...ConsumeOption) error
}

// Handler processes a received message.
type Handler func(ctx context.Context, msg Message) error

// OutgoingMessage is a message to be published.
type OutgoingMessage struct {
	// Key is used by Kafka for partitioning and by Pub/Sub as ordering key.
	Key string
	// Body is the message payload.
	Body []byte
	// Headers are string attributes. NSQ has no headers and drops them.
	Headers map[string]string
}

// Message is a received message.
type Message struct {
	Topic      string
	Key        string
	Body       []byte
	Headers    map[string]string
	Attempt    int
	ReceivedAt time.Time
}

// Header returns the header value for key, or "".
func (m Message) Header(key string) string {
	if m.Headers == nil {
		return ""
	}
	return m.Headers[key]
}
