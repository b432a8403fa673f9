package messaging

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/segmentio/kafka-go"
)

// ErrKafkaBrokersRequired is returned when no broker address is configured.
var ErrKafkaBrokersRequired = errors.New("messaging: kafka brokers are required")

// KafkaConfig configures the Kafka implementation.
type KafkaConfig struct {
	Brokers []string
	Dialer  *kafka.Dialer
}

// Kafka is a Messaging implementation backed by segmentio/kafka-go.
//
// Kafka has no per-message negative ack. A failed message is logged and left
// uncommitted; it is redelivered only when no later offset of the same
// partition commits first.
type Kafka struct {
	brokers []string
	dialer  *kafka.Dialer

	mu      sync.Mutex
	writers map[string]*kafka.Writer
	closed  bool
}

// NewKafka returns a Kafka client. Connections are opened lazily.
func NewKafka(cfg KafkaConfig) (*Kafka, error) {
	if len(cfg.Brokers) == 0 {
		return nil, ErrKafkaBrokersRequired
	}

	return &Kafka{
		brokers: append([]string{}, cfg.Brokers...),
		dialer:  cfg.Dialer,
		writers: map[string]*kafka.Writer{},
	}, nil
}

// Close flushes and closes all writers.
func (k *Kafka) Close() error {
	k.mu.Lock()
	if k.closed {
		k.mu.Unlock()
		return nil
	}
	k.closed = true
	writers := k.writers
	k.writers = nil
	k.mu.Unlock()

	var closeErr error
	for _, w := range writers {
		closeErr = errors.Join(closeErr, w.Close())
	}
	return closeErr
}

// Publish writes msg to topic.
func (k *Kafka) Publish(ctx context.Context, topic string, msg OutgoingMessage) error {
	if topic == "" {
		return ErrTopicRequired
	}

	w, err := k.writer(topic)
	if err != nil {
		return err
	}

	kmsg := kafka.Message{Key: []byte(msg.Key), Value: msg.Body}
	for key, v := range outgoingHeaders(ctx, msg) {
		kmsg.Headers = append(kmsg.Headers, kafka.Header{Key: key, Value: []byte(v)})
	}

	if err := w.WriteMessages(ctx, kmsg); err != nil {
		return fmt.Errorf("messaging: kafka publish: %w", err)
	}
	return nil
}

func (k *Kafka) writer(topic string) (*kafka.Writer, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.closed {
		return nil, ErrClosed
	}
	if w, ok := k.writers[topic]; ok {
		return w, nil
	}

	var transport kafka.RoundTripper = kafka.DefaultTransport
	if k.dialer != nil {
		transport = &kafka.Transport{ClientID: k.dialer.ClientID, SASL: k.dialer.SASLMechanism, TLS: k.dialer.TLS}
	}

	w := &kafka.Writer{
		Addr:                   kafka.TCP(k.brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
		Transport:              transport,
	}
	k.writers[topic] = w
	return w, nil
}

// Consume reads topic as a member of the consumer group.
func (k *Kafka) Consume(ctx context.Context, topic string, handler Handler, opts ...ConsumeOption) error {
	if topic == "" {
		return ErrTopicRequired
	}
	if handler == nil {
		return ErrHandlerRequired
	}

	k.mu.Lock()
	closed := k.closed
	k.mu.Unlock()
	if closed {
		return ErrClosed
	}

	co := newConsumeOptions(topic, opts...)
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  k.brokers,
		GroupID:  co.group,
		Topic:    topic,
		MaxBytes: 10e6,
		Dialer:   k.dialer,
	})

	msgCh := make(chan kafka.Message, co.maxInFlight)
	var wg sync.WaitGroup
	for range co.concurrency {
		wg.Go(func() {
			for m := range msgCh {
				if err := handle(ctx, DriverKafka, handler, kafkaToMessage(m)); err != nil {
					slog.WarnContext(ctx, "kafka message left uncommitted", "topic", m.Topic, "partition", m.Partition, "offset", m.Offset, "error", err)
					continue
				}
				if err := reader.CommitMessages(ctx, m); err != nil && ctx.Err() == nil {
					slog.ErrorContext(ctx, "failed to commit kafka message", "topic", m.Topic, "offset", m.Offset, "error", err)
				}
			}
		})
	}

	var fetchErr error
	for {
		m, err := reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() == nil {
				fetchErr = fmt.Errorf("messaging: kafka fetch: %w", err)
			}
			break
		}
		msgCh <- m
	}

	close(msgCh)
	wg.Wait()

	return errors.Join(ctx.Err(), fetchErr, reader.Close())
}

func kafkaToMessage(m kafka.Message) Message {
	headers := make(map[string]string, len(m.Headers))
	for _, h := range m.Headers {
		headers[h.Key] = string(h.Value)
	}

	return Message{
		Topic:      m.Topic,
		Key:        string(m.Key),
		Body:       m.Value,
		Headers:    headers,
		Attempt:    1,
		ReceivedAt: m.Time,
	}
}
