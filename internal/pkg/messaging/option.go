package messaging

type consumeOptions struct {
	// group is the Kafka group id, NATS queue group, NSQ channel and
	// Pub/Sub subscription name.
	group string

	// concurrency is the number of handler goroutines.
	concurrency int

	// maxInFlight caps unacknowledged messages where the broker supports it.
	maxInFlight int
}

// ConsumeOption configures Consume.
type ConsumeOption func(*consumeOptions)

func newConsumeOptions(topic string, opts ...ConsumeOption) consumeOptions {
	co := consumeOptions{group: topic, concurrency: 1}
	for _, opt := range opts {
		if opt != nil {
			opt(&co)
		}
	}
	if co.concurrency <= 0 {
		co.concurrency = 1
	}
	if co.maxInFlight < co.concurrency {
		co.maxInFlight = co.concurrency
	}
	return co
}

// WithGroup sets the consumer group. Consumers sharing a group split the
// messages of a topic between them.
func WithGroup(group string) ConsumeOption {
	return func(o *consumeOptions) {
		if group != "" {
			o.group = group
		}
	}
}

// WithConcurrency sets how many handler goroutines process messages in parallel.
func WithConcurrency(n int) ConsumeOption {
	return func(o *consumeOptions) { o.concurrency = n }
}

// WithMaxInFlight limits the maximum number of unacknowledged messages in flight.
func WithMaxInFlight(n int) ConsumeOption {
	return func(o *consumeOptions) { o.maxInFlight = n }
}
