// Package messaging provides a broker-agnostic API for publishing and
// consuming messages.
//
// Business code depends on Publisher and Consumer only; the driver (NATS,
// Kafka, NSQ, Google Pub/Sub or the in-process Memory broker) is picked at
// startup through New. A Handler returning nil acknowledges the message and
// a non-nil error asks the broker for redelivery where the broker supports it.
package messaging
