package bus

import (
	"context"
	"errors"
	"time"
)

// ErrTimeout is returned when a message receive operation times out.
var ErrTimeout = errors.New("timeout waiting for message")

// MessageBus provides bounded in-memory inbound and outbound queues
// decoupling channel adapters from agent loops. Publishing blocks under
// backpressure once the buffer reaches its high-water mark; consuming
// returns the oldest unconsumed message. No message is delivered twice,
// and the bus never retries on behalf of a failing consumer.
type MessageBus struct {
	inbound  chan InboundMessage
	outbound chan OutboundMessage

	closed chan struct{}
}

// NewMessageBus creates a new MessageBus with the specified buffer size
// for both inbound and outbound queues.
func NewMessageBus(bufferSize int) *MessageBus {
	return &MessageBus{
		inbound:  make(chan InboundMessage, bufferSize),
		outbound: make(chan OutboundMessage, bufferSize),
		closed:   make(chan struct{}),
	}
}

// PublishInbound enqueues a message on the inbound queue, blocking until
// buffer space is available or the bus is closed.
func (b *MessageBus) PublishInbound(msg InboundMessage) {
	select {
	case <-b.closed:
		return
	case b.inbound <- msg:
	}
}

// ConsumeInbound blocks until an inbound message is available.
func (b *MessageBus) ConsumeInbound() InboundMessage {
	return <-b.inbound
}

// ConsumeInboundWithTimeout waits for an inbound message with a timeout.
// Returns ErrTimeout if no message is received within the specified duration.
func (b *MessageBus) ConsumeInboundWithTimeout(ctx context.Context, timeout time.Duration) (InboundMessage, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case msg := <-b.inbound:
		return msg, nil
	case <-timer.C:
		return InboundMessage{}, ErrTimeout
	case <-ctx.Done():
		return InboundMessage{}, ctx.Err()
	}
}

// PublishOutbound enqueues a message on the outbound queue, blocking until
// buffer space is available or the bus is closed.
func (b *MessageBus) PublishOutbound(msg OutboundMessage) {
	select {
	case <-b.closed:
		return
	case b.outbound <- msg:
	}
}

// ConsumeOutbound blocks until an outbound message is available.
func (b *MessageBus) ConsumeOutbound() OutboundMessage {
	return <-b.outbound
}

// ConsumeOutboundWithTimeout waits for an outbound message with a timeout.
// Returns ErrTimeout if no message is received within the specified duration.
func (b *MessageBus) ConsumeOutboundWithTimeout(ctx context.Context, timeout time.Duration) (OutboundMessage, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case msg := <-b.outbound:
		return msg, nil
	case <-timer.C:
		return OutboundMessage{}, ErrTimeout
	case <-ctx.Done():
		return OutboundMessage{}, ctx.Err()
	}
}

// InboundSize returns the current number of messages in the inbound queue.
func (b *MessageBus) InboundSize() int {
	return len(b.inbound)
}

// OutboundSize returns the current number of messages in the outbound queue.
func (b *MessageBus) OutboundSize() int {
	return len(b.outbound)
}

// Close closes the message bus. Publishes after Close are dropped.
func (b *MessageBus) Close() {
	close(b.closed)
}
