package bus

import (
	"context"
	"testing"
	"time"
)

func TestSessionKey(t *testing.T) {
	msg := InboundMessage{Channel: "telegram:main", ChatID: "123"}
	if got := msg.SessionKey(); got != "telegram:main:123" {
		t.Errorf("SessionKey() = %q, want %q", got, "telegram:main:123")
	}
}

func TestNewMessageBus(t *testing.T) {
	b := NewMessageBus(10)
	if b == nil {
		t.Fatal("NewMessageBus returned nil")
	}
	if b.InboundSize() != 0 {
		t.Errorf("InboundSize() = %d, want 0", b.InboundSize())
	}
	if b.OutboundSize() != 0 {
		t.Errorf("OutboundSize() = %d, want 0", b.OutboundSize())
	}
}

func TestPublishConsumeInbound(t *testing.T) {
	b := NewMessageBus(10)
	msg := InboundMessage{Channel: "feishu:test", Content: "hello"}

	b.PublishInbound(msg)

	if b.InboundSize() != 1 {
		t.Errorf("InboundSize() = %d, want 1", b.InboundSize())
	}

	got := b.ConsumeInbound()
	if got.Content != "hello" {
		t.Errorf("ConsumeInbound().Content = %q, want %q", got.Content, "hello")
	}
}

func TestInboundOrderPreserved(t *testing.T) {
	b := NewMessageBus(10)
	for i, content := range []string{"first", "second", "third"} {
		b.PublishInbound(InboundMessage{Channel: "telegram:main", ChatID: "1", Content: content})
		if b.InboundSize() != i+1 {
			t.Fatalf("InboundSize() = %d, want %d", b.InboundSize(), i+1)
		}
	}
	for _, want := range []string{"first", "second", "third"} {
		if got := b.ConsumeInbound().Content; got != want {
			t.Errorf("ConsumeInbound().Content = %q, want %q", got, want)
		}
	}
}

func TestPublishConsumeOutbound(t *testing.T) {
	b := NewMessageBus(10)
	msg := OutboundMessage{Channel: "telegram:main", ChatID: "42", Content: "response"}

	b.PublishOutbound(msg)

	if b.OutboundSize() != 1 {
		t.Errorf("OutboundSize() = %d, want 1", b.OutboundSize())
	}

	got := b.ConsumeOutbound()
	if got.Content != "response" {
		t.Errorf("ConsumeOutbound().Content = %q, want %q", got.Content, "response")
	}
}

func TestConsumeInboundWithTimeout(t *testing.T) {
	b := NewMessageBus(10)

	ctx := context.Background()
	_, err := b.ConsumeInboundWithTimeout(ctx, 10*time.Millisecond)
	if err != ErrTimeout {
		t.Errorf("expected ErrTimeout, got %v", err)
	}

	b.PublishInbound(InboundMessage{Content: "hi"})
	msg, err := b.ConsumeInboundWithTimeout(ctx, time.Second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if msg.Content != "hi" {
		t.Errorf("Content = %q, want %q", msg.Content, "hi")
	}

	cancelCtx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = b.ConsumeInboundWithTimeout(cancelCtx, time.Second)
	if err == nil {
		t.Error("expected context error, got nil")
	}
}

func TestCloseStopsPublish(t *testing.T) {
	// Fill the buffer so the next publish would block
	b := NewMessageBus(1)
	b.PublishInbound(InboundMessage{Content: "fill"})
	b.Close()

	done := make(chan struct{})
	go func() {
		b.PublishInbound(InboundMessage{Content: "after close"})
		close(done)
	}()

	select {
	case <-done:
		// PublishInbound returned without blocking
	case <-time.After(time.Second):
		t.Fatal("PublishInbound blocked after Close")
	}
}
