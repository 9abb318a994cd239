package channels

import (
	"context"
	"testing"
	"time"

	"github.com/hkuds/vikingbot/internal/bus"
)

func TestIsAllowedEmptyListAdmitsAll(t *testing.T) {
	c := NewBaseChannel("telegram:main", bus.NewMessageBus(1), nil)
	if !c.IsAllowed("12345") {
		t.Error("empty allowlist should admit everyone")
	}
	if !c.IsAllowed("") {
		t.Error("empty allowlist should admit even empty sender IDs")
	}
}

func TestIsAllowedMatchesEntries(t *testing.T) {
	c := NewBaseChannel("telegram:main", bus.NewMessageBus(1), []string{"12345", "alice"})

	if !c.IsAllowed("12345") {
		t.Error("direct ID match should be allowed")
	}
	if c.IsAllowed("99999") {
		t.Error("unlisted ID should be denied")
	}
}

func TestIsAllowedCompoundID(t *testing.T) {
	c := NewBaseChannel("telegram:main", bus.NewMessageBus(1), []string{"alice"})

	if !c.IsAllowed("12345|alice") {
		t.Error("username component should match")
	}
	if c.IsAllowed("12345|bob") {
		t.Error("unlisted compound ID should be denied")
	}
}

func TestPublishInbound(t *testing.T) {
	msgBus := bus.NewMessageBus(4)
	c := NewBaseChannel("telegram:main", msgBus, nil)

	c.publishInbound("u1", "42", "hello", nil, map[string]interface{}{"k": "v"})

	msg, err := msgBus.ConsumeInboundWithTimeout(context.Background(), time.Second)
	if err != nil {
		t.Fatalf("consume: %v", err)
	}
	if msg.Channel != "telegram:main" || msg.SenderID != "u1" || msg.ChatID != "42" || msg.Content != "hello" {
		t.Errorf("msg = %+v", msg)
	}
	if msg.Timestamp.IsZero() {
		t.Error("timestamp not set")
	}
}
