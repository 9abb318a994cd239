package channels

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/hkuds/vikingbot/internal/bus"
	"github.com/hkuds/vikingbot/internal/config"
)

// stubChannel is a minimal adapter for manager tests.
type stubChannel struct {
	name    string
	running bool
	mu      sync.Mutex
	sent    []bus.OutboundMessage
}

func (s *stubChannel) Name() string { return s.name }

func (s *stubChannel) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = true
	return nil
}

func (s *stubChannel) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = false
	return nil
}

func (s *stubChannel) Send(msg bus.OutboundMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, msg)
	return nil
}

func (s *stubChannel) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *stubChannel) sentCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sent)
}

func newTestManager(t *testing.T) (*Manager, *bus.MessageBus) {
	t.Helper()
	msgBus := bus.NewMessageBus(16)
	return NewManager(config.DefaultConfig(), msgBus), msgBus
}

func TestInitializeTelegramRequiresToken(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Channels.Telegram.Enabled = true
	cfg.Channels.Telegram.Token = ""

	m := NewManager(cfg, bus.NewMessageBus(1))
	if err := m.Initialize(); err == nil {
		t.Fatal("expected error for enabled telegram without token")
	}
}

func TestInitializeNoChannels(t *testing.T) {
	m, _ := newTestManager(t)
	if err := m.Initialize(); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if m.ChannelCount() != 0 {
		t.Errorf("count = %d", m.ChannelCount())
	}
}

func TestRegisterAndLifecycle(t *testing.T) {
	m, _ := newTestManager(t)
	ch := &stubChannel{name: "telegram:main"}

	if err := m.RegisterChannel(ch); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := m.RegisterChannel(ch); err == nil {
		t.Error("duplicate registration should fail")
	}
	if err := m.RegisterChannel(nil); err == nil {
		t.Error("nil registration should fail")
	}

	if err := m.StartAll(context.Background()); err != nil {
		t.Fatalf("StartAll: %v", err)
	}
	if got := m.RunningChannels(); len(got) != 1 || got[0] != "telegram:main" {
		t.Errorf("running = %v", got)
	}

	if err := m.StopAll(); err != nil {
		t.Fatalf("StopAll: %v", err)
	}
	if len(m.RunningChannels()) != 0 {
		t.Error("channels still running after StopAll")
	}
}

func TestDispatchRoutesByChannel(t *testing.T) {
	m, _ := newTestManager(t)
	ch := &stubChannel{name: "telegram:main", running: true}
	if err := m.RegisterChannel(ch); err != nil {
		t.Fatal(err)
	}

	m.Dispatch(bus.OutboundMessage{Channel: "telegram:main", ChatID: "42", Content: "hi"})
	if ch.sentCount() != 1 {
		t.Errorf("sent = %d", ch.sentCount())
	}

	// Unknown channel: dropped, not an error.
	m.Dispatch(bus.OutboundMessage{Channel: "discord:x", ChatID: "1", Content: "lost"})
	if ch.sentCount() != 1 {
		t.Error("unknown-channel message must not reach other adapters")
	}
}

func TestRunDispatcherConsumesOutbound(t *testing.T) {
	m, msgBus := newTestManager(t)
	ch := &stubChannel{name: "telegram:main", running: true}
	if err := m.RegisterChannel(ch); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		m.RunDispatcher(ctx)
		close(done)
	}()

	msgBus.PublishOutbound(bus.OutboundMessage{Channel: "telegram:main", ChatID: "42", Content: "one"})
	msgBus.PublishOutbound(bus.OutboundMessage{Channel: "telegram:main", ChatID: "42", Content: "two"})

	deadline := time.After(2 * time.Second)
	for ch.sentCount() < 2 {
		select {
		case <-deadline:
			t.Fatalf("dispatcher delivered %d of 2 messages", ch.sentCount())
		case <-time.After(10 * time.Millisecond):
		}
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("dispatcher did not stop on cancel")
	}
}
