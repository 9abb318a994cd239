package channels

import (
	"context"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/hkuds/vikingbot/internal/bus"
	"github.com/hkuds/vikingbot/internal/config"
)

// Manager owns the channel adapters and the outbound dispatcher that
// routes bus messages to them.
type Manager struct {
	config   *config.Config
	bus      *bus.MessageBus
	channels map[string]Channel
	mu       sync.RWMutex
}

// NewManager creates a channel manager.
func NewManager(cfg *config.Config, msgBus *bus.MessageBus) *Manager {
	return &Manager{
		config:   cfg,
		bus:      msgBus,
		channels: make(map[string]Channel),
	}
}

// Initialize creates the enabled adapters from configuration. Must be
// called before StartAll.
func (m *Manager) Initialize() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.config.Channels.Telegram.Enabled {
		if m.config.Channels.Telegram.Token == "" {
			return fmt.Errorf("telegram channel enabled but token not configured")
		}
		telegram := NewTelegramChannel(m.config.Channels.Telegram, m.bus)
		m.channels[telegram.Name()] = telegram
		log.Printf("[channels] %s initialized", telegram.Name())
	}

	if len(m.channels) == 0 {
		log.Println("[channels] warning: no channels are enabled")
	}
	return nil
}

// StartAll starts every initialized adapter.
func (m *Manager) StartAll(ctx context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var errs []error
	for name, ch := range m.channels {
		if err := ch.Start(ctx); err != nil {
			errs = append(errs, fmt.Errorf("failed to start channel %s: %w", name, err))
			continue
		}
		log.Printf("[channels] %s started", name)
	}
	if len(errs) > 0 {
		return fmt.Errorf("errors starting channels: %v", errs)
	}
	return nil
}

// StopAll gracefully stops every running adapter.
func (m *Manager) StopAll() error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var errs []error
	for name, ch := range m.channels {
		if !ch.IsRunning() {
			continue
		}
		if err := ch.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("failed to stop channel %s: %w", name, err))
			continue
		}
		log.Printf("[channels] %s stopped", name)
	}
	if len(errs) > 0 {
		return fmt.Errorf("errors stopping channels: %v", errs)
	}
	return nil
}

// RunDispatcher pumps the outbound queue to the owning adapter until ctx
// is cancelled. Messages addressed to an unknown channel are dropped
// with a warning; adapter send failures are logged, never retried.
func (m *Manager) RunDispatcher(ctx context.Context) {
	log.Println("[channels] outbound dispatcher started")
	for {
		msg, err := m.bus.ConsumeOutboundWithTimeout(ctx, time.Second)
		if err != nil {
			if ctx.Err() != nil {
				log.Println("[channels] outbound dispatcher stopped")
				return
			}
			continue
		}
		m.Dispatch(msg)
	}
}

// Dispatch routes one outbound message to its adapter.
func (m *Manager) Dispatch(msg bus.OutboundMessage) {
	ch := m.GetChannel(msg.Channel)
	if ch == nil {
		log.Printf("[channels] dropping message for unknown channel %q", msg.Channel)
		return
	}
	if err := ch.Send(msg); err != nil {
		log.Printf("[channels] send via %s failed: %v", msg.Channel, err)
	}
}

// GetChannel returns a channel by name, or nil.
func (m *Manager) GetChannel(name string) Channel {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.channels[name]
}

// RegisterChannel adds an adapter beyond config-based initialization.
func (m *Manager) RegisterChannel(ch Channel) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if ch == nil {
		return fmt.Errorf("cannot register nil channel")
	}
	name := ch.Name()
	if _, exists := m.channels[name]; exists {
		return fmt.Errorf("channel %s already registered", name)
	}
	m.channels[name] = ch
	return nil
}

// ListChannels returns the sorted names of all registered adapters.
func (m *Manager) ListChannels() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.channels))
	for name := range m.channels {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// RunningChannels returns the sorted names of currently running adapters.
func (m *Manager) RunningChannels() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var running []string
	for name, ch := range m.channels {
		if ch.IsRunning() {
			running = append(running, name)
		}
	}
	sort.Strings(running)
	return running
}

// ChannelCount returns the number of registered adapters.
func (m *Manager) ChannelCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.channels)
}
