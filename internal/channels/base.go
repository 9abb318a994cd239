// Package channels hosts the chat backend adapters. Each adapter
// publishes inbound messages to the bus after an allowlist check and
// delivers outbound messages handed to it by the manager's dispatcher.
package channels

import (
	"context"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/hkuds/vikingbot/internal/bus"
)

// Channel is the contract every adapter implements. Name must be unique
// and of the form "{type}:{id}" (e.g. "telegram:main").
type Channel interface {
	Name() string

	// Start begins listening for inbound messages.
	Start(ctx context.Context) error

	// Stop gracefully shuts the adapter down.
	Stop() error

	// Send delivers an outbound message through this channel.
	Send(msg bus.OutboundMessage) error

	IsRunning() bool
}

// BaseChannel carries the state shared by all adapters: the name, the
// bus handle, the sender allowlist, and the running flag.
type BaseChannel struct {
	name      string
	bus       *bus.MessageBus
	allowList []string
	running   bool
	mu        sync.RWMutex
}

// NewBaseChannel creates the shared adapter state.
func NewBaseChannel(name string, msgBus *bus.MessageBus, allowList []string) BaseChannel {
	return BaseChannel{
		name:      name,
		bus:       msgBus,
		allowList: allowList,
	}
}

// Name returns the channel's unique identifier.
func (c *BaseChannel) Name() string {
	return c.name
}

// IsRunning reports whether the adapter is currently active.
func (c *BaseChannel) IsRunning() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.running
}

func (c *BaseChannel) setRunning(running bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.running = running
}

// IsAllowed checks whether a sender may use this channel. An empty
// allowlist admits everyone. Compound IDs of the form "123456|username"
// match if any component matches an allowlist entry.
func (c *BaseChannel) IsAllowed(senderID string) bool {
	if len(c.allowList) == 0 {
		return true
	}

	for _, allowed := range c.allowList {
		if senderID == allowed {
			return true
		}
	}

	if strings.Contains(senderID, "|") {
		for _, part := range strings.Split(senderID, "|") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			for _, allowed := range c.allowList {
				if part == allowed {
					return true
				}
			}
		}
	}

	log.Printf("[security] channel=%s action=denied sender=%s", c.name, senderID)
	return false
}

// publishInbound builds an inbound message and publishes it to the bus.
func (c *BaseChannel) publishInbound(senderID, chatID, content string, media []string, metadata map[string]interface{}) {
	c.bus.PublishInbound(bus.InboundMessage{
		Channel:   c.name,
		SenderID:  senderID,
		ChatID:    chatID,
		Content:   content,
		Timestamp: time.Now(),
		Media:     media,
		Metadata:  metadata,
	})
}
