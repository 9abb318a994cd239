package channels

import (
	"context"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/hkuds/vikingbot/internal/bus"
	"github.com/hkuds/vikingbot/internal/config"
)

func TestTelegramChannelName(t *testing.T) {
	msgBus := bus.NewMessageBus(1)

	ch := NewTelegramChannel(config.TelegramConfig{ID: "work"}, msgBus)
	if ch.Name() != "telegram:work" {
		t.Errorf("name = %q", ch.Name())
	}

	ch = NewTelegramChannel(config.TelegramConfig{}, msgBus)
	if ch.Name() != "telegram:main" {
		t.Errorf("default name = %q", ch.Name())
	}
}

func TestTelegramHandleMessage(t *testing.T) {
	msgBus := bus.NewMessageBus(4)
	ch := NewTelegramChannel(config.TelegramConfig{ID: "main"}, msgBus)

	ch.handleMessage(&tgbotapi.Message{
		MessageID: 7,
		From:      &tgbotapi.User{ID: 1001, UserName: "alice"},
		Chat:      &tgbotapi.Chat{ID: 42, Type: "private"},
		Text:      "hello bot",
	})

	msg, err := msgBus.ConsumeInboundWithTimeout(context.Background(), time.Second)
	if err != nil {
		t.Fatalf("no inbound message: %v", err)
	}
	if msg.Channel != "telegram:main" || msg.SenderID != "1001|alice" || msg.ChatID != "42" || msg.Content != "hello bot" {
		t.Errorf("msg = %+v", msg)
	}
	if msg.Metadata["username"] != "alice" {
		t.Errorf("metadata = %+v", msg.Metadata)
	}

	// Chat ID is cached for outbound resolution.
	id, err := ch.resolveChatID("42")
	if err != nil || id != 42 {
		t.Errorf("resolveChatID = %d, %v", id, err)
	}
}

func TestTelegramHandleMessageDenied(t *testing.T) {
	msgBus := bus.NewMessageBus(4)
	ch := NewTelegramChannel(config.TelegramConfig{ID: "main", AllowFrom: []string{"bob"}}, msgBus)

	ch.handleMessage(&tgbotapi.Message{
		From: &tgbotapi.User{ID: 1001, UserName: "alice"},
		Chat: &tgbotapi.Chat{ID: 42},
		Text: "let me in",
	})

	if msgBus.InboundSize() != 0 {
		t.Error("denied sender's message must not reach the bus")
	}
}

func TestTelegramSendNotRunning(t *testing.T) {
	ch := NewTelegramChannel(config.TelegramConfig{ID: "main"}, bus.NewMessageBus(1))
	if err := ch.Send(bus.OutboundMessage{Channel: "telegram:main", ChatID: "42", Content: "hi"}); err == nil {
		t.Error("send on stopped channel should fail")
	}
}

func TestResolveChatIDParses(t *testing.T) {
	ch := NewTelegramChannel(config.TelegramConfig{ID: "main"}, bus.NewMessageBus(1))

	id, err := ch.resolveChatID(" -100123456 ")
	if err != nil || id != -100123456 {
		t.Errorf("resolveChatID = %d, %v", id, err)
	}
	if _, err := ch.resolveChatID("not-a-number"); err == nil {
		t.Error("garbage chat ID should fail")
	}
}
