package tools

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/hkuds/vikingbot/internal/bus"
)

// SendFunc enqueues an outbound message. The agent loop injects the bus
// publish here so the tool package stays decoupled from queue ownership.
type SendFunc func(msg bus.OutboundMessage) error

// MessageTool sends a message to a chat channel, defaulting to the
// conversation the agent is currently serving.
type MessageTool struct {
	BaseTool
	send           SendFunc
	defaultChannel string
	defaultChatID  string
}

// NewMessageTool creates a message tool bound to one conversation.
// defaultChannel and defaultChatID may be empty for loops with no
// originating conversation (e.g. cron with an unresolvable target).
func NewMessageTool(send SendFunc, defaultChannel, defaultChatID string) *MessageTool {
	return &MessageTool{
		BaseTool: NewBaseTool(
			"message",
			"Send a message to a chat. Defaults to the current conversation when channel and chat_id are omitted.",
			map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"content": map[string]interface{}{
						"type":        "string",
						"description": "Message text to send",
					},
					"channel": map[string]interface{}{
						"type":        "string",
						"description": "Target channel name (default: current conversation's channel)",
					},
					"chat_id": map[string]interface{}{
						"type":        "string",
						"description": "Target chat ID (default: current conversation's chat)",
					},
				},
				"required": []string{"content"},
			},
		),
		send:           send,
		defaultChannel: defaultChannel,
		defaultChatID:  defaultChatID,
	}
}

func (t *MessageTool) Execute(ctx context.Context, params map[string]interface{}) (string, error) {
	content, err := GetStringParam(params, "content")
	if err != nil {
		return "", fmt.Errorf("message: %w", err)
	}
	if strings.TrimSpace(content) == "" {
		return "", errors.New("message: content cannot be empty")
	}

	channel := GetStringParamOr(params, "channel", t.defaultChannel)
	chatID := GetStringParamOr(params, "chat_id", t.defaultChatID)
	if channel == "" || chatID == "" {
		return "", errors.New("message: no target conversation: provide both channel and chat_id")
	}

	if err := t.send(bus.OutboundMessage{
		Channel: channel,
		ChatID:  chatID,
		Content: content,
	}); err != nil {
		return "", fmt.Errorf("message: %w", err)
	}
	return fmt.Sprintf("Message sent to %s:%s", channel, chatID), nil
}
