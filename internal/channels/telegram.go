package channels

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/hkuds/vikingbot/internal/bus"
	"github.com/hkuds/vikingbot/internal/config"
)

// telegramMaxMessageLen is Telegram's hard limit on message text.
const telegramMaxMessageLen = 4096

// TelegramChannel adapts Telegram long polling to the message bus.
type TelegramChannel struct {
	BaseChannel
	token string
	bot   *tgbotapi.BotAPI

	// chatIDs caches the int64 form of chat IDs seen on inbound messages.
	chatIDs map[string]int64
	chatMu  sync.RWMutex

	cancel context.CancelFunc
}

// NewTelegramChannel creates a Telegram adapter named "telegram:{id}".
func NewTelegramChannel(cfg config.TelegramConfig, msgBus *bus.MessageBus) *TelegramChannel {
	id := cfg.ID
	if id == "" {
		id = "main"
	}
	return &TelegramChannel{
		BaseChannel: NewBaseChannel("telegram:"+id, msgBus, cfg.AllowFrom),
		token:       cfg.Token,
		chatIDs:     make(map[string]int64),
	}
}

// Start authorizes the bot and begins consuming updates.
func (c *TelegramChannel) Start(ctx context.Context) error {
	if c.IsRunning() {
		return fmt.Errorf("telegram channel %s is already running", c.Name())
	}

	bot, err := tgbotapi.NewBotAPI(c.token)
	if err != nil {
		return fmt.Errorf("failed to create Telegram bot: %w", err)
	}
	c.bot = bot
	log.Printf("[telegram] authorized as @%s (%s)", bot.Self.UserName, c.Name())

	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := bot.GetUpdatesChan(u)

	c.setRunning(true)
	go c.processUpdates(ctx, updates)
	return nil
}

func (c *TelegramChannel) processUpdates(ctx context.Context, updates tgbotapi.UpdatesChannel) {
	for {
		select {
		case <-ctx.Done():
			log.Printf("[telegram] update loop stopped (%s)", c.Name())
			return
		case update := <-updates:
			if update.Message == nil {
				continue
			}
			c.handleMessage(update.Message)
		}
	}
}

// handleMessage converts one Telegram message into an inbound bus
// message. The sender ID takes the form "userID|username" when a
// username is known so either form can be allowlisted.
func (c *TelegramChannel) handleMessage(msg *tgbotapi.Message) {
	senderID := strconv.FormatInt(msg.From.ID, 10)
	if msg.From.UserName != "" {
		senderID += "|" + msg.From.UserName
	}
	if !c.IsAllowed(senderID) {
		return
	}

	chatIDStr := strconv.FormatInt(msg.Chat.ID, 10)
	c.chatMu.Lock()
	c.chatIDs[chatIDStr] = msg.Chat.ID
	c.chatMu.Unlock()

	metadata := map[string]interface{}{
		"messageId": msg.MessageID,
		"chatType":  msg.Chat.Type,
	}
	if msg.From.UserName != "" {
		metadata["username"] = msg.From.UserName
	}
	if msg.From.FirstName != "" {
		metadata["firstName"] = msg.From.FirstName
	}

	var content string
	var media []string

	switch {
	case len(msg.Photo) > 0:
		// Highest resolution variant is last.
		media = append(media, msg.Photo[len(msg.Photo)-1].FileID)
		content = msg.Caption
		metadata["originalType"] = "photo"

	case msg.Document != nil:
		media = append(media, msg.Document.FileID)
		content = msg.Caption
		metadata["originalType"] = "document"
		metadata["fileName"] = msg.Document.FileName
		metadata["mimeType"] = msg.Document.MimeType

	case msg.Voice != nil:
		content = "[Voice message - not supported]"
		metadata["originalType"] = "voice"

	case msg.Text != "":
		content = msg.Text

	default:
		content = msg.Caption
	}

	c.publishInbound(senderID, chatIDStr, content, media, metadata)
}

// Stop shuts the adapter down.
func (c *TelegramChannel) Stop() error {
	if !c.IsRunning() {
		return nil
	}
	if c.cancel != nil {
		c.cancel()
	}
	if c.bot != nil {
		c.bot.StopReceivingUpdates()
	}
	c.setRunning(false)
	log.Printf("[telegram] channel %s stopped", c.Name())
	return nil
}

// Send delivers an outbound message, converting markdown to Telegram
// HTML and splitting text that exceeds Telegram's message limit.
func (c *TelegramChannel) Send(msg bus.OutboundMessage) error {
	if !c.IsRunning() {
		return fmt.Errorf("telegram channel %s is not running", c.Name())
	}

	chatID, err := c.resolveChatID(msg.ChatID)
	if err != nil {
		return fmt.Errorf("invalid chat ID: %w", err)
	}

	for _, chunk := range splitMessage(msg.Content, telegramMaxMessageLen) {
		if err := c.sendChunk(chatID, chunk, msg.ReplyTo); err != nil {
			return err
		}
	}
	return nil
}

func (c *TelegramChannel) sendChunk(chatID int64, content, replyTo string) error {
	telegramMsg := tgbotapi.NewMessage(chatID, MarkdownToTelegramHTML(content))
	telegramMsg.ParseMode = tgbotapi.ModeHTML
	if replyTo != "" {
		if replyID, err := strconv.Atoi(replyTo); err == nil {
			telegramMsg.ReplyToMessageID = replyID
		}
	}

	if _, err := c.bot.Send(telegramMsg); err != nil {
		// Formatting errors come back as 400s; retry as plain text.
		log.Printf("[telegram] HTML send failed, retrying as plain text: %v", err)
		telegramMsg.ParseMode = ""
		telegramMsg.Text = StripMarkdown(content)
		if _, err := c.bot.Send(telegramMsg); err != nil {
			return err
		}
	}
	return nil
}

// resolveChatID maps a string chat ID to Telegram's int64 form, using
// the inbound cache first.
func (c *TelegramChannel) resolveChatID(chatIDStr string) (int64, error) {
	c.chatMu.RLock()
	if chatID, ok := c.chatIDs[chatIDStr]; ok {
		c.chatMu.RUnlock()
		return chatID, nil
	}
	c.chatMu.RUnlock()

	chatID, err := strconv.ParseInt(strings.TrimSpace(chatIDStr), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse chat ID %q: %w", chatIDStr, err)
	}

	c.chatMu.Lock()
	c.chatIDs[chatIDStr] = chatID
	c.chatMu.Unlock()
	return chatID, nil
}

// splitMessage cuts text into chunks of at most limit characters,
// preferring newline boundaries.
func splitMessage(text string, limit int) []string {
	if len(text) <= limit {
		return []string{text}
	}

	var chunks []string
	for len(text) > limit {
		cut := strings.LastIndex(text[:limit], "\n")
		if cut <= 0 {
			cut = limit
		}
		chunks = append(chunks, strings.TrimRight(text[:cut], "\n"))
		text = strings.TrimLeft(text[cut:], "\n")
	}
	if text != "" {
		chunks = append(chunks, text)
	}
	return chunks
}
