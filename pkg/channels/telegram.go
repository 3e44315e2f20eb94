package channels

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"

	"github.com/amayadev/amaya/pkg/bus"
	"github.com/amayadev/amaya/pkg/config"
	"github.com/amayadev/amaya/pkg/domain"
	"github.com/amayadev/amaya/pkg/logger"
)

// typingInterval spaces the chat-action pings; Telegram shows "typing..."
// for about five seconds per ping.
const typingInterval = 3500 * time.Millisecond

// typingMaxPings caps one typing loop (~50s).
const typingMaxPings = 15

// TelegramAdapter long-polls the Bot API. While Amaya is thinking about a
// chat it keeps the typing indicator alive, stopping on the first send.
type TelegramAdapter struct {
	bot     *telego.Bot
	bus     *bus.Bus
	allowed map[int64]bool

	cancel context.CancelFunc

	typingMu sync.Mutex
	typing   map[int64]context.CancelFunc
}

// NewTelegram validates the token and builds the adapter.
func NewTelegram(cfg config.TelegramConfig, b *bus.Bus) (*TelegramAdapter, error) {
	bot, err := telego.NewBot(cfg.Token, telego.WithDefaultLogger(false, true))
	if err != nil {
		return nil, fmt.Errorf("telegram bot: %w", err)
	}

	allowed := make(map[int64]bool, len(cfg.AllowedUserIDs))
	for _, id := range cfg.AllowedUserIDs {
		allowed[id] = true
	}
	return &TelegramAdapter{
		bot:     bot,
		bus:     b,
		allowed: allowed,
		typing:  make(map[int64]context.CancelFunc),
	}, nil
}

func (t *TelegramAdapter) Type() domain.ChannelType { return domain.ChannelTelegram }

// Start begins long polling and spawns the update loop.
func (t *TelegramAdapter) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	t.cancel = cancel

	updates, err := t.bot.UpdatesViaLongPolling(runCtx, nil)
	if err != nil {
		cancel()
		return fmt.Errorf("telegram long polling: %w", err)
	}

	go func() {
		for update := range updates {
			t.handleUpdate(runCtx, update)
		}
	}()
	return nil
}

func (t *TelegramAdapter) handleUpdate(ctx context.Context, update telego.Update) {
	msg := update.Message
	if msg == nil || msg.Text == "" || msg.From == nil {
		return
	}

	if len(t.allowed) > 0 && !t.allowed[msg.From.ID] {
		logger.WarnCF(component, "unauthorized telegram user",
			map[string]any{"user_id": msg.From.ID})
		_, _ = t.bot.SendMessage(ctx, tu.Message(tu.ID(msg.Chat.ID),
			"You are not allowed to use this bot."))
		return
	}

	t.startTyping(ctx, msg.Chat.ID)

	t.bus.Publish(bus.EventMessageReceived, domain.IncomingMessage{
		Channel:   domain.ChannelTelegram,
		Route:     domain.TelegramRoute{ChatID: msg.Chat.ID},
		SenderID:  strconv.FormatInt(msg.From.ID, 10),
		Content:   msg.Text,
		Timestamp: time.Unix(msg.Date, 0),
	})
}

// Send delivers one segment and stops the chat's typing loop.
func (t *TelegramAdapter) Send(ctx context.Context, msg domain.OutgoingMessage) error {
	route, ok := msg.Route.(domain.TelegramRoute)
	if !ok {
		return fmt.Errorf("telegram send: route is %T", msg.Route)
	}
	t.stopTyping(route.ChatID)

	_, err := t.bot.SendMessage(ctx, tu.Message(tu.ID(route.ChatID), msg.Content))
	if err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	return nil
}

func (t *TelegramAdapter) Stop() {
	if t.cancel != nil {
		t.cancel()
	}
	t.typingMu.Lock()
	for _, cancel := range t.typing {
		cancel()
	}
	t.typing = make(map[int64]context.CancelFunc)
	t.typingMu.Unlock()
}

func (t *TelegramAdapter) startTyping(ctx context.Context, chatID int64) {
	t.typingMu.Lock()
	if cancel, ok := t.typing[chatID]; ok {
		cancel()
	}
	loopCtx, cancel := context.WithCancel(ctx)
	t.typing[chatID] = cancel
	t.typingMu.Unlock()

	go func() {
		defer cancel()
		for i := 0; i < typingMaxPings; i++ {
			err := t.bot.SendChatAction(loopCtx, &telego.SendChatActionParams{
				ChatID: tu.ID(chatID),
				Action: telego.ChatActionTyping,
			})
			if err != nil {
				return
			}
			select {
			case <-loopCtx.Done():
				return
			case <-time.After(typingInterval):
			}
		}
	}()
}

func (t *TelegramAdapter) stopTyping(chatID int64) {
	t.typingMu.Lock()
	defer t.typingMu.Unlock()
	if cancel, ok := t.typing[chatID]; ok {
		cancel()
		delete(t.typing, chatID)
	}
}

var _ Adapter = (*TelegramAdapter)(nil)
