package channels

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/amayadev/amaya/pkg/bus"
	"github.com/amayadev/amaya/pkg/config"
	"github.com/amayadev/amaya/pkg/domain"
)

// DiscordAdapter runs a gateway session and relays text messages from DMs
// and guild channels.
type DiscordAdapter struct {
	session *discordgo.Session
	bus     *bus.Bus
}

// NewDiscord builds the adapter from config.
func NewDiscord(cfg config.DiscordConfig, b *bus.Bus) (*DiscordAdapter, error) {
	session, err := discordgo.New("Bot " + cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("discord session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuildMessages |
		discordgo.IntentsDirectMessages |
		discordgo.IntentMessageContent

	a := &DiscordAdapter{session: session, bus: b}
	session.AddHandler(a.onMessageCreate)
	return a, nil
}

func (d *DiscordAdapter) Type() domain.ChannelType { return domain.ChannelDiscord }

func (d *DiscordAdapter) Start(context.Context) error {
	if err := d.session.Open(); err != nil {
		return fmt.Errorf("discord gateway: %w", err)
	}
	return nil
}

func (d *DiscordAdapter) Stop() {
	_ = d.session.Close()
}

func (d *DiscordAdapter) onMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.Bot || m.Content == "" {
		return
	}
	if s.State != nil && s.State.User != nil && m.Author.ID == s.State.User.ID {
		return
	}

	timestamp := m.Timestamp
	if timestamp.IsZero() {
		timestamp = time.Now()
	}

	d.bus.Publish(bus.EventMessageReceived, domain.IncomingMessage{
		Channel:   domain.ChannelDiscord,
		Route:     domain.DiscordRoute{ChannelID: m.ChannelID},
		SenderID:  m.Author.ID,
		Content:   m.Content,
		Timestamp: timestamp,
	})
}

func (d *DiscordAdapter) Send(_ context.Context, msg domain.OutgoingMessage) error {
	route, ok := msg.Route.(domain.DiscordRoute)
	if !ok {
		return fmt.Errorf("discord send: route is %T", msg.Route)
	}
	if _, err := d.session.ChannelMessageSend(route.ChannelID, msg.Content); err != nil {
		return fmt.Errorf("discord send: %w", err)
	}
	return nil
}

var _ Adapter = (*DiscordAdapter)(nil)
