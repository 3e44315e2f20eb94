package channels

import (
	"context"
	"fmt"
	"time"

	"github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"
	"github.com/slack-go/slack/socketmode"

	"github.com/amayadev/amaya/pkg/bus"
	"github.com/amayadev/amaya/pkg/config"
	"github.com/amayadev/amaya/pkg/domain"
	"github.com/amayadev/amaya/pkg/logger"
)

// SlackAdapter connects over Socket Mode and relays message events.
type SlackAdapter struct {
	api    *slack.Client
	socket *socketmode.Client
	bus    *bus.Bus
	cancel context.CancelFunc
}

// NewSlack builds the adapter from config.
func NewSlack(cfg config.SlackConfig, b *bus.Bus) *SlackAdapter {
	api := slack.New(cfg.BotToken, slack.OptionAppLevelToken(cfg.AppToken))
	return &SlackAdapter{
		api:    api,
		socket: socketmode.New(api),
		bus:    b,
	}
}

func (s *SlackAdapter) Type() domain.ChannelType { return domain.ChannelSlack }

// Start runs the Socket Mode connection and the event pump.
func (s *SlackAdapter) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	go func() {
		if err := s.socket.RunContext(runCtx); err != nil && runCtx.Err() == nil {
			logger.ErrorCF(component, "slack socket mode stopped",
				map[string]any{"error": err.Error()})
		}
	}()
	go s.pumpEvents(runCtx)
	return nil
}

func (s *SlackAdapter) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
}

func (s *SlackAdapter) pumpEvents(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-s.socket.Events:
			if !ok {
				return
			}
			if evt.Type != socketmode.EventTypeEventsAPI {
				continue
			}
			if evt.Request != nil {
				s.socket.Ack(*evt.Request)
			}
			apiEvent, ok := evt.Data.(slackevents.EventsAPIEvent)
			if !ok {
				continue
			}
			s.handleEventsAPI(apiEvent)
		}
	}
}

func (s *SlackAdapter) handleEventsAPI(apiEvent slackevents.EventsAPIEvent) {
	message, ok := apiEvent.InnerEvent.Data.(*slackevents.MessageEvent)
	if !ok {
		return
	}
	// Skip our own and other bots' output, plus edits and joins.
	if message.BotID != "" || message.SubType != "" || message.Text == "" {
		return
	}

	s.bus.Publish(bus.EventMessageReceived, domain.IncomingMessage{
		Channel:   domain.ChannelSlack,
		Route:     domain.SlackRoute{ChannelID: message.Channel},
		SenderID:  message.User,
		Content:   message.Text,
		Timestamp: time.Now(),
	})
}

func (s *SlackAdapter) Send(ctx context.Context, msg domain.OutgoingMessage) error {
	route, ok := msg.Route.(domain.SlackRoute)
	if !ok {
		return fmt.Errorf("slack send: route is %T", msg.Route)
	}
	_, _, err := s.api.PostMessageContext(ctx, route.ChannelID,
		slack.MsgOptionText(msg.Content, false))
	if err != nil {
		return fmt.Errorf("slack send: %w", err)
	}
	return nil
}

var _ Adapter = (*SlackAdapter)(nil)
