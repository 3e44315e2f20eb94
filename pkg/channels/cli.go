package channels

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/chzyer/readline"

	"github.com/amayadev/amaya/pkg/bus"
	"github.com/amayadev/amaya/pkg/domain"
	"github.com/amayadev/amaya/pkg/logger"
)

// CLIAdapter is the local console channel, for development and for running
// Amaya without any platform credentials.
type CLIAdapter struct {
	bus *bus.Bus
	rl  *readline.Instance
}

// NewCLI builds the console adapter.
func NewCLI(b *bus.Bus) (*CLIAdapter, error) {
	rl, err := readline.New("you> ")
	if err != nil {
		return nil, fmt.Errorf("readline: %w", err)
	}
	return &CLIAdapter{bus: b, rl: rl}, nil
}

func (c *CLIAdapter) Type() domain.ChannelType { return domain.ChannelCLI }

// Start spawns the read loop. EOF or Ctrl-D stops the loop without stopping
// the process; delivery to the console keeps working.
func (c *CLIAdapter) Start(ctx context.Context) error {
	go func() {
		for {
			line, err := c.rl.Readline()
			if err == readline.ErrInterrupt {
				continue
			}
			if err != nil {
				if err != io.EOF {
					logger.WarnCF(component, "console read failed",
						map[string]any{"error": err.Error()})
				}
				return
			}
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			if ctx.Err() != nil {
				return
			}

			c.bus.Publish(bus.EventMessageReceived, domain.IncomingMessage{
				Channel:   domain.ChannelCLI,
				Route:     domain.CLIRoute{},
				SenderID:  "local",
				Content:   line,
				Timestamp: time.Now(),
			})
		}
	}()
	return nil
}

func (c *CLIAdapter) Send(_ context.Context, msg domain.OutgoingMessage) error {
	if _, ok := msg.Route.(domain.CLIRoute); !ok {
		return fmt.Errorf("cli send: route is %T", msg.Route)
	}
	_, err := fmt.Fprintf(c.rl.Stdout(), "amaya> %s\n", msg.Content)
	return err
}

func (c *CLIAdapter) Stop() {
	_ = c.rl.Close()
}

var _ Adapter = (*CLIAdapter)(nil)
