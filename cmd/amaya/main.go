// Command amaya runs the companion agent: channel adapters in, one planning
// loop, segmented replies out.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/amayadev/amaya/pkg/agent"
	"github.com/amayadev/amaya/pkg/bus"
	"github.com/amayadev/amaya/pkg/channels"
	"github.com/amayadev/amaya/pkg/config"
	"github.com/amayadev/amaya/pkg/domain"
	"github.com/amayadev/amaya/pkg/logger"
	"github.com/amayadev/amaya/pkg/metrics"
	"github.com/amayadev/amaya/pkg/providers"
	"github.com/amayadev/amaya/pkg/reminder"
	"github.com/amayadev/amaya/pkg/storage"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the configuration file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		var cfgErr *domain.ConfigError
		if errors.As(err, &cfgErr) {
			fmt.Fprintf(os.Stderr, "amaya: %v\n", err)
			os.Exit(2)
		}
		logger.ErrorCF("main", "fatal", map[string]any{"error": err.Error()})
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger.SetLevel(logger.ParseLevel(cfg.Log.Level))
	if cfg.Log.File != "" {
		if err := logger.SetLogFile(cfg.Log.File); err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		defer logger.Close()
	}
	logger.InfoC("main", "starting amaya")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := storage.Open(ctx, cfg.Database.Path)
	if err != nil {
		return err
	}
	defer store.Close()

	b := bus.New()
	m := metrics.New()

	tools := providers.AmayaToolset(providers.ToolDeps{
		Reminders: store.Reminders,
		Memory:    store.Memory,
		Bus:       b,
		Timezone:  cfg.Agent.Timezone,
	})
	generator, err := providers.New(cfg.LLM, tools, m)
	if err != nil {
		return err
	}

	primaryRoute, err := cfg.Agent.PrimaryChannel.Route()
	if err != nil {
		return err
	}

	amaya := agent.New(agent.Deps{
		Bus:          b,
		Messages:     store.Messages,
		Reminders:    store.Reminders,
		Memory:       store.Memory,
		Generator:    generator,
		Metrics:      m,
		PrimaryRoute: primaryRoute,
		Timezone:     cfg.Agent.Timezone,
		HistoryLimit: cfg.Agent.HistoryLimit,
		Tick:         cfg.TickDuration(),
	})

	poller := reminder.New(store.Reminders, b, cfg.PollDuration())

	adapters, err := buildAdapters(cfg, b)
	if err != nil {
		return err
	}
	manager := channels.NewManager(b, adapters...)
	if err := manager.StartAll(ctx); err != nil {
		return err
	}
	defer manager.StopAll()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		amaya.Run(ctx)
	}()
	go func() {
		defer wg.Done()
		poller.Run(ctx)
	}()

	<-ctx.Done()
	logger.InfoC("main", "shutting down")

	wg.Wait()
	b.Publish(bus.EventSystemShutdown, nil)
	b.Close()

	logger.InfoCF("main", "runtime metrics", m.Snapshot())
	logger.InfoC("main", "amaya stopped")
	return nil
}

// buildAdapters constructs every enabled channel adapter.
func buildAdapters(cfg config.Config, b *bus.Bus) ([]channels.Adapter, error) {
	var adapters []channels.Adapter

	if cfg.Channels.Telegram.Enabled {
		tg, err := channels.NewTelegram(cfg.Channels.Telegram, b)
		if err != nil {
			return nil, err
		}
		adapters = append(adapters, tg)
	}
	if cfg.Channels.OneBot.Enabled {
		adapters = append(adapters, channels.NewOneBot(cfg.Channels.OneBot, b))
	}
	if cfg.Channels.Discord.Enabled {
		dc, err := channels.NewDiscord(cfg.Channels.Discord, b)
		if err != nil {
			return nil, err
		}
		adapters = append(adapters, dc)
	}
	if cfg.Channels.Slack.Enabled {
		adapters = append(adapters, channels.NewSlack(cfg.Channels.Slack, b))
	}
	if cfg.Channels.CLI.Enabled {
		cli, err := channels.NewCLI(b)
		if err != nil {
			return nil, err
		}
		adapters = append(adapters, cli)
	}

	if len(adapters) == 0 {
		logger.WarnC("main", "no channels enabled; amaya can think but not talk")
	}
	return adapters, nil
}
