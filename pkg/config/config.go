// Package config loads the Amaya configuration from a YAML file with an
// environment variable overlay. Required settings that are missing cause a
// ConfigError at startup; the process must refuse to run half-configured.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/amayadev/amaya/pkg/domain"
)

// Config is the root configuration.
type Config struct {
	Log      LogConfig      `yaml:"log"`
	Database DatabaseConfig `yaml:"database"`
	Agent    AgentConfig    `yaml:"agent"`
	LLM      LLMConfig      `yaml:"llm"`
	Reminder ReminderConfig `yaml:"reminder"`
	Channels ChannelsConfig `yaml:"channels"`
}

// LogConfig controls log output.
type LogConfig struct {
	Level string `yaml:"level" env:"AMAYA_LOG_LEVEL"`
	File  string `yaml:"file" env:"AMAYA_LOG_FILE"`
}

// DatabaseConfig locates the SQLite database.
type DatabaseConfig struct {
	Path string `yaml:"path" env:"AMAYA_DB_PATH"`
}

// AgentConfig tunes the orchestrator.
type AgentConfig struct {
	// Timezone is the user's IANA zone, used to render times in context
	// and to interpret reminder creation times.
	Timezone string `yaml:"timezone" env:"AMAYA_TIMEZONE"`
	// HistoryLimit bounds how many recent messages feed each planning call.
	HistoryLimit int `yaml:"history_limit" env:"AMAYA_HISTORY_LIMIT"`
	// TickSeconds is the delivery tick cadence. Defaults to 1.
	TickSeconds int `yaml:"tick_seconds" env:"AMAYA_TICK_SECONDS"`
	// PrimaryChannel is where unprompted output (reminder-driven replies)
	// is delivered.
	PrimaryChannel PrimaryChannelConfig `yaml:"primary_channel"`
}

// PrimaryChannelConfig names Amaya's primary contact route.
type PrimaryChannelConfig struct {
	Type           string `yaml:"type" env:"AMAYA_PRIMARY_CHANNEL"`
	TelegramChatID int64  `yaml:"telegram_chat_id" env:"AMAYA_PRIMARY_TELEGRAM_CHAT_ID"`
	OneBotUserID   int64  `yaml:"onebot_user_id" env:"AMAYA_PRIMARY_ONEBOT_USER_ID"`
	OneBotGroupID  int64  `yaml:"onebot_group_id" env:"AMAYA_PRIMARY_ONEBOT_GROUP_ID"`
	DiscordChannel string `yaml:"discord_channel_id" env:"AMAYA_PRIMARY_DISCORD_CHANNEL"`
	SlackChannel   string `yaml:"slack_channel_id" env:"AMAYA_PRIMARY_SLACK_CHANNEL"`
}

// Route builds the domain route for the primary channel.
func (p PrimaryChannelConfig) Route() (domain.Route, error) {
	switch domain.ChannelType(p.Type) {
	case domain.ChannelTelegram:
		if p.TelegramChatID == 0 {
			return nil, domain.NewConfigError("agent.primary_channel.telegram_chat_id", "required for telegram primary channel")
		}
		return domain.TelegramRoute{ChatID: p.TelegramChatID}, nil
	case domain.ChannelOneBot:
		if p.OneBotUserID == 0 && p.OneBotGroupID == 0 {
			return nil, domain.NewConfigError("agent.primary_channel.onebot_user_id", "required for onebot primary channel")
		}
		return domain.OneBotRoute{UserID: p.OneBotUserID, GroupID: p.OneBotGroupID}, nil
	case domain.ChannelDiscord:
		if p.DiscordChannel == "" {
			return nil, domain.NewConfigError("agent.primary_channel.discord_channel_id", "required for discord primary channel")
		}
		return domain.DiscordRoute{ChannelID: p.DiscordChannel}, nil
	case domain.ChannelSlack:
		if p.SlackChannel == "" {
			return nil, domain.NewConfigError("agent.primary_channel.slack_channel_id", "required for slack primary channel")
		}
		return domain.SlackRoute{ChannelID: p.SlackChannel}, nil
	case domain.ChannelCLI:
		return domain.CLIRoute{}, nil
	}
	return nil, domain.NewConfigError("agent.primary_channel.type", fmt.Sprintf("unknown channel type %q", p.Type))
}

// LLMConfig configures the response generator.
type LLMConfig struct {
	// Provider is "openai" or "anthropic".
	Provider     string `yaml:"provider" env:"AMAYA_LLM_PROVIDER"`
	APIKey       string `yaml:"api_key" env:"AMAYA_LLM_API_KEY"`
	BaseURL      string `yaml:"base_url" env:"AMAYA_LLM_BASE_URL"`
	Model        string `yaml:"model" env:"AMAYA_LLM_MODEL"`
	SystemPrompt string `yaml:"system_prompt" env:"AMAYA_SYSTEM_PROMPT"`
}

// ReminderConfig tunes the reminder poller.
type ReminderConfig struct {
	PollSeconds int `yaml:"poll_seconds" env:"AMAYA_REMINDER_POLL_SECONDS"`
}

// ChannelsConfig enables and configures the channel adapters.
type ChannelsConfig struct {
	Telegram TelegramConfig `yaml:"telegram"`
	OneBot   OneBotConfig   `yaml:"onebot"`
	Discord  DiscordConfig  `yaml:"discord"`
	Slack    SlackConfig    `yaml:"slack"`
	CLI      CLIConfig      `yaml:"cli"`
}

// TelegramConfig configures the Telegram long-polling adapter.
type TelegramConfig struct {
	Enabled        bool    `yaml:"enabled" env:"AMAYA_TELEGRAM_ENABLED"`
	Token          string  `yaml:"token" env:"AMAYA_TELEGRAM_TOKEN"`
	AllowedUserIDs []int64 `yaml:"allowed_user_ids" env:"AMAYA_TELEGRAM_ALLOWED_IDS" envSeparator:","`
}

// OneBotConfig configures the QQ/NapCat OneBot v11 reverse-WebSocket server.
type OneBotConfig struct {
	Enabled        bool    `yaml:"enabled" env:"AMAYA_ONEBOT_ENABLED"`
	ListenAddr     string  `yaml:"listen_addr" env:"AMAYA_ONEBOT_LISTEN_ADDR"`
	Path           string  `yaml:"path" env:"AMAYA_ONEBOT_PATH"`
	Token          string  `yaml:"token" env:"AMAYA_ONEBOT_TOKEN"`
	EnableGroup    bool    `yaml:"enable_group" env:"AMAYA_ONEBOT_ENABLE_GROUP"`
	AllowedUserIDs []int64 `yaml:"allowed_user_ids" env:"AMAYA_ONEBOT_ALLOWED_IDS" envSeparator:","`
	SendTimeoutSec int     `yaml:"send_timeout_seconds" env:"AMAYA_ONEBOT_SEND_TIMEOUT"`
}

// DiscordConfig configures the Discord adapter.
type DiscordConfig struct {
	Enabled bool   `yaml:"enabled" env:"AMAYA_DISCORD_ENABLED"`
	Token   string `yaml:"token" env:"AMAYA_DISCORD_TOKEN"`
}

// SlackConfig configures the Slack Socket Mode adapter.
type SlackConfig struct {
	Enabled  bool   `yaml:"enabled" env:"AMAYA_SLACK_ENABLED"`
	AppToken string `yaml:"app_token" env:"AMAYA_SLACK_APP_TOKEN"`
	BotToken string `yaml:"bot_token" env:"AMAYA_SLACK_BOT_TOKEN"`
}

// CLIConfig configures the local console adapter.
type CLIConfig struct {
	Enabled bool `yaml:"enabled" env:"AMAYA_CLI_ENABLED"`
}

// Defaults returns a config populated with sane defaults.
func Defaults() Config {
	return Config{
		Log:      LogConfig{Level: "info"},
		Database: DatabaseConfig{Path: "data/amaya.db"},
		Agent: AgentConfig{
			Timezone:     "UTC",
			HistoryLimit: 30,
			TickSeconds:  1,
		},
		LLM:      LLMConfig{Provider: "openai"},
		Reminder: ReminderConfig{PollSeconds: 25},
		Channels: ChannelsConfig{
			OneBot: OneBotConfig{
				ListenAddr:     ":8095",
				Path:           "/onebot/v11/ws",
				SendTimeoutSec: 10,
			},
		},
	}
}

// Load reads the YAML file (if it exists), applies environment overrides and
// validates. A missing file is not an error; missing required values are.
func Load(path string) (Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	case os.IsNotExist(err):
		// Env-only configuration is fine.
	default:
		return cfg, fmt.Errorf("read %s: %w", path, err)
	}

	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// TickDuration returns the delivery tick cadence.
func (c Config) TickDuration() time.Duration {
	if c.Agent.TickSeconds <= 0 {
		return time.Second
	}
	return time.Duration(c.Agent.TickSeconds) * time.Second
}

// PollDuration returns the reminder poll cadence.
func (c Config) PollDuration() time.Duration {
	if c.Reminder.PollSeconds <= 0 {
		return 25 * time.Second
	}
	return time.Duration(c.Reminder.PollSeconds) * time.Second
}

// Validate checks required settings. Every failure is a ConfigError.
func (c Config) Validate() error {
	if c.LLM.APIKey == "" {
		return domain.NewConfigError("llm.api_key", "required")
	}
	switch c.LLM.Provider {
	case "openai", "anthropic":
	default:
		return domain.NewConfigError("llm.provider", fmt.Sprintf("unknown provider %q", c.LLM.Provider))
	}

	if c.Agent.PrimaryChannel.Type == "" {
		return domain.NewConfigError("agent.primary_channel.type", "required: Amaya needs a primary contact route")
	}
	if _, err := c.Agent.PrimaryChannel.Route(); err != nil {
		return err
	}
	if _, err := time.LoadLocation(c.Agent.Timezone); err != nil {
		return domain.NewConfigError("agent.timezone", fmt.Sprintf("invalid IANA zone %q", c.Agent.Timezone))
	}

	if c.Channels.Telegram.Enabled && c.Channels.Telegram.Token == "" {
		return domain.NewConfigError("channels.telegram.token", "required when telegram is enabled")
	}
	if c.Channels.Discord.Enabled && c.Channels.Discord.Token == "" {
		return domain.NewConfigError("channels.discord.token", "required when discord is enabled")
	}
	if c.Channels.Slack.Enabled && (c.Channels.Slack.AppToken == "" || c.Channels.Slack.BotToken == "") {
		return domain.NewConfigError("channels.slack", "app_token and bot_token required when slack is enabled")
	}
	return nil
}
