package domain

// ---------------------------------------------------------------------------
// Channel types and routing metadata
// ---------------------------------------------------------------------------

// ChannelType identifies the kind of messaging channel.
type ChannelType string

const (
	ChannelTelegram ChannelType = "telegram"
	ChannelOneBot   ChannelType = "onebot"
	ChannelDiscord  ChannelType = "discord"
	ChannelSlack    ChannelType = "slack"
	ChannelCLI      ChannelType = "cli"
)

// AllChannelTypes returns all known channel types.
func AllChannelTypes() []ChannelType {
	return []ChannelType{
		ChannelTelegram, ChannelOneBot, ChannelDiscord, ChannelSlack, ChannelCLI,
	}
}

// String implements fmt.Stringer.
func (ct ChannelType) String() string { return string(ct) }

// Valid returns true if the channel type is recognized.
func (ct ChannelType) Valid() bool {
	for _, t := range AllChannelTypes() {
		if t == ct {
			return true
		}
	}
	return false
}

// Route is the channel-specific delivery address attached to message
// envelopes. Each channel type has exactly one variant carrying only the
// fields that channel needs. The orchestrator treats routes as opaque and
// passes them through unchanged.
type Route interface {
	Channel() ChannelType
}

// TelegramRoute addresses a Telegram chat.
type TelegramRoute struct {
	ChatID int64 `json:"chat_id"`
}

func (TelegramRoute) Channel() ChannelType { return ChannelTelegram }

// OneBotRoute addresses a QQ user or group via a OneBot v11 endpoint.
// GroupID zero means a private message to UserID.
type OneBotRoute struct {
	UserID  int64 `json:"user_id"`
	GroupID int64 `json:"group_id,omitempty"`
}

func (OneBotRoute) Channel() ChannelType { return ChannelOneBot }

// DiscordRoute addresses a Discord channel.
type DiscordRoute struct {
	ChannelID string `json:"channel_id"`
}

func (DiscordRoute) Channel() ChannelType { return ChannelDiscord }

// SlackRoute addresses a Slack channel or DM.
type SlackRoute struct {
	ChannelID string `json:"channel_id"`
}

func (SlackRoute) Channel() ChannelType { return ChannelSlack }

// CLIRoute addresses the local console.
type CLIRoute struct{}

func (CLIRoute) Channel() ChannelType { return ChannelCLI }

// Compile-time checks that every variant satisfies Route.
var (
	_ Route = TelegramRoute{}
	_ Route = OneBotRoute{}
	_ Route = DiscordRoute{}
	_ Route = SlackRoute{}
	_ Route = CLIRoute{}
)
