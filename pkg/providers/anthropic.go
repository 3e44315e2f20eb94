package providers

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/amayadev/amaya/pkg/config"
	"github.com/amayadev/amaya/pkg/domain"
	"github.com/amayadev/amaya/pkg/logger"
	"github.com/amayadev/amaya/pkg/metrics"
)

var (
	errNoChoices = errors.New("empty completion")
	errToolLoop  = errors.New("tool loop exceeded round limit")
)

// maxResponseTokens bounds one Anthropic completion.
const maxResponseTokens = 4096

// AnthropicGenerator drives the Anthropic Messages API, with an internal
// tool-use loop when the registry is non-empty.
type AnthropicGenerator struct {
	client       anthropic.Client
	model        string
	systemPrompt string
	tools        *Toolset
	metrics      *metrics.Runtime
}

// NewAnthropic builds a generator from the LLM config.
func NewAnthropic(cfg config.LLMConfig, tools *Toolset, m *metrics.Runtime) *AnthropicGenerator {
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	return &AnthropicGenerator{
		client:       anthropic.NewClient(opts...),
		model:        cfg.Model,
		systemPrompt: cfg.SystemPrompt,
		tools:        tools,
		metrics:      m,
	}
}

// Generate runs up to maxToolRounds message calls, resolving tool use between
// rounds, and returns the final assistant text.
func (g *AnthropicGenerator) Generate(ctx context.Context, items []ContextItem, extraInstruction string, allowTools bool) (string, error) {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(g.model),
		MaxTokens: maxResponseTokens,
		Messages:  buildAnthropicMessages(items),
	}
	if g.systemPrompt != "" {
		params.System = append(params.System, anthropic.TextBlockParam{Text: g.systemPrompt})
	}
	if extraInstruction != "" {
		params.System = append(params.System, anthropic.TextBlockParam{Text: extraInstruction})
	}
	if allowTools && !g.tools.Empty() {
		for _, t := range g.tools.All() {
			params.Tools = append(params.Tools, anthropic.ToolUnionParam{
				OfTool: &anthropic.ToolParam{
					Name:        t.Name,
					Description: anthropic.String(t.Description),
					InputSchema: anthropic.ToolInputSchemaParam{
						Properties: t.SchemaProperties(),
						Required:   t.SchemaRequired(),
					},
				},
			})
		}
	}

	for round := 0; round < maxToolRounds; round++ {
		start := time.Now()
		msg, err := g.client.Messages.New(ctx, params)
		g.metrics.RecordLLMCall(time.Since(start), err != nil)
		if err != nil {
			if domain.IsCancellation(err) {
				return "", err
			}
			return "", &domain.GenerationError{Cause: err}
		}

		if msg.StopReason != anthropic.StopReasonToolUse {
			return collectText(msg), nil
		}

		params.Messages = append(params.Messages, msg.ToParam())
		var results []anthropic.ContentBlockParamUnion
		for _, block := range msg.Content {
			if block.Type != "tool_use" {
				continue
			}
			logger.DebugCF("providers", "model requested tool",
				map[string]any{"tool": block.Name})
			result := g.tools.Execute(ctx, block.Name, block.Input)
			results = append(results, anthropic.ContentBlockParamUnion{
				OfToolResult: &anthropic.ToolResultBlockParam{
					ToolUseID: block.ID,
					Content: []anthropic.ToolResultBlockParamContentUnion{
						{OfText: &anthropic.TextBlockParam{Text: result}},
					},
				},
			})
		}
		if len(results) == 0 {
			return collectText(msg), nil
		}
		params.Messages = append(params.Messages, anthropic.NewUserMessage(results...))
	}
	return "", &domain.GenerationError{Cause: errToolLoop}
}

// buildAnthropicMessages maps context items onto the two wire roles,
// coalescing adjacent same-role entries as the API requires alternation.
func buildAnthropicMessages(items []ContextItem) []anthropic.MessageParam {
	var (
		messages []anthropic.MessageParam
		pending  []string
		lastRole anthropic.MessageParamRole
	)

	flush := func() {
		if len(pending) == 0 {
			return
		}
		block := anthropic.NewTextBlock(strings.Join(pending, "\n\n"))
		if lastRole == anthropic.MessageParamRoleAssistant {
			messages = append(messages, anthropic.NewAssistantMessage(block))
		} else {
			messages = append(messages, anthropic.NewUserMessage(block))
		}
		pending = pending[:0]
	}

	for _, item := range items {
		role := anthropic.MessageParamRoleUser
		if item.Role == domain.RoleAmaya {
			role = anthropic.MessageParamRoleAssistant
		}
		if role != lastRole {
			flush()
			lastRole = role
		}
		pending = append(pending, item.Content)
	}
	flush()
	return messages
}

func collectText(msg *anthropic.Message) string {
	var parts []string
	for _, block := range msg.Content {
		if block.Type == "text" && block.Text != "" {
			parts = append(parts, block.Text)
		}
	}
	return strings.Join(parts, "\n")
}

var _ Generator = (*AnthropicGenerator)(nil)
