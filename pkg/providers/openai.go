package providers

import (
	"context"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/amayadev/amaya/pkg/config"
	"github.com/amayadev/amaya/pkg/domain"
	"github.com/amayadev/amaya/pkg/logger"
	"github.com/amayadev/amaya/pkg/metrics"
)

// OpenAIGenerator drives the OpenAI Chat Completions API, with an internal
// tool-call loop when the registry is non-empty.
type OpenAIGenerator struct {
	client       openai.Client
	model        string
	systemPrompt string
	tools        *Toolset
	metrics      *metrics.Runtime
}

// NewOpenAI builds a generator from the LLM config.
func NewOpenAI(cfg config.LLMConfig, tools *Toolset, m *metrics.Runtime) *OpenAIGenerator {
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	return &OpenAIGenerator{
		client:       openai.NewClient(opts...),
		model:        cfg.Model,
		systemPrompt: cfg.SystemPrompt,
		tools:        tools,
		metrics:      m,
	}
}

// Generate runs up to maxToolRounds completion calls, resolving tool calls
// between rounds, and returns the final assistant text.
func (g *OpenAIGenerator) Generate(ctx context.Context, items []ContextItem, extraInstruction string, allowTools bool) (string, error) {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(items)+2)
	if g.systemPrompt != "" {
		messages = append(messages, openai.SystemMessage(g.systemPrompt))
	}
	if extraInstruction != "" {
		messages = append(messages, openai.SystemMessage(extraInstruction))
	}
	for _, item := range items {
		switch item.Role {
		case domain.RoleSystem:
			messages = append(messages, openai.SystemMessage(item.Content))
		case domain.RoleWorld:
			// World context is ambient state, not user speech. The developer
			// role keeps it distinct from both.
			messages = append(messages, openai.DeveloperMessage(item.Content))
		case domain.RoleAmaya:
			messages = append(messages, openai.AssistantMessage(item.Content))
		default:
			messages = append(messages, openai.UserMessage(item.Content))
		}
	}

	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(g.model),
		Messages: messages,
	}
	if allowTools && !g.tools.Empty() {
		for _, t := range g.tools.All() {
			params.Tools = append(params.Tools, openai.ChatCompletionFunctionTool(
				openai.FunctionDefinitionParam{
					Name:        t.Name,
					Description: openai.String(t.Description),
					Parameters:  openai.FunctionParameters(t.Parameters),
				}))
		}
	}

	for round := 0; round < maxToolRounds; round++ {
		start := time.Now()
		resp, err := g.client.Chat.Completions.New(ctx, params)
		g.metrics.RecordLLMCall(time.Since(start), err != nil)
		if err != nil {
			if domain.IsCancellation(err) {
				return "", err
			}
			return "", &domain.GenerationError{Cause: err}
		}
		if len(resp.Choices) == 0 {
			return "", &domain.GenerationError{Cause: errNoChoices}
		}

		msg := resp.Choices[0].Message
		if len(msg.ToolCalls) == 0 {
			return msg.Content, nil
		}

		params.Messages = append(params.Messages, msg.ToParam())
		for _, tc := range msg.ToolCalls {
			logger.DebugCF("providers", "model requested tool",
				map[string]any{"tool": tc.Function.Name})
			result := g.tools.Execute(ctx, tc.Function.Name, []byte(tc.Function.Arguments))
			params.Messages = append(params.Messages, openai.ToolMessage(result, tc.ID))
		}
	}
	return "", &domain.GenerationError{Cause: errToolLoop}
}

var _ Generator = (*OpenAIGenerator)(nil)
