// Package providers implements the LLM response generators behind the
// orchestrator's planning calls, plus the tool registry the models can call
// into (reminders, memory).
package providers

import (
	"context"
	"fmt"

	"github.com/amayadev/amaya/pkg/config"
	"github.com/amayadev/amaya/pkg/domain"
	"github.com/amayadev/amaya/pkg/metrics"
)

// ContextItem is one entry of the assembled planning context, in order.
// The generator maps roles onto whatever the wire protocol supports.
type ContextItem struct {
	Role    domain.MessageRole
	Content string
}

// Generator produces Amaya's raw reply text (with segmentation markers) from
// the assembled context. extraInstruction, when non-empty, is an additional
// instruction for this one call (a triggered reminder's prompt).
// Implementations must honor ctx cancellation: the orchestrator cancels
// in-flight generations when new input arrives.
type Generator interface {
	Generate(ctx context.Context, items []ContextItem, extraInstruction string, allowTools bool) (string, error)
}

// New builds the generator named by the config.
func New(cfg config.LLMConfig, tools *Toolset, m *metrics.Runtime) (Generator, error) {
	switch cfg.Provider {
	case "openai":
		return NewOpenAI(cfg, tools, m), nil
	case "anthropic":
		return NewAnthropic(cfg, tools, m), nil
	}
	return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
}

// maxToolRounds bounds the tool-call loop inside one generation so a model
// stuck calling tools cannot spin forever.
const maxToolRounds = 8
