package providers

import (
	"testing"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/amayadev/amaya/pkg/config"
	"github.com/amayadev/amaya/pkg/domain"
	"github.com/amayadev/amaya/pkg/metrics"
)

func TestNewSelectsProvider(t *testing.T) {
	m := metrics.New()

	gen, err := New(config.LLMConfig{Provider: "openai", APIKey: "k", Model: "gpt-4.1"}, nil, m)
	if err != nil {
		t.Fatalf("openai: %v", err)
	}
	if _, ok := gen.(*OpenAIGenerator); !ok {
		t.Errorf("got %T", gen)
	}

	gen, err = New(config.LLMConfig{Provider: "anthropic", APIKey: "k", Model: "claude-sonnet-4-5"}, nil, m)
	if err != nil {
		t.Fatalf("anthropic: %v", err)
	}
	if _, ok := gen.(*AnthropicGenerator); !ok {
		t.Errorf("got %T", gen)
	}

	if _, err := New(config.LLMConfig{Provider: "gemini"}, nil, m); err == nil {
		t.Error("expected error for unknown provider")
	}
}

func TestBuildAnthropicMessagesCoalescesRoles(t *testing.T) {
	items := []ContextItem{
		{Role: domain.RoleWorld, Content: "now: 2026-08-31 10:00"},
		{Role: domain.RoleUser, Content: "hey"},
		{Role: domain.RoleAmaya, Content: "hi!"},
		{Role: domain.RoleAmaya, Content: "how was your day?"},
		{Role: domain.RoleUser, Content: "good"},
	}

	messages := buildAnthropicMessages(items)
	if len(messages) != 3 {
		t.Fatalf("len = %d, want 3: %#v", len(messages), messages)
	}
	// World and user coalesce into the first user turn; the two assistant
	// items coalesce into one; the final user turn stands alone.
	wantRoles := []anthropic.MessageParamRole{
		anthropic.MessageParamRoleUser,
		anthropic.MessageParamRoleAssistant,
		anthropic.MessageParamRoleUser,
	}
	for i, want := range wantRoles {
		if messages[i].Role != want {
			t.Errorf("message %d role = %q, want %q", i, messages[i].Role, want)
		}
	}
}

func TestEmptyToolset(t *testing.T) {
	var ts *Toolset
	if !ts.Empty() {
		t.Error("nil toolset should be empty")
	}
	if len(ts.All()) != 0 {
		t.Error("nil toolset should have no tools")
	}
	if NewToolset().Empty() != true {
		t.Error("zero-tool toolset should be empty")
	}
}
