// Package metrics collects runtime counters for observability: LLM call
// volume and latency, message traffic, reminder triggers.
package metrics

import (
	"sync"
	"time"
)

// Runtime is a mutex-guarded counter set. A single instance is shared by the
// orchestrator, channels and poller.
type Runtime struct {
	mu sync.Mutex

	llmCalls        int64
	llmErrors       int64
	llmTotalLatency time.Duration
	lastLLMCallAt   time.Time

	messagesIn         int64
	messagesOut        int64
	remindersTriggered int64
}

// New creates a zeroed metrics set.
func New() *Runtime {
	return &Runtime{}
}

// RecordLLMCall records one generation call and its latency.
func (m *Runtime) RecordLLMCall(latency time.Duration, failed bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.llmCalls++
	if latency > 0 {
		m.llmTotalLatency += latency
	}
	if failed {
		m.llmErrors++
	}
	m.lastLLMCallAt = time.Now().UTC()
}

// RecordMessageIn counts one inbound message.
func (m *Runtime) RecordMessageIn() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messagesIn++
}

// RecordMessageOut counts one outbound message.
func (m *Runtime) RecordMessageOut() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messagesOut++
}

// RecordReminderTriggered counts one triggered reminder.
func (m *Runtime) RecordReminderTriggered() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.remindersTriggered++
}

// Snapshot returns a point-in-time view of all counters.
func (m *Runtime) Snapshot() map[string]any {
	m.mu.Lock()
	defer m.mu.Unlock()

	avgLatencyMs := 0.0
	if m.llmCalls > 0 {
		avgLatencyMs = float64(m.llmTotalLatency.Milliseconds()) / float64(m.llmCalls)
	}

	snap := map[string]any{
		"llm_calls":           m.llmCalls,
		"llm_errors":          m.llmErrors,
		"llm_avg_latency_ms":  avgLatencyMs,
		"messages_in":         m.messagesIn,
		"messages_out":        m.messagesOut,
		"reminders_triggered": m.remindersTriggered,
	}
	if !m.lastLLMCallAt.IsZero() {
		snap["last_llm_call_at"] = m.lastLLMCallAt.Format(time.RFC3339)
	}
	return snap
}
