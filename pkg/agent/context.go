package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/amayadev/amaya/pkg/domain"
	"github.com/amayadev/amaya/pkg/logger"
	"github.com/amayadev/amaya/pkg/providers"
	"github.com/amayadev/amaya/pkg/segment"
)

// plan assembles the planning context and runs one generation. Context
// layout, in order:
//  1. a world item with the memory dump, world info and pending reminders;
//  2. recent history oldest-first, each prefixed with its local time;
//  3. a world item second from last with the current time, any trigger
//     context, and the interrupted-plan buffer ("what I was about to say");
//  4. the newest history entry.
func (a *Amaya) plan(ctx context.Context, buffer []segment.Segment, trigger pendingTrigger) (string, error) {
	items := []providers.ContextItem{
		{Role: domain.RoleWorld, Content: a.ambientWorldItem(ctx, trigger.worldContext)},
	}

	history, err := a.deps.Messages.Recent(ctx, a.deps.HistoryLimit)
	if err != nil {
		return "", fmt.Errorf("load history: %w", err)
	}
	// Recent is newest-first; the model reads oldest-first.
	for i := len(history) - 1; i >= 0; i-- {
		m := history[i]
		items = append(items, providers.ContextItem{
			Role:    m.Role,
			Content: fmt.Sprintf("[%s] %s", a.localTime(m), m.Content),
		})
	}

	special := a.specialWorldItem(buffer, trigger.worldContext)
	at := len(items) - 1
	if at < 1 {
		at = 1
	}
	items = append(items, providers.ContextItem{})
	copy(items[at+1:], items[at:])
	items[at] = providers.ContextItem{Role: domain.RoleWorld, Content: special}

	return a.deps.Generator.Generate(ctx, items, trigger.instruction, true)
}

// ambientWorldItem renders the memory dump, world info and pending reminders.
func (a *Amaya) ambientWorldItem(ctx context.Context, worldInfo string) string {
	var b strings.Builder

	b.WriteString("[Memory Context]\n")
	groups, err := a.deps.Memory.Groups(ctx)
	if err != nil {
		logger.WarnCF(component, "failed to load memory groups",
			map[string]any{"error": err.Error()})
	}
	for _, group := range groups {
		fmt.Fprintf(&b, "Memory group: %s{\n", group.Title)
		points, err := a.deps.Memory.PointsByGroup(ctx, group.ID)
		if err != nil {
			logger.WarnCF(component, "failed to load memory points",
				map[string]any{"group": group.Title, "error": err.Error()})
		}
		for _, p := range points {
			fmt.Fprintf(&b, "- [%s]->%s\n", p.Anchor, p.Content)
		}
		b.WriteString("}\n\n-----\n")
	}

	fmt.Fprintf(&b, "\n\n-----\n\n[World Info]\n%s", worldInfo)

	pending, err := a.deps.Reminders.Pending(ctx)
	if err != nil {
		logger.WarnCF(component, "failed to load pending reminders",
			map[string]any{"error": err.Error()})
	}
	if len(pending) > 0 {
		b.WriteString("\n\n-----\n[Pending Reminders]\n")
		for _, r := range pending {
			fmt.Fprintf(&b, "- [%d] %s (at %s)\n",
				r.ID, r.Title, domain.UTCMinuteToLocal(r.RemindAtUTC, a.deps.Timezone))
		}
	}
	return b.String()
}

// specialWorldItem renders the time anchor and the interruption buffer.
func (a *Amaya) specialWorldItem(buffer []segment.Segment, worldContext string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Current time: %s", domain.NowLocalMinute(a.deps.Timezone))
	if worldContext != "" {
		b.WriteString("\n")
		b.WriteString(worldContext)
	}
	if len(buffer) > 0 {
		b.WriteString("\n\n[Amaya Context] Before the following message arrived, this is what Amaya was about to send:{\n")
		for _, seg := range buffer {
			fmt.Fprintf(&b, "- %s\n", seg.Text)
		}
		b.WriteString("}\n")
	}
	return b.String()
}

func (a *Amaya) localTime(m domain.Message) string {
	return domain.UTCMinuteToLocal(m.CreatedAt.UTC().Format(domain.MinuteLayout), a.deps.Timezone)
}
