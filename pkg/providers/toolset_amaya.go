package providers

import (
	"context"
	"fmt"
	"strings"

	"github.com/adhocore/gronx"

	"github.com/amayadev/amaya/pkg/bus"
	"github.com/amayadev/amaya/pkg/domain"
)

// ToolDeps are the collaborators the built-in tools act on.
type ToolDeps struct {
	Reminders domain.ReminderStore
	Memory    domain.MemoryStore
	Bus       *bus.Bus
	// Timezone is the user's IANA zone; reminder times arrive from the model
	// in this zone and are stored in UTC.
	Timezone string
}

// AmayaToolset builds the standard tools: reminder creation and working
// memory management.
func AmayaToolset(deps ToolDeps) *Toolset {
	return NewToolset(
		createReminderTool(deps),
		createMemoryGroupTool(deps),
		createMemoryPointTool(deps),
		editMemoryPointTool(deps),
	)
}

func createReminderTool(deps ToolDeps) Tool {
	return Tool{
		Name:        "create_reminder",
		Description: "Create a new reminder",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"title": map[string]any{
					"type":        "string",
					"description": "The title of the reminder",
				},
				"time": map[string]any{
					"type":        "string",
					"description": "The date and time of the reminder in 'YYYY-MM-DD HH:MM' format, in the user's timezone",
				},
				"prompt": map[string]any{
					"type":        "string",
					"description": "When the reminder triggers, the conversation along with this prompt is fed back in to generate the most appropriate response for that moment. Keep it concise and accurate.",
				},
				"recur_cron": map[string]any{
					"type":        "string",
					"description": "Optional cron expression for a recurring reminder. Leave empty for one-shot.",
				},
			},
			"required": []string{"title", "time", "prompt"},
		},
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			title, err := stringArg(args, "title")
			if err != nil {
				return "", err
			}
			localTime, err := stringArg(args, "time")
			if err != nil {
				return "", err
			}
			prompt, err := stringArg(args, "prompt")
			if err != nil {
				return "", err
			}

			remindAtUTC, err := domain.LocalMinuteToUTC(strings.TrimSpace(localTime), deps.Timezone)
			if err != nil {
				return "", fmt.Errorf("time must be 'YYYY-MM-DD HH:MM': %w", err)
			}

			recurCron := strings.TrimSpace(optionalStringArg(args, "recur_cron"))
			if recurCron != "" && !gronx.New().IsValid(recurCron) {
				return "", fmt.Errorf("invalid cron expression %q", recurCron)
			}

			created, err := deps.Reminders.Create(ctx, domain.Reminder{
				Title:       title,
				RemindAtUTC: remindAtUTC,
				Prompt:      prompt,
				RecurCron:   recurCron,
			})
			if err != nil {
				return "", err
			}

			deps.Bus.Publish(bus.EventReminderCreated, created)
			return fmt.Sprintf("Reminder created with ID: %d", created.ID), nil
		},
	}
}

func createMemoryGroupTool(deps ToolDeps) Tool {
	return Tool{
		Name:        "create_memory_group",
		Description: "Create a new work memory group to organize memory points.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"title": map[string]any{
					"type":        "string",
					"description": "The title of the memory group. Keep it as short as possible. Do not use existing titles.",
				},
			},
			"required": []string{"title"},
		},
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			title, err := stringArg(args, "title")
			if err != nil {
				return "", err
			}
			if _, err := deps.Memory.CreateGroup(ctx, title); err != nil {
				return "", err
			}
			return fmt.Sprintf("Memory group created with title: '%s'", title), nil
		},
	}
}

func createMemoryPointTool(deps ToolDeps) Tool {
	return Tool{
		Name:        "create_memory_point",
		Description: "Create a new memory point in a specified memory group.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"memory_group_title": map[string]any{
					"type":        "string",
					"description": "The title of the memory group where the memory point will be added.",
				},
				"anchor": map[string]any{
					"type":        "string",
					"description": "The anchor (key) of the memory point.",
				},
				"content": map[string]any{
					"type":        "string",
					"description": "The content (value) of the memory point.",
				},
				"weight": map[string]any{
					"type":        "number",
					"description": "Memory strength, from 0 to 1. Default is 1.0.",
				},
			},
			"required": []string{"memory_group_title", "anchor", "content"},
		},
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			group, err := stringArg(args, "memory_group_title")
			if err != nil {
				return "", err
			}
			anchor, err := stringArg(args, "anchor")
			if err != nil {
				return "", err
			}
			content, err := stringArg(args, "content")
			if err != nil {
				return "", err
			}
			weight, ok := numberArg(args, "weight")
			if !ok {
				weight = 1.0
			}

			if _, err := deps.Memory.CreatePoint(ctx, group, anchor, content, weight); err != nil {
				return "", err
			}
			return fmt.Sprintf("Memory point created with anchor: '%s' in group: '%s'", anchor, group), nil
		},
	}
}

func editMemoryPointTool(deps ToolDeps) Tool {
	return Tool{
		Name:        "edit_memory_point_content",
		Description: "Edit the content of an existing memory point.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"memory_point_id": map[string]any{
					"type":        "integer",
					"description": "The ID of the memory point to be edited.",
				},
				"new_content": map[string]any{
					"type":        "string",
					"description": "The new content for the memory point.",
				},
			},
			"required": []string{"memory_point_id", "new_content"},
		},
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			id, ok := numberArg(args, "memory_point_id")
			if !ok {
				return "", fmt.Errorf("missing argument %q", "memory_point_id")
			}
			content, err := stringArg(args, "new_content")
			if err != nil {
				return "", err
			}

			err = deps.Memory.UpdatePointContent(ctx, int64(id), content)
			if err == domain.ErrNotFound {
				return "", fmt.Errorf("memory point with ID '%d' does not exist", int64(id))
			}
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("Memory point with ID '%d' has been updated.", int64(id)), nil
		},
	}
}
