package tools

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/hkuds/vikingbot/internal/subagent"
)

// SpawnFunc runs a fresh agent loop under a named sub-agent configuration
// and returns the specialist's final text. The agent package injects this
// to avoid a dependency cycle.
type SpawnFunc func(ctx context.Context, agentName, prompt string) (string, error)

// SpawnTool delegates a task to a named specialist sub-agent.
type SpawnTool struct {
	BaseTool
	spawn SpawnFunc
}

// NewSpawnTool creates a spawn tool.
func NewSpawnTool(spawn SpawnFunc) *SpawnTool {
	return &SpawnTool{
		BaseTool: NewBaseTool(
			"spawn",
			fmt.Sprintf("Delegate a task to a specialist sub-agent and return its findings. Available agents: %s.",
				strings.Join(subagent.Names(), ", ")),
			map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"agent_name": map[string]interface{}{
						"type":        "string",
						"description": "Name of the sub-agent to run",
					},
					"prompt": map[string]interface{}{
						"type":        "string",
						"description": "Task description for the sub-agent",
					},
				},
				"required": []string{"agent_name", "prompt"},
			},
		),
		spawn: spawn,
	}
}

func (t *SpawnTool) Execute(ctx context.Context, params map[string]interface{}) (string, error) {
	agentName, err := GetStringParam(params, "agent_name")
	if err != nil {
		return "", fmt.Errorf("spawn: %w", err)
	}
	prompt, err := GetStringParam(params, "prompt")
	if err != nil {
		return "", fmt.Errorf("spawn: %w", err)
	}
	if strings.TrimSpace(prompt) == "" {
		return "", errors.New("spawn: prompt cannot be empty")
	}

	result, err := t.spawn(ctx, agentName, prompt)
	if err != nil {
		return "", fmt.Errorf("spawn: %w", err)
	}
	return result, nil
}
