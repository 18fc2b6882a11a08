package agni

import (
	"fmt"
	"time"

	"github.com/agni-os/nova/pkg/live"
	"github.com/agni-os/nova/pkg/state"
)

// liveTools returns the function declarations registered on every live
// session.
func (a *App) liveTools() []live.Tool {
	emotions := make([]string, len(state.Emotions))
	for i, e := range state.Emotions {
		emotions[i] = string(e)
	}

	return []live.Tool{
		{
			Name:        "update_ui_state",
			Description: "Updates the visual interface state and emotional resonance of the UI.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"emotion": map[string]any{
						"type": "string",
						"enum": emotions,
					},
					"state": map[string]any{
						"type": "string",
						"enum": []string{"IDLE", "LISTENING", "SPEAKING", "ERROR"},
					},
				},
				"required": []string{"emotion"},
			},
			Handler: a.handleUpdateUIState,
		},
		{
			Name:        "get_current_time",
			Description: "Returns the current local date and time.",
			Parameters: map[string]any{
				"type":       "object",
				"properties": map[string]any{},
			},
			Handler: func(map[string]any) (string, error) {
				return time.Now().Format("Monday, January 2, 2006 3:04 PM"), nil
			},
		},
	}
}

// handleUpdateUIState applies the model's emotion, and optionally a
// state override, to the machine.
func (a *App) handleUpdateUIState(args map[string]any) (string, error) {
	raw, ok := args["emotion"].(string)
	if !ok || raw == "" {
		return "", fmt.Errorf("emotion is required")
	}
	emotion, err := state.ParseEmotion(raw)
	if err != nil {
		return "", err
	}
	a.machine.SetEmotion(emotion)

	if s, ok := args["state"].(string); ok && s != "" {
		st, err := state.ParseState(s)
		if err != nil {
			return "", err
		}
		a.machine.Set(st)
	}

	a.addLog("tool", "ui state -> "+string(emotion))
	return "UI state updated.", nil
}
