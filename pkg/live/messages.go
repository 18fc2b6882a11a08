package live

import "encoding/base64"

// buildSetup assembles the session setup message: model, audio response
// with the configured voice, transcription both ways, the system
// instruction, and any registered tools.
func buildSetup(cfg Config, tools []Tool) map[string]any {
	setup := map[string]any{
		"model": cfg.Model,
		"generation_config": map[string]any{
			"response_modalities": []string{"AUDIO"},
			"speech_config": map[string]any{
				"voice_config": map[string]any{
					"prebuilt_voice_config": map[string]any{
						"voice_name": cfg.Voice,
					},
				},
			},
		},
		"system_instruction": map[string]any{
			"parts": []map[string]any{
				{"text": cfg.SystemPrompt},
			},
		},
		"input_audio_transcription":  map[string]any{},
		"output_audio_transcription": map[string]any{},
	}

	if len(tools) > 0 {
		var decls []map[string]any
		for _, tool := range tools {
			decls = append(decls, map[string]any{
				"name":        tool.Name,
				"description": tool.Description,
				"parameters":  tool.Parameters,
			})
		}
		setup["tools"] = []map[string]any{
			{"function_declarations": decls},
		}
	}

	return map[string]any{"setup": setup}
}

// extractAudioParts pulls decoded PCM from a modelTurn's inline audio
// parts, in order.
func extractAudioParts(modelTurn map[string]any) [][]byte {
	parts, ok := modelTurn["parts"].([]any)
	if !ok {
		return nil
	}

	var out [][]byte
	for _, part := range parts {
		partMap, ok := part.(map[string]any)
		if !ok {
			continue
		}
		inline, ok := partMap["inlineData"].(map[string]any)
		if !ok {
			continue
		}
		mimeType, _ := inline["mimeType"].(string)
		if mimeType != "audio/pcm" && mimeType != "audio/pcm;rate=24000" {
			continue
		}
		data, ok := inline["data"].(string)
		if !ok {
			continue
		}
		pcm, err := base64.StdEncoding.DecodeString(data)
		if err != nil || len(pcm) == 0 {
			continue
		}
		out = append(out, pcm)
	}
	return out
}

// extractTranscript reads the text of a transcription block.
func extractTranscript(content map[string]any, key string) (string, bool) {
	block, ok := content[key].(map[string]any)
	if !ok {
		return "", false
	}
	text, ok := block["text"].(string)
	if !ok || text == "" {
		return "", false
	}
	return text, true
}

// extractToolCalls flattens a toolCall message into calls.
func extractToolCalls(toolCall map[string]any) []ToolCall {
	functionCalls, ok := toolCall["functionCalls"].([]any)
	if !ok {
		return nil
	}

	var out []ToolCall
	for _, fc := range functionCalls {
		fcMap, ok := fc.(map[string]any)
		if !ok {
			continue
		}
		name, _ := fcMap["name"].(string)
		id, _ := fcMap["id"].(string)
		args, _ := fcMap["args"].(map[string]any)
		out = append(out, ToolCall{ID: id, Name: name, Arguments: args})
	}
	return out
}
