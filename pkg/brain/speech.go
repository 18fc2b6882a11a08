package brain

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/agni-os/nova/internal/log"
	"github.com/agni-os/nova/pkg/state"
)

// Synthesize renders text as 24 kHz mono PCM16 speech, performed in the
// register of the given emotion. A nil result with a nil error means
// the model produced no audio for this text, which is a valid outcome
// the caller handles by staying silent.
func (c *Client) Synthesize(ctx context.Context, text string, emotion state.Emotion) ([]byte, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptySpeechText
	}

	contents := []*genai.Content{
		genai.NewContentFromText(SpeechText(text, emotion), genai.RoleUser),
	}

	config := &genai.GenerateContentConfig{
		ResponseModalities: []string{"AUDIO"},
		SpeechConfig: &genai.SpeechConfig{
			VoiceConfig: &genai.VoiceConfig{
				PrebuiltVoiceConfig: &genai.PrebuiltVoiceConfig{
					VoiceName: c.cfg.Voice,
				},
			},
		},
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	resp, err := c.client.Models.GenerateContent(ctx, c.cfg.TTSModel, contents, config)
	if err != nil {
		return nil, fmt.Errorf("brain: synthesis failed: %w", err)
	}

	pcm := extractAudio(resp)
	if pcm == nil {
		log.Debug("synthesis produced no audio", "emotion", emotion)
	}
	return pcm, nil
}

// extractAudio returns the first inline audio blob, or nil.
func extractAudio(resp *genai.GenerateContentResponse) []byte {
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil
	}
	for _, part := range resp.Candidates[0].Content.Parts {
		if part.InlineData != nil && len(part.InlineData.Data) > 0 {
			return part.InlineData.Data
		}
	}
	return nil
}
