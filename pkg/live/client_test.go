package live

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"testing"
)

func TestNewClientRequiresAPIKey(t *testing.T) {
	_, err := NewClient(Config{}, Callbacks{})
	if !errors.Is(err, ErrMissingAPIKey) {
		t.Errorf("NewClient without key = %v, want ErrMissingAPIKey", err)
	}
}

func TestNewClientAppliesDefaults(t *testing.T) {
	c, err := NewClient(Config{APIKey: "k"}, Callbacks{})
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	if c.config.Model != defaultModel {
		t.Errorf("model = %q, want default", c.config.Model)
	}
	if c.config.Voice != defaultVoice {
		t.Errorf("voice = %q, want default", c.config.Voice)
	}
}

func TestCloseBeforeConnect(t *testing.T) {
	closeCalls := 0
	c, err := NewClient(Config{APIKey: "k"}, Callbacks{
		OnClose: func(string) { closeCalls++ },
	})
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}

	// Stopping a session that never opened must not crash, and must
	// not report a close for a connection that never existed.
	if err := c.Close(); err != nil {
		t.Errorf("Close before Connect = %v, want nil", err)
	}
	if err := c.Close(); err != nil {
		t.Errorf("second Close = %v, want nil", err)
	}
	if closeCalls != 0 {
		t.Errorf("OnClose fired %d times for a never-opened session", closeCalls)
	}
}

func TestSendBeforeConnect(t *testing.T) {
	c, err := NewClient(Config{APIKey: "k"}, Callbacks{})
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	if err := c.SendAudio([]byte{1, 2}); !errors.Is(err, ErrNotConnected) {
		t.Errorf("SendAudio before Connect = %v, want ErrNotConnected", err)
	}
	if err := c.SendImage([]byte{1, 2}); !errors.Is(err, ErrNotConnected) {
		t.Errorf("SendImage before Connect = %v, want ErrNotConnected", err)
	}
}

func TestBuildSetup(t *testing.T) {
	cfg := DefaultConfig()
	cfg.APIKey = "k"
	cfg.SystemPrompt = "be helpful"

	tools := []Tool{{
		Name:        "update_ui_state",
		Description: "set emotion",
		Parameters:  map[string]any{"type": "OBJECT"},
	}}

	msg := buildSetup(cfg, tools)

	setup, ok := msg["setup"].(map[string]any)
	if !ok {
		t.Fatal("missing setup block")
	}
	if setup["model"] != defaultModel {
		t.Errorf("model = %v, want %v", setup["model"], defaultModel)
	}

	genCfg := setup["generation_config"].(map[string]any)
	modalities := genCfg["response_modalities"].([]string)
	if len(modalities) != 1 || modalities[0] != "AUDIO" {
		t.Errorf("response_modalities = %v, want [AUDIO]", modalities)
	}

	if _, ok := setup["input_audio_transcription"]; !ok {
		t.Error("input transcription not requested")
	}
	if _, ok := setup["output_audio_transcription"]; !ok {
		t.Error("output transcription not requested")
	}

	toolBlocks := setup["tools"].([]map[string]any)
	decls := toolBlocks[0]["function_declarations"].([]map[string]any)
	if len(decls) != 1 || decls[0]["name"] != "update_ui_state" {
		t.Errorf("function declarations = %v", decls)
	}
}

func TestBuildSetupWithoutTools(t *testing.T) {
	cfg := DefaultConfig()
	cfg.APIKey = "k"

	msg := buildSetup(cfg, nil)
	setup := msg["setup"].(map[string]any)
	if _, ok := setup["tools"]; ok {
		t.Error("tools block should be absent with no tools registered")
	}
}

func parseJSON(t *testing.T, raw string) map[string]any {
	t.Helper()
	var msg map[string]any
	if err := json.Unmarshal([]byte(raw), &msg); err != nil {
		t.Fatalf("bad test JSON: %v", err)
	}
	return msg
}

func TestExtractAudioParts(t *testing.T) {
	pcm := []byte{0x01, 0x02, 0x03, 0x04}
	encoded := base64.StdEncoding.EncodeToString(pcm)

	raw := `{
		"parts": [
			{"text": "hello"},
			{"inlineData": {"mimeType": "audio/pcm;rate=24000", "data": "` + encoded + `"}},
			{"inlineData": {"mimeType": "image/png", "data": "` + encoded + `"}},
			{"inlineData": {"mimeType": "audio/pcm", "data": "not-base64!!"}}
		]
	}`
	modelTurn := parseJSON(t, raw)

	got := extractAudioParts(modelTurn)
	if len(got) != 1 {
		t.Fatalf("extracted %d audio parts, want 1", len(got))
	}
	if string(got[0]) != string(pcm) {
		t.Errorf("decoded audio = %v, want %v", got[0], pcm)
	}
}

func TestExtractTranscript(t *testing.T) {
	content := parseJSON(t, `{"inputTranscription": {"text": "agni, hello"}}`)

	text, ok := extractTranscript(content, "inputTranscription")
	if !ok || text != "agni, hello" {
		t.Errorf("extractTranscript = (%q, %v), want (agni, hello, true)", text, ok)
	}

	if _, ok := extractTranscript(content, "outputTranscription"); ok {
		t.Error("absent transcription block should report false")
	}

	empty := parseJSON(t, `{"inputTranscription": {"text": ""}}`)
	if _, ok := extractTranscript(empty, "inputTranscription"); ok {
		t.Error("empty transcript should report false")
	}
}

func TestExtractToolCalls(t *testing.T) {
	raw := `{
		"functionCalls": [
			{"id": "call-1", "name": "update_ui_state", "args": {"emotion": "happy"}},
			{"id": "call-2", "name": "get_current_time", "args": {}}
		]
	}`
	calls := extractToolCalls(parseJSON(t, raw))

	if len(calls) != 2 {
		t.Fatalf("extracted %d calls, want 2", len(calls))
	}
	if calls[0].Name != "update_ui_state" || calls[0].ID != "call-1" {
		t.Errorf("first call = %+v", calls[0])
	}
	if calls[0].Arguments["emotion"] != "happy" {
		t.Errorf("first call args = %v", calls[0].Arguments)
	}
}

func TestHandleMessageDispatch(t *testing.T) {
	pcm := []byte{9, 8, 7, 6}
	encoded := base64.StdEncoding.EncodeToString(pcm)

	var gotAudio []byte
	var gotInput, gotOutput string
	turnCompletes := 0
	interrupts := 0

	c, err := NewClient(Config{APIKey: "k"}, Callbacks{
		OnAudio:            func(_ string, b []byte) { gotAudio = b },
		OnInputTranscript:  func(_, s string) { gotInput = s },
		OnOutputTranscript: func(_, s string) { gotOutput = s },
		OnTurnComplete:     func(string) { turnCompletes++ },
		OnInterrupted:      func(string) { interrupts++ },
	})
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}

	c.handleMessage("sid", parseJSON(t, `{"serverContent": {"modelTurn": {"parts": [
		{"inlineData": {"mimeType": "audio/pcm", "data": "`+encoded+`"}}
	]}}}`))
	if string(gotAudio) != string(pcm) {
		t.Errorf("audio callback got %v, want %v", gotAudio, pcm)
	}

	c.handleMessage("sid", parseJSON(t, `{"serverContent": {"inputTranscription": {"text": "hi"}}}`))
	if gotInput != "hi" {
		t.Errorf("input transcript = %q, want hi", gotInput)
	}

	c.handleMessage("sid", parseJSON(t, `{"serverContent": {"outputTranscription": {"text": "hello there"}}}`))
	if gotOutput != "hello there" {
		t.Errorf("output transcript = %q", gotOutput)
	}

	c.handleMessage("sid", parseJSON(t, `{"serverContent": {"turnComplete": true}}`))
	if turnCompletes != 1 {
		t.Errorf("turnComplete fired %d times, want 1", turnCompletes)
	}

	c.handleMessage("sid", parseJSON(t, `{"serverContent": {"interrupted": true}}`))
	if interrupts != 1 {
		t.Errorf("interrupted fired %d times, want 1", interrupts)
	}

	// Unknown messages are ignored.
	c.handleMessage("sid", parseJSON(t, `{"usageMetadata": {"totalTokens": 5}}`))
}
