package audioio

import (
	"os"
	"path/filepath"
	"testing"
)

func TestRecorderWritesWAV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.wav")

	rec, err := NewRecorder(path, 16000, 1)
	if err != nil {
		t.Fatalf("NewRecorder failed: %v", err)
	}

	rec.Record(Chunk{Samples: []int16{0, 100, -100, 200}, SampleRate: 16000, Channels: 1})
	rec.Record(Chunk{Samples: []int16{300, -300}, SampleRate: 16000, Channels: 1})

	if err := rec.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("recording file missing: %v", err)
	}
	// 44-byte RIFF header plus 6 samples of PCM16.
	if info.Size() < 44+12 {
		t.Errorf("recording file too small: %d bytes", info.Size())
	}
}

func TestRecorderCloseIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.wav")
	rec, err := NewRecorder(path, 24000, 1)
	if err != nil {
		t.Fatalf("NewRecorder failed: %v", err)
	}
	if err := rec.Close(); err != nil {
		t.Fatalf("first Close failed: %v", err)
	}
	if err := rec.Close(); err != nil {
		t.Fatalf("second Close failed: %v", err)
	}

	// Writes after Close are dropped silently.
	rec.Record(Chunk{Samples: []int16{1}})
}
