// NOVA OS - spiritually grounded voice assistant core.
// Realtime speech sessions, turn-based queries, and a live dashboard.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/agni-os/nova/pkg/agni"
	"github.com/agni-os/nova/pkg/audioio"
)

func main() {
	cfg := parseFlags()

	app, err := agni.New(cfg)
	if err != nil {
		log.Fatalf("configuration error: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := app.Init(ctx); err != nil {
		log.Fatalf("initialization failed: %v", err)
	}
	defer app.Shutdown()

	if err := app.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("runtime error: %v", err)
	}
}

// parseFlags layers command line flags over the environment config.
func parseFlags() agni.Config {
	// Missing .env files are fine, the environment may be set directly.
	godotenv.Load()

	cfg := agni.LoadEnvConfig()

	port := flag.String("port", cfg.Port, "Dashboard HTTP port")
	logLevel := flag.String("log-level", cfg.LogLevel, "Log level: debug, info, warn, error")
	voice := flag.String("voice", cfg.Voice, "Synthesis voice name")
	liveModel := flag.String("live-model", cfg.LiveModel, "Realtime model resource name")
	camera := flag.Bool("camera", cfg.CameraEnabled, "Stream vision frames during live sessions")
	cameraDevice := flag.Int("camera-device", cfg.CameraDevice, "Camera device index")
	recordPath := flag.String("record", cfg.RecordPath, "Archive session capture audio to this WAV path")
	audioBackend := flag.String("audio-backend", string(cfg.Capture.Backend), "Audio backend: auto, portaudio, mock")
	flag.Parse()

	cfg.Port = *port
	cfg.LogLevel = *logLevel
	cfg.Voice = *voice
	cfg.LiveModel = *liveModel
	cfg.CameraEnabled = *camera
	cfg.CameraDevice = *cameraDevice
	cfg.RecordPath = *recordPath
	cfg.Capture.Backend = audioio.Backend(*audioBackend)
	cfg.Playback.Backend = audioio.Backend(*audioBackend)

	return cfg
}
