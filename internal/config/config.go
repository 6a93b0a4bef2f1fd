package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Rachel — calm, supportive default voice.
const defaultVoiceID = "21m00Tcm4TlvDq8ikWAM"

type Config struct {
	TelegramBotToken      string
	TelegramWebhookSecret string
	ElevenLabsAPIKey      string
	ElevenLabsVoiceID     string
	Port                  int
	DataDir               string // base directory for runtime data (default: "data")
	PollTimeout           time.Duration
	PollRetryDelay        time.Duration
	LogLevel              string
	LogVerbose            bool
	OTELEnabled           bool
	OTELEndpoint          string
	OTELServiceName       string
	OTELEnvironment       string
	OTELInsecure          bool
}

func Load() (*Config, error) {
	token := os.Getenv("TELEGRAM_BOT_TOKEN")
	if token == "" {
		return nil, fmt.Errorf("TELEGRAM_BOT_TOKEN is required")
	}

	elevenKey := os.Getenv("ELEVENLABS_API_KEY")
	if elevenKey == "" {
		return nil, fmt.Errorf("ELEVENLABS_API_KEY is required")
	}

	voiceID := os.Getenv("ELEVENLABS_VOICE_ID")
	if voiceID == "" {
		voiceID = defaultVoiceID
	}

	port := 8080
	if p := os.Getenv("PORT"); p != "" {
		var err error
		port, err = strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("PORT must be a number: %w", err)
		}
	}

	dataDir := os.Getenv("DATA_DIR")
	if dataDir == "" {
		dataDir = "data"
	}

	pollTimeout := 30 * time.Second
	if t := os.Getenv("POLL_TIMEOUT_SECONDS"); t != "" {
		secs, err := strconv.Atoi(t)
		if err != nil || secs <= 0 {
			return nil, fmt.Errorf("POLL_TIMEOUT_SECONDS must be a positive number")
		}
		pollTimeout = time.Duration(secs) * time.Second
	}

	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info"
	}
	logVerbose := os.Getenv("LOG_VERBOSE") == "1" || os.Getenv("LOG_VERBOSE") == "true"

	otelEnabled := os.Getenv("OTEL_ENABLED") == "1" || os.Getenv("OTEL_ENABLED") == "true"
	otelServiceName := os.Getenv("OTEL_SERVICE_NAME")
	if otelServiceName == "" {
		otelServiceName = "kalm"
	}
	otelEnvironment := os.Getenv("OTEL_ENVIRONMENT")
	if otelEnvironment == "" {
		otelEnvironment = "dev"
	}
	otelInsecure := os.Getenv("OTEL_INSECURE") == "1" || os.Getenv("OTEL_INSECURE") == "true"

	return &Config{
		TelegramBotToken:      token,
		TelegramWebhookSecret: os.Getenv("TELEGRAM_WEBHOOK_SECRET"),
		ElevenLabsAPIKey:      elevenKey,
		ElevenLabsVoiceID:     voiceID,
		Port:                  port,
		DataDir:               dataDir,
		PollTimeout:           pollTimeout,
		PollRetryDelay:        5 * time.Second,
		LogLevel:              logLevel,
		LogVerbose:            logVerbose,
		OTELEnabled:           otelEnabled,
		OTELEndpoint:          os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		OTELServiceName:       otelServiceName,
		OTELEnvironment:       otelEnvironment,
		OTELInsecure:          otelInsecure,
	}, nil
}
