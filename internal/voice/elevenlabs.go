// Package voice wraps the ElevenLabs REST API: text-to-speech for outgoing
// voice notes and instant voice cloning from an audio sample.
package voice

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"time"
)

const (
	defaultBaseURL = "https://api.elevenlabs.io/v1"
	modelID        = "eleven_multilingual_v2"

	synthesizeTimeout = 60 * time.Second
	cloneTimeout      = 60 * time.Second
)

type ElevenLabsClient struct {
	apiKey     string
	voiceID    string
	baseURL    string
	httpClient *http.Client
}

// NewElevenLabsClient returns a client speaking with voiceID by default.
func NewElevenLabsClient(apiKey, voiceID string) *ElevenLabsClient {
	return &ElevenLabsClient{
		apiKey:     apiKey,
		voiceID:    voiceID,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{},
	}
}

// Synthesize renders text with the client's default voice.
func (c *ElevenLabsClient) Synthesize(ctx context.Context, text string) ([]byte, error) {
	return c.SynthesizeVoice(ctx, text, c.voiceID)
}

// SynthesizeVoice converts text to speech with an explicit voice and returns
// the audio as MP3 bytes.
func (c *ElevenLabsClient) SynthesizeVoice(ctx context.Context, text, voiceID string) ([]byte, error) {
	payload := map[string]any{
		"text":     text,
		"model_id": modelID,
		"voice_settings": map[string]any{
			"stability":        0.5,
			"similarity_boost": 0.75,
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("elevenlabs: marshal: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, synthesizeTimeout)
	defer cancel()

	url := fmt.Sprintf("%s/text-to-speech/%s", c.baseURL, voiceID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("elevenlabs: request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("xi-api-key", c.apiKey)
	req.Header.Set("Accept", "audio/mpeg")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("elevenlabs: do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("elevenlabs: status %d: %s", resp.StatusCode, respBody)
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("elevenlabs: read audio: %w", err)
	}
	return audio, nil
}

// CloneVoice uploads an audio sample and returns the new voice_id. Background
// noise removal is always requested since samples come from phone recordings.
func (c *ElevenLabsClient) CloneVoice(ctx context.Context, audio []byte, name string) (string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if err := mw.WriteField("name", name); err != nil {
		return "", fmt.Errorf("elevenlabs: write name: %w", err)
	}
	if err := mw.WriteField("remove_background_noise", "true"); err != nil {
		return "", fmt.Errorf("elevenlabs: write flag: %w", err)
	}

	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", `form-data; name="files"; filename="voice_sample.ogg"`)
	header.Set("Content-Type", "audio/ogg")
	part, err := mw.CreatePart(header)
	if err != nil {
		return "", fmt.Errorf("elevenlabs: create part: %w", err)
	}
	if _, err := part.Write(audio); err != nil {
		return "", fmt.Errorf("elevenlabs: write sample: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("elevenlabs: close multipart: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, cloneTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/voices/add", &buf)
	if err != nil {
		return "", fmt.Errorf("elevenlabs: request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("xi-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("elevenlabs: do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("elevenlabs: status %d: %s", resp.StatusCode, respBody)
	}

	var result struct {
		VoiceID string `json:"voice_id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("elevenlabs: decode clone result: %w", err)
	}
	if result.VoiceID == "" {
		return "", fmt.Errorf("elevenlabs: clone response has no voice_id")
	}
	return result.VoiceID, nil
}
