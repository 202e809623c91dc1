// Package coqui synthesizes speech through a locally running Coqui TTS
// server. The server exposes a simple HTTP endpoint that returns a WAV body.
package coqui

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"podbuddy/core"
	"podbuddy/utils/audio"
)

// Config holds the connection settings for the Coqui server.
type Config struct {
	BaseURL string `json:"base_url"`
	Speaker string `json:"speaker"`
	Timeout time.Duration
}

// DefaultConfig returns a Config with sensible defaults for a local server.
func DefaultConfig() Config {
	return Config{
		BaseURL: "http://localhost:5002",
		Timeout: 30 * time.Second,
	}
}

// TTS is a Coqui-backed synthesis engine. It implements synth.Engine.
type TTS struct {
	config Config
	client *http.Client
	logger *core.Logger
}

func NewTTS(config Config, logger *core.Logger) *TTS {
	defaults := DefaultConfig()
	if config.BaseURL == "" {
		config.BaseURL = defaults.BaseURL
	}
	if config.Timeout == 0 {
		config.Timeout = defaults.Timeout
	}
	if logger == nil {
		logger = core.GetLogger()
	}
	return &TTS{
		config: config,
		client: &http.Client{Timeout: config.Timeout},
		logger: logger.With(map[string]interface{}{"component": "coqui"}),
	}
}

// Check verifies the server is up.
func (t *TTS) Check(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.config.BaseURL+"/", nil)
	if err != nil {
		return err
	}
	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("coqui: server unreachable: %w", err)
	}
	resp.Body.Close()
	return nil
}

// SynthesizeToBuffer renders text to a PCM audio buffer.
func (t *TTS) SynthesizeToBuffer(ctx context.Context, text string) (*core.AudioBuffer, error) {
	params := url.Values{}
	params.Set("text", text)
	if t.config.Speaker != "" {
		params.Set("speaker_id", t.config.Speaker)
	}

	endpoint := strings.TrimRight(t.config.BaseURL, "/") + "/api/tts?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	resp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("coqui: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("coqui: server returned %d: %s", resp.StatusCode, string(body))
	}

	wav, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("coqui: read response: %w", err)
	}

	buf, err := audio.DecodeWAV(wav)
	if err != nil {
		return nil, fmt.Errorf("coqui: decode response: %w", err)
	}

	t.logger.Debug("synthesis done",
		"chars", len(text),
		"audio_seconds", fmt.Sprintf("%.2f", buf.DurationSeconds()),
		"elapsed_ms", time.Since(start).Milliseconds())
	return buf, nil
}
