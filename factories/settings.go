// Package factories loads configuration and assembles fully wired sessions.
package factories

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/bytedance/sonic"

	"podbuddy/orchestrator"
	"podbuddy/services/coqui"
	"podbuddy/services/ollama"
)

// SettingsConfig is the top-level config loaded from settings.json, with
// environment variables overriding individual fields.
type SettingsConfig struct {
	// Ollama configures the model backend.
	Ollama ollama.Config `json:"ollama"`
	// Coqui configures the synthesis backend.
	Coqui coqui.Config `json:"coqui"`
	// Persona overrides the default host persona prompt when set.
	Persona string `json:"persona,omitempty"`
	// ModelTimeoutSeconds bounds the wait on a model response.
	ModelTimeoutSeconds int `json:"model_timeout_seconds"`
	// SentenceGroup merges that many sentences per synthesis unit.
	SentenceGroup int `json:"sentence_group"`
	// MaxHistory caps the prompt history length.
	MaxHistory int `json:"max_history"`
	// MemoryPath is the JSON file holding cross-session memory.
	MemoryPath string `json:"memory_path"`
	// TopicsPath is the JSON cache of researched topics.
	TopicsPath string `json:"topics_path"`
	// Subreddits are the Reddit communities scanned for topics.
	Subreddits []string `json:"subreddits,omitempty"`
	// AudioDir holds temporary WAV files for local playback.
	AudioDir string `json:"audio_dir"`
	// ListenAddr, when set, serves the WebSocket transport on that address
	// instead of running the local voice loop.
	ListenAddr string `json:"listen_addr,omitempty"`
}

// DefaultSettingsConfig returns a SettingsConfig pre-filled with local-server
// defaults.
func DefaultSettingsConfig() SettingsConfig {
	return SettingsConfig{
		Ollama:              ollama.DefaultConfig(),
		Coqui:               coqui.DefaultConfig(),
		ModelTimeoutSeconds: 120,
		SentenceGroup:       2,
		MaxHistory:          20,
		MemoryPath:          "memory.json",
		TopicsPath:          "topics.json",
		Subreddits:          []string{"technology", "programming"},
		AudioDir:            os.TempDir(),
	}
}

// SettingsConfigFromJSON parses a JSON blob over the defaults.
func SettingsConfigFromJSON(data []byte) (SettingsConfig, error) {
	cfg := DefaultSettingsConfig()
	if err := sonic.Unmarshal(data, &cfg); err != nil {
		return DefaultSettingsConfig(), fmt.Errorf("settings: %w", err)
	}
	return cfg, nil
}

// SettingsConfigFromFile reads settings from a JSON file, then applies
// environment overrides. A missing file falls back to defaults plus env.
func SettingsConfigFromFile(path string) (SettingsConfig, error) {
	cfg := DefaultSettingsConfig()
	data, err := os.ReadFile(path)
	if err == nil {
		cfg, err = SettingsConfigFromJSON(data)
		if err != nil {
			return cfg, err
		}
	} else if !os.IsNotExist(err) {
		return cfg, fmt.Errorf("settings: read %q: %w", path, err)
	}
	cfg.applyEnv()
	return cfg, nil
}

func (c *SettingsConfig) applyEnv() {
	if v := os.Getenv("OLLAMA_URL"); v != "" {
		c.Ollama.BaseURL = v
	}
	if v := os.Getenv("OLLAMA_MODEL"); v != "" {
		c.Ollama.Model = v
	}
	if v := os.Getenv("COQUI_URL"); v != "" {
		c.Coqui.BaseURL = v
	}
	if v := os.Getenv("MEMORY_PATH"); v != "" {
		c.MemoryPath = v
	}
	if v := os.Getenv("LISTEN_ADDR"); v != "" {
		c.ListenAddr = v
	}
	if v := os.Getenv("MODEL_TIMEOUT_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.ModelTimeoutSeconds = n
		}
	}
}

// OrchestratorConfig derives the turn-pipeline config from the settings.
func (c SettingsConfig) OrchestratorConfig() orchestrator.Config {
	oc := orchestrator.DefaultConfig()
	if c.Persona != "" {
		oc.BasePersona = c.Persona
	}
	if c.ModelTimeoutSeconds > 0 {
		oc.ModelTimeout = time.Duration(c.ModelTimeoutSeconds) * time.Second
	}
	if c.SentenceGroup > 0 {
		oc.SentenceGroup = c.SentenceGroup
	}
	if c.MaxHistory > 0 {
		oc.MaxHistory = c.MaxHistory
	}
	return oc
}
