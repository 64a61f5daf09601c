package ai

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/hrygo/slotfinder/internal/profile"
)

func TestNewConfigFromProfile_DeepSeek(t *testing.T) {
	prof := &profile.Profile{
		AIEnabled:         true,
		AILLMProvider:     "deepseek",
		AILLMModel:        "deepseek-chat",
		AIDeepSeekAPIKey:  "deepseek-key",
		AIDeepSeekBaseURL: "https://api.deepseek.com",
		AIParseTimeout:    5 * time.Second,
		AIMaxConcurrency:  3,
	}

	cfg := NewConfigFromProfile(prof)

	assert.True(t, cfg.Enabled)
	assert.Equal(t, "deepseek", cfg.LLM.Provider)
	assert.Equal(t, "deepseek-chat", cfg.LLM.Model)
	assert.Equal(t, "deepseek-key", cfg.LLM.APIKey)
	assert.Equal(t, "https://api.deepseek.com", cfg.LLM.BaseURL)
	assert.Equal(t, 1024, cfg.LLM.MaxTokens)
	assert.Equal(t, 5*time.Second, cfg.ParseTimeout)
	assert.Equal(t, 3, cfg.MaxConcurrency)
	assert.NoError(t, cfg.Validate())
}

func TestNewConfigFromProfile_OpenAI(t *testing.T) {
	prof := &profile.Profile{
		AIEnabled:       true,
		AILLMProvider:   "openai",
		AILLMModel:      "gpt-4o-mini",
		AIOpenAIAPIKey:  "openai-key",
		AIOpenAIBaseURL: "https://api.openai.com/v1",
	}

	cfg := NewConfigFromProfile(prof)

	assert.True(t, cfg.Enabled)
	assert.Equal(t, "openai-key", cfg.LLM.APIKey)
	assert.Equal(t, "https://api.openai.com/v1", cfg.LLM.BaseURL)
	assert.NoError(t, cfg.Validate())
}

func TestNewConfigFromProfile_Ollama(t *testing.T) {
	prof := &profile.Profile{
		AIEnabled:       true,
		AILLMProvider:   "ollama",
		AILLMModel:      "llama3",
		AIOllamaBaseURL: "http://localhost:11434",
	}

	cfg := NewConfigFromProfile(prof)

	assert.True(t, cfg.Enabled)
	assert.Empty(t, cfg.LLM.APIKey)
	assert.Equal(t, "http://localhost:11434", cfg.LLM.BaseURL)
	assert.NoError(t, cfg.Validate())
}

func TestNewConfigFromProfile_Disabled(t *testing.T) {
	t.Run("flag off", func(t *testing.T) {
		cfg := NewConfigFromProfile(&profile.Profile{AIEnabled: false, AILLMProvider: "openai", AIOpenAIAPIKey: "k"})
		assert.False(t, cfg.Enabled)
		assert.Empty(t, cfg.LLM.Provider)
		assert.NoError(t, cfg.Validate())
	})

	t.Run("missing key", func(t *testing.T) {
		cfg := NewConfigFromProfile(&profile.Profile{AIEnabled: true, AILLMProvider: "openai"})
		assert.False(t, cfg.Enabled)
	})
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"disabled", Config{}, false},
		{"no provider", Config{Enabled: true}, true},
		{"no key", Config{Enabled: true, LLM: LLMConfig{Provider: "openai", Model: "m"}}, true},
		{"no model", Config{Enabled: true, LLM: LLMConfig{Provider: "openai", APIKey: "k"}}, true},
		{"ollama without key", Config{Enabled: true, LLM: LLMConfig{Provider: "ollama", Model: "m"}}, false},
		{"negative timeout", Config{Enabled: true, LLM: LLMConfig{Provider: "ollama", Model: "m"}, ParseTimeout: -time.Second}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
