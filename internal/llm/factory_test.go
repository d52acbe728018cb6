package llm

import (
	"strings"
	"testing"

	"github.com/crowdproof/crowdproof/internal/model"
)

func TestNewProvider_Disabled(t *testing.T) {
	provider, err := NewProvider(Config{Provider: ""})
	if err != nil {
		t.Fatalf("Expected no error for disabled provider, got %v", err)
	}
	if provider != nil {
		t.Error("Expected nil provider when disabled")
	}
}

func TestNewProvider_Ollama(t *testing.T) {
	provider, err := NewProvider(Config{Provider: "ollama"})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if provider.Name() != "ollama" {
		t.Errorf("Expected ollama provider, got %s", provider.Name())
	}
}

func TestNewProvider_OpenAI_RequiresKey(t *testing.T) {
	_, err := NewProvider(Config{Provider: "openai"})
	if err == nil {
		t.Fatal("Expected error when API key missing")
	}
	if !strings.Contains(err.Error(), "API key") {
		t.Errorf("Expected API key error, got %v", err)
	}
}

func TestNewProvider_OpenAI(t *testing.T) {
	provider, err := NewProvider(Config{Provider: "openai", APIKey: "sk-test"})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if provider.Name() != "openai" {
		t.Errorf("Expected openai provider, got %s", provider.Name())
	}
}

func TestNewProvider_CaseInsensitive(t *testing.T) {
	provider, err := NewProvider(Config{Provider: "Ollama"})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if provider.Name() != "ollama" {
		t.Errorf("Expected ollama provider, got %s", provider.Name())
	}
}

func TestNewProvider_Unknown(t *testing.T) {
	_, err := NewProvider(Config{Provider: "smoke-signals"})
	if err == nil {
		t.Fatal("Expected error for unknown provider")
	}
}

func TestConfigFromModel(t *testing.T) {
	modelConfig := model.LLMConfig{
		Provider:  "openai",
		Model:     "gpt-4o-mini",
		APIKey:    "sk-test",
		BaseURL:   "https://proxy.example.com/v1",
		Timeout:   45,
		MaxTokens: 500,
	}

	config := ConfigFromModel(modelConfig)

	if config.Provider != "openai" || config.Model != "gpt-4o-mini" {
		t.Error("Expected provider and model to carry over")
	}
	if config.APIKey != "sk-test" || config.BaseURL != "https://proxy.example.com/v1" {
		t.Error("Expected credentials and base URL to carry over")
	}
	if config.Timeout != 45 || config.MaxTokens != 500 {
		t.Error("Expected timeout and max tokens to carry over")
	}
}
