// Package ai implements the OpenAI-backed collaborators: question generation,
// response scoring, question speech synthesis, and answer transcription.
package ai

import (
	"context"
	"log/slog"
	"math"
	"time"

	"github.com/sashabaranov/go-openai"
)

// Config holds the AI provider configuration.
type Config struct {
	BaseURL         string
	APIKey          string
	ChatModel       string
	SpeechModel     string
	SpeechVoice     string
	TranscribeModel string
	MaxRetries      int
	Timeout         time.Duration
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		BaseURL:         "https://api.openai.com/v1",
		ChatModel:       "gpt-4o-mini",
		SpeechModel:     "tts-1",
		SpeechVoice:     "alloy",
		TranscribeModel: "whisper-1",
		MaxRetries:      3,
		Timeout:         30 * time.Second,
	}
}

// Provider wraps one OpenAI-compatible client shared by every collaborator.
type Provider struct {
	client *openai.Client
	config *Config
	logger *slog.Logger
}

// NewProvider creates a new AI provider.
func NewProvider(cfg *Config, logger *slog.Logger) *Provider {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.ChatModel == "" {
		cfg.ChatModel = "gpt-4o-mini"
	}
	if cfg.SpeechModel == "" {
		cfg.SpeechModel = "tts-1"
	}
	if cfg.SpeechVoice == "" {
		cfg.SpeechVoice = "alloy"
	}
	if cfg.TranscribeModel == "" {
		cfg.TranscribeModel = "whisper-1"
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}

	return &Provider{
		client: openai.NewClientWithConfig(clientConfig),
		config: cfg,
		logger: logger,
	}
}

// doWithRetry executes a function with exponential backoff retry.
func (p *Provider) doWithRetry(ctx context.Context, fn func() error) error {
	var lastErr error
	for attempt := 0; attempt < p.config.MaxRetries; attempt++ {
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			if attempt < p.config.MaxRetries-1 {
				waitTime := time.Duration(math.Pow(2, float64(attempt))) * time.Second
				if p.logger != nil {
					p.logger.Debug("ai request failed, retrying",
						"attempt", attempt+1,
						"wait_time", waitTime.String(),
						"error", err.Error())
				}
				select {
				case <-time.After(waitTime):
				case <-ctx.Done():
					return ctx.Err()
				}
			}
		}
	}
	return lastErr
}

// logWarn emits warning-level logs when logger is configured.
func (p *Provider) logWarn(message string, args ...any) {
	if p.logger == nil {
		return
	}
	p.logger.Warn(message, args...)
}
