package config

import (
	"fmt"
	"strings"
)

// Validate enforces config invariants and returns non-fatal warnings.
func Validate(cfg Config) ([]Warning, error) {
	warnings := make([]Warning, 0)

	if strings.TrimSpace(cfg.OpenAI.BaseURL) == "" {
		return nil, fmt.Errorf("openai.base_url must not be empty")
	}
	if strings.TrimSpace(cfg.OpenAI.ChatModel) == "" {
		return nil, fmt.Errorf("openai.chat_model must not be empty")
	}
	if cfg.OpenAI.MaxRetries < 0 {
		return nil, fmt.Errorf("openai.max_retries must be >= 0")
	}
	if cfg.OpenAI.TimeoutSeconds <= 0 {
		return nil, fmt.Errorf("openai.timeout_seconds must be > 0")
	}
	if strings.TrimSpace(cfg.OpenAI.APIKey) == "" {
		warnings = append(warnings, Warning{
			Message: "openai.api_key is not set; question generation and scoring will use built-in fallbacks",
		})
	}

	if cfg.Session.QuestionCount <= 0 {
		return nil, fmt.Errorf("session.question_count must be > 0")
	}
	if cfg.Session.ArtifactCap <= 0 {
		return nil, fmt.Errorf("session.artifact_cap must be > 0")
	}
	if len(cfg.Session.CaptureOffsetsSeconds) == 0 {
		return nil, fmt.Errorf("session.capture_offsets_seconds must not be empty")
	}
	last := -1
	for _, offset := range cfg.Session.CaptureOffsetsSeconds {
		if offset <= 0 {
			return nil, fmt.Errorf("session.capture_offsets_seconds entries must be > 0")
		}
		if offset <= last {
			return nil, fmt.Errorf("session.capture_offsets_seconds must be strictly increasing")
		}
		last = offset
	}

	if cfg.Storage.SignedURLTTLSeconds <= 0 {
		return nil, fmt.Errorf("storage.signed_url_ttl_seconds must be > 0")
	}
	if strings.TrimSpace(cfg.Storage.Bucket) == "" {
		warnings = append(warnings, Warning{
			Message: "storage.bucket is not set; captured snapshots will not be uploaded",
		})
	}

	if strings.TrimSpace(cfg.Auth.TokenPath) == "" {
		warnings = append(warnings, Warning{
			Message: "auth.token_path is not set; uploads require an authenticated identity and will be skipped",
		})
	}

	if strings.TrimSpace(cfg.Audio.Input) == "" {
		return nil, fmt.Errorf("audio.input must not be empty")
	}
	if cfg.Notify.Enable && strings.TrimSpace(cfg.Notify.AppName) == "" {
		return nil, fmt.Errorf("notify.app_name must not be empty when notify.enable=true")
	}

	return warnings, nil
}
