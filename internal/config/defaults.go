package config

// Default returns the canonical runtime configuration used when no file is present.
func Default() Config {
	return Config{
		OpenAI: OpenAIConfig{
			BaseURL:         "https://api.openai.com/v1",
			APIKeyEnv:       "OPENAI_API_KEY",
			ChatModel:       "gpt-4o-mini",
			SpeechModel:     "tts-1",
			SpeechVoice:     "alloy",
			TranscribeModel: "whisper-1",
			MaxRetries:      3,
			TimeoutSeconds:  30,
		},
		Storage: StorageConfig{
			Region:              "us-east-1",
			PathStyle:           true,
			SignedURLTTLSeconds: 3600,
		},
		Auth: AuthConfig{},
		Session: SessionConfig{
			QuestionCount:         5,
			CaptureOffsetsSeconds: []int{30, 90, 150},
			ArtifactCap:           3,
		},
		Audio: AudioConfig{
			Input:    "default",
			Fallback: "default",
		},
		Notify: NotifyConfig{
			Enable:  true,
			AppName: "viva",
		},
		Debug: DebugConfig{},
	}
}
