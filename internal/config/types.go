// Package config resolves, parses, validates, and defaults viva configuration.
package config

// Config is the fully materialized runtime configuration used by viva.
type Config struct {
	OpenAI  OpenAIConfig  `yaml:"openai"`
	Storage StorageConfig `yaml:"storage"`
	Auth    AuthConfig    `yaml:"auth"`
	Session SessionConfig `yaml:"session"`
	Audio   AudioConfig   `yaml:"audio"`
	Notify  NotifyConfig  `yaml:"notify"`
	Debug   DebugConfig   `yaml:"debug"`
}

// OpenAIConfig controls the question/scoring/speech collaborator endpoints.
type OpenAIConfig struct {
	BaseURL         string `yaml:"base_url"`
	APIKey          string `yaml:"api_key"`
	APIKeyEnv       string `yaml:"api_key_env"`
	ChatModel       string `yaml:"chat_model"`
	SpeechModel     string `yaml:"speech_model"`
	SpeechVoice     string `yaml:"speech_voice"`
	TranscribeModel string `yaml:"transcribe_model"`
	MaxRetries      int    `yaml:"max_retries"`
	TimeoutSeconds  int    `yaml:"timeout_seconds"`
}

// StorageConfig controls the durable artifact store (S3-compatible).
type StorageConfig struct {
	Endpoint            string `yaml:"endpoint"`
	Region              string `yaml:"region"`
	Bucket              string `yaml:"bucket"`
	AccessKey           string `yaml:"access_key"`
	SecretKey           string `yaml:"secret_key"`
	PathStyle           bool   `yaml:"path_style"`
	SignedURLTTLSeconds int    `yaml:"signed_url_ttl_seconds"`
}

// AuthConfig controls where the local identity token lives and how it is verified.
type AuthConfig struct {
	TokenPath string `yaml:"token_path"`
	Secret    string `yaml:"secret"`
}

// SessionConfig controls interview shape: question count and snapshot schedule.
type SessionConfig struct {
	QuestionCount         int   `yaml:"question_count"`
	CaptureOffsetsSeconds []int `yaml:"capture_offsets_seconds"`
	ArtifactCap           int   `yaml:"artifact_cap"`
}

// AudioConfig controls preferred and fallback input-source selection.
type AudioConfig struct {
	Input    string `yaml:"input"`
	Fallback string `yaml:"fallback"`
}

// NotifyConfig controls desktop notification behavior.
type NotifyConfig struct {
	Enable  bool   `yaml:"enable"`
	AppName string `yaml:"app_name"`
}

// DebugConfig controls optional debug artifact output.
type DebugConfig struct {
	EnableAudioDump bool `yaml:"enable_audio_dump"`
}

// Warning is a non-fatal parse/validation message.
type Warning struct {
	Message string
}
