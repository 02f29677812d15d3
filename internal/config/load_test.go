package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	loaded, err := Load(path)
	require.NoError(t, err)
	require.False(t, loaded.Exists)
	require.Equal(t, path, loaded.Path)
	require.Equal(t, 5, loaded.Config.Session.QuestionCount)
	require.Equal(t, []int{30, 90, 150}, loaded.Config.Session.CaptureOffsetsSeconds)
	require.Equal(t, 3, loaded.Config.Session.ArtifactCap)
	require.Equal(t, 3600, loaded.Config.Storage.SignedURLTTLSeconds)

	found := false
	for _, w := range loaded.Warnings {
		if w.Message != "" {
			found = true
		}
	}
	require.True(t, found, "expected a missing-file warning")
}

func TestLoadOverlaysYAMLOnDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
openai:
  chat_model: gpt-4o
  api_key: sk-test
storage:
  bucket: interviews
  endpoint: http://127.0.0.1:9000
session:
  question_count: 3
  capture_offsets_seconds: [10, 20]
  artifact_cap: 2
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.True(t, loaded.Exists)
	require.Equal(t, "gpt-4o", loaded.Config.OpenAI.ChatModel)
	require.Equal(t, "sk-test", loaded.Config.OpenAI.APIKey)
	require.Equal(t, "interviews", loaded.Config.Storage.Bucket)
	require.Equal(t, 3, loaded.Config.Session.QuestionCount)
	require.Equal(t, []int{10, 20}, loaded.Config.Session.CaptureOffsetsSeconds)
	// Untouched sections keep defaults.
	require.Equal(t, "tts-1", loaded.Config.OpenAI.SpeechModel)
	require.Equal(t, "default", loaded.Config.Audio.Input)
}

func TestLoadAPIKeyFromEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
openai:
  api_key_env: VIVA_TEST_OPENAI_KEY
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	t.Setenv("VIVA_TEST_OPENAI_KEY", "sk-from-env")

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "sk-from-env", loaded.Config.OpenAI.APIKey)
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("openai: [not a map"), 0o600))

	_, err := Load(path)
	require.Error(t, err)
}

func TestResolvePathPrefersExplicit(t *testing.T) {
	path, err := ResolvePath("/tmp/custom.yaml")
	require.NoError(t, err)
	require.Equal(t, "/tmp/custom.yaml", path)
}

func TestResolvePathUsesXDG(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg")
	path, err := ResolvePath("")
	require.NoError(t, err)
	require.Equal(t, "/tmp/xdg/viva/config.yaml", path)
}
