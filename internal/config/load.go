package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Loaded captures resolved config path, parsed values, and non-fatal warnings.
type Loaded struct {
	Path     string
	Config   Config
	Warnings []Warning
	Exists   bool
}

// Load resolves, reads, parses, and validates the runtime configuration.
func Load(explicitPath string) (Loaded, error) {
	resolvedPath, err := ResolvePath(explicitPath)
	if err != nil {
		return Loaded{}, err
	}

	cfg := Default()
	content, err := os.ReadFile(resolvedPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			resolveAPIKey(&cfg)
			warnings, verr := Validate(cfg)
			if verr != nil {
				return Loaded{}, verr
			}
			warnings = append(warnings, Warning{
				Message: fmt.Sprintf("config file %q not found; using defaults", resolvedPath),
			})
			return Loaded{Path: resolvedPath, Config: cfg, Warnings: warnings, Exists: false}, nil
		}
		return Loaded{}, fmt.Errorf("read config %q: %w", resolvedPath, err)
	}

	if err := yaml.Unmarshal(content, &cfg); err != nil {
		return Loaded{}, fmt.Errorf("parse config %q: %w", resolvedPath, err)
	}
	resolveAPIKey(&cfg)

	warnings, err := Validate(cfg)
	if err != nil {
		return Loaded{}, fmt.Errorf("validate config %q: %w", resolvedPath, err)
	}

	return Loaded{
		Path:     resolvedPath,
		Config:   cfg,
		Warnings: warnings,
		Exists:   true,
	}, nil
}

// resolveAPIKey fills openai.api_key from the configured environment variable
// when the key is not set inline.
func resolveAPIKey(cfg *Config) {
	if strings.TrimSpace(cfg.OpenAI.APIKey) != "" {
		return
	}
	if env := strings.TrimSpace(cfg.OpenAI.APIKeyEnv); env != "" {
		cfg.OpenAI.APIKey = strings.TrimSpace(os.Getenv(env))
	}
}
