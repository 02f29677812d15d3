// Package doctor runs runtime readiness diagnostics for config, collaborator
// endpoints, identity, and audio hardware.
package doctor

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/tmarbury/viva/internal/auth"
	"github.com/tmarbury/viva/internal/config"
	"github.com/tmarbury/viva/internal/media"
)

// Check is one doctor assertion result.
type Check struct {
	Name    string
	Pass    bool
	Message string
}

// Report is the full doctor output contract.
type Report struct {
	Checks []Check
}

// OK returns true when all checks pass.
func (r Report) OK() bool {
	for _, check := range r.Checks {
		if !check.Pass {
			return false
		}
	}
	return true
}

// String renders the report as user-facing text output.
func (r Report) String() string {
	var b strings.Builder
	for _, check := range r.Checks {
		status := "OK"
		if !check.Pass {
			status = "FAIL"
		}
		b.WriteString(fmt.Sprintf("[%s] %s: %s\n", status, check.Name, check.Message))
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// Run executes environment/config/runtime checks for a loaded config.
func Run(cfg config.Loaded) Report {
	checks := []Check{
		{
			Name:    "config",
			Pass:    true,
			Message: fmt.Sprintf("loaded %q", cfg.Path),
		},
		checkOpenAIKey(cfg.Config),
		checkStorage(cfg.Config),
		checkIdentity(cfg.Config),
		checkAudioSelection(cfg.Config),
	}

	if cfg.Config.Notify.Enable {
		checks = append(checks, checkBinary("busctl", "desktop notifications available"))
	}

	return Report{Checks: checks}
}

// checkOpenAIKey validates that the chat/speech collaborator is reachable in
// principle: without a key every session degrades to fallback questions and
// neutral scoring.
func checkOpenAIKey(cfg config.Config) Check {
	if strings.TrimSpace(cfg.OpenAI.APIKey) == "" {
		return Check{
			Name:    "openai.api_key",
			Pass:    false,
			Message: "no API key; sessions will use fallback questions and neutral scoring",
		}
	}
	return Check{Name: "openai.api_key", Pass: true, Message: "API key configured"}
}

// checkStorage validates the durable artifact bucket configuration.
func checkStorage(cfg config.Config) Check {
	if strings.TrimSpace(cfg.Storage.Bucket) == "" {
		return Check{
			Name:    "storage.bucket",
			Pass:    false,
			Message: "no bucket configured; interview photos stay local",
		}
	}
	message := fmt.Sprintf("bucket %q", cfg.Storage.Bucket)
	if cfg.Storage.Endpoint != "" {
		message += fmt.Sprintf(" at %s", cfg.Storage.Endpoint)
	}
	return Check{Name: "storage.bucket", Pass: true, Message: message}
}

// checkIdentity verifies the local token the way the upload gate will.
func checkIdentity(cfg config.Config) Check {
	source := auth.NewFileTokenSource(cfg.Auth.TokenPath, cfg.Auth.Secret, nil)
	identity, ok := source.Identity(context.Background())
	if !ok {
		return Check{
			Name:    "auth.token",
			Pass:    false,
			Message: "not signed in; durable photo upload disabled",
		}
	}
	return Check{Name: "auth.token", Pass: true, Message: fmt.Sprintf("signed in as %s", identity.ID)}
}

// checkAudioSelection runs live device selection to surface selection/fallback issues.
func checkAudioSelection(cfg config.Config) Check {
	selection, err := media.SelectDevice(context.Background(), cfg.Audio.Input, cfg.Audio.Fallback)
	if err != nil {
		return Check{Name: "audio.device", Pass: false, Message: err.Error()}
	}
	message := fmt.Sprintf("selected %q", selection.Device.ID)
	if selection.Warning != "" {
		message = message + " (" + selection.Warning + ")"
	}
	return Check{Name: "audio.device", Pass: true, Message: message}
}

// checkBinary validates that a binary exists in PATH.
func checkBinary(bin string, okMsg string) Check {
	path, err := exec.LookPath(bin)
	if err != nil {
		return Check{Name: bin, Pass: false, Message: fmt.Sprintf("binary not found in PATH: %s", bin)}
	}
	return Check{Name: bin, Pass: true, Message: fmt.Sprintf("found at %s (%s)", path, okMsg)}
}
