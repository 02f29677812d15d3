// Package notify surfaces user-visible session prompts and errors as desktop notifications.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"
)

// Notifier sends best-effort desktop notifications; failures are logged, never fatal.
type Notifier struct {
	enabled bool
	appName string
	logger  *slog.Logger
}

// New constructs a notifier; a disabled notifier swallows every call.
func New(enabled bool, appName string, logger *slog.Logger) *Notifier {
	return &Notifier{enabled: enabled, appName: appName, logger: logger}
}

// Notify shows a transient notification with the given summary.
func (n *Notifier) Notify(ctx context.Context, summary string) {
	if n == nil || !n.enabled {
		return
	}
	if _, err := desktopNotify(ctx, n.appName, 0, summary, 4000); err != nil {
		if n.logger != nil {
			n.logger.Warn("desktop notification failed", "error", err.Error(), "summary", summary)
		}
	}
}

// desktopNotify sends a freedesktop notification over DBus via busctl.
// It returns the notification ID assigned by the server.
func desktopNotify(ctx context.Context, appName string, replaceID uint32, summary string, timeoutMS int) (uint32, error) {
	args := []string{
		"--user",
		"call",
		"org.freedesktop.Notifications",
		"/org/freedesktop/Notifications",
		"org.freedesktop.Notifications",
		"Notify",
		"susssasa{sv}i",
		appName,
		fmt.Sprintf("%d", replaceID),
		"",
		summary,
		"",
		"0", // actions array length
		"0", // hints map length
		fmt.Sprintf("%d", timeoutMS),
	}

	out, err := exec.CommandContext(ctx, "busctl", args...).CombinedOutput()
	if err != nil {
		trimmed := strings.TrimSpace(string(out))
		if trimmed == "" {
			return 0, fmt.Errorf("desktop notify failed: %w", err)
		}
		return 0, fmt.Errorf("desktop notify failed: %w (%s)", err, trimmed)
	}

	fields := strings.Fields(strings.TrimSpace(string(out)))
	if len(fields) < 2 || fields[0] != "u" {
		return 0, fmt.Errorf("desktop notify invalid response: %q", strings.TrimSpace(string(out)))
	}

	value, parseErr := strconv.ParseUint(fields[1], 10, 32)
	if parseErr != nil {
		return 0, fmt.Errorf("desktop notify parse id %q: %w", fields[1], parseErr)
	}
	return uint32(value), nil
}
