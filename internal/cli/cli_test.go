package cli

import (
	"strings"
	"testing"
)

func TestParseDefaultsToHelp(t *testing.T) {
	parsed, err := Parse(nil)
	if err != nil {
		t.Fatalf("parse empty args: %v", err)
	}
	if parsed.Command != CommandHelp || !parsed.ShowHelp {
		t.Fatalf("expected help default, got %+v", parsed)
	}
}

func TestParseInterviewWithFlags(t *testing.T) {
	parsed, err := Parse([]string{"--config", "/tmp/c.yaml", "interview", "--candidate", "Ada Lovelace", "--category", "backend"})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if parsed.Command != CommandInterview {
		t.Fatalf("command = %s", parsed.Command)
	}
	if parsed.ConfigPath != "/tmp/c.yaml" || parsed.Candidate != "Ada Lovelace" || parsed.Category != "backend" {
		t.Fatalf("flags not captured: %+v", parsed)
	}
}

func TestParseInterviewRequiresCandidate(t *testing.T) {
	if _, err := Parse([]string{"interview"}); err == nil {
		t.Fatal("expected error for interview without --candidate")
	}
}

func TestParseRejectsCandidateOutsideInterview(t *testing.T) {
	if _, err := Parse([]string{"status", "--candidate", "x"}); err == nil {
		t.Fatal("expected error for --candidate with status")
	}
}

func TestParseForwardedCommands(t *testing.T) {
	for _, cmd := range []string{"begin", "listen", "advance", "capture", "toggle-video", "toggle-mic", "finish", "retry", "cancel", "status"} {
		parsed, err := Parse([]string{cmd})
		if err != nil {
			t.Fatalf("parse %q: %v", cmd, err)
		}
		if string(parsed.Command) != cmd {
			t.Fatalf("command = %s, want %s", parsed.Command, cmd)
		}
		if parsed.ShowHelp {
			t.Fatalf("unexpected help for %q", cmd)
		}
	}
}

func TestParseRejectsUnknowns(t *testing.T) {
	if _, err := Parse([]string{"dance"}); err == nil {
		t.Fatal("expected unknown command error")
	}
	if _, err := Parse([]string{"--frobnicate"}); err == nil {
		t.Fatal("expected unknown flag error")
	}
	if _, err := Parse([]string{"status", "advance"}); err == nil {
		t.Fatal("expected second-command error")
	}
	if _, err := Parse([]string{"--config"}); err == nil {
		t.Fatal("expected missing path error")
	}
}

func TestHelpTextMentionsCommands(t *testing.T) {
	text := HelpText("viva")
	for _, needle := range []string{"interview", "advance", "capture", "doctor", "--candidate"} {
		if !strings.Contains(text, needle) {
			t.Fatalf("help text missing %q", needle)
		}
	}
}
