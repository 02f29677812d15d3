package cli

import (
	"errors"
	"fmt"
	"strings"
)

type Command string

const (
	CommandInterview   Command = "interview"
	CommandBegin       Command = "begin"
	CommandListen      Command = "listen"
	CommandAdvance     Command = "advance"
	CommandCapture     Command = "capture"
	CommandToggleVideo Command = "toggle-video"
	CommandToggleMic   Command = "toggle-mic"
	CommandFinish      Command = "finish"
	CommandRetry       Command = "retry"
	CommandCancel      Command = "cancel"
	CommandStatus      Command = "status"
	CommandResults     Command = "results"
	CommandDevices     Command = "devices"
	CommandDoctor      Command = "doctor"
	CommandVersion     Command = "version"
	CommandHelp        Command = "help"
)

var validCommands = map[Command]struct{}{
	CommandInterview:   {},
	CommandBegin:       {},
	CommandListen:      {},
	CommandAdvance:     {},
	CommandCapture:     {},
	CommandToggleVideo: {},
	CommandToggleMic:   {},
	CommandFinish:      {},
	CommandRetry:       {},
	CommandCancel:      {},
	CommandStatus:      {},
	CommandResults:     {},
	CommandDevices:     {},
	CommandDoctor:      {},
	CommandVersion:     {},
	CommandHelp:        {},
}

type Parsed struct {
	Command    Command
	ConfigPath string
	Candidate  string
	Category   string
	ShowHelp   bool
}

func Parse(args []string) (Parsed, error) {
	parsed := Parsed{Command: CommandHelp, ShowHelp: true}
	commandSeen := false

	for i := 0; i < len(args); i++ {
		arg := args[i]

		switch arg {
		case "-h", "--help":
			parsed.ShowHelp = true
			parsed.Command = CommandHelp
		case "--version":
			parsed.ShowHelp = false
			parsed.Command = CommandVersion
		case "--config":
			i++
			if i >= len(args) {
				return Parsed{}, errors.New("--config requires a path")
			}
			parsed.ConfigPath = args[i]
		case "--candidate":
			i++
			if i >= len(args) {
				return Parsed{}, errors.New("--candidate requires a name")
			}
			parsed.Candidate = args[i]
		case "--category":
			i++
			if i >= len(args) {
				return Parsed{}, errors.New("--category requires a value")
			}
			parsed.Category = args[i]
		default:
			if strings.HasPrefix(arg, "-") {
				return Parsed{}, fmt.Errorf("unknown flag: %s", arg)
			}

			cmd := Command(arg)
			if _, ok := validCommands[cmd]; !ok {
				return Parsed{}, fmt.Errorf("unknown command: %s", arg)
			}
			if commandSeen {
				return Parsed{}, fmt.Errorf("unexpected second command %q", arg)
			}

			commandSeen = true
			parsed.Command = cmd
			parsed.ShowHelp = cmd == CommandHelp
		}
	}

	if parsed.Command == CommandInterview && strings.TrimSpace(parsed.Candidate) == "" {
		return Parsed{}, errors.New("interview requires --candidate")
	}
	if parsed.Command != CommandInterview && (parsed.Candidate != "" || parsed.Category != "") {
		return Parsed{}, fmt.Errorf("--candidate/--category are only valid with the interview command")
	}

	return parsed, nil
}

func HelpText(binaryName string) string {
	return fmt.Sprintf(`Usage:
  %[1]s [--config PATH] <command>

Commands:
  interview     Run an interview session (requires --candidate, optional --category)
  begin         Grant camera/microphone access and start the first question
  listen        Start transcribing the answer to the current question
  advance       Commit the current answer and move to the next question
  capture       Take a snapshot photo now
  toggle-video  Enable/disable the camera track
  toggle-mic    Enable/disable the microphone track
  finish        Commit the current answer and finalize the session
  retry         Retry question loading after a generation failure
  cancel        Abandon the running session
  status        Print current session state
  results       Print the most recent interview result payload
  devices       List available audio input devices
  doctor        Run configuration and environment checks
  version       Print version information
  help          Show this help

Flags:
  --config PATH      Config file path (default: $XDG_CONFIG_HOME/viva/config.yaml)
  --candidate NAME   Candidate display name for a new interview
  --category VALUE   Question category for a new interview (default: general)
  -h, --help         Show help
  --version          Show version
`, binaryName)
}
