package ipc

// Command is one user gesture or query understood by the session owner.
type Command string

const (
	CommandStatus      Command = "status"
	CommandBegin       Command = "begin"
	CommandListen      Command = "listen"
	CommandAdvance     Command = "advance"
	CommandCapture     Command = "capture"
	CommandToggleVideo Command = "toggle-video"
	CommandToggleMic   Command = "toggle-mic"
	CommandFinish      Command = "finish"
	CommandRetry       Command = "retry"
	CommandCancel      Command = "cancel"
)

type Request struct {
	Command Command `json:"command"`
}

// Response reports the outcome of a gesture plus an interview progress
// snapshot. State always carries the owner's lifecycle state; the progress
// fields are populated for status queries only.
type Response struct {
	OK       bool   `json:"ok"`
	State    string `json:"state,omitempty"`
	Index    int    `json:"index,omitempty"`
	Question string `json:"question,omitempty"`
	Answer   string `json:"answer,omitempty"`
	Message  string `json:"message,omitempty"`
	Error    string `json:"error,omitempty"`
}
