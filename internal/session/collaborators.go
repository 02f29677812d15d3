package session

import (
	"context"
	"time"

	"github.com/tmarbury/viva/internal/media"
	"github.com/tmarbury/viva/internal/turn"
)

// Response is one question/answer pair in interview order.
type Response struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// Assessment is the scoring collaborator's verdict for a completed interview.
type Assessment struct {
	Score          int      `json:"score"`
	Analysis       string   `json:"analysis"`
	Strengths      []string `json:"strengths"`
	Improvements   []string `json:"improvements"`
	Recommendation string   `json:"recommendation"`
}

// FinalResult is the reconciliation pipeline output.
type FinalResult struct {
	// DurableArtifactURL is the first successfully signed URL, kept for
	// single-URL consumers. Empty when nothing was uploaded.
	DurableArtifactURL string   `json:"durable_artifact_url,omitempty"`
	ArtifactURLs       []string `json:"artifact_urls,omitempty"`
}

// QuestionSource produces the interview question set. Implementations mask
// upstream failures with deterministic fallbacks; an error here means even
// the fallback path could not produce a usable set and a retry is warranted.
type QuestionSource interface {
	GenerateQuestions(ctx context.Context, category string, count int) ([]string, error)
}

// Scorer analyzes committed responses. Never fails: implementations degrade
// to a neutral assessment instead of surfacing upstream errors.
type Scorer interface {
	ScoreResponses(ctx context.Context, category, candidate string, responses []Response) Assessment
}

// Media is the session-facing subset of the media controller.
type Media interface {
	Acquire(ctx context.Context, constraints media.Constraints) error
	ToggleVideo() bool
	ToggleMic() bool
	Live() bool
	Release()
}

// Turn is the session-facing subset of the speech turn coordinator.
type Turn interface {
	Speak(ctx context.Context, text string)
	StartListening(ctx context.Context) error
	StopListening(ctx context.Context) string
	CurrentAnswer() string
	Reset()
	HasSpoken() bool
	Phase() turn.Phase
}

// Capture is the session-facing subset of the snapshot scheduler.
type Capture interface {
	Start(base time.Time)
	Capture() error
	CancelAll()
	Artifacts() [][]byte
}

// Reconciler packages captured artifacts into durable storage at session end.
type Reconciler interface {
	Run(ctx context.Context, candidate string, artifacts [][]byte) FinalResult
}

// Notifier surfaces user-visible prompts and errors.
type Notifier interface {
	Notify(ctx context.Context, summary string)
}

// ResultSink persists the final payload for the results view.
type ResultSink interface {
	Save(payload ResultPayload) error
}

// ResultPayload is the completed-interview contract consumed by the results
// view and the scoring collaborator.
type ResultPayload struct {
	Candidate          string     `json:"candidate"`
	Category           string     `json:"category"`
	StartedAt          time.Time  `json:"started_at"`
	FinishedAt         time.Time  `json:"finished_at"`
	Responses          []Response `json:"responses"`
	DurableArtifactURL string     `json:"durable_artifact_url,omitempty"`
	ArtifactURLs       []string   `json:"artifact_urls,omitempty"`
	Assessment         Assessment `json:"assessment"`
}

// noopNotifier preserves session flow when no notifier is wired.
type noopNotifier struct{}

func (noopNotifier) Notify(context.Context, string) {}

// noopSink drops payloads when no sink is wired.
type noopSink struct{}

func (noopSink) Save(ResultPayload) error { return nil }
