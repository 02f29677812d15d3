// Package turn manages the strict alternation between speaking a question
// aloud and listening for the candidate's answer.
package turn

import (
	"context"
	"errors"
	"log/slog"
	"sync"
)

// Phase is the externally visible turn state. Exactly one holds at any instant.
type Phase string

const (
	// PhaseIdle: question not yet spoken for the current index.
	PhaseIdle Phase = "idle"
	// PhaseSpeaking: question synthesis/playback in flight.
	PhaseSpeaking Phase = "speaking"
	// PhaseAwaitingStart: question spoken, listening not yet started.
	PhaseAwaitingStart Phase = "awaiting_start"
	// PhaseListening: continuous transcription active.
	PhaseListening Phase = "listening"
)

// ErrUnsupportedCapability indicates no speech transcription backend is wired.
var ErrUnsupportedCapability = errors.New("speech recognition is not available on this platform")

// ErrSpeakInProgress rejects listening while the question is still being read.
var ErrSpeakInProgress = errors.New("question playback still in progress")

// Synthesizer speaks one question aloud, blocking until playback completes.
type Synthesizer interface {
	Speak(ctx context.Context, text string) error
}

// Update is one transcription event: a finalized segment or a volatile
// interim replacement for the unfinalized tail.
type Update struct {
	Text  string
	Final bool
}

// Transcriber is one continuous listening session.
type Transcriber interface {
	Start(ctx context.Context) error
	Updates() <-chan Update
	Stop(ctx context.Context) error
}

// TranscriberFactory opens a fresh transcription session per listening turn.
type TranscriberFactory func() Transcriber

// Coordinator owns the turn state machine for the current question. The
// observable answer is always finalized-segments + interim-tail.
type Coordinator struct {
	logger *slog.Logger
	synth  Synthesizer
	opener TranscriberFactory

	mu        sync.Mutex
	phase     Phase
	hasSpoken bool
	segments  []string
	interim   string

	active    Transcriber
	drainDone chan struct{}
}

// NewCoordinator constructs an idle coordinator.
func NewCoordinator(synth Synthesizer, opener TranscriberFactory, logger *slog.Logger) *Coordinator {
	return &Coordinator{
		logger: logger,
		synth:  synth,
		opener: opener,
		phase:  PhaseIdle,
	}
}

// Phase returns the current turn phase.
func (c *Coordinator) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

// HasSpoken reports whether the current question completed playback at least once.
func (c *Coordinator) HasSpoken() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hasSpoken
}

// CurrentAnswer returns finalized segments plus the volatile interim tail.
func (c *Coordinator) CurrentAnswer() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return assemble(collectSegments(c.segments, c.interim))
}

// Speak reads the question aloud. Synthesis errors are swallowed (logged) so
// the session stays navigable even when audio output fails; hasSpoken is set
// unconditionally on completion.
func (c *Coordinator) Speak(ctx context.Context, text string) {
	c.mu.Lock()
	synth := c.synth
	c.phase = PhaseSpeaking
	c.mu.Unlock()

	if synth != nil {
		if err := synth.Speak(ctx, text); err != nil && c.logger != nil {
			c.logger.Warn("question playback failed", "error", err.Error())
		}
	}

	c.mu.Lock()
	c.hasSpoken = true
	if c.phase == PhaseSpeaking {
		c.phase = PhaseAwaitingStart
	}
	c.mu.Unlock()
}

// StartListening begins continuous interim-result transcription. It fails
// fast when no transcription capability is wired.
func (c *Coordinator) StartListening(ctx context.Context) error {
	c.mu.Lock()
	if c.opener == nil {
		c.mu.Unlock()
		return ErrUnsupportedCapability
	}
	switch c.phase {
	case PhaseListening:
		c.mu.Unlock()
		return nil
	case PhaseSpeaking:
		c.mu.Unlock()
		return ErrSpeakInProgress
	}
	transcriber := c.opener()
	c.mu.Unlock()

	if transcriber == nil {
		return ErrUnsupportedCapability
	}

	if err := transcriber.Start(ctx); err != nil {
		return err
	}

	done := make(chan struct{})
	c.mu.Lock()
	c.active = transcriber
	c.drainDone = done
	c.phase = PhaseListening
	c.mu.Unlock()

	go c.consume(transcriber.Updates(), done)
	return nil
}

// consume folds transcription updates into the segment accumulator until the
// update stream closes.
func (c *Coordinator) consume(updates <-chan Update, done chan struct{}) {
	defer close(done)
	for update := range updates {
		c.mu.Lock()
		if update.Final {
			c.segments = appendSegment(c.segments, update.Text)
			c.interim = ""
		} else {
			// The interim tail is recomputed wholesale on every partial
			// update; it never commits until finalized.
			c.interim = update.Text
		}
		c.mu.Unlock()
	}
}

// StopListening halts active recognition and returns the committed answer.
// Repeated stops are idempotent: they recompute the same value from the same
// accumulator, so no double-write can corrupt a committed answer.
func (c *Coordinator) StopListening(ctx context.Context) string {
	c.mu.Lock()
	transcriber := c.active
	done := c.drainDone
	c.active = nil
	c.drainDone = nil
	c.mu.Unlock()

	if transcriber != nil {
		if err := transcriber.Stop(ctx); err != nil && c.logger != nil {
			c.logger.Warn("stop transcription failed", "error", err.Error())
		}
	}
	if done != nil {
		<-done
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.phase == PhaseListening {
		c.phase = PhaseAwaitingStart
	}
	return assemble(collectSegments(c.segments, c.interim))
}

// Reset clears all turn state on question advance.
func (c *Coordinator) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.phase = PhaseIdle
	c.hasSpoken = false
	c.segments = nil
	c.interim = ""
}
