// Package session coordinates interview lifecycle state, user gestures, and
// the finalization flow.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/tmarbury/viva/internal/fsm"
	"github.com/tmarbury/viva/internal/ipc"
	"github.com/tmarbury/viva/internal/media"
	"github.com/tmarbury/viva/internal/turn"
)

type action int

const (
	actionBegin action = iota + 1
	actionListen
	actionAdvance
	actionCapture
	actionToggleVideo
	actionToggleMic
	actionFinish
	actionRetry
	actionCancel
)

// Result is the complete lifecycle output returned by one Run invocation.
type Result struct {
	State      fsm.State
	Payload    ResultPayload
	Cancelled  bool
	Err        error
	StartedAt  time.Time
	FinishedAt time.Time
}

// Options carries the per-session parameters fixed at construction.
type Options struct {
	Candidate     string
	Category      string
	QuestionCount int
}

// Controller orchestrates interview state transitions and side effects.
type Controller struct {
	logger     *slog.Logger
	questions  QuestionSource
	scorer     Scorer
	media      Media
	turns      Turn
	capture    Capture
	reconciler Reconciler
	notifier   Notifier
	sink       ResultSink

	candidate     string
	category      string
	questionCount int

	mu        sync.RWMutex
	state     fsm.State
	set       []string
	responses []Response
	index     int

	actions chan action
}

// NewController constructs a session controller with safe default fallbacks
// for the optional collaborators.
func NewController(
	logger *slog.Logger,
	opts Options,
	questions QuestionSource,
	scorer Scorer,
	mediaCtl Media,
	turns Turn,
	capture Capture,
	reconciler Reconciler,
	notifier Notifier,
	sink ResultSink,
) *Controller {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if notifier == nil {
		notifier = noopNotifier{}
	}
	if sink == nil {
		sink = noopSink{}
	}
	if opts.QuestionCount <= 0 {
		opts.QuestionCount = 5
	}
	if opts.Category == "" {
		opts.Category = "general"
	}

	return &Controller{
		logger:        logger,
		questions:     questions,
		scorer:        scorer,
		media:         mediaCtl,
		turns:         turns,
		capture:       capture,
		reconciler:    reconciler,
		notifier:      notifier,
		sink:          sink,
		candidate:     opts.Candidate,
		category:      opts.Category,
		questionCount: opts.QuestionCount,
		state:         fsm.StateLoading,
		actions:       make(chan action, 8),
	}
}

// State returns the current FSM state snapshot.
func (c *Controller) State() fsm.State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// transition applies one FSM event to the controller state.
func (c *Controller) transition(event fsm.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	next, err := fsm.Transition(c.state, event)
	if err != nil {
		return err
	}
	c.state = next
	return nil
}

// currentQuestion returns the question text at the active index, or "".
func (c *Controller) currentQuestion() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.index < 0 || c.index >= len(c.set) {
		return ""
	}
	return c.set[c.index]
}

// commitAnswer writes the finished answer for the active question. This is
// the only place a committed answer is written; repeated stop gestures reach
// Handle as rejected duplicates, never as a second commit.
func (c *Controller) commitAnswer(answer string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.index >= 0 && c.index < len(c.responses) {
		c.responses[c.index].Answer = answer
	}
	return c.index
}

// Run executes one interview lifecycle from question loading to completion,
// cancellation, or failure.
func (c *Controller) Run(ctx context.Context) Result {
	result := Result{StartedAt: time.Now()}

	if !c.runLoading(ctx, &result) {
		return result
	}
	if !c.runAwaitingMedia(ctx, &result) {
		return result
	}
	return c.runInterview(ctx, result)
}

// runLoading drives question generation, holding in loading until a usable
// set exists or the session is abandoned.
func (c *Controller) runLoading(ctx context.Context, result *Result) bool {
	for {
		set, err := c.questions.GenerateQuestions(ctx, c.category, c.questionCount)
		if err == nil && len(set) > 0 {
			c.mu.Lock()
			c.set = set
			c.responses = make([]Response, len(set))
			for i, q := range set {
				c.responses[i].Question = q
			}
			c.index = 0
			c.mu.Unlock()

			if err := c.transition(fsm.EventQuestionsLoaded); err != nil {
				return c.failRun(result, err)
			}
			c.notifier.Notify(ctx, "Questions ready. Run 'viva begin' to grant camera and microphone access.")
			return true
		}

		if err == nil {
			err = errors.New("question generation returned an empty set")
		}
		c.logger.Error("question loading failed", "error", err.Error())
		c.notifier.Notify(ctx, "Question generation failed. Run 'viva retry' or 'viva cancel'.")

		select {
		case <-ctx.Done():
			return c.cancelRun(ctx, result, ctx.Err())
		case a := <-c.actions:
			switch a {
			case actionRetry:
				continue
			case actionCancel:
				return c.cancelRun(ctx, result, nil)
			default:
				continue
			}
		}
	}
}

// runAwaitingMedia holds until the begin gesture successfully acquires both
// tracks. Acquisition failures keep the session waiting so the user can fix
// the device and try again.
func (c *Controller) runAwaitingMedia(ctx context.Context, result *Result) bool {
	for {
		select {
		case <-ctx.Done():
			return c.cancelRun(ctx, result, ctx.Err())
		case a := <-c.actions:
			switch a {
			case actionCancel:
				return c.cancelRun(ctx, result, nil)
			case actionBegin:
				err := c.media.Acquire(ctx, media.Constraints{Video: true, Audio: true})
				if err != nil {
					c.logger.Error("media acquisition failed", "error", err.Error())
					c.notifier.Notify(ctx, acquireFailureSummary(err))
					continue
				}

				if err := c.transition(fsm.EventMediaReady); err != nil {
					return c.failRun(result, err)
				}
				c.capture.Start(time.Now())
				c.turns.Speak(ctx, c.currentQuestion())
				return true
			default:
				continue
			}
		}
	}
}

// runInterview serves user gestures for the in-progress phase, then finalizes.
func (c *Controller) runInterview(ctx context.Context, result Result) Result {
	for {
		select {
		case <-ctx.Done():
			c.cancelRun(ctx, &result, ctx.Err())
			return result
		case a := <-c.actions:
			switch a {
			case actionListen:
				if err := c.turns.StartListening(ctx); err != nil {
					c.logger.Error("start listening failed", "error", err.Error())
					c.notifier.Notify(ctx, listenFailureSummary(err))
				}
			case actionCapture:
				if err := c.capture.Capture(); err != nil {
					c.logger.Warn("manual snapshot rejected", "error", err.Error())
				}
			case actionToggleVideo:
				enabled := c.media.ToggleVideo()
				c.logger.Info("video track toggled", "enabled", enabled)
			case actionToggleMic:
				enabled := c.media.ToggleMic()
				c.logger.Info("audio track toggled", "enabled", enabled)
			case actionAdvance:
				answer := c.turns.StopListening(ctx)
				index := c.commitAnswer(answer)

				c.mu.Lock()
				last := index+1 >= len(c.set)
				if !last {
					c.index = index + 1
				}
				c.mu.Unlock()

				if last {
					c.finalize(ctx, &result)
					return result
				}
				c.turns.Reset()
				c.turns.Speak(ctx, c.currentQuestion())
			case actionFinish:
				answer := c.turns.StopListening(ctx)
				c.commitAnswer(answer)
				c.finalize(ctx, &result)
				return result
			case actionCancel:
				c.cancelRun(ctx, &result, nil)
				return result
			default:
				c.failRun(&result, fmt.Errorf("unknown action %d", a))
				return result
			}
		}
	}
}

// finalize runs the finishing flow: reconcile artifacts, score responses,
// persist the payload.
func (c *Controller) finalize(ctx context.Context, result *Result) {
	if err := c.transition(fsm.EventFinish); err != nil {
		c.failRun(result, err)
		return
	}

	c.mu.RLock()
	responses := append([]Response(nil), c.responses...)
	c.mu.RUnlock()

	final := c.reconciler.Run(ctx, c.candidate, c.capture.Artifacts())

	if err := c.transition(fsm.EventReconciled); err != nil {
		c.failRun(result, err)
		return
	}

	assessment := c.scorer.ScoreResponses(ctx, c.category, c.candidate, responses)

	payload := ResultPayload{
		Candidate:          c.candidate,
		Category:           c.category,
		StartedAt:          result.StartedAt,
		FinishedAt:         time.Now(),
		Responses:          responses,
		DurableArtifactURL: final.DurableArtifactURL,
		ArtifactURLs:       final.ArtifactURLs,
		Assessment:         assessment,
	}
	if err := c.sink.Save(payload); err != nil {
		c.logger.Error("result persistence failed", "error", err.Error())
	}
	c.notifier.Notify(ctx, "Interview complete. Run 'viva results' to review.")

	result.State = c.State()
	result.Payload = payload
	result.FinishedAt = payload.FinishedAt
}

// cancelRun tears down live resources and marks the result abandoned. The
// teardown mirrors the finishing order: timers first, then device release.
func (c *Controller) cancelRun(ctx context.Context, result *Result, cause error) bool {
	c.capture.CancelAll()
	_ = c.turns.StopListening(context.WithoutCancel(ctx))
	c.media.Release()

	if err := c.transition(fsm.EventCancel); err != nil {
		c.logger.Warn("cancel transition rejected", "error", err.Error())
	}

	result.State = c.State()
	result.Cancelled = true
	result.Err = cause
	result.FinishedAt = time.Now()
	return false
}

// failRun records an unrecoverable lifecycle error.
func (c *Controller) failRun(result *Result, err error) bool {
	c.capture.CancelAll()
	c.media.Release()
	_ = c.transition(fsm.EventFail)

	result.State = c.State()
	result.Err = err
	result.FinishedAt = time.Now()
	return false
}

// Handle serves IPC gestures for the active owner session.
func (c *Controller) Handle(_ context.Context, req ipc.Request) ipc.Response {
	switch req.Command {
	case ipc.CommandStatus:
		c.mu.RLock()
		index := c.index
		c.mu.RUnlock()
		return ipc.Response{
			OK:       true,
			State:    string(c.State()),
			Index:    index,
			Question: c.currentQuestion(),
			Answer:   c.turns.CurrentAnswer(),
		}
	case ipc.CommandBegin:
		return c.enqueue(actionBegin, req.Command, fsm.StateAwaitingMedia)
	case ipc.CommandListen:
		state := c.State()
		if state != fsm.StateInProgress {
			return c.reject(req.Command, state)
		}
		if !c.turns.HasSpoken() {
			return ipc.Response{OK: false, State: string(state), Error: "current question has not been spoken yet"}
		}
		if c.turns.Phase() == turn.PhaseListening {
			return ipc.Response{OK: true, State: string(state), Message: "already listening"}
		}
		return c.enqueue(actionListen, req.Command, fsm.StateInProgress)
	case ipc.CommandAdvance:
		return c.enqueue(actionAdvance, req.Command, fsm.StateInProgress)
	case ipc.CommandCapture:
		return c.enqueue(actionCapture, req.Command, fsm.StateInProgress)
	case ipc.CommandToggleVideo:
		return c.enqueue(actionToggleVideo, req.Command, fsm.StateInProgress)
	case ipc.CommandToggleMic:
		return c.enqueue(actionToggleMic, req.Command, fsm.StateInProgress)
	case ipc.CommandFinish:
		return c.enqueue(actionFinish, req.Command, fsm.StateInProgress)
	case ipc.CommandRetry:
		return c.enqueue(actionRetry, req.Command, fsm.StateLoading)
	case ipc.CommandCancel:
		switch state := c.State(); state {
		case fsm.StateFinishing:
			return ipc.Response{OK: false, State: string(state), Error: "session is already finalizing"}
		case fsm.StateComplete:
			return ipc.Response{OK: false, State: string(state), Error: "session is complete"}
		case fsm.StateCancelled:
			return ipc.Response{OK: false, State: string(state), Error: "session is cancelled"}
		default:
			return c.enqueue(actionCancel, req.Command, state)
		}
	default:
		return ipc.Response{OK: false, State: string(c.State()), Error: fmt.Sprintf("unknown command: %s", req.Command)}
	}
}

// enqueue queues an action when the session is in the required state.
func (c *Controller) enqueue(a action, cmd ipc.Command, required fsm.State) ipc.Response {
	state := c.State()
	if state != required {
		return c.reject(cmd, state)
	}

	select {
	case c.actions <- a:
		return ipc.Response{OK: true, State: string(state), Message: string(cmd) + " requested"}
	default:
		return ipc.Response{OK: false, State: string(state), Error: "session is busy; try again"}
	}
}

// reject builds the uniform wrong-state refusal.
func (c *Controller) reject(cmd ipc.Command, state fsm.State) ipc.Response {
	return ipc.Response{OK: false, State: string(state), Error: fmt.Sprintf("cannot %s from state %s", cmd, state)}
}

// acquireFailureSummary maps acquisition failures to user-facing guidance.
func acquireFailureSummary(err error) string {
	switch {
	case errors.Is(err, media.ErrPermissionDenied):
		return "Camera/microphone access was denied. Check device permissions, then run 'viva begin' again."
	case errors.Is(err, media.ErrDeviceUnavailable):
		return "No usable camera or microphone was found. Connect a device, then run 'viva begin' again."
	default:
		return "Unable to start camera and microphone. Run 'viva begin' to try again."
	}
}

// listenFailureSummary maps listening failures to user-facing guidance.
func listenFailureSummary(err error) string {
	if errors.Is(err, turn.ErrUnsupportedCapability) {
		return "Speech recognition is not available; answers cannot be transcribed."
	}
	return "Unable to start speech recognition. Run 'viva listen' to try again."
}
