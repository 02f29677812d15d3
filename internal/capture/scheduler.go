// Package capture schedules bounded snapshot capture at fixed offsets from
// session start, merging scheduled and manual captures through one append point.
package capture

import (
	"errors"
	"log/slog"
	"sync"
	"time"
)

// ErrBufferFull indicates the artifact cap was reached; the capture is dropped.
var ErrBufferFull = errors.New("snapshot buffer is full")

// ErrCancelled indicates the schedule was torn down before the capture ran.
var ErrCancelled = errors.New("capture schedule cancelled")

// FrameFunc reads the current raw (unmirrored) video frame as artifact bytes.
type FrameFunc func() ([]byte, error)

// Scheduler arms snapshot timers and owns the bounded artifact buffer. Both
// timer callbacks and user-initiated manual captures funnel through append,
// so no interleaving can exceed the cap.
type Scheduler struct {
	logger  *slog.Logger
	clock   Clock
	offsets []time.Duration
	frame   FrameFunc

	mu        sync.Mutex
	timers    []Timer
	artifacts [][]byte
	cap       int
	cancelled bool
	started   bool
}

// NewScheduler constructs an unarmed scheduler.
func NewScheduler(clock Clock, offsets []time.Duration, cap int, frame FrameFunc, logger *slog.Logger) *Scheduler {
	if clock == nil {
		clock = RealClock{}
	}
	return &Scheduler{
		logger:  logger,
		clock:   clock,
		offsets: append([]time.Duration(nil), offsets...),
		frame:   frame,
		cap:     cap,
	}
}

// Start arms one timer per offset measured from base. Offsets already in the
// past are skipped. Start after CancelAll is a no-op.
func (s *Scheduler) Start(base time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started || s.cancelled {
		return
	}
	s.started = true

	elapsed := s.clock.Now().Sub(base)
	for _, offset := range s.offsets {
		remaining := offset - elapsed
		if remaining < 0 {
			continue
		}
		s.timers = append(s.timers, s.clock.AfterFunc(remaining, s.fire))
	}
}

// fire runs one scheduled capture; a cancelled or full schedule is a no-op.
func (s *Scheduler) fire() {
	if err := s.Capture(); err != nil {
		if s.logger != nil && !errors.Is(err, ErrCancelled) && !errors.Is(err, ErrBufferFull) {
			s.logger.Warn("scheduled snapshot failed", "error", err.Error())
		}
	}
}

// Capture reads one frame and appends it. This is the single bounded append
// point shared by scheduled and manual capture.
func (s *Scheduler) Capture() error {
	s.mu.Lock()
	if s.cancelled {
		s.mu.Unlock()
		return ErrCancelled
	}
	if len(s.artifacts) >= s.cap {
		s.mu.Unlock()
		return ErrBufferFull
	}
	frame := s.frame
	s.mu.Unlock()

	if frame == nil {
		return errors.New("no frame source wired")
	}
	data, err := frame()
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	// Re-check under the lock: a cancel or a racing capture may have landed
	// while the frame was being read.
	if s.cancelled {
		return ErrCancelled
	}
	if len(s.artifacts) >= s.cap {
		return ErrBufferFull
	}
	s.artifacts = append(s.artifacts, data)
	return nil
}

// CancelAll clears every pending timer and refuses all later captures. Must be
// called on teardown so a stray timer cannot fire against a released stream.
func (s *Scheduler) CancelAll() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cancelled = true
	for _, timer := range s.timers {
		timer.Stop()
	}
	s.timers = nil
}

// Artifacts returns a snapshot of captured artifact buffers in capture order.
func (s *Scheduler) Artifacts() [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([][]byte, len(s.artifacts))
	copy(out, s.artifacts)
	return out
}

// Len reports the current artifact count.
func (s *Scheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.artifacts)
}
