package capture

import (
	"errors"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// fakeClock hands out manually fireable timers.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
}

type fakeTimer struct {
	d       time.Duration
	f       func()
	stopped bool
	fired   bool
	mu      sync.Mutex
}

func (t *fakeTimer) Stop() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.fired {
		return false
	}
	t.stopped = true
	return true
}

// fire runs the callback unless Stop already won, mirroring time.AfterFunc.
func (t *fakeTimer) fire() {
	t.mu.Lock()
	if t.stopped || t.fired {
		t.mu.Unlock()
		return
	}
	t.fired = true
	f := t.f
	t.mu.Unlock()
	f()
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Unix(1_700_000_000, 0)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	timer := &fakeTimer{d: d, f: f}
	c.timers = append(c.timers, timer)
	return timer
}

func (c *fakeClock) pending() []*fakeTimer {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*fakeTimer, len(c.timers))
	copy(out, c.timers)
	return out
}

func frameBytes(b byte) FrameFunc {
	return func() ([]byte, error) { return []byte{b}, nil }
}

func TestStartArmsOneTimerPerOffset(t *testing.T) {
	clock := newFakeClock()
	s := NewScheduler(clock, []time.Duration{30 * time.Second, 90 * time.Second, 150 * time.Second}, 3, frameBytes(1), nil)

	s.Start(clock.Now())
	require.Len(t, clock.pending(), 3)
	require.Equal(t, 30*time.Second, clock.pending()[0].d)

	for _, timer := range clock.pending() {
		timer.fire()
	}
	require.Equal(t, 3, s.Len())
}

func TestStartSkipsElapsedOffsets(t *testing.T) {
	clock := newFakeClock()
	s := NewScheduler(clock, []time.Duration{30 * time.Second, 90 * time.Second}, 3, frameBytes(1), nil)

	// Base one minute in the past: the 30s offset is already gone.
	s.Start(clock.Now().Add(-time.Minute))
	require.Len(t, clock.pending(), 1)
	require.Equal(t, 30*time.Second, clock.pending()[0].d)
}

func TestCapBindsScheduledAndManualInterleavings(t *testing.T) {
	const manualCaptures = 8

	for seed := int64(0); seed < 20; seed++ {
		clock := newFakeClock()
		s := NewScheduler(clock, []time.Duration{time.Second, 2 * time.Second, 3 * time.Second}, 3, frameBytes(7), nil)
		s.Start(clock.Now())

		var ops []func()
		for _, timer := range clock.pending() {
			ops = append(ops, timer.fire)
		}
		for i := 0; i < manualCaptures; i++ {
			ops = append(ops, func() { _ = s.Capture() })
		}
		rand.New(rand.NewSource(seed)).Shuffle(len(ops), func(i, j int) { ops[i], ops[j] = ops[j], ops[i] })

		var wg sync.WaitGroup
		for _, op := range ops {
			wg.Add(1)
			go func(f func()) {
				defer wg.Done()
				f()
			}(op)
		}
		wg.Wait()

		require.LessOrEqual(t, s.Len(), 3, "seed %d exceeded cap", seed)
		require.Equal(t, 3, s.Len(), "seed %d should fill the buffer", seed)
	}
}

func TestManualCaptureSharesCapWithSchedule(t *testing.T) {
	clock := newFakeClock()
	s := NewScheduler(clock, []time.Duration{time.Second}, 2, frameBytes(9), nil)
	s.Start(clock.Now())

	require.NoError(t, s.Capture())
	require.NoError(t, s.Capture())
	require.ErrorIs(t, s.Capture(), ErrBufferFull)

	clock.pending()[0].fire()
	require.Equal(t, 2, s.Len())
}

func TestCancelAllStopsPendingTimers(t *testing.T) {
	clock := newFakeClock()
	s := NewScheduler(clock, []time.Duration{time.Second, 2 * time.Second}, 3, frameBytes(1), nil)
	s.Start(clock.Now())

	s.CancelAll()
	for _, timer := range clock.pending() {
		require.True(t, timer.stopped)
	}
	require.ErrorIs(t, s.Capture(), ErrCancelled)
	require.Zero(t, s.Len())
}

func TestTimerRacingTeardownAppendsNothing(t *testing.T) {
	clock := newFakeClock()

	release := make(chan struct{})
	slowFrame := func() ([]byte, error) {
		<-release
		return []byte{1}, nil
	}

	s := NewScheduler(clock, []time.Duration{time.Second}, 3, slowFrame, nil)
	s.Start(clock.Now())

	// The timer was already due: it fires and blocks mid-capture while
	// teardown runs, simulating a callback racing session finish.
	done := make(chan struct{})
	go func() {
		clock.pending()[0].fire()
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	s.CancelAll()
	close(release)
	<-done

	require.Zero(t, s.Len(), "no artifact may be appended after teardown")
}

func TestCaptureSurfacesFrameErrors(t *testing.T) {
	boom := errors.New("camera gone")
	s := NewScheduler(newFakeClock(), nil, 3, func() ([]byte, error) { return nil, boom }, nil)
	require.ErrorIs(t, s.Capture(), boom)
	require.Zero(t, s.Len())
}

func TestStartAfterCancelIsNoOp(t *testing.T) {
	clock := newFakeClock()
	s := NewScheduler(clock, []time.Duration{time.Second}, 3, frameBytes(1), nil)
	s.CancelAll()
	s.Start(clock.Now())
	require.Empty(t, clock.pending())
}

func TestArtifactsReturnsCopyInOrder(t *testing.T) {
	s := NewScheduler(newFakeClock(), nil, 3, nil, nil)
	s.frame = frameBytes(1)
	require.NoError(t, s.Capture())
	s.frame = frameBytes(2)
	require.NoError(t, s.Capture())

	artifacts := s.Artifacts()
	require.Equal(t, [][]byte{{1}, {2}}, artifacts)

	artifacts[0] = []byte{99}
	require.Equal(t, [][]byte{{1}, {2}}, s.Artifacts())
}
