package session_test

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tmarbury/viva/internal/auth"
	"github.com/tmarbury/viva/internal/fsm"
	"github.com/tmarbury/viva/internal/ipc"
	"github.com/tmarbury/viva/internal/media"
	"github.com/tmarbury/viva/internal/reconcile"
	"github.com/tmarbury/viva/internal/session"
	"github.com/tmarbury/viva/internal/turn"
)

// The fakes below stand in for hardware and network collaborators so a full
// lifecycle, including the real reconciliation pipeline, runs in-process.

type e2eQuestions struct{ set []string }

func (q e2eQuestions) GenerateQuestions(context.Context, string, int) ([]string, error) {
	return append([]string(nil), q.set...), nil
}

type e2eScorer struct{}

func (e2eScorer) ScoreResponses(context.Context, string, string, []session.Response) session.Assessment {
	return session.Assessment{Score: 75, Recommendation: "consider"}
}

type e2eMedia struct {
	mu       sync.Mutex
	live     bool
	released bool
}

func (m *e2eMedia) Acquire(context.Context, media.Constraints) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.live = true
	return nil
}

func (m *e2eMedia) ToggleVideo() bool { return true }
func (m *e2eMedia) ToggleMic() bool   { return true }

func (m *e2eMedia) Live() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.live
}

func (m *e2eMedia) Release() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.live = false
	m.released = true
}

type e2eTurn struct {
	mu        sync.Mutex
	spoken    int
	listening bool
}

func (t *e2eTurn) Speak(context.Context, string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.spoken++
}

func (t *e2eTurn) StartListening(context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.listening = true
	return nil
}

func (t *e2eTurn) StopListening(context.Context) string {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.listening {
		return ""
	}
	t.listening = false
	return fmt.Sprintf("spoken answer %d", t.spoken)
}

func (t *e2eTurn) CurrentAnswer() string { return "" }
func (t *e2eTurn) Reset()                {}

func (t *e2eTurn) HasSpoken() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.spoken > 0
}

func (t *e2eTurn) Phase() turn.Phase {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.listening {
		return turn.PhaseListening
	}
	return turn.PhaseAwaitingStart
}

type e2eCapture struct {
	mu        sync.Mutex
	cancelled bool
	artifacts [][]byte
}

func (c *e2eCapture) Start(time.Time) {}

func (c *e2eCapture) Capture() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancelled {
		return fmt.Errorf("cancelled")
	}
	c.artifacts = append(c.artifacts, []byte{0xff, 0xd8, byte(len(c.artifacts))})
	return nil
}

func (c *e2eCapture) CancelAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cancelled = true
}

func (c *e2eCapture) Artifacts() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([][]byte(nil), c.artifacts...)
}

type e2eIdentity struct{ signedIn bool }

func (i e2eIdentity) Identity(context.Context) (auth.Identity, bool) {
	return auth.Identity{ID: "user-9"}, i.signedIn
}

type e2eStore struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func (s *e2eStore) Upload(_ context.Context, key string, data []byte, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.objects == nil {
		s.objects = map[string][]byte{}
	}
	s.objects[key] = data
	return nil
}

func (s *e2eStore) SignedURL(_ context.Context, key string) (string, error) {
	return "https://bucket.test/" + key + "?X-Amz-Expires=3600", nil
}

func (m *e2eMedia) wasReleased() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.released
}

func (c *e2eCapture) wasCancelled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cancelled
}

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func awaitState(t *testing.T, c *session.Controller, want fsm.State) {
	t.Helper()
	require.Eventually(t, func() bool {
		return c.State() == want
	}, 2*time.Second, 5*time.Millisecond)
}

func awaitIndex(t *testing.T, c *session.Controller, want int) {
	t.Helper()
	require.Eventually(t, func() bool {
		return c.Handle(context.Background(), ipc.Request{Command: ipc.CommandStatus}).Index == want
	}, 2*time.Second, 5*time.Millisecond)
}

func sendOK(t *testing.T, c *session.Controller, command ipc.Command) {
	t.Helper()
	resp := c.Handle(context.Background(), ipc.Request{Command: command})
	require.True(t, resp.OK, "command %s rejected: %s", command, resp.Error)
}

func runFullInterview(t *testing.T, signedIn bool) (session.Result, *e2eStore, *e2eMedia, *e2eCapture) {
	t.Helper()

	store := &e2eStore{}
	mediaCtl := &e2eMedia{}
	captureCtl := &e2eCapture{}
	pipeline := reconcile.NewPipeline(nil, e2eIdentity{signedIn: signedIn}, store, captureCtl, mediaCtl, nil)

	questions := e2eQuestions{set: []string{
		"Q1?", "Q2?", "Q3?", "Q4?", "Q5?",
	}}
	controller := session.NewController(
		testLogger(),
		session.Options{Candidate: "Grace Hopper", Category: "systems", QuestionCount: 5},
		questions, e2eScorer{}, mediaCtl, &e2eTurn{}, captureCtl, pipeline, nil, nil,
	)

	results := make(chan session.Result, 1)
	go func() { results <- controller.Run(context.Background()) }()

	awaitState(t, controller, fsm.StateAwaitingMedia)
	sendOK(t, controller, "begin")
	awaitState(t, controller, fsm.StateInProgress)

	for i := 0; i < 5; i++ {
		if i == 1 || i == 3 {
			sendOK(t, controller, "capture")
		}
		sendOK(t, controller, "listen")
		sendOK(t, controller, "advance")
		if i < 4 {
			awaitIndex(t, controller, i+1)
		}
	}

	select {
	case result := <-results:
		return result, store, mediaCtl, captureCtl
	case <-time.After(2 * time.Second):
		t.Fatal("interview did not complete")
		return session.Result{}, nil, nil, nil
	}
}

func TestFullInterviewSignedInUploadsArtifacts(t *testing.T) {
	result, store, mediaCtl, captureCtl := runFullInterview(t, true)

	require.NoError(t, result.Err)
	require.Equal(t, fsm.StateComplete, result.State)
	require.Len(t, result.Payload.Responses, 5)
	for i, response := range result.Payload.Responses {
		require.NotEmpty(t, response.Answer, "question %d", i)
	}

	require.Len(t, store.objects, 2)
	require.Len(t, result.Payload.ArtifactURLs, 2)
	require.Equal(t, result.Payload.ArtifactURLs[0], result.Payload.DurableArtifactURL)
	require.Contains(t, result.Payload.DurableArtifactURL, "user-9/grace-hopper-")

	require.True(t, mediaCtl.wasReleased())
	require.True(t, captureCtl.wasCancelled())
}

func TestFullInterviewSignedOutKeepsArtifactsLocal(t *testing.T) {
	result, store, mediaCtl, _ := runFullInterview(t, false)

	require.NoError(t, result.Err)
	require.Equal(t, fsm.StateComplete, result.State)
	require.Len(t, result.Payload.Responses, 5)

	require.Empty(t, store.objects)
	require.Empty(t, result.Payload.ArtifactURLs)
	require.Empty(t, result.Payload.DurableArtifactURL)
	require.Equal(t, 75, result.Payload.Assessment.Score)

	require.True(t, mediaCtl.wasReleased())
}
