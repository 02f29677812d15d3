package ai

import (
	"bytes"
	"context"
	"fmt"
	"sync"

	"github.com/sashabaranov/go-openai"

	"github.com/tmarbury/viva/internal/turn"
)

const (
	// captureSampleRate matches the microphone capture format.
	captureSampleRate = 16000
	// interimWindowBytes is roughly two seconds of PCM16 mono at 16kHz.
	// Each window triggers a fresh whole-answer transcription pass whose
	// result supersedes the previous interim text.
	interimWindowBytes = 2 * captureSampleRate * 2
)

// AudioSource yields microphone PCM chunks while the stream is live.
type AudioSource interface {
	AudioChunks() <-chan []byte
}

// Transcriber is one continuous listening session backed by the configured
// speech-to-text model. It satisfies the turn coordinator's transcriber
// contract: interim updates while audio accumulates, one final update on stop.
type Transcriber struct {
	provider *Provider
	source   AudioSource

	mu      sync.Mutex
	started bool
	stopped bool
	buf     []byte

	updates chan turn.Update
	stop    chan struct{}
	done    chan struct{}
}

// NewTranscriber constructs an unstarted listening session.
func NewTranscriber(provider *Provider, source AudioSource) *Transcriber {
	return &Transcriber{
		provider: provider,
		source:   source,
		updates:  make(chan turn.Update, 16),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start begins consuming microphone audio.
func (t *Transcriber) Start(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.started {
		return fmt.Errorf("transcriber already started")
	}
	if t.source == nil {
		return fmt.Errorf("no microphone source configured")
	}
	chunks := t.source.AudioChunks()
	if chunks == nil {
		return fmt.Errorf("microphone stream unavailable")
	}

	t.started = true
	go t.consume(ctx, chunks)
	return nil
}

// Updates exposes the transcription event stream. The channel closes after Stop.
func (t *Transcriber) Updates() <-chan turn.Update {
	return t.updates
}

// consume accumulates PCM and emits an interim transcription per window.
func (t *Transcriber) consume(ctx context.Context, chunks <-chan []byte) {
	defer close(t.done)

	sinceLast := 0
	for {
		select {
		case <-t.stop:
			return
		case chunk, ok := <-chunks:
			if !ok {
				return
			}
			t.mu.Lock()
			t.buf = append(t.buf, chunk...)
			t.mu.Unlock()

			sinceLast += len(chunk)
			if sinceLast < interimWindowBytes {
				continue
			}
			sinceLast = 0

			text, err := t.transcribe(ctx)
			if err != nil {
				t.provider.logWarn("interim transcription failed", "error", err.Error())
				continue
			}
			if text == "" {
				continue
			}
			select {
			case t.updates <- turn.Update{Text: text}:
			case <-t.stop:
				return
			}
		}
	}
}

// Stop halts audio intake, runs one final transcription pass over the full
// answer, and closes the update stream. Idempotent.
func (t *Transcriber) Stop(ctx context.Context) error {
	t.mu.Lock()
	if t.stopped {
		t.mu.Unlock()
		return nil
	}
	t.stopped = true
	started := t.started
	t.mu.Unlock()

	close(t.stop)
	if started {
		<-t.done
	}

	text, err := t.transcribe(ctx)
	if err == nil && text != "" {
		t.updates <- turn.Update{Text: text, Final: true}
	}
	close(t.updates)
	if err != nil {
		return fmt.Errorf("final transcription: %w", err)
	}
	return nil
}

// transcribe runs one recognition pass over everything captured so far.
func (t *Transcriber) transcribe(ctx context.Context) (string, error) {
	t.mu.Lock()
	pcm := append([]byte(nil), t.buf...)
	t.mu.Unlock()

	if len(pcm) == 0 {
		return "", nil
	}

	resp, err := t.provider.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    t.provider.config.TranscribeModel,
		FilePath: "answer.wav",
		Reader:   bytes.NewReader(pcm16WAV(pcm, captureSampleRate, 1)),
	})
	if err != nil {
		return "", err
	}
	return resp.Text, nil
}
