package ai

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/sashabaranov/go-openai"
)

// The pcm speech response format is 16-bit signed little-endian mono at 24kHz.
const speechSampleRate = 24000

// Player renders raw PCM16 samples on the local audio output.
type Player interface {
	PlayPCM16(samples []int16, sampleRate int) error
}

// Speaker reads interview questions aloud through the configured TTS model.
type Speaker struct {
	provider *Provider
	player   Player
}

// NewSpeaker wires the provider's speech model to a local playback sink.
func NewSpeaker(provider *Provider, player Player) *Speaker {
	return &Speaker{provider: provider, player: player}
}

// Speak synthesizes the question and blocks until playback completes.
func (s *Speaker) Speak(ctx context.Context, text string) error {
	if s.player == nil {
		return fmt.Errorf("no audio playback sink configured")
	}

	ctx, cancel := context.WithTimeout(ctx, s.provider.config.Timeout)
	defer cancel()

	resp, err := s.provider.client.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model:          openai.SpeechModel(s.provider.config.SpeechModel),
		Input:          text,
		Voice:          openai.SpeechVoice(s.provider.config.SpeechVoice),
		ResponseFormat: openai.SpeechResponseFormatPcm,
	})
	if err != nil {
		return fmt.Errorf("synthesize question: %w", err)
	}
	defer resp.Close()

	pcm, err := io.ReadAll(resp)
	if err != nil {
		return fmt.Errorf("read synthesized audio: %w", err)
	}

	return s.player.PlayPCM16(pcmToSamples(pcm), speechSampleRate)
}

// pcmToSamples converts little-endian PCM16 bytes to samples, dropping a
// trailing odd byte.
func pcmToSamples(pcm []byte) []int16 {
	samples := make([]int16, len(pcm)/2)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(pcm[i*2:]))
	}
	return samples
}
