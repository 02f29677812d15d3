package media

import (
	"fmt"

	"github.com/jfreymuth/pulse"
)

// PulsePlayer plays synthesized speech PCM through the default output sink.
type PulsePlayer struct{}

// PlayPCM16 blocks until the mono s16 sample buffer has fully drained.
func (PulsePlayer) PlayPCM16(samples []int16, sampleRate int) error {
	if len(samples) == 0 {
		return nil
	}
	if sampleRate <= 0 {
		return fmt.Errorf("invalid playback sample rate %d", sampleRate)
	}

	client, err := pulse.NewClient(
		pulse.ClientApplicationName("viva"),
		pulse.ClientApplicationIconName("audio-speakers"),
	)
	if err != nil {
		return fmt.Errorf("connect pulse server: %w", err)
	}
	defer client.Close()

	cursor := 0
	reader := pulse.Int16Reader(func(buf []int16) (int, error) {
		if cursor >= len(samples) {
			return 0, pulse.EndOfData
		}

		n := copy(buf, samples[cursor:])
		cursor += n
		if cursor >= len(samples) {
			return n, pulse.EndOfData
		}
		return n, nil
	})

	stream, err := client.NewPlayback(
		reader,
		pulse.PlaybackMono,
		pulse.PlaybackSampleRate(sampleRate),
		pulse.PlaybackLatency(0.05),
		pulse.PlaybackMediaName("viva question"),
	)
	if err != nil {
		return fmt.Errorf("create pulse playback stream: %w", err)
	}
	defer stream.Close()

	stream.Start()
	stream.Drain()
	if err := stream.Error(); err != nil {
		return fmt.Errorf("play speech stream: %w", err)
	}

	return nil
}

// TestPatternSource renders a deterministic gradient frame. It stands in for a
// real camera on machines without video capture wiring so scheduled snapshots
// still produce artifacts.
type TestPatternSource struct {
	Width  int
	Height int
}

func (s TestPatternSource) Frame() (Frame, error) {
	width, height := s.Width, s.Height
	if width <= 0 {
		width = 320
	}
	if height <= 0 {
		height = 240
	}

	pix := make([]byte, width*height*4)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			i := (y*width + x) * 4
			pix[i] = byte(255 * x / width)
			pix[i+1] = byte(255 * y / height)
			pix[i+2] = 0x40
			pix[i+3] = 0xff
		}
	}
	return Frame{Width: width, Height: height, Pix: pix}, nil
}
