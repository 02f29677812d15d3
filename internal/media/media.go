// Package media owns acquisition, enable/disable toggling, and teardown of the
// camera/microphone hardware stream. No other component touches tracks directly.
package media

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

var (
	// ErrPermissionDenied indicates access to the capture hardware was refused.
	ErrPermissionDenied = errors.New("media permission denied")
	// ErrDeviceUnavailable indicates no usable capture device was found.
	ErrDeviceUnavailable = errors.New("media device unavailable")
	// ErrNotLive indicates an operation that requires an acquired stream.
	ErrNotLive = errors.New("media stream is not live")
)

// Constraints selects which tracks to acquire.
type Constraints struct {
	Video bool
	Audio bool
}

// Stream is one live acquired hardware stream.
type Stream interface {
	// AudioChunks yields fixed-size PCM chunks until the stream is closed.
	AudioChunks() <-chan []byte
	// Frame returns the current raw camera frame.
	Frame() (Frame, error)
	// Close stops every track. Idempotent.
	Close() error
}

// Acquirer performs the platform-specific hardware acquisition.
type Acquirer interface {
	Acquire(ctx context.Context, constraints Constraints) (Stream, error)
}

// Controller coordinates stream lifecycle and per-track enabled flags. The
// enabled flags are independent of the live/dead lifecycle: toggling flips a
// track's enabled flag, it never re-acquires or tears down hardware.
type Controller struct {
	acquirer Acquirer
	logger   *slog.Logger

	mu           sync.Mutex
	stream       Stream
	audioTap     chan []byte
	videoEnabled bool
	micEnabled   bool
}

// NewController constructs a controller around a platform acquirer.
func NewController(acquirer Acquirer, logger *slog.Logger) *Controller {
	return &Controller{acquirer: acquirer, logger: logger}
}

// Acquire requests the hardware stream. It must be invoked from a
// user-initiated action; on success the stream is live immediately.
func (c *Controller) Acquire(ctx context.Context, constraints Constraints) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stream != nil {
		return fmt.Errorf("media stream already acquired")
	}
	if c.acquirer == nil {
		return ErrDeviceUnavailable
	}

	stream, err := c.acquirer.Acquire(ctx, constraints)
	if err != nil {
		return err
	}

	c.stream = stream
	c.videoEnabled = constraints.Video
	c.micEnabled = constraints.Audio

	go c.forwardAudio(stream.AudioChunks())
	return nil
}

// forwardAudio relays chunks to the currently attached tap. Chunks produced
// with the mic disabled, with no tap attached, or with a full tap are
// dropped, never queued: a tap only ever sees audio captured while it was
// listening. The relay therefore can never block, even after Release.
func (c *Controller) forwardAudio(in <-chan []byte) {
	for chunk := range in {
		if !c.MicEnabled() {
			continue
		}
		c.mu.Lock()
		tap := c.audioTap
		c.mu.Unlock()
		if tap == nil {
			continue
		}
		select {
		case tap <- chunk:
		default:
		}
	}

	c.mu.Lock()
	tap := c.audioTap
	c.audioTap = nil
	c.mu.Unlock()
	if tap != nil {
		close(tap)
	}
}

// Live reports whether a hardware stream is currently acquired.
func (c *Controller) Live() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stream != nil
}

// ToggleVideo flips the camera track's enabled flag and returns the new value.
// A toggle after teardown is a no-op.
func (c *Controller) ToggleVideo() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stream == nil {
		return c.videoEnabled
	}
	c.videoEnabled = !c.videoEnabled
	return c.videoEnabled
}

// ToggleMic flips the microphone track's enabled flag and returns the new value.
func (c *Controller) ToggleMic() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stream == nil {
		return c.micEnabled
	}
	c.micEnabled = !c.micEnabled
	return c.micEnabled
}

// VideoEnabled reports the camera track flag.
func (c *Controller) VideoEnabled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.videoEnabled
}

// MicEnabled reports the microphone track flag.
func (c *Controller) MicEnabled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.micEnabled
}

// AudioChunks attaches a fresh audio tap and returns it. Each listening turn
// calls this once; any previously attached tap is detached, and audio
// captured before the attach is never replayed into the new tap. The tap
// closes when the stream ends. Returns nil when no stream is live.
func (c *Controller) AudioChunks() <-chan []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stream == nil {
		return nil
	}
	c.audioTap = make(chan []byte, 128)
	return c.audioTap
}

// CaptureFrame reads the current video frame as JPEG bytes in the raw,
// unmirrored orientation used for storage. A disabled camera track yields a
// black frame of the same dimensions, matching muted-track behavior.
func (c *Controller) CaptureFrame() ([]byte, error) {
	frame, err := c.currentFrame()
	if err != nil {
		return nil, err
	}
	return frame.EncodeJPEG(snapshotJPEGQuality)
}

// PreviewFrame returns the horizontally mirrored (selfie-view) variant used
// for on-screen display only; stored artifacts never carry this transform.
func (c *Controller) PreviewFrame() ([]byte, error) {
	frame, err := c.currentFrame()
	if err != nil {
		return nil, err
	}
	return frame.Mirror().EncodeJPEG(snapshotJPEGQuality)
}

func (c *Controller) currentFrame() (Frame, error) {
	c.mu.Lock()
	stream := c.stream
	videoEnabled := c.videoEnabled
	c.mu.Unlock()

	if stream == nil {
		return Frame{}, ErrNotLive
	}
	frame, err := stream.Frame()
	if err != nil {
		return Frame{}, fmt.Errorf("read video frame: %w", err)
	}
	if !videoEnabled {
		return blackFrame(frame.Width, frame.Height), nil
	}
	return frame, nil
}

// Release stops every track. Idempotent; safe to call on a dead controller.
func (c *Controller) Release() {
	c.mu.Lock()
	stream := c.stream
	c.stream = nil
	c.mu.Unlock()

	if stream == nil {
		return
	}
	if err := stream.Close(); err != nil && c.logger != nil {
		c.logger.Warn("media stream close failed", "error", err.Error())
	}
}
