package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/jfreymuth/pulse"
	pulseproto "github.com/jfreymuth/pulse/proto"
)

const (
	captureSampleRate = 16000
	chunkSizeBytes    = 640 // 20ms @ 16kHz mono s16
)

// Device describes one Pulse input source surfaced to viva.
type Device struct {
	ID          string
	Description string
	State       string
	Available   bool
	Muted       bool
	Default     bool
}

// Selection is the resolved capture source plus optional fallback warning context.
type Selection struct {
	Device   Device
	Warning  string
	Fallback bool
}

// ListDevices returns available Pulse input sources with default/availability metadata.
func ListDevices(_ context.Context) ([]Device, error) {
	client, err := pulse.NewClient(
		pulse.ClientApplicationName("viva"),
		pulse.ClientApplicationIconName("camera-web"),
	)
	if err != nil {
		return nil, fmt.Errorf("connect pulse server: %w", err)
	}
	defer client.Close()

	defaultSource, err := client.DefaultSource()
	if err != nil {
		return nil, fmt.Errorf("read default source: %w", err)
	}
	defaultID := defaultSource.ID()

	var sourceInfos pulseproto.GetSourceInfoListReply
	if err := client.RawRequest(&pulseproto.GetSourceInfoList{}, &sourceInfos); err != nil {
		return nil, fmt.Errorf("list sources: %w", err)
	}

	devices := make([]Device, 0, len(sourceInfos))
	for _, source := range sourceInfos {
		if source == nil {
			continue
		}
		devices = append(devices, Device{
			ID:          source.SourceName,
			Description: source.Device,
			State:       sourceStateString(source.State),
			Available:   sourceAvailable(source),
			Muted:       source.Mute,
			Default:     source.SourceName == defaultID,
		})
	}
	return devices, nil
}

// SelectDevice resolves audio.input/audio.fallback preferences against live devices.
func SelectDevice(ctx context.Context, input string, fallback string) (Selection, error) {
	devices, err := ListDevices(ctx)
	if err != nil {
		return Selection{}, err
	}
	return selectDeviceFromList(devices, input, fallback)
}

// selectDeviceFromList applies selection policy to a pre-fetched device list.
func selectDeviceFromList(devices []Device, input string, fallback string) (Selection, error) {
	if len(devices) == 0 {
		return Selection{}, errors.New("no audio input devices found")
	}

	var (
		defaultDevice *Device
		byInput       *Device
		byFallback    *Device
	)

	input = strings.TrimSpace(strings.ToLower(input))
	fallback = strings.TrimSpace(strings.ToLower(fallback))

	for i := range devices {
		dev := &devices[i]
		if dev.Default {
			defaultDevice = dev
		}
		if byInput == nil && input != "" && input != "default" && deviceMatches(*dev, input) {
			byInput = dev
		}
		if byFallback == nil && fallback != "" && fallback != "default" && deviceMatches(*dev, fallback) {
			byFallback = dev
		}
	}

	primary := byInput
	if primary == nil {
		if defaultDevice == nil {
			return Selection{}, errors.New("default audio source is unavailable")
		}
		primary = defaultDevice
	}

	if primary.Available && !primary.Muted {
		return Selection{Device: *primary}, nil
	}

	reason := "unavailable"
	if primary.Muted {
		reason = "muted"
	}

	candidate := byFallback
	if candidate == nil {
		candidate = defaultDevice
	}
	if candidate == nil || candidate.ID == primary.ID || !candidate.Available || candidate.Muted {
		return Selection{}, fmt.Errorf("audio input %q is %s and no usable fallback exists", primary.ID, reason)
	}

	return Selection{
		Device:   *candidate,
		Warning:  fmt.Sprintf("audio.input %q is %s; falling back to %q", primary.ID, reason, candidate.ID),
		Fallback: true,
	}, nil
}

// deviceMatches reports whether a search term matches a device id or description.
func deviceMatches(device Device, term string) bool {
	if term == "" {
		return false
	}
	id := strings.ToLower(device.ID)
	desc := strings.ToLower(device.Description)
	return strings.Contains(id, term) || strings.Contains(desc, term)
}

// FrameSource produces raw camera frames for snapshot capture.
type FrameSource interface {
	Frame() (Frame, error)
}

// PulseAcquirer acquires the interview hardware stream: microphone PCM via
// PulseAudio plus an injected camera frame source.
type PulseAcquirer struct {
	InputPref    string
	FallbackPref string
	Frames       FrameSource
}

// Acquire resolves device selection and starts audio capture. Connection
// refusal from the audio server maps to ErrPermissionDenied; selection
// failures map to ErrDeviceUnavailable.
func (a *PulseAcquirer) Acquire(ctx context.Context, constraints Constraints) (Stream, error) {
	if constraints.Video && a.Frames == nil {
		return nil, fmt.Errorf("%w: no camera frame source configured", ErrDeviceUnavailable)
	}

	stream := &pulseStream{frames: a.Frames}

	if constraints.Audio {
		selection, err := SelectDevice(ctx, a.InputPref, a.FallbackPref)
		if err != nil {
			if strings.Contains(err.Error(), "connect pulse server") {
				return nil, fmt.Errorf("%w: %v", ErrPermissionDenied, err)
			}
			return nil, fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
		}

		capture, err := startCapture(ctx, selection.Device)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
		}
		stream.capture = capture
	}

	return stream, nil
}

// pulseStream bundles the live capture and camera source behind the Stream contract.
type pulseStream struct {
	capture *capture
	frames  FrameSource

	closeOnce sync.Once
}

func (s *pulseStream) AudioChunks() <-chan []byte {
	if s.capture == nil {
		empty := make(chan []byte)
		close(empty)
		return empty
	}
	return s.capture.chunkCh
}

func (s *pulseStream) Frame() (Frame, error) {
	if s.frames == nil {
		return Frame{}, ErrDeviceUnavailable
	}
	return s.frames.Frame()
}

func (s *pulseStream) Close() error {
	s.closeOnce.Do(func() {
		if s.capture != nil {
			_ = s.capture.stop()
		}
	})
	return nil
}

// capture streams fixed-size PCM chunks from one selected Pulse source.
type capture struct {
	client *pulse.Client
	stream *pulse.RecordStream

	chunkCh chan []byte
	stopCh  chan struct{}

	mu      sync.Mutex
	pending []byte
	stopped bool

	inflight sync.WaitGroup
	bytes    atomic.Int64
}

// startCapture creates and starts a 16kHz mono s16 record stream.
func startCapture(ctx context.Context, selected Device) (*capture, error) {
	client, err := pulse.NewClient(
		pulse.ClientApplicationName("viva"),
		pulse.ClientApplicationIconName("audio-input-microphone"),
	)
	if err != nil {
		return nil, fmt.Errorf("connect pulse server: %w", err)
	}

	source, err := client.SourceByID(selected.ID)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("resolve source %q: %w", selected.ID, err)
	}

	cap := &capture{
		client:  client,
		chunkCh: make(chan []byte, 128),
		stopCh:  make(chan struct{}),
	}

	writer := pulse.NewWriter(writerFunc(cap.onPCM), pulseproto.FormatInt16LE)
	stream, err := client.NewRecord(
		writer,
		pulse.RecordSource(source),
		pulse.RecordMono,
		pulse.RecordSampleRate(captureSampleRate),
		pulse.RecordBufferFragmentSize(chunkSizeBytes),
		pulse.RecordMediaName("viva interview"),
	)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("create pulse record stream: %w", err)
	}

	cap.stream = stream
	stream.Start()

	go func() {
		<-ctx.Done()
		_ = cap.stop()
	}()

	return cap, nil
}

// stop halts the stream, flushes residual PCM, and closes the chunk channel exactly once.
func (c *capture) stop() error {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return nil
	}
	c.stopped = true
	close(c.stopCh)
	c.mu.Unlock()

	if c.stream != nil {
		c.stream.Stop()
		c.stream.Close()
	}
	if c.client != nil {
		c.client.Close()
	}

	c.inflight.Wait()

	c.mu.Lock()
	pending := append([]byte(nil), c.pending...)
	c.pending = nil
	c.mu.Unlock()

	if len(pending) > 0 {
		select {
		case c.chunkCh <- pending:
		default:
		}
	}

	close(c.chunkCh)
	return nil
}

// onPCM receives raw Pulse frames and emits chunkSizeBytes slices to chunkCh.
func (c *capture) onPCM(buffer []byte) (int, error) {
	if len(buffer) == 0 {
		return 0, nil
	}

	select {
	case <-c.stopCh:
		return 0, io.EOF
	default:
	}

	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return 0, io.EOF
	}
	// Guard Add under the same mutex as c.stopped to avoid Add/Wait races.
	c.inflight.Add(1)

	c.pending = append(c.pending, buffer...)
	chunks := make([][]byte, 0, len(c.pending)/chunkSizeBytes)
	for len(c.pending) >= chunkSizeBytes {
		chunk := make([]byte, chunkSizeBytes)
		copy(chunk, c.pending[:chunkSizeBytes])
		c.pending = c.pending[chunkSizeBytes:]
		chunks = append(chunks, chunk)
	}
	c.mu.Unlock()
	defer c.inflight.Done()

	c.bytes.Add(int64(len(buffer)))

	for _, chunk := range chunks {
		select {
		case <-c.stopCh:
			return 0, io.EOF
		case c.chunkCh <- chunk:
		}
	}

	return len(buffer), nil
}

// writerFunc adapts a function to io.Writer for pulse.NewWriter.
type writerFunc func([]byte) (int, error)

func (f writerFunc) Write(b []byte) (int, error) {
	return f(b)
}

// sourceStateString maps Pulse source state constants to human-readable values.
func sourceStateString(state uint32) string {
	switch state {
	case 0:
		return "running"
	case 1:
		return "idle"
	case 2:
		return "suspended"
	default:
		return fmt.Sprintf("unknown(%d)", state)
	}
}

// sourceAvailable maps Pulse source port availability to a simple boolean.
func sourceAvailable(source *pulseproto.GetSourceInfoReply) bool {
	if source == nil {
		return false
	}
	if len(source.Ports) == 0 {
		return true
	}
	for _, port := range source.Ports {
		if port.Name != source.ActivePortName {
			continue
		}
		// PulseAudio values: unknown=0, no=1, yes=2.
		return port.Available == 0 || port.Available == 2
	}
	return true
}
