package media

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMirrorFlipsHorizontally(t *testing.T) {
	// 2x1 frame: red pixel, blue pixel.
	frame := Frame{Width: 2, Height: 1, Pix: []byte{
		0xff, 0, 0, 0xff,
		0, 0, 0xff, 0xff,
	}}

	mirrored := frame.Mirror()
	require.Equal(t, []byte{
		0, 0, 0xff, 0xff,
		0xff, 0, 0, 0xff,
	}, mirrored.Pix)

	// Mirroring twice restores the original.
	require.Equal(t, frame.Pix, mirrored.Mirror().Pix)
}

func TestStoredFrameIsNotMirrored(t *testing.T) {
	source := TestPatternSource{Width: 16, Height: 8}
	frame, err := source.Frame()
	require.NoError(t, err)

	stored, err := frame.EncodeJPEG(snapshotJPEGQuality)
	require.NoError(t, err)
	preview, err := frame.Mirror().EncodeJPEG(snapshotJPEGQuality)
	require.NoError(t, err)

	require.True(t, bytes.HasPrefix(stored, []byte{0xff, 0xd8}), "expected JPEG magic")
	require.NotEqual(t, stored, preview, "storage must keep the raw orientation")
}

func TestEncodeJPEGRejectsBadDimensions(t *testing.T) {
	_, err := Frame{Width: 2, Height: 2, Pix: []byte{1, 2, 3}}.EncodeJPEG(85)
	require.Error(t, err)
}

func TestSelectDeviceFromList(t *testing.T) {
	devices := []Device{
		{ID: "usb-mic", Description: "USB Microphone", Available: true},
		{ID: "builtin", Description: "Built-in Audio", Available: true, Default: true},
		{ID: "muted-mic", Description: "Muted Mic", Available: true, Muted: true},
	}

	sel, err := selectDeviceFromList(devices, "usb", "default")
	require.NoError(t, err)
	require.Equal(t, "usb-mic", sel.Device.ID)
	require.False(t, sel.Fallback)

	sel, err = selectDeviceFromList(devices, "default", "default")
	require.NoError(t, err)
	require.Equal(t, "builtin", sel.Device.ID)

	sel, err = selectDeviceFromList(devices, "muted", "usb")
	require.NoError(t, err)
	require.Equal(t, "usb-mic", sel.Device.ID)
	require.True(t, sel.Fallback)
	require.Contains(t, sel.Warning, "muted")

	_, err = selectDeviceFromList(nil, "default", "default")
	require.Error(t, err)
}
