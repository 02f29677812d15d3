package media

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
)

const snapshotJPEGQuality = 85

// Frame is one raw RGBA video frame (4 bytes per pixel, row-major).
type Frame struct {
	Width  int
	Height int
	Pix    []byte
}

// Mirror returns the horizontal flip of the frame, as used for live preview.
func (f Frame) Mirror() Frame {
	out := Frame{Width: f.Width, Height: f.Height, Pix: make([]byte, len(f.Pix))}
	stride := f.Width * 4
	for y := 0; y < f.Height; y++ {
		row := f.Pix[y*stride : (y+1)*stride]
		dst := out.Pix[y*stride : (y+1)*stride]
		for x := 0; x < f.Width; x++ {
			src := row[x*4 : x*4+4]
			copy(dst[(f.Width-1-x)*4:], src)
		}
	}
	return out
}

// EncodeJPEG encodes the frame for artifact storage.
func (f Frame) EncodeJPEG(quality int) ([]byte, error) {
	if f.Width <= 0 || f.Height <= 0 || len(f.Pix) != f.Width*f.Height*4 {
		return nil, fmt.Errorf("invalid frame dimensions %dx%d (%d bytes)", f.Width, f.Height, len(f.Pix))
	}

	img := &image.RGBA{
		Pix:    f.Pix,
		Stride: f.Width * 4,
		Rect:   image.Rect(0, 0, f.Width, f.Height),
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("encode snapshot jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

// blackFrame builds an all-black frame matching a disabled camera track.
func blackFrame(width, height int) Frame {
	pix := make([]byte, width*height*4)
	for i := 3; i < len(pix); i += 4 {
		pix[i] = 0xff // opaque alpha
	}
	return Frame{Width: width, Height: height, Pix: pix}
}
