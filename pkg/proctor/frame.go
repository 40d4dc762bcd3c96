package proctor

import (
	"fmt"
	"image"
	"image/color"
	"time"
)

type ChannelOrder uint8

const (
	ChannelOrderRGB  ChannelOrder = 0
	ChannelOrderBGR  ChannelOrder = 1
	ChannelOrderRGBA ChannelOrder = 2
	ChannelOrderGray ChannelOrder = 3
)

func (c ChannelOrder) Channels() int {
	switch c {
	case ChannelOrderRGB, ChannelOrderBGR:
		return 3
	case ChannelOrderRGBA:
		return 4
	case ChannelOrderGray:
		return 1
	default:
		return 0
	}
}

func (c ChannelOrder) String() string {
	switch c {
	case ChannelOrderRGB:
		return "rgb"
	case ChannelOrderBGR:
		return "bgr"
	case ChannelOrderRGBA:
		return "rgba"
	case ChannelOrderGray:
		return "gray"
	default:
		return "unknown"
	}
}

// Frame is one decoded image sample. Pix is row-major, tightly packed, with
// Order.Channels() bytes per pixel. Detectors must treat it as read-only.
type Frame struct {
	Width      int
	Height     int
	Order      ChannelOrder
	Pix        []byte
	CapturedAt time.Time
}

func NewFrame(width, height int, order ChannelOrder, pix []byte, capturedAt time.Time) (Frame, error) {
	channels := order.Channels()
	if channels == 0 {
		return Frame{}, fmt.Errorf("%w: unsupported channel order %d", ErrInvalidFrame, order)
	}
	if width <= 0 || height <= 0 {
		return Frame{}, fmt.Errorf("%w: dimensions %dx%d", ErrInvalidFrame, width, height)
	}
	if len(pix) != width*height*channels {
		return Frame{}, fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidFrame, width*height*channels, len(pix))
	}

	return Frame{
		Width:      width,
		Height:     height,
		Order:      order,
		Pix:        pix,
		CapturedAt: capturedAt,
	}, nil
}

func (f Frame) Validate() error {
	_, err := NewFrame(f.Width, f.Height, f.Order, f.Pix, f.CapturedAt)
	return err
}

// RGBAt returns the colour of the pixel at (x, y) regardless of channel order.
func (f Frame) RGBAt(x, y int) (r, g, b uint8) {
	channels := f.Order.Channels()
	i := (y*f.Width + x) * channels
	switch f.Order {
	case ChannelOrderBGR:
		return f.Pix[i+2], f.Pix[i+1], f.Pix[i]
	case ChannelOrderGray:
		return f.Pix[i], f.Pix[i], f.Pix[i]
	default:
		return f.Pix[i], f.Pix[i+1], f.Pix[i+2]
	}
}

// Image copies the frame into an image.RGBA so it can be handed to encoders.
func (f Frame) Image() image.Image {
	img := image.NewRGBA(image.Rect(0, 0, f.Width, f.Height))
	for y := 0; y < f.Height; y++ {
		for x := 0; x < f.Width; x++ {
			r, g, b := f.RGBAt(x, y)
			img.SetRGBA(x, y, color.RGBA{R: r, G: g, B: b, A: 0xff})
		}
	}
	return img
}
