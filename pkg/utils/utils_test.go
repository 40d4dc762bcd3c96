package utils

import (
	"ProctorGuard/pkg/proctor"
	"bytes"
	"encoding/base64"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
)

func encodePNG(t *testing.T, w, h int, c color.RGBA) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png encode failed: %v", err)
	}
	return buf.Bytes()
}

func TestDecodeFrame(t *testing.T) {
	at := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	frame, err := DecodeFrame(encodePNG(t, 3, 2, color.RGBA{R: 200, G: 100, B: 50, A: 255}), at)
	if err != nil {
		t.Fatalf("DecodeFrame failed: %v", err)
	}
	if frame.Width != 3 || frame.Height != 2 || frame.Order != proctor.ChannelOrderRGB {
		t.Fatalf("unexpected frame geometry %dx%d order %s", frame.Width, frame.Height, frame.Order)
	}
	if len(frame.Pix) != 3*2*3 {
		t.Fatalf("unexpected pixel buffer length %d", len(frame.Pix))
	}
	if r, g, b := frame.RGBAt(2, 1); r != 200 || g != 100 || b != 50 {
		t.Fatalf("unexpected pixel %d %d %d", r, g, b)
	}
	if !frame.CapturedAt.Equal(at) {
		t.Fatalf("capture time not kept")
	}
}

func TestDecodeFrame_Malformed(t *testing.T) {
	for name, data := range map[string][]byte{
		"empty":   nil,
		"garbage": []byte("definitely not an image"),
	} {
		if _, err := DecodeFrame(data, time.Now()); !errors.Is(err, proctor.ErrDecode) {
			t.Fatalf("%s: expected ErrDecode, got %v", name, err)
		}
	}
}

func TestDecodeFrame_RejectsOversizedFrame(t *testing.T) {
	// A uniform gray image compresses to a few KB whatever its dimensions.
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewGray(image.Rect(0, 0, 8000, 8000))); err != nil {
		t.Fatalf("png encode failed: %v", err)
	}
	if buf.Len() > DefaultMaxFileSize {
		t.Fatalf("fixture should fit the upload limit, got %d bytes", buf.Len())
	}

	if _, err := New().DecodeFrame(buf.Bytes(), time.Now()); !errors.Is(err, proctor.ErrDecode) {
		t.Fatalf("expected ErrDecode for an 8000x8000 frame, got %v", err)
	}
}

func TestDecodeFrame_PixelCapFromEnv(t *testing.T) {
	data := encodePNG(t, 10, 10, color.RGBA{A: 255})

	t.Setenv("MAX_FRAME_PIXELS", "99")
	if _, err := New().DecodeFrame(data, time.Now()); !errors.Is(err, proctor.ErrDecode) {
		t.Fatalf("expected a 10x10 frame to exceed a 99 pixel cap, got %v", err)
	}

	t.Setenv("MAX_FRAME_PIXELS", "100")
	if _, err := New().DecodeFrame(data, time.Now()); err != nil {
		t.Fatalf("a frame at the cap should decode, got %v", err)
	}

	t.Setenv("MAX_FRAME_PIXELS", "not-a-number")
	if _, err := New().DecodeFrame(data, time.Now()); err != nil {
		t.Fatalf("an invalid cap should fall back to the default, got %v", err)
	}
}

func TestDecodeBase64Image(t *testing.T) {
	u := New()
	raw := encodePNG(t, 1, 1, color.RGBA{A: 255})
	encoded := base64.StdEncoding.EncodeToString(raw)

	for _, in := range []string{encoded, "data:image/png;base64," + encoded} {
		out, err := u.DecodeBase64Image(in)
		if err != nil {
			t.Fatalf("DecodeBase64Image failed: %v", err)
		}
		if !bytes.Equal(out, raw) {
			t.Fatalf("decoded bytes differ")
		}
	}

	if _, err := u.DecodeBase64Image("%%%"); !errors.Is(err, ErrInvalidBase64) {
		t.Fatalf("expected ErrInvalidBase64, got %v", err)
	}
}

func TestNewULIDFromTimestamp(t *testing.T) {
	u := New()
	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	id, err := u.NewULIDFromTimestamp(at)
	if err != nil {
		t.Fatalf("NewULIDFromTimestamp failed: %v", err)
	}
	parsed, err := ulid.Parse(id)
	if err != nil {
		t.Fatalf("not a ulid: %v", err)
	}
	if ulid.Time(parsed.Time()).UnixMilli() != at.UnixMilli() {
		t.Fatalf("ulid timestamp mismatch")
	}
}
