package utils

import (
	"ProctorGuard/pkg/proctor"
	"bytes"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/draw"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"mime/multipart"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

const (
	DefaultMaxFileSize = 5 * 1024 * 1024
	// DefaultMaxFramePixels admits a 4K UHD frame.
	DefaultMaxFramePixels = 3840 * 2160
)

var (
	ErrNoFile        = errors.New("no file uploaded")
	ErrFileTooLarge  = errors.New("file size exceeds limit")
	ErrNotAnImage    = errors.New("uploaded file is not an image")
	ErrInvalidBase64 = errors.New("invalid base64 image data")
)

type IUtils interface {
	NewULIDFromTimestamp(t time.Time) (string, error)
	ValidateImageFile(file *multipart.FileHeader) error
	ReadFormFile(file *multipart.FileHeader) ([]byte, error)
	DecodeBase64Image(encoded string) ([]byte, error)
	DecodeFrame(data []byte, capturedAt time.Time) (proctor.Frame, error)
	MaxFileSize() int64
}

type utils struct {
	maxFileSize    int64
	maxFramePixels int
}

// New reads MAX_FRAME_PIXELS; an unset or invalid value keeps the default.
func New() IUtils {
	maxFramePixels := DefaultMaxFramePixels
	if v, err := strconv.Atoi(os.Getenv("MAX_FRAME_PIXELS")); err == nil && v > 0 {
		maxFramePixels = v
	}

	return &utils{
		maxFileSize:    DefaultMaxFileSize,
		maxFramePixels: maxFramePixels,
	}
}

func (u *utils) MaxFileSize() int64 {
	return u.maxFileSize
}

func (u *utils) NewULIDFromTimestamp(t time.Time) (string, error) {
	ms := ulid.Timestamp(t)
	entropy := ulid.Monotonic(rand.Reader, 0)

	id, err := ulid.New(ms, entropy)
	if err != nil {
		return "", err
	}

	return id.String(), nil
}

func (u *utils) ValidateImageFile(file *multipart.FileHeader) error {
	if file == nil {
		return ErrNoFile
	}

	if file.Size > u.maxFileSize {
		return ErrFileTooLarge
	}

	contentType := file.Header.Get("Content-Type")
	if contentType != "" && !strings.HasPrefix(contentType, "image/") && contentType != "application/octet-stream" {
		return ErrNotAnImage
	}

	return nil
}

func (u *utils) ReadFormFile(file *multipart.FileHeader) ([]byte, error) {
	src, err := file.Open()
	if err != nil {
		return nil, err
	}
	defer src.Close()

	return io.ReadAll(io.LimitReader(src, u.maxFileSize+1))
}

// DecodeBase64Image accepts plain base64 or a data URL as sent by browser
// canvases ("data:image/jpeg;base64,...").
func (u *utils) DecodeBase64Image(encoded string) ([]byte, error) {
	if i := strings.Index(encoded, ","); i >= 0 && strings.HasPrefix(encoded, "data:") {
		encoded = encoded[i+1:]
	}
	data, err := base64.StdEncoding.DecodeString(strings.TrimSpace(encoded))
	if err != nil {
		return nil, ErrInvalidBase64
	}
	if int64(len(data)) > u.maxFileSize {
		return nil, ErrFileTooLarge
	}
	return data, nil
}

// DecodeFrame turns encoded JPEG or PNG bytes into an RGB frame. Any failure,
// including a frame larger than the pixel cap, is reported as proctor.ErrDecode.
func (u *utils) DecodeFrame(data []byte, capturedAt time.Time) (proctor.Frame, error) {
	return DecodeFrameLimited(data, capturedAt, u.maxFramePixels)
}

func DecodeFrame(data []byte, capturedAt time.Time) (proctor.Frame, error) {
	return DecodeFrameLimited(data, capturedAt, DefaultMaxFramePixels)
}

// DecodeFrameLimited reads the image header first and refuses frames with more
// than maxPixels pixels before any pixel buffer is allocated.
func DecodeFrameLimited(data []byte, capturedAt time.Time, maxPixels int) (proctor.Frame, error) {
	if len(data) == 0 {
		return proctor.Frame{}, fmt.Errorf("%w: empty image", proctor.ErrDecode)
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return proctor.Frame{}, fmt.Errorf("%w: %v", proctor.ErrDecode, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || cfg.Width > maxPixels/cfg.Height {
		return proctor.Frame{}, fmt.Errorf("%w: %dx%d exceeds %d pixels", proctor.ErrDecode, cfg.Width, cfg.Height, maxPixels)
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return proctor.Frame{}, fmt.Errorf("%w: %v", proctor.ErrDecode, err)
	}

	bounds := img.Bounds()
	rgba, ok := img.(*image.RGBA)
	if !ok || rgba.Rect.Min != (image.Point{}) {
		rgba = image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
		draw.Draw(rgba, rgba.Bounds(), img, bounds.Min, draw.Src)
	}

	w, h := rgba.Rect.Dx(), rgba.Rect.Dy()
	pix := make([]byte, 0, w*h*3)
	for y := 0; y < h; y++ {
		row := rgba.Pix[y*rgba.Stride : y*rgba.Stride+w*4]
		for x := 0; x < w*4; x += 4 {
			pix = append(pix, row[x], row[x+1], row[x+2])
		}
	}

	frame, err := proctor.NewFrame(w, h, proctor.ChannelOrderRGB, pix, capturedAt)
	if err != nil {
		return proctor.Frame{}, fmt.Errorf("%w: %v", proctor.ErrDecode, err)
	}
	return frame, nil
}
