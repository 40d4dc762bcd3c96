package onnx

import (
	"ProctorGuard/pkg/proctor"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

const (
	DefaultInputSize      = 640
	DefaultScoreThreshold = 0.25
	DefaultIoUThreshold   = 0.45

	modelFile  = "yolov8n.onnx"
	labelsFile = "labels.json"
)

type Options struct {
	InputSize      int
	ScoreThreshold float32
	IoUThreshold   float32
}

func (o Options) withDefaults() Options {
	if o.InputSize <= 0 {
		o.InputSize = DefaultInputSize
	}
	if o.ScoreThreshold <= 0 {
		o.ScoreThreshold = DefaultScoreThreshold
	}
	if o.IoUThreshold <= 0 {
		o.IoUThreshold = DefaultIoUThreshold
	}
	return o
}

// YOLODetector runs a YOLOv8 export through onnxruntime. The session and its
// tensors are allocated once; Detect serialises access to them.
type YOLODetector struct {
	session *ort.AdvancedSession
	input   *ort.Tensor[float32]
	output  *ort.Tensor[float32]
	labels  []string
	opts    Options
	anchors int

	mu     sync.Mutex
	closed bool
}

// LoadYOLO reads <dir>/yolov8n.onnx and an optional <dir>/labels.json. When
// the runtime library cannot be found the error wraps
// proctor.ErrModelUnavailable.
func LoadYOLO(dir string, opts Options) (*YOLODetector, error) {
	if dir == "" {
		return nil, fmt.Errorf("%w: model dir is empty", proctor.ErrModelUnavailable)
	}
	opts = opts.withDefaults()

	libPath := resolveSharedLibraryPath(dir)
	if libPath == "" {
		return nil, fmt.Errorf("%w: onnxruntime shared library not found; set ONNXRUNTIME_SHARED_LIBRARY_PATH or install the runtime", proctor.ErrModelUnavailable)
	}
	ort.SetSharedLibraryPath(libPath)
	if !ort.IsInitialized() {
		if err := ort.InitializeEnvironment(); err != nil {
			return nil, fmt.Errorf("%w: initialize onnxruntime: %v", proctor.ErrModelUnavailable, err)
		}
	}

	modelPath := filepath.Join(dir, modelFile)
	if _, err := os.Stat(modelPath); err != nil {
		return nil, fmt.Errorf("%w: model file missing at %s: %v", proctor.ErrModelUnavailable, modelPath, err)
	}

	labels, err := loadLabels(filepath.Join(dir, labelsFile))
	if err != nil {
		return nil, fmt.Errorf("load labels: %w", err)
	}

	size := int64(opts.InputSize)
	anchors := anchorCount(opts.InputSize)

	input, err := ort.NewEmptyTensor[float32](ort.NewShape(1, 3, size, size))
	if err != nil {
		return nil, fmt.Errorf("allocate input tensor: %w", err)
	}
	output, err := ort.NewEmptyTensor[float32](ort.NewShape(1, int64(4+len(labels)), int64(anchors)))
	if err != nil {
		input.Destroy()
		return nil, fmt.Errorf("allocate output tensor: %w", err)
	}

	session, err := ort.NewAdvancedSession(
		modelPath,
		[]string{"images"},
		[]string{"output0"},
		[]ort.Value{input},
		[]ort.Value{output},
		nil,
	)
	if err != nil {
		input.Destroy()
		output.Destroy()
		return nil, fmt.Errorf("create onnx session: %w", err)
	}

	return &YOLODetector{
		session: session,
		input:   input,
		output:  output,
		labels:  labels,
		opts:    opts,
		anchors: anchors,
	}, nil
}

func (d *YOLODetector) DetectObjects(ctx context.Context, frame proctor.Frame) ([]proctor.ObjectDetection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil, fmt.Errorf("%w: detector closed", proctor.ErrModelUnavailable)
	}

	lb := Letterbox(frame, d.opts.InputSize, d.input.GetData())

	if err := d.session.Run(); err != nil {
		return nil, fmt.Errorf("onnx run: %w", err)
	}

	candidates := DecodeOutput(d.output.GetData(), len(d.labels), d.anchors, d.opts.ScoreThreshold)
	kept := NonMaxSuppression(candidates, d.opts.IoUThreshold)

	out := make([]proctor.ObjectDetection, 0, len(kept))
	for _, c := range kept {
		out = append(out, proctor.ObjectDetection{
			Label:      d.labels[c.Class],
			Confidence: float64(c.Score),
			Box:        lb.Unproject(c.Box, frame.Width, frame.Height),
		})
	}
	return out, nil
}

func (d *YOLODetector) Labels() []string {
	return append([]string(nil), d.labels...)
}

func (d *YOLODetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}
	d.closed = true

	var firstErr error
	for _, destroy := range []func() error{d.session.Destroy, d.input.Destroy, d.output.Destroy} {
		if err := destroy(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// anchorCount is the number of YOLOv8 predictions for a square input: one per
// cell of the stride 8, 16 and 32 grids.
func anchorCount(size int) int {
	n := 0
	for _, stride := range []int{8, 16, 32} {
		g := size / stride
		n += g * g
	}
	return n
}

func loadLabels(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return append([]string(nil), cocoLabels...), nil
	}
	if err != nil {
		return nil, err
	}

	var labels []string
	if err := json.Unmarshal(data, &labels); err != nil {
		return nil, err
	}
	if len(labels) == 0 {
		return nil, fmt.Errorf("%s has no labels", path)
	}
	return labels, nil
}

func resolveSharedLibraryPath(modelDir string) string {
	if env := strings.TrimSpace(os.Getenv("ONNXRUNTIME_SHARED_LIBRARY_PATH")); env != "" {
		return env
	}

	names := []string{
		"libonnxruntime.so",
		"onnxruntime.so",
		"libonnxruntime.dylib",
		"onnxruntime.dll",
	}
	dirs := []string{
		modelDir,
		filepath.Join(modelDir, "lib"),
		".",
		"/usr/local/lib",
		"/usr/lib",
		"/opt/homebrew/lib",
	}

	for _, dir := range dirs {
		for _, name := range names {
			candidate := filepath.Join(dir, name)
			if _, err := os.Stat(candidate); err == nil {
				return candidate
			}
		}
	}
	return ""
}

var cocoLabels = []string{
	"person", "bicycle", "car", "motorcycle", "airplane", "bus", "train", "truck", "boat",
	"traffic light", "fire hydrant", "stop sign", "parking meter", "bench", "bird", "cat", "dog",
	"horse", "sheep", "cow", "elephant", "bear", "zebra", "giraffe", "backpack", "umbrella",
	"handbag", "tie", "suitcase", "frisbee", "skis", "snowboard", "sports ball", "kite",
	"baseball bat", "baseball glove", "skateboard", "surfboard", "tennis racket", "bottle",
	"wine glass", "cup", "fork", "knife", "spoon", "bowl", "banana", "apple", "sandwich", "orange",
	"broccoli", "carrot", "hot dog", "pizza", "donut", "cake", "chair", "couch", "potted plant",
	"bed", "dining table", "toilet", "tv", "laptop", "mouse", "remote", "keyboard", "cell phone",
	"microwave", "oven", "toaster", "sink", "refrigerator", "book", "clock", "vase", "scissors",
	"teddy bear", "hair drier", "toothbrush",
}
