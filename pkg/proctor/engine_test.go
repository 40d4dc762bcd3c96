package proctor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type blockingFaceModel struct{}

func (blockingFaceModel) DetectFaces(ctx context.Context, frame Frame) ([]DetectedFace, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

type closingModel struct {
	StaticFaceModel
	mu     sync.Mutex
	closed int
	err    error
}

func (m *closingModel) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed++
	return m.err
}

func TestNewEngine_RequiresFaceModel(t *testing.T) {
	if _, err := NewEngine(DefaultConfig(), nil, nil, nil); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestNewEngine_RejectsBadConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.FaceConfidenceFloor = 1.5
	if _, err := NewEngine(cfg, StaticFaceModel{}, nil, nil); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestNewEngine_EmptyCatalogueFallsBackToDefault(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Catalogue = Catalogue{}
	engine, err := NewEngine(cfg, StaticFaceModel{}, nil, nil, WithLogger(newQuietLogger()))
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}
	if engine.Catalogue().Len() != DefaultCatalogue().Len() {
		t.Fatalf("expected default catalogue")
	}
}

func TestEngine_DetectionErrorIsSurfaced(t *testing.T) {
	engine, err := NewEngine(DefaultConfig(), StaticFaceModel{Err: errors.New("gpu lost")}, nil, nil, WithLogger(newQuietLogger()))
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}

	report, err := engine.Analyze(context.Background(), newTestFrame(t))
	if !errors.Is(err, ErrDetection) {
		t.Fatalf("expected ErrDetection, got %v", err)
	}
	if report != nil {
		t.Fatalf("failed analysis must not return a report")
	}
}

func TestEngine_TimeoutDropsFrame(t *testing.T) {
	cfg := DefaultConfig()
	cfg.AnalysisTimeout = 20 * time.Millisecond
	engine, err := NewEngine(cfg, blockingFaceModel{}, nil, nil, WithLogger(newQuietLogger()))
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}

	report, err := engine.Analyze(context.Background(), newTestFrame(t))
	if !errors.Is(err, ErrAnalysisTimeout) {
		t.Fatalf("expected ErrAnalysisTimeout, got %v", err)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected the deadline to be wrapped, got %v", err)
	}
	if errors.Is(err, ErrDetection) {
		t.Fatalf("timeout must be distinguishable from a detection failure")
	}
	if report != nil {
		t.Fatalf("timed out analysis must not return a report")
	}
}

func TestEngine_CancelledContext(t *testing.T) {
	engine, err := NewEngine(DefaultConfig(), StaticFaceModel{}, nil, nil, WithLogger(newQuietLogger()))
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := engine.Analyze(ctx, newTestFrame(t)); !errors.Is(err, ErrAnalysisTimeout) {
		t.Fatalf("expected ErrAnalysisTimeout, got %v", err)
	}
}

func TestEngine_ObjectFailureDegrades(t *testing.T) {
	engine, err := NewEngine(DefaultConfig(),
		StaticFaceModel{Faces: facesWithConfidence(0.9)},
		nil,
		StaticObjectModel{Err: ErrModelUnavailable},
		WithLogger(newQuietLogger()),
	)
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}

	report, err := engine.Analyze(context.Background(), newTestFrame(t))
	if err != nil {
		t.Fatalf("object failure must not fail the frame: %v", err)
	}
	if !report.ObjectAnalysis.Degraded {
		t.Fatalf("expected degraded object analysis")
	}
	if report.ObjectAnalysis.Severity != SeverityNone || len(report.Violations) != 0 {
		t.Fatalf("unexpected report %+v", report)
	}
}

func TestEngine_InvalidFrame(t *testing.T) {
	engine, err := NewEngine(DefaultConfig(), StaticFaceModel{}, nil, nil, WithLogger(newQuietLogger()))
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}
	bad := Frame{Width: 4, Height: 4, Order: ChannelOrderRGB, Pix: make([]byte, 3)}
	if _, err := engine.Analyze(context.Background(), bad); !errors.Is(err, ErrInvalidFrame) {
		t.Fatalf("expected ErrInvalidFrame, got %v", err)
	}
}

func TestEngine_UsesClockWhenFrameHasNoTimestamp(t *testing.T) {
	fixed := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	engine, err := NewEngine(DefaultConfig(), StaticFaceModel{}, nil, nil,
		WithLogger(newQuietLogger()),
		WithClock(func() time.Time { return fixed }),
	)
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}

	frame := newTestFrame(t)
	frame.CapturedAt = time.Time{}
	report, err := engine.Analyze(context.Background(), frame)
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if !report.AnalyzedAt.Equal(fixed) || !report.Violations[0].Timestamp.Equal(fixed) {
		t.Fatalf("expected clock timestamp, got %v", report.AnalyzedAt)
	}
}

func TestEngine_Reconfigure(t *testing.T) {
	engine, err := NewEngine(DefaultConfig(),
		StaticFaceModel{Faces: facesWithConfidence(0.9)},
		nil,
		StaticObjectModel{Detections: []ObjectDetection{{Label: "calculator", Confidence: 0.9}}},
		WithLogger(newQuietLogger()),
	)
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}

	report, _ := engine.Analyze(context.Background(), newTestFrame(t))
	if len(report.Violations) != 0 {
		t.Fatalf("calculator is not catalogued yet")
	}

	next, _ := NewCatalogue(map[string]CatalogueEntry{"calculator": {Severity: SeverityLow}})
	if err := engine.Reconfigure(next); err != nil {
		t.Fatalf("Reconfigure failed: %v", err)
	}

	report, _ = engine.Analyze(context.Background(), newTestFrame(t))
	if countEvents(report.Violations, ViolationSuspiciousObject) != 1 {
		t.Fatalf("expected calculator to be flagged after reconfigure, got %+v", report.Violations)
	}

	if err := engine.Reconfigure(Catalogue{}); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected empty catalogue to be rejected, got %v", err)
	}
}

func TestEngine_CloseReleasesModelsOnce(t *testing.T) {
	model := &closingModel{}
	engine, err := NewEngine(DefaultConfig(), model, nil, nil, WithLogger(newQuietLogger()))
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}

	if err := engine.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := engine.Close(); err != nil {
		t.Fatalf("second Close failed: %v", err)
	}
	if model.closed != 1 {
		t.Fatalf("expected model closed once, got %d", model.closed)
	}

	if _, err := engine.Analyze(context.Background(), newTestFrame(t)); !errors.Is(err, ErrEngineClosed) {
		t.Fatalf("expected ErrEngineClosed, got %v", err)
	}
}

func TestEngine_ConcurrentAnalyze(t *testing.T) {
	engine, err := NewEngine(DefaultConfig(),
		StaticFaceModel{Faces: facesWithConfidence(0.9, 0.9)},
		nil,
		StaticObjectModel{Detections: []ObjectDetection{{Label: "laptop", Confidence: 0.9}}},
		WithLogger(newQuietLogger()),
	)
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}

	frame := newTestFrame(t)
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			report, err := engine.Analyze(context.Background(), frame)
			if err != nil {
				t.Errorf("Analyze failed: %v", err)
				return
			}
			if len(report.Violations) != 2 {
				t.Errorf("expected two events, got %d", len(report.Violations))
			}
		}()
	}
	wg.Wait()
}
