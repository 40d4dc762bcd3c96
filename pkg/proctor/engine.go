package proctor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"reflect"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
)

// Engine runs the per-frame pipeline: faces, gaze, objects, fusion. It holds
// no state between frames and is safe for concurrent use as long as the
// models it was given are.
type Engine struct {
	cfg       Config
	faces     *FaceSignalDetector
	gaze      GazeEstimator
	objects   *ObjectSignalDetector
	catalogue *CatalogueStore
	log       *logrus.Logger
	now       func() time.Time

	closers   []io.Closer
	closed    atomic.Bool
	closeOnce sync.Once
}

type EngineOption func(*Engine)

func WithLogger(log *logrus.Logger) EngineOption {
	return func(e *Engine) {
		e.log = log
	}
}

// WithClock sets the timestamp source for frames that carry no capture time.
func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) {
		e.now = now
	}
}

// NewEngine takes ownership of the models: any of them implementing io.Closer
// is closed by Engine.Close. landmarks and objects may be nil.
func NewEngine(cfg Config, faces FaceModel, landmarks LandmarkModel, objects ObjectModel, opts ...EngineOption) (*Engine, error) {
	if faces == nil {
		return nil, fmt.Errorf("%w: face model is required", ErrInvalidConfig)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Catalogue.Len() == 0 {
		cfg.Catalogue = DefaultCatalogue()
	}

	e := &Engine{
		cfg:       cfg,
		gaze:      NewGazeEstimator(cfg.GazeDeviationThreshold),
		catalogue: NewCatalogueStore(cfg.Catalogue),
		log:       logrus.StandardLogger(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}

	if objects == nil {
		objects = NoopObjectModel{}
	}
	e.faces = NewFaceSignalDetector(faces, landmarks, cfg.FaceConfidenceFloor)
	e.objects = NewObjectSignalDetector(objects, e.catalogue, cfg.ObjectConfidenceFloor, e.log)

	for _, m := range []any{faces, landmarks, objects} {
		if c, ok := m.(io.Closer); ok {
			e.addCloser(c)
		}
	}

	return e, nil
}

func (e *Engine) addCloser(c io.Closer) {
	canCompare := reflect.TypeOf(c).Comparable()
	for _, existing := range e.closers {
		if canCompare && reflect.TypeOf(existing) == reflect.TypeOf(c) && existing == c {
			return
		}
	}
	e.closers = append(e.closers, c)
}

func (e *Engine) Config() Config {
	cfg := e.cfg
	cfg.Catalogue = e.catalogue.Load()
	return cfg
}

// Analyze produces the report for one frame. On ErrDetection or
// ErrAnalysisTimeout no report is returned and nothing should be recorded.
func (e *Engine) Analyze(ctx context.Context, frame Frame) (*Report, error) {
	if e.closed.Load() {
		return nil, ErrEngineClosed
	}
	if err := frame.Validate(); err != nil {
		return nil, err
	}

	if e.cfg.AnalysisTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.AnalysisTimeout)
		defer cancel()
	}

	start := time.Now()

	if err := expired(ctx); err != nil {
		return nil, err
	}

	faceObs, err := e.faces.Detect(ctx, frame)
	if err != nil {
		if tErr := expired(ctx); tErr != nil {
			return nil, tErr
		}
		e.log.WithFields(logrus.Fields{
			"error": err.Error(),
		}).Error("Face detection failed, dropping frame")
		return nil, err
	}
	if err := expired(ctx); err != nil {
		return nil, err
	}

	gaze := e.gaze.EstimateAll(faceObs)

	objObs, ok := e.objects.Detect(ctx, frame)
	if err := expired(ctx); err != nil {
		return nil, err
	}

	at := frame.CapturedAt
	if at.IsZero() {
		at = e.now()
	}

	report := BuildReport(faceObs, gaze, objObs, !ok, at)

	e.log.WithFields(logrus.Fields{
		"face_count":      faceObs.FaceCount,
		"gaze_votes":      len(gaze),
		"objects":         len(objObs.DetectedItems),
		"violations":      len(report.Violations),
		"object_degraded": !ok,
		"latency_ms":      time.Since(start).Milliseconds(),
	}).Debug("Frame analyzed")

	return report, nil
}

func expired(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrAnalysisTimeout, err)
	}
	return nil
}

func (e *Engine) Catalogue() Catalogue {
	return e.catalogue.Load()
}

// Reconfigure swaps the catalogue. Analyses already running finish with the
// catalogue they started with.
func (e *Engine) Reconfigure(c Catalogue) error {
	if c.Len() == 0 {
		return fmt.Errorf("%w: catalogue is empty", ErrInvalidConfig)
	}
	previous := e.catalogue.Replace(c)

	e.log.WithFields(logrus.Fields{
		"previous_labels": previous.Len(),
		"labels":          c.Len(),
	}).Info("Object catalogue reconfigured")

	return nil
}

// Close releases every model the engine owns. It is safe to call twice.
func (e *Engine) Close() error {
	var errs []error
	e.closeOnce.Do(func() {
		e.closed.Store(true)
		for _, c := range e.closers {
			if err := c.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	})
	return errors.Join(errs...)
}
