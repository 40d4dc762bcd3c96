package config

import (
	"ProctorGuard/pkg/gemini"
	"ProctorGuard/pkg/onnx"
	"ProctorGuard/pkg/proctor"
	websocketPkg "ProctorGuard/pkg/websocket"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	FaceBackendRemote = "remote"
	FaceBackendStatic = "static"

	ObjectBackendONNX   = "onnx"
	ObjectBackendGemini = "gemini"
	ObjectBackendStatic = "static"
	ObjectBackendNone   = "none"
)

type ProctorConfig struct {
	Engine         proctor.Config
	FaceBackend    string
	ObjectBackend  string
	ONNXModelDir   string
	FaceService    websocketPkg.Config
	EvidenceUpload bool
	LiveStatusTTL  time.Duration

	// AlertRecipients receive a mail for every high severity frame. Empty
	// disables alerting.
	AlertRecipients []string
}

// LoadProctorConfig reads the engine settings from the environment. Unset
// variables keep their defaults; malformed ones are an error.
func LoadProctorConfig() (ProctorConfig, error) {
	cfg := ProctorConfig{
		Engine:        proctor.DefaultConfig(),
		FaceBackend:   strings.ToLower(envOr("FACE_MODEL_BACKEND", FaceBackendRemote)),
		ObjectBackend: strings.ToLower(envOr("OBJECT_MODEL_BACKEND", ObjectBackendONNX)),
		ONNXModelDir:  envOr("ONNX_MODEL_DIR", "./models"),
		FaceService:   websocketPkg.ConfigFromEnv(),
		LiveStatusTTL: 30 * time.Second,
	}

	var errs []error
	collect := func(err error) {
		if err != nil {
			errs = append(errs, err)
		}
	}

	collect(envFloat("FACE_CONFIDENCE_FLOOR", &cfg.Engine.FaceConfidenceFloor))
	collect(envFloat("OBJECT_CONFIDENCE_FLOOR", &cfg.Engine.ObjectConfidenceFloor))
	collect(envFloat("GAZE_DEVIATION_THRESHOLD", &cfg.Engine.GazeDeviationThreshold))
	collect(envDuration("ANALYSIS_TIMEOUT", &cfg.Engine.AnalysisTimeout))
	collect(envDuration("LIVE_STATUS_TTL", &cfg.LiveStatusTTL))
	collect(envBool("EVIDENCE_UPLOAD_ENABLED", &cfg.EvidenceUpload))

	for _, addr := range strings.Split(os.Getenv("ALERT_EMAILS"), ",") {
		if addr = strings.TrimSpace(addr); addr != "" {
			cfg.AlertRecipients = append(cfg.AlertRecipients, addr)
		}
	}

	if path := os.Getenv("CATALOGUE_PATH"); path != "" {
		catalogue, err := proctor.LoadCatalogueFile(path)
		if err != nil {
			collect(fmt.Errorf("CATALOGUE_PATH: %w", err))
		} else {
			cfg.Engine.Catalogue = catalogue
		}
	}

	switch cfg.FaceBackend {
	case FaceBackendRemote, FaceBackendStatic:
	default:
		collect(fmt.Errorf("%w: unknown FACE_MODEL_BACKEND %q", proctor.ErrInvalidConfig, cfg.FaceBackend))
	}

	switch cfg.ObjectBackend {
	case ObjectBackendONNX, ObjectBackendGemini, ObjectBackendStatic, ObjectBackendNone:
	default:
		collect(fmt.Errorf("%w: unknown OBJECT_MODEL_BACKEND %q", proctor.ErrInvalidConfig, cfg.ObjectBackend))
	}

	collect(cfg.Engine.Validate())

	if len(errs) > 0 {
		return ProctorConfig{}, errors.Join(errs...)
	}
	return cfg, nil
}

// NewProctorEngine builds the configured model backends and hands them to the
// engine, which owns them from then on. An object backend that cannot start
// leaves the engine running with degraded object reports.
func NewProctorEngine(cfg ProctorConfig, log *logrus.Logger) (*proctor.Engine, error) {
	var faces proctor.FaceModel
	var landmarks proctor.LandmarkModel

	switch cfg.FaceBackend {
	case FaceBackendStatic:
		faces = proctor.StaticFaceModel{Faces: []proctor.DetectedFace{{Confidence: 1}}}
	default:
		client, err := websocketPkg.NewFaceClient(cfg.FaceService, log)
		if err != nil {
			return nil, fmt.Errorf("face service client: %w", err)
		}
		faces, landmarks = client, client
	}

	var engine *proctor.Engine
	labels := func() []string {
		if engine == nil {
			return cfg.Engine.Catalogue.Labels()
		}
		return engine.Catalogue().Labels()
	}

	objects, err := newObjectModel(cfg, labels)
	if err != nil {
		log.WithFields(logrus.Fields{
			"backend": cfg.ObjectBackend,
			"error":   err.Error(),
		}).Warn("Object model unavailable, object analysis will be degraded")
		if !errors.Is(err, proctor.ErrModelUnavailable) {
			err = fmt.Errorf("%w: %v", proctor.ErrModelUnavailable, err)
		}
		objects = proctor.StaticObjectModel{Err: err}
	}

	engine, err = proctor.NewEngine(cfg.Engine, faces, landmarks, objects, proctor.WithLogger(log))
	if err != nil {
		if c, ok := faces.(interface{ Close() error }); ok {
			_ = c.Close()
		}
		return nil, err
	}

	log.WithFields(logrus.Fields{
		"face_backend":   cfg.FaceBackend,
		"object_backend": cfg.ObjectBackend,
		"catalogue":      engine.Catalogue().Len(),
	}).Info("Proctoring engine ready")

	return engine, nil
}

func newObjectModel(cfg ProctorConfig, labels func() []string) (proctor.ObjectModel, error) {
	switch cfg.ObjectBackend {
	case ObjectBackendONNX:
		detector, err := onnx.LoadYOLO(cfg.ONNXModelDir, onnx.Options{})
		if err != nil {
			return nil, err
		}
		return detector, nil
	case ObjectBackendGemini:
		client, err := gemini.NewGeminiClient()
		if err != nil {
			return nil, err
		}
		return gemini.NewObjectModel(client, labels), nil
	case ObjectBackendStatic:
		return proctor.StaticObjectModel{}, nil
	default:
		return proctor.NoopObjectModel{}, nil
	}
}

func envOr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func envFloat(key string, dst *float64) error {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fmt.Errorf("%w: %s=%q is not a number", proctor.ErrInvalidConfig, key, v)
	}
	*dst = f
	return nil
}

func envDuration(key string, dst *time.Duration) error {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("%w: %s=%q is not a duration", proctor.ErrInvalidConfig, key, v)
	}
	*dst = d
	return nil
}

func envBool(key string, dst *bool) error {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("%w: %s=%q is not a boolean", proctor.ErrInvalidConfig, key, v)
	}
	*dst = b
	return nil
}
