package proctor

import (
	"fmt"
	"time"
)

const (
	DefaultFaceConfidenceFloor   = 0.5
	DefaultObjectConfidenceFloor = 0.5
	DefaultAnalysisTimeout       = 5 * time.Second
)

type Config struct {
	FaceConfidenceFloor    float64
	ObjectConfidenceFloor  float64
	GazeDeviationThreshold float64
	Catalogue              Catalogue
	AnalysisTimeout        time.Duration
}

func DefaultConfig() Config {
	return Config{
		FaceConfidenceFloor:    DefaultFaceConfidenceFloor,
		ObjectConfidenceFloor:  DefaultObjectConfidenceFloor,
		GazeDeviationThreshold: DefaultGazeDeviationThreshold,
		Catalogue:              DefaultCatalogue(),
		AnalysisTimeout:        DefaultAnalysisTimeout,
	}
}

func (c Config) Validate() error {
	if c.FaceConfidenceFloor < 0 || c.FaceConfidenceFloor > 1 {
		return fmt.Errorf("%w: face_confidence_floor %.2f outside [0,1]", ErrInvalidConfig, c.FaceConfidenceFloor)
	}
	if c.ObjectConfidenceFloor < 0 || c.ObjectConfidenceFloor > 1 {
		return fmt.Errorf("%w: object_confidence_floor %.2f outside [0,1]", ErrInvalidConfig, c.ObjectConfidenceFloor)
	}
	if c.GazeDeviationThreshold < 0 || c.GazeDeviationThreshold > 1 {
		return fmt.Errorf("%w: gaze_deviation_threshold %.2f outside [0,1]", ErrInvalidConfig, c.GazeDeviationThreshold)
	}
	if c.AnalysisTimeout < 0 {
		return fmt.Errorf("%w: negative analysis timeout", ErrInvalidConfig)
	}
	return nil
}
