package proctor

import "errors"

var (
	// ErrDecode marks malformed frame bytes. It belongs to the frame decoder
	// and is declared here so callers can tell it apart from analysis failures.
	ErrDecode = errors.New("proctor: frame decode failed")

	// ErrDetection is returned when the face or landmark backend fails. It is
	// never converted into an empty observation.
	ErrDetection = errors.New("proctor: detection failed")

	// ErrAnalysisTimeout is returned when the caller's deadline expires before
	// a report is complete. No partial report accompanies it.
	ErrAnalysisTimeout = errors.New("proctor: analysis timed out")

	// ErrModelUnavailable is what an object model returns when its backend
	// cannot run. The object detector degrades to an empty observation.
	ErrModelUnavailable = errors.New("proctor: model backend unavailable")

	ErrInvalidFrame  = errors.New("proctor: invalid frame")
	ErrInvalidConfig = errors.New("proctor: invalid config")
	ErrEngineClosed  = errors.New("proctor: engine closed")
)
