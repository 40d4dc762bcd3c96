package proctoring

import "ProctorGuard/pkg/response"

var (
	ErrInvalidImage          = response.NewError(400, "image could not be decoded")
	ErrInvalidFrame          = response.NewError(400, "frame is empty or malformed")
	ErrMissingImage          = response.NewError(400, "an image file or image_base64 is required")
	ErrInvalidViolationType  = response.NewError(400, "unknown violation type")
	ErrInvalidSeverity       = response.NewError(400, "unknown severity")
	ErrInvalidCatalogue      = response.NewError(400, "invalid object catalogue")
	ErrLiveStatusNotFound    = response.NewError(404, "no live status for exam")
	ErrAnalysisTimeout       = response.NewError(408, "frame analysis timed out")
	ErrCreateViolation       = response.NewError(500, "failed to record violation")
	ErrGetViolations         = response.NewError(500, "failed to load violations")
	ErrDetectionFailed       = response.NewError(502, "face detection backend failed")
	ErrEngineUnavailable     = response.NewError(503, "proctoring engine is shut down")
	ErrLiveStatusUnavailable = response.NewError(503, "live status cache unavailable")
)
