package proctor

import "context"

// FaceModel finds faces in a frame. Implementations report backend failures
// as errors; an empty slice means the model ran and saw nobody.
type FaceModel interface {
	DetectFaces(ctx context.Context, frame Frame) ([]DetectedFace, error)
}

// LandmarkModel returns one entry per face, in the same order. A nil entry
// means the face produced no landmarks.
type LandmarkModel interface {
	DetectLandmarks(ctx context.Context, frame Frame, faces []DetectedFace) ([]*Landmarks, error)
}

// ObjectModel lists every object it recognises in a frame. Return an error
// wrapping ErrModelUnavailable when the backend cannot run.
type ObjectModel interface {
	DetectObjects(ctx context.Context, frame Frame) ([]ObjectDetection, error)
}
