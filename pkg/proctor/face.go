package proctor

import (
	"context"
	"fmt"
)

type FaceSignalDetector struct {
	faces     FaceModel
	landmarks LandmarkModel
	floor     float64
}

// NewFaceSignalDetector builds a detector. landmarks may be nil, in which case
// every counted face is reported without landmarks.
func NewFaceSignalDetector(faces FaceModel, landmarks LandmarkModel, floor float64) *FaceSignalDetector {
	return &FaceSignalDetector{
		faces:     faces,
		landmarks: landmarks,
		floor:     floor,
	}
}

// Detect counts faces at or above the confidence floor and, when at least one
// is present, asks the landmark model about each of them. Backend failures
// come back wrapped in ErrDetection.
func (d *FaceSignalDetector) Detect(ctx context.Context, frame Frame) (FaceObservation, error) {
	raw, err := d.faces.DetectFaces(ctx, frame)
	if err != nil {
		return FaceObservation{}, fmt.Errorf("%w: face model: %w", ErrDetection, err)
	}

	counted := make([]DetectedFace, 0, len(raw))
	for _, f := range raw {
		if f.Confidence >= d.floor {
			counted = append(counted, f)
		}
	}

	obs := FaceObservation{
		FaceCount: len(counted),
		Faces:     make([]Face, len(counted)),
	}
	for i, f := range counted {
		obs.Faces[i] = Face{Confidence: f.Confidence, Box: f.Box}
	}

	if len(counted) == 0 || d.landmarks == nil {
		return obs, nil
	}

	marks, err := d.landmarks.DetectLandmarks(ctx, frame, counted)
	if err != nil {
		return FaceObservation{}, fmt.Errorf("%w: landmark model: %w", ErrDetection, err)
	}

	for i := range obs.Faces {
		if i < len(marks) && marks[i] != nil {
			lm := *marks[i]
			obs.Faces[i].Landmarks = &lm
		}
	}

	return obs, nil
}
