package proctor

import "context"

// StaticFaceModel returns the same faces for every frame.
type StaticFaceModel struct {
	Faces []DetectedFace
	Err   error
}

func (m StaticFaceModel) DetectFaces(ctx context.Context, frame Frame) ([]DetectedFace, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	return append([]DetectedFace(nil), m.Faces...), nil
}

// StaticLandmarkModel answers the i-th face with Landmarks[i]; faces past the
// end of the slice get no landmarks.
type StaticLandmarkModel struct {
	Landmarks []*Landmarks
	Err       error
}

func (m StaticLandmarkModel) DetectLandmarks(ctx context.Context, frame Frame, faces []DetectedFace) ([]*Landmarks, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	out := make([]*Landmarks, len(faces))
	for i := range faces {
		if i < len(m.Landmarks) {
			out[i] = m.Landmarks[i]
		}
	}
	return out, nil
}

// StaticObjectModel returns the same detections for every frame.
type StaticObjectModel struct {
	Detections []ObjectDetection
	Err        error
}

func (m StaticObjectModel) DetectObjects(ctx context.Context, frame Frame) ([]ObjectDetection, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	return append([]ObjectDetection(nil), m.Detections...), nil
}

// NoopObjectModel is the object backend used when none is configured.
type NoopObjectModel struct{}

func (NoopObjectModel) DetectObjects(ctx context.Context, frame Frame) ([]ObjectDetection, error) {
	return []ObjectDetection{}, nil
}
