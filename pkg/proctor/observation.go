package proctor

// Point is a landmark position normalised to [0,1] of the frame width and height.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type Landmarks struct {
	LeftEye  Point `json:"left_eye"`
	RightEye Point `json:"right_eye"`
	Nose     Point `json:"nose"`
}

type Box struct {
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
	X2 float64 `json:"x2"`
	Y2 float64 `json:"y2"`
}

// DetectedFace is a raw face model output before the confidence floor applies.
type DetectedFace struct {
	Confidence float64 `json:"confidence"`
	Box        Box     `json:"box"`
}

// ObjectDetection is a raw object model output before catalogue filtering.
type ObjectDetection struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
	Box        Box     `json:"box"`
}

type Face struct {
	Confidence float64    `json:"confidence"`
	Box        Box        `json:"box"`
	Landmarks  *Landmarks `json:"landmarks,omitempty"`
}

type FaceObservation struct {
	FaceCount int    `json:"face_count"`
	Faces     []Face `json:"faces"`
}

type GazeObservation struct {
	FaceIndex   int     `json:"face_index"`
	Deviation   float64 `json:"deviation"`
	LookingAway bool    `json:"looking_away"`
}

type ObjectMatch struct {
	Label      string   `json:"object"`
	Confidence float64  `json:"confidence"`
	Severity   Severity `json:"severity"`
}

type ObjectObservation struct {
	Matches       []ObjectMatch `json:"suspicious_objects"`
	DetectedItems []string      `json:"detected_items"`
	Severity      Severity      `json:"severity"`
}

func (o ObjectObservation) Empty() bool {
	return len(o.DetectedItems) == 0
}
