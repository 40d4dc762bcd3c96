package proctor

import "time"

type FaceAnalysis struct {
	FaceCount     int               `json:"face_count"`
	MultipleFaces bool              `json:"multiple_faces"`
	NoFace        bool              `json:"no_face"`
	LookingAway   bool              `json:"looking_away"`
	Gaze          []GazeObservation `json:"gaze,omitempty"`
}

type ObjectAnalysis struct {
	SuspiciousObjects []ObjectMatch `json:"suspicious_objects"`
	Severity          Severity      `json:"severity"`
	Degraded          bool          `json:"degraded,omitempty"`
}

// Report is the per-frame verdict handed back to callers.
type Report struct {
	FaceAnalysis   FaceAnalysis     `json:"face_analysis"`
	ObjectAnalysis ObjectAnalysis   `json:"object_analysis"`
	Violations     []ViolationEvent `json:"violations"`
	AnalyzedAt     time.Time        `json:"analyzed_at"`
}

func BuildReport(face FaceObservation, gaze []GazeObservation, objects ObjectObservation, degraded bool, at time.Time) *Report {
	lookingAway := face.FaceCount >= 1 && AnyLookingAway(gaze)

	return &Report{
		FaceAnalysis: FaceAnalysis{
			FaceCount:     face.FaceCount,
			MultipleFaces: face.FaceCount > 1,
			NoFace:        face.FaceCount == 0,
			LookingAway:   lookingAway,
			Gaze:          gaze,
		},
		ObjectAnalysis: ObjectAnalysis{
			SuspiciousObjects: objects.Matches,
			Severity:          objects.Severity,
			Degraded:          degraded,
		},
		Violations: Fuse(face, gaze, objects, at),
		AnalyzedAt: at,
	}
}

func (r *Report) HasViolations() bool {
	return r != nil && len(r.Violations) > 0
}

// HighestSeverity is the most severe event in the report, or SeverityNone.
func (r *Report) HighestSeverity() Severity {
	if r == nil {
		return SeverityNone
	}
	highest := SeverityNone
	for _, v := range r.Violations {
		highest = MaxSeverity(highest, v.Severity)
	}
	return highest
}
