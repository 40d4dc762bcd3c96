package proctor

import "math"

const DefaultGazeDeviationThreshold = 0.05

type GazeEstimator struct {
	threshold float64
}

func NewGazeEstimator(threshold float64) GazeEstimator {
	return GazeEstimator{threshold: threshold}
}

// Estimate measures how far the nose tip sits from the midpoint between the
// eyes, in normalised frame widths.
func (g GazeEstimator) Estimate(lm Landmarks) GazeObservation {
	eyeCenterX := (lm.LeftEye.X + lm.RightEye.X) / 2
	deviation := math.Abs(eyeCenterX - lm.Nose.X)

	return GazeObservation{
		Deviation:   deviation,
		LookingAway: deviation > g.threshold,
	}
}

// EstimateAll returns one observation per face that has landmarks. Faces
// without landmarks are left out entirely.
func (g GazeEstimator) EstimateAll(obs FaceObservation) []GazeObservation {
	out := make([]GazeObservation, 0, len(obs.Faces))
	for i, face := range obs.Faces {
		if face.Landmarks == nil {
			continue
		}
		gaze := g.Estimate(*face.Landmarks)
		gaze.FaceIndex = i
		out = append(out, gaze)
	}
	return out
}

func AnyLookingAway(gaze []GazeObservation) bool {
	for _, g := range gaze {
		if g.LookingAway {
			return true
		}
	}
	return false
}
