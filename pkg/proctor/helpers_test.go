package proctor

import (
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

var testCapturedAt = time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)

func newTestFrame(t *testing.T) Frame {
	t.Helper()
	frame, err := NewFrame(2, 2, ChannelOrderRGB, make([]byte, 2*2*3), testCapturedAt)
	if err != nil {
		t.Fatalf("NewFrame failed: %v", err)
	}
	return frame
}

func newQuietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func facesWithConfidence(values ...float64) []DetectedFace {
	out := make([]DetectedFace, len(values))
	for i, v := range values {
		out[i] = DetectedFace{Confidence: v}
	}
	return out
}

// landmarksWithDeviation places the eyes symmetrically around 0.5 and the
// nose offset by deviation, so |eye_center_x - nose_x| == deviation.
func landmarksWithDeviation(deviation float64) *Landmarks {
	return &Landmarks{
		LeftEye:  Point{X: 0.25, Y: 0.4},
		RightEye: Point{X: 0.75, Y: 0.4},
		Nose:     Point{X: 0.5 + deviation, Y: 0.6},
	}
}

func countEvents(events []ViolationEvent, typ ViolationType) int {
	n := 0
	for _, e := range events {
		if e.Type == typ {
			n++
		}
	}
	return n
}
