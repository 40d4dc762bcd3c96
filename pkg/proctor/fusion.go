package proctor

import (
	"fmt"
	"strings"
	"time"
)

type ViolationType string

const (
	ViolationNoFace           ViolationType = "no_face"
	ViolationMultipleFaces    ViolationType = "multiple_faces"
	ViolationLookingAway      ViolationType = "looking_away"
	ViolationSuspiciousObject ViolationType = "suspicious_object"

	// ViolationTabSwitch is reported by exam clients directly; fusion never emits it.
	ViolationTabSwitch ViolationType = "tab_switch"
)

var ViolationTypes = []ViolationType{
	ViolationNoFace,
	ViolationMultipleFaces,
	ViolationLookingAway,
	ViolationSuspiciousObject,
	ViolationTabSwitch,
}

func (v ViolationType) Valid() bool {
	for _, t := range ViolationTypes {
		if t == v {
			return true
		}
	}
	return false
}

const (
	MessageNoFace           = "No face detected in frame"
	MessageMultipleFaces    = "Multiple faces detected: %d"
	MessageLookingAway      = "Student appears to be looking away"
	MessageSuspiciousObject = "Suspicious objects detected: %s"
)

type ViolationEvent struct {
	Type          ViolationType `json:"type"`
	Severity      Severity      `json:"severity"`
	Message       string        `json:"message"`
	FaceCount     *int          `json:"face_count,omitempty"`
	DetectedItems []string      `json:"detected_items,omitempty"`
	Timestamp     time.Time     `json:"timestamp"`
}

// Fuse turns one frame's observations into violation events. It is a pure
// function: the same inputs always produce the same events, in the fixed
// order face count, gaze, objects.
func Fuse(face FaceObservation, gaze []GazeObservation, objects ObjectObservation, at time.Time) []ViolationEvent {
	events := make([]ViolationEvent, 0, 3)

	switch {
	case face.FaceCount == 0:
		count := 0
		events = append(events, ViolationEvent{
			Type:      ViolationNoFace,
			Severity:  SeverityHigh,
			Message:   MessageNoFace,
			FaceCount: &count,
			Timestamp: at,
		})
	case face.FaceCount > 1:
		count := face.FaceCount
		events = append(events, ViolationEvent{
			Type:      ViolationMultipleFaces,
			Severity:  SeverityHigh,
			Message:   fmt.Sprintf(MessageMultipleFaces, count),
			FaceCount: &count,
			Timestamp: at,
		})
	}

	if face.FaceCount >= 1 && AnyLookingAway(gaze) {
		events = append(events, ViolationEvent{
			Type:      ViolationLookingAway,
			Severity:  SeverityMedium,
			Message:   MessageLookingAway,
			Timestamp: at,
		})
	}

	if !objects.Empty() {
		items := append([]string(nil), objects.DetectedItems...)
		events = append(events, ViolationEvent{
			Type:          ViolationSuspiciousObject,
			Severity:      objects.Severity,
			Message:       fmt.Sprintf(MessageSuspiciousObject, strings.Join(items, ", ")),
			DetectedItems: items,
			Timestamp:     at,
		})
	}

	return events
}
