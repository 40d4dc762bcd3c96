package proctor

import (
	"context"
	"encoding/json"
	"reflect"
	"testing"
)

func analyzeWith(t *testing.T, faces []DetectedFace, landmarks []*Landmarks, detections []ObjectDetection) *Report {
	t.Helper()
	engine, err := NewEngine(DefaultConfig(),
		StaticFaceModel{Faces: faces},
		StaticLandmarkModel{Landmarks: landmarks},
		StaticObjectModel{Detections: detections},
		WithLogger(newQuietLogger()),
	)
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}
	report, err := engine.Analyze(context.Background(), newTestFrame(t))
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	return report
}

func TestAnalyze_NoFaceIsHigh(t *testing.T) {
	report := analyzeWith(t, nil, nil, nil)

	if !report.FaceAnalysis.NoFace || report.FaceAnalysis.FaceCount != 0 {
		t.Fatalf("expected no_face analysis, got %+v", report.FaceAnalysis)
	}
	if len(report.Violations) != 1 {
		t.Fatalf("expected exactly one event, got %+v", report.Violations)
	}
	v := report.Violations[0]
	if v.Type != ViolationNoFace || v.Severity != SeverityHigh || v.Message != "No face detected in frame" {
		t.Fatalf("unexpected event %+v", v)
	}
	if v.FaceCount == nil || *v.FaceCount != 0 {
		t.Fatalf("expected face_count 0 on no_face event")
	}
}

func TestAnalyze_MultipleFacesSuppressesGaze(t *testing.T) {
	report := analyzeWith(t,
		facesWithConfidence(0.9, 0.8),
		[]*Landmarks{landmarksWithDeviation(0), landmarksWithDeviation(0.01)},
		nil,
	)

	if !report.FaceAnalysis.MultipleFaces || report.FaceAnalysis.FaceCount != 2 {
		t.Fatalf("expected two faces, got %+v", report.FaceAnalysis)
	}
	if countEvents(report.Violations, ViolationMultipleFaces) != 1 {
		t.Fatalf("expected one multiple_faces event, got %+v", report.Violations)
	}
	if countEvents(report.Violations, ViolationLookingAway) != 0 {
		t.Fatalf("expected no looking_away event")
	}
	v := report.Violations[0]
	if v.FaceCount == nil || *v.FaceCount != 2 || v.Message != "Multiple faces detected: 2" {
		t.Fatalf("unexpected event %+v", v)
	}
}

func TestAnalyze_LookingAwayIsMedium(t *testing.T) {
	report := analyzeWith(t, facesWithConfidence(0.95), []*Landmarks{landmarksWithDeviation(0.08)}, nil)

	if !report.FaceAnalysis.LookingAway {
		t.Fatalf("expected looking_away analysis")
	}
	if len(report.Violations) != 1 {
		t.Fatalf("expected one event, got %+v", report.Violations)
	}
	v := report.Violations[0]
	if v.Type != ViolationLookingAway || v.Severity != SeverityMedium || v.Message != "Student appears to be looking away" {
		t.Fatalf("unexpected event %+v", v)
	}
}

func TestAnalyze_CellPhoneIsHigh(t *testing.T) {
	report := analyzeWith(t,
		facesWithConfidence(0.95),
		[]*Landmarks{landmarksWithDeviation(0)},
		[]ObjectDetection{{Label: "cell phone", Confidence: 0.8}},
	)

	if len(report.Violations) != 1 {
		t.Fatalf("expected one event, got %+v", report.Violations)
	}
	v := report.Violations[0]
	if v.Type != ViolationSuspiciousObject || v.Severity != SeverityHigh {
		t.Fatalf("unexpected event %+v", v)
	}
	if v.Message != "Suspicious objects detected: cell phone" {
		t.Fatalf("unexpected message %q", v.Message)
	}
	if report.ObjectAnalysis.Severity != SeverityHigh || len(report.ObjectAnalysis.SuspiciousObjects) != 1 {
		t.Fatalf("unexpected object analysis %+v", report.ObjectAnalysis)
	}
}

func TestAnalyze_BookAndRemoteKeepDetectionOrder(t *testing.T) {
	report := analyzeWith(t,
		facesWithConfidence(0.95),
		nil,
		[]ObjectDetection{{Label: "book", Confidence: 0.7}, {Label: "remote", Confidence: 0.6}},
	)

	if report.ObjectAnalysis.Severity != SeverityMedium {
		t.Fatalf("expected medium, got %s", report.ObjectAnalysis.Severity)
	}
	v := report.Violations[0]
	if !reflect.DeepEqual(v.DetectedItems, []string{"book", "remote"}) {
		t.Fatalf("unexpected detected items %v", v.DetectedItems)
	}
	if v.Message != "Suspicious objects detected: book, remote" {
		t.Fatalf("unexpected message %q", v.Message)
	}
}

func TestFuse_MaxSeverityAcrossObjects(t *testing.T) {
	objects := Match(DefaultCatalogue(), []ObjectDetection{
		{Label: "book", Confidence: 0.9},
		{Label: "laptop", Confidence: 0.9},
	}, 0.5)

	events := Fuse(FaceObservation{FaceCount: 1}, nil, objects, testCapturedAt)
	if len(events) != 1 || events[0].Severity != SeverityHigh {
		t.Fatalf("expected a single high severity event, got %+v", events)
	}
}

func TestFuse_RuleOrderAndCoOccurrence(t *testing.T) {
	objects := Match(DefaultCatalogue(), []ObjectDetection{{Label: "mouse", Confidence: 0.9}}, 0.5)
	gaze := []GazeObservation{{FaceIndex: 1, Deviation: 0.2, LookingAway: true}}

	events := Fuse(FaceObservation{FaceCount: 3}, gaze, objects, testCapturedAt)

	want := []ViolationType{ViolationMultipleFaces, ViolationLookingAway, ViolationSuspiciousObject}
	if len(events) != len(want) {
		t.Fatalf("expected %d events, got %+v", len(want), events)
	}
	for i, typ := range want {
		if events[i].Type != typ {
			t.Fatalf("event %d: expected %s, got %s", i, typ, events[i].Type)
		}
		if !events[i].Timestamp.Equal(testCapturedAt) {
			t.Fatalf("event %d has timestamp %v", i, events[i].Timestamp)
		}
	}
}

func TestFuse_GazeNeverFiresWithoutFace(t *testing.T) {
	gaze := []GazeObservation{{LookingAway: true, Deviation: 0.3}}
	events := Fuse(FaceObservation{FaceCount: 0}, gaze, emptyObjectObservation(), testCapturedAt)

	if countEvents(events, ViolationLookingAway) != 0 {
		t.Fatalf("looking_away must not co-occur with no_face: %+v", events)
	}
	if countEvents(events, ViolationNoFace) != 1 {
		t.Fatalf("expected one no_face event")
	}
}

func TestFuse_CleanFrame(t *testing.T) {
	events := Fuse(FaceObservation{FaceCount: 1}, []GazeObservation{{Deviation: 0.01}}, emptyObjectObservation(), testCapturedAt)
	if len(events) != 0 {
		t.Fatalf("expected no events for a clean frame, got %+v", events)
	}
}

func TestFuse_IsIdempotent(t *testing.T) {
	face := FaceObservation{FaceCount: 2, Faces: []Face{{Confidence: 0.9}, {Confidence: 0.8}}}
	gaze := []GazeObservation{{FaceIndex: 0, Deviation: 0.1, LookingAway: true}}
	objects := Match(DefaultCatalogue(), []ObjectDetection{
		{Label: "book", Confidence: 0.9},
		{Label: "book", Confidence: 0.8},
		{Label: "tablet", Confidence: 0.6},
	}, 0.5)

	first, err := json.Marshal(Fuse(face, gaze, objects, testCapturedAt))
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	for i := 0; i < 10; i++ {
		again, err := json.Marshal(Fuse(face, gaze, objects, testCapturedAt))
		if err != nil {
			t.Fatalf("marshal failed: %v", err)
		}
		if string(again) != string(first) {
			t.Fatalf("fusion output changed between runs:\n%s\n%s", first, again)
		}
	}
}

func TestReport_HighestSeverity(t *testing.T) {
	report := BuildReport(FaceObservation{FaceCount: 1}, []GazeObservation{{LookingAway: true}}, emptyObjectObservation(), false, testCapturedAt)
	if !report.HasViolations() || report.HighestSeverity() != SeverityMedium {
		t.Fatalf("expected a medium report, got %+v", report)
	}

	var nilReport *Report
	if nilReport.HasViolations() || nilReport.HighestSeverity() != SeverityNone {
		t.Fatalf("nil report must be empty")
	}
}
