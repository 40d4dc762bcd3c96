package proctorService

import (
	"ProctorGuard/pkg/proctor"
	"ProctorGuard/pkg/smtp"
	"context"
	"errors"
	"testing"
	"time"
)

type fakeAlerter struct {
	sent chan smtp.ViolationAlert
	err  error
}

func (a *fakeAlerter) SendViolationAlert(alert smtp.ViolationAlert) error {
	a.sent <- alert
	return a.err
}

func TestAnalyzeFrame_HighSeverityAlertsExaminers(t *testing.T) {
	alerter := &fakeAlerter{sent: make(chan smtp.ViolationAlert, 1)}
	f := newFixture(t, twoFaces(), proctor.NoopObjectModel{}, Options{
		Alerts:          alerter,
		AlertRecipients: []string{"examiner@example.com"},
	})

	if _, err := f.svc.AnalyzeFrame(context.Background(), "exam-1", pngImage(t)); err != nil {
		t.Fatalf("AnalyzeFrame failed: %v", err)
	}

	select {
	case alert := <-alerter.sent:
		if alert.ExamID != "exam-1" || alert.Severity != "high" {
			t.Errorf("unexpected alert: %+v", alert)
		}
		if len(alert.Violations) != 1 {
			t.Errorf("expected one high severity line, got %v", alert.Violations)
		}
		if len(alert.To) != 1 || alert.To[0] != "examiner@example.com" {
			t.Errorf("unexpected recipients: %v", alert.To)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("expected an alert for a high severity frame")
	}
}

func TestAnalyzeFrame_NoAlertBelowHigh(t *testing.T) {
	alerter := &fakeAlerter{sent: make(chan smtp.ViolationAlert, 1)}
	f := newFixture(t, oneFace(), proctor.StaticObjectModel{
		Detections: []proctor.ObjectDetection{{Label: "book", Confidence: 0.9}},
	}, Options{
		Alerts:          alerter,
		AlertRecipients: []string{"examiner@example.com"},
	})

	resp, err := f.svc.AnalyzeFrame(context.Background(), "exam-1", pngImage(t))
	if err != nil {
		t.Fatalf("AnalyzeFrame failed: %v", err)
	}
	if resp.HighestSeverity() == proctor.SeverityHigh {
		t.Fatalf("fixture should stay below high, got %s", resp.HighestSeverity())
	}

	select {
	case alert := <-alerter.sent:
		t.Fatalf("unexpected alert: %+v", alert)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestAnalyzeFrame_AlertFailureDoesNotFailAnalysis(t *testing.T) {
	alerter := &fakeAlerter{sent: make(chan smtp.ViolationAlert, 1), err: errors.New("smtp down")}
	f := newFixture(t, twoFaces(), proctor.NoopObjectModel{}, Options{
		Alerts:          alerter,
		AlertRecipients: []string{"examiner@example.com"},
	})

	resp, err := f.svc.AnalyzeFrame(context.Background(), "exam-1", pngImage(t))
	if err != nil {
		t.Fatalf("AnalyzeFrame failed: %v", err)
	}
	if !resp.Persisted {
		t.Fatalf("report should still be persisted")
	}
	<-alerter.sent
}
