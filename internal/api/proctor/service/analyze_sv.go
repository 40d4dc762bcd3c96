package proctorService

import (
	proctoring "ProctorGuard/internal/api/proctor"
	contextPkg "ProctorGuard/pkg/context"
	"ProctorGuard/pkg/metrics"
	"ProctorGuard/pkg/proctor"
	"ProctorGuard/pkg/smtp"
	"context"
	"errors"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"
)

// AnalyzeFrame decodes one frame, runs the engine and records the events.
// Recording, evidence upload and the live status are best effort: the report
// is returned even when they fail.
func (s *proctorService) AnalyzeFrame(ctx context.Context, examID string, image []byte) (*proctoring.AnalyzeResponse, error) {
	requestID := contextPkg.GetRequestID(ctx)
	ctx = contextPkg.WithExamID(ctx, examID)
	start := time.Now()

	frame, err := s.utils.DecodeFrame(image, s.now())
	if err != nil {
		s.metrics.ObserveAnalysis(metrics.OutcomeDecode, time.Since(start))
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"exam_id":    examID,
			"error":      err.Error(),
		}).Warn("Failed to decode frame")
		return nil, proctoring.ErrInvalidImage
	}

	report, err := s.engine.Analyze(ctx, frame)
	if err != nil {
		outcome, mapped := mapAnalyzeError(err)
		s.metrics.ObserveAnalysis(outcome, time.Since(start))
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"exam_id":    examID,
			"error":      err.Error(),
		}).Error("Frame analysis failed")
		return nil, mapped
	}

	// A report that arrives after the caller gave up is dropped unrecorded.
	if err := ctx.Err(); err != nil {
		s.metrics.ObserveAnalysis(metrics.OutcomeTimeout, time.Since(start))
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"exam_id":    examID,
			"error":      err.Error(),
		}).Warn("Deadline passed before violations were recorded")
		return nil, proctoring.ErrAnalysisTimeout
	}

	s.metrics.ObserveAnalysis(metrics.OutcomeOK, time.Since(start))
	s.metrics.ObserveReport(report)

	resp := &proctoring.AnalyzeResponse{
		ExamID:      examID,
		Report:      *report,
		RecordedIDs: []string{},
		Persisted:   true,
	}

	ids, err := proctor.RecordReport(ctx, s.sink, examID, report)
	resp.RecordedIDs = ids
	if err != nil {
		resp.Persisted = false
		s.metrics.ObserveSinkFailure()
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"exam_id":    examID,
			"recorded":   len(ids),
			"violations": len(report.Violations),
			"error":      err.Error(),
		}).Error("Failed to record violations")
	}

	if s.opts.EvidenceUpload && s.s3 != nil && len(ids) > 0 {
		resp.EvidenceURL = s.uploadEvidence(ctx, examID, ids, image)
	}

	s.publishLiveStatus(ctx, examID, report)

	if report.HighestSeverity() == proctor.SeverityHigh {
		s.sendAlert(requestID, examID, report, resp.EvidenceURL)
	}

	if report.HasViolations() {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"exam_id":    examID,
			"violations": len(report.Violations),
			"severity":   report.HighestSeverity().String(),
		}).Info("Violations detected")
	}

	return resp, nil
}

func mapAnalyzeError(err error) (string, error) {
	switch {
	case errors.Is(err, proctor.ErrAnalysisTimeout):
		return metrics.OutcomeTimeout, proctoring.ErrAnalysisTimeout
	case errors.Is(err, proctor.ErrDetection):
		return metrics.OutcomeDetection, proctoring.ErrDetectionFailed
	case errors.Is(err, proctor.ErrInvalidFrame):
		return metrics.OutcomeRejected, proctoring.ErrInvalidFrame
	case errors.Is(err, proctor.ErrEngineClosed):
		return metrics.OutcomeRejected, proctoring.ErrEngineUnavailable
	default:
		return metrics.OutcomeDetection, err
	}
}

// uploadEvidence stores the frame once and links it to every event it
// produced. Failures only cost the link.
func (s *proctorService) uploadEvidence(ctx context.Context, examID string, ids []string, image []byte) string {
	requestID := contextPkg.GetRequestID(ctx)

	url, err := s.s3.UploadEvidence(examID, ids[0], image)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"exam_id":    examID,
			"error":      err.Error(),
		}).Warn("Failed to upload evidence")
		return ""
	}

	client, err := s.repo.NewClient(true)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Warn("Failed to create repository client for evidence")
		return url
	}
	defer client.Rollback()

	for _, id := range ids {
		if err := client.Violations.AttachEvidence(ctx, id, url); err != nil {
			s.log.WithFields(logrus.Fields{
				"request_id":   requestID,
				"violation_id": id,
				"error":        err.Error(),
			}).Warn("Failed to attach evidence")
			return url
		}
	}

	if err := client.Commit(); err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Warn("Failed to commit evidence links")
	}

	return url
}

func (s *proctorService) publishLiveStatus(ctx context.Context, examID string, report *proctor.Report) {
	if s.redis == nil {
		return
	}

	payload, err := jsoniter.Marshal(proctoring.LiveStatusResponse{
		ExamID:          examID,
		HighestSeverity: report.HighestSeverity(),
		Report:          *report,
		UpdatedAt:       s.now().UTC(),
	})
	if err != nil {
		return
	}

	if err := s.redis.SetLiveStatus(ctx, examID, payload, s.opts.LiveStatusTTL); err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": contextPkg.GetRequestID(ctx),
			"exam_id":    examID,
			"error":      err.Error(),
		}).Warn("Failed to publish live status")
	}
}

func (s *proctorService) sendAlert(requestID, examID string, report *proctor.Report, evidenceURL string) {
	if s.opts.Alerts == nil || len(s.opts.AlertRecipients) == 0 {
		return
	}

	alert := smtp.ViolationAlert{
		To:          s.opts.AlertRecipients,
		ExamID:      examID,
		Severity:    report.HighestSeverity().String(),
		EvidenceURL: evidenceURL,
		DetectedAt:  report.AnalyzedAt,
	}
	for _, v := range report.Violations {
		if v.Severity == proctor.SeverityHigh {
			alert.Violations = append(alert.Violations, v.Message)
		}
	}

	go func() {
		if err := s.opts.Alerts.SendViolationAlert(alert); err != nil {
			s.log.WithFields(logrus.Fields{
				"request_id": requestID,
				"exam_id":    examID,
				"error":      err.Error(),
			}).Warn("Failed to send violation alert")
		}
	}()
}
