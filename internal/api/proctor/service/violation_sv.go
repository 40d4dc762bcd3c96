package proctorService

import (
	proctoring "ProctorGuard/internal/api/proctor"
	"ProctorGuard/internal/entity"
	contextPkg "ProctorGuard/pkg/context"
	"ProctorGuard/pkg/proctor"
	"ProctorGuard/pkg/redis"
	"context"
	"errors"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"
)

// LogViolation stores an event reported by the exam client itself, such as a
// tab switch.
func (s *proctorService) LogViolation(ctx context.Context, req proctoring.CreateViolationRequest) (*proctoring.ViolationResponse, error) {
	requestID := contextPkg.GetRequestID(ctx)

	violationType := proctor.ViolationType(strings.ToLower(strings.TrimSpace(req.ViolationType)))
	if !violationType.Valid() {
		return nil, proctoring.ErrInvalidViolationType
	}

	severity, err := proctor.ParseSeverity(req.Severity)
	if err != nil {
		return nil, proctoring.ErrInvalidSeverity
	}

	at := s.now().UTC()
	if req.Timestamp != nil && !req.Timestamp.IsZero() {
		at = req.Timestamp.UTC()
	}

	id, err := s.utils.NewULIDFromTimestamp(at)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to generate violation id")
		return nil, proctoring.ErrCreateViolation
	}

	violation := entity.Violation{
		ID:            id,
		ExamID:        req.ExamID,
		ViolationType: string(violationType),
		Severity:      severity.String(),
		Description:   req.Description,
		DetectedItems: req.DetectedItems,
		Source:        entity.SourceClient,
		Timestamp:     at,
		CreatedAt:     s.now().UTC(),
	}

	client, err := s.repo.NewClient(false)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to create repository client")
		return nil, proctoring.ErrCreateViolation
	}

	if err := client.Violations.CreateViolation(ctx, violation); err != nil {
		s.metrics.ObserveSinkFailure()
		return nil, proctoring.ErrCreateViolation
	}

	s.log.WithFields(logrus.Fields{
		"request_id":     requestID,
		"exam_id":        req.ExamID,
		"violation_type": violation.ViolationType,
		"severity":       violation.Severity,
	}).Info("Client violation logged")

	resp := toViolationResponse(violation)
	return &resp, nil
}

func (s *proctorService) GetViolations(ctx context.Context, examID string) (*proctoring.ViolationListResponse, error) {
	requestID := contextPkg.GetRequestID(ctx)

	client, err := s.repo.NewClient(false)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to create repository client")
		return nil, proctoring.ErrGetViolations
	}

	rows, err := client.Violations.GetViolationsByExamID(ctx, examID)
	if err != nil {
		return nil, proctoring.ErrGetViolations
	}

	list := make([]proctoring.ViolationResponse, 0, len(rows))
	for _, row := range rows {
		resp := toViolationResponse(row)
		resp.EvidenceURL = s.presignEvidence(requestID, row)
		list = append(list, resp)
	}

	return &proctoring.ViolationListResponse{
		ExamID:     examID,
		Violations: list,
		Count:      len(list),
	}, nil
}

// presignEvidence turns the stored object URL into a short lived link. The
// bucket is private, so the stored URL is only returned when signing fails.
func (s *proctorService) presignEvidence(requestID string, v entity.Violation) string {
	if v.EvidenceURL == "" || s.s3 == nil {
		return v.EvidenceURL
	}

	presignedURL, err := s.s3.PresignUrl(v.EvidenceURL)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id":   requestID,
			"violation_id": v.ID,
			"evidence_url": v.EvidenceURL,
			"error":        err.Error(),
		}).Warn("Failed to create presigned URL for evidence")
		return v.EvidenceURL
	}

	return presignedURL
}

func (s *proctorService) GetLiveStatus(ctx context.Context, examID string) (*proctoring.LiveStatusResponse, error) {
	if s.redis == nil {
		return nil, proctoring.ErrLiveStatusUnavailable
	}

	payload, err := s.redis.GetLiveStatus(ctx, examID)
	if err != nil {
		if errors.Is(err, redis.ErrNotFound) {
			return nil, proctoring.ErrLiveStatusNotFound
		}
		s.log.WithFields(logrus.Fields{
			"request_id": contextPkg.GetRequestID(ctx),
			"exam_id":    examID,
			"error":      err.Error(),
		}).Error("Failed to read live status")
		return nil, proctoring.ErrLiveStatusUnavailable
	}

	var status proctoring.LiveStatusResponse
	if err := jsoniter.Unmarshal(payload, &status); err != nil {
		return nil, proctoring.ErrLiveStatusUnavailable
	}

	return &status, nil
}

func toViolationResponse(v entity.Violation) proctoring.ViolationResponse {
	return proctoring.ViolationResponse{
		ID:            v.ID,
		ExamID:        v.ExamID,
		ViolationType: v.ViolationType,
		Severity:      v.Severity,
		Description:   v.Description,
		FaceCount:     v.FaceCount,
		DetectedItems: v.DetectedItems,
		EvidenceURL:   v.EvidenceURL,
		Source:        string(v.Source),
		Timestamp:     v.Timestamp,
	}
}
