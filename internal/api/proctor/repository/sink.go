package proctorRepository

import (
	"ProctorGuard/internal/entity"
	"ProctorGuard/pkg/proctor"
	"context"
	"time"
)

type idGenerator interface {
	NewULIDFromTimestamp(t time.Time) (string, error)
}

type violationSink struct {
	repo Repository
	ids  idGenerator
	now  func() time.Time
}

// NewViolationSink stores engine events as violation rows. Ids are ULIDs
// seeded from the event timestamp so they sort with the exam timeline.
func NewViolationSink(repo Repository, ids idGenerator) proctor.ViolationSink {
	return &violationSink{
		repo: repo,
		ids:  ids,
		now:  time.Now,
	}
}

func (s *violationSink) Record(ctx context.Context, sessionID string, event proctor.ViolationEvent) (string, error) {
	id, err := s.ids.NewULIDFromTimestamp(event.Timestamp)
	if err != nil {
		return "", err
	}

	client, err := s.repo.NewClient(false)
	if err != nil {
		return "", err
	}

	err = client.Violations.CreateViolation(ctx, entity.Violation{
		ID:            id,
		ExamID:        sessionID,
		ViolationType: string(event.Type),
		Severity:      event.Severity.String(),
		Description:   event.Message,
		FaceCount:     event.FaceCount,
		DetectedItems: event.DetectedItems,
		Source:        entity.SourceEngine,
		Timestamp:     event.Timestamp,
		CreatedAt:     s.now().UTC(),
	})
	if err != nil {
		return "", err
	}

	return id, nil
}

func (s *violationSink) Query(ctx context.Context, sessionID string) ([]proctor.ViolationEvent, error) {
	client, err := s.repo.NewClient(false)
	if err != nil {
		return nil, err
	}

	rows, err := client.Violations.GetViolationsByExamID(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	events := make([]proctor.ViolationEvent, 0, len(rows))
	for _, row := range rows {
		events = append(events, ToEvent(row))
	}

	return events, nil
}

// ToEvent converts a stored row back into an event. Unknown severities read
// back as SeverityNone.
func ToEvent(v entity.Violation) proctor.ViolationEvent {
	severity, _ := proctor.ParseSeverity(v.Severity)

	return proctor.ViolationEvent{
		Type:          proctor.ViolationType(v.ViolationType),
		Severity:      severity,
		Message:       v.Description,
		FaceCount:     v.FaceCount,
		DetectedItems: v.DetectedItems,
		Timestamp:     v.Timestamp,
	}
}
