package proctor

import (
	"context"
	"errors"
	"fmt"
)

// ViolationSink persists events for an exam session and returns them ordered
// by timestamp. Session scoping belongs to the sink, not the engine.
type ViolationSink interface {
	Record(ctx context.Context, sessionID string, event ViolationEvent) (string, error)
	Query(ctx context.Context, sessionID string) ([]ViolationEvent, error)
}

// RecordReport writes every event of the report and returns the ids that were
// stored. A failed write is reported through the joined error but never
// affects the report itself.
func RecordReport(ctx context.Context, sink ViolationSink, sessionID string, report *Report) ([]string, error) {
	if report == nil || len(report.Violations) == 0 {
		return []string{}, nil
	}

	ids := make([]string, 0, len(report.Violations))
	var errs []error
	for _, event := range report.Violations {
		id, err := sink.Record(ctx, sessionID, event)
		if err != nil {
			errs = append(errs, fmt.Errorf("record %s: %w", event.Type, err))
			continue
		}
		ids = append(ids, id)
	}

	return ids, errors.Join(errs...)
}
