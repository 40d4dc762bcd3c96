package proctorRepository

import (
	"ProctorGuard/internal/entity"
	contextPkg "ProctorGuard/pkg/context"
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/sirupsen/logrus"
)

var ErrViolationNotFound = errors.New("violation not found")

type ViolationDB struct {
	ID            sql.NullString `db:"id"`
	ExamID        sql.NullString `db:"exam_id"`
	ViolationType sql.NullString `db:"violation_type"`
	Severity      sql.NullString `db:"severity"`
	Description   sql.NullString `db:"description"`
	FaceCount     sql.NullInt64  `db:"face_count"`
	DetectedItems pq.StringArray `db:"detected_items"`
	EvidenceURL   sql.NullString `db:"evidence_url"`
	Source        sql.NullString `db:"source"`
	Timestamp     time.Time      `db:"occurred_at"`
	CreatedAt     time.Time      `db:"created_at"`
}

func (v ViolationDB) toEntity() entity.Violation {
	out := entity.Violation{
		ID:            v.ID.String,
		ExamID:        v.ExamID.String,
		ViolationType: v.ViolationType.String,
		Severity:      v.Severity.String,
		Description:   v.Description.String,
		DetectedItems: []string(v.DetectedItems),
		EvidenceURL:   v.EvidenceURL.String,
		Source:        entity.ViolationSource(v.Source.String),
		Timestamp:     v.Timestamp.UTC(),
		CreatedAt:     v.CreatedAt.UTC(),
	}
	if v.FaceCount.Valid {
		n := int(v.FaceCount.Int64)
		out.FaceCount = &n
	}
	return out
}

func (r *violationsRepository) CreateViolation(ctx context.Context, violation entity.Violation) error {
	requestID := contextPkg.GetRequestID(ctx)

	var faceCount sql.NullInt64
	if violation.FaceCount != nil {
		faceCount = sql.NullInt64{Int64: int64(*violation.FaceCount), Valid: true}
	}

	items := violation.DetectedItems
	if items == nil {
		items = []string{}
	}

	argsKV := map[string]interface{}{
		"id":             violation.ID,
		"exam_id":        violation.ExamID,
		"violation_type": violation.ViolationType,
		"severity":       violation.Severity,
		"description":    violation.Description,
		"face_count":     faceCount,
		"detected_items": pq.Array(items),
		"evidence_url":   violation.EvidenceURL,
		"source":         string(violation.Source),
		"occurred_at":    violation.Timestamp,
		"created_at":     violation.CreatedAt,
	}

	query, args, err := sqlx.Named(queryCreateViolation, argsKV)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to build SQL query for CreateViolation")
		return err
	}
	query = r.q.Rebind(query)

	if _, err := r.q.ExecContext(ctx, query, args...); err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"exam_id":    violation.ExamID,
			"error":      err.Error(),
		}).Error("Database error when creating violation")
		return err
	}

	return nil
}

func (r *violationsRepository) GetViolationByID(ctx context.Context, id string) (entity.Violation, error) {
	requestID := contextPkg.GetRequestID(ctx)
	var violation ViolationDB

	query, args, err := sqlx.Named(queryGetViolationByID, map[string]interface{}{
		"id": id,
	})
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("GetViolationByID named query preparation err")
		return entity.Violation{}, err
	}
	query = r.q.Rebind(query)

	if err := r.q.QueryRowxContext(ctx, query, args...).StructScan(&violation); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return entity.Violation{}, ErrViolationNotFound
		}
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Database error when getting violation by id")
		return entity.Violation{}, err
	}

	return violation.toEntity(), nil
}

func (r *violationsRepository) GetViolationsByExamID(ctx context.Context, examID string) ([]entity.Violation, error) {
	requestID := contextPkg.GetRequestID(ctx)
	var rows []ViolationDB

	query, args, err := sqlx.Named(queryGetViolationsByExamID, map[string]interface{}{
		"exam_id": examID,
	})
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("GetViolationsByExamID named query preparation err")
		return nil, err
	}
	query = r.q.Rebind(query)

	if err := r.q.SelectContext(ctx, &rows, query, args...); err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"exam_id":    examID,
			"error":      err.Error(),
		}).Error("Database error when listing violations")
		return nil, err
	}

	violations := make([]entity.Violation, 0, len(rows))
	for _, row := range rows {
		violations = append(violations, row.toEntity())
	}

	return violations, nil
}

func (r *violationsRepository) AttachEvidence(ctx context.Context, id string, evidenceURL string) error {
	requestID := contextPkg.GetRequestID(ctx)

	query, args, err := sqlx.Named(queryAttachEvidence, map[string]interface{}{
		"id":           id,
		"evidence_url": evidenceURL,
	})
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("AttachEvidence named query preparation err")
		return err
	}
	query = r.q.Rebind(query)

	result, err := r.q.ExecContext(ctx, query, args...)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Database error when attaching evidence")
		return err
	}

	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return ErrViolationNotFound
	}

	return nil
}
