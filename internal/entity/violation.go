package entity

import "time"

type ViolationSource string

const (
	SourceEngine ViolationSource = "engine"
	SourceClient ViolationSource = "client"
)

type Violation struct {
	ID            string          `db:"id"`
	ExamID        string          `db:"exam_id"`
	ViolationType string          `db:"violation_type"`
	Severity      string          `db:"severity"`
	Description   string          `db:"description"`
	FaceCount     *int            `db:"face_count"`
	DetectedItems []string        `db:"-"`
	EvidenceURL   string          `db:"evidence_url"`
	Source        ViolationSource `db:"source"`
	Timestamp     time.Time       `db:"occurred_at"`
	CreatedAt     time.Time       `db:"created_at"`
}
