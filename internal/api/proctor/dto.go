package proctoring

import (
	"ProctorGuard/pkg/proctor"
	"time"
)

type AnalyzeRequest struct {
	ExamID      string `json:"exam_id" form:"exam_id" validate:"required,max=128"`
	ImageBase64 string `json:"image_base64" validate:"required"`
}

type AnalyzeResponse struct {
	ExamID string `json:"exam_id"`
	proctor.Report
	RecordedIDs []string `json:"recorded_ids"`
	Persisted   bool     `json:"persisted"`
	EvidenceURL string   `json:"evidence_url,omitempty"`
}

type CreateViolationRequest struct {
	ExamID        string     `json:"exam_id" validate:"required,max=128"`
	ViolationType string     `json:"violation_type" validate:"required,violation_type"`
	Severity      string     `json:"severity" validate:"required,severity"`
	Description   string     `json:"description" validate:"omitempty,max=1024"`
	DetectedItems []string   `json:"detected_items" validate:"omitempty,max=32,dive,max=64"`
	Timestamp     *time.Time `json:"timestamp"`
}

type ViolationResponse struct {
	ID            string    `json:"id"`
	ExamID        string    `json:"exam_id"`
	ViolationType string    `json:"violation_type"`
	Severity      string    `json:"severity"`
	Description   string    `json:"description"`
	FaceCount     *int      `json:"face_count,omitempty"`
	DetectedItems []string  `json:"detected_items,omitempty"`
	EvidenceURL   string    `json:"evidence_url,omitempty"`
	Source        string    `json:"source"`
	Timestamp     time.Time `json:"timestamp"`
}

type ViolationListResponse struct {
	ExamID     string              `json:"exam_id"`
	Violations []ViolationResponse `json:"violations"`
	Count      int                 `json:"count"`
}

type LiveStatusResponse struct {
	ExamID          string           `json:"exam_id"`
	HighestSeverity proctor.Severity `json:"highest_severity"`
	Report          proctor.Report   `json:"report"`
	UpdatedAt       time.Time        `json:"updated_at"`
}

type CatalogueEntryRequest struct {
	Severity string   `json:"severity" validate:"required,severity"`
	Floor    *float64 `json:"floor,omitempty" validate:"omitempty,gte=0,lt=1"`
}

type UpdateCatalogueRequest struct {
	Objects map[string]CatalogueEntryRequest `json:"objects" validate:"required,min=1,dive,keys,required,max=64,endkeys"`
}

type CatalogueResponse struct {
	Objects map[string]proctor.CatalogueEntry `json:"objects"`
	Count   int                               `json:"count"`
}
