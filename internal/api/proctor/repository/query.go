package proctorRepository

const (
	queryCreateViolation = `
		INSERT INTO violations (
			id,
			exam_id,
			violation_type,
			severity,
			description,
			face_count,
			detected_items,
			evidence_url,
			source,
			occurred_at,
			created_at
		) VALUES (
			:id,
			:exam_id,
			:violation_type,
			:severity,
			:description,
			:face_count,
			:detected_items,
			:evidence_url,
			:source,
			:occurred_at,
			:created_at
		)
	`

	queryGetViolationByID = `
		SELECT
			id,
			exam_id,
			violation_type,
			severity,
			description,
			face_count,
			detected_items,
			evidence_url,
			source,
			occurred_at,
			created_at
		FROM violations
		WHERE id = :id
	`

	queryGetViolationsByExamID = `
		SELECT
			id,
			exam_id,
			violation_type,
			severity,
			description,
			face_count,
			detected_items,
			evidence_url,
			source,
			occurred_at,
			created_at
		FROM violations
		WHERE exam_id = :exam_id
		ORDER BY occurred_at ASC, id ASC
	`

	queryAttachEvidence = `
		UPDATE violations
		SET evidence_url = :evidence_url
		WHERE id = :id
	`
)
