package model

import "time"

// CourseItemExport is the top-level JSON structure for exporting everything
// recorded for one assessment location.
type CourseItemExport struct {
	CourseID    string          `json:"course_id"`
	ItemID      string          `json:"item_id"`
	GeneratedAt time.Time       `json:"generated_at"`
	Students    []StudentExport `json:"students"`
}

// StudentExport holds one student item and its submissions for export.
type StudentExport struct {
	StudentID   string             `json:"student_id"`
	ItemType    string             `json:"item_type"`
	Submissions []SubmissionExport `json:"submissions"`
}

// SubmissionExport holds per-submission data for export.
type SubmissionExport struct {
	UUID            string          `json:"uuid"`
	AttemptNumber   int             `json:"attempt_number"`
	Answer          Answer          `json:"answer"`
	SubmittedAt     time.Time       `json:"submitted_at"`
	PeerAssessments []Assessment    `json:"peer_assessments"`
	SelfAssessment  *Assessment     `json:"self_assessment,omitempty"`
	StaffAssessment *Assessment     `json:"staff_assessment,omitempty"`
	AIAssessment    *Assessment     `json:"ai_assessment,omitempty"`
	Workflow        *WorkflowExport `json:"workflow,omitempty"`
}

// WorkflowExport is the workflow state attached to an exported submission.
type WorkflowExport struct {
	Status       WorkflowStatus        `json:"status"`
	Steps        []string              `json:"steps"`
	Requirements Requirements          `json:"requirements,omitempty"`
	Score        *Score                `json:"score,omitempty"`
	Cancellation *WorkflowCancellation `json:"cancellation,omitempty"`
}
