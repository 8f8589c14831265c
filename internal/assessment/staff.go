package assessment

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/runt18/edx-ora2/internal/model"
	"github.com/runt18/edx-ora2/internal/store"
)

// StaffService records staff assessments and reports the grading backlog.
// There is no checkout or locking: SubmissionToAssess is a deterministic
// oldest-first read, so two graders may see the same submission.
type StaffService struct {
	store *store.Store
}

func NewStaffService(st *store.Store) *StaffService {
	return &StaffService{store: st}
}

// CreateAssessment records a staff member's assessment of a submission.
// A staff assessment overrides peer scoring when the workflow completes.
func (s *StaffService) CreateAssessment(
	submissionUUID, staffID string,
	optionsSelected, criterionFeedback map[string]string,
	overallFeedback string,
	rubric model.Rubric,
) (model.Assessment, error) {
	if _, err := s.store.GetSubmission(submissionUUID); err != nil {
		if err == sql.ErrNoRows {
			return model.Assessment{}, fmt.Errorf("%w: %s", ErrSubmissionNotFound, submissionUUID)
		}
		return model.Assessment{}, err
	}

	parts, err := SelectParts(rubric, optionsSelected, criterionFeedback)
	if err != nil {
		return model.Assessment{}, err
	}
	a := model.Assessment{
		SubmissionUUID: submissionUUID,
		Rubric:         rubric,
		ScorerID:       staffID,
		ScoreType:      model.StaffAssessmentType,
		Feedback:       overallFeedback,
		Parts:          parts,
		ScoredAt:       time.Now(),
	}
	a.ID, err = s.store.InsertAssessment(a)
	if err != nil {
		return model.Assessment{}, err
	}
	return a, nil
}

// LatestAssessment returns the most recent staff assessment of a submission,
// or nil if staff never graded it.
func (s *StaffService) LatestAssessment(submissionUUID string) (*model.Assessment, error) {
	return s.store.LatestAssessment(submissionUUID, model.StaffAssessmentType)
}

// SubmissionToAssess returns the oldest submission in a location that still
// needs a staff grade, or nil when there is nothing left to grade.
func (s *StaffService) SubmissionToAssess(courseID, itemID string) (*model.Submission, error) {
	return s.store.OldestUngradedSubmission(courseID, itemID)
}

// GradingStatistics summarizes the staff grading backlog for a location.
// InProgress is always zero: without checkout tracking nothing is ever
// "held" by a grader.
func (s *StaffService) GradingStatistics(courseID, itemID string) (model.StaffGradingStats, error) {
	ungraded, err := s.store.CountStaffUngraded(courseID, itemID)
	if err != nil {
		return model.StaffGradingStats{}, err
	}
	graded, err := s.store.CountStaffGraded(courseID, itemID)
	if err != nil {
		return model.StaffGradingStats{}, err
	}
	return model.StaffGradingStats{Ungraded: ungraded, Graded: graded}, nil
}
