package assessment

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/runt18/edx-ora2/internal/model"
	"github.com/runt18/edx-ora2/internal/store"
)

var (
	// ErrNoScorerSubmission means the would-be grader has no submission of
	// their own on record. Grading opens only after submitting.
	ErrNoScorerSubmission = errors.New("scorer has no submission on record")
	// ErrNoOpenItem means the scorer has nothing checked out to assess.
	ErrNoOpenItem = errors.New("no submission checked out for assessment")
	// ErrScorerMismatch means the scorer id does not own the scorer
	// submission the assessment was made through.
	ErrScorerMismatch = errors.New("scorer id does not match the scorer submission")
	// ErrInvalidRequiredGrades rejects a non-positive grading quota.
	ErrInvalidRequiredGrades = errors.New("required grade count must be positive")
)

// PeerService hands submissions to peers and records their assessments.
type PeerService struct {
	store *store.Store
}

func NewPeerService(st *store.Store) *PeerService {
	return &PeerService{store: st}
}

// CreateWorkflowItem hands the target submission to the scorer for grading.
// Both submissions must already exist: a grader must have their own
// submission on record before assessing anyone else's. Linking the same pair
// twice returns the existing item.
func (s *PeerService) CreateWorkflowItem(scorerSubmissionUUID, targetSubmissionUUID string) (model.PeerWorkflowItem, error) {
	if _, err := s.store.GetSubmission(scorerSubmissionUUID); err != nil {
		if err == sql.ErrNoRows {
			return model.PeerWorkflowItem{}, fmt.Errorf("%w: %s", ErrNoScorerSubmission, scorerSubmissionUUID)
		}
		return model.PeerWorkflowItem{}, err
	}
	if _, err := s.store.GetSubmission(targetSubmissionUUID); err != nil {
		if err == sql.ErrNoRows {
			return model.PeerWorkflowItem{}, fmt.Errorf("%w: %s", ErrSubmissionNotFound, targetSubmissionUUID)
		}
		return model.PeerWorkflowItem{}, err
	}
	return s.store.InsertPeerWorkflowItem(scorerSubmissionUUID, targetSubmissionUUID)
}

// CreateAssessment records the scorer's assessment of the submission they
// currently have checked out. requiredGrades is the quota the scorer is
// working toward; it is kept with the item for completion accounting.
func (s *PeerService) CreateAssessment(
	scorerSubmissionUUID, scorerID string,
	optionsSelected, criterionFeedback map[string]string,
	overallFeedback string,
	rubric model.Rubric,
	requiredGrades int,
) (model.Assessment, error) {
	if requiredGrades < 1 {
		return model.Assessment{}, ErrInvalidRequiredGrades
	}
	scorerSub, err := s.store.GetSubmission(scorerSubmissionUUID)
	if err == sql.ErrNoRows {
		return model.Assessment{}, fmt.Errorf("%w: %s", ErrNoScorerSubmission, scorerSubmissionUUID)
	}
	if err != nil {
		return model.Assessment{}, err
	}
	if scorerSub.StudentItem.StudentID != scorerID {
		return model.Assessment{}, fmt.Errorf("%w: %s", ErrScorerMismatch, scorerID)
	}

	item, err := s.store.LatestOpenPeerWorkflowItem(scorerSubmissionUUID)
	if err != nil {
		return model.Assessment{}, err
	}
	if item == nil {
		return model.Assessment{}, fmt.Errorf("%w: scorer %s", ErrNoOpenItem, scorerID)
	}

	parts, err := SelectParts(rubric, optionsSelected, criterionFeedback)
	if err != nil {
		return model.Assessment{}, err
	}
	a := model.Assessment{
		SubmissionUUID: item.TargetSubmissionUUID,
		Rubric:         rubric,
		ScorerID:       scorerID,
		ScoreType:      model.PeerAssessmentType,
		Feedback:       overallFeedback,
		Parts:          parts,
		ScoredAt:       time.Now(),
	}
	a.ID, err = s.store.InsertAssessment(a)
	if err != nil {
		return model.Assessment{}, err
	}
	if err := s.store.MarkPeerWorkflowItemAssessed(item.ID, a.ID, requiredGrades); err != nil {
		return model.Assessment{}, err
	}
	return a, nil
}

// Assessments returns the peer assessments a submission has received,
// oldest first.
func (s *PeerService) Assessments(submissionUUID string) ([]model.Assessment, error) {
	return s.store.GetAssessments(submissionUUID, model.PeerAssessmentType)
}

// SubmittedAssessments returns the peer assessments the owner of a submission
// has authored, oldest first.
func (s *PeerService) SubmittedAssessments(scorerSubmissionUUID string) ([]model.Assessment, error) {
	return s.store.GetSubmittedAssessments(scorerSubmissionUUID)
}

// GradedCount returns how many peers the owner of a submission has assessed.
func (s *PeerService) GradedCount(submissionUUID string) (int, error) {
	return s.store.CountAssessedBy(submissionUUID)
}

// ReceivedCount returns how many peer assessments a submission has received.
func (s *PeerService) ReceivedCount(submissionUUID string) (int, error) {
	return s.store.CountAssessmentsFor(submissionUUID, model.PeerAssessmentType)
}

// MedianScores returns the per-criterion median of the peer assessments a
// submission has received. Empty when it has none.
func (s *PeerService) MedianScores(submissionUUID string) (map[string]int, error) {
	assessments, err := s.Assessments(submissionUUID)
	if err != nil {
		return nil, err
	}
	return medianPartScores(assessments), nil
}

// RubricMaxScores returns the per-criterion maximum points from the most
// recent peer assessment's rubric, or nil if the submission has none.
func (s *PeerService) RubricMaxScores(submissionUUID string) (map[string]int, error) {
	latest, err := s.store.LatestAssessment(submissionUUID, model.PeerAssessmentType)
	if err != nil {
		return nil, err
	}
	if latest == nil {
		return nil, nil
	}
	return latest.Rubric.MaxScores(), nil
}
