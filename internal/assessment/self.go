package assessment

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/runt18/edx-ora2/internal/model"
	"github.com/runt18/edx-ora2/internal/store"
)

// ErrNotOwner means a student tried to self-assess a submission that is not
// theirs.
var ErrNotOwner = errors.New("submission does not belong to the student")

// SelfService records students' assessments of their own responses.
type SelfService struct {
	store *store.Store
}

func NewSelfService(st *store.Store) *SelfService {
	return &SelfService{store: st}
}

// CreateAssessment records the student's assessment of their own submission.
func (s *SelfService) CreateAssessment(submissionUUID, studentID string, optionsSelected map[string]string, rubric model.Rubric) (model.Assessment, error) {
	sub, err := s.store.GetSubmission(submissionUUID)
	if err == sql.ErrNoRows {
		return model.Assessment{}, fmt.Errorf("%w: %s", ErrSubmissionNotFound, submissionUUID)
	}
	if err != nil {
		return model.Assessment{}, err
	}
	if sub.StudentItem.StudentID != studentID {
		return model.Assessment{}, fmt.Errorf("%w: %s", ErrNotOwner, studentID)
	}

	parts, err := SelectParts(rubric, optionsSelected, nil)
	if err != nil {
		return model.Assessment{}, err
	}
	a := model.Assessment{
		SubmissionUUID: submissionUUID,
		Rubric:         rubric,
		ScorerID:       studentID,
		ScoreType:      model.SelfAssessmentType,
		Parts:          parts,
		ScoredAt:       time.Now(),
	}
	a.ID, err = s.store.InsertAssessment(a)
	if err != nil {
		return model.Assessment{}, err
	}
	return a, nil
}

// Assessment returns the latest self assessment of a submission, or nil if
// the student has not assessed their own response yet.
func (s *SelfService) Assessment(submissionUUID string) (*model.Assessment, error) {
	return s.store.LatestAssessment(submissionUUID, model.SelfAssessmentType)
}
