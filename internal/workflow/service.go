// Package workflow routes submissions through their assessment steps and
// decides when a final score exists.
package workflow

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/runt18/edx-ora2/internal/assessment"
	"github.com/runt18/edx-ora2/internal/model"
	"github.com/runt18/edx-ora2/internal/store"
)

var (
	// ErrNotFound means no workflow exists for the submission.
	ErrNotFound = errors.New("workflow not found")
	// ErrAlreadyExists means the submission already has a workflow.
	ErrAlreadyExists = errors.New("workflow already exists")
	// ErrSubmissionNotFound means a workflow was requested for a submission
	// that was never recorded.
	ErrSubmissionNotFound = errors.New("submission not found")
	// ErrNoSteps rejects a workflow without assessment steps.
	ErrNoSteps = errors.New("workflow needs at least one step")
	// ErrUnknownStep rejects a step name the grading pipeline does not know.
	ErrUnknownStep = errors.New("unknown workflow step")
	// ErrCommentsRequired rejects a cancellation without a reason.
	ErrCommentsRequired = errors.New("cancellation comments required")
)

// Service owns assessment workflows. Status transitions happen only in
// UpdateFromAssessments and Cancel.
type Service struct {
	store *store.Store
	peer  *assessment.PeerService
}

func NewService(st *store.Store, peer *assessment.PeerService) *Service {
	return &Service{store: st, peer: peer}
}

// Create registers a workflow for an existing submission. The status starts
// at the first step. No requirements are recorded yet, so the workflow is not
// gradable until UpdateFromAssessments delivers them.
func (s *Service) Create(submissionUUID string, steps []string) (model.Workflow, error) {
	sub, err := s.store.GetSubmission(submissionUUID)
	if err == sql.ErrNoRows {
		return model.Workflow{}, fmt.Errorf("%w: %s", ErrSubmissionNotFound, submissionUUID)
	}
	if err != nil {
		return model.Workflow{}, err
	}
	if len(steps) == 0 {
		return model.Workflow{}, ErrNoSteps
	}
	seen := make(map[string]bool, len(steps))
	ordered := make([]string, 0, len(steps))
	for _, step := range steps {
		if !model.KnownStep(step) {
			return model.Workflow{}, fmt.Errorf("%w: %q", ErrUnknownStep, step)
		}
		if seen[step] {
			continue
		}
		seen[step] = true
		ordered = append(ordered, step)
	}
	if _, err := s.store.GetWorkflow(submissionUUID); err == nil {
		return model.Workflow{}, fmt.Errorf("%w: %s", ErrAlreadyExists, submissionUUID)
	} else if err != sql.ErrNoRows {
		return model.Workflow{}, err
	}

	now := time.Now()
	w := model.Workflow{
		SubmissionUUID: submissionUUID,
		CourseID:       sub.StudentItem.CourseID,
		ItemID:         sub.StudentItem.ItemID,
		Steps:          ordered,
		Status:         model.WorkflowStatus(ordered[0]),
		CreatedAt:      now,
		ModifiedAt:     now,
	}
	if err := s.store.InsertWorkflow(w); err != nil {
		return model.Workflow{}, err
	}
	return w, nil
}

// Get returns the workflow for a submission.
func (s *Service) Get(submissionUUID string) (model.Workflow, error) {
	wf, err := s.store.GetWorkflow(submissionUUID)
	if err == sql.ErrNoRows {
		return model.Workflow{}, fmt.Errorf("%w: %s", ErrNotFound, submissionUUID)
	}
	if err != nil {
		return model.Workflow{}, err
	}
	return wf, nil
}

// UpdateFromAssessments stores the step requirements when given and moves the
// workflow to wherever the recorded assessments put it. A workflow that has
// never received requirements is not gradable and stays at its first step no
// matter what has been assessed. Cancelled workflows never move.
func (s *Service) UpdateFromAssessments(submissionUUID string, requirements model.Requirements) (model.Workflow, error) {
	wf, err := s.Get(submissionUUID)
	if err != nil {
		return model.Workflow{}, err
	}
	if wf.Status == model.StatusCancelled {
		return wf, nil
	}
	if requirements != nil {
		if err := s.store.SetWorkflowRequirements(submissionUUID, requirements); err != nil {
			return model.Workflow{}, err
		}
		wf.Requirements = requirements
	}
	if !wf.Gradable() {
		return wf, nil
	}

	status, score, err := s.resolve(wf)
	if err != nil {
		return model.Workflow{}, err
	}
	if status != wf.Status || score != nil {
		if err := s.store.SetWorkflowStatus(submissionUUID, status, score); err != nil {
			return model.Workflow{}, err
		}
	}
	return s.Get(submissionUUID)
}

// resolve walks the steps in order: the workflow sits at the first step whose
// submitter obligations are unmet. With every obligation met it is either
// waiting on assessments from others or done with a score.
func (s *Service) resolve(wf model.Workflow) (model.WorkflowStatus, *model.Score, error) {
	for _, step := range wf.Steps {
		finished, err := s.submitterFinished(wf, step)
		if err != nil {
			return "", nil, err
		}
		if !finished {
			return model.WorkflowStatus(step), nil, nil
		}
	}
	satisfied, err := s.receiptSatisfied(wf)
	if err != nil {
		return "", nil, err
	}
	if !satisfied {
		return model.StatusWaiting, nil, nil
	}
	score, err := s.score(wf)
	if err != nil {
		return "", nil, err
	}
	return model.StatusDone, score, nil
}

func (s *Service) submitterFinished(wf model.Workflow, step string) (bool, error) {
	switch step {
	case model.StepPeer:
		required := wf.Requirements[model.StepPeer].MustGrade
		if required == 0 {
			return true, nil
		}
		graded, err := s.peer.GradedCount(wf.SubmissionUUID)
		if err != nil {
			return false, err
		}
		return graded >= required, nil
	case model.StepSelf:
		a, err := s.store.LatestAssessment(wf.SubmissionUUID, model.SelfAssessmentType)
		if err != nil {
			return false, err
		}
		return a != nil, nil
	default:
		// Staff and AI grading put no obligation on the submitter.
		return true, nil
	}
}

func (s *Service) receiptSatisfied(wf model.Workflow) (bool, error) {
	for _, step := range wf.Steps {
		switch step {
		case model.StepPeer:
			required := wf.Requirements[model.StepPeer].MustBeGradedBy
			if required == 0 {
				continue
			}
			received, err := s.peer.ReceivedCount(wf.SubmissionUUID)
			if err != nil {
				return false, err
			}
			if received < required {
				return false, nil
			}
		case model.StepStaff:
			a, err := s.store.LatestAssessment(wf.SubmissionUUID, model.StaffAssessmentType)
			if err != nil {
				return false, err
			}
			if a == nil {
				return false, nil
			}
		case model.StepAI:
			a, err := s.store.LatestAssessment(wf.SubmissionUUID, model.AIAssessmentType)
			if err != nil {
				return false, err
			}
			if a == nil {
				return false, nil
			}
		}
	}
	return true, nil
}

// score picks the grade for a completed workflow. A staff assessment
// overrides everything; otherwise the peer medians decide, then the latest
// self or AI assessment for workflows without a peer step.
func (s *Service) score(wf model.Workflow) (*model.Score, error) {
	staff, err := s.store.LatestAssessment(wf.SubmissionUUID, model.StaffAssessmentType)
	if err != nil {
		return nil, err
	}
	if staff != nil {
		return &model.Score{PointsEarned: staff.PointsEarned(), PointsPossible: staff.PointsPossible()}, nil
	}

	maxScores, err := s.peer.RubricMaxScores(wf.SubmissionUUID)
	if err != nil {
		return nil, err
	}
	if maxScores != nil {
		medians, err := s.peer.MedianScores(wf.SubmissionUUID)
		if err != nil {
			return nil, err
		}
		score := &model.Score{}
		for _, median := range medians {
			score.PointsEarned += median
		}
		for _, max := range maxScores {
			score.PointsPossible += max
		}
		return score, nil
	}

	for _, scoreType := range []model.ScoreType{model.SelfAssessmentType, model.AIAssessmentType} {
		a, err := s.store.LatestAssessment(wf.SubmissionUUID, scoreType)
		if err != nil {
			return nil, err
		}
		if a != nil {
			return &model.Score{PointsEarned: a.PointsEarned(), PointsPossible: a.PointsPossible()}, nil
		}
	}
	return nil, nil
}

// Cancel removes a submission from grading: the reason is recorded and the
// workflow lands in the cancelled status for good. Cancelling twice keeps the
// original record.
func (s *Service) Cancel(submissionUUID, comments, cancelledBy string) error {
	if comments == "" {
		return ErrCommentsRequired
	}
	wf, err := s.Get(submissionUUID)
	if err != nil {
		return err
	}
	if wf.Status == model.StatusCancelled {
		return nil
	}
	err = s.store.InsertWorkflowCancellation(model.WorkflowCancellation{
		SubmissionUUID: submissionUUID,
		Comments:       comments,
		CancelledBy:    cancelledBy,
		CreatedAt:      time.Now(),
	})
	if err != nil {
		return err
	}
	return s.store.SetWorkflowStatus(submissionUUID, model.StatusCancelled, nil)
}

// Cancellation returns the cancellation recorded for a submission, or nil.
func (s *Service) Cancellation(submissionUUID string) (*model.WorkflowCancellation, error) {
	return s.store.GetWorkflowCancellation(submissionUUID)
}

// StatusCounts returns the number of workflows per status for a location and
// the total across statuses.
func (s *Service) StatusCounts(courseID, itemID string) (map[string]int, int, error) {
	return s.store.WorkflowStatusCounts(courseID, itemID)
}
