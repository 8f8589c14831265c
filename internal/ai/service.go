package ai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/runt18/edx-ora2/internal/assessment"
	"github.com/runt18/edx-ora2/internal/model"
	"github.com/runt18/edx-ora2/internal/store"
)

// TaskTypeGrade names the one reschedulable task type. The original scheduler
// also accepted training reruns, but registering an example set completes
// training here, so only grading carries work to redo.
const TaskTypeGrade = "grade"

var (
	// ErrNoExamples rejects training without any examples.
	ErrNoExamples = errors.New("no training examples supplied")
	// ErrNoClassifierSet means no example set was ever registered for the
	// location.
	ErrNoClassifierSet = errors.New("no classifier set registered for this location")
	// ErrUnknownTaskType rejects task types the scheduler does not know.
	ErrUnknownTaskType = errors.New("unknown task type")
)

// Service owns example-based assessment: registering training example sets
// and scoring submissions through the Client.
type Service struct {
	store  *store.Store
	client Client
}

func NewService(st *store.Store, client Client) *Service {
	return &Service{store: st, client: client}
}

// ScheduleTraining validates a training example set against its rubric,
// stores it, and returns the training workflow UUID it is registered under.
func (s *Service) ScheduleTraining(rubric model.Rubric, examples []model.TrainingExample, courseID, itemID, algorithmID string) (string, error) {
	if len(examples) == 0 {
		return "", ErrNoExamples
	}
	for i, ex := range examples {
		if _, err := assessment.SelectParts(rubric, ex.OptionsSelected, nil); err != nil {
			return "", fmt.Errorf("training example %d: %w", i, err)
		}
	}
	set := model.TrainingExampleSet{
		WorkflowUUID: uuid.NewString(),
		CourseID:     courseID,
		ItemID:       itemID,
		AlgorithmID:  algorithmID,
		Rubric:       rubric,
		Examples:     examples,
		CreatedAt:    time.Now(),
	}
	if err := s.store.InsertExampleSet(set); err != nil {
		return "", fmt.Errorf("store example set: %w", err)
	}
	slog.Info("scheduled example-based training",
		"workflow_uuid", set.WorkflowUUID,
		"course_id", courseID,
		"item_id", itemID,
		"algorithm_id", algorithmID,
		"examples", len(examples),
	)
	return set.WorkflowUUID, nil
}

// ClassifierSetInfo describes the most recent example set registered for the
// rubric, algorithm and location, or nil when none was registered.
func (s *Service) ClassifierSetInfo(rubric model.Rubric, algorithmID, courseID, itemID string) (*model.ClassifierSetInfo, error) {
	set, err := s.store.LatestExampleSet(courseID, itemID, algorithmID, rubric.ContentHash())
	if err != nil {
		return nil, err
	}
	if set == nil {
		return nil, nil
	}
	info := set.Info()
	return &info, nil
}

// LatestClassifierSetInfo describes the most recent example set registered
// anywhere in the location, regardless of rubric or algorithm. The staff area
// shows this; scoring always resolves its set through the stricter lookups.
func (s *Service) LatestClassifierSetInfo(courseID, itemID string) (*model.ClassifierSetInfo, error) {
	set, err := s.store.LatestExampleSetForLocation(courseID, itemID)
	if err != nil {
		return nil, err
	}
	if set == nil {
		return nil, nil
	}
	info := set.Info()
	return &info, nil
}

// LatestAssessment returns the most recent AI assessment of a submission, or
// nil if it was never scored.
func (s *Service) LatestAssessment(submissionUUID string) (*model.Assessment, error) {
	return s.store.LatestAssessment(submissionUUID, model.AIAssessmentType)
}

// RescheduleUnfinishedTasks re-runs AI grading for every submission in the
// location that has no AI assessment yet, using the latest registered example
// set. A failure aborts the run; already-scored submissions keep their
// assessments.
func (s *Service) RescheduleUnfinishedTasks(ctx context.Context, courseID, itemID, taskType string) error {
	if taskType != TaskTypeGrade {
		return fmt.Errorf("%w: %q", ErrUnknownTaskType, taskType)
	}
	set, err := s.store.LatestExampleSetForLocation(courseID, itemID)
	if err != nil {
		return err
	}
	if set == nil {
		return fmt.Errorf("%w: %s/%s", ErrNoClassifierSet, courseID, itemID)
	}

	subs, err := s.store.ListSubmissionsForLocation(courseID, itemID)
	if err != nil {
		return err
	}
	scored := 0
	for _, sub := range subs {
		existing, err := s.store.LatestAssessment(sub.UUID, model.AIAssessmentType)
		if err != nil {
			return err
		}
		if existing != nil {
			continue
		}
		if err := s.scoreSubmission(ctx, set, sub); err != nil {
			return fmt.Errorf("score submission %s: %w", sub.UUID, err)
		}
		scored++
	}
	slog.Info("rescheduled AI grading tasks",
		"course_id", courseID, "item_id", itemID, "scored", scored)
	return nil
}

func (s *Service) scoreSubmission(ctx context.Context, set *model.TrainingExampleSet, sub model.Submission) error {
	selected, err := s.client.ScoreResponse(ctx, set.Rubric, set.Examples, sub.Answer.Text)
	if err != nil {
		return err
	}
	parts, err := assessment.SelectParts(set.Rubric, selected, nil)
	if err != nil {
		return err
	}
	a := model.Assessment{
		SubmissionUUID: sub.UUID,
		Rubric:         set.Rubric,
		ScorerID:       set.AlgorithmID,
		ScoreType:      model.AIAssessmentType,
		Parts:          parts,
		ScoredAt:       time.Now(),
	}
	_, err = s.store.InsertAssessment(a)
	return err
}
