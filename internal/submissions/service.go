// Package submissions records student responses and hands them back to the
// grading steps. Submissions are immutable; a student submitting again gets a
// new submission with the next attempt number.
package submissions

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/runt18/edx-ora2/internal/model"
	"github.com/runt18/edx-ora2/internal/store"
)

var (
	// ErrInvalidStudentItem means a student item field needed to identify
	// the work was empty.
	ErrInvalidStudentItem = errors.New("invalid student item")
	// ErrNotFound means no submission exists under the requested UUID.
	ErrNotFound = errors.New("submission not found")
)

// Service records and retrieves submissions.
type Service struct {
	store *store.Store
}

func NewService(st *store.Store) *Service {
	return &Service{store: st}
}

// Create stores a new submission for a student item and returns it.
func (s *Service) Create(item model.StudentItem, answer model.Answer) (model.Submission, error) {
	if err := validateStudentItem(item); err != nil {
		return model.Submission{}, err
	}
	item, err := s.store.GetOrCreateStudentItem(item)
	if err != nil {
		return model.Submission{}, fmt.Errorf("student item: %w", err)
	}
	count, err := s.store.CountSubmissionsForItem(item.ID)
	if err != nil {
		return model.Submission{}, fmt.Errorf("count submissions: %w", err)
	}
	sub := model.Submission{
		UUID:          uuid.NewString(),
		StudentItem:   item,
		AttemptNumber: count + 1,
		Answer:        answer,
		SubmittedAt:   time.Now(),
	}
	if err := s.store.InsertSubmission(sub); err != nil {
		return model.Submission{}, fmt.Errorf("insert submission: %w", err)
	}
	return sub, nil
}

func validateStudentItem(item model.StudentItem) error {
	switch {
	case item.StudentID == "":
		return fmt.Errorf("%w: student id is empty", ErrInvalidStudentItem)
	case item.CourseID == "":
		return fmt.Errorf("%w: course id is empty", ErrInvalidStudentItem)
	case item.ItemID == "":
		return fmt.Errorf("%w: item id is empty", ErrInvalidStudentItem)
	case item.ItemType == "":
		return fmt.Errorf("%w: item type is empty", ErrInvalidStudentItem)
	}
	return nil
}

// Get returns a submission together with its student item.
func (s *Service) Get(submissionUUID string) (model.Submission, error) {
	sub, err := s.store.GetSubmission(submissionUUID)
	if err == sql.ErrNoRows {
		return model.Submission{}, fmt.Errorf("%w: %s", ErrNotFound, submissionUUID)
	}
	if err != nil {
		return model.Submission{}, err
	}
	return sub, nil
}

// List returns a student item's submissions, newest first. A limit of 0
// returns all of them. A student item nobody has submitted for yet yields an
// empty list.
func (s *Service) List(item model.StudentItem, limit int) ([]model.Submission, error) {
	stored, err := s.store.GetStudentItem(item.StudentID, item.CourseID, item.ItemID, item.ItemType)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return s.store.ListSubmissionsForItem(stored.ID, limit)
}
