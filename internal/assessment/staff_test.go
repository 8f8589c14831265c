package assessment

import (
	"errors"
	"testing"

	"github.com/runt18/edx-ora2/internal/model"
)

func TestStaffAssessment(t *testing.T) {
	st := newTestStore(t)
	staff := NewStaffService(st)
	rubric := testRubric()

	sub := createSubmission(t, st, "alice")

	_, err := staff.CreateAssessment("no-such-submission", "staff-1", lowestOptions(rubric), nil, "", rubric)
	if !errors.Is(err, ErrSubmissionNotFound) {
		t.Fatalf("CreateAssessment() error = %v, want ErrSubmissionNotFound", err)
	}

	a, err := staff.CreateAssessment(
		sub.UUID, "staff-1",
		map[string]string{"criterion-0": "option-0-2", "criterion-1": "option-1-2"},
		nil, "solid work", rubric,
	)
	if err != nil {
		t.Fatalf("CreateAssessment: %v", err)
	}
	if a.ScoreType != model.StaffAssessmentType {
		t.Errorf("expected ST score type, got %q", a.ScoreType)
	}
	if a.PointsEarned() != 4 {
		t.Errorf("expected 4 points earned, got %d", a.PointsEarned())
	}

	latest, err := staff.LatestAssessment(sub.UUID)
	if err != nil {
		t.Fatalf("LatestAssessment: %v", err)
	}
	if latest == nil || latest.Feedback != "solid work" {
		t.Fatal("expected the staff assessment back")
	}
}

func TestStaffGradingBacklog(t *testing.T) {
	st := newTestStore(t)
	staff := NewStaffService(st)
	rubric := testRubric()

	first := createSubmission(t, st, "alice")
	second := createSubmission(t, st, "bob")

	next, err := staff.SubmissionToAssess("course-1", "item-1")
	if err != nil {
		t.Fatalf("SubmissionToAssess: %v", err)
	}
	if next == nil || next.UUID != first.UUID {
		t.Fatal("expected the oldest ungraded submission")
	}

	stats, err := staff.GradingStatistics("course-1", "item-1")
	if err != nil {
		t.Fatalf("GradingStatistics: %v", err)
	}
	if stats.Ungraded != 2 || stats.Graded != 0 || stats.InProgress != 0 {
		t.Errorf("unexpected stats %+v", stats)
	}

	if _, err := staff.CreateAssessment(first.UUID, "staff-1", lowestOptions(rubric), nil, "", rubric); err != nil {
		t.Fatalf("CreateAssessment: %v", err)
	}

	next, err = staff.SubmissionToAssess("course-1", "item-1")
	if err != nil {
		t.Fatalf("SubmissionToAssess after grading: %v", err)
	}
	if next == nil || next.UUID != second.UUID {
		t.Fatal("expected the backlog to move on")
	}

	stats, err = staff.GradingStatistics("course-1", "item-1")
	if err != nil {
		t.Fatalf("GradingStatistics after grading: %v", err)
	}
	if stats.Ungraded != 1 || stats.Graded != 1 {
		t.Errorf("unexpected stats %+v", stats)
	}

	// Empty location has an empty backlog.
	next, err = staff.SubmissionToAssess("course-2", "item-9")
	if err != nil {
		t.Fatalf("SubmissionToAssess empty: %v", err)
	}
	if next != nil {
		t.Error("expected nil for an empty location")
	}
}
