package store

import (
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/runt18/edx-ora2/internal/model"
)

func insertTestWorkflow(t *testing.T, s *Store, submissionUUID string, status model.WorkflowStatus) {
	t.Helper()
	now := time.Now()
	err := s.InsertWorkflow(model.Workflow{
		SubmissionUUID: submissionUUID,
		CourseID:       "course-1",
		ItemID:         "item-1",
		Steps:          []string{model.StepPeer, model.StepSelf},
		Status:         status,
		CreatedAt:      now,
		ModifiedAt:     now,
	})
	if err != nil {
		t.Fatalf("insertTestWorkflow: %v", err)
	}
}

func TestWorkflowRoundTrip(t *testing.T) {
	s := newTestStore(t)

	sub := createTestSubmission(t, s, "alice", "course-1", "item-1")
	insertTestWorkflow(t, s, sub.UUID, model.WorkflowStatus(model.StepPeer))

	wf, err := s.GetWorkflow(sub.UUID)
	if err != nil {
		t.Fatalf("GetWorkflow: %v", err)
	}
	if wf.Status != model.WorkflowStatus(model.StepPeer) {
		t.Errorf("expected status peer, got %q", wf.Status)
	}
	if len(wf.Steps) != 2 || wf.Steps[0] != model.StepPeer || wf.Steps[1] != model.StepSelf {
		t.Errorf("expected steps [peer self], got %v", wf.Steps)
	}

	// Requirements start unset.
	if wf.Requirements != nil {
		t.Error("expected nil requirements on a fresh workflow")
	}
	if wf.Gradable() {
		t.Error("workflow without requirements must not be gradable")
	}
	if wf.Score != nil {
		t.Error("expected no score on a fresh workflow")
	}

	// Not found.
	_, err = s.GetWorkflow("no-such-uuid")
	if err != sql.ErrNoRows {
		t.Errorf("expected ErrNoRows, got %v", err)
	}

	// Set requirements and read them back.
	req := model.Requirements{
		model.StepPeer: {MustGrade: 1, MustBeGradedBy: 1},
	}
	if err := s.SetWorkflowRequirements(sub.UUID, req); err != nil {
		t.Fatalf("SetWorkflowRequirements: %v", err)
	}
	wf, err = s.GetWorkflow(sub.UUID)
	if err != nil {
		t.Fatalf("GetWorkflow after requirements: %v", err)
	}
	if !wf.Gradable() {
		t.Fatal("expected workflow to be gradable once requirements are set")
	}
	if wf.Requirements[model.StepPeer].MustGrade != 1 {
		t.Errorf("expected must_grade 1, got %d", wf.Requirements[model.StepPeer].MustGrade)
	}

	// Status with a score.
	score := &model.Score{PointsEarned: 3, PointsPossible: 10}
	if err := s.SetWorkflowStatus(sub.UUID, model.StatusDone, score); err != nil {
		t.Fatalf("SetWorkflowStatus: %v", err)
	}
	wf, err = s.GetWorkflow(sub.UUID)
	if err != nil {
		t.Fatalf("GetWorkflow after status: %v", err)
	}
	if wf.Status != model.StatusDone {
		t.Errorf("expected status done, got %q", wf.Status)
	}
	if wf.Score == nil || wf.Score.PointsEarned != 3 || wf.Score.PointsPossible != 10 {
		t.Errorf("expected score 3/10, got %+v", wf.Score)
	}
}

func TestWorkflowStatusCounts(t *testing.T) {
	s := newTestStore(t)

	for i, status := range []model.WorkflowStatus{
		model.WorkflowStatus(model.StepPeer),
		model.WorkflowStatus(model.StepPeer),
		model.WorkflowStatus(model.StepSelf),
		model.StatusDone,
	} {
		sub := createTestSubmission(t, s, "student-"+string(rune('a'+i)), "course-1", "item-1")
		insertTestWorkflow(t, s, sub.UUID, status)
	}

	counts, total, err := s.WorkflowStatusCounts("course-1", "item-1")
	if err != nil {
		t.Fatalf("WorkflowStatusCounts: %v", err)
	}
	if total != 4 {
		t.Errorf("expected total 4, got %d", total)
	}
	if counts["peer"] != 2 {
		t.Errorf("expected 2 in peer, got %d", counts["peer"])
	}
	if counts["self"] != 1 {
		t.Errorf("expected 1 in self, got %d", counts["self"])
	}
	if counts["done"] != 1 {
		t.Errorf("expected 1 done, got %d", counts["done"])
	}

	// A different location is empty.
	counts, total, err = s.WorkflowStatusCounts("course-2", "item-1")
	if err != nil {
		t.Fatalf("WorkflowStatusCounts empty: %v", err)
	}
	if total != 0 || len(counts) != 0 {
		t.Errorf("expected empty counts, got %v (total %d)", counts, total)
	}
}

func TestWorkflowCancellation(t *testing.T) {
	s := newTestStore(t)

	sub := createTestSubmission(t, s, "alice", "course-1", "item-1")
	insertTestWorkflow(t, s, sub.UUID, model.WorkflowStatus(model.StepPeer))

	// No cancellation yet.
	c, err := s.GetWorkflowCancellation(sub.UUID)
	if err != nil {
		t.Fatalf("GetWorkflowCancellation: %v", err)
	}
	if c != nil {
		t.Error("expected nil before cancelling")
	}

	err = s.InsertWorkflowCancellation(model.WorkflowCancellation{
		SubmissionUUID: sub.UUID,
		Comments:       "plagiarized response",
		CancelledBy:    "staff-1",
		CreatedAt:      time.Now(),
	})
	if err != nil {
		t.Fatalf("InsertWorkflowCancellation: %v", err)
	}

	c, err = s.GetWorkflowCancellation(sub.UUID)
	if err != nil {
		t.Fatalf("GetWorkflowCancellation after insert: %v", err)
	}
	if c == nil {
		t.Fatal("expected a cancellation record")
	}
	if c.Comments != "plagiarized response" {
		t.Errorf("expected comments round-trip, got %q", c.Comments)
	}
	if c.CancelledBy != "staff-1" {
		t.Errorf("expected cancelled_by staff-1, got %q", c.CancelledBy)
	}
}

func TestExampleSets(t *testing.T) {
	s := newTestStore(t)

	rubric := testRubric()

	// Nothing registered yet.
	set, err := s.LatestExampleSet("course-1", "item-1", "ease", rubric.ContentHash())
	if err != nil {
		t.Fatalf("LatestExampleSet: %v", err)
	}
	if set != nil {
		t.Error("expected nil before registering a set")
	}

	first := model.TrainingExampleSet{
		WorkflowUUID: uuid.NewString(),
		CourseID:     "course-1",
		ItemID:       "item-1",
		AlgorithmID:  "ease",
		Rubric:       rubric,
		Examples: []model.TrainingExample{
			{
				Answer:          model.Answer{Text: "a sample answer"},
				OptionsSelected: map[string]string{"criterion-0": "option-0-0", "criterion-1": "option-1-2"},
			},
		},
		CreatedAt: time.Now(),
	}
	if err := s.InsertExampleSet(first); err != nil {
		t.Fatalf("InsertExampleSet: %v", err)
	}

	second := first
	second.WorkflowUUID = uuid.NewString()
	second.Examples = append(second.Examples, model.TrainingExample{
		Answer:          model.Answer{Text: "another sample"},
		OptionsSelected: map[string]string{"criterion-0": "option-0-1", "criterion-1": "option-1-0"},
	})
	second.CreatedAt = time.Now()
	if err := s.InsertExampleSet(second); err != nil {
		t.Fatalf("InsertExampleSet second: %v", err)
	}

	got, err := s.GetExampleSet(first.WorkflowUUID)
	if err != nil {
		t.Fatalf("GetExampleSet: %v", err)
	}
	if len(got.Examples) != 1 {
		t.Errorf("expected 1 example, got %d", len(got.Examples))
	}
	if got.Rubric.ContentHash() != rubric.ContentHash() {
		t.Error("expected rubric to round-trip")
	}

	latest, err := s.LatestExampleSet("course-1", "item-1", "ease", rubric.ContentHash())
	if err != nil {
		t.Fatalf("LatestExampleSet after inserts: %v", err)
	}
	if latest == nil || latest.WorkflowUUID != second.WorkflowUUID {
		t.Fatal("expected the most recent set")
	}
	if len(latest.Examples) != 2 {
		t.Errorf("expected 2 examples, got %d", len(latest.Examples))
	}

	byLocation, err := s.LatestExampleSetForLocation("course-1", "item-1")
	if err != nil {
		t.Fatalf("LatestExampleSetForLocation: %v", err)
	}
	if byLocation == nil || byLocation.WorkflowUUID != second.WorkflowUUID {
		t.Fatal("expected the most recent set for the location")
	}
}
