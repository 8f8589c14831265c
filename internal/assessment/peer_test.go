package assessment

import (
	"errors"
	"testing"

	"github.com/runt18/edx-ora2/internal/model"
)

func TestCreateWorkflowItemRequiresSubmissions(t *testing.T) {
	st := newTestStore(t)
	peer := NewPeerService(st)

	target := createSubmission(t, st, "author")

	// A scorer with no submission of their own cannot be handed work.
	_, err := peer.CreateWorkflowItem("no-such-submission", target.UUID)
	if !errors.Is(err, ErrNoScorerSubmission) {
		t.Fatalf("CreateWorkflowItem() error = %v, want ErrNoScorerSubmission", err)
	}

	scorer := createSubmission(t, st, "scorer")

	// The target must exist as well.
	_, err = peer.CreateWorkflowItem(scorer.UUID, "no-such-submission")
	if !errors.Is(err, ErrSubmissionNotFound) {
		t.Fatalf("CreateWorkflowItem() error = %v, want ErrSubmissionNotFound", err)
	}

	item, err := peer.CreateWorkflowItem(scorer.UUID, target.UUID)
	if err != nil {
		t.Fatalf("CreateWorkflowItem: %v", err)
	}
	if item.TargetSubmissionUUID != target.UUID {
		t.Errorf("expected item targeting %s, got %s", target.UUID, item.TargetSubmissionUUID)
	}

	// Linking again is idempotent.
	again, err := peer.CreateWorkflowItem(scorer.UUID, target.UUID)
	if err != nil {
		t.Fatalf("CreateWorkflowItem again: %v", err)
	}
	if again.ID != item.ID {
		t.Errorf("expected the same item, got %d and %d", item.ID, again.ID)
	}
}

func TestCreatePeerAssessment(t *testing.T) {
	st := newTestStore(t)
	peer := NewPeerService(st)
	rubric := testRubric()

	scorer := createSubmission(t, st, "scorer")
	target := createSubmission(t, st, "author")

	// Nothing checked out yet.
	_, err := peer.CreateAssessment(scorer.UUID, "scorer", lowestOptions(rubric), nil, "", rubric, 3)
	if !errors.Is(err, ErrNoOpenItem) {
		t.Fatalf("CreateAssessment() error = %v, want ErrNoOpenItem", err)
	}

	if _, err := peer.CreateWorkflowItem(scorer.UUID, target.UUID); err != nil {
		t.Fatalf("CreateWorkflowItem: %v", err)
	}

	// The scorer id must own the scorer submission.
	_, err = peer.CreateAssessment(scorer.UUID, "somebody-else", lowestOptions(rubric), nil, "", rubric, 3)
	if !errors.Is(err, ErrScorerMismatch) {
		t.Fatalf("CreateAssessment() error = %v, want ErrScorerMismatch", err)
	}

	// A broken quota is rejected up front.
	_, err = peer.CreateAssessment(scorer.UUID, "scorer", lowestOptions(rubric), nil, "", rubric, 0)
	if !errors.Is(err, ErrInvalidRequiredGrades) {
		t.Fatalf("CreateAssessment() error = %v, want ErrInvalidRequiredGrades", err)
	}

	// Bad selections leave nothing recorded.
	_, err = peer.CreateAssessment(scorer.UUID, "scorer", map[string]string{"criterion-0": "nope"}, nil, "", rubric, 3)
	if err == nil {
		t.Fatal("expected an error for bad selections")
	}
	received, err := peer.ReceivedCount(target.UUID)
	if err != nil {
		t.Fatalf("ReceivedCount: %v", err)
	}
	if received != 0 {
		t.Fatalf("expected no assessments after failures, got %d", received)
	}

	a, err := peer.CreateAssessment(
		scorer.UUID, "scorer",
		lowestOptions(rubric), map[string]string{"criterion-0": "too terse"},
		"overall: promising start", rubric, 3,
	)
	if err != nil {
		t.Fatalf("CreateAssessment: %v", err)
	}
	if a.SubmissionUUID != target.UUID {
		t.Errorf("expected assessment on %s, got %s", target.UUID, a.SubmissionUUID)
	}
	if a.ScoreType != model.PeerAssessmentType {
		t.Errorf("expected PE score type, got %q", a.ScoreType)
	}
	if a.PointsEarned() != 0 {
		t.Errorf("expected lowest options to earn 0, got %d", a.PointsEarned())
	}

	// The open item is consumed.
	_, err = peer.CreateAssessment(scorer.UUID, "scorer", lowestOptions(rubric), nil, "", rubric, 3)
	if !errors.Is(err, ErrNoOpenItem) {
		t.Fatalf("CreateAssessment() after consume error = %v, want ErrNoOpenItem", err)
	}

	// Both sides of the bookkeeping see the assessment.
	receivedList, err := peer.Assessments(target.UUID)
	if err != nil {
		t.Fatalf("Assessments: %v", err)
	}
	if len(receivedList) != 1 {
		t.Fatalf("expected 1 received assessment, got %d", len(receivedList))
	}
	if receivedList[0].Parts[0].Feedback != "too terse" {
		t.Errorf("expected criterion feedback round-trip, got %q", receivedList[0].Parts[0].Feedback)
	}

	submitted, err := peer.SubmittedAssessments(scorer.UUID)
	if err != nil {
		t.Fatalf("SubmittedAssessments: %v", err)
	}
	if len(submitted) != 1 {
		t.Fatalf("expected 1 submitted assessment, got %d", len(submitted))
	}

	graded, err := peer.GradedCount(scorer.UUID)
	if err != nil {
		t.Fatalf("GradedCount: %v", err)
	}
	if graded != 1 {
		t.Errorf("expected graded count 1, got %d", graded)
	}
}

func TestPeerScoring(t *testing.T) {
	st := newTestStore(t)
	peer := NewPeerService(st)
	rubric := testRubric()

	target := createSubmission(t, st, "author")

	// No assessments: no max scores, empty medians.
	maxScores, err := peer.RubricMaxScores(target.UUID)
	if err != nil {
		t.Fatalf("RubricMaxScores: %v", err)
	}
	if maxScores != nil {
		t.Errorf("expected nil max scores, got %v", maxScores)
	}

	selections := []map[string]string{
		{"criterion-0": "option-0-0", "criterion-1": "option-1-2"},
		{"criterion-0": "option-0-1", "criterion-1": "option-1-2"},
		{"criterion-0": "option-0-2", "criterion-1": "option-1-0"},
	}
	for i, selected := range selections {
		scorer := createSubmission(t, st, "scorer-"+string(rune('a'+i)))
		if _, err := peer.CreateWorkflowItem(scorer.UUID, target.UUID); err != nil {
			t.Fatalf("CreateWorkflowItem: %v", err)
		}
		scorerID := scorer.StudentItem.StudentID
		if _, err := peer.CreateAssessment(scorer.UUID, scorerID, selected, nil, "", rubric, 1); err != nil {
			t.Fatalf("CreateAssessment %d: %v", i, err)
		}
	}

	medians, err := peer.MedianScores(target.UUID)
	if err != nil {
		t.Fatalf("MedianScores: %v", err)
	}
	if medians["criterion-0"] != 1 {
		t.Errorf("median criterion-0 = %d, want 1", medians["criterion-0"])
	}
	if medians["criterion-1"] != 2 {
		t.Errorf("median criterion-1 = %d, want 2", medians["criterion-1"])
	}

	maxScores, err = peer.RubricMaxScores(target.UUID)
	if err != nil {
		t.Fatalf("RubricMaxScores after assessments: %v", err)
	}
	if maxScores["criterion-0"] != 2 || maxScores["criterion-1"] != 2 {
		t.Errorf("unexpected max scores %v", maxScores)
	}
}
