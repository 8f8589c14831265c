package submissions

import (
	"errors"
	"testing"

	"github.com/runt18/edx-ora2/internal/model"
	"github.com/runt18/edx-ora2/internal/store"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	st, err := store.New(":memory:")
	if err != nil {
		t.Fatalf("newTestService: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return NewService(st)
}

func testItem(studentID string) model.StudentItem {
	return model.StudentItem{
		StudentID: studentID,
		CourseID:  "course-1",
		ItemID:    "item-1",
		ItemType:  model.ItemTypeOpenAssessment,
	}
}

func TestCreateValidation(t *testing.T) {
	svc := newTestService(t)

	tests := []struct {
		name   string
		mutate func(*model.StudentItem)
	}{
		{"empty student id", func(i *model.StudentItem) { i.StudentID = "" }},
		{"empty course id", func(i *model.StudentItem) { i.CourseID = "" }},
		{"empty item id", func(i *model.StudentItem) { i.ItemID = "" }},
		{"empty item type", func(i *model.StudentItem) { i.ItemType = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			item := testItem("alice")
			tt.mutate(&item)
			_, err := svc.Create(item, model.Answer{Text: "hi"})
			if !errors.Is(err, ErrInvalidStudentItem) {
				t.Errorf("Create() error = %v, want ErrInvalidStudentItem", err)
			}
		})
	}

	// Nothing should have been recorded.
	subs, err := svc.List(testItem("alice"), 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(subs) != 0 {
		t.Errorf("expected no submissions after failed creates, got %d", len(subs))
	}
}

func TestCreateAndGet(t *testing.T) {
	svc := newTestService(t)

	sub, err := svc.Create(testItem("alice"), model.Answer{Text: "my response"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if sub.UUID == "" {
		t.Fatal("expected a submission UUID")
	}
	if sub.AttemptNumber != 1 {
		t.Errorf("expected attempt 1, got %d", sub.AttemptNumber)
	}

	got, err := svc.Get(sub.UUID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Answer.Text != "my response" {
		t.Errorf("expected answer round-trip, got %q", got.Answer.Text)
	}
	if got.StudentItem.StudentID != "alice" {
		t.Errorf("expected student item attached, got %q", got.StudentItem.StudentID)
	}

	_, err = svc.Get("missing-uuid")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Get(missing) error = %v, want ErrNotFound", err)
	}
}

func TestResubmissionAttempts(t *testing.T) {
	svc := newTestService(t)

	first, err := svc.Create(testItem("alice"), model.Answer{Text: "v1"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	second, err := svc.Create(testItem("alice"), model.Answer{Text: "v2"})
	if err != nil {
		t.Fatalf("Create second: %v", err)
	}
	if first.UUID == second.UUID {
		t.Fatal("expected resubmission to create a new submission")
	}
	if second.AttemptNumber != 2 {
		t.Errorf("expected attempt 2, got %d", second.AttemptNumber)
	}

	subs, err := svc.List(testItem("alice"), 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(subs) != 2 {
		t.Fatalf("expected 2 submissions, got %d", len(subs))
	}
	if subs[0].UUID != second.UUID {
		t.Errorf("expected newest first, got %q", subs[0].UUID)
	}

	// Limit to the most recent.
	subs, err = svc.List(testItem("alice"), 1)
	if err != nil {
		t.Fatalf("List limit: %v", err)
	}
	if len(subs) != 1 || subs[0].Answer.Text != "v2" {
		t.Error("expected only the latest submission")
	}

	// Unknown student item lists nothing.
	subs, err = svc.List(testItem("nobody"), 0)
	if err != nil {
		t.Fatalf("List unknown: %v", err)
	}
	if len(subs) != 0 {
		t.Errorf("expected empty list, got %d", len(subs))
	}
}
