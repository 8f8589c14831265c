package model

import (
	"strings"
	"testing"
)

func sampleRubric() Rubric {
	return Rubric{Criteria: []Criterion{
		{
			Order:  0,
			Name:   "clarity",
			Prompt: "How clear is the response?",
			Options: []Option{
				{Order: 0, Points: 0, Name: "poor", Explanation: "Hard to follow."},
				{Order: 1, Points: 1, Name: "fair", Explanation: "Mostly clear."},
				{Order: 2, Points: 2, Name: "good", Explanation: "Clear throughout."},
			},
		},
		{
			Order:  1,
			Name:   "accuracy",
			Prompt: "How accurate is the response?",
			Options: []Option{
				{Order: 0, Points: 0, Name: "wrong", Explanation: "Factually wrong."},
				{Order: 1, Points: 3, Name: "right", Explanation: "Factually right."},
			},
		},
	}}
}

func TestRubricValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Rubric)
		wantErr string
	}{
		{name: "valid", mutate: func(r *Rubric) {}},
		{
			name:    "no criteria",
			mutate:  func(r *Rubric) { r.Criteria = nil },
			wantErr: "no criteria",
		},
		{
			name:    "unnamed criterion",
			mutate:  func(r *Rubric) { r.Criteria[0].Name = "" },
			wantErr: "unnamed criterion",
		},
		{
			name:    "duplicate criterion",
			mutate:  func(r *Rubric) { r.Criteria[1].Name = "clarity" },
			wantErr: "duplicate criterion",
		},
		{
			name:    "no options",
			mutate:  func(r *Rubric) { r.Criteria[1].Options = nil },
			wantErr: "has no options",
		},
		{
			name:    "duplicate option",
			mutate:  func(r *Rubric) { r.Criteria[0].Options[1].Name = "poor" },
			wantErr: "duplicate option",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := sampleRubric()
			tt.mutate(&r)
			err := r.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() = %v, want nil", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Validate() = nil, want error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() = %q, want it to contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestRubricContentHash(t *testing.T) {
	a := sampleRubric()
	b := sampleRubric()
	if a.ContentHash() != b.ContentHash() {
		t.Error("identical rubrics should share a content hash")
	}

	b.Criteria[0].Options[0].Points = 5
	if a.ContentHash() == b.ContentHash() {
		t.Error("changed rubric should get a new content hash")
	}
}

func TestRubricMaxScores(t *testing.T) {
	scores := sampleRubric().MaxScores()
	if scores["clarity"] != 2 {
		t.Errorf("clarity max = %d, want 2", scores["clarity"])
	}
	if scores["accuracy"] != 3 {
		t.Errorf("accuracy max = %d, want 3", scores["accuracy"])
	}
}

func TestAssessmentPoints(t *testing.T) {
	a := Assessment{
		Rubric: sampleRubric(),
		Parts: []AssessmentPart{
			{CriterionName: "clarity", OptionName: "fair", Points: 1},
			{CriterionName: "accuracy", OptionName: "right", Points: 3},
		},
	}
	if got := a.PointsEarned(); got != 4 {
		t.Errorf("PointsEarned() = %d, want 4", got)
	}
	if got := a.PointsPossible(); got != 5 {
		t.Errorf("PointsPossible() = %d, want 5", got)
	}
}
