package model

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"
)

// ItemTypeOpenAssessment is the item type recorded for every student item
// this plugin creates.
const ItemTypeOpenAssessment = "openassessment"

// StudentItem identifies one student's work on one assessment item in a course.
type StudentItem struct {
	ID        int64  `json:"-"`
	StudentID string `json:"student_id"`
	CourseID  string `json:"course_id"`
	ItemID    string `json:"item_id"`
	ItemType  string `json:"item_type"`
}

// Answer is a submitted response: free text plus an optional uploaded file key.
type Answer struct {
	Text    string `json:"text"`
	FileKey string `json:"file_key,omitempty"`
}

// Submission is one response a student has submitted for an item. Submissions
// are immutable; submitting again for the same item creates a new one with a
// higher attempt number.
type Submission struct {
	UUID          string      `json:"uuid"`
	StudentItem   StudentItem `json:"student_item"`
	AttemptNumber int         `json:"attempt_number"`
	Answer        Answer      `json:"answer"`
	SubmittedAt   time.Time   `json:"submitted_at"`
}

// Option is one selectable level of a rubric criterion.
type Option struct {
	Order       int    `json:"order_num"`
	Points      int    `json:"points"`
	Name        string `json:"name"`
	Explanation string `json:"explanation"`
}

// Criterion is one dimension a submission is judged on.
type Criterion struct {
	Order   int      `json:"order_num"`
	Name    string   `json:"name"`
	Prompt  string   `json:"prompt"`
	Options []Option `json:"options"`
}

// Rubric is the grading contract assessments are made against.
type Rubric struct {
	Criteria []Criterion `json:"criteria"`
}

// ContentHash returns a stable identifier for the rubric's content. Rubrics
// with identical criteria share a hash and are stored once.
func (r Rubric) ContentHash() string {
	b, _ := json.Marshal(r.Criteria)
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// MaxScores returns the highest option points for each criterion, keyed by
// criterion name.
func (r Rubric) MaxScores() map[string]int {
	scores := make(map[string]int, len(r.Criteria))
	for _, c := range r.Criteria {
		max := 0
		for _, o := range c.Options {
			if o.Points > max {
				max = o.Points
			}
		}
		scores[c.Name] = max
	}
	return scores
}

// CriterionOption looks up an option by criterion and option name.
func (r Rubric) CriterionOption(criterionName, optionName string) (Option, bool) {
	for _, c := range r.Criteria {
		if c.Name != criterionName {
			continue
		}
		for _, o := range c.Options {
			if o.Name == optionName {
				return o, true
			}
		}
	}
	return Option{}, false
}

// Validate checks that the rubric can be assessed against: at least one
// criterion, at least one option per criterion, and unambiguous names.
func (r Rubric) Validate() error {
	if len(r.Criteria) == 0 {
		return fmt.Errorf("rubric has no criteria")
	}
	seen := make(map[string]bool, len(r.Criteria))
	for _, c := range r.Criteria {
		if c.Name == "" {
			return fmt.Errorf("rubric has an unnamed criterion")
		}
		if seen[c.Name] {
			return fmt.Errorf("duplicate criterion name %q", c.Name)
		}
		seen[c.Name] = true
		if len(c.Options) == 0 {
			return fmt.Errorf("criterion %q has no options", c.Name)
		}
		opts := make(map[string]bool, len(c.Options))
		for _, o := range c.Options {
			if o.Name == "" {
				return fmt.Errorf("criterion %q has an unnamed option", c.Name)
			}
			if opts[o.Name] {
				return fmt.Errorf("criterion %q has duplicate option name %q", c.Name, o.Name)
			}
			opts[o.Name] = true
		}
	}
	return nil
}

// ScoreType identifies which grading step produced an assessment.
type ScoreType string

const (
	// PeerAssessmentType marks assessments authored by other learners.
	PeerAssessmentType ScoreType = "PE"
	// SelfAssessmentType marks a learner's assessment of their own response.
	SelfAssessmentType ScoreType = "SE"
	// StaffAssessmentType marks assessments authored by course staff.
	StaffAssessmentType ScoreType = "ST"
	// AIAssessmentType marks assessments produced by the example-based scorer.
	AIAssessmentType ScoreType = "AI"
)

// AssessmentPart records the option selected for one criterion.
type AssessmentPart struct {
	CriterionName string `json:"criterion_name"`
	OptionName    string `json:"option_name"`
	Points        int    `json:"points"`
	Feedback      string `json:"feedback,omitempty"`
}

// Assessment is one completed evaluation of a submission against a rubric.
type Assessment struct {
	ID             int64            `json:"id"`
	SubmissionUUID string           `json:"submission_uuid"`
	Rubric         Rubric           `json:"rubric"`
	ScorerID       string           `json:"scorer_id"`
	ScoreType      ScoreType        `json:"score_type"`
	Feedback       string           `json:"feedback,omitempty"`
	Parts          []AssessmentPart `json:"parts"`
	ScoredAt       time.Time        `json:"scored_at"`
}

// PointsEarned sums the selected option points across all parts.
func (a Assessment) PointsEarned() int {
	total := 0
	for _, p := range a.Parts {
		total += p.Points
	}
	return total
}

// PointsPossible sums the rubric's maximum option points across all criteria.
func (a Assessment) PointsPossible() int {
	total := 0
	for _, max := range a.Rubric.MaxScores() {
		total += max
	}
	return total
}

// Workflow step names.
const (
	StepPeer  = "peer"
	StepSelf  = "self"
	StepStaff = "staff"
	StepAI    = "ai"
)

// KnownStep reports whether name is a recognized workflow step.
func KnownStep(name string) bool {
	switch name {
	case StepPeer, StepSelf, StepStaff, StepAI:
		return true
	}
	return false
}

// WorkflowStatus is a workflow's position in the grading lifecycle. While a
// submission is being graded the status is the name of the current step;
// afterwards it is one of the terminal statuses below.
type WorkflowStatus string

const (
	// StatusWaiting means the student finished every step but is still
	// waiting on enough assessments from others.
	StatusWaiting WorkflowStatus = "waiting"
	// StatusDone means grading finished and a score was recorded.
	StatusDone WorkflowStatus = "done"
	// StatusCancelled means staff removed the submission from grading.
	StatusCancelled WorkflowStatus = "cancelled"
)

// StepRequirements are the per-step obligations used to advance a workflow.
type StepRequirements struct {
	MustGrade      int `json:"must_grade"`
	MustBeGradedBy int `json:"must_be_graded_by"`
}

// Requirements maps step names to their requirements. A nil map means the
// requirements were never supplied.
type Requirements map[string]StepRequirements

// Score is the final grade attached to a completed workflow.
type Score struct {
	PointsEarned   int `json:"points_earned"`
	PointsPossible int `json:"points_possible"`
}

// Workflow tracks a submission's progress through its assessment steps.
type Workflow struct {
	SubmissionUUID string         `json:"submission_uuid"`
	CourseID       string         `json:"course_id"`
	ItemID         string         `json:"item_id"`
	Steps          []string       `json:"steps"`
	Requirements   Requirements   `json:"requirements,omitempty"`
	Status         WorkflowStatus `json:"status"`
	Score          *Score         `json:"score,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	ModifiedAt     time.Time      `json:"modified_at"`
}

// Gradable reports whether the workflow has requirements recorded. A workflow
// created without requirements sits at its first step until they arrive.
func (w Workflow) Gradable() bool {
	return w.Requirements != nil
}

// WorkflowCancellation records who removed a submission from grading and why.
type WorkflowCancellation struct {
	SubmissionUUID string    `json:"submission_uuid"`
	Comments       string    `json:"comments"`
	CancelledBy    string    `json:"cancelled_by"`
	CreatedAt      time.Time `json:"created_at"`
}

// PeerWorkflowItem links a scorer's own submission to a submission handed to
// them for peer assessment. AssessmentID is set once the assessment is made.
type PeerWorkflowItem struct {
	ID                   int64     `json:"id"`
	ScorerSubmissionUUID string    `json:"scorer_submission_uuid"`
	TargetSubmissionUUID string    `json:"target_submission_uuid"`
	AssessmentID         *int64    `json:"assessment_id,omitempty"`
	RequiredGrades       int       `json:"required_grades"`
	CreatedAt            time.Time `json:"created_at"`
}

// Assessed reports whether the scorer has completed this item.
func (i PeerWorkflowItem) Assessed() bool {
	return i.AssessmentID != nil
}

// TrainingExample pairs a sample answer with the option selections the
// example-based scorer should learn to reproduce.
type TrainingExample struct {
	Answer          Answer            `json:"answer"`
	OptionsSelected map[string]string `json:"options_selected"`
}

// TrainingExampleSet is a stored batch of training examples, registered under
// a training-workflow UUID for one rubric, algorithm and location.
type TrainingExampleSet struct {
	WorkflowUUID string            `json:"workflow_uuid"`
	CourseID     string            `json:"course_id"`
	ItemID       string            `json:"item_id"`
	AlgorithmID  string            `json:"algorithm_id"`
	Rubric       Rubric            `json:"rubric"`
	Examples     []TrainingExample `json:"examples"`
	CreatedAt    time.Time         `json:"created_at"`
}

// Info summarizes the set for staff display.
func (s TrainingExampleSet) Info() ClassifierSetInfo {
	return ClassifierSetInfo{
		WorkflowUUID: s.WorkflowUUID,
		AlgorithmID:  s.AlgorithmID,
		CourseID:     s.CourseID,
		ItemID:       s.ItemID,
		ExampleCount: len(s.Examples),
		CreatedAt:    s.CreatedAt,
	}
}

// ClassifierSetInfo describes the most recent training example set registered
// for a rubric, algorithm and location.
type ClassifierSetInfo struct {
	WorkflowUUID string    `json:"workflow_uuid"`
	AlgorithmID  string    `json:"algorithm_id"`
	CourseID     string    `json:"course_id"`
	ItemID       string    `json:"item_id"`
	ExampleCount int       `json:"example_count"`
	CreatedAt    time.Time `json:"created_at"`
}

// StaffGradingStats summarizes the staff grading backlog for one location.
type StaffGradingStats struct {
	Ungraded   int `json:"ungraded"`
	InProgress int `json:"in_progress"`
	Graded     int `json:"graded"`
}
