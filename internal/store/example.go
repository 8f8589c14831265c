package store

import (
	"database/sql"
	"encoding/json"

	"github.com/runt18/edx-ora2/internal/model"
)

// InsertExampleSet stores a training example set under its workflow UUID.
func (s *Store) InsertExampleSet(set model.TrainingExampleSet) error {
	rubricID, err := s.GetOrCreateRubric(set.Rubric)
	if err != nil {
		return err
	}
	examples, err := json.Marshal(set.Examples)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(
		`INSERT INTO training_example_sets (workflow_uuid, course_id, item_id, algorithm_id, rubric_id, examples, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		set.WorkflowUUID, set.CourseID, set.ItemID, set.AlgorithmID, rubricID, string(examples), set.CreatedAt,
	)
	return err
}

const exampleSetColumns = `t.workflow_uuid, t.course_id, t.item_id, t.algorithm_id, t.examples, t.created_at, r.criteria`

func scanExampleSet(row interface{ Scan(...any) error }) (model.TrainingExampleSet, error) {
	var set model.TrainingExampleSet
	var examples, criteria string
	err := row.Scan(&set.WorkflowUUID, &set.CourseID, &set.ItemID, &set.AlgorithmID, &examples, &set.CreatedAt, &criteria)
	if err != nil {
		return model.TrainingExampleSet{}, err
	}
	if err := json.Unmarshal([]byte(examples), &set.Examples); err != nil {
		return model.TrainingExampleSet{}, err
	}
	if err := json.Unmarshal([]byte(criteria), &set.Rubric.Criteria); err != nil {
		return model.TrainingExampleSet{}, err
	}
	return set, nil
}

// GetExampleSet returns the example set registered under a workflow UUID.
func (s *Store) GetExampleSet(workflowUUID string) (model.TrainingExampleSet, error) {
	row := s.db.QueryRow(
		`SELECT `+exampleSetColumns+` FROM training_example_sets t
		 JOIN rubrics r ON r.id = t.rubric_id
		 WHERE t.workflow_uuid = ?`, workflowUUID,
	)
	return scanExampleSet(row)
}

// LatestExampleSet returns the most recent example set registered for a
// rubric, algorithm and location, or nil if there is none.
func (s *Store) LatestExampleSet(courseID, itemID, algorithmID, rubricHash string) (*model.TrainingExampleSet, error) {
	row := s.db.QueryRow(
		`SELECT `+exampleSetColumns+` FROM training_example_sets t
		 JOIN rubrics r ON r.id = t.rubric_id
		 WHERE t.course_id = ? AND t.item_id = ? AND t.algorithm_id = ? AND r.content_hash = ?
		 ORDER BY t.id DESC LIMIT 1`,
		courseID, itemID, algorithmID, rubricHash,
	)
	set, err := scanExampleSet(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &set, nil
}

// LatestExampleSetForLocation returns the most recent example set registered
// for a location regardless of rubric or algorithm, or nil if there is none.
func (s *Store) LatestExampleSetForLocation(courseID, itemID string) (*model.TrainingExampleSet, error) {
	row := s.db.QueryRow(
		`SELECT `+exampleSetColumns+` FROM training_example_sets t
		 JOIN rubrics r ON r.id = t.rubric_id
		 WHERE t.course_id = ? AND t.item_id = ?
		 ORDER BY t.id DESC LIMIT 1`,
		courseID, itemID,
	)
	set, err := scanExampleSet(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &set, nil
}
