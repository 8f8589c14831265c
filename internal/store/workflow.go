package store

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/runt18/edx-ora2/internal/model"
)

// InsertWorkflow stores a new workflow.
func (s *Store) InsertWorkflow(w model.Workflow) error {
	steps, err := json.Marshal(w.Steps)
	if err != nil {
		return err
	}
	var requirements any
	if w.Requirements != nil {
		b, err := json.Marshal(w.Requirements)
		if err != nil {
			return err
		}
		requirements = string(b)
	}
	_, err = s.db.Exec(
		`INSERT INTO workflows (submission_uuid, course_id, item_id, steps, requirements, status, created_at, modified_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		w.SubmissionUUID, w.CourseID, w.ItemID, string(steps), requirements, w.Status, w.CreatedAt, w.ModifiedAt,
	)
	return err
}

// GetWorkflow returns the workflow for a submission.
func (s *Store) GetWorkflow(submissionUUID string) (model.Workflow, error) {
	var w model.Workflow
	var steps string
	var requirements sql.NullString
	var earned, possible sql.NullInt64
	err := s.db.QueryRow(
		`SELECT submission_uuid, course_id, item_id, steps, requirements, status,
		        points_earned, points_possible, created_at, modified_at
		 FROM workflows WHERE submission_uuid = ?`, submissionUUID,
	).Scan(
		&w.SubmissionUUID, &w.CourseID, &w.ItemID, &steps, &requirements, &w.Status,
		&earned, &possible, &w.CreatedAt, &w.ModifiedAt,
	)
	if err != nil {
		return model.Workflow{}, err
	}
	if err := json.Unmarshal([]byte(steps), &w.Steps); err != nil {
		return model.Workflow{}, err
	}
	if requirements.Valid {
		if err := json.Unmarshal([]byte(requirements.String), &w.Requirements); err != nil {
			return model.Workflow{}, err
		}
	}
	if earned.Valid && possible.Valid {
		w.Score = &model.Score{PointsEarned: int(earned.Int64), PointsPossible: int(possible.Int64)}
	}
	return w, nil
}

// SetWorkflowRequirements replaces a workflow's step requirements.
func (s *Store) SetWorkflowRequirements(submissionUUID string, requirements model.Requirements) error {
	b, err := json.Marshal(requirements)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(
		`UPDATE workflows SET requirements = ?, modified_at = ? WHERE submission_uuid = ?`,
		string(b), time.Now(), submissionUUID,
	)
	return err
}

// SetWorkflowStatus updates a workflow's status and, when the workflow is
// done, its score.
func (s *Store) SetWorkflowStatus(submissionUUID string, status model.WorkflowStatus, score *model.Score) error {
	if score != nil {
		_, err := s.db.Exec(
			`UPDATE workflows SET status = ?, points_earned = ?, points_possible = ?, modified_at = ?
			 WHERE submission_uuid = ?`,
			status, score.PointsEarned, score.PointsPossible, time.Now(), submissionUUID,
		)
		return err
	}
	_, err := s.db.Exec(
		`UPDATE workflows SET status = ?, modified_at = ? WHERE submission_uuid = ?`,
		status, time.Now(), submissionUUID,
	)
	return err
}

// WorkflowStatusCounts returns the number of workflows per status for a
// location, along with the total.
func (s *Store) WorkflowStatusCounts(courseID, itemID string) (map[string]int, int, error) {
	rows, err := s.db.Query(
		`SELECT status, COUNT(*) FROM workflows
		 WHERE course_id = ? AND item_id = ? GROUP BY status`,
		courseID, itemID,
	)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	counts := make(map[string]int)
	total := 0
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, 0, err
		}
		counts[status] = count
		total += count
	}
	return counts, total, rows.Err()
}

// InsertWorkflowCancellation records why and by whom a workflow was cancelled.
func (s *Store) InsertWorkflowCancellation(c model.WorkflowCancellation) error {
	_, err := s.db.Exec(
		`INSERT INTO workflow_cancellations (submission_uuid, comments, cancelled_by, created_at)
		 VALUES (?, ?, ?, ?)`,
		c.SubmissionUUID, c.Comments, c.CancelledBy, c.CreatedAt,
	)
	return err
}

// GetWorkflowCancellation returns the latest cancellation recorded for a
// submission, or nil if it was never cancelled.
func (s *Store) GetWorkflowCancellation(submissionUUID string) (*model.WorkflowCancellation, error) {
	var c model.WorkflowCancellation
	err := s.db.QueryRow(
		`SELECT submission_uuid, comments, cancelled_by, created_at FROM workflow_cancellations
		 WHERE submission_uuid = ? ORDER BY id DESC LIMIT 1`, submissionUUID,
	).Scan(&c.SubmissionUUID, &c.Comments, &c.CancelledBy, &c.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}
