package store

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/runt18/edx-ora2/internal/model"
)

// InsertAssessment stores an assessment with its parts, creating the rubric
// row if needed, and returns the assessment id.
func (s *Store) InsertAssessment(a model.Assessment) (int64, error) {
	rubricID, err := s.GetOrCreateRubric(a.Rubric)
	if err != nil {
		return 0, err
	}
	tx, err := s.db.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	res, err := tx.Exec(
		`INSERT INTO assessments (submission_uuid, rubric_id, scorer_id, score_type, feedback, scored_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		a.SubmissionUUID, rubricID, a.ScorerID, a.ScoreType, a.Feedback, a.ScoredAt,
	)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	for _, p := range a.Parts {
		_, err := tx.Exec(
			`INSERT INTO assessment_parts (assessment_id, criterion_name, option_name, points, feedback)
			 VALUES (?, ?, ?, ?, ?)`,
			id, p.CriterionName, p.OptionName, p.Points, p.Feedback,
		)
		if err != nil {
			return 0, err
		}
	}
	return id, tx.Commit()
}

const assessmentColumns = `a.id, a.submission_uuid, a.scorer_id, a.score_type, a.feedback, a.scored_at, r.criteria`

func scanAssessment(row interface{ Scan(...any) error }) (model.Assessment, error) {
	var a model.Assessment
	var criteria string
	err := row.Scan(&a.ID, &a.SubmissionUUID, &a.ScorerID, &a.ScoreType, &a.Feedback, &a.ScoredAt, &criteria)
	if err != nil {
		return model.Assessment{}, err
	}
	if err := json.Unmarshal([]byte(criteria), &a.Rubric.Criteria); err != nil {
		return model.Assessment{}, err
	}
	return a, nil
}

func (s *Store) loadParts(a *model.Assessment) error {
	rows, err := s.db.Query(
		`SELECT criterion_name, option_name, points, feedback FROM assessment_parts
		 WHERE assessment_id = ? ORDER BY id`, a.ID,
	)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var p model.AssessmentPart
		if err := rows.Scan(&p.CriterionName, &p.OptionName, &p.Points, &p.Feedback); err != nil {
			return err
		}
		a.Parts = append(a.Parts, p)
	}
	return rows.Err()
}

func (s *Store) queryAssessments(query string, args ...any) ([]model.Assessment, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var assessments []model.Assessment
	for rows.Next() {
		a, err := scanAssessment(rows)
		if err != nil {
			return nil, err
		}
		assessments = append(assessments, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range assessments {
		if err := s.loadParts(&assessments[i]); err != nil {
			return nil, err
		}
	}
	return assessments, nil
}

// GetAssessments returns the assessments of one type made on a submission,
// oldest first.
func (s *Store) GetAssessments(submissionUUID string, scoreType model.ScoreType) ([]model.Assessment, error) {
	return s.queryAssessments(
		`SELECT `+assessmentColumns+` FROM assessments a
		 JOIN rubrics r ON r.id = a.rubric_id
		 WHERE a.submission_uuid = ? AND a.score_type = ?
		 ORDER BY a.id`,
		submissionUUID, scoreType,
	)
}

// LatestAssessment returns the most recent assessment of one type made on a
// submission, or nil if there is none.
func (s *Store) LatestAssessment(submissionUUID string, scoreType model.ScoreType) (*model.Assessment, error) {
	row := s.db.QueryRow(
		`SELECT `+assessmentColumns+` FROM assessments a
		 JOIN rubrics r ON r.id = a.rubric_id
		 WHERE a.submission_uuid = ? AND a.score_type = ?
		 ORDER BY a.id DESC LIMIT 1`,
		submissionUUID, scoreType,
	)
	a, err := scanAssessment(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := s.loadParts(&a); err != nil {
		return nil, err
	}
	return &a, nil
}

// CountAssessmentsFor returns how many assessments of one type a submission
// has received.
func (s *Store) CountAssessmentsFor(submissionUUID string, scoreType model.ScoreType) (int, error) {
	var count int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM assessments WHERE submission_uuid = ? AND score_type = ?`,
		submissionUUID, scoreType,
	).Scan(&count)
	return count, err
}

// CountAssessmentsForLocation returns how many assessments of one type exist
// across all submissions of a course item.
func (s *Store) CountAssessmentsForLocation(courseID, itemID string, scoreType model.ScoreType) (int, error) {
	var count int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM assessments a
		 JOIN submissions s ON s.uuid = a.submission_uuid
		 JOIN student_items i ON i.id = s.student_item_id
		 WHERE i.course_id = ? AND i.item_id = ? AND a.score_type = ?`,
		courseID, itemID, scoreType,
	).Scan(&count)
	return count, err
}

// InsertPeerWorkflowItem links a scorer's submission to the submission they
// will assess. The pair is unique; re-linking returns the existing item.
func (s *Store) InsertPeerWorkflowItem(scorerSubmissionUUID, targetSubmissionUUID string) (model.PeerWorkflowItem, error) {
	existing, err := s.GetPeerWorkflowItem(scorerSubmissionUUID, targetSubmissionUUID)
	if err != nil {
		return model.PeerWorkflowItem{}, err
	}
	if existing != nil {
		return *existing, nil
	}
	item := model.PeerWorkflowItem{
		ScorerSubmissionUUID: scorerSubmissionUUID,
		TargetSubmissionUUID: targetSubmissionUUID,
		CreatedAt:            time.Now(),
	}
	res, err := s.db.Exec(
		`INSERT INTO peer_workflow_items (scorer_submission_uuid, target_submission_uuid, created_at)
		 VALUES (?, ?, ?)`,
		item.ScorerSubmissionUUID, item.TargetSubmissionUUID, item.CreatedAt,
	)
	if err != nil {
		return model.PeerWorkflowItem{}, err
	}
	item.ID, err = res.LastInsertId()
	return item, err
}

func scanPeerWorkflowItem(row interface{ Scan(...any) error }) (model.PeerWorkflowItem, error) {
	var item model.PeerWorkflowItem
	var assessmentID sql.NullInt64
	err := row.Scan(
		&item.ID, &item.ScorerSubmissionUUID, &item.TargetSubmissionUUID,
		&assessmentID, &item.RequiredGrades, &item.CreatedAt,
	)
	if err != nil {
		return model.PeerWorkflowItem{}, err
	}
	if assessmentID.Valid {
		item.AssessmentID = &assessmentID.Int64
	}
	return item, nil
}

// GetPeerWorkflowItem returns the item linking a scorer to a target, or nil
// if the pair was never linked.
func (s *Store) GetPeerWorkflowItem(scorerSubmissionUUID, targetSubmissionUUID string) (*model.PeerWorkflowItem, error) {
	row := s.db.QueryRow(
		`SELECT id, scorer_submission_uuid, target_submission_uuid, assessment_id, required_grades, created_at
		 FROM peer_workflow_items
		 WHERE scorer_submission_uuid = ? AND target_submission_uuid = ?`,
		scorerSubmissionUUID, targetSubmissionUUID,
	)
	item, err := scanPeerWorkflowItem(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// LatestOpenPeerWorkflowItem returns the scorer's most recently linked item
// that has not been assessed yet, or nil when nothing is open.
func (s *Store) LatestOpenPeerWorkflowItem(scorerSubmissionUUID string) (*model.PeerWorkflowItem, error) {
	row := s.db.QueryRow(
		`SELECT id, scorer_submission_uuid, target_submission_uuid, assessment_id, required_grades, created_at
		 FROM peer_workflow_items
		 WHERE scorer_submission_uuid = ? AND assessment_id IS NULL
		 ORDER BY id DESC LIMIT 1`,
		scorerSubmissionUUID,
	)
	item, err := scanPeerWorkflowItem(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// MarkPeerWorkflowItemAssessed records the assessment made through an item
// together with the grading quota the scorer was working toward.
func (s *Store) MarkPeerWorkflowItemAssessed(itemID, assessmentID int64, requiredGrades int) error {
	_, err := s.db.Exec(
		`UPDATE peer_workflow_items SET assessment_id = ?, required_grades = ? WHERE id = ?`,
		assessmentID, requiredGrades, itemID,
	)
	return err
}

// CountAssessedBy returns how many peer assessments the owner of a submission
// has completed.
func (s *Store) CountAssessedBy(scorerSubmissionUUID string) (int, error) {
	var count int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM peer_workflow_items
		 WHERE scorer_submission_uuid = ? AND assessment_id IS NOT NULL`,
		scorerSubmissionUUID,
	).Scan(&count)
	return count, err
}

// GetSubmittedAssessments returns the peer assessments authored by the owner
// of a submission, oldest first.
func (s *Store) GetSubmittedAssessments(scorerSubmissionUUID string) ([]model.Assessment, error) {
	return s.queryAssessments(
		`SELECT `+assessmentColumns+` FROM peer_workflow_items w
		 JOIN assessments a ON a.id = w.assessment_id
		 JOIN rubrics r ON r.id = a.rubric_id
		 WHERE w.scorer_submission_uuid = ?
		 ORDER BY a.id`,
		scorerSubmissionUUID,
	)
}

// OldestUngradedSubmission returns the oldest submission in a location with
// no staff assessment and no cancelled workflow, or nil when staff grading
// has nothing left to do.
func (s *Store) OldestUngradedSubmission(courseID, itemID string) (*model.Submission, error) {
	row := s.db.QueryRow(
		`SELECT `+submissionColumns+` FROM submissions s
		 JOIN student_items i ON i.id = s.student_item_id
		 WHERE i.course_id = ? AND i.item_id = ?
		   AND NOT EXISTS (
			SELECT 1 FROM assessments a
			WHERE a.submission_uuid = s.uuid AND a.score_type = 'ST')
		   AND NOT EXISTS (
			SELECT 1 FROM workflows w
			WHERE w.submission_uuid = s.uuid AND w.status = 'cancelled')
		 ORDER BY s.submitted_at, s.rowid LIMIT 1`,
		courseID, itemID,
	)
	sub, err := scanSubmission(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

// CountStaffUngraded returns how many submissions in a location still need a
// staff assessment.
func (s *Store) CountStaffUngraded(courseID, itemID string) (int, error) {
	var count int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM submissions s
		 JOIN student_items i ON i.id = s.student_item_id
		 WHERE i.course_id = ? AND i.item_id = ?
		   AND NOT EXISTS (
			SELECT 1 FROM assessments a
			WHERE a.submission_uuid = s.uuid AND a.score_type = 'ST')
		   AND NOT EXISTS (
			SELECT 1 FROM workflows w
			WHERE w.submission_uuid = s.uuid AND w.status = 'cancelled')`,
		courseID, itemID,
	).Scan(&count)
	return count, err
}

// CountStaffGraded returns how many submissions in a location have received a
// staff assessment.
func (s *Store) CountStaffGraded(courseID, itemID string) (int, error) {
	var count int
	err := s.db.QueryRow(
		`SELECT COUNT(DISTINCT a.submission_uuid) FROM assessments a
		 JOIN submissions s ON s.uuid = a.submission_uuid
		 JOIN student_items i ON i.id = s.student_item_id
		 WHERE i.course_id = ? AND i.item_id = ? AND a.score_type = 'ST'`,
		courseID, itemID,
	).Scan(&count)
	return count, err
}
