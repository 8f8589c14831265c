package store

import (
	"database/sql"
	"encoding/json"

	"github.com/runt18/edx-ora2/internal/model"
)

// GetOrCreateStudentItem returns the student item for the given identity,
// creating it on first use.
func (s *Store) GetOrCreateStudentItem(item model.StudentItem) (model.StudentItem, error) {
	got, err := s.GetStudentItem(item.StudentID, item.CourseID, item.ItemID, item.ItemType)
	if err == nil {
		return got, nil
	}
	if err != sql.ErrNoRows {
		return model.StudentItem{}, err
	}
	res, err := s.db.Exec(
		`INSERT INTO student_items (student_id, course_id, item_id, item_type) VALUES (?, ?, ?, ?)`,
		item.StudentID, item.CourseID, item.ItemID, item.ItemType,
	)
	if err != nil {
		return model.StudentItem{}, err
	}
	item.ID, err = res.LastInsertId()
	return item, err
}

// GetStudentItem returns the student item matching all four identity fields.
func (s *Store) GetStudentItem(studentID, courseID, itemID, itemType string) (model.StudentItem, error) {
	var item model.StudentItem
	err := s.db.QueryRow(
		`SELECT id, student_id, course_id, item_id, item_type FROM student_items
		 WHERE student_id = ? AND course_id = ? AND item_id = ? AND item_type = ?`,
		studentID, courseID, itemID, itemType,
	).Scan(&item.ID, &item.StudentID, &item.CourseID, &item.ItemID, &item.ItemType)
	return item, err
}

// ListStudentItems returns all student items recorded for a location.
func (s *Store) ListStudentItems(courseID, itemID string) ([]model.StudentItem, error) {
	rows, err := s.db.Query(
		`SELECT id, student_id, course_id, item_id, item_type FROM student_items
		 WHERE course_id = ? AND item_id = ? ORDER BY id`,
		courseID, itemID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []model.StudentItem
	for rows.Next() {
		var item model.StudentItem
		if err := rows.Scan(&item.ID, &item.StudentID, &item.CourseID, &item.ItemID, &item.ItemType); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// InsertSubmission stores a submission. The submission's student item must
// already carry its row id.
func (s *Store) InsertSubmission(sub model.Submission) error {
	answer, err := json.Marshal(sub.Answer)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(
		`INSERT INTO submissions (uuid, student_item_id, attempt_number, answer, submitted_at)
		 VALUES (?, ?, ?, ?, ?)`,
		sub.UUID, sub.StudentItem.ID, sub.AttemptNumber, string(answer), sub.SubmittedAt,
	)
	return err
}

const submissionColumns = `s.uuid, s.attempt_number, s.answer, s.submitted_at,
	i.id, i.student_id, i.course_id, i.item_id, i.item_type`

func scanSubmission(row interface{ Scan(...any) error }) (model.Submission, error) {
	var sub model.Submission
	var answer string
	err := row.Scan(
		&sub.UUID, &sub.AttemptNumber, &answer, &sub.SubmittedAt,
		&sub.StudentItem.ID, &sub.StudentItem.StudentID, &sub.StudentItem.CourseID,
		&sub.StudentItem.ItemID, &sub.StudentItem.ItemType,
	)
	if err != nil {
		return model.Submission{}, err
	}
	if err := json.Unmarshal([]byte(answer), &sub.Answer); err != nil {
		return model.Submission{}, err
	}
	return sub, nil
}

// GetSubmission returns a submission with its student item.
func (s *Store) GetSubmission(uuid string) (model.Submission, error) {
	row := s.db.QueryRow(
		`SELECT `+submissionColumns+` FROM submissions s
		 JOIN student_items i ON i.id = s.student_item_id
		 WHERE s.uuid = ?`, uuid,
	)
	return scanSubmission(row)
}

// ListSubmissionsForItem returns a student item's submissions, newest first.
// A limit of 0 returns all of them.
func (s *Store) ListSubmissionsForItem(studentItemID int64, limit int) ([]model.Submission, error) {
	query := `SELECT ` + submissionColumns + ` FROM submissions s
		 JOIN student_items i ON i.id = s.student_item_id
		 WHERE s.student_item_id = ?
		 ORDER BY s.submitted_at DESC, s.rowid DESC`
	args := []any{studentItemID}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	return s.querySubmissions(query, args...)
}

// ListSubmissionsForLocation returns every submission for a course item,
// oldest first.
func (s *Store) ListSubmissionsForLocation(courseID, itemID string) ([]model.Submission, error) {
	return s.querySubmissions(
		`SELECT `+submissionColumns+` FROM submissions s
		 JOIN student_items i ON i.id = s.student_item_id
		 WHERE i.course_id = ? AND i.item_id = ?
		 ORDER BY s.submitted_at, s.rowid`,
		courseID, itemID,
	)
}

func (s *Store) querySubmissions(query string, args ...any) ([]model.Submission, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var subs []model.Submission
	for rows.Next() {
		sub, err := scanSubmission(rows)
		if err != nil {
			return nil, err
		}
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}

// CountSubmissionsForItem returns how many submissions a student item has.
func (s *Store) CountSubmissionsForItem(studentItemID int64) (int, error) {
	var count int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM submissions WHERE student_item_id = ?`, studentItemID,
	).Scan(&count)
	return count, err
}

// CountSubmissionsForLocation returns how many submissions a course item has.
func (s *Store) CountSubmissionsForLocation(courseID, itemID string) (int, error) {
	var count int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM submissions s
		 JOIN student_items i ON i.id = s.student_item_id
		 WHERE i.course_id = ? AND i.item_id = ?`,
		courseID, itemID,
	).Scan(&count)
	return count, err
}
