package store

import (
	"database/sql"
	"encoding/json"

	"github.com/runt18/edx-ora2/internal/model"
)

// GetOrCreateRubric stores a rubric unless one with the same content hash
// already exists, and returns the rubric's row id.
func (s *Store) GetOrCreateRubric(r model.Rubric) (int64, error) {
	hash := r.ContentHash()
	var id int64
	err := s.db.QueryRow(`SELECT id FROM rubrics WHERE content_hash = ?`, hash).Scan(&id)
	if err == nil {
		return id, nil
	}
	if err != sql.ErrNoRows {
		return 0, err
	}
	criteria, err := json.Marshal(r.Criteria)
	if err != nil {
		return 0, err
	}
	res, err := s.db.Exec(
		`INSERT INTO rubrics (content_hash, criteria) VALUES (?, ?)`,
		hash, string(criteria),
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// GetRubric returns a rubric by row id.
func (s *Store) GetRubric(id int64) (model.Rubric, error) {
	var criteria string
	err := s.db.QueryRow(`SELECT criteria FROM rubrics WHERE id = ?`, id).Scan(&criteria)
	if err != nil {
		return model.Rubric{}, err
	}
	var r model.Rubric
	err = json.Unmarshal([]byte(criteria), &r.Criteria)
	return r, err
}

// RubricCount returns the number of distinct rubrics stored.
func (s *Store) RubricCount() (int, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM rubrics`).Scan(&count)
	return count, err
}
