package store

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

type Store struct {
	db *sql.DB
}

func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS student_items (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		student_id TEXT NOT NULL,
		course_id TEXT NOT NULL,
		item_id TEXT NOT NULL,
		item_type TEXT NOT NULL DEFAULT 'openassessment',
		UNIQUE (student_id, course_id, item_id, item_type)
	);

	CREATE TABLE IF NOT EXISTS submissions (
		uuid TEXT PRIMARY KEY,
		student_item_id INTEGER NOT NULL,
		attempt_number INTEGER NOT NULL DEFAULT 1,
		answer TEXT NOT NULL DEFAULT '{}',
		submitted_at DATETIME NOT NULL,
		FOREIGN KEY (student_item_id) REFERENCES student_items(id)
	);

	CREATE TABLE IF NOT EXISTS rubrics (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		content_hash TEXT NOT NULL UNIQUE,
		criteria TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS assessments (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		submission_uuid TEXT NOT NULL,
		rubric_id INTEGER NOT NULL,
		scorer_id TEXT NOT NULL,
		score_type TEXT NOT NULL,
		feedback TEXT NOT NULL DEFAULT '',
		scored_at DATETIME NOT NULL,
		FOREIGN KEY (submission_uuid) REFERENCES submissions(uuid),
		FOREIGN KEY (rubric_id) REFERENCES rubrics(id)
	);

	CREATE TABLE IF NOT EXISTS assessment_parts (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		assessment_id INTEGER NOT NULL,
		criterion_name TEXT NOT NULL,
		option_name TEXT NOT NULL,
		points INTEGER NOT NULL DEFAULT 0,
		feedback TEXT NOT NULL DEFAULT '',
		FOREIGN KEY (assessment_id) REFERENCES assessments(id)
	);

	CREATE TABLE IF NOT EXISTS peer_workflow_items (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		scorer_submission_uuid TEXT NOT NULL,
		target_submission_uuid TEXT NOT NULL,
		assessment_id INTEGER,
		required_grades INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL,
		UNIQUE (scorer_submission_uuid, target_submission_uuid),
		FOREIGN KEY (scorer_submission_uuid) REFERENCES submissions(uuid),
		FOREIGN KEY (target_submission_uuid) REFERENCES submissions(uuid),
		FOREIGN KEY (assessment_id) REFERENCES assessments(id)
	);

	CREATE TABLE IF NOT EXISTS workflows (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		submission_uuid TEXT NOT NULL UNIQUE,
		course_id TEXT NOT NULL,
		item_id TEXT NOT NULL,
		steps TEXT NOT NULL,
		requirements TEXT,
		status TEXT NOT NULL,
		points_earned INTEGER,
		points_possible INTEGER,
		created_at DATETIME NOT NULL,
		modified_at DATETIME NOT NULL,
		FOREIGN KEY (submission_uuid) REFERENCES submissions(uuid)
	);

	CREATE TABLE IF NOT EXISTS workflow_cancellations (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		submission_uuid TEXT NOT NULL,
		comments TEXT NOT NULL,
		cancelled_by TEXT NOT NULL,
		created_at DATETIME NOT NULL,
		FOREIGN KEY (submission_uuid) REFERENCES submissions(uuid)
	);

	CREATE TABLE IF NOT EXISTS training_example_sets (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		workflow_uuid TEXT NOT NULL UNIQUE,
		course_id TEXT NOT NULL,
		item_id TEXT NOT NULL,
		algorithm_id TEXT NOT NULL,
		rubric_id INTEGER NOT NULL,
		examples TEXT NOT NULL,
		created_at DATETIME NOT NULL,
		FOREIGN KEY (rubric_id) REFERENCES rubrics(id)
	);
	`
	_, err := s.db.Exec(schema)
	return err
}
