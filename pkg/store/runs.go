package store

import (
	"database/sql"
	"fmt"
	"time"
)

const (
	RunRunning   = "running"
	RunCompleted = "completed"
	RunFailed    = "failed"
)

type Run struct {
	ID          string     `json:"id"`
	Operation   string     `json:"operation"`
	Status      string     `json:"status"`
	RequestJSON string     `json:"request_json,omitempty"`
	Result      string     `json:"result,omitempty"`
	Error       string     `json:"error,omitempty"`
	StartedAt   time.Time  `json:"started_at"`
	FinishedAt  *time.Time `json:"finished_at,omitempty"`
}

func scanRun(scanner interface {
	Scan(dest ...any) error
}) (*Run, error) {
	r := &Run{}
	var requestJSON, result, runErr *string
	err := scanner.Scan(&r.ID, &r.Operation, &r.Status, &requestJSON, &result, &runErr,
		&r.StartedAt, &r.FinishedAt)
	if err != nil {
		return nil, err
	}
	if requestJSON != nil {
		r.RequestJSON = *requestJSON
	}
	if result != nil {
		r.Result = *result
	}
	if runErr != nil {
		r.Error = *runErr
	}
	return r, nil
}

func (s *Store) StartRun(id, operation, requestJSON string) error {
	_, err := s.db.Exec(`
		INSERT INTO runs (id, operation, status, request_json)
		VALUES (?, ?, ?, ?)`,
		id, operation, RunRunning, requestJSON)
	if err != nil {
		return fmt.Errorf("start run: %w", err)
	}
	return nil
}

func (s *Store) FinishRun(id, result string) error {
	_, err := s.db.Exec(`
		UPDATE runs
		SET status = ?, result = ?, finished_at = CURRENT_TIMESTAMP
		WHERE id = ?`,
		RunCompleted, result, id)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	return nil
}

func (s *Store) FailRun(id, errMsg string) error {
	_, err := s.db.Exec(`
		UPDATE runs
		SET status = ?, error = ?, finished_at = CURRENT_TIMESTAMP
		WHERE id = ?`,
		RunFailed, errMsg, id)
	if err != nil {
		return fmt.Errorf("fail run: %w", err)
	}
	return nil
}

func (s *Store) GetRun(id string) (*Run, error) {
	row := s.db.QueryRow(`
		SELECT id, operation, status, request_json, result, error, started_at, finished_at
		FROM runs WHERE id = ?`, id)
	r, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	return r, nil
}

func (s *Store) ListRuns(limit int) ([]Run, error) {
	if limit < 1 {
		limit = 50
	}
	rows, err := s.db.Query(`
		SELECT id, operation, status, request_json, result, error, started_at, finished_at
		FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, *r)
	}
	return runs, rows.Err()
}
