package store

import (
	"database/sql"
	"fmt"
	"time"
)

const (
	ScheduleActive = "active"
	SchedulePaused = "paused"
)

type Schedule struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Operation   string     `json:"operation"`
	CronExpr    string     `json:"cron_expr"`
	RequestJSON string     `json:"request_json,omitempty"`
	Status      string     `json:"status"`
	NextRunAt   *time.Time `json:"next_run_at,omitempty"`
	LastRunAt   *time.Time `json:"last_run_at,omitempty"`
	LastStatus  string     `json:"last_status,omitempty"`
	LastError   string     `json:"last_error,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

func scanSchedule(scanner interface {
	Scan(dest ...any) error
}) (*Schedule, error) {
	sc := &Schedule{}
	var requestJSON, lastStatus, lastError *string
	err := scanner.Scan(&sc.ID, &sc.Name, &sc.Operation, &sc.CronExpr, &requestJSON,
		&sc.Status, &sc.NextRunAt, &sc.LastRunAt, &lastStatus, &lastError, &sc.CreatedAt)
	if err != nil {
		return nil, err
	}
	if requestJSON != nil {
		sc.RequestJSON = *requestJSON
	}
	if lastStatus != nil {
		sc.LastStatus = *lastStatus
	}
	if lastError != nil {
		sc.LastError = *lastError
	}
	return sc, nil
}

// sqlite stores timestamps as text carrying their zone offset and the
// next_run_at comparison is lexical, so every persisted time must be UTC.
func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}

func (s *Store) SaveSchedule(sc *Schedule) error {
	_, err := s.db.Exec(`
		INSERT INTO schedules (id, name, operation, cron_expr, request_json, status, next_run_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			operation = excluded.operation,
			cron_expr = excluded.cron_expr,
			request_json = excluded.request_json,
			status = excluded.status,
			next_run_at = excluded.next_run_at`,
		sc.ID, sc.Name, sc.Operation, sc.CronExpr, sc.RequestJSON, sc.Status, utcPtr(sc.NextRunAt))
	if err != nil {
		return fmt.Errorf("save schedule: %w", err)
	}
	return nil
}

func (s *Store) GetSchedule(id string) (*Schedule, error) {
	row := s.db.QueryRow(`
		SELECT id, name, operation, cron_expr, request_json, status,
		       next_run_at, last_run_at, last_status, last_error, created_at
		FROM schedules WHERE id = ?`, id)
	sc, err := scanSchedule(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get schedule: %w", err)
	}
	return sc, nil
}

func (s *Store) ListSchedules() ([]Schedule, error) {
	rows, err := s.db.Query(`
		SELECT id, name, operation, cron_expr, request_json, status,
		       next_run_at, last_run_at, last_status, last_error, created_at
		FROM schedules ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("list schedules: %w", err)
	}
	defer rows.Close()

	var schedules []Schedule
	for rows.Next() {
		sc, err := scanSchedule(rows)
		if err != nil {
			return nil, fmt.Errorf("scan schedule: %w", err)
		}
		schedules = append(schedules, *sc)
	}
	return schedules, rows.Err()
}

func (s *Store) DueSchedules(now time.Time) ([]Schedule, error) {
	rows, err := s.db.Query(`
		SELECT id, name, operation, cron_expr, request_json, status,
		       next_run_at, last_run_at, last_status, last_error, created_at
		FROM schedules
		WHERE status = 'active' AND next_run_at <= ?
		ORDER BY next_run_at`, now.UTC())
	if err != nil {
		return nil, fmt.Errorf("due schedules: %w", err)
	}
	defer rows.Close()

	var schedules []Schedule
	for rows.Next() {
		sc, err := scanSchedule(rows)
		if err != nil {
			return nil, fmt.Errorf("scan schedule: %w", err)
		}
		schedules = append(schedules, *sc)
	}
	return schedules, rows.Err()
}

func (s *Store) UpdateScheduleRun(id, lastStatus, lastError string, nextRunAt *time.Time) error {
	_, err := s.db.Exec(`
		UPDATE schedules
		SET last_run_at = CURRENT_TIMESTAMP, last_status = ?, last_error = ?, next_run_at = ?
		WHERE id = ?`,
		lastStatus, lastError, utcPtr(nextRunAt), id)
	return err
}

func (s *Store) DeleteSchedule(id string) error {
	res, err := s.db.Exec(`DELETE FROM schedules WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete schedule: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
