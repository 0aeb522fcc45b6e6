package notify

import (
	"context"
	"database/sql"
	"time"
)

// Store reads and updates outbox rows. Implemented over the same
// SQLite database the API writes to, so enqueues committed inside API
// transactions become visible to the worker atomically.
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// DuePending returns pending rows whose next attempt time has passed,
// oldest first.
func (s *Store) DuePending(ctx context.Context, limit int) ([]Notification, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, team_id, title, body, metadata, attempts
		FROM notifications
		WHERE status = 'pending'
			AND next_attempt_at <= strftime('%Y-%m-%dT%H:%M:%fZ', 'now')
		ORDER BY created_at
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var due []Notification
	for rows.Next() {
		var n Notification
		if err := rows.Scan(&n.ID, &n.TeamID, &n.Title, &n.Body, &n.Metadata, &n.Attempts); err != nil {
			return nil, err
		}
		due = append(due, n)
	}
	return due, rows.Err()
}

func (s *Store) MarkDelivered(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE notifications
		SET status = 'delivered', delivered_at = strftime('%Y-%m-%dT%H:%M:%fZ', 'now')
		WHERE id = ?
	`, id)
	return err
}

// Reschedule bumps the attempt counter and pushes the next attempt out.
func (s *Store) Reschedule(ctx context.Context, id string, attempts int, next time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE notifications
		SET attempts = ?, next_attempt_at = ?
		WHERE id = ?
	`, attempts, next.UTC().Format("2006-01-02T15:04:05.000Z"), id)
	return err
}

// MarkInApp downgrades a row whose delivery permanently failed; it
// stays readable through the notifications API.
func (s *Store) MarkInApp(ctx context.Context, id string, attempts int) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE notifications
		SET status = 'inapp', attempts = ?
		WHERE id = ?
	`, attempts, id)
	return err
}
