package notify

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/srijanfest/treasurehunt/internal/database"
	"github.com/srijanfest/treasurehunt/internal/migrations"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	ctx := context.Background()

	db, err := database.Open(ctx, filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := migrations.Run(db); err != nil {
		t.Fatalf("run migrations: %v", err)
	}

	_, err = db.ExecContext(ctx, `INSERT INTO teams (id, name, join_token) VALUES ('t1', 'Orion', 'orion-x')`)
	if err != nil {
		t.Fatalf("insert team: %v", err)
	}
	return db
}

func enqueue(t *testing.T, db *sql.DB, id string) {
	t.Helper()
	_, err := db.ExecContext(context.Background(), `
		INSERT INTO notifications (id, team_id, title, body)
		VALUES (?, 't1', 'Treasure found', 'Team Orion found the treasure!')
	`, id)
	if err != nil {
		t.Fatalf("insert notification: %v", err)
	}
}

func rowState(t *testing.T, db *sql.DB, id string) (status string, attempts int, nextAttemptAt string) {
	t.Helper()
	err := db.QueryRowContext(context.Background(), `
		SELECT status, attempts, next_attempt_at FROM notifications WHERE id = ?
	`, id).Scan(&status, &attempts, &nextAttemptAt)
	if err != nil {
		t.Fatalf("read notification: %v", err)
	}
	return status, attempts, nextAttemptAt
}

func TestWorkerDelivers(t *testing.T) {
	db := setupDB(t)
	enqueue(t, db, "n1")

	var sent []Notification
	sender := SenderFunc(func(ctx context.Context, n Notification) error {
		sent = append(sent, n)
		return nil
	})

	w := NewWorker(NewStore(db), sender, testLogger(), time.Second, 5)
	if err := w.RunOnce(context.Background()); err != nil {
		t.Fatalf("run once: %v", err)
	}

	if len(sent) != 1 {
		t.Fatalf("sent = %d, want 1", len(sent))
	}
	if sent[0].TeamID != "t1" || sent[0].Title != "Treasure found" {
		t.Errorf("sent %+v", sent[0])
	}
	status, _, _ := rowState(t, db, "n1")
	if status != "delivered" {
		t.Errorf("status = %q, want %q", status, "delivered")
	}
}

func TestWorkerReschedulesOnFailure(t *testing.T) {
	db := setupDB(t)
	enqueue(t, db, "n1")

	sender := SenderFunc(func(ctx context.Context, n Notification) error {
		return errors.New("gateway unreachable")
	})

	w := NewWorker(NewStore(db), sender, testLogger(), time.Second, 5)
	before := time.Now().UTC()
	if err := w.RunOnce(context.Background()); err != nil {
		t.Fatalf("run once: %v", err)
	}

	status, attempts, nextAt := rowState(t, db, "n1")
	if status != "pending" {
		t.Errorf("status = %q, want %q", status, "pending")
	}
	if attempts != 1 {
		t.Errorf("attempts = %d, want 1", attempts)
	}
	next, err := time.Parse("2006-01-02T15:04:05.000Z", nextAt)
	if err != nil {
		t.Fatalf("parse next_attempt_at %q: %v", nextAt, err)
	}
	if !next.After(before) {
		t.Errorf("next attempt %v not pushed into the future", next)
	}

	// The row is not due again until its backoff expires.
	due, err := NewStore(db).DuePending(context.Background(), batchSize)
	if err != nil {
		t.Fatalf("due pending: %v", err)
	}
	if len(due) != 0 {
		t.Errorf("due = %d, want 0", len(due))
	}
}

func TestWorkerDowngradesAfterMaxAttempts(t *testing.T) {
	db := setupDB(t)
	enqueue(t, db, "n1")

	sender := SenderFunc(func(ctx context.Context, n Notification) error {
		return errors.New("gateway unreachable")
	})

	w := NewWorker(NewStore(db), sender, testLogger(), time.Second, 1)
	if err := w.RunOnce(context.Background()); err != nil {
		t.Fatalf("run once: %v", err)
	}

	status, attempts, _ := rowState(t, db, "n1")
	if status != "inapp" {
		t.Errorf("status = %q, want %q", status, "inapp")
	}
	if attempts != 1 {
		t.Errorf("attempts = %d, want 1", attempts)
	}
}

func TestWorkerRecoversAfterBackoff(t *testing.T) {
	db := setupDB(t)
	enqueue(t, db, "n1")

	fail := true
	sender := SenderFunc(func(ctx context.Context, n Notification) error {
		if fail {
			return errors.New("gateway unreachable")
		}
		return nil
	})

	store := NewStore(db)
	w := NewWorker(store, sender, testLogger(), time.Second, 5)
	if err := w.RunOnce(context.Background()); err != nil {
		t.Fatalf("first sweep: %v", err)
	}

	// Expire the backoff and let the next sweep succeed.
	if err := store.Reschedule(context.Background(), "n1", 1, time.Now().Add(-time.Minute)); err != nil {
		t.Fatalf("reschedule: %v", err)
	}
	fail = false
	if err := w.RunOnce(context.Background()); err != nil {
		t.Fatalf("second sweep: %v", err)
	}

	status, _, _ := rowState(t, db, "n1")
	if status != "delivered" {
		t.Errorf("status = %q, want %q", status, "delivered")
	}
}
