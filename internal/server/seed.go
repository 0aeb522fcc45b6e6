package server

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/crypto/bcrypt"
)

// SeedDemo creates a demo admin, teams, clue chains, and the winner
// clue if the database is empty. Idempotent: does nothing once an admin
// exists.
func SeedDemo(ctx context.Context, logger *slog.Logger, store *SQLiteStore) error {
	var count int
	if err := store.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM admins`).Scan(&count); err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte("hunt-admin"), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	if _, err := store.db.ExecContext(ctx, `
		INSERT INTO admins (email, password_hash) VALUES (?, ?)
	`, "admin@fest.example", string(hash)); err != nil {
		return fmt.Errorf("seeding admin: %w", err)
	}

	teams := []struct {
		name, joinToken string
		attended        bool
	}{
		{"Orion", "orion-2026", true},
		{"Phoenix", "phoenix-2026", true},
		{"Draco", "draco-2026", false},
	}
	for _, t := range teams {
		attended := 0
		if t.attended {
			attended = 1
		}
		if _, err := store.db.ExecContext(ctx, `
			INSERT INTO teams (name, join_token, attended) VALUES (?, ?, ?)
		`, t.name, t.joinToken, attended); err != nil {
			return fmt.Errorf("seeding team %s: %w", t.name, err)
		}
	}

	chains := [][4]string{
		{"Where books sleep in silence", "Under the oldest banyan tree", "Behind the amphitheater stage", "The bell that never rings"},
		{"The wall of graduating faces", "Where chalk dust settles", "The fountain with no water", "Count the steps to the clock tower"},
		{"Where the canteen queue begins", "The mural of the founding year", "Third bench from the main gate", "The room that is always locked"},
	}
	for i, texts := range chains {
		var tokens [4]string
		for j := range tokens {
			tokens[j] = generateClueToken()
		}
		if _, err := store.CreateChain(ctx, texts, tokens); err != nil {
			return fmt.Errorf("seeding chain %d: %w", i+1, err)
		}
	}

	if _, err := store.SetWinnerClue(ctx, "The treasure waits where it all began", generateClueToken()); err != nil {
		return fmt.Errorf("seeding winner clue: %w", err)
	}

	logger.Info("demo hunt data seeded")
	return nil
}
