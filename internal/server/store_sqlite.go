package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE")
}

func (s *SQLiteStore) MemberFromToken(ctx context.Context, token string) (memberSession, error) {
	var sess memberSession
	err := s.db.QueryRowContext(ctx, `
		SELECT m.id, m.team_id
		FROM members m
		WHERE m.session_id = ?
	`, token).Scan(&sess.MemberID, &sess.TeamID)
	if errors.Is(err, sql.ErrNoRows) {
		return sess, errNoSession
	}
	return sess, err
}

func (s *SQLiteStore) TeamByJoinToken(ctx context.Context, joinToken string) (TeamLookupResponse, error) {
	var resp TeamLookupResponse
	var attended int
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, attended FROM teams WHERE join_token = ?
	`, joinToken).Scan(&resp.ID, &resp.Name, &attended)
	if errors.Is(err, sql.ErrNoRows) {
		return resp, ErrNotFound
	}
	resp.AttendanceMarked = attended != 0
	return resp, err
}

func (s *SQLiteStore) JoinTeam(ctx context.Context, teamID, memberName string) (string, string, error) {
	var memberID, sessionID string
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO members (team_id, name)
		VALUES (?, ?)
		RETURNING id, session_id
	`, teamID, memberName).Scan(&memberID, &sessionID)
	return memberID, sessionID, err
}

func (s *SQLiteStore) AdminByEmail(ctx context.Context, email string) (string, string, error) {
	var adminID, passwordHash string
	err := s.db.QueryRowContext(ctx, `
		SELECT id, password_hash FROM admins WHERE email = ?
	`, email).Scan(&adminID, &passwordHash)
	if errors.Is(err, sql.ErrNoRows) {
		return "", "", ErrNotFound
	}
	return adminID, passwordHash, err
}

func (s *SQLiteStore) CreateAdminSession(ctx context.Context, adminID string) (string, error) {
	var sessionID string
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO admin_sessions (admin_id)
		VALUES (?)
		RETURNING id
	`, adminID).Scan(&sessionID)
	return sessionID, err
}

func (s *SQLiteStore) DeleteAdminSession(ctx context.Context, sessionID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM admin_sessions WHERE id = ?`, sessionID)
	return err
}

func (s *SQLiteStore) AdminFromSession(ctx context.Context, sessionID string) (adminSession, error) {
	var sess adminSession
	err := s.db.QueryRowContext(ctx, `
		SELECT a.id, a.email
		FROM admin_sessions s
		JOIN admins a ON a.id = s.admin_id
		WHERE s.id = ?
	`, sessionID).Scan(&sess.AdminID, &sess.Email)
	if errors.Is(err, sql.ErrNoRows) {
		return adminSession{}, errNoAdminSession
	}
	return sess, err
}

func (s *SQLiteStore) CreateChain(ctx context.Context, texts, tokens [4]string) (ChainDetail, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return ChainDetail{}, err
	}
	defer tx.Rollback()

	var detail ChainDetail
	var clueIDs [4]string
	for i := range texts {
		var c Clue
		err := tx.QueryRowContext(ctx, `
			INSERT INTO clues (text, token)
			VALUES (?, ?)
			RETURNING id, text, token
		`, texts[i], tokens[i]).Scan(&c.ID, &c.Text, &c.Token)
		if err != nil {
			// A generated token colliding is a fatal configuration
			// error per the catalog's contract; surface it as-is.
			return ChainDetail{}, fmt.Errorf("inserting clue %d: %w", i+1, err)
		}
		clueIDs[i] = c.ID
		detail.Clues = append(detail.Clues, c)
	}

	err = tx.QueryRowContext(ctx, `
		INSERT INTO clue_chains (clue1_id, clue2_id, clue3_id, clue4_id)
		VALUES (?, ?, ?, ?)
		RETURNING id, created_at
	`, clueIDs[0], clueIDs[1], clueIDs[2], clueIDs[3]).Scan(&detail.ID, &detail.CreatedAt)
	if err != nil {
		return ChainDetail{}, err
	}

	if err := tx.Commit(); err != nil {
		return ChainDetail{}, err
	}
	return detail, nil
}

func (s *SQLiteStore) ListChains(ctx context.Context) ([]ChainDetail, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT ch.id, ch.created_at,
			c1.id, c1.text, c1.token,
			c2.id, c2.text, c2.token,
			c3.id, c3.text, c3.token,
			c4.id, c4.text, c4.token,
			COALESCE(t.name, '')
		FROM clue_chains ch
		JOIN clues c1 ON c1.id = ch.clue1_id
		JOIN clues c2 ON c2.id = ch.clue2_id
		JOIN clues c3 ON c3.id = ch.clue3_id
		JOIN clues c4 ON c4.id = ch.clue4_id
		LEFT JOIN teams t ON t.chain_id = ch.id
		ORDER BY ch.created_at
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var chains []ChainDetail
	for rows.Next() {
		var ch ChainDetail
		clues := make([]Clue, 4)
		if err := rows.Scan(&ch.ID, &ch.CreatedAt,
			&clues[0].ID, &clues[0].Text, &clues[0].Token,
			&clues[1].ID, &clues[1].Text, &clues[1].Token,
			&clues[2].ID, &clues[2].Text, &clues[2].Token,
			&clues[3].ID, &clues[3].Text, &clues[3].Token,
			&ch.AssignedTeam); err != nil {
			return nil, err
		}
		ch.Clues = clues
		chains = append(chains, ch)
	}
	return chains, rows.Err()
}

func (s *SQLiteStore) ClueByToken(ctx context.Context, token string) (Clue, error) {
	var c Clue
	err := s.db.QueryRowContext(ctx, `
		SELECT id, text, token FROM clues WHERE token = ?
	`, token).Scan(&c.ID, &c.Text, &c.Token)
	if errors.Is(err, sql.ErrNoRows) {
		return c, ErrNotFound
	}
	return c, err
}

func (s *SQLiteStore) SetWinnerClue(ctx context.Context, text, token string) (Clue, error) {
	var c Clue
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO winner_clue (slot, text, token)
		VALUES (1, ?, ?)
		RETURNING text, token
	`, text, token).Scan(&c.Text, &c.Token)
	if isUniqueViolation(err) {
		return Clue{}, ErrAlreadyExists
	}
	if err != nil {
		return Clue{}, err
	}
	c.ID = "winner"
	return c, nil
}

func (s *SQLiteStore) GetWinnerClue(ctx context.Context) (Clue, error) {
	c := Clue{ID: "winner"}
	err := s.db.QueryRowContext(ctx, `
		SELECT text, token FROM winner_clue WHERE slot = 1
	`).Scan(&c.Text, &c.Token)
	if errors.Is(err, sql.ErrNoRows) {
		return Clue{}, ErrNotFound
	}
	return c, err
}

func (s *SQLiteStore) HuntStatus(ctx context.Context) (string, error) {
	var status string
	err := s.db.QueryRowContext(ctx, `SELECT status FROM hunt_state WHERE slot = 1`).Scan(&status)
	return status, err
}

// StartHunt transitions stopped -> running and, in the same transaction,
// assigns one unconsumed chain to every attended team without one. Teams
// left over when chains run out are reported, not fatal.
func (s *SQLiteStore) StartHunt(ctx context.Context) (startReport, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return startReport{}, err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE hunt_state
		SET status = 'running', started_at = strftime('%Y-%m-%dT%H:%M:%fZ', 'now')
		WHERE slot = 1 AND status = 'stopped'
	`)
	if err != nil {
		return startReport{}, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return startReport{}, ErrAlreadyRunning
	}

	// Eligible teams in registration order; unconsumed chains in
	// creation order. Pairing happens inside one transaction, so no two
	// teams can receive the same chain.
	teamRows, err := tx.QueryContext(ctx, `
		SELECT id, name FROM teams
		WHERE attended = 1 AND chain_id IS NULL
		ORDER BY created_at
	`)
	if err != nil {
		return startReport{}, err
	}
	type teamRef struct{ id, name string }
	var eligible []teamRef
	for teamRows.Next() {
		var t teamRef
		if err := teamRows.Scan(&t.id, &t.name); err != nil {
			teamRows.Close()
			return startReport{}, err
		}
		eligible = append(eligible, t)
	}
	teamRows.Close()
	if err := teamRows.Err(); err != nil {
		return startReport{}, err
	}

	chainRows, err := tx.QueryContext(ctx, `
		SELECT ch.id FROM clue_chains ch
		WHERE NOT EXISTS (SELECT 1 FROM teams t WHERE t.chain_id = ch.id)
		ORDER BY ch.created_at
	`)
	if err != nil {
		return startReport{}, err
	}
	var free []string
	for chainRows.Next() {
		var id string
		if err := chainRows.Scan(&id); err != nil {
			chainRows.Close()
			return startReport{}, err
		}
		free = append(free, id)
	}
	chainRows.Close()
	if err := chainRows.Err(); err != nil {
		return startReport{}, err
	}

	var report startReport
	for i, team := range eligible {
		if i >= len(free) {
			report.UnassignedTeams = append(report.UnassignedTeams, team.name)
			continue
		}
		_, err := tx.ExecContext(ctx, `
			UPDATE teams
			SET chain_id = ?, chain_assigned_at = strftime('%Y-%m-%dT%H:%M:%fZ', 'now')
			WHERE id = ? AND chain_id IS NULL
		`, free[i], team.id)
		if err != nil {
			return startReport{}, err
		}
		report.AssignedTeams++
	}

	if err := tx.Commit(); err != nil {
		return startReport{}, err
	}
	return report, nil
}

// StopHunt halts new automatic assignments only. Existing chains,
// progress, and the winner slot are untouched.
func (s *SQLiteStore) StopHunt(ctx context.Context) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE hunt_state
		SET status = 'stopped', stopped_at = strftime('%Y-%m-%dT%H:%M:%fZ', 'now')
		WHERE slot = 1 AND status = 'running'
	`)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrAlreadyStopped
	}
	return nil
}

func (s *SQLiteStore) TeamHunt(ctx context.Context, teamID string) (teamHuntData, error) {
	var d teamHuntData
	var attended, hasWon int
	var chainID, assignedAt, wonAt sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, attended, chain_id, chain_assigned_at, has_won, won_at
		FROM teams WHERE id = ?
	`, teamID).Scan(&d.TeamID, &d.TeamName, &attended, &chainID, &assignedAt, &hasWon, &wonAt)
	if errors.Is(err, sql.ErrNoRows) {
		return d, ErrNotFound
	}
	if err != nil {
		return d, err
	}
	d.Attended = attended != 0
	d.HasWon = hasWon != 0
	d.ChainID = chainID.String
	d.ChainAssignedAt = assignedAt.String
	d.WonAt = wonAt.String

	if d.ChainID != "" {
		clues := make([]Clue, 4)
		err = s.db.QueryRowContext(ctx, `
			SELECT c1.id, c1.text, c1.token,
				c2.id, c2.text, c2.token,
				c3.id, c3.text, c3.token,
				c4.id, c4.text, c4.token
			FROM clue_chains ch
			JOIN clues c1 ON c1.id = ch.clue1_id
			JOIN clues c2 ON c2.id = ch.clue2_id
			JOIN clues c3 ON c3.id = ch.clue3_id
			JOIN clues c4 ON c4.id = ch.clue4_id
			WHERE ch.id = ?
		`, d.ChainID).Scan(
			&clues[0].ID, &clues[0].Text, &clues[0].Token,
			&clues[1].ID, &clues[1].Text, &clues[1].Token,
			&clues[2].ID, &clues[2].Text, &clues[2].Token,
			&clues[3].ID, &clues[3].Text, &clues[3].Token)
		if err != nil {
			return d, err
		}
		d.ChainClues = clues
	}

	// rowid breaks timestamp ties so history order always matches
	// append order.
	rows, err := s.db.QueryContext(ctx, `
		SELECT clue_id, scanned_at FROM scans
		WHERE team_id = ?
		ORDER BY scanned_at, rowid
	`, teamID)
	if err != nil {
		return d, err
	}
	defer rows.Close()
	for rows.Next() {
		var sc ScanRow
		if err := rows.Scan(&sc.ClueID, &sc.ScannedAt); err != nil {
			return d, err
		}
		d.Scans = append(d.Scans, sc)
	}
	return d, rows.Err()
}

// AppendScan records one scan event, but only if the team's scan count
// still equals priorScans. The predicate and the append are a single
// statement, so two racing scans of the same token cannot both advance.
func (s *SQLiteStore) AppendScan(ctx context.Context, teamID, clueID string, priorScans int) (string, error) {
	id := uuid.NewString()
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO scans (id, team_id, clue_id)
		SELECT ?, ?, ?
		WHERE (SELECT COUNT(*) FROM scans WHERE team_id = ?) = ?
	`, id, teamID, clueID, teamID, priorScans)
	if isUniqueViolation(err) {
		return "", ErrScanConflict
	}
	if err != nil {
		return "", err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return "", ErrScanConflict
	}

	var scannedAt string
	err = s.db.QueryRowContext(ctx, `SELECT scanned_at FROM scans WHERE id = ?`, id).Scan(&scannedAt)
	return scannedAt, err
}

// ClaimWinner is the single compare-and-swap on the global winner slot.
// Inserting the slot row, flipping the team's flags, and writing the
// fan-out outbox rows commit together; a UNIQUE violation on the slot
// means another team got there first.
func (s *SQLiteStore) ClaimWinner(ctx context.Context, teamID string) (string, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	var wonAt string
	err = tx.QueryRowContext(ctx, `
		INSERT INTO winner_slot (slot, team_id)
		VALUES (1, ?)
		RETURNING won_at
	`, teamID).Scan(&wonAt)
	if isUniqueViolation(err) {
		return "", ErrWinnerTaken
	}
	if err != nil {
		return "", err
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE teams SET has_won = 1, won_at = ? WHERE id = ?
	`, wonAt, teamID); err != nil {
		return "", err
	}

	// Fan-out: one outbox row per hunt participant, delivered later by
	// the notify worker.
	var teamName string
	if err := tx.QueryRowContext(ctx, `SELECT name FROM teams WHERE id = ?`, teamID).Scan(&teamName); err != nil {
		return "", err
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO notifications (id, team_id, title, body, metadata)
		SELECT lower(hex(randomblob(16))), t.id,
			'Treasure hunt won!',
			? || ' found the final treasure at ' || ?,
			json_object('winningTeamId', ?, 'wonAt', ?)
		FROM teams t
		WHERE t.chain_id IS NOT NULL
	`, teamName, wonAt, teamID, wonAt); err != nil {
		return "", err
	}

	if err := tx.Commit(); err != nil {
		return "", err
	}
	return wonAt, nil
}

func (s *SQLiteStore) CurrentWinner(ctx context.Context) (WinnerInfo, error) {
	var w WinnerInfo
	err := s.db.QueryRowContext(ctx, `
		SELECT ws.team_id, t.name, ws.won_at
		FROM winner_slot ws
		JOIN teams t ON t.id = ws.team_id
		WHERE ws.slot = 1
	`).Scan(&w.TeamID, &w.TeamName, &w.WonAt)
	if errors.Is(err, sql.ErrNoRows) {
		return w, ErrNotFound
	}
	return w, err
}

func (s *SQLiteStore) RegisterTeam(ctx context.Context, name, joinToken string) (AdminTeamItem, error) {
	var item AdminTeamItem
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO teams (name, join_token)
		VALUES (?, ?)
		RETURNING id, name, join_token, created_at
	`, name, joinToken).Scan(&item.ID, &item.Name, &item.JoinToken, &item.CreatedAt)
	if isUniqueViolation(err) {
		return AdminTeamItem{}, ErrAlreadyExists
	}
	return item, err
}

// MarkAttendance flags the team as present. While the hunt is running,
// a newly attended team without a chain receives the next unconsumed
// chain in the same transaction; stopping the hunt halts exactly this
// automatic assignment.
func (s *SQLiteStore) MarkAttendance(ctx context.Context, teamID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `UPDATE teams SET attended = 1 WHERE id = ?`, teamID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}

	var status string
	if err := tx.QueryRowContext(ctx, `SELECT status FROM hunt_state WHERE slot = 1`).Scan(&status); err != nil {
		return err
	}
	if status == "running" {
		// Same free-chain selection as StartHunt. A team left without
		// a chain when none are free is picked up by a later start.
		if _, err := tx.ExecContext(ctx, `
			UPDATE teams
			SET chain_id = (
				SELECT ch.id FROM clue_chains ch
				WHERE NOT EXISTS (SELECT 1 FROM teams t WHERE t.chain_id = ch.id)
				ORDER BY ch.created_at
				LIMIT 1
			),
				chain_assigned_at = strftime('%Y-%m-%dT%H:%M:%fZ', 'now')
			WHERE id = ? AND chain_id IS NULL
				AND EXISTS (
					SELECT 1 FROM clue_chains ch
					WHERE NOT EXISTS (SELECT 1 FROM teams t WHERE t.chain_id = ch.id)
				)
		`, teamID); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (s *SQLiteStore) ListTeams(ctx context.Context) ([]AdminTeamDetail, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT t.id, t.name, t.join_token, t.attended,
			COALESCE(t.chain_id, ''), t.has_won, COALESCE(t.won_at, ''),
			(SELECT COUNT(*) FROM members m WHERE m.team_id = t.id),
			(SELECT COUNT(*) FROM scans sc WHERE sc.team_id = t.id),
			t.created_at
		FROM teams t
		ORDER BY t.created_at
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	teams := []AdminTeamDetail{}
	for rows.Next() {
		var t AdminTeamDetail
		var attended, hasWon int
		if err := rows.Scan(&t.ID, &t.Name, &t.JoinToken, &attended,
			&t.ChainID, &hasWon, &t.WonAt, &t.MemberCount, &t.ScanCount, &t.CreatedAt); err != nil {
			return nil, err
		}
		t.AttendanceMarked = attended != 0
		t.HasWon = hasWon != 0
		teams = append(teams, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range teams {
		scanRows, err := s.db.QueryContext(ctx, `
			SELECT clue_id, scanned_at FROM scans
			WHERE team_id = ?
			ORDER BY scanned_at, rowid
		`, teams[i].ID)
		if err != nil {
			return nil, err
		}
		scans := []ScanRow{}
		for scanRows.Next() {
			var sc ScanRow
			if err := scanRows.Scan(&sc.ClueID, &sc.ScannedAt); err != nil {
				scanRows.Close()
				return nil, err
			}
			scans = append(scans, sc)
		}
		scanRows.Close()
		if err := scanRows.Err(); err != nil {
			return nil, err
		}
		teams[i].Scans = scans
	}
	return teams, nil
}

func (s *SQLiteStore) EnqueueNotification(ctx context.Context, teamID, title, body, metadata string) error {
	if metadata == "" {
		metadata = "{}"
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO notifications (id, team_id, title, body, metadata)
		VALUES (?, ?, ?, ?, ?)
	`, uuid.NewString(), teamID, title, body, metadata)
	return err
}

func (s *SQLiteStore) TeamNotifications(ctx context.Context, teamID string) ([]NotificationItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, body, status, created_at
		FROM notifications
		WHERE team_id = ?
		ORDER BY created_at DESC
	`, teamID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []NotificationItem{}
	for rows.Next() {
		var n NotificationItem
		if err := rows.Scan(&n.ID, &n.Title, &n.Body, &n.Status, &n.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, n)
	}
	return items, rows.Err()
}
