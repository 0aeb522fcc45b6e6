package server

import (
	"context"
	"errors"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")

	// Lifecycle misuse.
	ErrAlreadyRunning = errors.New("hunt already running")
	ErrAlreadyStopped = errors.New("hunt already stopped")

	// AppendScan's progress predicate did not hold: the team's expected
	// position moved (repeat scan, out-of-order scan, or a concurrent
	// scan got there first).
	ErrScanConflict = errors.New("scan conflict")

	// ClaimWinner's conditional write lost: another team holds the slot.
	// This is the designed "someone else got there first" outcome, not
	// an error to retry or log.
	ErrWinnerTaken = errors.New("winner already claimed")
)

type memberSession struct {
	MemberID string
	TeamID   string
}

// Clue is one atomic clue: text plus the opaque token encoded in its QR code.
type Clue struct {
	ID    string `json:"id"`
	Text  string `json:"text"`
	Token string `json:"token"`
}

// ScanRow is one append-only scan event, ordered by position in the chain.
type ScanRow struct {
	ClueID    string `json:"clueId"`
	ScannedAt string `json:"scannedAt"`
}

// teamHuntData is everything the scan and progress paths need about one
// team: eligibility, the assigned chain's clues in order, and scan history.
type teamHuntData struct {
	TeamID          string
	TeamName        string
	Attended        bool
	ChainID         string // empty until the hunt assigns a chain
	ChainAssignedAt string
	HasWon          bool
	WonAt           string
	ChainClues      []Clue // len 4 when ChainID is set, positions 1..4
	Scans           []ScanRow
}

// WinnerInfo identifies the team holding the global winner slot.
type WinnerInfo struct {
	TeamID   string `json:"teamId"`
	TeamName string `json:"teamName"`
	WonAt    string `json:"wonAt"`
}

type startReport struct {
	AssignedTeams   int
	UnassignedTeams []string // team names left without a chain (capacity shortfall)
}

type Store interface {
	// Identity surfaces.
	MemberFromToken(ctx context.Context, token string) (memberSession, error)
	TeamByJoinToken(ctx context.Context, joinToken string) (TeamLookupResponse, error)
	JoinTeam(ctx context.Context, teamID, memberName string) (memberID, sessionID string, err error)

	AdminByEmail(ctx context.Context, email string) (adminID, passwordHash string, err error)
	CreateAdminSession(ctx context.Context, adminID string) (string, error)
	DeleteAdminSession(ctx context.Context, sessionID string) error
	AdminFromSession(ctx context.Context, sessionID string) (adminSession, error)

	// Clue catalog.
	CreateChain(ctx context.Context, texts, tokens [4]string) (ChainDetail, error)
	ListChains(ctx context.Context) ([]ChainDetail, error)
	ClueByToken(ctx context.Context, token string) (Clue, error)
	SetWinnerClue(ctx context.Context, text, token string) (Clue, error)
	GetWinnerClue(ctx context.Context) (Clue, error)

	// Hunt lifecycle.
	HuntStatus(ctx context.Context) (string, error)
	StartHunt(ctx context.Context) (startReport, error)
	StopHunt(ctx context.Context) error

	// Team progress and scanning.
	TeamHunt(ctx context.Context, teamID string) (teamHuntData, error)
	AppendScan(ctx context.Context, teamID, clueID string, priorScans int) (scannedAt string, err error)

	// Winner arbitration.
	ClaimWinner(ctx context.Context, teamID string) (wonAt string, err error)
	CurrentWinner(ctx context.Context) (WinnerInfo, error)

	// Registration/attendance surface.
	RegisterTeam(ctx context.Context, name, joinToken string) (AdminTeamItem, error)
	MarkAttendance(ctx context.Context, teamID string) error
	ListTeams(ctx context.Context) ([]AdminTeamDetail, error)

	// Notification outbox (single-row enqueue; the winner fan-out is
	// written inside ClaimWinner's transaction).
	EnqueueNotification(ctx context.Context, teamID, title, body, metadata string) error
	TeamNotifications(ctx context.Context, teamID string) ([]NotificationItem, error)
}
