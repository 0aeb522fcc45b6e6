package server

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
)

// StartHuntResponse reports the assignment outcome. Teams left without
// a chain mean the admins created too few chains, not an engine error.
type StartHuntResponse struct {
	Status          string   `json:"status"`
	AssignedTeams   int      `json:"assignedTeams"`
	UnassignedTeams []string `json:"unassignedTeams"`
}

type StopHuntResponse struct {
	Status string `json:"status"`
}

// AdminTeamItem is the registration view of a team.
type AdminTeamItem struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	JoinToken string `json:"joinToken"`
	CreatedAt string `json:"createdAt"`
}

// AdminTeamDetail is the full per-team hunt state for the admin listing.
type AdminTeamDetail struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	JoinToken        string    `json:"joinToken"`
	AttendanceMarked bool      `json:"attendanceMarked"`
	ChainID          string    `json:"chainId,omitempty"`
	HasWon           bool      `json:"hasWon"`
	WonAt            string    `json:"wonAt,omitempty"`
	MemberCount      int       `json:"memberCount"`
	ScanCount        int       `json:"scanCount"`
	Scans            []ScanRow `json:"scans"`
	CreatedAt        string    `json:"createdAt"`
}

type RegisterTeamRequest struct {
	Name string `json:"name"`
}

func generateJoinToken() string {
	b := make([]byte, 4)
	rand.Read(b)
	return "team-" + hex.EncodeToString(b)
}

func handleAdminStartHunt(logger *slog.Logger, store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		report, err := store.StartHunt(r.Context())
		if errors.Is(err, ErrAlreadyRunning) {
			writeError(w, http.StatusConflict, "hunt already running")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		if len(report.UnassignedTeams) > 0 {
			logger.Warn("not enough clue chains for all teams",
				"unassigned", len(report.UnassignedTeams))
		}

		resp := StartHuntResponse{
			Status:          "running",
			AssignedTeams:   report.AssignedTeams,
			UnassignedTeams: report.UnassignedTeams,
		}
		if resp.UnassignedTeams == nil {
			resp.UnassignedTeams = []string{}
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func handleAdminStopHunt(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := store.StopHunt(r.Context())
		if errors.Is(err, ErrAlreadyStopped) {
			writeError(w, http.StatusConflict, "hunt already stopped")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusOK, StopHuntResponse{Status: "stopped"})
	}
}

func handleAdminRegisterTeam(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req RegisterTeamRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		req.Name = strings.TrimSpace(req.Name)
		if req.Name == "" {
			writeError(w, http.StatusBadRequest, "name is required")
			return
		}

		token := generateJoinToken()
		team, err := store.RegisterTeam(r.Context(), req.Name, token)
		if errors.Is(err, ErrAlreadyExists) {
			writeError(w, http.StatusConflict, fmt.Sprintf("join token %q already exists", token))
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		writeJSON(w, http.StatusCreated, team)
	}
}

func handleAdminMarkAttendance(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		teamID := chi.URLParam(r, "teamID")

		err := store.MarkAttendance(r.Context(), teamID)
		if errors.Is(err, ErrNotFound) {
			writeError(w, http.StatusNotFound, "team not found")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

func handleAdminListTeams(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		teams, err := store.ListTeams(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusOK, teams)
	}
}
