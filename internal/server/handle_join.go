package server

import (
	"errors"
	"net/http"
	"strings"
)

// TeamLookupResponse describes the team a join token resolves to.
type TeamLookupResponse struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	AttendanceMarked bool   `json:"attendanceMarked"`
}

type JoinRequest struct {
	JoinToken  string `json:"joinToken"`
	MemberName string `json:"memberName"`
}

type JoinResponse struct {
	Token    string `json:"token"`
	MemberID string `json:"memberId"`
	TeamID   string `json:"teamId"`
	TeamName string `json:"teamName"`
}

func handleJoin(store Store, broker *Broker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req JoinRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		req.MemberName = strings.TrimSpace(req.MemberName)
		if req.MemberName == "" || req.JoinToken == "" {
			writeError(w, http.StatusBadRequest, "joinToken and memberName are required")
			return
		}

		team, err := store.TeamByJoinToken(r.Context(), req.JoinToken)
		if errors.Is(err, ErrNotFound) {
			writeError(w, http.StatusNotFound, "team not found")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		memberID, sessionID, err := store.JoinTeam(r.Context(), team.ID, req.MemberName)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		broker.Publish(team.ID, HuntEvent{
			Type:       "member_joined",
			MemberName: req.MemberName,
		})

		writeJSON(w, http.StatusOK, JoinResponse{
			Token:    sessionID,
			MemberID: memberID,
			TeamID:   team.ID,
			TeamName: team.Name,
		})
	}
}

// HuntStatusResponse tells clients whether to show "waiting for the
// hunt to begin".
type HuntStatusResponse struct {
	Status string `json:"status"`
}

func handleHuntStatus(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status, err := store.HuntStatus(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusOK, HuntStatusResponse{Status: status})
	}
}
