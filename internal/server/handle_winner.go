package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
)

type WinnerScanResponse struct {
	Result          string `json:"result"` // "winner", "not_winner", "already_won"
	WinningTeamName string `json:"winningTeamName,omitempty"`
	WonAt           string `json:"wonAt,omitempty"`
}

// handleScanWinner arbitrates the single first winner. The claim is a
// conditional write on the global winner slot; losing it is an expected
// outcome that branches to the "not winner" response, never a retry.
func handleScanWinner(logger *slog.Logger, store Store, broker *Broker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := memberFromRequest(r, store)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid or missing session token")
			return
		}

		var req ScanRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		req.Token = strings.TrimSpace(req.Token)
		if req.Token == "" {
			writeError(w, http.StatusBadRequest, "token is required")
			return
		}

		d, err := store.TeamHunt(r.Context(), sess.TeamID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		if d.ChainID == "" {
			writeError(w, http.StatusConflict, "hunt has not started for your team")
			return
		}
		if !d.Attended {
			writeError(w, http.StatusConflict, "attendance not marked for your team")
			return
		}

		winnerClue, err := store.GetWinnerClue(r.Context())
		if errors.Is(err, ErrNotFound) {
			writeError(w, http.StatusUnprocessableEntity, "invalid code")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		if req.Token != winnerClue.Token {
			writeError(w, http.StatusUnprocessableEntity, "invalid code")
			return
		}

		// Idempotent re-scan by the declared winner: no fan-out re-fires.
		if d.HasWon {
			writeJSON(w, http.StatusOK, WinnerScanResponse{
				Result: "already_won",
				WonAt:  d.WonAt,
			})
			return
		}

		wonAt, err := store.ClaimWinner(r.Context(), sess.TeamID)
		if err == nil {
			broker.Publish(sess.TeamID, HuntEvent{
				Type:     "hunt_won",
				TeamName: d.TeamName,
			})
			writeJSON(w, http.StatusOK, WinnerScanResponse{
				Result: "winner",
				WonAt:  wonAt,
			})
			return
		}
		if !errors.Is(err, ErrWinnerTaken) {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		// Someone else got there first: report who, and leave this team
		// a personal in-app record via the outbox.
		winner, err := store.CurrentWinner(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		// A racing duplicate scan by the winning team itself.
		if winner.TeamID == sess.TeamID {
			writeJSON(w, http.StatusOK, WinnerScanResponse{
				Result: "already_won",
				WonAt:  winner.WonAt,
			})
			return
		}

		meta, _ := json.Marshal(map[string]string{
			"winningTeamId": winner.TeamID,
			"wonAt":         winner.WonAt,
		})
		if err := store.EnqueueNotification(r.Context(), sess.TeamID,
			"Treasure already found",
			winner.TeamName+" reached the treasure first",
			string(meta)); err != nil {
			// The response still tells the team the outcome; only the
			// in-app record is lost.
			logger.Error("enqueueing not-winner notification",
				"team_id", sess.TeamID, "error", err)
		}

		writeJSON(w, http.StatusOK, WinnerScanResponse{
			Result:          "not_winner",
			WinningTeamName: winner.TeamName,
			WonAt:           winner.WonAt,
		})
	}
}
