package server

import (
	"errors"
	"net/http"
)

// ClueHistoryEntry is one revealed clue in a team's history. Number 1
// is the chain's first clue (revealed at assignment, no scan), 2-4 are
// scanned chain clues, 5 is the winner clue once the team has won.
type ClueHistoryEntry struct {
	ClueNumber int    `json:"clueNumber"`
	Text       string `json:"text"`
	RevealedAt string `json:"revealedAt"`
	IsLatest   bool   `json:"isLatest"`
}

type ProgressResponse struct {
	TeamID             string             `json:"teamId"`
	TeamName           string             `json:"teamName"`
	IsHuntStarted      bool               `json:"isHuntStarted"`
	IsAttendanceMarked bool               `json:"isAttendanceMarked"`
	CurrentClueNumber  int                `json:"currentClueNumber"`
	HasWon             bool               `json:"hasWon"`
	WonAt              string             `json:"wonAt,omitempty"`
	ClueHistory        []ClueHistoryEntry `json:"clueHistory"`
}

// buildProgress derives the read-only projection of a team's hunt state.
// It performs no writes and tolerates scans recorded out of wall-clock
// order by positioning entries by chain position, not timestamp.
func buildProgress(d teamHuntData, winnerClue Clue, haveWinnerClue bool) ProgressResponse {
	resp := ProgressResponse{
		TeamID:             d.TeamID,
		TeamName:           d.TeamName,
		IsHuntStarted:      d.ChainID != "",
		IsAttendanceMarked: d.Attended,
		HasWon:             d.HasWon,
		WonAt:              d.WonAt,
		ClueHistory:        []ClueHistoryEntry{},
	}
	if d.ChainID == "" {
		return resp
	}

	resp.ClueHistory = append(resp.ClueHistory, ClueHistoryEntry{
		ClueNumber: 1,
		Text:       d.ChainClues[0].Text,
		RevealedAt: d.ChainAssignedAt,
	})

	// Scans are a strict prefix of chain positions 2..4; the i-th scan
	// revealed clue i+2.
	for i, sc := range d.Scans {
		if i+1 >= len(d.ChainClues) {
			break
		}
		resp.ClueHistory = append(resp.ClueHistory, ClueHistoryEntry{
			ClueNumber: i + 2,
			Text:       d.ChainClues[i+1].Text,
			RevealedAt: sc.ScannedAt,
		})
	}

	if d.HasWon && haveWinnerClue {
		resp.ClueHistory = append(resp.ClueHistory, ClueHistoryEntry{
			ClueNumber: 5,
			Text:       winnerClue.Text,
			RevealedAt: d.WonAt,
		})
	}

	resp.ClueHistory[len(resp.ClueHistory)-1].IsLatest = true

	resp.CurrentClueNumber = len(d.Scans) + 1
	if resp.CurrentClueNumber > 4 {
		resp.CurrentClueNumber = 4
	}
	if d.HasWon {
		resp.CurrentClueNumber = 5
	}
	return resp
}

func handleProgress(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := memberFromRequest(r, store)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid or missing session token")
			return
		}

		d, err := store.TeamHunt(r.Context(), sess.TeamID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		winnerClue, err := store.GetWinnerClue(r.Context())
		haveWinnerClue := err == nil
		if err != nil && !errors.Is(err, ErrNotFound) {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		writeJSON(w, http.StatusOK, buildProgress(d, winnerClue, haveWinnerClue))
	}
}
