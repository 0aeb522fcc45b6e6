package server

import (
	"errors"
	"net/http"
	"strings"
)

type ScanRequest struct {
	Token string `json:"token"`
}

type ScanResponse struct {
	ClueNumber    int    `json:"clueNumber"`
	Text          string `json:"text"`
	ChainComplete bool   `json:"chainComplete"`
}

// handleScan is the sequential state machine for ordinary clues. The
// only state mutation is the conditional scan append; every rejection
// leaves the team's progress untouched.
func handleScan(store Store, broker *Broker) http.HandlerFunc {
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

		clue, err := store.ClueByToken(r.Context(), req.Token)
		if errors.Is(err, ErrNotFound) {
			writeError(w, http.StatusUnprocessableEntity, "invalid code")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		if len(d.Scans) >= 3 {
			writeError(w, http.StatusConflict, "all clues already found")
			return
		}

		// The chain's clues are an ordered sequence; the next expected
		// clue sits at position len(scans)+1 (0-indexed), i.e. clue
		// number len(scans)+2. A repeat scan of an already-consumed
		// token lands here too, since the expected position has moved.
		expected := d.ChainClues[len(d.Scans)+1]
		if clue.ID != expected.ID {
			writeError(w, http.StatusConflict, "that is not your next clue")
			return
		}

		if _, err := store.AppendScan(r.Context(), sess.TeamID, clue.ID, len(d.Scans)); err != nil {
			if errors.Is(err, ErrScanConflict) {
				writeError(w, http.StatusConflict, "that is not your next clue")
				return
			}
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		clueNumber := len(d.Scans) + 2
		broker.Publish(sess.TeamID, HuntEvent{
			Type:       "clue_found",
			ClueNumber: clueNumber,
		})

		writeJSON(w, http.StatusOK, ScanResponse{
			ClueNumber:    clueNumber,
			Text:          expected.Text,
			ChainComplete: clueNumber == 4,
		})
	}
}
