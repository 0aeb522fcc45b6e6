package server

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"net/http"
	"strings"
)

// ChainDetail is one clue chain with its four clues in order and the
// team it is assigned to, if any.
type ChainDetail struct {
	ID           string `json:"id"`
	Clues        []Clue `json:"clues"`
	AssignedTeam string `json:"assignedTeam,omitempty"`
	CreatedAt    string `json:"createdAt"`
}

// CreateChainRequest carries the four clue texts in first-to-final order.
type CreateChainRequest struct {
	Texts []string `json:"texts"`
}

type SetWinnerClueRequest struct {
	Text string `json:"text"`
}

// generateClueToken returns the opaque payload encoded into a clue's QR
// code. crypto/rand keeps tokens collision-resistant; an actual
// collision surfaces as a fatal UNIQUE violation on insert.
func generateClueToken() string {
	b := make([]byte, 8)
	rand.Read(b)
	return "clue-" + hex.EncodeToString(b)
}

func handleAdminCreateChain(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateChainRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if len(req.Texts) != 4 {
			writeError(w, http.StatusBadRequest, "exactly 4 clue texts are required")
			return
		}

		var texts, tokens [4]string
		for i, text := range req.Texts {
			text = strings.TrimSpace(text)
			if text == "" {
				writeError(w, http.StatusBadRequest, "clue texts must not be empty")
				return
			}
			texts[i] = text
			tokens[i] = generateClueToken()
		}

		chain, err := store.CreateChain(r.Context(), texts, tokens)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		writeJSON(w, http.StatusCreated, chain)
	}
}

func handleAdminListChains(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		chains, err := store.ListChains(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		if chains == nil {
			chains = []ChainDetail{}
		}
		writeJSON(w, http.StatusOK, chains)
	}
}

func handleAdminSetWinnerClue(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req SetWinnerClueRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		req.Text = strings.TrimSpace(req.Text)
		if req.Text == "" {
			writeError(w, http.StatusBadRequest, "text is required")
			return
		}

		clue, err := store.SetWinnerClue(r.Context(), req.Text, generateClueToken())
		if errors.Is(err, ErrAlreadyExists) {
			writeError(w, http.StatusConflict, "winner clue already set")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		writeJSON(w, http.StatusCreated, clue)
	}
}

func handleAdminGetWinnerClue(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		clue, err := store.GetWinnerClue(r.Context())
		if errors.Is(err, ErrNotFound) {
			writeError(w, http.StatusNotFound, "winner clue not set")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusOK, clue)
	}
}
