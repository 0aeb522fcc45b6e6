package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestScanSequence(t *testing.T) {
	r, store := testRouter(t)
	cookie := adminCookie(t, r)
	startHunt(t, r, cookie)

	token := joinTeam(t, r, "orion-2026", "Asha")
	chain := chainForTeam(t, store, "Orion")

	// Scanning the third clue before the second is out of sequence.
	w := postScan(t, r, "/api/hunt/scan", token, chain.Clues[2].Token)
	if w.Code != http.StatusConflict {
		t.Fatalf("scan ahead: expected 409, got %d: %s", w.Code, w.Body.String())
	}

	// Clues 2, 3, 4 in order all succeed.
	for i, want := range []int{2, 3, 4} {
		w := postScan(t, r, "/api/hunt/scan", token, chain.Clues[i+1].Token)
		if w.Code != http.StatusOK {
			t.Fatalf("scan clue %d: expected 200, got %d: %s", want, w.Code, w.Body.String())
		}
		var resp ScanResponse
		json.NewDecoder(w.Body).Decode(&resp)
		if resp.ClueNumber != want {
			t.Errorf("scan clue %d: clueNumber = %d, want %d", want, resp.ClueNumber, want)
		}
		if resp.Text != chain.Clues[i+1].Text {
			t.Errorf("scan clue %d: text = %q, want %q", want, resp.Text, chain.Clues[i+1].Text)
		}
		if got, want := resp.ChainComplete, want == 4; got != want {
			t.Errorf("scan clue %d: chainComplete = %v, want %v", resp.ClueNumber, got, want)
		}
	}

	// The full history has exactly 4 entries in clue-number order.
	req := httptest.NewRequest(http.MethodGet, "/api/hunt/progress", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	var prog ProgressResponse
	json.NewDecoder(rec.Body).Decode(&prog)
	if len(prog.ClueHistory) != 4 {
		t.Fatalf("expected 4 history entries, got %d", len(prog.ClueHistory))
	}
	for i, entry := range prog.ClueHistory {
		if entry.ClueNumber != i+1 {
			t.Errorf("history[%d].clueNumber = %d, want %d", i, entry.ClueNumber, i+1)
		}
	}
	if !prog.ClueHistory[3].IsLatest {
		t.Error("expected the final entry to be latest")
	}
}

func TestScanRepeatTokenRejected(t *testing.T) {
	r, store := testRouter(t)
	cookie := adminCookie(t, r)
	startHunt(t, r, cookie)

	token := joinTeam(t, r, "orion-2026", "Asha")
	chain := chainForTeam(t, store, "Orion")

	w := postScan(t, r, "/api/hunt/scan", token, chain.Clues[1].Token)
	if w.Code != http.StatusOK {
		t.Fatalf("first scan: expected 200, got %d: %s", w.Code, w.Body.String())
	}

	// Re-presenting the same token is not a second progression: the
	// expected clue has advanced.
	w = postScan(t, r, "/api/hunt/scan", token, chain.Clues[1].Token)
	if w.Code != http.StatusConflict {
		t.Fatalf("repeat scan: expected 409, got %d: %s", w.Code, w.Body.String())
	}

	// State unchanged: next scan still expects clue 3.
	w = postScan(t, r, "/api/hunt/scan", token, chain.Clues[2].Token)
	if w.Code != http.StatusOK {
		t.Fatalf("scan clue 3 after repeat: expected 200, got %d: %s", w.Code, w.Body.String())
	}
}

func TestScanChainComplete(t *testing.T) {
	r, store := testRouter(t)
	cookie := adminCookie(t, r)
	startHunt(t, r, cookie)

	token := joinTeam(t, r, "orion-2026", "Asha")
	chain := chainForTeam(t, store, "Orion")

	for i := 1; i < 4; i++ {
		w := postScan(t, r, "/api/hunt/scan", token, chain.Clues[i].Token)
		if w.Code != http.StatusOK {
			t.Fatalf("scan %d: expected 200, got %d: %s", i+1, w.Code, w.Body.String())
		}
	}

	// Any further ordinary scan is rejected; the winner path is separate.
	w := postScan(t, r, "/api/hunt/scan", token, chain.Clues[1].Token)
	if w.Code != http.StatusConflict {
		t.Fatalf("scan after complete: expected 409, got %d: %s", w.Code, w.Body.String())
	}
}

func TestScanNotEligibleWithoutChain(t *testing.T) {
	r, store := testRouter(t)
	cookie := adminCookie(t, r)
	startHunt(t, r, cookie)

	// Draco has no attendance marked and therefore no chain.
	token := joinTeam(t, r, "draco-2026", "Ravi")
	chain := chainForTeam(t, store, "Orion")

	// Even a valid token is rejected for an ineligible team.
	w := postScan(t, r, "/api/hunt/scan", token, chain.Clues[1].Token)
	if w.Code != http.StatusConflict {
		t.Fatalf("ineligible scan: expected 409, got %d: %s", w.Code, w.Body.String())
	}

	// No scan was recorded.
	d, err := store.TeamHunt(context.Background(), mustTeamID(t, store, "draco-2026"))
	if err != nil {
		t.Fatalf("team hunt: %v", err)
	}
	if len(d.Scans) != 0 {
		t.Errorf("expected no scans, got %d", len(d.Scans))
	}
}

func TestScanInvalidToken(t *testing.T) {
	r, _ := testRouter(t)
	cookie := adminCookie(t, r)
	startHunt(t, r, cookie)

	token := joinTeam(t, r, "orion-2026", "Asha")

	w := postScan(t, r, "/api/hunt/scan", token, "clue-bogus")
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("invalid token: expected 422, got %d: %s", w.Code, w.Body.String())
	}
}

func TestScanRequiresSession(t *testing.T) {
	r, _ := testRouter(t)

	w := postScan(t, r, "/api/hunt/scan", "bogus", "clue-whatever")
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

func mustTeamID(t *testing.T, store *SQLiteStore, joinToken string) string {
	t.Helper()
	team, err := store.TeamByJoinToken(context.Background(), joinToken)
	if err != nil {
		t.Fatalf("team lookup %s: %v", joinToken, err)
	}
	return team.ID
}
