package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func getProgress(t *testing.T, r http.Handler, token string) ProgressResponse {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/api/hunt/progress", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("progress: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp ProgressResponse
	json.NewDecoder(w.Body).Decode(&resp)
	return resp
}

func TestBuildProgressBeforeAssignment(t *testing.T) {
	d := teamHuntData{TeamID: "t1", TeamName: "Orion", Attended: true}

	resp := buildProgress(d, Clue{}, false)
	if resp.IsHuntStarted {
		t.Error("hunt should not be started without a chain")
	}
	if len(resp.ClueHistory) != 0 {
		t.Errorf("clue history len = %d, want 0", len(resp.ClueHistory))
	}
	if resp.CurrentClueNumber != 0 {
		t.Errorf("currentClueNumber = %d, want 0", resp.CurrentClueNumber)
	}
}

func TestBuildProgressMidHunt(t *testing.T) {
	d := teamHuntData{
		TeamID:          "t1",
		TeamName:        "Orion",
		Attended:        true,
		ChainID:         "c1",
		ChainAssignedAt: "2026-08-29T10:00:00.000Z",
		ChainClues: []Clue{
			{ID: "a", Text: "first"},
			{ID: "b", Text: "second"},
			{ID: "c", Text: "third"},
			{ID: "d", Text: "fourth"},
		},
		Scans: []ScanRow{
			{ClueID: "b", ScannedAt: "2026-08-29T10:05:00.000Z"},
			{ClueID: "c", ScannedAt: "2026-08-29T10:12:00.000Z"},
		},
	}

	resp := buildProgress(d, Clue{}, false)
	if resp.CurrentClueNumber != 3 {
		t.Errorf("currentClueNumber = %d, want 3", resp.CurrentClueNumber)
	}
	if len(resp.ClueHistory) != 3 {
		t.Fatalf("clue history len = %d, want 3", len(resp.ClueHistory))
	}
	want := []struct {
		number int
		text   string
	}{
		{1, "first"}, {2, "second"}, {3, "third"},
	}
	for i, w := range want {
		entry := resp.ClueHistory[i]
		if entry.ClueNumber != w.number || entry.Text != w.text {
			t.Errorf("entry %d = (%d, %q), want (%d, %q)", i, entry.ClueNumber, entry.Text, w.number, w.text)
		}
		if entry.IsLatest != (i == len(want)-1) {
			t.Errorf("entry %d isLatest = %v", i, entry.IsLatest)
		}
	}
	if resp.ClueHistory[0].RevealedAt != d.ChainAssignedAt {
		t.Errorf("first clue revealedAt = %q, want assignment time", resp.ClueHistory[0].RevealedAt)
	}
}

func TestBuildProgressWinner(t *testing.T) {
	d := teamHuntData{
		TeamID:          "t1",
		TeamName:        "Orion",
		Attended:        true,
		ChainID:         "c1",
		ChainAssignedAt: "2026-08-29T10:00:00.000Z",
		HasWon:          true,
		WonAt:           "2026-08-29T11:00:00.000Z",
		ChainClues: []Clue{
			{ID: "a", Text: "first"},
			{ID: "b", Text: "second"},
			{ID: "c", Text: "third"},
			{ID: "d", Text: "fourth"},
		},
		Scans: []ScanRow{
			{ClueID: "b", ScannedAt: "2026-08-29T10:05:00.000Z"},
			{ClueID: "c", ScannedAt: "2026-08-29T10:12:00.000Z"},
			{ClueID: "d", ScannedAt: "2026-08-29T10:20:00.000Z"},
		},
	}

	resp := buildProgress(d, Clue{Text: "the treasure"}, true)
	if resp.CurrentClueNumber != 5 {
		t.Errorf("currentClueNumber = %d, want 5", resp.CurrentClueNumber)
	}
	if len(resp.ClueHistory) != 5 {
		t.Fatalf("clue history len = %d, want 5", len(resp.ClueHistory))
	}
	last := resp.ClueHistory[4]
	if last.ClueNumber != 5 || last.Text != "the treasure" || !last.IsLatest {
		t.Errorf("winner entry = %+v", last)
	}
	if last.RevealedAt != d.WonAt {
		t.Errorf("winner revealedAt = %q, want won time", last.RevealedAt)
	}
}

func TestProgressEndpoint(t *testing.T) {
	r, store := testRouter(t)
	cookie := adminCookie(t, r)

	token := joinTeam(t, r, "orion-2026", "Asha")

	resp := getProgress(t, r, token)
	if resp.IsHuntStarted {
		t.Error("hunt should not be started yet")
	}
	if !resp.IsAttendanceMarked {
		t.Error("orion should be marked attended")
	}

	startHunt(t, r, cookie)

	resp = getProgress(t, r, token)
	if !resp.IsHuntStarted {
		t.Fatal("hunt should be started")
	}
	if resp.CurrentClueNumber != 1 {
		t.Errorf("currentClueNumber = %d, want 1", resp.CurrentClueNumber)
	}
	if len(resp.ClueHistory) != 1 {
		t.Fatalf("clue history len = %d, want 1", len(resp.ClueHistory))
	}

	chain := chainForTeam(t, store, "Orion")
	if resp.ClueHistory[0].Text != chain.Clues[0].Text {
		t.Errorf("first clue text = %q, want %q", resp.ClueHistory[0].Text, chain.Clues[0].Text)
	}

	if w := postScan(t, r, "/api/hunt/scan", token, chain.Clues[1].Token); w.Code != http.StatusOK {
		t.Fatalf("scan: expected 200, got %d", w.Code)
	}

	resp = getProgress(t, r, token)
	if resp.CurrentClueNumber != 2 {
		t.Errorf("currentClueNumber after scan = %d, want 2", resp.CurrentClueNumber)
	}
	if len(resp.ClueHistory) != 2 {
		t.Errorf("clue history len after scan = %d, want 2", len(resp.ClueHistory))
	}
}

func TestProgressRequiresSession(t *testing.T) {
	r, _ := testRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/hunt/progress", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}
