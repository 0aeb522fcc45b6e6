package server

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/srijanfest/treasurehunt/internal/database"
	"github.com/srijanfest/treasurehunt/internal/migrations"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func setupStore(t *testing.T) (*SQLiteStore, *sql.DB) {
	t.Helper()
	ctx := context.Background()

	db, err := database.Open(ctx, filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := migrations.Run(db); err != nil {
		t.Fatalf("run migrations: %v", err)
	}

	store := NewSQLiteStore(db)
	if err := SeedDemo(ctx, testLogger(), store); err != nil {
		t.Fatalf("seed demo data: %v", err)
	}
	return store, db
}

func testRouter(t *testing.T) (*chi.Mux, *SQLiteStore) {
	t.Helper()
	store, db := setupStore(t)

	r := chi.NewRouter()
	addRoutes(r, testLogger(), store, db, NewBroker())
	return r, store
}

// adminCookie logs in as the seeded demo admin and returns the session cookie.
func adminCookie(t *testing.T, r http.Handler) *http.Cookie {
	t.Helper()

	body, _ := json.Marshal(AdminLoginRequest{Email: "admin@fest.example", Password: "hunt-admin"})
	req := httptest.NewRequest(http.MethodPost, "/api/admin/login", bytes.NewReader(body))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("admin login: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	for _, c := range w.Result().Cookies() {
		if c.Name == adminCookieName {
			return c
		}
	}
	t.Fatal("admin login: no session cookie set")
	return nil
}

// joinTeam joins the given team and returns a member session token.
func joinTeam(t *testing.T, r http.Handler, joinToken, memberName string) string {
	t.Helper()

	body, _ := json.Marshal(JoinRequest{JoinToken: joinToken, MemberName: memberName})
	req := httptest.NewRequest(http.MethodPost, "/api/join", bytes.NewReader(body))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("join %s: expected 200, got %d: %s", joinToken, w.Code, w.Body.String())
	}
	var resp JoinResponse
	json.NewDecoder(w.Body).Decode(&resp)
	if resp.Token == "" {
		t.Fatalf("join %s: expected a session token", joinToken)
	}
	return resp.Token
}

// startHunt starts the hunt through the admin API.
func startHunt(t *testing.T, r http.Handler, cookie *http.Cookie) StartHuntResponse {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/api/admin/hunt/start", nil)
	req.AddCookie(cookie)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("start hunt: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp StartHuntResponse
	json.NewDecoder(w.Body).Decode(&resp)
	return resp
}

// chainForTeam returns the chain assigned to the named team.
func chainForTeam(t *testing.T, store *SQLiteStore, teamName string) ChainDetail {
	t.Helper()

	chains, err := store.ListChains(context.Background())
	if err != nil {
		t.Fatalf("list chains: %v", err)
	}
	for _, ch := range chains {
		if ch.AssignedTeam == teamName {
			return ch
		}
	}
	t.Fatalf("no chain assigned to team %q", teamName)
	return ChainDetail{}
}

// postScan submits a scan and returns the recorder.
func postScan(t *testing.T, r http.Handler, path, token, clueToken string) *httptest.ResponseRecorder {
	t.Helper()

	body, _ := json.Marshal(ScanRequest{Token: clueToken})
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}
