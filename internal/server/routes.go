package server

import (
	"database/sql"
	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/swaggest/swgui/v5emb"
)

func addRoutes(r chi.Router, logger *slog.Logger, store Store, db *sql.DB, broker *Broker) {
	r.Get("/openapi.json", handleOpenAPI())
	r.Mount("/docs", v5emb.New("Treasure Hunt API", "/openapi.json", "/docs"))
	r.Get("/healthz", handleHealth(logger, db))

	// Team member routes. Session tokens are minted on join and passed
	// as Bearer tokens (SSE uses a query parameter).
	r.Post("/api/join", handleJoin(store, broker))
	r.Get("/api/hunt/status", handleHuntStatus(store))
	r.Get("/api/hunt/progress", handleProgress(store))
	r.Post("/api/hunt/scan", handleScan(store, broker))
	r.Post("/api/hunt/scan/winner", handleScanWinner(logger, store, broker))
	r.Get("/api/hunt/events", handleEvents(store, broker))
	r.Get("/api/notifications", handleNotifications(store))

	// Admin auth.
	r.Post("/api/admin/login", handleAdminLogin(store))
	r.Post("/api/admin/logout", handleAdminLogout(store))
	r.Get("/api/admin/me", handleAdminMe(store))

	// Admin hunt management, cookie-authenticated.
	r.Route("/api/admin", func(r chi.Router) {
		r.Use(adminAuthMiddleware(store))

		r.Get("/chains", handleAdminListChains(store))
		r.Post("/chains", handleAdminCreateChain(store))
		r.Get("/winner-clue", handleAdminGetWinnerClue(store))
		r.Post("/winner-clue", handleAdminSetWinnerClue(store))

		r.Post("/hunt/start", handleAdminStartHunt(logger, store))
		r.Post("/hunt/stop", handleAdminStopHunt(store))

		r.Get("/teams", handleAdminListTeams(store))
		r.Post("/teams", handleAdminRegisterTeam(store))
		r.Post("/teams/{teamID}/attendance", handleAdminMarkAttendance(store))
	})
}
