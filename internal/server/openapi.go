package server

import (
	"encoding/json"
	"net/http"

	openapi "github.com/swaggest/openapi-go"
	"github.com/swaggest/openapi-go/openapi3"
)

// ErrorResponse is returned for all error responses.
type ErrorResponse struct {
	Error string `json:"error"`
}

func newOpenAPISpec() *openapi3.Spec {
	r := openapi3.NewReflector()
	r.Spec.Info.Title = "Treasure Hunt API"
	r.Spec.Info.Version = "0.1.0"
	r.Spec.Info.WithDescription("Backend API for the festival treasure hunt.")

	// GET /healthz
	getHealthz, _ := r.NewOperationContext(http.MethodGet, "/healthz")
	getHealthz.SetSummary("Health check")
	getHealthz.SetDescription("Returns the health status of backend dependencies.")
	getHealthz.AddRespStructure(HealthResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	getHealthz.AddRespStructure(HealthResponse{}, openapi.WithHTTPStatus(http.StatusServiceUnavailable))
	_ = r.AddOperation(getHealthz)

	// POST /api/join
	postJoin, _ := r.NewOperationContext(http.MethodPost, "/api/join")
	postJoin.SetSummary("Join a team")
	postJoin.SetDescription("Team member joins using the team's join token. Returns a session token.")
	postJoin.AddReqStructure(JoinRequest{})
	postJoin.AddRespStructure(JoinResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	postJoin.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	postJoin.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	_ = r.AddOperation(postJoin)

	// GET /api/hunt/status
	getStatus, _ := r.NewOperationContext(http.MethodGet, "/api/hunt/status")
	getStatus.SetSummary("Hunt status")
	getStatus.SetDescription("Returns whether the hunt is running. Unauthenticated.")
	getStatus.AddRespStructure(HuntStatusResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	_ = r.AddOperation(getStatus)

	// GET /api/hunt/progress
	getProgress, _ := r.NewOperationContext(http.MethodGet, "/api/hunt/progress")
	getProgress.SetSummary("Team progress")
	getProgress.SetDescription("Returns the clue history projection for the member's team. Requires Bearer token.")
	getProgress.AddRespStructure(ProgressResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	getProgress.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	_ = r.AddOperation(getProgress)

	// POST /api/hunt/scan
	postScan, _ := r.NewOperationContext(http.MethodPost, "/api/hunt/scan")
	postScan.SetSummary("Scan a clue")
	postScan.SetDescription("Submit a scanned clue token. Advances the team's progress only for the next expected clue. Requires Bearer token.")
	postScan.AddReqStructure(ScanRequest{})
	postScan.AddRespStructure(ScanResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	postScan.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	postScan.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusConflict))
	postScan.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnprocessableEntity))
	_ = r.AddOperation(postScan)

	// POST /api/hunt/scan/winner
	postWinner, _ := r.NewOperationContext(http.MethodPost, "/api/hunt/scan/winner")
	postWinner.SetSummary("Scan the winner clue")
	postWinner.SetDescription("Attempt to claim first place with the winner token. Exactly one team ever receives the winner result.")
	postWinner.AddReqStructure(ScanRequest{})
	postWinner.AddRespStructure(WinnerScanResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	postWinner.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	postWinner.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusConflict))
	postWinner.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnprocessableEntity))
	_ = r.AddOperation(postWinner)

	// GET /api/hunt/events
	getEvents, _ := r.NewOperationContext(http.MethodGet, "/api/hunt/events")
	getEvents.SetSummary("SSE event stream")
	getEvents.SetDescription("Server-Sent Events stream for live hunt updates. Pass token as query parameter.")
	getEvents.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusOK),
		openapi.WithContentType("text/event-stream"))
	_ = r.AddOperation(getEvents)

	// GET /api/notifications
	getNotifs, _ := r.NewOperationContext(http.MethodGet, "/api/notifications")
	getNotifs.SetSummary("Team notifications")
	getNotifs.SetDescription("Returns the team's in-app notifications, newest first. Requires Bearer token.")
	getNotifs.AddRespStructure([]NotificationItem{}, openapi.WithHTTPStatus(http.StatusOK))
	getNotifs.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	_ = r.AddOperation(getNotifs)

	// POST /api/admin/login
	postLogin, _ := r.NewOperationContext(http.MethodPost, "/api/admin/login")
	postLogin.SetSummary("Admin login")
	postLogin.SetDescription("Authenticate with email and password. Sets admin_session cookie.")
	postLogin.AddReqStructure(AdminLoginRequest{})
	postLogin.AddRespStructure(AdminMeResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	postLogin.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	_ = r.AddOperation(postLogin)

	// POST /api/admin/logout
	postLogout, _ := r.NewOperationContext(http.MethodPost, "/api/admin/logout")
	postLogout.SetSummary("Admin logout")
	postLogout.SetDescription("Clears admin session and cookie.")
	postLogout.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusOK))
	_ = r.AddOperation(postLogout)

	// GET /api/admin/me
	getMe, _ := r.NewOperationContext(http.MethodGet, "/api/admin/me")
	getMe.SetSummary("Current admin")
	getMe.SetDescription("Returns the currently authenticated admin. Requires admin_session cookie.")
	getMe.AddRespStructure(AdminMeResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	getMe.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	_ = r.AddOperation(getMe)

	// GET /api/admin/chains
	listChains, _ := r.NewOperationContext(http.MethodGet, "/api/admin/chains")
	listChains.SetSummary("List clue chains")
	listChains.SetDescription("Returns all clue chains with tokens and assignments. Requires admin_session cookie.")
	listChains.AddRespStructure([]ChainDetail{}, openapi.WithHTTPStatus(http.StatusOK))
	listChains.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	_ = r.AddOperation(listChains)

	// POST /api/admin/chains
	createChain, _ := r.NewOperationContext(http.MethodPost, "/api/admin/chains")
	createChain.SetSummary("Create clue chain")
	createChain.SetDescription("Creates a chain of four clues with fresh QR tokens. Requires admin_session cookie.")
	createChain.AddReqStructure(CreateChainRequest{})
	createChain.AddRespStructure(ChainDetail{}, openapi.WithHTTPStatus(http.StatusCreated))
	createChain.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	createChain.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	_ = r.AddOperation(createChain)

	// GET /api/admin/winner-clue
	getWinnerClue, _ := r.NewOperationContext(http.MethodGet, "/api/admin/winner-clue")
	getWinnerClue.SetSummary("Get winner clue")
	getWinnerClue.SetDescription("Returns the singleton winner clue. Requires admin_session cookie.")
	getWinnerClue.AddRespStructure(Clue{}, openapi.WithHTTPStatus(http.StatusOK))
	getWinnerClue.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	getWinnerClue.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	_ = r.AddOperation(getWinnerClue)

	// POST /api/admin/winner-clue
	setWinnerClue, _ := r.NewOperationContext(http.MethodPost, "/api/admin/winner-clue")
	setWinnerClue.SetSummary("Set winner clue")
	setWinnerClue.SetDescription("Creates the singleton winner clue. Fails if one already exists. Requires admin_session cookie.")
	setWinnerClue.AddReqStructure(SetWinnerClueRequest{})
	setWinnerClue.AddRespStructure(Clue{}, openapi.WithHTTPStatus(http.StatusCreated))
	setWinnerClue.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusConflict))
	setWinnerClue.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	_ = r.AddOperation(setWinnerClue)

	// POST /api/admin/hunt/start
	startHunt, _ := r.NewOperationContext(http.MethodPost, "/api/admin/hunt/start")
	startHunt.SetSummary("Start the hunt")
	startHunt.SetDescription("Assigns a chain to every attended team and sets the hunt running. Requires admin_session cookie.")
	startHunt.AddRespStructure(StartHuntResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	startHunt.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusConflict))
	startHunt.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	_ = r.AddOperation(startHunt)

	// POST /api/admin/hunt/stop
	stopHunt, _ := r.NewOperationContext(http.MethodPost, "/api/admin/hunt/stop")
	stopHunt.SetSummary("Stop the hunt")
	stopHunt.SetDescription("Halts new chain assignments; existing progress is kept. Requires admin_session cookie.")
	stopHunt.AddRespStructure(StopHuntResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	stopHunt.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusConflict))
	stopHunt.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	_ = r.AddOperation(stopHunt)

	// GET /api/admin/teams
	listTeams, _ := r.NewOperationContext(http.MethodGet, "/api/admin/teams")
	listTeams.SetSummary("List teams")
	listTeams.SetDescription("Returns all teams with chain, scan history, and win status. Requires admin_session cookie.")
	listTeams.AddRespStructure([]AdminTeamDetail{}, openapi.WithHTTPStatus(http.StatusOK))
	listTeams.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	_ = r.AddOperation(listTeams)

	// POST /api/admin/teams
	registerTeam, _ := r.NewOperationContext(http.MethodPost, "/api/admin/teams")
	registerTeam.SetSummary("Register team")
	registerTeam.SetDescription("Registers a team for the hunt and generates its join token. Requires admin_session cookie.")
	registerTeam.AddReqStructure(RegisterTeamRequest{})
	registerTeam.AddRespStructure(AdminTeamItem{}, openapi.WithHTTPStatus(http.StatusCreated))
	registerTeam.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	registerTeam.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	_ = r.AddOperation(registerTeam)

	// POST /api/admin/teams/{teamID}/attendance
	markAttendance, _ := r.NewOperationContext(http.MethodPost, "/api/admin/teams/{teamID}/attendance")
	markAttendance.SetSummary("Mark attendance")
	markAttendance.SetDescription("Marks a team as attended, making it eligible for chain assignment. Requires admin_session cookie.")
	markAttendance.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusOK))
	markAttendance.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	markAttendance.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	_ = r.AddOperation(markAttendance)

	return r.Spec
}

func handleOpenAPI() http.HandlerFunc {
	spec := newOpenAPISpec()
	data, _ := json.MarshalIndent(spec, "", "  ")

	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
	}
}
