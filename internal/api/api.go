// Package api serves the JSON API used by the Autobus and Kafanski Duel
// mini-apps. Every /api route is authenticated with Telegram init data.
package api

import (
	"context"
	"net/http"
	"time"

	"klovn-bot/internal/auth"
	"klovn-bot/internal/game/autobus"
	"klovn-bot/internal/game/cards"
	"klovn-bot/internal/game/duel"
	"klovn-bot/internal/model"
	"klovn-bot/internal/pkg/db"
	"klovn-bot/internal/service"
)

// InitDataHeader carries the raw init data of the calling mini-app.
const InitDataHeader = "X-Telegram-Init-Data"

// AutobusGames is the Autobus part of the service layer.
type AutobusGames interface {
	Create(ctx context.Context, user model.User) (autobus.Table, error)
	Join(ctx context.Context, gameID int64, user model.User) (autobus.Table, error)
	Start(ctx context.Context, gameID, userID int64) (autobus.Table, error)
	Flip(ctx context.Context, gameID, userID int64) (autobus.Outcome, error)
	Match(ctx context.Context, gameID, userID int64, card cards.Card, targetID int64) (autobus.Outcome, error)
	Pass(ctx context.Context, gameID, userID int64) (autobus.Outcome, error)
	BusGuess(ctx context.Context, gameID, userID int64, guess autobus.Guess) (autobus.Outcome, error)
	State(ctx context.Context, gameID, userID int64) (*service.AutobusState, error)
	Lobby(ctx context.Context, userID int64) (*service.AutobusLobby, error)
}

// Duels is the Kafanski Duel part of the service layer.
type Duels interface {
	Create(ctx context.Context, challengerID, opponentID int64) (duel.Snapshot, error)
	Accept(ctx context.Context, duelID, userID int64) (duel.Duel, error)
	Decline(ctx context.Context, duelID, userID int64) error
	Act(ctx context.Context, duelID, userID int64, key string) (duel.Outcome, error)
	State(ctx context.Context, duelID, userID int64) (*service.DuelState, error)
	Active(ctx context.Context, userID int64) (*service.DuelOverview, error)
}

// Accounts registers the users that open a mini-app.
type Accounts interface {
	EnsureUser(ctx context.Context, telegramID int64, username, firstName string) (*model.User, error)
}

// InitDataVerifier checks mini-app init data.
type InitDataVerifier interface {
	Verify(raw string) (*auth.InitData, error)
}

// HealthChecker reports database health.
type HealthChecker interface {
	HealthCheck(ctx context.Context) db.Health
}

// Options configures the HTTP layer.
type Options struct {
	AllowedOrigin string
}

// Handler holds the dependencies of every route.
type Handler struct {
	autobus  AutobusGames
	duels    Duels
	accounts Accounts
	verifier InitDataVerifier
	health   HealthChecker
	opts     Options
}

// New creates a Handler. health may be nil.
func New(autobusGames AutobusGames, duels Duels, accounts Accounts, verifier InitDataVerifier, health HealthChecker, opts Options) *Handler {
	if opts.AllowedOrigin == "" {
		opts.AllowedOrigin = "*"
	}
	return &Handler{
		autobus:  autobusGames,
		duels:    duels,
		accounts: accounts,
		verifier: verifier,
		health:   health,
		opts:     opts,
	}
}

// RegisterRoutes adds every route to mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", h.handleHealth)

	mux.Handle("GET /api/autobus/lobby", h.authed(h.autobusLobby))
	mux.Handle("POST /api/autobus", h.authed(h.autobusCreate))
	mux.Handle("GET /api/autobus/{id}", h.authed(h.autobusState))
	mux.Handle("POST /api/autobus/{id}/join", h.authed(h.autobusJoin))
	mux.Handle("POST /api/autobus/{id}/start", h.authed(h.autobusStart))
	mux.Handle("POST /api/autobus/{id}/flip", h.authed(h.autobusFlip))
	mux.Handle("POST /api/autobus/{id}/match", h.authed(h.autobusMatch))
	mux.Handle("POST /api/autobus/{id}/pass", h.authed(h.autobusPass))
	mux.Handle("POST /api/autobus/{id}/bus_guess", h.authed(h.autobusBusGuess))

	mux.Handle("GET /api/duels", h.authed(h.duelActive))
	mux.Handle("POST /api/duels", h.authed(h.duelCreate))
	mux.Handle("GET /api/duels/{id}", h.authed(h.duelState))
	mux.Handle("POST /api/duels/{id}/accept", h.authed(h.duelAccept))
	mux.Handle("POST /api/duels/{id}/decline", h.authed(h.duelDecline))
	mux.Handle("POST /api/duels/{id}/action", h.authed(h.duelAction))
}

// Routes returns the complete HTTP handler with middleware applied.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)
	return Recovery(Logging(CORS(h.opts.AllowedOrigin, mux)))
}

// NewServer wraps the handler in an http.Server.
func NewServer(addr string, handler http.Handler, readTimeout, writeTimeout time.Duration) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadTimeout:       readTimeout,
		ReadHeaderTimeout: readTimeout,
		WriteTimeout:      writeTimeout,
	}
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	if h.health == nil {
		writeJSON(w, http.StatusOK, db.Health{OK: true})
		return
	}
	health := h.health.HealthCheck(r.Context())
	status := http.StatusOK
	if !health.OK {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, health)
}
