package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"decktracker/internal/app/dto"
	"decktracker/internal/domain/model"
	"decktracker/internal/domain/repository"
	"decktracker/internal/domain/service"
	"decktracker/internal/domain/useCases"
	"decktracker/pkg/utils"
)

const maxNameLength = 50

// Server represents an HTTP server with all routes configured.
type Server struct {
	players useCases.PlayerOperations
	clans   useCases.ClanOperations
	auth    useCases.AuthOperations

	limiter     *service.RateLimiter
	authLimiter *service.RateLimiter
	cache       repository.ResponseCache
	dbPing      func(context.Context) error

	log    *slog.Logger
	mux    *http.ServeMux
	server *http.Server
}

// NewServer creates a new HTTP server with configured routes.
func NewServer(
	addr string,
	players useCases.PlayerOperations,
	clans useCases.ClanOperations,
	auth useCases.AuthOperations,
	limiter, authLimiter *service.RateLimiter,
	cache repository.ResponseCache,
	dbPing func(context.Context) error,
	log *slog.Logger,
) *Server {
	mux := http.NewServeMux()

	s := &Server{
		players:     players,
		clans:       clans,
		auth:        auth,
		limiter:     limiter,
		authLimiter: authLimiter,
		cache:       cache,
		dbPing:      dbPing,
		log:         log,
		mux:         mux,
	}
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.withRequestLog(mux),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.registerRoutes()
	return s
}

// registerRoutes configures all HTTP routes.
func (s *Server) registerRoutes() {
	s.mux.HandleFunc("POST /resolve_player", s.handleResolvePlayer)
	s.mux.HandleFunc("POST /resolve_player_by_name", s.handleResolvePlayerByName)
	s.mux.HandleFunc("GET /predict/{tag}", s.handlePredict)
	s.mux.HandleFunc("GET /player/{tag}/stats", s.handlePlayerStats)

	s.mux.HandleFunc("GET /clan/{tag}/stats", s.handleClanStats)
	s.mux.HandleFunc("GET /clan/{tag}/history", s.handleClanHistory)
	s.mux.HandleFunc("GET /clan/{tag}/tracking-status", s.handleTrackingStatus)
	s.mux.HandleFunc("POST /clan/{tag}/track", s.handleTrackClan)
	s.mux.HandleFunc("DELETE /clan/{tag}/track", s.handleUntrackClan)
	s.mux.HandleFunc("POST /clan/{tag}/snapshot", s.handleCreateSnapshot)

	s.mux.HandleFunc("POST /auth/register", s.handleRegister)
	s.mux.HandleFunc("POST /auth/login", s.handleLogin)
	s.mux.HandleFunc("POST /auth/link", s.handleLink)

	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("DELETE /cache/clear", s.handleClearCache)
}

// withRequestLog tags every request with an id and logs method, path,
// and duration.
func (s *Server) withRequestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		reqID := uuid.New().String()
		next.ServeHTTP(w, r)
		s.log.Debug("request",
			"id", reqID,
			"method", r.Method,
			"path", r.URL.Path,
			"remote", clientIP(r),
			"duration", time.Since(start),
		)
	})
}

// handleResolvePlayer resolves a player by fuzzy name match within a clan.
func (s *Server) handleResolvePlayer(w http.ResponseWriter, r *http.Request) {
	var req dto.ResolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, model.ErrValidation)
		return
	}

	clanTag, err := utils.ValidateTag(req.ClanTag)
	if err != nil {
		s.writeError(w, err)
		return
	}
	name := utils.SanitizeString(req.PlayerName, maxNameLength)
	if name == "" {
		s.writeErrorMessage(w, http.StatusBadRequest, "player name cannot be empty")
		return
	}
	if !s.allow(w, r) {
		return
	}

	resolved, err := s.players.ResolveByClanTag(r.Context(), name, clanTag)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, resolved)
}

// handleResolvePlayerByName resolves a player by searching clans by name.
func (s *Server) handleResolvePlayerByName(w http.ResponseWriter, r *http.Request) {
	var req dto.ResolveByNameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, model.ErrValidation)
		return
	}

	name := utils.SanitizeString(req.PlayerName, maxNameLength)
	clanName := utils.SanitizeString(req.ClanName, maxNameLength)
	if name == "" {
		s.writeErrorMessage(w, http.StatusBadRequest, "player name cannot be empty")
		return
	}
	if clanName == "" {
		s.writeErrorMessage(w, http.StatusBadRequest, "clan name cannot be empty")
		return
	}
	if !s.allow(w, r) {
		return
	}

	resolved, err := s.players.ResolveByClanName(r.Context(), name, clanName)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, resolved)
}

// handlePredict returns the top-3 most used decks for a player.
func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	tag, err := utils.ValidateTag(r.PathValue("tag"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	gameMode := r.URL.Query().Get("game_mode")
	if gameMode == "" {
		gameMode = "ranked"
	}
	if !s.allow(w, r) {
		return
	}

	prediction, err := s.players.PredictDecks(r.Context(), tag, gameMode)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, prediction)
}

// handlePlayerStats returns a player's full profile and derived stats.
func (s *Server) handlePlayerStats(w http.ResponseWriter, r *http.Request) {
	tag, err := utils.ValidateTag(r.PathValue("tag"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	if !s.allow(w, r) {
		return
	}

	stats, err := s.players.GetPlayerStats(r.Context(), tag)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, stats)
}

// handleClanStats returns live member statistics for a time period.
func (s *Server) handleClanStats(w http.ResponseWriter, r *http.Request) {
	tag, err := utils.ValidateTag(r.PathValue("tag"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	period := r.URL.Query().Get("time_period")
	if period == "" {
		period = "week"
	}
	if !s.allow(w, r) {
		return
	}

	stats, err := s.clans.GetClanStats(r.Context(), tag, period)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, stats)
}

// handleClanHistory returns snapshot deltas for a time period.
func (s *Server) handleClanHistory(w http.ResponseWriter, r *http.Request) {
	tag, err := utils.ValidateTag(r.PathValue("tag"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	period := r.URL.Query().Get("time_period")
	if period == "" {
		period = "week"
	}
	if !s.allow(w, r) {
		return
	}

	history, err := s.clans.GetHistoricalDelta(r.Context(), tag, period)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if history == nil {
		s.writeErrorMessage(w, http.StatusNotFound, "no snapshot exists for today, create one first")
		return
	}
	s.writeJSON(w, http.StatusOK, history)
}

// handleTrackingStatus reports whether a clan is tracked.
func (s *Server) handleTrackingStatus(w http.ResponseWriter, r *http.Request) {
	tag, err := utils.ValidateTag(r.PathValue("tag"))
	if err != nil {
		s.writeError(w, err)
		return
	}

	clan, err := s.clans.TrackingStatus(r.Context(), tag)
	if err != nil {
		s.writeError(w, err)
		return
	}

	resp := dto.TrackingStatusResponse{}
	if clan != nil {
		resp.IsTracked = true
		resp.TrackingSince = clan.TrackingStarted.Format(time.RFC3339)
		resp.ClanName = clan.ClanName
	}
	s.writeJSON(w, http.StatusOK, resp)
}

// handleTrackClan starts tracking a clan. Requires authentication.
func (s *Server) handleTrackClan(w http.ResponseWriter, r *http.Request) {
	email, ok := s.requirePrincipal(w, r)
	if !ok {
		return
	}
	tag, err := utils.ValidateTag(r.PathValue("tag"))
	if err != nil {
		s.writeError(w, err)
		return
	}

	result, err := s.clans.TrackClan(r.Context(), tag, email)
	if err != nil {
		s.writeError(w, err)
		return
	}

	msg := "clan tracking started successfully"
	if result.AlreadyTracked {
		msg = "clan is already being tracked"
	}
	s.writeJSON(w, http.StatusOK, dto.TrackClanResponse{
		Message:         msg,
		ClanTag:         result.Clan.ClanTag,
		ClanName:        result.Clan.ClanName,
		TrackingStarted: result.Clan.TrackingStarted.Format(time.RFC3339),
		SnapshotCreated: result.SnapshotCreated,
	})
}

// handleUntrackClan deactivates tracking. Requires authentication.
func (s *Server) handleUntrackClan(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.requirePrincipal(w, r); !ok {
		return
	}
	tag, err := utils.ValidateTag(r.PathValue("tag"))
	if err != nil {
		s.writeError(w, err)
		return
	}

	if err := s.clans.UntrackClan(r.Context(), tag); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, dto.MessageResponse{Message: "clan tracking stopped"})
}

// handleCreateSnapshot triggers a snapshot for a tracked clan. Requires
// authentication.
func (s *Server) handleCreateSnapshot(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.requirePrincipal(w, r); !ok {
		return
	}
	tag, err := utils.ValidateTag(r.PathValue("tag"))
	if err != nil {
		s.writeError(w, err)
		return
	}

	tracked, err := s.clans.TrackingStatus(r.Context(), tag)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if tracked == nil {
		s.writeErrorMessage(w, http.StatusNotFound, "clan is not being tracked")
		return
	}

	created := s.clans.CreateSnapshot(r.Context(), tag)
	msg := "snapshot created"
	if !created {
		msg = "snapshot already exists for today"
	}
	s.writeJSON(w, http.StatusOK, dto.SnapshotResponse{
		Message: msg,
		Created: created,
		ClanTag: tag,
		Date:    time.Now().UTC().Format(time.DateOnly),
	})
}

// handleRegister creates an account. Uses the strict auth rate limit.
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	if !s.allowAuth(w, r) {
		return
	}
	var req dto.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, model.ErrValidation)
		return
	}

	token, err := s.auth.Register(r.Context(), req.Email, req.Password, req.PlayerTag)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, dto.AuthResponse{Token: token, Email: strings.ToLower(strings.TrimSpace(req.Email))})
}

// handleLogin authenticates an account. Uses the strict auth rate limit.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if !s.allowAuth(w, r) {
		return
	}
	var req dto.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, model.ErrValidation)
		return
	}

	token, err := s.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		// A failed login is reported as 401 regardless of cause.
		if errors.Is(err, model.ErrNotFound) {
			s.writeErrorMessage(w, http.StatusUnauthorized, "invalid email or password")
			return
		}
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, dto.AuthResponse{Token: token, Email: strings.ToLower(strings.TrimSpace(req.Email))})
}

// handleLink attaches game tags to the authenticated account.
func (s *Server) handleLink(w http.ResponseWriter, r *http.Request) {
	email, ok := s.requirePrincipal(w, r)
	if !ok {
		return
	}
	var req dto.LinkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, model.ErrValidation)
		return
	}

	playerTag, clanTag := req.PlayerTag, req.ClanTag
	var err error
	if playerTag != "" {
		if playerTag, err = utils.ValidateTag(playerTag); err != nil {
			s.writeError(w, err)
			return
		}
	}
	if clanTag != "" {
		if clanTag, err = utils.ValidateTag(clanTag); err != nil {
			s.writeError(w, err)
			return
		}
	}

	if err := s.auth.LinkTags(r.Context(), email, playerTag, clanTag); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, dto.MessageResponse{Message: "tags linked"})
}

// handleHealth reports backing store connectivity.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := dto.HealthResponse{OK: true, Cache: "connected", Database: "connected"}
	if err := s.cache.Ping(r.Context()); err != nil {
		resp.OK = false
		resp.Cache = "disconnected"
	}
	if s.dbPing != nil {
		if err := s.dbPing(r.Context()); err != nil {
			resp.OK = false
			resp.Database = "disconnected"
		}
	}

	status := http.StatusOK
	if !resp.OK {
		status = http.StatusServiceUnavailable
	}
	s.writeJSON(w, status, resp)
}

// handleClearCache flushes the whole cache. Administrative endpoint.
func (s *Server) handleClearCache(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.requirePrincipal(w, r); !ok {
		return
	}
	if err := s.cache.FlushAll(r.Context()); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, dto.MessageResponse{Message: "cache cleared successfully"})
}

// allow enforces the general rate limit, writing the 429 itself.
func (s *Server) allow(w http.ResponseWriter, r *http.Request) bool {
	ok, err := s.limiter.Allow(r.Context(), clientIP(r))
	if err != nil {
		s.log.Warn("rate limit check failed", "err", err)
	}
	if !ok {
		s.writeError(w, fmt.Errorf("%w: try again in an hour", model.ErrRateLimited))
		return false
	}
	return true
}

// allowAuth enforces the strict authentication rate limit.
func (s *Server) allowAuth(w http.ResponseWriter, r *http.Request) bool {
	ok, err := s.authLimiter.Allow(r.Context(), clientIP(r))
	if err != nil {
		s.log.Warn("auth rate limit check failed", "err", err)
	}
	if !ok {
		s.writeError(w, fmt.Errorf("%w: too many authentication attempts, try again in a minute", model.ErrRateLimited))
		return false
	}
	return true
}

// requirePrincipal verifies the bearer token and returns the principal.
func (s *Server) requirePrincipal(w http.ResponseWriter, r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	token, found := strings.CutPrefix(header, "Bearer ")
	if !found || token == "" {
		s.writeErrorMessage(w, http.StatusUnauthorized, "missing bearer token")
		return "", false
	}
	email, err := s.auth.Verify(r.Context(), token)
	if err != nil {
		s.writeErrorMessage(w, http.StatusUnauthorized, "invalid or expired token")
		return "", false
	}
	return email, true
}

// clientIP returns the caller identity used for rate limiting, honoring
// proxy headers.
func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		if ip, _, found := strings.Cut(forwarded, ","); found || ip != "" {
			return strings.TrimSpace(ip)
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Error("failed to encode response", "err", err)
	}
}

func (s *Server) writeErrorMessage(w http.ResponseWriter, status int, detail string) {
	s.writeJSON(w, status, dto.ErrorResponse{Detail: detail})
}

// writeError maps a domain error to an HTTP status.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, model.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, model.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, model.ErrRateLimited):
		status = http.StatusTooManyRequests
	case errors.Is(err, model.ErrAuthDenied):
		status = http.StatusForbidden
	case errors.Is(err, model.ErrUpstreamTimeout):
		status = http.StatusGatewayTimeout
	case errors.Is(err, model.ErrUpstreamUnavailable):
		status = http.StatusServiceUnavailable
	case errors.Is(err, model.ErrUpstream):
		status = http.StatusBadGateway
	}
	s.writeErrorMessage(w, status, err.Error())
}

// Handler returns the root handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Start begins listening for HTTP requests.
func (s *Server) Start() error {
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
