// Package server exposes the REST API. Handlers decode requests, resolve
// the caller from the Authorization header and delegate to internal/app;
// every response body is JSON except the plain-text confirmation-code
// rejection on the token endpoint.
package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strings"

	"reviewbase/internal/app"
	"reviewbase/internal/util"
	"reviewbase/pkg/domain"
)

// Limiter gates a request key against a quota.
type Limiter interface {
	Allow(key string) bool
}

// Config wires the server's collaborators. Limiters are optional; a nil
// limiter disables the corresponding gate.
type Config struct {
	App           *app.App
	SignupLimiter Limiter
	TokenLimiter  Limiter
}

type Server struct {
	app           *app.App
	mux           *http.ServeMux
	signupLimiter Limiter
	tokenLimiter  Limiter
}

func New(cfg Config) *Server {
	s := &Server{
		app:           cfg.App,
		mux:           http.NewServeMux(),
		signupLimiter: cfg.SignupLimiter,
		tokenLimiter:  cfg.TokenLimiter,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /v1/health", s.handleHealth)

	s.mux.HandleFunc("POST /v1/auth/signup", s.handleSignUp)
	s.mux.HandleFunc("POST /v1/auth/token", s.handleToken)

	s.mux.HandleFunc("GET /v1/categories", s.handleListCategories)
	s.mux.HandleFunc("POST /v1/categories", s.authenticated(s.handleCreateCategory))
	s.mux.HandleFunc("DELETE /v1/categories/{slug}", s.authenticated(s.handleDeleteCategory))

	s.mux.HandleFunc("GET /v1/genres", s.handleListGenres)
	s.mux.HandleFunc("POST /v1/genres", s.authenticated(s.handleCreateGenre))
	s.mux.HandleFunc("DELETE /v1/genres/{slug}", s.authenticated(s.handleDeleteGenre))

	s.mux.HandleFunc("GET /v1/titles", s.handleListTitles)
	s.mux.HandleFunc("POST /v1/titles", s.authenticated(s.handleCreateTitle))
	s.mux.HandleFunc("GET /v1/titles/{titleID}", s.handleGetTitle)
	s.mux.HandleFunc("PATCH /v1/titles/{titleID}", s.authenticated(s.handleUpdateTitle))
	s.mux.HandleFunc("DELETE /v1/titles/{titleID}", s.authenticated(s.handleDeleteTitle))

	s.mux.HandleFunc("GET /v1/titles/{titleID}/reviews", s.handleListReviews)
	s.mux.HandleFunc("POST /v1/titles/{titleID}/reviews", s.authenticated(s.handleCreateReview))
	s.mux.HandleFunc("GET /v1/titles/{titleID}/reviews/{reviewID}", s.handleGetReview)
	s.mux.HandleFunc("PATCH /v1/titles/{titleID}/reviews/{reviewID}", s.authenticated(s.handleUpdateReview))
	s.mux.HandleFunc("DELETE /v1/titles/{titleID}/reviews/{reviewID}", s.authenticated(s.handleDeleteReview))

	s.mux.HandleFunc("GET /v1/titles/{titleID}/reviews/{reviewID}/comments", s.handleListComments)
	s.mux.HandleFunc("POST /v1/titles/{titleID}/reviews/{reviewID}/comments", s.authenticated(s.handleCreateComment))
	s.mux.HandleFunc("GET /v1/titles/{titleID}/reviews/{reviewID}/comments/{commentID}", s.handleGetComment)
	s.mux.HandleFunc("PATCH /v1/titles/{titleID}/reviews/{reviewID}/comments/{commentID}", s.authenticated(s.handleUpdateComment))
	s.mux.HandleFunc("DELETE /v1/titles/{titleID}/reviews/{reviewID}/comments/{commentID}", s.authenticated(s.handleDeleteComment))

	s.mux.HandleFunc("GET /v1/users", s.authenticated(s.handleListUsers))
	s.mux.HandleFunc("POST /v1/users", s.authenticated(s.handleCreateUser))
	s.mux.HandleFunc("GET /v1/users/me", s.authenticated(s.handleGetProfile))
	s.mux.HandleFunc("PATCH /v1/users/me", s.authenticated(s.handleUpdateProfile))
	s.mux.HandleFunc("GET /v1/users/{username}", s.authenticated(s.handleGetUser))
	s.mux.HandleFunc("PATCH /v1/users/{username}", s.authenticated(s.handleUpdateUser))
	s.mux.HandleFunc("DELETE /v1/users/{username}", s.authenticated(s.handleDeleteUser))
}

// Handler returns the full middleware chain around the route table.
func (s *Server) Handler() http.Handler {
	var h http.Handler = stripTrailingSlash(s.mux)
	h = util.WithCORS(h)
	h = util.WithSecurityHeaders(h)
	h = util.WithRequestLog(h)
	h = util.WithRequestID(h)
	return h
}

// stripTrailingSlash lets clients write paths with or without a trailing
// slash; the route table only knows the bare form.
func stripTrailingSlash(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if p := r.URL.Path; len(p) > 1 && strings.HasSuffix(p, "/") {
			trimmed := r.Clone(r.Context())
			trimmed.URL.Path = strings.TrimRight(p, "/")
			next.ServeHTTP(w, trimmed)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// authenticated resolves the bearer token and rejects the request with 401
// when it is missing or does not map to an account.
func (s *Server) authenticated(next func(http.ResponseWriter, *http.Request, domain.User)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			writeError(w, http.StatusUnauthorized, "authentication required")
			return
		}
		caller, ok, err := s.app.UserFromToken(token)
		if err != nil {
			s.internalError(w, r, err)
			return
		}
		if !ok {
			util.LoggerFromContext(r.Context()).Warn("rejected token",
				"event", "security_event",
				"path", r.URL.Path,
			)
			writeError(w, http.StatusUnauthorized, "invalid or expired token")
			return
		}
		next(w, r, caller)
	}
}

func bearerToken(r *http.Request) string {
	auth := strings.TrimSpace(r.Header.Get("Authorization"))
	const prefix = "Bearer "
	if len(auth) <= len(prefix) || !strings.EqualFold(auth[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(auth[len(prefix):])
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if first, _, ok := strings.Cut(fwd, ","); ok {
			return strings.TrimSpace(first)
		}
		return strings.TrimSpace(fwd)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// --- response helpers ---

type listEnvelope struct {
	Items any `json:"items"`
	Count int `json:"count"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Error("encode response", "error", err)
	}
}

func writeList(w http.ResponseWriter, items any, count int) {
	writeJSON(w, http.StatusOK, listEnvelope{Items: items, Count: count})
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeFieldErrors(w http.ResponseWriter, fields map[string]string) {
	writeJSON(w, http.StatusBadRequest, map[string]any{
		"error":  "validation failed",
		"fields": fields,
	})
}

// writeAppError translates service-layer errors into HTTP responses.
func (s *Server) writeAppError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *app.ValidationError
	switch {
	case errors.As(err, &verr):
		writeFieldErrors(w, verr.Fields)
	case errors.Is(err, app.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, app.ErrSelfRoleChange):
		writeError(w, http.StatusForbidden, "cannot change own role")
	case errors.Is(err, app.ErrForbidden):
		writeError(w, http.StatusForbidden, "forbidden")
	default:
		s.internalError(w, r, err)
	}
}

func (s *Server) internalError(w http.ResponseWriter, r *http.Request, err error) {
	util.LoggerFromContext(r.Context()).Error("request failed",
		"method", r.Method,
		"path", r.URL.Path,
		"error", err,
	)
	writeError(w, http.StatusInternalServerError, "internal error")
}

// decodeJSON fills dst from the body. Unknown fields are ignored, so a
// payload carrying server-stamped fields (author, pub date) has no effect.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "malformed JSON body")
		return false
	}
	return true
}
