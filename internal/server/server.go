// Package server is the HTTP gateway to the ledger engine.
//
// State-changing requests go through Engine.Submit so they are serialized
// with every other writer. Bank and history reads go straight to the store.
package server

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/roach88/tokensender/internal/engine"
	"github.com/roach88/tokensender/internal/ir"
	"github.com/roach88/tokensender/internal/ledger"
	"github.com/roach88/tokensender/internal/metrics"
)

// SenderHeader carries the caller identity of instantiate and execute requests.
const SenderHeader = "X-Sender"

// maxBodyBytes bounds request messages.
const maxBodyBytes = 1 << 20

// Server serves the ledger over HTTP.
type Server struct {
	engine    *engine.Engine
	sudoToken string
}

// New creates a Server. An empty sudoToken disables POST /sudo.
func New(e *engine.Engine, sudoToken string) *Server {
	return &Server{engine: e, sudoToken: sudoToken}
}

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
}

// BalanceResponse answers GET /balances/{addr}.
type BalanceResponse struct {
	Address string     `json:"address"`
	Denom   string     `json:"denom"`
	Amount  ir.Uint128 `json:"amount"`
}

// Routes builds the router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(metrics.Middleware())

	r.Post("/instantiate", s.handleRequest(ir.KindInstantiate))
	r.Post("/execute", s.handleRequest(ir.KindExecute))
	r.Post("/query", s.handleRequest(ir.KindQuery))
	r.With(s.sudoAuth).Post("/sudo", s.handleRequest(ir.KindSudo))

	r.Get("/balances/{addr}", s.handleBalance)
	r.Get("/history", s.handleHistory)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	return r
}

// sudoAuth admits only requests bearing the configured sudo token.
func (s *Server) sudoAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.sudoToken == "" {
			writeError(w, http.StatusForbidden, "SUDO_DISABLED", "sudo endpoint is disabled")
			return
		}

		auth := r.Header.Get("Authorization")
		const bearerPrefix = "Bearer "
		if !strings.HasPrefix(auth, bearerPrefix) {
			writeError(w, http.StatusUnauthorized, "UNAUTHENTICATED", "authorization header must use Bearer scheme")
			return
		}
		token := auth[len(bearerPrefix):]
		if subtle.ConstantTimeCompare([]byte(token), []byte(s.sudoToken)) != 1 {
			writeError(w, http.StatusUnauthorized, "UNAUTHENTICATED", "invalid sudo token")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleRequest(kind ir.RequestKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
		if err != nil {
			writeError(w, http.StatusBadRequest, string(ledger.ErrCodeInvalidRequest), "read body: "+err.Error())
			return
		}

		res, err := s.engine.Submit(r.Context(), engine.Request{
			Kind:   kind,
			Sender: r.Header.Get(SenderHeader),
			Msg:    body,
		})
		if err != nil {
			s.handleError(w, err)
			return
		}

		if kind == ir.KindQuery {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write(res.Data)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	addr := chi.URLParam(r, "addr")
	bal, err := s.engine.Balance(r.Context(), addr)
	if err != nil {
		s.handleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, BalanceResponse{
		Address: addr,
		Denom:   s.engine.Config().Denom,
		Amount:  bal,
	})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, string(ledger.ErrCodeInvalidRequest), "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	entries, err := s.engine.History(r.Context(), limit)
	if err != nil {
		s.handleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// handleError maps ledger error codes to HTTP statuses.
func (s *Server) handleError(w http.ResponseWriter, err error) {
	if errors.Is(err, engine.ErrStopped) {
		writeError(w, http.StatusServiceUnavailable, "UNAVAILABLE", err.Error())
		return
	}

	var lerr *ledger.Error
	if !errors.As(err, &lerr) {
		slog.Error("unhandled request error", "error", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL", "internal error")
		return
	}

	status := statusOf(lerr.Code)
	if status >= http.StatusInternalServerError {
		slog.Error("request failed", "code", lerr.Code, "error", err)
	}
	w.Header().Set(metrics.CodeHeader, string(lerr.Code))
	writeJSON(w, status, ErrorResponse{
		Code:    string(lerr.Code),
		Message: lerr.Message,
		Details: lerr.Details,
	})
}

func statusOf(code ledger.ErrorCode) int {
	switch code {
	case ledger.ErrCodeUnauthorized:
		return http.StatusForbidden
	case ledger.ErrCodeInsufficientFunds, ledger.ErrCodeOverflow:
		return http.StatusUnprocessableEntity
	case ledger.ErrCodeInvalidAddress, ledger.ErrCodeInvalidRequest:
		return http.StatusBadRequest
	case ledger.ErrCodeAlreadyInstantiated:
		return http.StatusConflict
	case ledger.ErrCodeNotInstantiated:
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set(metrics.CodeHeader, code)
	writeJSON(w, status, ErrorResponse{Code: code, Message: message})
}
