// Package http exposes the JSON API and the live snapshot stream.
package http

import (
	"context"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"duit/internal/log"
	"duit/internal/middleware/ratelimit"
	"duit/internal/middleware/trace"
	"duit/internal/services"
	"duit/internal/session"
	"duit/internal/views"
	"duit/web"
)

type Server struct {
	http.Server

	sess   *session.Session
	intake *services.Intake
	totals *views.Totals
	recent *views.RecentFeed
	month  *views.MonthWindow

	limiter      *ratelimit.Limiter
	logger       *log.Logger
	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(addr string, sess *session.Session, intake *services.Intake, totals *views.Totals, recent *views.RecentFeed, month *views.MonthWindow, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.New(log.Config{})
	}

	mux := http.NewServeMux()

	s := &Server{
		sess:    sess,
		intake:  intake,
		totals:  totals,
		recent:  recent,
		month:   month,
		limiter: ratelimit.NewLimiter(ratelimit.DefaultConfig()),
		logger:  logger.WithComponent(log.ComponentHTTP),
	}

	// Dashboard (served from embedded FS)
	if sub, err := fs.Sub(web.StaticFS, "static"); err == nil {
		mux.Handle("/", http.FileServer(http.FS(sub)))
	} else {
		s.logger.Warn("failed to mount embedded static FS", log.FieldError, err)
	}

	mux.HandleFunc("/healthz", handleHealth)
	mux.HandleFunc("/readyz", handleReady)

	mux.HandleFunc("/api/transactions", s.handleTransactions)
	mux.HandleFunc("/api/summary", s.handleSummary)
	mux.HandleFunc("/api/recent", s.handleRecent)
	mux.HandleFunc("/api/month", s.handleMonth)
	mux.HandleFunc("/api/month/advance", s.handleMonthAdvance)
	mux.HandleFunc("/api/session", s.handleSessionState)
	mux.HandleFunc("/api/session/login", s.handleLogin)
	mux.HandleFunc("/api/session/logout", s.handleLogout)
	mux.HandleFunc("/api/stream", s.handleStream)

	// Writes go through the rate limiter; reads and the stream do not.
	limited := s.limiter.Middleware(trace.ExtractClientIP, func(r *http.Request) bool {
		return r.Method == http.MethodPost
	})(withAPIHeaders(mux))

	traced := trace.NewMiddleware(trace.ExtractClientIP, logger)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           traced.Middleware(limited),
		ReadHeaderTimeout: 5 * time.Second,
	}

	return s
}

// Shutdown stops the limiter's cleanup goroutine and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func withAPIHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Cache-Control", "no-store")
		next.ServeHTTP(w, r)
	})
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
