// Package server exposes the engine over HTTP for web clients
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/rs/cors"
	"github.com/shirou/gopsutil/v3/process"

	"github.com/vthunder/nova/internal/engine"
	"github.com/vthunder/nova/internal/logging"
	"github.com/vthunder/nova/internal/session"
)

const (
	sweepInterval   = 5 * time.Minute
	shutdownTimeout = 10 * time.Second
	maxBodyBytes    = 64 << 10
)

// Config holds HTTP settings
type Config struct {
	Addr        string
	CORSOrigins []string // empty allows any origin
	RateLimit   int      // requests per RateWindow per client IP
	RateWindow  time.Duration
}

// Server serves /api/chat, /api/schedule and /healthz
type Server struct {
	cfg      Config
	engine   *engine.Engine
	sessions *session.Store
	limiter  *ipLimiter
	started  time.Time
}

// New creates a server
func New(eng *engine.Engine, sessions *session.Store, cfg Config) *Server {
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = 20
	}
	if cfg.RateWindow <= 0 {
		cfg.RateWindow = time.Minute
	}
	return &Server{
		cfg:      cfg,
		engine:   eng,
		sessions: sessions,
		limiter:  newIPLimiter(cfg.RateLimit, cfg.RateWindow),
		started:  time.Now(),
	}
}

// Handler returns the routed, rate-limited, CORS-wrapped handler
func (s *Server) Handler() http.Handler {
	api := http.NewServeMux()
	api.HandleFunc("POST /api/chat", s.handleChat)
	api.HandleFunc("GET /api/schedule", s.handleSchedule)

	mux := http.NewServeMux()
	mux.Handle("/api/", s.rateLimited(api))
	mux.HandleFunc("GET /healthz", s.handleHealth)

	origins := s.cfg.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	c := cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
	})
	return c.Handler(mux)
}

// Run serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go s.sweepLoop(ctx)

	errc := make(chan error, 1)
	go func() {
		logging.Info("server", "listening on %s", s.cfg.Addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logging.Info("server", "shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func (s *Server) sweepLoop(ctx context.Context) {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sessions, clients := s.sessions.Sweep(), s.limiter.Sweep()
			if sessions+clients > 0 {
				logging.Debug("server", "swept %d sessions, %d rate-limit entries", sessions, clients)
			}
		}
	}
}

func (s *Server) rateLimited(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := clientIP(r)
		if !s.limiter.Allow(ip) {
			logging.Warn("server", "rate limited %s", ip)
			writeError(w, http.StatusTooManyRequests, "Too many requests. Please wait a minute.")
			return
		}
		next.ServeHTTP(w, r)
	})
}

type chatRequest struct {
	Session string `json:"session"`
	Message string `json:"message"`
}

type chatResponse struct {
	engine.Result
	Session string `json:"session"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeError(w, http.StatusBadRequest, "Missing message")
		return
	}

	sess := s.sessions.Get(req.Session)
	sess.Lock()
	result := s.engine.Handle(r.Context(), sess, req.Message)
	sess.Unlock()

	logging.Debug("server", "chat %s: %s", sess.ID, logging.Truncate(result.Message, 80))
	writeJSON(w, http.StatusOK, chatResponse{Result: result, Session: sess.ID})
}

func (s *Server) handleSchedule(w http.ResponseWriter, r *http.Request) {
	cal := s.engine.Calendar()
	date := r.URL.Query().Get("date")
	if date == "" {
		date = cal.Today()
	}
	msg, err := cal.Schedule(r.Context(), date)
	if err != nil {
		logging.Warn("server", "schedule %s: %v", date, err)
		writeError(w, http.StatusBadGateway, "Could not load your schedule.")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"date": date, "message": msg})
}

type health struct {
	Status     string  `json:"status"`
	Uptime     string  `json:"uptime"`
	Sessions   int     `json:"sessions"`
	RSSBytes   uint64  `json:"rss_bytes,omitempty"`
	CPUPercent float64 `json:"cpu_percent,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	h := health{
		Status:   "ok",
		Uptime:   time.Since(s.started).Round(time.Second).String(),
		Sessions: s.sessions.Len(),
	}
	if p, err := process.NewProcessWithContext(r.Context(), int32(os.Getpid())); err == nil {
		if mem, err := p.MemoryInfoWithContext(r.Context()); err == nil {
			h.RSSBytes = mem.RSS
		}
		if cpu, err := p.CPUPercentWithContext(r.Context()); err == nil {
			h.CPUPercent = cpu
		}
	} else {
		logging.Debug("server", "process stats: %v", err)
	}
	writeJSON(w, http.StatusOK, h)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Warn("server", "encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"error": map[string]string{"message": msg}})
}
