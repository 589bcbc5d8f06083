// Package httpapi is an HTTP session host. Each caller gets one session,
// created on first use, into which the gateway injects its entry point;
// commands are submitted over POST and console output is polled over GET.
//
// The caller identity is taken from the URL. Authenticating it is left to
// whatever fronts the server.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/reglet-dev/cligate/domain/ports"
	"github.com/reglet-dev/cligate/hostfuncs"
	"github.com/reglet-dev/cligate/infrastructure/console"
)

// Defaults.
const (
	DefaultEntryPoint  = "exec"
	DefaultPollTimeout = 25 * time.Second
)

// Helpers are the convenience commands the server exposes next to exec.
type Helpers interface {
	SetStore(userID string, target any, store map[string]any) string
	SetStoreHuge(userID string, target any) string
	SetControllerLevel(userID string, target any, level any) string
	FinishConstructionSites(userID string, rooms ...string) string
	Help() string
}

// serverConfig holds configuration for a Server.
type serverConfig struct {
	logger      *slog.Logger
	entryPoint  string
	pollTimeout time.Duration
	maxBody     int64
	helpers     Helpers
}

// Option configures a Server.
type Option func(*serverConfig)

// WithLogger sets the request logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *serverConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithEntryPoint sets the injected name the exec route calls.
func WithEntryPoint(name string) Option {
	return func(c *serverConfig) {
		if name != "" {
			c.entryPoint = name
		}
	}
}

// WithPollTimeout bounds how long a console poll waits for output.
func WithPollTimeout(d time.Duration) Option {
	return func(c *serverConfig) {
		if d > 0 {
			c.pollTimeout = d
		}
	}
}

// WithHelpers exposes h under /v1/sessions/{user}/helpers.
func WithHelpers(h Helpers) Option {
	return func(c *serverConfig) {
		c.helpers = h
	}
}

// Server implements ports.SessionHost over HTTP.
type Server struct {
	hub    *console.Hub
	config serverConfig
	router chi.Router

	mu       sync.Mutex
	hook     func(ports.Session, string)
	sessions map[string]*session
}

var _ ports.SessionHost = (*Server)(nil)

// NewServer creates a Server whose console routes read from hub.
func NewServer(hub *console.Hub, opts ...Option) *Server {
	cfg := serverConfig{
		logger:      slog.Default(),
		entryPoint:  DefaultEntryPoint,
		pollTimeout: DefaultPollTimeout,
		maxBody:     hostfuncs.DefaultMaxRequestSize,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	s := &Server{hub: hub, config: cfg, sessions: map[string]*session{}}
	s.router = s.routes()
	return s
}

// OnSession implements ports.SessionHost. Only one hook is supported.
func (s *Server) OnSession(hook func(ports.Session, string)) error {
	if hook == nil {
		return errors.New("nil session hook")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.hook != nil {
		return errors.New("session hook already registered")
	}
	s.hook = hook
	return nil
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Route("/v1/sessions/{user}", func(r chi.Router) {
		r.Post("/exec", s.handleExec)
		r.Get("/console", s.handleConsole)
		r.Route("/helpers", func(r chi.Router) {
			r.Get("/", s.handleHelp)
			r.Post("/setStore", s.handleSetStore)
			r.Post("/setStoreHuge", s.handleSetStoreHuge)
			r.Post("/setControllerLevel", s.handleSetControllerLevel)
			r.Post("/finishConstructionSites", s.handleFinishConstructionSites)
		})
	})
	return r
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.config.logger.DebugContext(r.Context(), "cligate: http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

// session is one caller's injected functions.
type session struct {
	mu       sync.Mutex
	injected map[string]ports.SubmitFunc
}

// Inject implements ports.Session.
func (s *session) Inject(name string, fn ports.SubmitFunc) error {
	if fn == nil {
		return errors.New("nil function for " + name)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.injected[name] = fn
	return nil
}

func (s *session) lookup(name string) (ports.SubmitFunc, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn, ok := s.injected[name]
	return fn, ok
}

// session returns userID's session, creating it and running the hook on
// first use.
func (s *Server) session(userID string) *session {
	s.mu.Lock()
	sess, ok := s.sessions[userID]
	if ok {
		s.mu.Unlock()
		return sess
	}
	sess = &session{injected: map[string]ports.SubmitFunc{}}
	s.sessions[userID] = sess
	hook := s.hook
	s.mu.Unlock()

	if hook != nil {
		hook(sess, userID)
	}
	return sess
}

type execRequest struct {
	Code string `json:"code"`
}

type replyBody struct {
	Reply string `json:"reply"`
}

func (s *Server) handleExec(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "user")
	var req execRequest
	if !s.decode(w, r, &req) {
		return
	}
	submit, ok := s.session(userID).lookup(s.config.entryPoint)
	if !ok {
		writeError(w, http.StatusServiceUnavailable, hostfuncs.ErrorResponse{
			Error:   "UNAVAILABLE",
			Message: "no entry point installed",
			Code:    http.StatusServiceUnavailable,
		})
		return
	}
	writeJSON(w, http.StatusAccepted, replyBody{Reply: submit(req.Code)})
}

type consoleBody struct {
	Entries []console.Entry `json:"entries"`
	Next    int64           `json:"next"`
}

// handleConsole returns messages after the "after" sequence number. With
// wait=true it blocks until there is at least one or the poll times out.
func (s *Server) handleConsole(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "user")
	after, err := queryInt(r, "after")
	if err != nil {
		writeError(w, http.StatusBadRequest, hostfuncs.NewValidationError("after: "+err.Error()))
		return
	}

	entries := s.hub.Since(userID, after)
	if len(entries) == 0 && r.URL.Query().Get("wait") == "true" {
		ctx, cancel := context.WithTimeout(r.Context(), s.config.pollTimeout)
		defer cancel()
		entries, err = s.hub.Wait(ctx, userID, after)
		if err != nil && !errors.Is(err, context.DeadlineExceeded) {
			return
		}
	}

	next := after
	if len(entries) > 0 {
		next = entries[len(entries)-1].Seq
	}
	if entries == nil {
		entries = []console.Entry{}
	}
	writeJSON(w, http.StatusOK, consoleBody{Entries: entries, Next: next})
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	body := http.MaxBytesReader(w, r.Body, s.config.maxBody)
	if err := json.NewDecoder(body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, hostfuncs.NewTooLargeError(int(s.config.maxBody)))
			return false
		}
		writeError(w, http.StatusBadRequest, hostfuncs.NewValidationError("malformed request: "+err.Error()))
		return false
	}
	return true
}

func queryInt(r *http.Request, key string) (int64, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return 0, nil
	}
	return strconv.ParseInt(raw, 10, 64)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, e hostfuncs.ErrorResponse) {
	writeJSON(w, status, e)
}
