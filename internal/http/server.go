// Package http serves the finance dashboard and its JSON API.
package http

import (
	"context"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"taichinh/internal/backend"
	"taichinh/internal/core"
	applog "taichinh/internal/log"
	"taichinh/internal/middleware/ratelimit"
	"taichinh/internal/middleware/security"
	"taichinh/internal/middleware/trace"
	"taichinh/internal/services"
	"taichinh/internal/session"
	appweb "taichinh/web"
)

// ReportBuilder is the report side of the service layer.
type ReportBuilder interface {
	Build(ctx context.Context, req services.ReportRequest) (services.ReportResult, error)
	Units(ctx context.Context) ([]string, error)
}

// Pinger checks a dependency for /readyz.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Options wires the server's collaborators. Syncer and Ready may be nil.
type Options struct {
	Reports       ReportBuilder
	Sessions      *session.Manager
	Syncer        backend.SyncRequester
	Ready         Pinger
	Logger        *applog.Logger
	RateLimit     ratelimit.Config
	Headers       security.HeadersConfig
	SecureCookies bool
}

type Server struct {
	http.Server
	templates *template.Template
	reports   ReportBuilder
	sessions  *session.Manager
	syncer    backend.SyncRequester
	ready     Pinger
	logger    *applog.Logger

	detector      *security.Detector
	rateLimiter   *ratelimit.Limiter
	trace         *trace.Middleware
	secureCookies bool
	started       time.Time

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(addr string, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = applog.Discard()
	}
	logger = logger.WithComponent(applog.ComponentHTTP)

	headers := opts.Headers
	if headers.XContentTypeOptions == "" {
		headers = security.DefaultHeadersConfig()
	}
	limits := opts.RateLimit
	if limits.RequestsPerMinute == 0 {
		limits = ratelimit.DefaultConfig()
	}

	mux := http.NewServeMux()
	s := &Server{
		reports:       opts.Reports,
		sessions:      opts.Sessions,
		syncer:        opts.Syncer,
		ready:         opts.Ready,
		logger:        logger,
		detector:      security.NewDetector(logger),
		rateLimiter:   ratelimit.NewLimiter(limits),
		secureCookies: opts.SecureCookies,
		started:       time.Now(),
	}
	s.trace = trace.NewMiddleware(logger, s.detector.ExtractClientIP)

	t, err := template.New("").Funcs(templateFuncs).ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		logger.Warn("Failed parsing templates", applog.FieldError, err)
	}
	s.templates = t

	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("GET /static/", security.StaticAssetMiddleware(3600)(static))
	} else {
		logger.Warn("Failed to mount embedded static FS", applog.FieldError, err)
	}

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /{$}", s.handleIndex)

	mux.HandleFunc("POST /api/session", s.handleLogin)
	mux.Handle("GET /api/session", s.requireSession(s.handleSession))
	mux.Handle("DELETE /api/session", s.requireSession(s.handleLogout))

	mux.Handle("GET /api/report", s.requireSession(s.handleReport))
	mux.Handle("GET /api/report/export.xlsx", s.requireSession(s.handleExportXLSX))
	mux.Handle("GET /api/report/export.pdf", s.requireSession(s.handleExportPDF))
	mux.Handle("GET /api/units", s.requireSession(s.handleUnits))
	mux.Handle("POST /api/sync", s.requireSession(s.handleSync))

	var h http.Handler = mux
	h = s.rateLimiter.Middleware(s.detector.ExtractClientIP, s.onRateLimit)(h)
	h = security.NewHeadersMiddleware(headers).Middleware(h)
	h = s.detector.Middleware(h)
	h = s.trace.Middleware(h)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

func (s *Server) onRateLimit(w http.ResponseWriter, r *http.Request) {
	applog.FromContext(r.Context()).WithComponent(applog.ComponentRateLimit).WarnContext(r.Context(),
		"Rate limit exceeded",
		applog.FieldClientIP, s.detector.ExtractClientIP(r),
		applog.FieldMethod, r.Method,
		applog.FieldPath, r.URL.Path)
	writeError(w, http.StatusTooManyRequests, "too many requests, try again later")
}

// Shutdown gracefully shuts down the server and its background routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}

var templateFuncs = template.FuncMap{
	"vnd":  core.FormatVND,
	"date": core.FormatDate,
	"pct":  formatPercent,
}
