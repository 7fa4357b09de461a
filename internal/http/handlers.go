package http

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"taichinh/internal/adapters"
	"taichinh/internal/analytics"
	"taichinh/internal/export"
	applog "taichinh/internal/log"
	"taichinh/internal/services"
	"taichinh/internal/session"
)

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.started).String(),
	})
}

// handleReady performs readiness check with dependency verification
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status, code := "ready", http.StatusOK
	checks := map[string]any{}

	if s.templates == nil {
		checks["templates"] = "failed: templates not loaded"
		status, code = "not_ready", http.StatusServiceUnavailable
	} else {
		checks["templates"] = "ok"
	}

	switch {
	case s.ready == nil:
		checks["backend"] = "ok"
	default:
		if err := s.ready.Ping(ctx); err != nil {
			checks["backend"] = "failed: " + err.Error()
			status, code = "not_ready", http.StatusServiceUnavailable
		} else {
			checks["backend"] = "ok"
		}
	}

	checks["sync"] = s.syncer != nil
	checks["rate_limiter"] = map[string]any{"active_clients": s.rateLimiter.ActiveClients()}

	writeJSON(w, code, map[string]any{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	})
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	res, err := s.reports.Build(r.Context(), ParseReportRequest(r.URL.Query()))
	if err != nil {
		s.writeReportError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleExportXLSX(w http.ResponseWriter, r *http.Request) {
	s.handleExport(w, r, "xlsx",
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		export.WriteXLSX)
}

func (s *Server) handleExportPDF(w http.ResponseWriter, r *http.Request) {
	s.handleExport(w, r, "pdf", "application/pdf", export.WritePDF)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request, ext, contentType string, render func(io.Writer, analytics.Report) error) {
	res, err := s.reports.Build(r.Context(), ParseReportRequest(r.URL.Query()))
	if err != nil {
		s.writeReportError(w, r, err)
		return
	}

	// Render fully before writing so a failure can still become a 500.
	var buf bytes.Buffer
	if err := render(&buf, res.Report); err != nil {
		applog.FromContext(r.Context()).WithComponent(applog.ComponentExport).ErrorContext(r.Context(),
			"Export failed", "format", ext, applog.FieldError, err)
		writeError(w, http.StatusInternalServerError, "export failed")
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+export.Filename(res.Report, ext)+`"`)
	if res.Stale {
		w.Header().Set("X-Data-Stale", "true")
	}
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

func (s *Server) handleUnits(w http.ResponseWriter, r *http.Request) {
	units, err := s.reports.Units(r.Context())
	if err != nil {
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "List units failed", applog.FieldError, err)
		writeError(w, http.StatusServiceUnavailable, "could not load data")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"units": units,
		"all":   analytics.AllUnits,
	})
}

func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	if s.syncer == nil {
		writeError(w, http.StatusServiceUnavailable, adapters.ErrSyncUnavailable.Error())
		return
	}
	sess, _ := session.FromContext(r.Context())
	if err := s.syncer.RequestSync(r.Context(), sess.Email); err != nil {
		if errors.Is(err, adapters.ErrSyncUnavailable) {
			writeError(w, http.StatusServiceUnavailable, adapters.ErrSyncUnavailable.Error())
			return
		}
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Sync request failed", applog.FieldError, err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "queued"})
}

// indexData feeds dashboard.html.
type indexData struct {
	Session *session.Session
	Result  *services.ReportResult
	Request services.ReportRequest
	Units   []string
	Error   string
}

// handleIndex renders the dashboard for a signed-in user, else the login form.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if s.templates == nil {
		writeError(w, http.StatusInternalServerError, "templates not loaded")
		return
	}

	data := indexData{Request: ParseReportRequest(r.URL.Query())}
	if sess, err := s.sessions.Resolve(r.Context(), sessionToken(r)); err == nil {
		data.Session = &sess
		res, err := s.reports.Build(r.Context(), data.Request)
		switch {
		case err == nil:
			data.Result = &res
		case errors.Is(err, analytics.ErrInvalidMode), errors.Is(err, analytics.ErrInvalidPeriod):
			w.WriteHeader(http.StatusBadRequest)
			data.Error = err.Error()
		default:
			applog.FromContext(r.Context()).ErrorContext(r.Context(), "Dashboard report failed", applog.FieldError, err)
			data.Error = "could not load data"
		}
		data.Units, _ = s.reports.Units(r.Context())
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.templates.ExecuteTemplate(w, "dashboard.html", data); err != nil {
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Dashboard template execution failed", applog.FieldError, err)
	}
}
