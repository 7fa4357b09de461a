package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"taichinh/internal/analytics"
	applog "taichinh/internal/log"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// writeReportError maps a report build error to a response. Only invalid
// filters reach the client verbatim.
func (s *Server) writeReportError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, analytics.ErrInvalidMode) || errors.Is(err, analytics.ErrInvalidPeriod) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	applog.FromContext(r.Context()).ErrorContext(r.Context(), "Report build failed", applog.FieldError, err)
	writeError(w, http.StatusInternalServerError, "internal error")
}

// formatPercent renders a percentage with one decimal, e.g. "37.5%".
func formatPercent(d decimal.Decimal) string {
	return d.StringFixed(1) + "%"
}

// sanitizeInput removes control characters except tab, newline and carriage
// return, and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}
