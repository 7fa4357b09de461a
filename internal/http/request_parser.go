package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"taichinh/internal/services"
)

const (
	maxBodyBytes = 1 << 16
	cookieName   = "taichinh_session"
)

// ParseReportRequest reads the dashboard filters from a query string.
// "period" selects the mode; "mode" is accepted as an alias.
func ParseReportRequest(q url.Values) services.ReportRequest {
	mode := q.Get("period")
	if mode == "" {
		mode = q.Get("mode")
	}
	return services.ReportRequest{
		Mode: sanitizeInput(mode),
		From: sanitizeInput(q.Get("from")),
		To:   sanitizeInput(q.Get("to")),
		Unit: sanitizeInput(q.Get("unit")),
	}
}

// LoginRequest is the body of POST /api/session.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// decodeJSON decodes a single JSON object from the request body, rejecting
// unknown fields and bodies over maxBodyBytes.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is empty")
		}
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	if dec.More() {
		return errors.New("request body must contain a single JSON object")
	}
	return nil
}

// sessionToken returns the bearer token, falling back to the session cookie.
func sessionToken(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); auth != "" {
		if scheme, token, ok := strings.Cut(auth, " "); ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
	}
	if c, err := r.Cookie(cookieName); err == nil {
		return c.Value
	}
	return ""
}
