package http

import (
	"errors"
	"net/http"

	applog "taichinh/internal/log"
	"taichinh/internal/session"
)

type loginResponse struct {
	Token   string          `json:"token"`
	Session session.Session `json:"session"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	logger := applog.FromContext(r.Context()).WithComponent(applog.ComponentSession)
	sess, token, err := s.sessions.Login(r.Context(), sanitizeInput(req.Email), req.Password)
	if err != nil {
		if errors.Is(err, session.ErrInvalidCredentials) {
			logger.WarnContext(r.Context(), "Login rejected", applog.FieldUser, sanitizeInput(req.Email))
			writeError(w, http.StatusUnauthorized, err.Error())
			return
		}
		logger.ErrorContext(r.Context(), "Login failed", applog.FieldError, err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     cookieName,
		Value:    token,
		Path:     "/",
		Expires:  sess.ExpiresAt,
		HttpOnly: true,
		Secure:   s.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	logger.InfoContext(r.Context(), "Login succeeded",
		applog.FieldUser, sess.Email,
		applog.FieldOperation, applog.OpLogin)
	writeJSON(w, http.StatusOK, loginResponse{Token: token, Session: sess})
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	sess, _ := session.FromContext(r.Context())
	writeJSON(w, http.StatusOK, sess)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := s.sessions.Logout(r.Context(), sessionToken(r)); err != nil {
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Logout failed", applog.FieldError, err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     cookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	w.WriteHeader(http.StatusNoContent)
}

// requireSession rejects requests without a valid session and stores the
// session in the request context.
func (s *Server) requireSession(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := sessionToken(r)
		if token == "" {
			writeError(w, http.StatusUnauthorized, "authentication required")
			return
		}
		sess, err := s.sessions.Resolve(r.Context(), token)
		if err != nil {
			if !errors.Is(err, session.ErrInvalidToken) && !errors.Is(err, session.ErrSessionNotFound) {
				applog.FromContext(r.Context()).ErrorContext(r.Context(), "Session lookup failed", applog.FieldError, err)
				writeError(w, http.StatusInternalServerError, "internal error")
				return
			}
			writeError(w, http.StatusUnauthorized, "authentication required")
			return
		}
		logger := applog.FromContext(r.Context()).With(applog.FieldUser, sess.Email)
		ctx := applog.WithLogger(session.WithSession(r.Context(), sess), logger)
		next(w, r.WithContext(ctx))
	})
}
