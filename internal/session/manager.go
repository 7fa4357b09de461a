package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	applog "taichinh/internal/log"
)

const issuer = "taichinh"

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidToken       = errors.New("invalid session token")
)

// Manager issues and checks session tokens. It holds no per-user state of
// its own; sessions live in the Store.
type Manager struct {
	accounts map[string]Account
	store    Store
	secret   []byte
	ttl      time.Duration
	now      func() time.Time
	// dummyHash keeps unknown-email logins as slow as wrong-password ones.
	dummyHash []byte
}

func NewManager(accounts []Account, store Store, secret string, ttl time.Duration) *Manager {
	byEmail := make(map[string]Account, len(accounts))
	for _, a := range accounts {
		byEmail[a.Email] = a
	}
	dummy, _ := bcrypt.GenerateFromPassword([]byte("not-a-password"), bcrypt.MinCost)
	return &Manager{
		accounts:  byEmail,
		store:     store,
		secret:    []byte(secret),
		ttl:       ttl,
		now:       time.Now,
		dummyHash: dummy,
	}
}

// Login checks the credentials, stores a new session and returns it with a
// signed token.
func (m *Manager) Login(ctx context.Context, email, password string) (Session, string, error) {
	acc, ok := m.accounts[strings.ToLower(strings.TrimSpace(email))]
	if !ok {
		_ = bcrypt.CompareHashAndPassword(m.dummyHash, []byte(password))
		return Session{}, "", ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(acc.PasswordHash, []byte(password)); err != nil {
		return Session{}, "", ErrInvalidCredentials
	}

	now := m.now()
	sess := Session{
		ID:        uuid.NewString(),
		Email:     acc.Email,
		Name:      acc.Name,
		Role:      acc.Role,
		CreatedAt: now,
		ExpiresAt: now.Add(m.ttl),
	}
	if err := m.store.Save(ctx, sess); err != nil {
		return Session{}, "", fmt.Errorf("save session: %w", err)
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ID:        sess.ID,
		Subject:   sess.Email,
		Issuer:    issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(sess.ExpiresAt),
	}).SignedString(m.secret)
	if err != nil {
		return Session{}, "", fmt.Errorf("sign token: %w", err)
	}
	return sess, token, nil
}

// Resolve validates token and returns the stored session it refers to.
func (m *Manager) Resolve(ctx context.Context, token string) (Session, error) {
	id, err := m.sessionID(token)
	if err != nil {
		return Session{}, err
	}
	sess, err := m.store.Load(ctx, id)
	if err != nil {
		return Session{}, err
	}
	if !m.now().Before(sess.ExpiresAt) {
		return Session{}, ErrSessionNotFound
	}
	return sess, nil
}

// Logout removes the session behind token.
func (m *Manager) Logout(ctx context.Context, token string) error {
	id, err := m.sessionID(token)
	if err != nil {
		return err
	}
	return m.store.Delete(ctx, id)
}

func (m *Manager) sessionID(token string) (string, error) {
	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if _, err := uuid.Parse(claims.ID); err != nil {
		return "", fmt.Errorf("%w: bad session id", ErrInvalidToken)
	}
	return claims.ID, nil
}

// PurgeExpired removes expired sessions from the store. Stores without bulk
// expiry report zero.
func (m *Manager) PurgeExpired(ctx context.Context) (int64, error) {
	es, ok := m.store.(ExpiringStore)
	if !ok {
		return 0, nil
	}
	return es.DeleteExpired(ctx, m.now())
}

// RunExpirySweep purges expired sessions every interval until ctx is done.
func (m *Manager) RunExpirySweep(ctx context.Context, interval time.Duration, logger *applog.Logger) error {
	if logger == nil {
		logger = applog.Discard()
	}
	logger = logger.WithComponent(applog.ComponentSession)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			n, err := m.PurgeExpired(ctx)
			if err != nil {
				logger.ErrorContext(ctx, "Expired session purge failed", applog.FieldError, err)
				continue
			}
			if n > 0 {
				logger.DebugContext(ctx, "Expired sessions purged", "count", n)
			}
		}
	}
}

type ctxKey struct{}

// WithSession stores s in ctx.
func WithSession(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, ctxKey{}, s)
}

// FromContext returns the session stored by WithSession.
func FromContext(ctx context.Context) (Session, bool) {
	s, ok := ctx.Value(ctxKey{}).(Session)
	return s, ok
}
