package session

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func newTestManager(t *testing.T) (*Manager, *time.Time) {
	t.Helper()
	accounts, err := parseAccounts("KeToan@Example.vn:secret:accountant:Kế toán,boss@example.vn:pw:admin", bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	m := NewManager(accounts, NewMemoryStore(), testSecret, time.Hour)
	m.now = func() time.Time { return now }
	return m, &now
}

func TestParseAccounts(t *testing.T) {
	accounts, err := parseAccounts(" a@x.vn:pw:admin:Anh , b@x.vn:pw2:viewer ", bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}
	if len(accounts) != 2 || accounts[0].Name != "Anh" || accounts[1].Name != "b@x.vn" || accounts[1].Role != "viewer" {
		t.Fatalf("unexpected accounts %+v", accounts)
	}
	if bcrypt.CompareHashAndPassword(accounts[0].PasswordHash, []byte("pw")) != nil {
		t.Fatal("password hash does not match")
	}

	for _, bad := range []string{"", "a@x.vn:pw", "nobody:pw:admin", "a@x.vn::admin", "a@x.vn:1:r,a@x.vn:2:r"} {
		if _, err := parseAccounts(bad, bcrypt.MinCost); !errors.Is(err, ErrInvalidAccount) {
			t.Errorf("%q: expected ErrInvalidAccount, got %v", bad, err)
		}
	}
}

func TestDefaultDemoAccountsParse(t *testing.T) {
	accounts, err := parseAccounts(DefaultDemoAccounts, bcrypt.MinCost)
	if err != nil || len(accounts) != 2 {
		t.Fatalf("unexpected demo accounts: %v %v", accounts, err)
	}
}

func TestLoginResolveLogout(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestManager(t)

	sess, token, err := m.Login(ctx, "ketoan@example.vn", "secret")
	if err != nil {
		t.Fatal(err)
	}
	if sess.Name != "Kế toán" || sess.Role != "accountant" || token == "" {
		t.Fatalf("unexpected session %+v", sess)
	}

	got, err := m.Resolve(ctx, token)
	if err != nil || got.ID != sess.ID {
		t.Fatalf("Resolve: %+v %v", got, err)
	}

	if err := m.Logout(ctx, token); err != nil {
		t.Fatal(err)
	}
	if _, err := m.Resolve(ctx, token); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound after logout, got %v", err)
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	m, _ := newTestManager(t)
	for _, c := range [][2]string{{"ketoan@example.vn", "wrong"}, {"ghost@example.vn", "secret"}} {
		if _, _, err := m.Login(context.Background(), c[0], c[1]); !errors.Is(err, ErrInvalidCredentials) {
			t.Errorf("%s: expected ErrInvalidCredentials, got %v", c[0], err)
		}
	}
}

func TestResolveRejectsBadTokens(t *testing.T) {
	ctx := context.Background()
	m, now := newTestManager(t)
	_, token, err := m.Login(ctx, "boss@example.vn", "pw")
	if err != nil {
		t.Fatal(err)
	}

	other := NewManager(nil, NewMemoryStore(), strings.Repeat("x", 32), time.Hour)
	other.now = m.now
	if _, err := other.Resolve(ctx, token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected signature failure, got %v", err)
	}
	if _, err := m.Resolve(ctx, "garbage"); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken, got %v", err)
	}

	*now = now.Add(2 * time.Hour)
	if _, err := m.Resolve(ctx, token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected expiry failure, got %v", err)
	}
}

// plainStore hides MemoryStore's bulk expiry.
type plainStore struct{ Store }

func TestPurgeExpired(t *testing.T) {
	ctx := context.Background()
	m, now := newTestManager(t)
	if _, _, err := m.Login(ctx, "ketoan@example.vn", "secret"); err != nil {
		t.Fatal(err)
	}
	*now = now.Add(2 * time.Hour)
	_, live, err := m.Login(ctx, "boss@example.vn", "pw")
	if err != nil {
		t.Fatal(err)
	}

	n, err := m.PurgeExpired(ctx)
	if err != nil || n != 1 {
		t.Fatalf("PurgeExpired: n=%d err=%v, want 1", n, err)
	}
	if got := len(m.store.(*MemoryStore).sessions); got != 1 {
		t.Errorf("%d sessions left, want 1", got)
	}
	if _, err := m.Resolve(ctx, live); err != nil {
		t.Errorf("live session lost: %v", err)
	}

	plain := NewManager(nil, plainStore{NewMemoryStore()}, testSecret, time.Hour)
	if n, err := plain.PurgeExpired(ctx); n != 0 || err != nil {
		t.Errorf("store without bulk expiry: n=%d err=%v", n, err)
	}
}

func TestRunExpirySweep(t *testing.T) {
	m, now := newTestManager(t)
	if _, _, err := m.Login(context.Background(), "ketoan@example.vn", "secret"); err != nil {
		t.Fatal(err)
	}
	*now = now.Add(2 * time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	if err := m.RunExpirySweep(ctx, 10*time.Millisecond, nil); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("RunExpirySweep() error = %v, want DeadlineExceeded", err)
	}
	store := m.store.(*MemoryStore)
	store.mu.RLock()
	defer store.mu.RUnlock()
	if len(store.sessions) != 0 {
		t.Errorf("%d sessions left after sweep, want 0", len(store.sessions))
	}
}

func TestContextRoundTrip(t *testing.T) {
	if _, ok := FromContext(context.Background()); ok {
		t.Fatal("expected no session")
	}
	ctx := WithSession(context.Background(), Session{ID: "x"})
	if s, ok := FromContext(ctx); !ok || s.ID != "x" {
		t.Fatalf("unexpected %+v %v", s, ok)
	}
}
