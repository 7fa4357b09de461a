// Package session authenticates console users against a configured account
// list and tracks their logins in an injected Store.
package session

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// DefaultDemoAccounts is used when DEMO_ACCOUNTS is empty.
const DefaultDemoAccounts = "admin@taichinh.vn:admin123:admin:Quản trị viên," +
	"ketoan@taichinh.vn:ketoan123:accountant:Kế toán"

var ErrInvalidAccount = errors.New("invalid account entry")

type Account struct {
	Email        string
	Name         string
	Role         string
	PasswordHash []byte
}

// ParseAccounts reads comma separated email:password:role[:name] entries and
// hashes each password with bcrypt.
func ParseAccounts(list string) ([]Account, error) {
	return parseAccounts(list, bcrypt.DefaultCost)
}

func parseAccounts(list string, cost int) ([]Account, error) {
	var out []Account
	seen := map[string]bool{}
	for _, entry := range strings.Split(list, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		parts := strings.SplitN(entry, ":", 4)
		if len(parts) < 3 {
			return nil, fmt.Errorf("%w: %q needs email:password:role", ErrInvalidAccount, entry)
		}
		email := strings.ToLower(strings.TrimSpace(parts[0]))
		if email == "" || !strings.Contains(email, "@") || parts[1] == "" {
			return nil, fmt.Errorf("%w: %q", ErrInvalidAccount, entry)
		}
		if seen[email] {
			return nil, fmt.Errorf("%w: duplicate %s", ErrInvalidAccount, email)
		}
		seen[email] = true

		hash, err := bcrypt.GenerateFromPassword([]byte(parts[1]), cost)
		if err != nil {
			return nil, fmt.Errorf("hash password for %s: %w", email, err)
		}
		acc := Account{
			Email:        email,
			Name:         email,
			Role:         strings.TrimSpace(parts[2]),
			PasswordHash: hash,
		}
		if len(parts) == 4 && strings.TrimSpace(parts[3]) != "" {
			acc.Name = strings.TrimSpace(parts[3])
		}
		out = append(out, acc)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: no accounts configured", ErrInvalidAccount)
	}
	return out, nil
}
