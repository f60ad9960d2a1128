package credential

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"strings"
)

// ErrUsernameExhausted means no free username could be found within the
// collision bound. Account creation must abort without persisting anything.
var ErrUsernameExhausted = errors.New("username space exhausted")

const (
	passwordLength = 10
	// Ambiguous glyphs (0/O, 1/l/I) are excluded because the password is
	// retyped from an SMS.
	passwordAlphabet = "abcdefghijkmnopqrstuvwxyzABCDEFGHJKLMNPQRSTUVWXYZ23456789"

	maxUsernameAttempts = 10000
)

// UsernameChecker reports whether a candidate username is already taken.
type UsernameChecker interface {
	UsernameExists(ctx context.Context, username string) (bool, error)
}

// Issuer derives usernames and generates one-time passwords for newly
// provisioned accounts. It has no side effects; the caller persists the
// resulting CredentialRecord.
type Issuer struct {
	checker UsernameChecker
	domain  string
}

func NewIssuer(checker UsernameChecker, domain string) *Issuer {
	return &Issuer{checker: checker, domain: domain}
}

// Issue derives a username from the account display name and pairs it with a
// fresh random password. On collision an incrementing integer suffix is
// inserted before the '@' until a free username is found.
func (i *Issuer) Issue(ctx context.Context, accountName string) (username, password string, err error) {
	base := strings.Join(strings.Fields(strings.ToLower(accountName)), ".")

	for n := 0; n < maxUsernameAttempts; n++ {
		candidate := base
		if n > 0 {
			candidate += strconv.Itoa(n)
		}
		candidate += "@" + i.domain

		taken, err := i.checker.UsernameExists(ctx, candidate)
		if err != nil {
			return "", "", fmt.Errorf("username lookup: %w", err)
		}
		if !taken {
			pw, err := randomPassword(passwordLength)
			if err != nil {
				return "", "", err
			}
			return candidate, pw, nil
		}
	}

	return "", "", ErrUsernameExhausted
}

func randomPassword(length int) (string, error) {
	max := big.NewInt(int64(len(passwordAlphabet)))
	b := make([]byte, length)
	for i := range b {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("generate password: %w", err)
		}
		b[i] = passwordAlphabet[n.Int64()]
	}
	return string(b), nil
}
