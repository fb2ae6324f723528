// Package auth checks the bearer tokens that guard the HTTP API.
package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"
	"unicode"

	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/bcrypt"
)

const (
	minTokenLength      = 16
	generatedTokenBytes = 24
	maxAcceptedCache    = 64
)

// ValidateToken checks minimal token requirements.
func ValidateToken(token string) error {
	if len(token) < minTokenLength {
		return fmt.Errorf("token must be at least %d characters", minTokenLength)
	}
	for _, r := range token {
		if unicode.IsSpace(r) || unicode.IsControl(r) {
			return fmt.Errorf("token must not contain whitespace or control characters")
		}
	}
	return nil
}

// GenerateToken returns a random token suitable for api_token.
func GenerateToken() (string, error) {
	buf := make([]byte, generatedTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// HashToken hashes a token for api_token_hash.
func HashToken(token string) (string, error) {
	if err := ValidateToken(token); err != nil {
		return "", err
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(token), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// Verifier accepts a plain token, a bcrypt token hash, or both. Tokens that
// matched the hash are remembered by digest so bcrypt runs once per token.
type Verifier struct {
	plain string
	hash  string

	mu       sync.Mutex
	accepted map[[32]byte]struct{}
}

// NewVerifier builds a Verifier. A malformed hash is rejected up front.
func NewVerifier(plain, hash string) (*Verifier, error) {
	plain = strings.TrimSpace(plain)
	hash = strings.TrimSpace(hash)
	if hash != "" {
		if _, err := bcrypt.Cost([]byte(hash)); err != nil {
			return nil, fmt.Errorf("invalid api token hash: %w", err)
		}
	}
	return &Verifier{plain: plain, hash: hash, accepted: map[[32]byte]struct{}{}}, nil
}

// Enabled reports whether any token is configured.
func (v *Verifier) Enabled() bool {
	return v != nil && (v.plain != "" || v.hash != "")
}

// Verify reports whether candidate is an accepted token. A Verifier with
// nothing configured accepts everything.
func (v *Verifier) Verify(candidate string) bool {
	if !v.Enabled() {
		return true
	}
	if candidate == "" {
		return false
	}
	if v.plain != "" && subtle.ConstantTimeCompare([]byte(candidate), []byte(v.plain)) == 1 {
		return true
	}
	if v.hash == "" {
		return false
	}

	digest := blake2b.Sum256([]byte(candidate))
	v.mu.Lock()
	_, seen := v.accepted[digest]
	v.mu.Unlock()
	if seen {
		return true
	}
	if bcrypt.CompareHashAndPassword([]byte(v.hash), []byte(candidate)) != nil {
		return false
	}

	v.mu.Lock()
	if len(v.accepted) >= maxAcceptedCache {
		clear(v.accepted)
	}
	v.accepted[digest] = struct{}{}
	v.mu.Unlock()
	return true
}
