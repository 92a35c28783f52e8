package reset

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"time"
)

const (
	secretBytes = 32
	// DefaultTokenTTL applies when no positive TTL is configured.
	DefaultTokenTTL = 30 * time.Minute
)

// IssuedToken pairs the plaintext secret (mailed, never stored) with what is
// persisted on the account.
type IssuedToken struct {
	Secret    string
	Digest    string
	ExpiresAt time.Time
}

// GenerateSecret returns 32 CSPRNG bytes as 64 hex characters.
func GenerateSecret() (string, error) {
	b := make([]byte, secretBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// Digest is the storage form of a secret: hex(SHA-256(secret)).
func Digest(secret string) string {
	sum := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(sum[:])
}

// IssuePasswordResetToken creates a fresh secret with its digest and an
// expiry of now+ttl. A non-positive ttl uses DefaultTokenTTL.
func IssuePasswordResetToken(ttl time.Duration, now time.Time) (IssuedToken, error) {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	secret, err := GenerateSecret()
	if err != nil {
		return IssuedToken{}, err
	}
	return IssuedToken{
		Secret:    secret,
		Digest:    Digest(secret),
		ExpiresAt: now.Add(ttl),
	}, nil
}
