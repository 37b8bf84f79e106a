package auth

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"regexp"
)

// Login token format: ml_{id}_{secret}
// Example: ml_3f9a0c7d1e2b_4f8d2e1b9c7a5f3d2e1b9c7a5f3d2e1b
const (
	TokenIDLen     = 12 // hex encoded 6 bytes, the lookup key
	TokenSecretLen = 32 // hex encoded 16 bytes, never stored in clear
)

var (
	// ErrInvalidTokenFormat indicates the login token is malformed.
	ErrInvalidTokenFormat = errors.New("invalid login token format")

	tokenFormatRegex = regexp.MustCompile(`^ml_([a-f0-9]{12})_([a-f0-9]{32})$`)
)

// GeneratedToken is a freshly generated one-time sign-in token.
type GeneratedToken struct {
	Plaintext string // goes into the emailed link, shown once
	ID        string // Redis lookup key
	Hash      string // argon2id hash of the whole plaintext
}

// GenerateLoginToken creates a random login token and its hash.
func GenerateLoginToken() (*GeneratedToken, error) {
	id, err := randomHex(TokenIDLen / 2)
	if err != nil {
		return nil, fmt.Errorf("generate token id: %w", err)
	}
	secret, err := randomHex(TokenSecretLen / 2)
	if err != nil {
		return nil, fmt.Errorf("generate token secret: %w", err)
	}

	plaintext := "ml_" + id + "_" + secret
	hash, err := HashSecret(plaintext)
	if err != nil {
		return nil, fmt.Errorf("hash token: %w", err)
	}

	return &GeneratedToken{Plaintext: plaintext, ID: id, Hash: hash}, nil
}

// ParseLoginToken returns the id part of a well-formed token.
func ParseLoginToken(token string) (string, error) {
	m := tokenFormatRegex.FindStringSubmatch(token)
	if m == nil {
		return "", ErrInvalidTokenFormat
	}
	return m[1], nil
}

func randomHex(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
