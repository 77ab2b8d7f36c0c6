package manifest

import (
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"open-launcher/internal/version"
)

// NewConfigPayload wraps a config document with its checksum.
func NewConfigPayload(body []byte) *ConfigPayload {
	return &ConfigPayload{Checksum: checksum(string(body)), Body: string(body)}
}

// Sign produces the compact JWS served by the manifest endpoint.
func Sign(doc Document, key ed25519.PrivateKey, now time.Time) (string, error) {
	if len(key) != ed25519.PrivateKeySize {
		return "", fmt.Errorf("signing key must be %d bytes", ed25519.PrivateKeySize)
	}
	if _, err := version.Parse(doc.Version); err != nil {
		return "", fmt.Errorf("manifest version: %w", err)
	}
	if now.IsZero() {
		now = time.Now()
	}
	files := doc.Files
	if files == nil {
		files = map[string]int64{}
	}
	c := claims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt: jwt.NewNumericDate(now.UTC()),
		},
		Version: doc.Version,
		Files:   files,
		Config:  doc.Config,
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodEdDSA, c)
	s, err := tok.SignedString(key)
	if err != nil {
		return "", fmt.Errorf("sign manifest: %w", err)
	}
	return s, nil
}

func checksum(body string) string {
	sum := sha256.Sum256([]byte(body))
	return hex.EncodeToString(sum[:])
}
