package manifest

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"maps"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"open-launcher/internal/launcherr"
	"open-launcher/internal/version"
)

// Manifest is a verified version manifest. Fields are read-only.
type Manifest struct {
	version   string
	files     map[string]int64
	config    *ConfigPayload
	signature []byte
	issuedAt  time.Time
}

// ConfigPayload is launcher configuration pushed by the server. Checksum is
// the hex SHA-256 of Body.
type ConfigPayload struct {
	Checksum string `json:"checksum"`
	Body     string `json:"body"`
}

// Document is the unsigned content of a manifest.
type Document struct {
	Version string
	Files   map[string]int64
	Config  *ConfigPayload
}

type claims struct {
	jwt.RegisteredClaims
	Version string           `json:"version"`
	Files   map[string]int64 `json:"files"`
	Config  *ConfigPayload   `json:"config,omitempty"`
}

func (m *Manifest) Version() string { return m.version }

// Files returns a copy of the path -> revision mapping.
func (m *Manifest) Files() map[string]int64 { return maps.Clone(m.files) }

// Revision returns the revision recorded for path.
func (m *Manifest) Revision(path string) (int64, bool) {
	r, ok := m.files[path]
	return r, ok
}

// MaxRevision returns the highest file revision, or 0 for an empty file set.
func (m *Manifest) MaxRevision() int64 {
	var out int64
	for _, r := range m.files {
		if r > out {
			out = r
		}
	}
	return out
}

// Config returns the server-pushed configuration, if any.
func (m *Manifest) Config() (ConfigPayload, bool) {
	if m.config == nil {
		return ConfigPayload{}, false
	}
	return *m.config, true
}

// Signature returns a copy of the raw signature bytes.
func (m *Manifest) Signature() []byte {
	out := make([]byte, len(m.signature))
	copy(out, m.signature)
	return out
}

func (m *Manifest) IssuedAt() time.Time { return m.issuedAt }

// Verify checks token against key and returns the trusted manifest.
func Verify(token string, key ed25519.PublicKey) (*Manifest, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, launcherr.New(launcherr.CodeParse, "manifest payload is empty")
	}
	if len(key) != ed25519.PublicKeySize {
		return nil, launcherr.New(launcherr.CodeSignatureInvalid, "manifest public key is not configured")
	}

	var parsed claims
	tok, err := jwt.ParseWithClaims(token, &parsed, func(*jwt.Token) (any, error) {
		return key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodEdDSA.Alg()}),
		jwt.WithoutClaimsValidation(),
	)
	if err != nil {
		return nil, mapJWTError(err)
	}
	if !tok.Valid {
		return nil, launcherr.New(launcherr.CodeSignatureInvalid, "manifest signature did not verify")
	}

	if _, err := version.Parse(parsed.Version); err != nil {
		return nil, launcherr.Wrap(launcherr.CodeParse, "manifest version", err)
	}
	files := make(map[string]int64, len(parsed.Files))
	for path, rev := range parsed.Files {
		if strings.TrimSpace(path) == "" {
			return nil, launcherr.New(launcherr.CodeParse, "manifest contains an empty file path")
		}
		if rev < 0 {
			return nil, launcherr.New(launcherr.CodeParse, fmt.Sprintf("manifest revision for %q is negative", path))
		}
		files[path] = rev
	}
	var cfg *ConfigPayload
	if parsed.Config != nil {
		if parsed.Config.Checksum == "" || checksum(parsed.Config.Body) != strings.ToLower(parsed.Config.Checksum) {
			return nil, launcherr.New(launcherr.CodeParse, "manifest config checksum does not match its body")
		}
		c := *parsed.Config
		c.Checksum = strings.ToLower(c.Checksum)
		cfg = &c
	}

	m := &Manifest{
		version:   strings.TrimSpace(parsed.Version),
		files:     files,
		config:    cfg,
		signature: append([]byte(nil), tok.Signature...),
	}
	if parsed.IssuedAt != nil {
		m.issuedAt = parsed.IssuedAt.Time
	}
	return m, nil
}

func mapJWTError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenMalformed):
		return launcherr.Wrap(launcherr.CodeParse, "manifest payload is malformed", err)
	default:
		return launcherr.Wrap(launcherr.CodeSignatureInvalid, "manifest signature did not verify", err)
	}
}
