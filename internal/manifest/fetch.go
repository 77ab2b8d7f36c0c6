package manifest

import (
	"context"
	"crypto/ed25519"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"open-launcher/internal/launcherr"
)

const (
	defaultFetchTimeout = 15 * time.Second
	maxManifestBytes    = 1 << 20
)

// Fetcher retrieves manifests over HTTP(S).
type Fetcher struct {
	Client *http.Client
}

func NewFetcher(timeout time.Duration) *Fetcher {
	if timeout <= 0 {
		timeout = defaultFetchTimeout
	}
	return &Fetcher{Client: &http.Client{Timeout: timeout}}
}

// Fetch downloads the manifest at url and verifies it against key. It fails
// with a NETWORK_ERROR, SIGNATURE_INVALID or PARSE_ERROR launcher error.
func (f *Fetcher) Fetch(ctx context.Context, url string, key ed25519.PublicKey) (*Manifest, error) {
	if strings.TrimSpace(url) == "" {
		return nil, launcherr.New(launcherr.CodeNetwork, "manifest url is empty")
	}
	client := f.Client
	if client == nil {
		client = &http.Client{Timeout: defaultFetchTimeout}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, launcherr.Wrap(launcherr.CodeNetwork, "build manifest request", err)
	}
	req.Header.Set("Accept", "application/jwt, text/plain")

	resp, err := client.Do(req)
	if err != nil {
		return nil, launcherr.Wrap(launcherr.CodeNetwork, "fetch manifest", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxManifestBytes))
		return nil, launcherr.New(launcherr.CodeNetwork, fmt.Sprintf("fetch manifest: unexpected status %s", resp.Status))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxManifestBytes+1))
	if err != nil {
		return nil, launcherr.Wrap(launcherr.CodeNetwork, "read manifest body", err)
	}
	if len(body) > maxManifestBytes {
		return nil, launcherr.New(launcherr.CodeParse, "manifest payload exceeds size limit")
	}
	return Verify(string(body), key)
}
