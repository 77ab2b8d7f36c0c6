// Package publish is the publisher side of the manifest: key generation,
// manifest documents and signing.
package publish

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"open-launcher/internal/config"
	"open-launcher/internal/manifest"
	"open-launcher/internal/manifestsrv"
)

// Env is the publisher configuration read from the environment.
type Env struct {
	PrivateKey string `env:"OL_MANIFEST_PRIVATE_KEY"`
	Addr       string `env:"OL_MANIFEST_ADDR" envDefault:"127.0.0.1:8088"`
	Document   string `env:"OL_MANIFEST_DOCUMENT" envDefault:"manifest.yaml"`
}

func ParseEnv() (Env, error) {
	var e Env
	if err := env.Parse(&e); err != nil {
		return Env{}, fmt.Errorf("parse env: %w", err)
	}
	return e, nil
}

// SigningKey decodes PrivateKey.
func (e Env) SigningKey() (ed25519.PrivateKey, error) {
	if e.PrivateKey == "" {
		return nil, errors.New("OL_MANIFEST_PRIVATE_KEY is not set")
	}
	b, err := config.DecodeBase64(e.PrivateKey)
	if err != nil {
		return nil, fmt.Errorf("decode private key: %w", err)
	}
	if len(b) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("private key must be %d bytes", ed25519.PrivateKeySize)
	}
	return ed25519.PrivateKey(b), nil
}

// Keygen writes a new key pair: the private key as an env export and the
// public key as the launcher config line.
func Keygen(out io.Writer, reader io.Reader) error {
	if out == nil {
		return errors.New("output is required")
	}
	if reader == nil {
		reader = rand.Reader
	}
	pub, priv, err := ed25519.GenerateKey(reader)
	if err != nil {
		return fmt.Errorf("generate manifest key: %w", err)
	}
	if _, err := fmt.Fprintf(out, "export OL_MANIFEST_PRIVATE_KEY=%s\n", base64.StdEncoding.EncodeToString(priv)); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(out, "public_key: %s\n", base64.StdEncoding.EncodeToString(pub)); err != nil {
		return err
	}
	return nil
}

// Document is the YAML source of a manifest.
type Document struct {
	Version string           `yaml:"version"`
	Files   map[string]int64 `yaml:"files"`
	// ConfigFile, relative to the document, is pushed to launchers.
	ConfigFile string `yaml:"config_file"`
	News       struct {
		Title   string `yaml:"title"`
		Message string `yaml:"message"`
	} `yaml:"news"`

	dir string
}

func LoadDocument(path string) (Document, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Document{}, fmt.Errorf("read manifest document: %w", err)
	}
	var d Document
	if err := yaml.Unmarshal(b, &d); err != nil {
		return Document{}, fmt.Errorf("parse manifest document %s: %w", path, err)
	}
	if d.Version == "" {
		return Document{}, fmt.Errorf("manifest document %s: version is required", path)
	}
	d.dir = filepath.Dir(path)
	return d, nil
}

// Build signs d and returns the content to publish.
func (d Document) Build(key ed25519.PrivateKey, now time.Time) (manifestsrv.Content, error) {
	doc := manifest.Document{Version: d.Version, Files: d.Files}
	if d.ConfigFile != "" {
		p := d.ConfigFile
		if !filepath.IsAbs(p) {
			p = filepath.Join(d.dir, p)
		}
		body, err := os.ReadFile(p)
		if err != nil {
			return manifestsrv.Content{}, fmt.Errorf("read pushed config: %w", err)
		}
		doc.Config = manifest.NewConfigPayload(body)
	}
	tok, err := manifest.Sign(doc, key, now)
	if err != nil {
		return manifestsrv.Content{}, err
	}
	title := d.News.Title
	if title == "" {
		title = "Launcher news"
	}
	return manifestsrv.Content{
		Token: tok,
		News: manifestsrv.News{
			Title:     title,
			Version:   d.Version,
			Published: now.UTC().Format(time.RFC1123),
			Message:   d.News.Message,
		},
	}, nil
}
