package publish

import (
	"bytes"
	"crypto/ed25519"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"open-launcher/internal/config"
	"open-launcher/internal/manifest"
)

func TestKeygen_OutputsUsableKeys(t *testing.T) {
	var out bytes.Buffer
	if err := Keygen(&out, nil); err != nil {
		t.Fatalf("Keygen: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("lines=%q", lines)
	}
	privRaw := strings.TrimPrefix(lines[0], "export OL_MANIFEST_PRIVATE_KEY=")
	pubRaw := strings.TrimPrefix(lines[1], "public_key: ")

	priv, err := Env{PrivateKey: privRaw}.SigningKey()
	if err != nil {
		t.Fatalf("SigningKey: %v", err)
	}
	pub, err := config.DecodePublicKey(pubRaw)
	if err != nil {
		t.Fatalf("DecodePublicKey: %v", err)
	}
	if !pub.Equal(priv.Public().(ed25519.PublicKey)) {
		t.Fatalf("public key does not match private key")
	}
}

func TestParseEnv(t *testing.T) {
	t.Setenv("OL_MANIFEST_ADDR", ":9999")
	t.Setenv("OL_MANIFEST_PRIVATE_KEY", "")
	e, err := ParseEnv()
	if err != nil {
		t.Fatalf("ParseEnv: %v", err)
	}
	if e.Addr != ":9999" || e.Document != "manifest.yaml" {
		t.Fatalf("env=%+v", e)
	}
	if _, err := e.SigningKey(); err == nil {
		t.Fatalf("expected missing key error")
	}
}

func TestDocument_BuildSignsWithConfig(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "launcher.yaml"), []byte("key_name: Fresh\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	doc := "version: 5.0.1\nfiles:\n  client.bin: 42\nconfig_file: launcher.yaml\nnews:\n  title: Patch day\n"
	path := filepath.Join(dir, "manifest.yaml")
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	d, err := LoadDocument(path)
	if err != nil {
		t.Fatalf("LoadDocument: %v", err)
	}
	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	c, err := d.Build(priv, time.Now())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	m, err := manifest.Verify(c.Token, pub)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if rev, _ := m.Revision("client.bin"); rev != 42 {
		t.Fatalf("revision=%d", rev)
	}
	cp, ok := m.Config()
	if !ok || cp.Body != "key_name: Fresh\n" {
		t.Fatalf("config payload=%+v ok=%v", cp, ok)
	}
	if c.News.Title != "Patch day" || c.News.Version != "5.0.1" {
		t.Fatalf("news=%+v", c.News)
	}
}

func TestLoadDocument_RequiresVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "manifest.yaml")
	if err := os.WriteFile(path, []byte("files: {}\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := LoadDocument(path); err == nil {
		t.Fatalf("expected error")
	}
}
