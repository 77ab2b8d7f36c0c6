package update

import (
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"open-launcher/internal/config"
	"open-launcher/internal/launcherr"
	"open-launcher/internal/manifest"
)

type countingApplier struct {
	writes int
	last   []byte
	err    error
}

func (a *countingApplier) ApplyConfig(body []byte) error {
	if a.err != nil {
		return a.err
	}
	a.writes++
	a.last = append([]byte(nil), body...)
	return nil
}

func verified(t *testing.T, doc manifest.Document) *manifest.Manifest {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	tok, err := manifest.Sign(doc, priv, time.Now())
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	m, err := manifest.Verify(tok, pub)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	return m
}

func TestDecide_EndToEndScenario(t *testing.T) {
	m := verified(t, manifest.Document{Version: "5.0.1", Files: map[string]int64{"client.bin": 42}})
	e := NewEngine(&countingApplier{})

	res, err := e.Decide(m, "5.0.0", 10, "")
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if res.Decision != ClientUpdateRequired {
		t.Fatalf("expected ClientUpdateRequired, got %s", res.Decision)
	}
	if !res.UpdatesAvailable || res.MaxRevision != 42 {
		t.Fatalf("staleness: %+v", res)
	}

	res, err = e.Decide(m, "5.0.1", 50, "")
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if res.Decision != NoAction || res.UpdatesAvailable {
		t.Fatalf("expected NoAction without updates, got %+v", res)
	}
}

func TestDecide_NumericNotLexical(t *testing.T) {
	e := NewEngine(nil)

	res, err := e.Decide(verified(t, manifest.Document{Version: "5.9.0"}), "5.10.0", 0, "")
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if res.Decision != NoAction {
		t.Fatalf("5.9.0 must not be newer than 5.10.0, got %s", res.Decision)
	}

	res, err = e.Decide(verified(t, manifest.Document{Version: "5.10.0"}), "5.9.0", 0, "")
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if res.Decision != ClientUpdateRequired {
		t.Fatalf("5.10.0 must be newer than 5.9.0, got %s", res.Decision)
	}
}

func TestDecide_StalenessIsAdvisoryOnly(t *testing.T) {
	m := verified(t, manifest.Document{Version: "5.0.0", Files: map[string]int64{"a": 5, "b": 99}})
	res, err := NewEngine(nil).Decide(m, "5.0.0", 10, "")
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if res.Decision != NoAction || !res.UpdatesAvailable {
		t.Fatalf("expected advisory updates with NoAction, got %+v", res)
	}
}

func TestDecide_ConfigRefreshIsIdempotentAndConverges(t *testing.T) {
	body := []byte("key_name: Fresh\n")
	m := verified(t, manifest.Document{Version: "6.0.0", Config: manifest.NewConfigPayload(body)})
	app := &countingApplier{}
	e := NewEngine(app)

	for i := 0; i < 2; i++ {
		res, err := e.Decide(m, "5.0.0", 0, "stale")
		if err != nil {
			t.Fatalf("Decide #%d: %v", i, err)
		}
		if res.Decision != ConfigRefreshed {
			t.Fatalf("Decide #%d: expected ConfigRefreshed, got %s", i, res.Decision)
		}
	}
	if app.writes != 1 {
		t.Fatalf("expected exactly one config write, got %d", app.writes)
	}
	if string(app.last) != string(body) {
		t.Fatalf("applied body mismatch: %q", app.last)
	}

	res, err := e.Decide(m, "6.0.0", 0, config.ChecksumBytes(body))
	if err != nil {
		t.Fatalf("Decide after convergence: %v", err)
	}
	if res.Decision != NoAction {
		t.Fatalf("expected NoAction after convergence, got %s", res.Decision)
	}
}

func TestDecide_ConfigWinsOverVersion(t *testing.T) {
	m := verified(t, manifest.Document{Version: "9.0.0", Config: manifest.NewConfigPayload([]byte("x: 1\n"))})
	res, err := NewEngine(&countingApplier{}).Decide(m, "5.0.0", 0, "")
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if res.Decision != ConfigRefreshed {
		t.Fatalf("expected ConfigRefreshed, got %s", res.Decision)
	}
}

func TestDecide_ApplyFailureIsNotRecordedAsApplied(t *testing.T) {
	m := verified(t, manifest.Document{Version: "5.0.0", Config: manifest.NewConfigPayload([]byte("x: 1\n"))})
	app := &countingApplier{err: errors.New("disk full")}
	e := NewEngine(app)

	if _, err := e.Decide(m, "5.0.0", 0, ""); !errors.Is(err, launcherr.ErrConfigRefreshRequired) {
		t.Fatalf("expected ConfigRefreshRequired error, got %v", err)
	}
	app.err = nil
	res, err := e.Decide(m, "5.0.0", 0, "")
	if err != nil || res.Decision != ConfigRefreshed || app.writes != 1 {
		t.Fatalf("retry after failure: res=%+v writes=%d err=%v", res, app.writes, err)
	}
}

func TestFileApplier_WritesConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "launcher.yaml")
	body := []byte("key_name: Fresh\n")
	if err := (FileApplier{Path: path}).ApplyConfig(body); err != nil {
		t.Fatalf("ApplyConfig: %v", err)
	}
	sum, err := config.Checksum(path)
	if err != nil || sum != config.ChecksumBytes(body) {
		t.Fatalf("checksum after apply: %q err=%v", sum, err)
	}
}

func TestDecide_BadLocalVersion(t *testing.T) {
	m := verified(t, manifest.Document{Version: "5.0.0"})
	_, err := NewEngine(nil).Decide(m, "dev", 0, "")
	if launcherr.CodeOf(err) != launcherr.CodeParse {
		t.Fatalf("expected ParseError, got %v", err)
	}
}
