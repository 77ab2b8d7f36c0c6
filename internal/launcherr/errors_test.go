package launcherr

import (
	"errors"
	"fmt"
	"testing"
)

func TestIsMatchesByCode(t *testing.T) {
	err := Wrap(CodeNetwork, "fetch manifest", errors.New("dial tcp: refused"))
	wrapped := fmt.Errorf("update cycle: %w", err)
	if !errors.Is(wrapped, ErrNetwork) {
		t.Fatalf("expected ErrNetwork match")
	}
	if errors.Is(wrapped, ErrParse) {
		t.Fatalf("unexpected ErrParse match")
	}
	if got := CodeOf(wrapped); got != CodeNetwork {
		t.Fatalf("CodeOf=%q", got)
	}
}

func TestErrorMessage(t *testing.T) {
	if got := Wrap(CodeParse, "decode claims", errors.New("bad json")).Error(); got != "decode claims: bad json" {
		t.Fatalf("msg=%q", got)
	}
	if got := New(CodeUpdaterLaunch, "").Error(); got != string(CodeUpdaterLaunch) {
		t.Fatalf("msg=%q", got)
	}
}

func TestAdvisory(t *testing.T) {
	if !Advisory(New(CodeSignatureInvalid, "x")) {
		t.Fatalf("signature failures are advisory")
	}
	if Advisory(New(CodeUpdaterLaunch, "x")) {
		t.Fatalf("updater launch failures are foreground")
	}
	if Advisory(errors.New("plain")) {
		t.Fatalf("plain errors are not advisory")
	}
}
