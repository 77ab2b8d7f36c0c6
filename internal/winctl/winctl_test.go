package winctl

import (
	"errors"
	"testing"
)

type fakeWindow struct {
	style   uint32
	redraws int
	menus   int
	setErr  error
}

func (f *fakeWindow) Style(uintptr) (uint32, error) { return f.style, nil }

func (f *fakeWindow) SetStyle(_ uintptr, s uint32) error {
	if f.setErr != nil {
		return f.setErr
	}
	f.style = s
	return nil
}

func (f *fakeWindow) Redraw(uintptr) error { f.redraws++; return nil }

func (f *fakeWindow) RemoveSystemMenuItems(uintptr) error { f.menus++; return nil }

func TestStripSystemMenu(t *testing.T) {
	w := &fakeWindow{style: WSSysMenu | 0x1}
	if err := StripSystemMenu(w, 42); err != nil {
		t.Fatalf("StripSystemMenu: %v", err)
	}
	if w.style != 0x1 {
		t.Fatalf("style=0x%x", w.style)
	}
	if w.redraws != 1 || w.menus != 1 {
		t.Fatalf("redraws=%d menus=%d", w.redraws, w.menus)
	}
}

func TestStripSystemMenu_Errors(t *testing.T) {
	if err := StripSystemMenu(&fakeWindow{}, 0); err == nil {
		t.Fatalf("expected error for zero handle")
	}
	w := &fakeWindow{style: WSSysMenu, setErr: errors.New("access denied")}
	if err := StripSystemMenu(w, 7); err == nil {
		t.Fatalf("expected SetStyle error")
	}
	if w.redraws != 0 {
		t.Fatalf("redraw after failed style change")
	}
}
