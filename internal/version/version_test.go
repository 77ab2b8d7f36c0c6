package version

import "testing"

func TestNewer_NumericNotLexical(t *testing.T) {
	cases := []struct {
		remote, local string
		want          bool
	}{
		{"5.10.0", "5.9.0", true},
		{"5.9.0", "5.10.0", false},
		{"5.0.1", "5.0.0", true},
		{"5.0.1", "5.0.1", false},
		{"5.0", "5.0.0", false},
		{"5.0.0.1", "5.0.0", true},
		{"v6", "5.99.99", true},
	}
	for _, c := range cases {
		got, err := Newer(c.remote, c.local)
		if err != nil {
			t.Fatalf("Newer(%q,%q): %v", c.remote, c.local, err)
		}
		if got != c.want {
			t.Fatalf("Newer(%q,%q)=%v want %v", c.remote, c.local, got, c.want)
		}
	}
}

func TestParse_Rejects(t *testing.T) {
	for _, s := range []string{"", "5..0", "5.x", "-1.0", "5.0-beta"} {
		if _, err := Parse(s); err == nil {
			t.Fatalf("Parse(%q) expected error", s)
		}
	}
}

func TestString(t *testing.T) {
	v, err := Parse("5.10.0")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if v.String() != "5.10.0" {
		t.Fatalf("String=%q", v.String())
	}
}
