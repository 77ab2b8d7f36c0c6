package telemetry

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLogger_WritesNDJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "events.ndjson")
	l, err := New(path, "run-test")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	l.Log(Record{Type: "probe", Server: "Main", State: "online"})
	l.Log(Record{Type: "attach", Attempts: 3, RunID: "run-other"})
	if err := l.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	// Logging after close is a no-op.
	l.Log(Record{Type: "late"})

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()

	var recs []Record
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var r Record
		if err := json.Unmarshal(sc.Bytes(), &r); err != nil {
			t.Fatalf("line %q: %v", sc.Text(), err)
		}
		recs = append(recs, r)
	}
	if len(recs) != 2 {
		t.Fatalf("records=%d", len(recs))
	}
	if recs[0].RunID != "run-test" || recs[0].Timestamp == "" || recs[0].State != "online" {
		t.Fatalf("rec0=%+v", recs[0])
	}
	if recs[1].RunID != "run-other" || recs[1].Attempts != 3 {
		t.Fatalf("rec1=%+v", recs[1])
	}
}

func TestNilLoggerIsNoop(t *testing.T) {
	var l *Logger
	l.Log(Record{Type: "probe"})
	if err := l.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestMakeRunID(t *testing.T) {
	a, b := MakeRunID(), MakeRunID()
	if !strings.HasPrefix(a, "run-") || a == b {
		t.Fatalf("a=%q b=%q", a, b)
	}
}
