// Package telemetry writes launcher lifecycle events as NDJSON.
//
// A nil *Logger is valid and discards everything, so components can log
// unconditionally.
package telemetry

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

type Record struct {
	RunID     string `json:"run_id"`
	Timestamp string `json:"ts"`
	Type      string `json:"type"`
	Server    string `json:"server,omitempty"`
	Host      string `json:"host,omitempty"`
	Port      int    `json:"port,omitempty"`
	State     string `json:"state,omitempty"`
	Decision  string `json:"decision,omitempty"`
	Attempts  int    `json:"attempts,omitempty"`
	PID       int    `json:"pid,omitempty"`
	Checksum  string `json:"checksum,omitempty"`
	Message   string `json:"message,omitempty"`
	Err       string `json:"err,omitempty"`
}

type Logger struct {
	runID string

	mu sync.Mutex
	f  *os.File
	w  *bufio.Writer
}

func New(path, runID string) (*Logger, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create telemetry dir: %w", err)
		}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	return &Logger{
		runID: runID,
		f:     f,
		w:     bufio.NewWriterSize(f, 64*1024),
	}, nil
}

func (l *Logger) Close() error {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.w != nil {
		_ = l.w.Flush()
		l.w = nil
	}
	if l.f != nil {
		err := l.f.Close()
		l.f = nil
		return err
	}
	return nil
}

// Log appends rec, filling RunID and Timestamp when empty.
func (l *Logger) Log(rec Record) {
	if l == nil {
		return
	}
	if rec.RunID == "" {
		rec.RunID = l.runID
	}
	if rec.Timestamp == "" {
		rec.Timestamp = NowTS()
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.w == nil {
		return
	}
	line, err := json.Marshal(rec)
	if err != nil {
		return
	}
	_, _ = l.w.Write(append(line, '\n'))
	_ = l.w.Flush()
}

func NowTS() string { return time.Now().UTC().Format(time.RFC3339Nano) }

func MakeRunID() string {
	id, err := uuid.NewRandom()
	if err != nil {
		return fmt.Sprintf("run-%d", time.Now().UTC().UnixNano())
	}
	return "run-" + id.String()
}
