package liveness

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"open-launcher/internal/config"
)

// Update is delivered whenever the selected server's status changes.
type Update struct {
	Server string
	Status Status
	Token  string
	Err    error
}

// ProbeFunc matches Probe; tests substitute it.
type ProbeFunc func(ctx context.Context, host string, port int, timeout time.Duration) Result

// Monitor owns the single liveness slot for the selected server. Every
// selection gets a fresh token; a probe result is applied only while its
// token is still current, so superseded probes finish without effect.
type Monitor struct {
	Timeout time.Duration
	// Floor is the minimum time a probe stays in Probing.
	Floor time.Duration
	Probe ProbeFunc

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu       sync.Locker
	token    string
	server   string
	status   Status
	onUpdate func(Update)
}

// NewMonitor returns a monitor that reports to onUpdate. mu guards the slot;
// pass the owner's lock to share it, or nil for a private one. onUpdate runs
// with mu held and must not call back into the monitor or take mu.
func NewMonitor(timeout, floor time.Duration, mu sync.Locker, onUpdate func(Update)) *Monitor {
	if mu == nil {
		mu = &sync.Mutex{}
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Monitor{
		mu:       mu,
		Timeout:  timeout,
		Floor:    floor,
		Probe:    Probe,
		ctx:      ctx,
		cancel:   cancel,
		onUpdate: onUpdate,
	}
}

// Select makes name the current selection and starts probing srv in the
// background. It never blocks. The returned token identifies this probe; it
// is empty once the monitor is closed.
func (m *Monitor) Select(name string, srv config.Server) string {
	tok := uuid.NewString()

	m.mu.Lock()
	if m.ctx.Err() != nil {
		m.mu.Unlock()
		return ""
	}
	m.token = tok
	m.server = name
	m.status = Probing
	m.emitLocked(Update{Server: name, Status: Probing, Token: tok})
	m.wg.Add(1)
	m.mu.Unlock()

	go m.run(tok, name, srv)
	return tok
}

func (m *Monitor) run(tok, name string, srv config.Server) {
	defer m.wg.Done()

	if m.Floor > 0 {
		t := time.NewTimer(m.Floor)
		select {
		case <-t.C:
		case <-m.ctx.Done():
			t.Stop()
			return
		}
	}
	res := m.Probe(m.ctx, srv.Host, srv.Port, m.Timeout)
	m.apply(tok, name, res)
}

// apply reports whether the result was still current.
func (m *Monitor) apply(tok, name string, res Result) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if tok != m.token || m.ctx.Err() != nil {
		return false
	}
	m.status = res.Status()
	m.emitLocked(Update{Server: name, Status: m.status, Token: tok, Err: res.Err})
	return true
}

// MarkOffline forces the current selection offline, e.g. after a failed
// DNS lookup on Play.
func (m *Monitor) MarkOffline(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.token == "" {
		return
	}
	m.status = Offline
	m.emitLocked(Update{Server: m.server, Status: Offline, Token: m.token, Err: err})
}

func (m *Monitor) emitLocked(u Update) {
	if m.onUpdate != nil {
		m.onUpdate(u)
	}
}

// Current returns the selected server and its status.
func (m *Monitor) Current() (string, Status) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.server, m.status
}

// Wait blocks until all started probes have finished.
func (m *Monitor) Wait() { m.wg.Wait() }

// Close stops pending probes and waits for them. Safe to call twice.
func (m *Monitor) Close() {
	m.mu.Lock()
	m.cancel()
	m.mu.Unlock()
	m.wg.Wait()
}
