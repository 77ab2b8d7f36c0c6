// Package attach finds a freshly spawned game client in the process table
// and, when windowed mode is requested, strips its window chrome.
//
// An Attachment moves Searching -> Found -> Configuring -> Attached, or from
// Searching to Failed once its attempts are exhausted. Stop halts it from any
// state.
package attach

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"open-launcher/internal/launcherr"
	"open-launcher/internal/winctl"
)

const (
	DefaultMaxAttempts = 10
	DefaultInterval    = 500 * time.Millisecond
)

type State int

const (
	Idle State = iota
	Searching
	Found
	Configuring
	Attached
	Failed
	Stopped
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Searching:
		return "searching"
	case Found:
		return "found"
	case Configuring:
		return "configuring"
	case Attached:
		return "attached"
	case Failed:
		return "failed"
	case Stopped:
		return "stopped"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

func (s State) Terminal() bool { return s == Attached || s == Failed || s == Stopped }

type Options struct {
	// ProcessName is matched case-insensitively as a prefix, so "Lineage"
	// matches "Lineage.exe".
	ProcessName   string
	MaxAttempts   int
	Interval      time.Duration
	Windowed      bool
	WindowedDelay time.Duration
}

// Attachment is one attempt to attach to a launched client. It is created
// per launch and must not be reused.
type Attachment struct {
	opts     Options
	lister   ProcessLister
	ctl      winctl.Controller
	registry *Registry
	onState  func(State)

	attempts atomic.Int32

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	mu      sync.Mutex
	state   State
	proc    Process
	err     error
	started bool
	claimed bool
}

// New prepares an attachment. onState, if set, is called on every
// transition from the attachment's own goroutine.
func New(opts Options, lister ProcessLister, ctl winctl.Controller, registry *Registry, onState func(State)) *Attachment {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = DefaultMaxAttempts
	}
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if registry == nil {
		registry = NewRegistry()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Attachment{
		opts:     opts,
		lister:   lister,
		ctl:      ctl,
		registry: registry,
		onState:  onState,
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
}

// Start runs the state machine on its own goroutine.
func (a *Attachment) Start() {
	if !a.markStarted() {
		return
	}
	go a.run()
}

// Run runs the state machine on the caller's goroutine and returns the
// attached process.
func (a *Attachment) Run() (Process, error) {
	if a.markStarted() {
		a.run()
	} else {
		<-a.done
	}
	return a.Result()
}

func (a *Attachment) markStarted() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.started || a.ctx.Err() != nil {
		return false
	}
	a.started = true
	return true
}

// Stop halts polling and releases the claimed window. It may be called in
// any state, any number of times; once it returns no further attempts are
// made. It must not be called from onState.
func (a *Attachment) Stop() {
	a.cancel()
	a.mu.Lock()
	started := a.started
	a.started = true
	a.mu.Unlock()
	if started {
		<-a.done
	} else {
		close(a.done)
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.claimed {
		a.registry.Release(a.proc.Window)
		a.claimed = false
	}
	if !a.state.Terminal() || a.state == Attached {
		a.state = Stopped
	}
}

// Done is closed when the state machine reaches a terminal state.
func (a *Attachment) Done() <-chan struct{} { return a.done }

func (a *Attachment) Attempts() int { return int(a.attempts.Load()) }

func (a *Attachment) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

func (a *Attachment) Result() (Process, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.proc, a.err
}

func (a *Attachment) setState(s State) {
	a.mu.Lock()
	a.state = s
	a.mu.Unlock()
	if a.onState != nil {
		a.onState(s)
	}
}

func (a *Attachment) fail(err error) {
	a.mu.Lock()
	a.err = err
	if a.claimed {
		a.registry.Release(a.proc.Window)
		a.claimed = false
	}
	a.mu.Unlock()
	a.setState(Failed)
}

func (a *Attachment) run() {
	defer close(a.done)

	a.setState(Searching)
	proc, ok := a.search()
	if !ok {
		if a.ctx.Err() != nil {
			a.mu.Lock()
			a.err = a.ctx.Err()
			a.mu.Unlock()
			a.setState(Stopped)
			return
		}
		slog.Warn("client process not found", "process", a.opts.ProcessName, "attempts", a.Attempts())
		a.fail(launcherr.New(launcherr.CodeProcessAttachmentFailed,
			fmt.Sprintf("%s not found after %d attempts", a.opts.ProcessName, a.Attempts())))
		return
	}

	a.mu.Lock()
	a.proc = proc
	a.claimed = true
	a.mu.Unlock()
	a.setState(Found)
	slog.Info("client process found", "pid", proc.PID, "name", proc.Name, "attempts", a.Attempts())

	if a.opts.Windowed {
		a.setState(Configuring)
		if !a.sleep(a.opts.WindowedDelay) {
			a.mu.Lock()
			a.err = a.ctx.Err()
			a.mu.Unlock()
			a.setState(Stopped)
			return
		}
		if err := winctl.StripSystemMenu(a.ctl, proc.Window); err != nil {
			slog.Warn("windowed styling failed", "pid", proc.PID, "err", err)
			a.fail(launcherr.Wrap(launcherr.CodeProcessAttachmentFailed, "apply windowed styling", err))
			return
		}
	}
	a.setState(Attached)
}

func (a *Attachment) search() (Process, bool) {
	want := strings.ToLower(a.opts.ProcessName)
	for i := 0; i < a.opts.MaxAttempts; i++ {
		if a.ctx.Err() != nil {
			return Process{}, false
		}
		n := a.attempts.Add(1)

		procs, err := a.lister.List(a.ctx)
		if err != nil {
			slog.Debug("process list failed", "attempt", n, "err", err)
		}
		live := make(map[uintptr]struct{}, len(procs))
		for _, p := range procs {
			if p.Window != 0 {
				live[p.Window] = struct{}{}
			}
		}
		if err == nil {
			a.registry.Retain(live)
		}
		for _, p := range procs {
			if p.Window == 0 || !strings.HasPrefix(strings.ToLower(p.Name), want) {
				continue
			}
			if a.registry.Claim(p.Window) {
				return p, true
			}
		}
		slog.Debug("client process not yet visible", "attempt", n, "process", a.opts.ProcessName)

		if i < a.opts.MaxAttempts-1 && !a.sleep(a.opts.Interval) {
			return Process{}, false
		}
	}
	return Process{}, false
}

// sleep waits d or until Stop; it reports false when stopped.
func (a *Attachment) sleep(d time.Duration) bool {
	if d <= 0 {
		return a.ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-a.ctx.Done():
		return false
	}
}
