package orchestrator

import (
	"log/slog"

	"open-launcher/internal/attach"
	"open-launcher/internal/liveness"
)

type Severity int

const (
	Info Severity = iota
	Warning
	Error
)

func (s Severity) String() string {
	switch s {
	case Warning:
		return "warning"
	case Error:
		return "error"
	default:
		return "info"
	}
}

type EventKind int

const (
	// EventStatus carries a liveness change for the selected server.
	EventStatus EventKind = iota
	// EventNotice is a message the control loop shows to the user.
	EventNotice
	// EventUpdatesAvailable is the advisory staleness flag.
	EventUpdatesAvailable
	// EventAttach reports an attachment state transition.
	EventAttach
	// EventTerminate asks the control loop to exit the process.
	EventTerminate
)

// Event is the only way workers reach the control loop. Workers never touch
// interactive state directly.
type Event struct {
	Kind     EventKind
	Server   string
	Status   liveness.Status
	Attach   attach.State
	Severity Severity
	Message  string
	Err      error
}

// post queues a lossy event. Status updates are superseded by later ones,
// so dropping under backpressure is acceptable.
func (o *Orchestrator) post(ev Event) {
	select {
	case o.events <- ev:
	default:
		slog.Warn("event queue full, dropping event", "kind", ev.Kind, "server", ev.Server)
	}
}

// deliver queues an event that must not be lost, waiting for room until the
// orchestrator is closed.
func (o *Orchestrator) deliver(ev Event) {
	select {
	case o.events <- ev:
	case <-o.closed:
	}
}

func (o *Orchestrator) notice(sev Severity, msg string, err error) {
	o.deliver(Event{Kind: EventNotice, Severity: sev, Message: msg, Err: err})
}
