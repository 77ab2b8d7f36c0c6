// Package liveness probes game servers with a single bounded TCP connect and
// tracks the reachability of the currently selected server.
package liveness

import (
	"context"
	"errors"
	"net"
	"strconv"
	"time"

	"open-launcher/internal/launcherr"
)

const DefaultTimeout = 2 * time.Second

type Status int

const (
	Unknown Status = iota
	Probing
	Online
	Offline
)

func (s Status) String() string {
	switch s {
	case Probing:
		return "PINGING"
	case Online:
		return "ONLINE"
	case Offline:
		return "OFFLINE"
	default:
		return "UNKNOWN"
	}
}

// Result of a single probe. Err is set for Offline results.
type Result struct {
	Reachable bool
	Elapsed   time.Duration
	Err       error
}

func (r Result) Status() Status {
	if r.Reachable {
		return Online
	}
	return Offline
}

// Probe makes one TCP connection attempt to host:port bounded by timeout.
// The connection is closed on every path.
func Probe(ctx context.Context, host string, port int, timeout time.Duration) Result {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	start := time.Now()
	if host == "" || port < 1 || port > 65535 {
		return Result{Err: launcherr.New(launcherr.CodeNetwork, "invalid probe target"), Elapsed: time.Since(start)}
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", net.JoinHostPort(host, strconv.Itoa(port)))
	if conn != nil {
		_ = conn.Close()
	}
	res := Result{Elapsed: time.Since(start)}
	if err != nil {
		var dnsErr *net.DNSError
		msg := "connect"
		if errors.As(err, &dnsErr) {
			msg = "resolve " + host
		}
		res.Err = launcherr.Wrap(launcherr.CodeNetwork, msg, err)
		return res
	}
	res.Reachable = true
	return res
}
