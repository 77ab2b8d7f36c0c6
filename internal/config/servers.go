package config

import (
	"fmt"
	"net"
	"strconv"
	"strings"
)

// Server is an immutable game server endpoint.
type Server struct {
	Name string
	Host string
	Port int
}

func (s Server) Addr() string {
	return net.JoinHostPort(strings.Trim(s.Host, "[]"), strconv.Itoa(s.Port))
}

func (s Server) validate() error {
	if s.Name == "" {
		return fmt.Errorf("server name must not be empty")
	}
	if strings.ContainsAny(s.Name, ",:") {
		return fmt.Errorf("server name %q must not contain ',' or ':'", s.Name)
	}
	if s.Host == "" {
		return fmt.Errorf("server %q: host must not be empty", s.Name)
	}
	if s.Port <= 0 || s.Port > 65535 {
		return fmt.Errorf("server %q: invalid port %d", s.Name, s.Port)
	}
	return nil
}

// Servers is an ordered set of servers keyed by display name. Insertion
// order is display order. It is not safe for concurrent use; owners guard it.
type Servers struct {
	list []Server
}

// Add appends s. Duplicate names are rejected.
func (ss *Servers) Add(s Server) error {
	if err := s.validate(); err != nil {
		return err
	}
	if _, ok := ss.Lookup(s.Name); ok {
		return fmt.Errorf("a server named %q already exists", s.Name)
	}
	ss.list = append(ss.list, s)
	return nil
}

func (ss Servers) Lookup(name string) (Server, bool) {
	for _, s := range ss.list {
		if s.Name == name {
			return s, true
		}
	}
	return Server{}, false
}

func (ss Servers) Len() int { return len(ss.list) }

// Names returns display names in order.
func (ss Servers) Names() []string {
	out := make([]string, 0, len(ss.list))
	for _, s := range ss.list {
		out = append(out, s.Name)
	}
	return out
}

// All returns a copy of the servers in order.
func (ss Servers) All() []Server {
	out := make([]Server, len(ss.list))
	copy(out, ss.list)
	return out
}

// FormatServerEntry encodes s the way the persisted "Servers" settings value
// stores it: a leading comma followed by name:host:port.
func FormatServerEntry(s Server) string {
	return fmt.Sprintf(",%s:%s:%d", s.Name, s.Host, s.Port)
}

// ParseServerList decodes a persisted "Servers" value. Empty segments are
// skipped; malformed segments are an error.
func ParseServerList(raw string) ([]Server, error) {
	var out []Server
	for _, seg := range strings.Split(raw, ",") {
		seg = strings.TrimSpace(seg)
		if seg == "" {
			continue
		}
		// Hosts may be IPv6 literals, so split name from the front and port from the back.
		first := strings.IndexByte(seg, ':')
		last := strings.LastIndexByte(seg, ':')
		if first <= 0 || last == first {
			return nil, fmt.Errorf("malformed server entry %q", seg)
		}
		port, err := strconv.Atoi(seg[last+1:])
		if err != nil {
			return nil, fmt.Errorf("malformed server entry %q: %w", seg, err)
		}
		s := Server{Name: seg[:first], Host: seg[first+1 : last], Port: port}
		if err := s.validate(); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}
