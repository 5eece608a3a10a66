// Package transport implements the L8 per-transport connect/bind FSMs of
// spec §4.5: tcp, ipc, tcpmux, ws, each producing a non-blocking fd wrapped
// in a usock.Usock. Grounded on transport/bundle/stream_bundle.go's
// per-destination dial-and-retry loop and cmn/cos error classification for
// deciding whether a failure should trigger backoff, generalized from one
// fixed HTTP-object transport to gridmq's five address schemes.
package transport

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"
)

// Kind identifies one of spec §6's five address schemes.
type Kind int

const (
	KindTCP Kind = iota
	KindIPC
	KindTCPMux
	KindWS
	KindInproc
)

// Addr is a parsed endpoint address.
type Addr struct {
	Kind    Kind
	Iface   string
	Host    string
	Port    int
	Path    string // ipc path, or ws path
	Service string // tcpmux service name
	Raw     string
}

// Parse splits a spec §6 address string into its scheme and fields.
func Parse(s string) (Addr, error) {
	scheme, rest, ok := strings.Cut(s, "://")
	if !ok {
		return Addr{}, fmt.Errorf("gridmq: malformed address %q", s)
	}
	a := Addr{Raw: s}
	switch scheme {
	case "inproc":
		a.Kind = KindInproc
		a.Path = rest
		return a, nil
	case "ipc":
		a.Kind = KindIPC
		a.Path = rest
		return a, nil
	case "tcp":
		a.Kind = KindTCP
		return parseHostPort(rest, &a)
	case "tcpmux":
		a.Kind = KindTCPMux
		hp, svc, ok := strings.Cut(rest, "/")
		if !ok {
			return Addr{}, fmt.Errorf("gridmq: tcpmux address missing /service: %q", s)
		}
		a.Service = svc
		return parseHostPort(hp, &a)
	case "ws":
		a.Kind = KindWS
		hp, path, ok := strings.Cut(rest, "/")
		if !ok {
			hp, path = rest, ""
		}
		a.Path = "/" + path
		if _, _, err := parseHostPort(hp, &a); err != nil {
			return Addr{}, err
		}
		if a.Port == 0 {
			a.Port = 80
		}
		return a, nil
	default:
		return Addr{}, fmt.Errorf("gridmq: unsupported scheme %q", scheme)
	}
}

func parseHostPort(s string, a *Addr) (Addr, error) {
	if iface, hp, ok := strings.Cut(s, ";"); ok {
		a.Iface = iface
		s = hp
	}
	host, portS, ok := strings.Cut(s, ":")
	if !ok {
		a.Host = s
		return *a, nil
	}
	a.Host = host
	if portS != "" {
		p, err := strconv.Atoi(portS)
		if err != nil {
			return Addr{}, fmt.Errorf("gridmq: bad port in %q", s)
		}
		a.Port = p
	}
	return *a, nil
}

// NewNonblockingSocket creates a CLOEXEC, non-blocking socket of the given
// domain/type, matching spec §4.4's "set at construction" policy.
func NewNonblockingSocket(domain, typ, proto int) (int, error) {
	return unix.Socket(domain, typ|unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC, proto)
}
