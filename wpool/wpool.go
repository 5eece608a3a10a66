// Package wpool is the L4 component of spec §2/§4.2: a fixed set of
// workers with round-robin assignment of new sockets. A socket's worker is
// fixed at creation time.
package wpool

import (
	"runtime"
	"sync/atomic"

	"github.com/bizzaro-jhunt/gridmq-sub000/worker"
)

type Pool struct {
	workers []*worker.Worker
	next    atomic.Uint64
}

// New starts n workers (n<=0 means one per CPU, matching spec §5's
// scheduling model: "one worker per CPU (configurable)").
func New(n int) (*Pool, error) {
	if n <= 0 {
		n = runtime.NumCPU()
		if n < 1 {
			n = 1
		}
	}
	p := &Pool{workers: make([]*worker.Worker, n)}
	for i := range p.workers {
		w, err := worker.New()
		if err != nil {
			p.Stop()
			return nil, err
		}
		p.workers[i] = w
		go w.Run()
	}
	return p, nil
}

// Assign picks the next worker round-robin; the caller fixes this worker to
// the new socket for its lifetime.
func (p *Pool) Assign() *worker.Worker {
	i := p.next.Add(1) - 1
	return p.workers[i%uint64(len(p.workers))]
}

func (p *Pool) Len() int { return len(p.workers) }

func (p *Pool) Stop() {
	for _, w := range p.workers {
		if w != nil {
			w.Stop()
		}
	}
}
