// Package lb implements spec §4.11's common load-balancer and fair-queue
// pipe-set primitives: sorted-by-priority pipe lists with round-robin
// rotation. Grounded on xact/xreg/xreg.go's registry iteration order,
// generalized from a flat registry to a 16-bucket priority ladder.
package lb

import "github.com/bizzaro-jhunt/gridmq-sub000/sock"

const maxPriority = 16

// LoadBalancer tracks sendable pipes bucketed by priority (1..16, 1 =
// highest) and rotates among same-priority pipes on RELEASE.
type LoadBalancer struct {
	buckets [maxPriority + 1][]*sock.Pipe
	cursor  [maxPriority + 1]int
}

func NewLoadBalancer() *LoadBalancer { return &LoadBalancer{} }

func (lb *LoadBalancer) Add(p *sock.Pipe) {
	pr := clampPriority(p.Priority)
	lb.buckets[pr] = append(lb.buckets[pr], p)
}

func (lb *LoadBalancer) Remove(p *sock.Pipe) {
	pr := clampPriority(p.Priority)
	b := lb.buckets[pr]
	for i, x := range b {
		if x == p {
			lb.buckets[pr] = append(b[:i], b[i+1:]...)
			if lb.cursor[pr] > i {
				lb.cursor[pr]--
			}
			return
		}
	}
}

// Current returns the pipe the load-balancer would dispatch to next,
// descending from highest priority (1) until one with send capacity is
// found.
func (lb *LoadBalancer) Current() *sock.Pipe {
	for pr := 1; pr <= maxPriority; pr++ {
		b := lb.buckets[pr]
		n := len(b)
		if n == 0 {
			continue
		}
		for i := 0; i < n; i++ {
			p := b[(lb.cursor[pr]+i)%n]
			if p.CanSend() {
				return p
			}
		}
	}
	return nil
}

// Rotate advances the cursor at pr past the pipe that just released its
// send slot, per spec §4.11.
func (lb *LoadBalancer) Rotate(p *sock.Pipe) {
	pr := clampPriority(p.Priority)
	b := lb.buckets[pr]
	for i, x := range b {
		if x == p {
			lb.cursor[pr] = (i + 1) % len(b)
			return
		}
	}
}

func (lb *LoadBalancer) Empty() bool {
	for _, b := range lb.buckets {
		if len(b) > 0 {
			return false
		}
	}
	return true
}

// All returns every pipe across all priorities, for PUB-style fan-out.
func (lb *LoadBalancer) All() []*sock.Pipe {
	var out []*sock.Pipe
	for _, b := range lb.buckets {
		out = append(out, b...)
	}
	return out
}

func clampPriority(p int) int {
	if p < 1 {
		return 1
	}
	if p > maxPriority {
		return maxPriority
	}
	return p
}
