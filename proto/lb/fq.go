package lb

import "github.com/bizzaro-jhunt/gridmq-sub000/sock"

// FairQueue round-robins recv among pipes with data available, starting at
// the highest priority bucket that has one (spec §4.11).
type FairQueue struct {
	buckets [maxPriority + 1][]*sock.Pipe
	cursor  [maxPriority + 1]int
}

func NewFairQueue() *FairQueue { return &FairQueue{} }

func (fq *FairQueue) Add(p *sock.Pipe) {
	pr := clampPriority(p.Priority)
	fq.buckets[pr] = append(fq.buckets[pr], p)
}

func (fq *FairQueue) Remove(p *sock.Pipe) {
	pr := clampPriority(p.Priority)
	b := fq.buckets[pr]
	for i, x := range b {
		if x == p {
			fq.buckets[pr] = append(b[:i], b[i+1:]...)
			if fq.cursor[pr] > i {
				fq.cursor[pr]--
			}
			return
		}
	}
}

// Current returns the next pipe with a message available, and advances
// that priority's cursor so the next call starts at the following pipe.
func (fq *FairQueue) Current() *sock.Pipe {
	for pr := 1; pr <= maxPriority; pr++ {
		b := fq.buckets[pr]
		n := len(b)
		if n == 0 {
			continue
		}
		for i := 0; i < n; i++ {
			idx := (fq.cursor[pr] + i) % n
			p := b[idx]
			if p.HasIn() {
				fq.cursor[pr] = (idx + 1) % n
				return p
			}
		}
	}
	return nil
}

func (fq *FairQueue) Empty() bool {
	for _, b := range fq.buckets {
		if len(b) > 0 {
			return false
		}
	}
	return true
}

func (fq *FairQueue) All() []*sock.Pipe {
	var out []*sock.Pipe
	for _, b := range fq.buckets {
		out = append(out, b...)
	}
	return out
}
