//go:build !linux

package worker

import "os"

// pipeWakeup is the portable fallback: a self-pipe, the classic pre-eventfd
// Unix idiom for interrupting a blocked poll/select from another thread.
type pipeWakeup struct{ r, w *os.File }

func newWakeup() (Wakeup, error) {
	r, w, err := os.Pipe()
	if err != nil {
		return nil, err
	}
	return &pipeWakeup{r: r, w: w}, nil
}

func (p *pipeWakeup) FD() int { return int(p.r.Fd()) }

func (p *pipeWakeup) Signal() error {
	_, err := p.w.Write([]byte{1})
	return err
}

func (p *pipeWakeup) Drain() {
	buf := make([]byte, 64)
	for {
		n, err := p.r.Read(buf)
		if err != nil || n == 0 {
			return
		}
	}
}

func (p *pipeWakeup) Close() error {
	p.w.Close()
	return p.r.Close()
}
