package runtime

import (
	"time"

	"github.com/bizzaro-jhunt/gridmq-sub000/gridcfg"
	"github.com/bizzaro-jhunt/gridmq-sub000/timerset"
	"github.com/bizzaro-jhunt/gridmq-sub000/wire"
	"github.com/bizzaro-jhunt/gridmq-sub000/worker"
)

const defaultStatsPushIvl = 10 * time.Second

// statsPusher periodically formats every open socket's Tracker as ESTP
// text and publishes it over a dedicated PUB socket bound at
// GRID_STATISTICS_SOCKET — gridmq's own transport carries its own
// statistics (spec §6's "side statistics socket"), rather than a bespoke
// exporter loop bypassing the library.
type statsPusher struct {
	rt       *Runtime
	sock     *Socket
	w        *worker.Worker
	interval time.Duration
	timer    *timerset.Timer
}

// StartStatsPusher binds an internal PUB socket at GRID_STATISTICS_SOCKET
// (a no-op if that environment variable is unset) and begins publishing an
// ESTP snapshot of every socket's Tracker every interval.
func (r *Runtime) StartStatsPusher(interval time.Duration) error {
	addr := gridcfg.Rom.StatisticsSocket()
	if addr == "" {
		return nil
	}
	if interval <= 0 {
		interval = defaultStatsPushIvl
	}
	pubSock, err := r.Socket(wire.ProtoPub)
	if err != nil {
		return err
	}
	if _, err := pubSock.Bind(addr); err != nil {
		pubSock.Close()
		return err
	}
	p := &statsPusher{rt: r, sock: pubSock, w: pubSock.w, interval: interval}
	p.arm()

	r.mu.Lock()
	r.pusher = p
	r.mu.Unlock()
	return nil
}

func (p *statsPusher) arm() {
	p.timer = p.w.AddTimer(p.interval, nil, p)
}

// OnTimer implements worker.TimerOwner: snapshot every tracked socket and
// publish each as a separate ESTP-text message, then re-arm.
func (p *statsPusher) OnTimer(any) {
	p.rt.mu.Lock()
	lines := make([]string, 0, len(p.rt.sockets))
	now := time.Now()
	for _, s := range p.rt.sockets {
		if s == p.sock {
			continue
		}
		if line := s.stats.FormatESTP(now); line != "" {
			lines = append(lines, line)
		}
	}
	p.rt.mu.Unlock()

	for _, l := range lines {
		_ = p.sock.SendBytes([]byte(l), true)
	}
	p.arm()
}

func (p *statsPusher) stop() {
	p.w.CancelTimer(p.timer)
}
