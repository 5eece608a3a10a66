//go:build linux

package poller

import (
	"sync"

	"golang.org/x/sys/unix"
)

type epollPoller struct {
	epfd int

	mu      sync.Mutex // guards fd<->handle maps; touched only by the owning worker thread in practice
	fdOf    map[uintptr]int
	handles map[int]uintptr
	armed   map[int]uint32 // current epoll event mask per fd

	events []unix.EpollEvent
	pend   []unix.EpollEvent
	ready  int
}

// New constructs an epoll-backed Poller sized for maxEvents per Wait batch.
func New(maxEvents int) (Poller, error) {
	fd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, err
	}
	if maxEvents <= 0 {
		maxEvents = 256
	}
	return &epollPoller{
		epfd:    fd,
		fdOf:    make(map[uintptr]int),
		handles: make(map[int]uintptr),
		armed:   make(map[int]uint32),
		events:  make([]unix.EpollEvent, maxEvents),
	}, nil
}

func (p *epollPoller) Add(fd int, handle uintptr) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.fdOf[handle] = fd
	p.handles[fd] = handle
	p.armed[fd] = 0
	ev := unix.EpollEvent{Events: 0, Fd: int32(fd)}
	return unix.EpollCtl(p.epfd, unix.EPOLL_CTL_ADD, fd, &ev)
}

func (p *epollPoller) Remove(handle uintptr) error {
	p.mu.Lock()
	fd, ok := p.fdOf[handle]
	if !ok {
		p.mu.Unlock()
		return nil
	}
	delete(p.fdOf, handle)
	delete(p.handles, fd)
	delete(p.armed, fd)
	p.mu.Unlock()
	return unix.EpollCtl(p.epfd, unix.EPOLL_CTL_DEL, fd, nil)
}

func (p *epollPoller) rearm(handle uintptr, set bool, bit uint32) error {
	p.mu.Lock()
	fd, ok := p.fdOf[handle]
	if !ok {
		p.mu.Unlock()
		return nil
	}
	mask := p.armed[fd]
	if set {
		mask |= bit
	} else {
		mask &^= bit
	}
	p.armed[fd] = mask
	p.mu.Unlock()
	ev := unix.EpollEvent{Events: mask, Fd: int32(fd)}
	return unix.EpollCtl(p.epfd, unix.EPOLL_CTL_MOD, fd, &ev)
}

func (p *epollPoller) SetIn(h uintptr) error    { return p.rearm(h, true, unix.EPOLLIN) }
func (p *epollPoller) ResetIn(h uintptr) error  { return p.rearm(h, false, unix.EPOLLIN) }
func (p *epollPoller) SetOut(h uintptr) error   { return p.rearm(h, true, unix.EPOLLOUT) }
func (p *epollPoller) ResetOut(h uintptr) error { return p.rearm(h, false, unix.EPOLLOUT) }

func (p *epollPoller) Wait(timeoutMs int) (int, error) {
	n, err := unix.EpollWait(p.epfd, p.events, timeoutMs)
	if err != nil {
		if err == unix.EINTR {
			return 0, nil
		}
		return 0, err
	}
	p.pend = p.events[:n]
	p.ready = n
	return n, nil
}

func (p *epollPoller) Event() (Kind, uintptr, bool) {
	if len(p.pend) == 0 {
		return 0, 0, false
	}
	ev := p.pend[0]
	p.pend = p.pend[1:]

	p.mu.Lock()
	handle, ok := p.handles[int(ev.Fd)]
	p.mu.Unlock()
	if !ok {
		return p.Event() // fd was removed between Wait and drain
	}

	switch {
	case ev.Events&(unix.EPOLLHUP|unix.EPOLLERR) != 0:
		return KindErr, handle, true
	case ev.Events&unix.EPOLLIN != 0:
		return KindIn, handle, true
	case ev.Events&unix.EPOLLOUT != 0:
		return KindOut, handle, true
	default:
		return p.Event()
	}
}

func (p *epollPoller) Close() error { return unix.Close(p.epfd) }
