// Package usock implements the L6 async socket of spec §4.4: a per-fd FSM
// bound to one worker, non-blocking connect/accept/send/recv with a
// read-coalescing batch buffer. Grounded on transport/sendmsg.go's
// terminate/doRequest state shape and transport/pdu.go's offset-cursor
// buffer bookkeeping, generalized from HTTP object framing to raw socket
// syscalls since spec §4.4 requires real non-blocking connect/accept/send/
// recv with SCM_RIGHTS extraction — a concern the teacher's HTTP-based
// transport never touches.
package usock

import (
	"sync"

	"golang.org/x/sys/unix"

	"github.com/bizzaro-jhunt/gridmq-sub000/grideerr"
	"github.com/bizzaro-jhunt/gridmq-sub000/poller"
	"github.com/bizzaro-jhunt/gridmq-sub000/worker"
)

type State int

const (
	Idle State = iota
	Starting
	BeingAccepted
	Accepted
	Connecting
	Active
	RemovingFD
	Done
	Listening
	Accepting
	Cancelling
	Stopping
	StoppingAccept
	AcceptingError
)

const batchSize = 2048

// Events is implemented by the owner (the session/endpoint FSM layers) to
// receive usock's raised notifications (spec §3 Usock "five event-outs").
type Events interface {
	OnEstablished()
	OnAccepted(u *Usock)
	OnSent(n int)
	OnReceived(buf []byte, oobFD int)
	OnError(err error)
	OnAcceptError(err error)
	OnDone()
}

// Usock wraps one non-blocking fd owned by exactly one worker once it
// leaves Idle.
type Usock struct {
	mu    sync.Mutex
	state State
	fd    int
	w     *worker.Worker
	ev    Events
	h     uintptr

	batch    []byte
	batchOff int
	batchLen int

	sendBuf   []byte
	sendOff   int
	lastErrno error
}

// New wraps an already-created, non-blocking fd (CLOEXEC/non-blocking/
// SIGPIPE-suppression is the caller's responsibility at construction time,
// per spec §4.4's "set at construction" policy — see transport.NewNonblockingSocket).
func New(fd int, w *worker.Worker, ev Events) *Usock {
	return &Usock{fd: fd, w: w, ev: ev, state: Idle}
}

func (u *Usock) FD() int { return u.fd }

// SetEvents attaches the owner after construction, for fds handed over via
// OnAccepted (Accept4 builds the child Usock before its eventual owner is
// known).
func (u *Usock) SetEvents(ev Events) {
	u.mu.Lock()
	u.ev = ev
	u.mu.Unlock()
}

// Connect attempts a non-blocking connect synchronously; on EINPROGRESS it
// hands over to the worker by arming OUT (spec §4.4's Connect policy).
func (u *Usock) Connect(sa unix.Sockaddr) error {
	u.mu.Lock()
	u.state = Connecting
	u.mu.Unlock()

	err := unix.Connect(u.fd, sa)
	if err == nil {
		u.mu.Lock()
		u.state = Active
		u.mu.Unlock()
		h, rerr := u.w.RegisterFD(u.fd, u)
		if rerr != nil {
			return rerr
		}
		u.h = h
		if err := u.w.ArmIn(u.h); err != nil {
			return err
		}
		u.ev.OnEstablished()
		return nil
	}
	if err != unix.EINPROGRESS {
		u.mu.Lock()
		u.state = Done
		u.mu.Unlock()
		return err
	}
	h, rerr := u.w.RegisterFD(u.fd, u)
	if rerr != nil {
		return rerr
	}
	u.h = h
	return u.w.ArmOut(u.h)
}

// Activate registers an already-connected fd (spec §4.4's accepted-socket
// path skips CONNECTING entirely) for read readiness and reports it
// established.
func (u *Usock) Activate() error {
	u.mu.Lock()
	u.state = Active
	u.mu.Unlock()
	h, err := u.w.RegisterFD(u.fd, u)
	if err != nil {
		return err
	}
	u.h = h
	if err := u.w.ArmIn(u.h); err != nil {
		return err
	}
	u.ev.OnEstablished()
	return nil
}

// Listen sets SO_REUSEADDR, binds, and listens with the spec §4.5 fixed
// backlog of 100.
func (u *Usock) Listen(sa unix.Sockaddr) error {
	if err := unix.SetsockoptInt(u.fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		return err
	}
	if err := unix.Bind(u.fd, sa); err != nil {
		return err
	}
	if err := unix.Listen(u.fd, 100); err != nil {
		return err
	}
	u.mu.Lock()
	u.state = Listening
	u.mu.Unlock()
	h, err := u.w.RegisterFD(u.fd, u)
	if err != nil {
		return err
	}
	u.h = h
	return u.w.ArmIn(u.h)
}

// Accept tries a synchronous accept4 first; on EAGAIN it arms IN on the
// listener and retries from OnFD (spec §4.4's Accept policy). ECONNABORTED
// is retried silently; resource exhaustion transitions to AcceptingError.
func (u *Usock) Accept() {
	u.mu.Lock()
	u.state = Accepting
	u.mu.Unlock()
	u.tryAccept()
}

func (u *Usock) tryAccept() {
	for {
		nfd, _, err := unix.Accept4(u.fd, unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC)
		if err == nil {
			u.mu.Lock()
			u.state = Accepting
			u.mu.Unlock()
			u.ev.OnAccepted(New(nfd, u.w, nil))
			continue
		}
		switch err {
		case unix.EAGAIN:
			u.w.ArmIn(u.h)
			return
		case unix.ECONNABORTED:
			continue // silently retry, per spec §4.4
		default:
			if grideerr.IsErrResourceExhaustion(err) {
				u.mu.Lock()
				u.state = AcceptingError
				u.lastErrno = err
				u.mu.Unlock()
				u.ev.OnAcceptError(err)
				return
			}
			u.mu.Lock()
			u.state = Done
			u.mu.Unlock()
			u.ev.OnError(err)
			return
		}
	}
}

// Send builds a single sendmsg of buf; on full send raises Sent, on EAGAIN
// arms OUT and keeps the unsent suffix for OnFD to retry (spec §4.4 Send).
func (u *Usock) Send(buf []byte) error {
	u.mu.Lock()
	u.sendBuf = buf
	u.sendOff = 0
	u.mu.Unlock()
	return u.pumpSend()
}

func (u *Usock) pumpSend() error {
	u.mu.Lock()
	buf := u.sendBuf
	off := u.sendOff
	u.mu.Unlock()
	if off >= len(buf) {
		return nil
	}
	n, err := unix.Write(u.fd, buf[off:])
	if n > 0 {
		u.mu.Lock()
		u.sendOff += n
		done := u.sendOff >= len(u.sendBuf)
		u.mu.Unlock()
		if done {
			u.ev.OnSent(len(buf))
			return nil
		}
	}
	if err == unix.EAGAIN || err == nil {
		return u.w.ArmOut(u.h)
	}
	if grideerr.IsErrConnectionReset(err) || err == unix.EPIPE {
		u.ev.OnError(err)
		return err
	}
	u.ev.OnError(err)
	return err
}

// Recv reads up to len(p) bytes, lazily allocating a batchSize coalescing
// buffer on first use (spec §4.4 Recv). Any bytes already sitting in the
// batch from a prior read are drained into p first, regardless of how big
// the remaining request is; only once the batch is empty does the size of
// what's left decide between a direct recvmsg into p or a fresh batch fill.
func (u *Usock) Recv(p []byte) (int, error) {
	u.mu.Lock()
	if u.batch == nil {
		u.batch = make([]byte, batchSize)
	}

	got := 0
	if u.batchLen > u.batchOff {
		n := copy(p, u.batch[u.batchOff:u.batchLen])
		u.batchOff += n
		got = n
		if got == len(p) {
			u.mu.Unlock()
			return got, nil
		}
	}
	rest := p[got:]
	u.mu.Unlock()

	if len(rest) > batchSize {
		n, _, _, _, err := unix.Recvmsg(u.fd, rest, nil, 0)
		if err != nil {
			if got > 0 && err == unix.EAGAIN {
				return got, nil
			}
			return got, err
		}
		return got + n, nil
	}

	oob := make([]byte, unix.CmsgSpace(4))
	n, oobn, _, _, err := unix.Recvmsg(u.fd, u.batch, oob, 0)
	if err != nil {
		if got > 0 && err == unix.EAGAIN {
			return got, nil
		}
		return got, err
	}
	fd := extractSCMRights(oob[:oobn])
	u.mu.Lock()
	u.batchOff, u.batchLen = 0, n
	u.mu.Unlock()
	if fd >= 0 {
		// spec §4.4: if the caller didn't ask for an fd, close it immediately.
		unix.Close(fd)
	}
	cp := copy(rest, u.batch[:n])
	u.mu.Lock()
	u.batchOff = cp
	u.mu.Unlock()
	return got + cp, nil
}

func extractSCMRights(oob []byte) int {
	msgs, err := unix.ParseSocketControlMessage(oob)
	if err != nil || len(msgs) == 0 {
		return -1
	}
	fds, err := unix.ParseUnixRights(&msgs[0])
	if err != nil || len(fds) == 0 {
		return -1
	}
	return fds[0]
}

// OnFD implements worker.FDOwner: worker-thread-side completion of
// in-flight connect/accept/send operations.
func (u *Usock) OnFD(kind poller.Kind) {
	u.mu.Lock()
	st := u.state
	u.mu.Unlock()

	switch kind {
	case poller.KindErr:
		errno, _ := unix.GetsockoptInt(u.fd, unix.SOL_SOCKET, unix.SO_ERROR)
		u.ev.OnError(unix.Errno(errno))
		return
	case poller.KindOut:
		if st == Connecting {
			errno, _ := unix.GetsockoptInt(u.fd, unix.SOL_SOCKET, unix.SO_ERROR)
			if errno != 0 {
				u.mu.Lock()
				u.state = Done
				u.mu.Unlock()
				u.ev.OnError(unix.Errno(errno))
				return
			}
			u.mu.Lock()
			u.state = Active
			u.mu.Unlock()
			u.w.DisarmOut(u.h)
			u.w.ArmIn(u.h)
			u.ev.OnEstablished()
			return
		}
		u.w.DisarmOut(u.h)
		u.pumpSend()
	case poller.KindIn:
		if st == Listening || st == Accepting || st == AcceptingError {
			u.tryAccept()
			return
		}
		// ACTIVE: poke the owner to pull with Recv; buf==nil/oobFD==-1
		// distinguishes "data is available" from an actual SCM_RIGHTS batch.
		u.ev.OnReceived(nil, -1)
	}
}

func (u *Usock) State() State {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.state
}

// Stop tears down the fd synchronously from every state: it unregisters and
// closes the fd and raises OnDone before returning. A pending accept is not
// cancelled as a separate step; Cancelling is only recorded as the state
// while the fd is closed.
func (u *Usock) Stop() {
	u.mu.Lock()
	switch u.state {
	case Accepting, Cancelling:
		u.state = Cancelling
	default:
		u.state = Stopping
	}
	u.mu.Unlock()
	if u.h != 0 {
		u.w.UnregisterFD(u.h)
	}
	unix.Close(u.fd)
	u.mu.Lock()
	u.state = Done
	u.mu.Unlock()
	u.ev.OnDone()
}
