// Package ep implements the L8 endpoint FSM of spec §4.5: the state machine
// that owns one address's connect-or-bind lifecycle and, on success, wires
// a usock through streamhdr and session into a sock.Pipe registered with
// the owning sock.Socket. Grounded on transport/bundle/stream_bundle.go's
// per-destination dial/redial loop with a CAS-guarded stop, generalized
// from a single bundle-wide backoff to the per-endpoint
// RESOLVING/CONNECTING/ACTIVE/WAITING cycle spec §4.5 names, and on
// cmn/cos error classification for the reconnect-or-fail decision.
package ep

import (
	"net"
	"sync"
	"time"

	"github.com/bizzaro-jhunt/gridmq-sub000/backoff"
	"github.com/bizzaro-jhunt/gridmq-sub000/chunk"
	"github.com/bizzaro-jhunt/gridmq-sub000/gridlog"
	"github.com/bizzaro-jhunt/gridmq-sub000/inproc"
	"github.com/bizzaro-jhunt/gridmq-sub000/resolve"
	"github.com/bizzaro-jhunt/gridmq-sub000/session"
	"github.com/bizzaro-jhunt/gridmq-sub000/sock"
	"github.com/bizzaro-jhunt/gridmq-sub000/transport"
	"github.com/bizzaro-jhunt/gridmq-sub000/usock"
	"github.com/bizzaro-jhunt/gridmq-sub000/worker"
)

// State is spec §4.5's endpoint FSM state.
type State int

const (
	Idle State = iota
	Resolving
	Connecting
	Active
	StoppingSession
	StoppingUsock
	Waiting
	Listening
	Stopped
)

// sessionLike is implemented by both session.Session (stream/ipc framing)
// and session.WSSession (RFC 6455 framing); ep drives either uniformly.
type sessionLike interface {
	Start()
	Pump()
	Send(m chunk.Message) error
}

// Endpoint is one connect-side address's lifecycle, or (IsBind) the
// listener that spawns a child Endpoint per accepted connection.
type Endpoint struct {
	mu sync.Mutex

	w        *worker.Worker
	sockObj  *sock.Socket
	addr     transport.Addr
	protoNum uint16
	rcvmax   int64
	isBind   bool
	parent   *Endpoint // accepted children point back at their listener

	bo       *backoff.Backoff
	resolveR *resolve.Request

	u          *usock.Usock
	listener   *usock.Usock
	wsUp       *wsUpgrade
	tmUp       *tcpmuxUpgrade
	inprocConn *inproc.Conn
	sess       sessionLike
	pipe       *sock.Pipe

	state   State
	pipeSeq uint64
}

// New builds a connect-side endpoint.
func New(w *worker.Worker, s *sock.Socket, a transport.Addr, protoNum uint16, rcvmax int64, reconnIvl, reconnIvlMax time.Duration) *Endpoint {
	return &Endpoint{
		w: w, sockObj: s, addr: a, protoNum: protoNum, rcvmax: rcvmax,
		bo: backoff.New(reconnIvl, reconnIvlMax),
	}
}

// NewBind builds a bind-side listening endpoint.
func NewBind(w *worker.Worker, s *sock.Socket, a transport.Addr, protoNum uint16, rcvmax int64) *Endpoint {
	return &Endpoint{w: w, sockObj: s, addr: a, protoNum: protoNum, rcvmax: rcvmax, isBind: true}
}

// Start kicks off the connect-side RESOLVING state, or the bind-side
// listen socket, per spec §4.5.
func (e *Endpoint) Start() error {
	if e.isBind {
		return e.startListen()
	}
	e.startResolve()
	return nil
}

func (e *Endpoint) startResolve() {
	if e.addr.Kind == transport.KindInproc {
		e.startConnectInproc()
		return
	}
	e.setState(Resolving)
	switch e.addr.Kind {
	case transport.KindIPC:
		e.doConnect(nil) // no DNS for a filesystem path
	default:
		e.resolveR = resolve.Start(e.w, e.addr.Host, portString(e.addr.Port), e.onResolved)
	}
}

func (e *Endpoint) onResolved(r resolve.Result) {
	if r.Err != nil {
		e.armWait(r.Err)
		return
	}
	e.doConnect(r.IPs)
}

func (e *Endpoint) doConnect(ips []net.IP) {
	e.setState(Connecting)
	fd, sa, err := dialFD(e.addr, ips)
	if err != nil {
		e.armWait(err)
		return
	}
	e.mu.Lock()
	e.u = usock.New(fd, e.w, e)
	u := e.u
	e.mu.Unlock()
	if err := u.Connect(sa); err != nil {
		e.armWait(err)
		return
	}
}

// OnEstablished implements usock.Events: the fd is connected; begin the SP
// handshake, or (ws) the HTTP upgrade first.
func (e *Endpoint) OnEstablished() {
	switch e.addr.Kind {
	case transport.KindWS:
		e.startWS(e.parent == nil)
	case transport.KindTCPMux:
		e.startTCPMux(e.parent == nil)
	default:
		e.startSession()
	}
}

func (e *Endpoint) startTCPMux(isClient bool) {
	e.setState(Active)
	e.mu.Lock()
	e.tmUp = startTCPMuxUpgrade(e.u, e.addr, isClient, e.protoNum,
		func() { e.onTCPMuxUpgradeDone() },
		func(err error) { e.OnError(err) })
	e.mu.Unlock()
}

func (e *Endpoint) onTCPMuxUpgradeDone() {
	e.mu.Lock()
	e.tmUp = nil
	e.mu.Unlock()
	e.startSession()
}

func (e *Endpoint) startWS(isClient bool) {
	e.setState(Active)
	e.mu.Lock()
	e.wsUp = startWSUpgrade(e.u, e.addr, isClient, e.protoNum,
		func() { e.onWSUpgradeDone(isClient) },
		func(err error) { e.OnError(err) })
	e.mu.Unlock()
}

func (e *Endpoint) onWSUpgradeDone(isClient bool) {
	e.mu.Lock()
	e.wsUp = nil
	sess := newWSSession(e.u, isClient, sessAdapter{e})
	e.sess = sess
	e.pipe = sock.NewPipe(sess.(sock.Sender), e.nextPipeID())
	e.mu.Unlock()
	sess.Start()
}

func (e *Endpoint) startSession() {
	e.setState(Active)
	e.mu.Lock()
	sess := newStreamSession(e.u, e.protoNum, sessionKind(e.addr), e.rcvmax, sessAdapter{e})
	e.sess = sess
	e.pipe = sock.NewPipe(sess.(sock.Sender), e.nextPipeID())
	e.mu.Unlock()
	sess.Start()
}

// OnAccepted implements usock.Events: the listener hands off a freshly
// accepted connection to a newly spawned child endpoint.
func (e *Endpoint) OnAccepted(nu *usock.Usock) {
	child := &Endpoint{w: e.w, sockObj: e.sockObj, addr: e.addr, protoNum: e.protoNum, rcvmax: e.rcvmax, parent: e}
	child.u = nu
	nu.SetEvents(child)
	if err := nu.Activate(); err != nil {
		gridlog.Errorf("gridmq: activating accepted connection on %s: %v", e.addr.Raw, err)
	}
}

// OnSent implements usock.Events.
func (e *Endpoint) OnSent(n int) {
	e.mu.Lock()
	sess := e.sess
	e.mu.Unlock()
	if ss, ok := sess.(interface{ OnSent(int) }); ok {
		ss.OnSent(n)
	}
}

// OnReceived implements usock.Events: buf==nil/oobFD==-1 is usock's
// level-triggered "data is available, go pull it" poke (spec §4.4); the
// session always reads through u.Recv itself, so both cases just resume
// its pump.
func (e *Endpoint) OnReceived([]byte, int) {
	e.mu.Lock()
	wsUp, tmUp, sess := e.wsUp, e.tmUp, e.sess
	e.mu.Unlock()
	switch {
	case wsUp != nil:
		wsUp.pump()
	case tmUp != nil:
		tmUp.pump()
	case sess != nil:
		sess.Pump()
	}
}

// OnError implements usock.Events: tear down and, on the connect side,
// fall back to WAITING; accepted children and listeners are just dropped.
func (e *Endpoint) OnError(err error) {
	gridlog.Errorf("gridmq: endpoint %s: %v", e.addr.Raw, err)
	e.teardownPipe()
	if e.parent != nil || e.isBind {
		e.setState(Stopped)
		return
	}
	e.armWait(err)
}

// OnAcceptError implements usock.Events on the listener: log and leave the
// listener armed; the worker naturally retries once an fd frees up.
func (e *Endpoint) OnAcceptError(err error) {
	gridlog.Errorf("gridmq: accept on %s: %v", e.addr.Raw, err)
}

// OnDone implements usock.Events: the fd is fully closed.
func (e *Endpoint) OnDone() {
	if e.State() == StoppingUsock {
		e.armWait(nil)
	}
}

func (e *Endpoint) teardownPipe() {
	e.mu.Lock()
	p := e.pipe
	u := e.u
	ic := e.inprocConn
	e.pipe, e.sess, e.inprocConn = nil, nil, nil
	e.state = StoppingSession
	e.mu.Unlock()
	if p != nil {
		e.sockObj.RemovePipe(p)
	}
	if u != nil {
		e.setState(StoppingUsock)
		u.Stop()
		return
	}
	if ic != nil {
		inproc.Global().Remove(ic)
		if e.parent == nil && !e.isBind {
			// a connecting inproc Conn with no bound peer just waits again,
			// re-registered in the directory for the next Bind at this addr.
			e.startConnectInproc()
		}
	}
}

// armWait transitions a connect-side endpoint to WAITING and arms the next
// backoff attempt; a no-op for accepted children and listeners, which have
// no retry cycle.
func (e *Endpoint) armWait(err error) {
	if e.parent != nil || e.isBind {
		return
	}
	e.setState(Waiting)
	e.bo.Arm(e.w, e.startResolve)
}

// sessAdapter implements session.Events/session-package Events, translating
// the shared frame-delivery callbacks into Endpoint-specific names so they
// don't collide with usock.Events' differently-shaped OnSent/OnDone.
type sessAdapter struct{ e *Endpoint }

func (a sessAdapter) OnActive() {
	a.e.bo.Reset()
	a.e.mu.Lock()
	p := a.e.pipe
	a.e.mu.Unlock()
	p.Start()
	if err := a.e.sockObj.AddPipe(p); err != nil {
		a.e.teardownPipe()
	}
}

func (a sessAdapter) OnSent() {
	a.e.mu.Lock()
	p := a.e.pipe
	a.e.mu.Unlock()
	if p == nil {
		return
	}
	p.OnSent()
	a.e.sockObj.NotifyOut(p)
}

func (a sessAdapter) OnReceived(m chunk.Message) {
	a.e.mu.Lock()
	p := a.e.pipe
	a.e.mu.Unlock()
	if p == nil {
		return
	}
	p.OnReceived(m)
	a.e.sockObj.NotifyIn(p)
}

func (a sessAdapter) OnError(err error) { a.e.OnError(err) }
func (a sessAdapter) OnDone()           { a.e.teardownPipe() }

func (e *Endpoint) setState(s State) {
	e.mu.Lock()
	e.state = s
	e.mu.Unlock()
}

func (e *Endpoint) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

func (e *Endpoint) nextPipeID() uint64 {
	e.pipeSeq++
	return e.pipeSeq
}

// Close tears the endpoint down: cancels a pending resolve/backoff and
// stops any live usock.
func (e *Endpoint) Close() {
	if e.resolveR != nil {
		e.resolveR.Cancel()
	}
	if e.bo != nil {
		e.bo.Cancel()
	}
	e.mu.Lock()
	u, listener, ic := e.u, e.listener, e.inprocConn
	e.mu.Unlock()
	if u != nil {
		u.Stop()
	}
	if listener != nil {
		listener.Stop()
	}
	if ic != nil {
		inproc.Global().Remove(ic)
	}
}

func sessionKind(a transport.Addr) session.Kind {
	if a.Kind == transport.KindIPC {
		return session.KindIPC
	}
	return session.KindStream
}

func portString(p int) string {
	if p == 0 {
		return "0"
	}
	return itoa(p)
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var b [20]byte
	i := len(b)
	for n > 0 {
		i--
		b[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		b[i] = '-'
	}
	return string(b[i:])
}
