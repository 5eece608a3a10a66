// Package runtime is gridmq's single exported entry point: the Go-idiomatic
// analogue of spec §6's flat C-like surface (socket/bind/connect/shutdown/
// close/send/recv/setsockopt/getsockopt/term), returning *Socket handles
// instead of integer file descriptors. Grounded on xact/xreg/xreg.go's
// registry-of-live-things idiom (a process-wide table behind one mutex,
// entries created/removed under it, short critical sections) generalized
// from xactions to sockets, per spec §4.10/§5's "global state guarded by a
// single process-wide mutex, held for the shortest possible interval"
// policy.
package runtime

import (
	"sync"
	"time"

	"github.com/bizzaro-jhunt/gridmq-sub000/chunk"
	"github.com/bizzaro-jhunt/gridmq-sub000/ep"
	"github.com/bizzaro-jhunt/gridmq-sub000/gridcfg"
	"github.com/bizzaro-jhunt/gridmq-sub000/grideerr"
	"github.com/bizzaro-jhunt/gridmq-sub000/proto"
	"github.com/bizzaro-jhunt/gridmq-sub000/sock"
	"github.com/bizzaro-jhunt/gridmq-sub000/stat"
	"github.com/bizzaro-jhunt/gridmq-sub000/transport"
	"github.com/bizzaro-jhunt/gridmq-sub000/wire"
	"github.com/bizzaro-jhunt/gridmq-sub000/worker"
	"github.com/bizzaro-jhunt/gridmq-sub000/wpool"
)

const (
	defaultReconnectIvl    = 100 * time.Millisecond
	defaultReconnectIvlMax = 0 // 0 means "no backoff growth", matching spec.md's default
)

// Runtime owns the worker pool and the table of live sockets: spec §4.10's
// init-on-first-socket / term-on-last-socket-closes lifecycle, scoped to
// one Runtime value rather than a package-level singleton so tests can run
// several independent runtimes in one process.
type Runtime struct {
	mu      sync.Mutex
	pool    *wpool.Pool
	sockets map[int]*Socket
	nextFD  int
	zombie  bool
	pusher  *statsPusher
}

// NewRuntime starts workers (workers<=0 means one per CPU, per spec §5) and
// returns an empty socket table ready for Socket.
func NewRuntime(workers int) (*Runtime, error) {
	pool, err := wpool.New(workers)
	if err != nil {
		return nil, err
	}
	return &Runtime{pool: pool, sockets: make(map[int]*Socket)}, nil
}

// Socket creates a new SP socket of the given protocol number (spec §6's
// `socket(domain, protocol)`), assigning it a worker round-robin from the
// pool and fixing that assignment for the socket's lifetime (spec §4.2's
// wpool contract).
func (r *Runtime) Socket(protoNum uint16) (*Socket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.zombie {
		return nil, grideerr.ErrTerm
	}
	w := r.pool.Assign()
	plugin, err := newProtocol(protoNum, w)
	if err != nil {
		return nil, err
	}
	r.nextFD++
	s := &Socket{
		fd:           r.nextFD,
		rt:           r,
		w:            w,
		sockObj:      sock.New(plugin),
		protoNum:     protoNum,
		rcvmax:       -1,
		reconnIvl:    defaultReconnectIvl,
		reconnIvlMax: defaultReconnectIvlMax,
		endpoints:    make(map[int]*ep.Endpoint),
		stats:        stat.NewTracker("", gridcfg.Rom.Hostname(), gridcfg.Rom.ApplicationName()),
	}
	r.sockets[s.fd] = s
	return s, nil
}

func newProtocol(protoNum uint16, w *worker.Worker) (sock.Protocol, error) {
	switch protoNum {
	case wire.ProtoPair:
		return proto.NewPair(), nil
	case wire.ProtoPub:
		return proto.NewPub(), nil
	case wire.ProtoSub:
		return proto.NewSub(), nil
	case wire.ProtoReq:
		return proto.NewReq(w), nil
	case wire.ProtoRep:
		return proto.NewRep(), nil
	case wire.ProtoSurveyor:
		return proto.NewSurveyor(w), nil
	case wire.ProtoRespondent:
		return proto.NewRespondent(), nil
	default:
		return nil, grideerr.ErrProtoNotSupp
	}
}

// closeSocket removes fd from the table; called by Socket.Close once its
// endpoints and pipes have been torn down.
func (r *Runtime) closeSocket(fd int) {
	r.mu.Lock()
	delete(r.sockets, fd)
	r.mu.Unlock()
}

// Term zombifies every open socket (spec §5's "grid_term(): zombifies all
// sockets so blocked sends/recvs return ETERM") and stops the worker pool.
// Safe to call more than once.
func (r *Runtime) Term() {
	r.mu.Lock()
	if r.zombie {
		r.mu.Unlock()
		return
	}
	r.zombie = true
	socks := make([]*Socket, 0, len(r.sockets))
	for _, s := range r.sockets {
		socks = append(socks, s)
	}
	pusher := r.pusher
	r.pusher = nil
	r.mu.Unlock()

	if pusher != nil {
		pusher.stop()
	}
	for _, s := range socks {
		s.Close()
	}
	r.pool.Stop()
}

// Socket is the Go handle for one SP socket: a protocol plugin behind
// sock.Socket, its fixed worker, and its set of endpoints (spec §4.10).
type Socket struct {
	mu  sync.Mutex
	fd  int
	rt  *Runtime
	w   *worker.Worker
	sockObj *sock.Socket

	protoNum     uint16
	rcvmax       int64
	reconnIvl    time.Duration
	reconnIvlMax time.Duration

	endpoints map[int]*ep.Endpoint
	nextEID   int
	closed    bool

	stats *stat.Tracker
}

func (s *Socket) FD() int { return s.fd }

// Bind starts a listening endpoint at addr (spec §6's `bind(fd, addr)`),
// returning the endpoint id used by Shutdown.
func (s *Socket) Bind(addr string) (int, error) {
	a, err := transport.Parse(addr)
	if err != nil {
		return 0, err
	}
	e := ep.NewBind(s.w, s.sockObj, a, s.protoNum, s.rcvmax)
	return s.addEndpoint(e)
}

// Connect starts a connecting endpoint at addr (spec §6's
// `connect(fd, addr)`), returning the endpoint id used by Shutdown.
func (s *Socket) Connect(addr string) (int, error) {
	a, err := transport.Parse(addr)
	if err != nil {
		return 0, err
	}
	s.mu.Lock()
	reconnIvl, reconnIvlMax := s.reconnIvl, s.reconnIvlMax
	s.mu.Unlock()
	e := ep.New(s.w, s.sockObj, a, s.protoNum, s.rcvmax, reconnIvl, reconnIvlMax)
	return s.addEndpoint(e)
}

func (s *Socket) addEndpoint(e *ep.Endpoint) (int, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return 0, grideerr.ErrTerm
	}
	s.nextEID++
	eid := s.nextEID
	s.endpoints[eid] = e
	s.mu.Unlock()

	if err := e.Start(); err != nil {
		s.mu.Lock()
		delete(s.endpoints, eid)
		s.mu.Unlock()
		s.stats.Inc("CURRENT_EP_ERRORS", 1)
		return 0, err
	}
	return eid, nil
}

// Shutdown tears down one endpoint by id (spec §6's `shutdown(fd, eid)`).
func (s *Socket) Shutdown(eid int) error {
	s.mu.Lock()
	e, ok := s.endpoints[eid]
	if ok {
		delete(s.endpoints, eid)
	}
	s.mu.Unlock()
	if !ok {
		return grideerr.NewErrNotFound("endpoint %d", eid)
	}
	e.Close()
	return nil
}

// Send blocks until the protocol plugin accepts m, honors SNDTIMEO, or
// returns EAGAIN immediately if dontwait is set (spec §6's `send`/`sendmsg`
// with the DONTWAIT flag folded in rather than kept as a separate flags
// argument, since Go has no flags-bitmask idiom for this).
func (s *Socket) Send(m chunk.Message, dontwait bool) error {
	return s.sockObj.Send(m, dontwait)
}

// SendBytes wraps b as a body-only message (spec's `send(fd, buf, len)`).
func (s *Socket) SendBytes(b []byte, dontwait bool) error {
	return s.Send(chunk.InitChunk(b), dontwait)
}

// Recv blocks until a message is available, honors RCVTIMEO, or returns
// EAGAIN immediately if dontwait is set (spec §6's `recv`/`recvmsg`).
func (s *Socket) Recv(dontwait bool) (chunk.Message, error) {
	return s.sockObj.Recv(dontwait)
}

// RecvBytes is Recv plus an owned copy of the body, for callers that don't
// want to manage Chunk lifetimes themselves.
func (s *Socket) RecvBytes(dontwait bool) ([]byte, error) {
	m, err := s.Recv(dontwait)
	if err != nil {
		return nil, err
	}
	defer m.Term()
	out := make([]byte, m.Body.Len())
	copy(out, m.Body.Bytes())
	return out, nil
}

// Close tears down every endpoint, marks the socket a zombie, and removes
// it from the runtime's table (spec §5's close sequence; the linger/
// hold-count wait is approximated by sock.Socket.Close's synchronous
// teardown since gridmq's Go pipes have no separate in-flight-operation
// refcount to drain).
func (s *Socket) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	eps := make([]*ep.Endpoint, 0, len(s.endpoints))
	for _, e := range s.endpoints {
		eps = append(eps, e)
	}
	s.endpoints = nil
	s.mu.Unlock()

	for _, e := range eps {
		e.Close()
	}
	s.sockObj.Close()
	s.rt.closeSocket(s.fd)
}

func (s *Socket) Stats() *stat.Tracker { return s.stats }
