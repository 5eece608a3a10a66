package sock

import (
	"sync"
	"time"

	"github.com/bizzaro-jhunt/gridmq-sub000/chunk"
	"github.com/bizzaro-jhunt/gridmq-sub000/grideerr"
)

// EventBits mirrors spec §4.10's sockbase_vfptr.events() bitmask.
type EventBits int

const (
	EventIn EventBits = 1 << iota
	EventOut
)

// Protocol is the plugin vtable of spec §4.10: every proto/ implementation
// satisfies this.
type Protocol interface {
	Add(p *Pipe) error
	Rm(p *Pipe)
	In(p *Pipe)  // called when a pipe gains data available to receive
	Out(p *Pipe) // called when a pipe gains send capacity
	Events() EventBits
	Send(m chunk.Message) error
	Recv() (chunk.Message, error)
	SetOpt(level, name int, val []byte) error
	GetOpt(level, name int) ([]byte, error)
	ProtocolNumber() uint16
}

type State int

const (
	Init State = iota
	Active
	Zombie
	StoppingEndpoints
	StoppingPipes
	Fini
)

// Socket is spec §4.10's socket object: one protocol plugin behind a
// mutex, with readable/writable signalling and linger-aware close.
type Socket struct {
	mu    sync.Mutex
	state State
	proto Protocol
	name  string

	readable chan struct{}
	writable chan struct{}

	holdCount int
	linger    time.Duration
	sndtimeo  time.Duration
	rcvtimeo  time.Duration
	rcvmax    int64
	sndbuf    int64
	rcvbuf    int64

	reconnectIvl    time.Duration
	reconnectIvlMax time.Duration
}

// defaultBufSize is SNDBUF/RCVBUF's default, matching the 128KiB
// scalability-protocols implementations commonly default to.
const defaultBufSize = 128 * 1024

func New(proto Protocol) *Socket {
	return &Socket{
		proto:    proto,
		state:    Active,
		readable: make(chan struct{}, 1),
		writable: make(chan struct{}, 1),
		rcvmax:   -1,
		sndbuf:   defaultBufSize,
		rcvbuf:   defaultBufSize,
	}
}

func (s *Socket) Protocol() Protocol { return s.proto }

func (s *Socket) signal(ev EventBits) {
	if s.state == Zombie || s.state == Fini {
		return
	}
	if ev&EventIn != 0 {
		select {
		case s.readable <- struct{}{}:
		default:
		}
	}
	if ev&EventOut != 0 {
		select {
		case s.writable <- struct{}{}:
		default:
		}
	}
}

// AddPipe registers a newly active pipe with the protocol plugin.
func (s *Socket) AddPipe(p *Pipe) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.proto.Add(p); err != nil {
		return err
	}
	s.signal(s.proto.Events())
	return nil
}

func (s *Socket) RemovePipe(p *Pipe) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.proto.Rm(p)
	s.signal(s.proto.Events())
}

// NotifyIn/NotifyOut are called by the pipe/session layer when a pipe's
// availability changes.
func (s *Socket) NotifyIn(p *Pipe) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.proto.In(p)
	s.signal(s.proto.Events())
}

func (s *Socket) NotifyOut(p *Pipe) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.proto.Out(p)
	s.signal(s.proto.Events())
}

// Send blocks until the protocol can accept m or the deadline passes,
// returning EAGAIN when dontwait is set or the send timeout passes (spec §5's
// suspension-point rules).
func (s *Socket) Send(m chunk.Message, dontwait bool) error {
	for {
		s.mu.Lock()
		if s.state == Zombie {
			s.mu.Unlock()
			return grideerr.ErrTerm
		}
		err := s.proto.Send(m)
		ev := s.proto.Events()
		s.mu.Unlock()
		if err == nil {
			return nil
		}
		if !grideerr.IsErrWouldBlock(err) {
			return err
		}
		if dontwait {
			return grideerr.ErrAgain
		}
		s.signal(ev)
		if !s.wait(s.writable, s.sndtimeo) {
			return grideerr.ErrAgain
		}
	}
}

func (s *Socket) Recv(dontwait bool) (chunk.Message, error) {
	for {
		s.mu.Lock()
		if s.state == Zombie {
			s.mu.Unlock()
			return chunk.Message{}, grideerr.ErrTerm
		}
		m, err := s.proto.Recv()
		s.mu.Unlock()
		if err == nil {
			return m, nil
		}
		if !grideerr.IsErrWouldBlock(err) {
			return chunk.Message{}, err
		}
		if dontwait {
			return chunk.Message{}, grideerr.ErrAgain
		}
		if !s.wait(s.readable, s.rcvtimeo) {
			return chunk.Message{}, grideerr.ErrAgain
		}
	}
}

func (s *Socket) wait(ch chan struct{}, timeout time.Duration) bool {
	if timeout <= 0 {
		<-ch
		return true
	}
	select {
	case <-ch:
		return true
	case <-time.After(timeout):
		return false
	}
}

// Close marks the socket a zombie and transitions it through the
// spec §4.10 close sequence; endpoints/pipes are torn down by the caller
// (ep/ and transport/ own that), this just gates further user operations.
func (s *Socket) Close() {
	s.mu.Lock()
	s.state = Zombie
	s.mu.Unlock()
	close(s.readable)
	close(s.writable)
}

func (s *Socket) SetLinger(d time.Duration)   { s.linger = d }
func (s *Socket) SetSndTimeo(d time.Duration) { s.sndtimeo = d }
func (s *Socket) SetRcvTimeo(d time.Duration) { s.rcvtimeo = d }
func (s *Socket) SetRcvMax(n int64)           { s.rcvmax = n }
func (s *Socket) RcvMax() int64               { return s.rcvmax }
func (s *Socket) SetSndBuf(n int64)           { s.sndbuf = n }
func (s *Socket) SndBuf() int64               { return s.sndbuf }
func (s *Socket) SetRcvBuf(n int64)           { s.rcvbuf = n }
func (s *Socket) RcvBuf() int64               { return s.rcvbuf }
func (s *Socket) SetName(n string)            { s.name = n }
func (s *Socket) Name() string                { return s.name }
