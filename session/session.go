// Package session implements the L9 byte-stream SP codec of spec §4.7: a
// length-prefixed framing of sphdr+body over an active usock, with the IPC
// and WebSocket variants layered on top. Grounded on transport/pdu.go's
// pdu/spdu/rpdu roff/woff cursor bookkeeping and transport/collect.go's
// idle/drain bookkeeping for a stream of discrete frames, generalized from
// HTTP object transfer to the SP message envelope.
package session

import (
	"github.com/bizzaro-jhunt/gridmq-sub000/chunk"
	"github.com/bizzaro-jhunt/gridmq-sub000/grideerr"
	"github.com/bizzaro-jhunt/gridmq-sub000/streamhdr"
	"github.com/bizzaro-jhunt/gridmq-sub000/usock"
	"github.com/bizzaro-jhunt/gridmq-sub000/wire"
)

type State int

const (
	Idle State = iota
	ProtoHdr
	StoppingStreamhdr
	Active
	ShuttingDown
	Done
	Stopping
)

// Events is implemented by the pipe that owns this session.
type Events interface {
	OnActive()
	OnSent()
	OnReceived(m chunk.Message)
	OnError(err error)
	OnDone()
}

// Kind selects a per-transport framing variant.
type Kind int

const (
	KindStream Kind = iota // tcp, tcpmux, inproc-over-bytes
	KindIPC                // ipc: one extra frame-type prefix byte
)

// Session drives one active usock through the streamhdr handshake and then
// the length-prefixed SP frame codec until the peer closes or errors.
type Session struct {
	u     *usock.Usock
	ev    Events
	kind  Kind
	rcvmax int64 // RCVMAXSIZE; -1 = unlimited

	hs    *streamhdr.Handshake
	state State

	// outbound
	sendHdr [8]byte
	sendIPC [1]byte
	sending bool

	// inbound
	phase    recvPhase
	inHdr    [8]byte
	inHdrOff int
	ipcByte  [1]byte
	ipcRead  bool
	bodyLen  int64
	body     chunk.Chunk
	bodyOff  int
}

// recvPhase tracks which part of a frame Pump should resume reading,
// since a non-blocking Recv can return EAGAIN partway through any of them.
type recvPhase int

const (
	phaseIPCByte recvPhase = iota
	phaseHeader
	phaseBody
)

func New(u *usock.Usock, localProto uint16, kind Kind, rcvmax int64, ev Events) *Session {
	s := &Session{u: u, ev: ev, kind: kind, rcvmax: rcvmax}
	s.hs = streamhdr.New(u, localProto, hsAdapter{s})
	return s
}

type hsAdapter struct{ s *Session }

func (a hsAdapter) OnHandshakeOK()          { a.s.onHandshakeOK() }
func (a hsAdapter) OnHandshakeError(e error) { a.s.ev.OnError(e) }

// Start begins the streamhdr handshake (spec §4.7 IDLE -> PROTOHDR).
func (s *Session) Start() {
	s.state = ProtoHdr
	s.hs.Start()
}

func (s *Session) onHandshakeOK() {
	s.state = Active
	s.ev.OnActive()
	s.beginRecvHeader()
}

// Send frames m with an 8-byte length prefix (and, for KindIPC, a leading
// frame-type byte) and issues a single usock.Send.
func (s *Session) Send(m chunk.Message) error {
	n := uint64(m.Len())
	wire.PutLength(s.sendHdr[:], n)
	buf := make([]byte, 0, 1+8+int(n))
	if s.kind == KindIPC {
		buf = append(buf, wire.IPCFrameNormal)
	}
	buf = append(buf, s.sendHdr[:]...)
	buf = append(buf, m.Sphdr.Bytes()...)
	buf = append(buf, m.Body.Bytes()...)
	s.sending = true
	return s.u.Send(buf)
}

// OnSent implements usock.Events' send half when the pipe routes callbacks
// through the session.
func (s *Session) OnSent(n int) {
	if s.state == ProtoHdr {
		s.hs.OnSent(n)
		return
	}
	s.sending = false
	s.ev.OnSent()
}

func (s *Session) beginRecvHeader() {
	s.inHdrOff = 0
	s.ipcRead = false
	if s.kind == KindIPC {
		s.phase = phaseIPCByte
	} else {
		s.phase = phaseHeader
	}
	s.pumpRecvHeader()
}

// Pump resumes whichever recv phase was in flight when the last Recv
// returned EAGAIN; the pipe calls this each time the underlying usock
// signals more inbound data is available.
func (s *Session) Pump() {
	if s.state == ProtoHdr {
		s.hs.Feed()
		return
	}
	if s.state != Active {
		return
	}
	if s.phase == phaseBody {
		s.pumpRecvBody()
		return
	}
	s.pumpRecvHeader()
}

func (s *Session) pumpRecvHeader() {
	if s.kind == KindIPC && !s.ipcRead {
		n, err := s.u.Recv(s.ipcByte[:])
		if err != nil {
			s.handleRecvErr(err)
			return
		}
		if n == 0 {
			return
		}
		if s.ipcByte[0] != wire.IPCFrameNormal {
			s.ev.OnError(errBadFrameType{s.ipcByte[0]})
			return
		}
		s.ipcRead = true
		s.phase = phaseHeader
	}
	for s.inHdrOff < 8 {
		n, err := s.u.Recv(s.inHdr[s.inHdrOff:])
		if err != nil {
			s.handleRecvErr(err)
			return
		}
		if n == 0 {
			return
		}
		s.inHdrOff += n
	}
	s.bodyLen = int64(wire.GetLength(s.inHdr[:]))
	if s.rcvmax >= 0 && s.bodyLen > s.rcvmax {
		s.ev.OnError(grideerr.ErrInvalid)
		return
	}
	if s.bodyLen == 0 {
		s.deliver(chunk.Chunk{})
		return
	}
	s.body = chunk.New(int(s.bodyLen))
	s.bodyOff = 0
	s.phase = phaseBody
	s.pumpRecvBody()
}

func (s *Session) pumpRecvBody() {
	buf := s.body.Bytes()
	for int64(s.bodyOff) < s.bodyLen {
		n, err := s.u.Recv(buf[s.bodyOff:])
		if err != nil {
			s.handleRecvErr(err)
			return
		}
		if n == 0 {
			return
		}
		s.bodyOff += n
	}
	s.deliver(s.body)
}

func (s *Session) deliver(body chunk.Chunk) {
	s.ev.OnReceived(chunk.Message{Body: body})
	s.beginRecvHeader()
}

func (s *Session) handleRecvErr(err error) {
	if grideerr.IsErrWouldBlock(err) {
		return
	}
	s.ev.OnError(err)
}

func (s *Session) State() State { return s.state }

type errBadFrameType struct{ b byte }

func (e errBadFrameType) Error() string { return "gridmq: bad ipc frame type" }
