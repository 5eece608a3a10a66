package session

import (
	"crypto/rand"

	"github.com/bizzaro-jhunt/gridmq-sub000/chunk"
	"github.com/bizzaro-jhunt/gridmq-sub000/grideerr"
	"github.com/bizzaro-jhunt/gridmq-sub000/usock"
	"github.com/bizzaro-jhunt/gridmq-sub000/wire"
)

// WSSession frames SP messages as RFC 6455 WebSocket frames (spec §4.8),
// replacing §4.7's binary preamble with the caller-completed HTTP upgrade
// (see transport/ws.go) for protocol agreement.
type WSSession struct {
	u        *usock.Usock
	ev       Events
	isClient bool
	msgType  wire.WSOpcode // default outbound opcode, from WS_MSG_TYPE

	hdrBuf    []byte
	payload   []byte
	textParts []byte
	closed    bool
}

func NewWS(u *usock.Usock, isClient bool, msgType wire.WSOpcode, ev Events) *WSSession {
	return &WSSession{u: u, ev: ev, isClient: isClient, msgType: msgType, hdrBuf: make([]byte, 14)}
}

// Start assumes the HTTP upgrade already completed; it goes straight active.
func (s *WSSession) Start() {
	s.ev.OnActive()
	s.readLoop()
}

// Pump resumes frame reassembly once more inbound bytes are available,
// mirroring Session.Pump for the WebSocket framing variant.
func (s *WSSession) Pump() {
	if s.closed {
		return
	}
	s.readLoop()
}

// Send wraps m's body as a single, unfragmented frame of the configured
// message type, masking it when acting as the client side.
func (s *WSSession) Send(m chunk.Message) error {
	payload := append(append([]byte{}, m.Sphdr.Bytes()...), m.Body.Bytes()...)
	var key [4]byte
	if s.isClient {
		key = maskKey()
		wire.MaskWS(payload, key)
	}
	hdr := wire.EncodeWSHeader(s.msgType, true, uint64(len(payload)), s.isClient, key)
	return s.u.Send(append(hdr, payload...))
}

func (s *WSSession) OnSent(int) { s.ev.OnSent() }

// readLoop pulls and reassembles frames one at a time; called again by the
// owning pipe each time more bytes are available on u.
func (s *WSSession) readLoop() {
	for {
		h, ok, err := s.readHeader()
		if err != nil {
			s.handleErr(err)
			return
		}
		if !ok {
			return
		}
		if s.isClient == h.Masked {
			// server must see MASK=1 from the client; client must never see
			// a masked frame from the server.
			s.fail(wire.WSCloseProtocolError, "mask policy violation")
			return
		}
		body := make([]byte, h.Len)
		if !s.readFull(body) {
			return
		}
		if h.Masked {
			wire.MaskWS(body, h.MaskKey)
		}
		if h.Opcode.IsControl() {
			s.handleControl(h.Opcode, body)
			continue
		}
		if h.Opcode == wire.WSText || h.Opcode == wire.WSContinuation {
			s.textParts = append(s.textParts, body...)
			if h.Fin {
				if err := wire.ValidateUTF8Incremental(s.textParts, true); err != nil {
					s.fail(wire.WSCloseInvalidData, err.Error())
					return
				}
				s.deliver(s.textParts)
				s.textParts = nil
				continue
			}
			if err := wire.ValidateUTF8Incremental(s.textParts, false); err != nil {
				s.fail(wire.WSCloseInvalidData, err.Error())
				return
			}
			continue
		}
		// binary, possibly fragmented
		s.payload = append(s.payload, body...)
		if h.Fin {
			s.deliver(s.payload)
			s.payload = nil
		}
	}
}

func (s *WSSession) deliver(body []byte) {
	s.ev.OnReceived(chunk.InitChunk(body))
}

func (s *WSSession) handleControl(op wire.WSOpcode, body []byte) {
	switch op {
	case wire.WSClose:
		s.closed = true
		s.ev.OnDone()
	case wire.WSPing:
		hdr := wire.EncodeWSHeader(wire.WSPong, true, uint64(len(body)), s.isClient, maskKey())
		s.u.Send(append(hdr, body...))
	case wire.WSPong:
	}
}

func (s *WSSession) fail(code uint16, reason string) {
	payload := wire.CloseFrame(code, reason)
	var key [4]byte
	if s.isClient {
		key = maskKey()
		wire.MaskWS(payload, key)
	}
	hdr := wire.EncodeWSHeader(wire.WSClose, true, uint64(len(payload)), s.isClient, key)
	s.u.Send(append(hdr, payload...))
	s.closed = true
	s.ev.OnError(grideerr.ErrInvalid)
}

func (s *WSSession) handleErr(err error) {
	if grideerr.IsErrWouldBlock(err) {
		return
	}
	s.ev.OnError(err)
}

// readHeader and readFull are simplified synchronous reads over the usock's
// batch buffer; Recv returning 0 with no error is treated as "try later".
func (s *WSSession) readHeader() (wire.WSHeader, bool, error) {
	buf := make([]byte, 2)
	if !s.readFull(buf) {
		return wire.WSHeader{}, false, nil
	}
	// buf[1]'s length field tells us how many extra bytes the full header
	// needs; ParseWSHeader re-validates once we have them all.
	extra := 0
	switch buf[1] & 0x7F {
	case 126:
		extra = 2
	case 127:
		extra = 8
	}
	if buf[1]&0x80 != 0 {
		extra += 4
	}
	rest := make([]byte, extra)
	if extra > 0 && !s.readFull(rest) {
		return wire.WSHeader{}, false, nil
	}
	h, _, ok := wire.ParseWSHeader(append(buf, rest...))
	return h, ok, nil
}

func (s *WSSession) readFull(p []byte) bool {
	off := 0
	for off < len(p) {
		n, err := s.u.Recv(p[off:])
		if err != nil {
			s.handleErr(err)
			return false
		}
		if n == 0 {
			return false
		}
		off += n
	}
	return true
}

func maskKey() [4]byte {
	var k [4]byte
	_, _ = rand.Read(k[:])
	return k
}
