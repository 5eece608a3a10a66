package runtime

import (
	"encoding/binary"
	"time"

	"github.com/bizzaro-jhunt/gridmq-sub000/grideerr"
	"github.com/bizzaro-jhunt/gridmq-sub000/opt"
)

// SetOpt implements spec §6's `setsockopt`: LevelSocket options are applied
// directly to the Socket/sock.Socket fields they name; every other level is
// forwarded to the protocol plugin's own SetOpt (REQ_RESEND_IVL,
// SUB_SUBSCRIBE/UNSUBSCRIBE, SURVEYOR_DEADLINE). Per-transport option
// levels (LevelIPC/LevelTCP/LevelWS) have no sink in this port — gridmq's
// endpoints don't carry a per-transport option struct the way spec.md's C
// endpoints do — and return ErrNoProtoOpt, same as an unrecognized name.
func (s *Socket) SetOpt(level, name int, val []byte) error {
	switch level {
	case opt.LevelIPC, opt.LevelTCP, opt.LevelWS:
		return grideerr.ErrNoProtoOpt
	}
	if level != opt.LevelSocket {
		return s.sockObj.Protocol().SetOpt(level, name, val)
	}
	switch name {
	case opt.Linger:
		d, ok := decodeMS(val)
		if !ok {
			return grideerr.ErrInvalid
		}
		s.sockObj.SetLinger(d)
		return nil
	case opt.SndTimeo:
		d, ok := decodeMS(val)
		if !ok {
			return grideerr.ErrInvalid
		}
		s.sockObj.SetSndTimeo(d)
		return nil
	case opt.RcvTimeo:
		d, ok := decodeMS(val)
		if !ok {
			return grideerr.ErrInvalid
		}
		s.sockObj.SetRcvTimeo(d)
		return nil
	case opt.ReconnectIvl:
		d, ok := decodeMS(val)
		if !ok {
			return grideerr.ErrInvalid
		}
		s.mu.Lock()
		s.reconnIvl = d
		s.mu.Unlock()
		return nil
	case opt.ReconnectIvlMax:
		d, ok := decodeMS(val)
		if !ok {
			return grideerr.ErrInvalid
		}
		s.mu.Lock()
		s.reconnIvlMax = d
		s.mu.Unlock()
		return nil
	case opt.RcvMaxSize:
		n, ok := decodeI64(val)
		if !ok {
			return grideerr.ErrInvalid
		}
		s.mu.Lock()
		s.rcvmax = n
		s.mu.Unlock()
		s.sockObj.SetRcvMax(n)
		return nil
	case opt.SndBuf:
		n, ok := decodeI64(val)
		if !ok {
			return grideerr.ErrInvalid
		}
		s.sockObj.SetSndBuf(n)
		return nil
	case opt.RcvBuf:
		n, ok := decodeI64(val)
		if !ok {
			return grideerr.ErrInvalid
		}
		s.sockObj.SetRcvBuf(n)
		return nil
	case opt.SocketName:
		s.sockObj.SetName(string(val))
		return nil
	default:
		return grideerr.ErrNoProtoOpt
	}
}

// GetOpt implements spec §6's `getsockopt`, mirroring SetOpt's dispatch.
func (s *Socket) GetOpt(level, name int) ([]byte, error) {
	if level != opt.LevelSocket {
		return s.sockObj.Protocol().GetOpt(level, name)
	}
	switch name {
	case opt.Protocol:
		return encodeU16(s.protoNum), nil
	case opt.RcvMaxSize:
		s.mu.Lock()
		n := s.rcvmax
		s.mu.Unlock()
		return encodeI64(n), nil
	case opt.SndBuf:
		return encodeI64(s.sockObj.SndBuf()), nil
	case opt.RcvBuf:
		return encodeI64(s.sockObj.RcvBuf()), nil
	case opt.SocketName:
		return []byte(s.sockObj.Name()), nil
	default:
		return nil, grideerr.ErrNoProtoOpt
	}
}

func decodeMS(val []byte) (time.Duration, bool) {
	n, ok := decodeI64(val)
	if !ok {
		return 0, false
	}
	return time.Duration(n) * time.Millisecond, true
}

func decodeI64(val []byte) (int64, bool) {
	if len(val) != 8 {
		return 0, false
	}
	return int64(binary.BigEndian.Uint64(val)), true
}

func encodeI64(n int64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(n))
	return b
}

func encodeU16(n uint16) []byte {
	b := make([]byte, 2)
	binary.BigEndian.PutUint16(b, n)
	return b
}
