// Package opt names the socket/endpoint option levels and option numbers of
// spec §6's "Socket options" table: SOL_SOCKET plus the per-protocol and
// per-transport levels. Grounded on api/apc's flat, grouped constant
// packages (options organized by owning concern rather than one giant
// enum), adapted from REST query-param names to setsockopt-style
// (level, name, value) triples.
package opt

// Levels.
const (
	LevelSocket = iota
	LevelReq
	LevelSub
	LevelSurveyor
	LevelIPC
	LevelTCP
	LevelWS
)

// SOL_SOCKET option names.
const (
	Linger = iota
	SndBuf
	RcvBuf
	SndTimeo
	RcvTimeo
	ReconnectIvl
	ReconnectIvlMax
	SndPrio
	RcvPrio
	IPv4Only
	SocketName
	RcvMaxSize
	Protocol // read-only
	Domain   // read-only
)

// GRID_REQ.
const ReqResendIvl = 0

// GRID_SUB.
const (
	SubSubscribe = iota
	SubUnsubscribe
)

// GRID_SURVEYOR.
const SurveyorDeadline = 0

// GRID_IPC.
const (
	IPCSecAttr = iota
	IPCInBufSz
	IPCOutBufSz
)

// GRID_TCP.
const TCPNoDelay = 0

// GRID_WS.
const WSMsgType = 0

// WSMsgType values.
const (
	WSMsgText   = 0x1
	WSMsgBinary = 0x2
)
