package transport

import "encoding/binary"

// EncodeTCPMuxService builds the connect-side TCPMux service-selection
// frame of spec §4.5: a big-endian u16 length prefix followed by the raw
// service name, e.g. "pair.sp.nanomsg.org".
func EncodeTCPMuxService(service string) []byte {
	b := make([]byte, 2+len(service))
	binary.BigEndian.PutUint16(b, uint16(len(service)))
	copy(b[2:], service)
	return b
}

// tcpmuxStatusOK is the single status byte TCPMux sends back once the
// requested service is accepted; any other value fails the connection.
const tcpmuxStatusOK = 0x00

// ParseTCPMuxStatus checks the connect-side status byte returned after the
// service-selection frame.
func ParseTCPMuxStatus(b byte) bool { return b == tcpmuxStatusOK }

// bindTCPMuxGreeting is the fixed three-byte reply the bind side sends once
// it has matched an inbound service name, mirroring the historical tcpmux
// "+\r\n" greeting.
var bindTCPMuxGreeting = []byte("+\r\n")

// BindTCPMuxGreeting returns the accept-side greeting bytes.
func BindTCPMuxGreeting() []byte { return bindTCPMuxGreeting }
