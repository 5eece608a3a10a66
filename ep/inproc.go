package ep

import (
	"github.com/bizzaro-jhunt/gridmq-sub000/chunk"
	"github.com/bizzaro-jhunt/gridmq-sub000/grideerr"
	"github.com/bizzaro-jhunt/gridmq-sub000/inproc"
	"github.com/bizzaro-jhunt/gridmq-sub000/sock"
)

// startConnectInproc registers a connecting inproc Conn, bypassing the
// usock/streamhdr/session stack entirely: spec §4.12's inproc transport
// has no wire, so there is nothing to resolve, dial, or frame.
func (e *Endpoint) startConnectInproc() {
	e.setState(Connecting)
	e.mu.Lock()
	e.inprocConn = inproc.Global().Connect(e.addr.Path, e.protoNum, e.sockObj.SndBuf(), e.sockObj.RcvBuf(), e)
	e.mu.Unlock()
}

func (e *Endpoint) startListenInproc() error {
	e.setState(Listening)
	e.mu.Lock()
	conn, err := inproc.Global().Bind(e.addr.Path, e.protoNum, e.sockObj.SndBuf(), e.sockObj.RcvBuf(), e)
	e.inprocConn = conn
	e.mu.Unlock()
	return err
}

// OnPaired implements inproc.Events: a compatible peer showed up (or was
// already waiting), so the pipe goes active immediately, pulling its
// incoming messages lazily from q instead of buffering them eagerly -
// that's what lets q's byte-size admission limit actually push back on a
// sender that outruns this endpoint's Recv calls.
func (e *Endpoint) OnPaired(q *inproc.Queue) {
	e.mu.Lock()
	conn := e.inprocConn
	e.sess = nil // inproc has no framing session; Send goes straight to conn
	sender := &inprocSender{c: conn}
	e.pipe = sock.NewPipe(sender, e.nextPipeID())
	sender.p = e.pipe
	e.pipe.SetPull(q.Pop)
	p := e.pipe
	e.mu.Unlock()
	p.Start()
	if err := e.sockObj.AddPipe(p); err != nil {
		e.teardownPipe()
		return
	}
	e.setState(Active)
}

// OnReadable implements inproc.Events: the peer pushed a message onto the
// queue this pipe pulls from; poke the pipe and socket readable without
// copying the message itself.
func (e *Endpoint) OnReadable() {
	e.mu.Lock()
	p := e.pipe
	e.mu.Unlock()
	if p == nil {
		return
	}
	p.MarkReadable()
	e.sockObj.NotifyIn(p)
}

// OnPeerGone implements inproc.Events: the peer unbound/disconnected.
func (e *Endpoint) OnPeerGone() { e.teardownPipe() }

// inprocSender adapts an *inproc.Conn to sock.Sender. Unlike a real wire
// transport, inproc.Conn.Send completes synchronously - there is no
// pending write to wait on - so the pipe's out direction is flipped back
// to ASYNC immediately rather than waiting for a later OnSent callback.
type inprocSender struct {
	c *inproc.Conn
	p *sock.Pipe
}

func (s *inprocSender) Send(m chunk.Message) error {
	if s.c == nil {
		return grideerr.ErrAgain
	}
	if err := s.c.Send(m); err != nil {
		return err
	}
	s.p.OnSent()
	return nil
}
