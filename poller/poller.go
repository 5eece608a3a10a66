// Package poller is the L1 OS-readiness notifier of spec §4.3: one
// implementation (epoll, Linux) behind a small interface, since spec says
// the poller's backend is "ordinary" and ungrounded by any pack repo except
// for ehrlich-b-go-ublk's direct use of golang.org/x/sys for raw kernel
// interfacing, which is the ecosystem package this implementation is built
// on instead of a hand-rolled syscall wrapper.
package poller

// Kind is the readiness direction reported by Event.
type Kind int

const (
	KindIn Kind = iota
	KindOut
	KindErr
)

// Poller is the abstract capability spec §4.3 names. Implementations
// register OS file descriptors under an opaque caller-chosen handle and
// report readiness against that handle, never the raw fd, so callers never
// need to track an fd-to-owner mapping themselves.
type Poller interface {
	Add(fd int, handle uintptr) error
	Remove(handle uintptr) error
	SetIn(handle uintptr) error
	ResetIn(handle uintptr) error
	SetOut(handle uintptr) error
	ResetOut(handle uintptr) error

	// Wait blocks up to timeoutMs (-1 = infinite) and returns the number of
	// pending events now retrievable via Event.
	Wait(timeoutMs int) (int, error)

	// Event drains one pending event. ok is false once the batch from the
	// last Wait is exhausted.
	Event() (kind Kind, handle uintptr, ok bool)

	Close() error
}
