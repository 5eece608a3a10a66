//go:build !linux

package poller

import "errors"

// New is unimplemented on non-Linux targets: spec §4.3 treats the poller
// backend as an ordinary platform detail and the retrieval pack grounds only
// one concrete backend (epoll, via golang.org/x/sys/unix).
func New(int) (Poller, error) {
	return nil, errors.New("gridmq/poller: no backend for this platform (epoll only)")
}
