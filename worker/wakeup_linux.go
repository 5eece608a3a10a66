//go:build linux

package worker

import "golang.org/x/sys/unix"

type eventfdWakeup struct{ fd int }

func newWakeup() (Wakeup, error) {
	fd, err := unix.Eventfd(0, unix.EFD_NONBLOCK|unix.EFD_CLOEXEC)
	if err != nil {
		return nil, err
	}
	return &eventfdWakeup{fd: fd}, nil
}

func (w *eventfdWakeup) FD() int { return w.fd }

func (w *eventfdWakeup) Signal() error {
	var buf [8]byte
	buf[7] = 1
	_, err := unix.Write(w.fd, buf[:])
	if err == unix.EAGAIN {
		return nil // already signalled, counter saturated-but-pending
	}
	return err
}

func (w *eventfdWakeup) Drain() {
	var buf [8]byte
	for {
		_, err := unix.Read(w.fd, buf[:])
		if err != nil {
			return
		}
	}
}

func (w *eventfdWakeup) Close() error { return unix.Close(w.fd) }
