package transport

import "golang.org/x/sys/unix"

// DialIPC/ListenIPC build an AF_UNIX stream socket for spec §4.5's ipc
// transport.
func DialIPC(a Addr) (int, unix.Sockaddr, error) {
	fd, err := NewNonblockingSocket(unix.AF_UNIX, unix.SOCK_STREAM, 0)
	if err != nil {
		return -1, nil, err
	}
	return fd, &unix.SockaddrUnix{Name: a.Path}, nil
}

func ListenIPC(a Addr) (int, unix.Sockaddr, error) {
	unix.Unlink(a.Path) // stale socket file from a previous, uncleanly-stopped bind
	fd, err := NewNonblockingSocket(unix.AF_UNIX, unix.SOCK_STREAM, 0)
	if err != nil {
		return -1, nil, err
	}
	return fd, &unix.SockaddrUnix{Name: a.Path}, nil
}
