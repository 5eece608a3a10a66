package worker

// Wakeup is the cross-thread signal a Worker's poller waits on alongside
// ordinary fds, so Execute() can be called from any thread and still
// interrupt a blocked poller.Wait (spec §4.2).
type Wakeup interface {
	FD() int
	Signal() error
	Drain()
	Close() error
}
