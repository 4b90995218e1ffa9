// Package multiplex wraps the OS readiness interface behind a small
// register/modify/remove/wait interface so the scan engine never touches
// epoll or poll directly. Modeled on setup_epoll/process_events over
// sys/epoll.h, realized with golang.org/x/sys/unix; the same package
// falls back to a poll(2)-backed implementation on non-Linux platforms,
// swapped in entirely at build time.
package multiplex

import "time"

// Event describes one readiness notification returned by Wait.
type Event struct {
	FD       int
	Writable bool
	Readable bool
	Error    bool
	Hangup   bool
}

// Multiplexer is the abstract readiness interface the scan engine depends
// on. Level- or edge-triggered implementations are both acceptable; the
// engine treats any writable event as terminal for a pending connect
// either way.
type Multiplexer interface {
	// Register adds fd, watching for write-readiness (the shape every
	// pending connect needs) if writable is true.
	Register(fd int, writable bool) error
	// Modify changes the watched event set for an already-registered fd.
	Modify(fd int, readable, writable bool) error
	// Unregister removes fd. The multiplexer never closes the descriptor
	// itself — ownership stays with the connection table.
	Unregister(fd int) error
	// Wait blocks for up to timeout for at least one event, or returns
	// zero events on timeout. timeout <= 0 means "return immediately."
	Wait(timeout time.Duration) ([]Event, error)
	Close() error
}

const maxEvents = 1024
