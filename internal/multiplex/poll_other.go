//go:build !linux

package multiplex

import (
	"fmt"
	"time"

	"golang.org/x/sys/unix"
)

// Poll is the poll(2)-backed Multiplexer used on every platform this
// package supports other than Linux. unix.Poll takes the full watched-fd
// set on every call rather than holding kernel-side state the way epoll
// does, so Poll keeps that set itself and rebuilds the pollfd slice on
// each Wait. Not concurrency-safe — the engine is its only caller,
// always from its own goroutine.
type Poll struct {
	watched map[int]int16
}

// NewPoll constructs a Poll multiplexer. It never fails, but returns an
// error for symmetry with NewEpoll so callers can treat multiplexer
// construction uniformly.
func NewPoll() (*Poll, error) {
	return &Poll{watched: make(map[int]int16)}, nil
}

func pollMask(readable, writable bool) int16 {
	var mask int16
	if readable {
		mask |= unix.POLLIN
	}
	if writable {
		mask |= unix.POLLOUT
	}
	return mask
}

func (p *Poll) Register(fd int, writable bool) error {
	p.watched[fd] = pollMask(false, writable)
	return nil
}

func (p *Poll) Modify(fd int, readable, writable bool) error {
	if _, ok := p.watched[fd]; !ok {
		return fmt.Errorf("multiplex: modify unregistered fd=%d", fd)
	}
	p.watched[fd] = pollMask(readable, writable)
	return nil
}

func (p *Poll) Unregister(fd int) error {
	delete(p.watched, fd)
	return nil
}

func (p *Poll) Wait(timeout time.Duration) ([]Event, error) {
	if len(p.watched) == 0 {
		return nil, nil
	}

	fds := make([]unix.PollFd, 0, len(p.watched))
	for fd, mask := range p.watched {
		fds = append(fds, unix.PollFd{Fd: int32(fd), Events: mask})
	}

	timeoutMs := int(timeout / time.Millisecond)
	if timeout > 0 && timeoutMs == 0 {
		timeoutMs = 1
	}
	if timeout <= 0 {
		timeoutMs = 0
	}

	n, err := unix.Poll(fds, timeoutMs)
	if err != nil {
		if err == unix.EINTR {
			return nil, nil
		}
		return nil, fmt.Errorf("multiplex: poll: %w", err)
	}
	if n == 0 {
		return nil, nil
	}

	events := make([]Event, 0, n)
	for _, pfd := range fds {
		if pfd.Revents == 0 {
			continue
		}
		events = append(events, Event{
			FD:       int(pfd.Fd),
			Writable: pfd.Revents&unix.POLLOUT != 0,
			Readable: pfd.Revents&unix.POLLIN != 0,
			Error:    pfd.Revents&unix.POLLERR != 0,
			Hangup:   pfd.Revents&unix.POLLHUP != 0,
		})
	}
	return events, nil
}

func (p *Poll) Close() error {
	p.watched = nil
	return nil
}
