//go:build linux

package multiplex

import (
	"fmt"
	"time"

	"golang.org/x/sys/unix"
)

// Epoll is the Linux epoll-backed Multiplexer. It must support at least
// ScanConfig.Concurrency concurrent registrations; epoll has no practical
// fd-count ceiling below that.
type Epoll struct {
	fd int
}

// NewEpoll creates an epoll instance. Multiplexer creation failure is
// treated as fatal by callers.
func NewEpoll() (*Epoll, error) {
	fd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("multiplex: epoll_create1: %w", err)
	}
	return &Epoll{fd: fd}, nil
}

func eventMask(readable, writable bool) uint32 {
	var mask uint32
	if readable {
		mask |= unix.EPOLLIN
	}
	if writable {
		mask |= unix.EPOLLOUT
	}
	return mask
}

func (e *Epoll) Register(fd int, writable bool) error {
	ev := unix.EpollEvent{Events: eventMask(false, writable), Fd: int32(fd)}
	if err := unix.EpollCtl(e.fd, unix.EPOLL_CTL_ADD, fd, &ev); err != nil {
		return fmt.Errorf("multiplex: epoll_ctl add fd=%d: %w", fd, err)
	}
	return nil
}

func (e *Epoll) Modify(fd int, readable, writable bool) error {
	ev := unix.EpollEvent{Events: eventMask(readable, writable), Fd: int32(fd)}
	if err := unix.EpollCtl(e.fd, unix.EPOLL_CTL_MOD, fd, &ev); err != nil {
		return fmt.Errorf("multiplex: epoll_ctl mod fd=%d: %w", fd, err)
	}
	return nil
}

func (e *Epoll) Unregister(fd int) error {
	if err := unix.EpollCtl(e.fd, unix.EPOLL_CTL_DEL, fd, nil); err != nil {
		return fmt.Errorf("multiplex: epoll_ctl del fd=%d: %w", fd, err)
	}
	return nil
}

func (e *Epoll) Wait(timeout time.Duration) ([]Event, error) {
	timeoutMs := int(timeout / time.Millisecond)
	if timeout > 0 && timeoutMs == 0 {
		timeoutMs = 1
	}
	if timeout <= 0 {
		timeoutMs = 0
	}

	raw := make([]unix.EpollEvent, maxEvents)
	n, err := unix.EpollWait(e.fd, raw, timeoutMs)
	if err != nil {
		if err == unix.EINTR {
			return nil, nil
		}
		return nil, fmt.Errorf("multiplex: epoll_wait: %w", err)
	}

	events := make([]Event, 0, n)
	for i := 0; i < n; i++ {
		r := raw[i]
		events = append(events, Event{
			FD:       int(r.Fd),
			Writable: r.Events&unix.EPOLLOUT != 0,
			Readable: r.Events&unix.EPOLLIN != 0,
			Error:    r.Events&unix.EPOLLERR != 0,
			Hangup:   r.Events&unix.EPOLLHUP != 0,
		})
	}
	return events, nil
}

func (e *Epoll) Close() error {
	return unix.Close(e.fd)
}
