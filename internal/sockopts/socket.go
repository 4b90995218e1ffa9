//go:build linux

// Package sockopts is the socket factory: it creates TCP sockets in the
// target's family (non-blocking for the connect scan, blocking for the
// banner grabber) and applies the options both need. UDP sockets are not
// created here. Modeled on an
// AsyncScanner::set_socket_options/NetworkUtils pairing, realized in Go
// with golang.org/x/sys/unix rather than cgo/syscall numbers by hand.
package sockopts

import (
	"fmt"
	"net"
	"time"

	"golang.org/x/sys/unix"

	"github.com/richkmeli/portscanner/internal/scanconfig"
)

// NewNonblockingTCPSocket creates a non-blocking TCP socket in the given
// family and applies SO_REUSEADDR, TCP_NODELAY, and send/recv timeouts
// equal to timeout. Socket creation failure is a per-port transient
// error — callers fall through to PortStatus Unknown.
func NewNonblockingTCPSocket(family scanconfig.IPVersion, timeout time.Duration) (fd int, err error) {
	domain := unix.AF_INET
	if family == scanconfig.IPv6 {
		domain = unix.AF_INET6
	}

	fd, err = unix.Socket(domain, unix.SOCK_STREAM, unix.IPPROTO_TCP)
	if err != nil {
		return -1, fmt.Errorf("sockopts: socket: %w", err)
	}

	if err := unix.SetNonblock(fd, true); err != nil {
		unix.Close(fd)
		return -1, fmt.Errorf("sockopts: set nonblock: %w", err)
	}

	if err := applyCommonOptions(fd, timeout); err != nil {
		unix.Close(fd)
		return -1, err
	}

	return fd, nil
}

// NewBlockingTCPSocket creates a blocking TCP socket for the banner
// grabber's second, fresh connection, with send/recv timeouts equal to
// the banner grab's own timeout.
func NewBlockingTCPSocket(family scanconfig.IPVersion, timeout time.Duration) (fd int, err error) {
	domain := unix.AF_INET
	if family == scanconfig.IPv6 {
		domain = unix.AF_INET6
	}

	fd, err = unix.Socket(domain, unix.SOCK_STREAM, unix.IPPROTO_TCP)
	if err != nil {
		return -1, fmt.Errorf("sockopts: socket: %w", err)
	}

	if err := applyCommonOptions(fd, timeout); err != nil {
		unix.Close(fd)
		return -1, err
	}

	return fd, nil
}

func applyCommonOptions(fd int, timeout time.Duration) error {
	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		return fmt.Errorf("sockopts: SO_REUSEADDR: %w", err)
	}
	if err := unix.SetsockoptInt(fd, unix.IPPROTO_TCP, unix.TCP_NODELAY, 1); err != nil {
		return fmt.Errorf("sockopts: TCP_NODELAY: %w", err)
	}

	tv := unix.NsecToTimeval(timeout.Nanoseconds())
	if err := unix.SetsockoptTimeval(fd, unix.SOL_SOCKET, unix.SO_SNDTIMEO, &tv); err != nil {
		return fmt.Errorf("sockopts: SO_SNDTIMEO: %w", err)
	}
	if err := unix.SetsockoptTimeval(fd, unix.SOL_SOCKET, unix.SO_RCVTIMEO, &tv); err != nil {
		return fmt.Errorf("sockopts: SO_RCVTIMEO: %w", err)
	}
	return nil
}

// ConnectResult is the outcome of a single non-blocking connect(2) call.
type ConnectResult int

const (
	// ConnectInProgress is the expected outcome for a non-blocking
	// connect: the kernel has accepted the attempt and it must be awaited
	// via the readiness multiplexer.
	ConnectInProgress ConnectResult = iota
	ConnectImmediateSuccess
	ConnectImmediateFailure
)

// Connect issues a non-blocking connect(2) to address:port in the given
// family. "In progress" is the expected path; immediate success/failure
// are both possible (notably on loopback).
func Connect(fd int, address string, port uint16, family scanconfig.IPVersion) (ConnectResult, error) {
	var sa unix.Sockaddr
	if family == scanconfig.IPv6 {
		ip := net.ParseIP(address)
		if ip == nil {
			return ConnectImmediateFailure, fmt.Errorf("sockopts: invalid IPv6 address %q", address)
		}
		var addr16 [16]byte
		copy(addr16[:], ip.To16())
		sa = &unix.SockaddrInet6{Port: int(port), Addr: addr16}
	} else {
		ip := net.ParseIP(address)
		if ip == nil || ip.To4() == nil {
			return ConnectImmediateFailure, fmt.Errorf("sockopts: invalid IPv4 address %q", address)
		}
		var addr4 [4]byte
		copy(addr4[:], ip.To4())
		sa = &unix.SockaddrInet4{Port: int(port), Addr: addr4}
	}

	err := unix.Connect(fd, sa)
	if err == nil {
		return ConnectImmediateSuccess, nil
	}
	if err == unix.EINPROGRESS {
		return ConnectInProgress, nil
	}
	return ConnectImmediateFailure, err
}

// SocketError reads SO_ERROR on fd — the classification primitive for a
// write-readiness event.
func SocketError(fd int) (int, error) {
	return unix.GetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_ERROR)
}

// CloseFD closes a descriptor. The multiplexer never closes descriptors
// itself — the connection table's owner does, via this.
func CloseFD(fd int) error {
	return unix.Close(fd)
}
