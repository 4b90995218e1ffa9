//go:build linux

// Package banner is the banner grabber: for an open TCP port it opens a
// second, fresh, blocking socket (deliberately not the descriptor the
// engine used to classify the port — this isolates classification from
// protocol I/O failures) and runs one of three strategies by port. Built
// on internal/sockopts the same way the connect-scan path is, rather than
// net.Dial, so both probing paths go through one socket factory.
// Modeled on a ServiceDetector::grab_http_banner/grab_tcp_banner style
// probe pairing.
package banner

import (
	"fmt"
	"time"

	"golang.org/x/sys/unix"

	"github.com/richkmeli/portscanner/internal/scanconfig"
	"github.com/richkmeli/portscanner/internal/sockopts"
)

// DefaultTimeout is the banner grab's own deadline, distinct from the
// engine's per-connect timeout.
const DefaultTimeout = 2000 * time.Millisecond

const (
	httpReadLimit   = 4096
	opaqueReadLimit = 1024
)

// Grab dials address:port fresh and runs the protocol-appropriate
// strategy. A failure at any step yields an empty banner — banner-grab
// failure is always swallowed and never changes the port's status.
func Grab(address string, port uint16, target string, family scanconfig.IPVersion, timeout time.Duration) string {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	switch port {
	case 80, 8080:
		return grabHTTP(address, port, target, family, timeout)
	default:
		// 443 behaves as opaque TCP read (no TLS handshake in this core),
		// same as every other non-HTTP port.
		return grabOpaque(address, port, family, timeout)
	}
}

// dial opens a fresh blocking socket via the shared sockopts factory and
// connects it to address:port. The send/recv timeouts applied by
// NewBlockingTCPSocket double as the connect deadline on a blocking
// socket.
func dial(address string, port uint16, family scanconfig.IPVersion, timeout time.Duration) (int, error) {
	fd, err := sockopts.NewBlockingTCPSocket(family, timeout)
	if err != nil {
		return -1, err
	}

	result, err := sockopts.Connect(fd, address, port, family)
	if result != sockopts.ConnectImmediateSuccess {
		sockopts.CloseFD(fd)
		if err == nil {
			err = fmt.Errorf("banner: connect did not complete synchronously on a blocking socket")
		}
		return -1, err
	}
	return fd, nil
}

// grabHTTP sends the fixed-format probe request and reads up to 4KiB.
func grabHTTP(address string, port uint16, target string, family scanconfig.IPVersion, timeout time.Duration) string {
	fd, err := dial(address, port, family, timeout)
	if err != nil {
		return ""
	}
	defer sockopts.CloseFD(fd)

	request := fmt.Sprintf("GET / HTTP/1.1\r\nHost: %s\r\nConnection: close\r\n\r\n", target)
	if !writeAll(fd, []byte(request)) {
		return ""
	}

	buf := make([]byte, httpReadLimit)
	n, _ := unix.Read(fd, buf) // a read error still returns whatever was read (possibly none)
	if n < 0 {
		n = 0
	}
	return string(buf[:n])
}

// grabOpaque performs an unsolicited read — the greeting-first path for
// 443 (opaque TCP, no TLS handshake in this core) and every other port.
func grabOpaque(address string, port uint16, family scanconfig.IPVersion, timeout time.Duration) string {
	fd, err := dial(address, port, family, timeout)
	if err != nil {
		return ""
	}
	defer sockopts.CloseFD(fd)

	buf := make([]byte, opaqueReadLimit)
	n, _ := unix.Read(fd, buf)
	if n < 0 {
		n = 0
	}
	return string(buf[:n])
}

// writeAll drives unix.Write to completion against SO_SNDTIMEO rather
// than looping forever on a blocking socket.
func writeAll(fd int, data []byte) bool {
	for len(data) > 0 {
		n, err := unix.Write(fd, data)
		if err != nil {
			return false
		}
		data = data[n:]
	}
	return true
}
