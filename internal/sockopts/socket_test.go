//go:build linux

package sockopts

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/richkmeli/portscanner/internal/scanconfig"
)

func TestNewNonblockingTCPSocket_AppliesOptionsWithoutError(t *testing.T) {
	fd, err := NewNonblockingTCPSocket(scanconfig.IPv4, 500*time.Millisecond)
	require.NoError(t, err)
	defer CloseFD(fd)

	errno, err := SocketError(fd)
	require.NoError(t, err)
	require.Zero(t, errno, "SO_ERROR on a fresh socket should be 0")
}

func TestConnect_LoopbackOpenPort(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()
	go func() {
		for {
			c, err := l.Accept()
			if err != nil {
				return
			}
			c.Close()
		}
	}()

	port := uint16(l.Addr().(*net.TCPAddr).Port)
	fd, err := NewNonblockingTCPSocket(scanconfig.IPv4, time.Second)
	require.NoError(t, err)
	defer CloseFD(fd)

	res, connErr := Connect(fd, "127.0.0.1", port, scanconfig.IPv4)
	switch res {
	case ConnectImmediateSuccess:
		// expected on a fast loopback accept
	case ConnectInProgress:
		// also acceptable: the handshake hadn't completed by the time
		// connect(2) returned
	default:
		t.Fatalf("unexpected connect result %v (err=%v)", res, connErr)
	}
}

func TestConnect_InvalidAddressIsImmediateFailure(t *testing.T) {
	fd, err := NewNonblockingTCPSocket(scanconfig.IPv4, time.Second)
	require.NoError(t, err)
	defer CloseFD(fd)

	res, err := Connect(fd, "not-an-ip", 80, scanconfig.IPv4)
	require.Equal(t, ConnectImmediateFailure, res)
	require.Error(t, err, "expected an error for an unparseable address")
}
