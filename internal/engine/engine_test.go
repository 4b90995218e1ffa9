package engine

import (
	"context"
	"net"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"github.com/richkmeli/portscanner/internal/conntable"
	"github.com/richkmeli/portscanner/internal/multiplex"
	"github.com/richkmeli/portscanner/internal/resolver"
	"github.com/richkmeli/portscanner/internal/result"
	"github.com/richkmeli/portscanner/internal/scanconfig"
)

// fakeMux is a no-op Multiplexer used to unit test classification helpers
// (expireDue, closeRemaining) in isolation from the real epoll backend.
type fakeMux struct{}

func (fakeMux) Register(fd int, writable bool) error                  { return nil }
func (fakeMux) Modify(fd int, readable, writable bool) error          { return nil }
func (fakeMux) Unregister(fd int) error                               { return nil }
func (fakeMux) Wait(timeout time.Duration) ([]multiplex.Event, error) { return nil, nil }
func (fakeMux) Close() error                                          { return nil }

func newTestFD(t *testing.T) int {
	t.Helper()
	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_STREAM, 0)
	require.NoError(t, err)
	return fd
}

func TestExpireDue_ClassifiesOnlyExpiredRecords(t *testing.T) {
	table := conntable.New(2)
	fd := newTestFD(t)
	table.Insert(fd, 9999, time.Now().Add(-time.Hour))
	freshFD := newTestFD(t)
	table.Insert(freshFD, 8888, time.Now())

	e := &Engine{}
	sink := result.NewSink(1)

	e.expireDue(fakeMux{}, table, time.Now(), time.Second, sink, noopProgress, 1, zerolog.Nop())

	require.Equal(t, 1, sink.Len())
	r := sink.All()[0]
	require.Equal(t, result.Filtered, r.Status)
	require.Equal(t, uint16(9999), r.Port)
	require.Equal(t, 1, table.Len(), "the record within its deadline should remain in the table")

	_ = unix.Close(freshFD)
}

func TestCloseRemaining_EmptiesTableWithoutEmitting(t *testing.T) {
	table := conntable.New(2)
	table.Insert(newTestFD(t), 1, time.Now())
	table.Insert(newTestFD(t), 2, time.Now())

	closeRemaining(fakeMux{}, table, zerolog.Nop())

	require.Equal(t, 0, table.Len())
}

func TestScan_PreCancelledReturnsNoResults(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cfg := scanconfig.ScanConfig{
		Target:        "127.0.0.1",
		Ports:         []uint16{1, 2, 3},
		TimeoutMillis: 1000,
		Concurrency:   10,
	}
	target := resolver.Target{Address: "127.0.0.1", Family: scanconfig.IPv4}

	eng := New(Options{Logger: zerolog.Nop()})
	sink, err := eng.Scan(ctx, cfg, target, nil)
	require.NoError(t, err)
	require.Equal(t, 0, sink.Len())
}

func TestScan_LoopbackOpenPort(t *testing.T) {
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
	cfg := scanconfig.ScanConfig{
		Target:        "127.0.0.1",
		Ports:         []uint16{port},
		TimeoutMillis: 1000,
		Concurrency:   1,
	}
	target := resolver.Target{Address: "127.0.0.1", Family: scanconfig.IPv4}

	eng := New(Options{Logger: zerolog.Nop()})
	sink, err := eng.Scan(context.Background(), cfg, target, nil)
	require.NoError(t, err)
	require.Equal(t, 1, sink.Len())

	r := sink.All()[0]
	require.Equal(t, result.Open, r.Status)
	require.LessOrEqual(t, r.ResponseTime, 500*time.Millisecond, "response time looks too slow for loopback")
}

func TestScan_LoopbackClosedPort(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := uint16(l.Addr().(*net.TCPAddr).Port)
	l.Close()

	cfg := scanconfig.ScanConfig{
		Target:        "127.0.0.1",
		Ports:         []uint16{port},
		TimeoutMillis: 1000,
		Concurrency:   1,
	}
	target := resolver.Target{Address: "127.0.0.1", Family: scanconfig.IPv4}

	eng := New(Options{Logger: zerolog.Nop()})
	sink, err := eng.Scan(context.Background(), cfg, target, nil)
	require.NoError(t, err)
	require.Equal(t, 1, sink.Len())
	require.Equal(t, result.Closed, sink.All()[0].Status)
}

func TestScan_BatchingAcrossMultipleBatches(t *testing.T) {
	const n = 5
	var ports []uint16
	var listeners []net.Listener
	for i := 0; i < n; i++ {
		l, err := net.Listen("tcp", "127.0.0.1:0")
		require.NoError(t, err)
		listeners = append(listeners, l)
		go func(l net.Listener) {
			for {
				c, err := l.Accept()
				if err != nil {
					return
				}
				c.Close()
			}
		}(l)
		ports = append(ports, uint16(l.Addr().(*net.TCPAddr).Port))
	}
	defer func() {
		for _, l := range listeners {
			l.Close()
		}
	}()

	cfg := scanconfig.ScanConfig{
		Target:        "127.0.0.1",
		Ports:         ports,
		TimeoutMillis: 1000,
		Concurrency:   2, // forces 3 batches for 5 ports
	}
	target := resolver.Target{Address: "127.0.0.1", Family: scanconfig.IPv4}

	eng := New(Options{Logger: zerolog.Nop()})
	progressCalls := 0
	sink, err := eng.Scan(context.Background(), cfg, target, func(completed, total int) {
		progressCalls++
		require.Equal(t, n, total)
	})
	require.NoError(t, err)
	require.Equal(t, n, sink.Len())
	require.Equal(t, n, progressCalls)
	require.Equal(t, n, sink.CountByStatus(result.Open))

	seen := make(map[uint16]bool, n)
	for _, r := range sink.All() {
		seen[r.Port] = true
	}
	for _, p := range ports {
		require.True(t, seen[p], "missing result for port %d", p)
	}
}

// openFDCount returns the current process's open descriptor count via
// /proc/self/fd, the same primitive a Linux-only peak-descriptor test
// needs to bound engine FD usage independent of any particular socket
// implementation detail.
func openFDCount() (int, error) {
	entries, err := os.ReadDir("/proc/self/fd")
	if err != nil {
		return 0, err
	}
	return len(entries), nil
}

func TestScan_BatchingBoundsPeakDescriptorCount(t *testing.T) {
	const totalPorts = 40
	const concurrency = 4

	var ports []uint16
	var listeners []net.Listener
	for i := 0; i < totalPorts; i++ {
		l, err := net.Listen("tcp", "127.0.0.1:0")
		require.NoError(t, err)
		listeners = append(listeners, l)
		go func(l net.Listener) {
			for {
				c, err := l.Accept()
				if err != nil {
					return
				}
				c.Close()
			}
		}(l)
		ports = append(ports, uint16(l.Addr().(*net.TCPAddr).Port))
	}
	defer func() {
		for _, l := range listeners {
			l.Close()
		}
	}()

	baseline, err := openFDCount()
	require.NoError(t, err)

	cfg := scanconfig.ScanConfig{
		Target:        "127.0.0.1",
		Ports:         ports,
		TimeoutMillis: 1000,
		Concurrency:   concurrency,
	}
	target := resolver.Target{Address: "127.0.0.1", Family: scanconfig.IPv4}
	eng := New(Options{Logger: zerolog.Nop()})

	done := make(chan struct{})
	var mu sync.Mutex
	peak := 0
	go func() {
		ticker := time.NewTicker(100 * time.Microsecond)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				n, err := openFDCount()
				if err != nil {
					continue
				}
				mu.Lock()
				if delta := n - baseline; delta > peak {
					peak = delta
				}
				mu.Unlock()
			}
		}
	}()

	sink, err := eng.Scan(context.Background(), cfg, target, nil)
	close(done)
	require.NoError(t, err)
	require.Equal(t, totalPorts, sink.Len())

	mu.Lock()
	defer mu.Unlock()
	require.LessOrEqual(t, peak, concurrency, "engine-owned descriptor count should never exceed concurrency across batches")
}

func TestScan_CancelMidBatchStopsWithoutError(t *testing.T) {
	cfg := scanconfig.ScanConfig{
		Target:        "192.0.2.1", // TEST-NET-1, reserved for documentation, never responds
		Ports:         []uint16{1, 2, 3},
		TimeoutMillis: 300,
		Concurrency:   3,
	}
	target := resolver.Target{Address: "192.0.2.1", Family: scanconfig.IPv4}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	eng := New(Options{Logger: zerolog.Nop()})
	start := time.Now()
	sink, err := eng.Scan(ctx, cfg, target, nil)
	elapsed := time.Since(start)

	require.NoError(t, err)
	require.Less(t, sink.Len(), len(cfg.Ports), "a mid-batch cancellation should abandon pending attempts without classifying them")
	require.Less(t, elapsed, 2*cfg.Timeout(), "cancellation should be observed well before a second full connect deadline")
}

func TestScan_InvalidConfigIsFatal(t *testing.T) {
	eng := New(Options{Logger: zerolog.Nop()})
	cfg := scanconfig.ScanConfig{Target: "127.0.0.1", Ports: nil}
	target := resolver.Target{Address: "127.0.0.1", Family: scanconfig.IPv4}

	sink, err := eng.Scan(context.Background(), cfg, target, nil)
	require.Error(t, err, "empty port set should be a fatal config error")
	require.Nil(t, sink, "no partial results on a fatal config error")
}
