package engine

import (
	"context"
	"net"
	"os"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/richkmeli/portscanner/internal/resolver"
	"github.com/richkmeli/portscanner/internal/result"
	"github.com/richkmeli/portscanner/internal/scanconfig"
)

// scanUDP is the best-effort UDP scan path: UDP has no three-way
// handshake to multiplex on write-readiness, so each probe is a short
// blocking send/recv with the connect timeout as its deadline, run
// batch_size-at-a-time via a small worker pool rather than the readiness
// multiplexer. Classification: any response -> Open, ICMP
// port-unreachable surfaced as connection-refused -> Closed, timeout ->
// Filtered.
func (e *Engine) scanUDP(ctx context.Context, cfg scanconfig.ScanConfig, target resolver.Target, progress ProgressFunc, log zerolog.Logger) (*result.Sink, error) {
	progress = progressOrNoop(progress)

	sink := result.NewSink(len(cfg.Ports))
	total := len(cfg.Ports)
	timeout := cfg.Timeout()

	batchSize := cfg.Concurrency
	for start := 0; start < len(cfg.Ports); start += batchSize {
		if isCancelled(ctx) {
			log.Debug().Msg("udp scan cancelled before batch start")
			break
		}
		end := start + batchSize
		if end > len(cfg.Ports) {
			end = len(cfg.Ports)
		}
		batch := cfg.Ports[start:end]

		results := make(chan result.ScanResult, len(batch))
		for _, port := range batch {
			go func(port uint16) {
				results <- udpProbe(ctx, target, port, timeout)
			}(port)
		}
		for i := 0; i < len(batch); i++ {
			e.emit(sink, progress, total, <-results)
		}

		if e.metrics != nil {
			e.metrics.IncBatches()
		}
	}

	return sink, nil
}

func udpProbe(ctx context.Context, target resolver.Target, port uint16, timeout time.Duration) result.ScanResult {
	r := result.ScanResult{Port: port, Status: result.Filtered, IPVersion: target.Family}

	raddr, err := net.ResolveUDPAddr("udp", net.JoinHostPort(target.Address, strconv.Itoa(int(port))))
	if err != nil {
		r.Status = result.Unknown
		r.Error = err.Error()
		return r
	}

	start := time.Now()
	conn, err := net.DialUDP("udp", nil, raddr)
	if err != nil {
		if isConnRefused(err) {
			r.Status = result.Closed
		} else {
			r.Status = result.Unknown
		}
		r.Error = err.Error()
		return r
	}
	defer conn.Close()

	if err := conn.SetDeadline(time.Now().Add(timeout)); err != nil {
		r.Error = err.Error()
		return r
	}

	if _, err := conn.Write([]byte{0x00}); err != nil {
		if isConnRefused(err) {
			r.Status = result.Closed
			r.Error = err.Error()
		}
		return r
	}

	buf := make([]byte, 4096)
	n, err := conn.Read(buf)
	r.ResponseTime = time.Since(start)

	switch {
	case err == nil && n > 0:
		r.Status = result.Open
	case isConnRefused(err):
		r.Status = result.Closed
		r.Error = err.Error()
	default:
		r.Status = result.Filtered
	}
	return r
}

func isConnRefused(err error) bool {
	if err == nil {
		return false
	}
	if se, ok := err.(*os.SyscallError); ok && se.Err == syscall.ECONNREFUSED {
		return true
	}
	if oe, ok := err.(*net.OpError); ok {
		if se, ok := oe.Err.(*os.SyscallError); ok && se.Err == syscall.ECONNREFUSED {
			return true
		}
		if errno, ok := oe.Err.(syscall.Errno); ok && errno == syscall.ECONNREFUSED {
			return true
		}
	}
	return strings.Contains(err.Error(), "connection refused")
}
