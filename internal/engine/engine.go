// Package engine is the scan engine: it orchestrates batches, drives the
// readiness multiplexer, classifies outcomes, emits results, and enforces
// cancellation. Modeled on an epoll-driven AsyncScanner (batching and
// classification) run as a single-threaded, readiness-driven event loop
// rather than a goroutine-per-port worker pool.
package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/richkmeli/portscanner/internal/banner"
	"github.com/richkmeli/portscanner/internal/metrics"
	"github.com/richkmeli/portscanner/internal/multiplex"
	"github.com/richkmeli/portscanner/internal/resolver"
	"github.com/richkmeli/portscanner/internal/result"
	"github.com/richkmeli/portscanner/internal/scanconfig"
	"github.com/richkmeli/portscanner/internal/service"
)

// ProgressFunc is invoked from the engine's own goroutine after each
// result is emitted, with (completed, total). It must be cheap and
// non-blocking — the engine never spawns a goroutine for it.
type ProgressFunc func(completed, total int)

// Stats mirrors an AsyncScanner::ScanStats shape: counters a caller can
// read after (or, via a future engine variant, during) a scan.
type Stats struct {
	TotalPorts     int
	CompletedPorts int
	OpenPorts      int
	Elapsed        time.Duration
	PortsPerSecond float64
}

// StatsFromSink derives Stats from a completed (or partially completed,
// e.g. cancelled) scan's sink, against the originally requested port count
// and elapsed wall-clock time.
func StatsFromSink(sink *result.Sink, totalPorts int, elapsed time.Duration) Stats {
	s := Stats{
		TotalPorts:     totalPorts,
		CompletedPorts: sink.Len(),
		OpenPorts:      sink.CountByStatus(result.Open),
		Elapsed:        elapsed,
	}
	if elapsed > 0 {
		s.PortsPerSecond = float64(s.CompletedPorts) / elapsed.Seconds()
	}
	return s
}

// Options configures an Engine instance. All fields are optional; a zero
// Options yields a no-op logger and no metrics.
type Options struct {
	Logger         zerolog.Logger
	Metrics        *metrics.Registry
	NewMultiplexer func() (multiplex.Multiplexer, error)
}

// Engine runs scans against one multiplexer implementation. It holds no
// per-scan state between calls to Scan — every scan is self-contained.
type Engine struct {
	logger  zerolog.Logger
	metrics *metrics.Registry
	newMux  func() (multiplex.Multiplexer, error)
}

// New builds an Engine. When opts.NewMultiplexer is nil it defaults to
// the real epoll-backed multiplexer.
func New(opts Options) *Engine {
	newMux := opts.NewMultiplexer
	if newMux == nil {
		newMux = multiplex.New
	}
	return &Engine{logger: opts.Logger, metrics: opts.Metrics, newMux: newMux}
}

// Scan produces exactly one ScanResult per port in cfg.Ports, in arrival
// order. Fatal errors (multiplexer creation, invalid config) return a nil
// sink and an error, with no partial results.
func (e *Engine) Scan(ctx context.Context, cfg scanconfig.ScanConfig, target resolver.Target, progress ProgressFunc) (*result.Sink, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("engine: %w", err)
	}

	scanID := uuid.New()
	log := e.logger.With().Str("scan_id", scanID.String()).Str("target", target.Address).Logger()

	switch cfg.ScanType {
	case scanconfig.UDP:
		return e.scanUDP(ctx, cfg, target, progress, log)
	case scanconfig.SYNStealth:
		return e.scanStealthStub(cfg, progress, log), nil
	default:
		return e.scanTCPConnect(ctx, cfg, target, progress, log)
	}
}

func noopProgress(int, int) {}

func progressOrNoop(p ProgressFunc) ProgressFunc {
	if p == nil {
		return noopProgress
	}
	return p
}

// detectService runs the service-detection pipeline for one open TCP
// port, swallowing any banner-grab failure into an empty banner.
func detectService(address string, port uint16, target string, family scanconfig.IPVersion, cfg scanconfig.ScanConfig) (string, result.ServiceInfo) {
	var b string
	if cfg.BannerGrabbing {
		b = banner.Grab(address, port, target, family, banner.DefaultTimeout)
	}

	if !cfg.ServiceDetection {
		return b, result.ServiceInfo{}
	}
	return b, service.Match(port, b)
}
