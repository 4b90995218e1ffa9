package engine

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/richkmeli/portscanner/internal/conntable"
	"github.com/richkmeli/portscanner/internal/multiplex"
	"github.com/richkmeli/portscanner/internal/resolver"
	"github.com/richkmeli/portscanner/internal/result"
	"github.com/richkmeli/portscanner/internal/scanconfig"
	"github.com/richkmeli/portscanner/internal/sockopts"
)

// scanTCPConnect is the connect-scan algorithm in full: batch the port
// set, open non-blocking connections, drive the multiplexer, classify by
// SO_ERROR or deadline expiry, and emit one result per port.
func (e *Engine) scanTCPConnect(ctx context.Context, cfg scanconfig.ScanConfig, target resolver.Target, progress ProgressFunc, log zerolog.Logger) (*result.Sink, error) {
	progress = progressOrNoop(progress)

	mux, err := e.newMux()
	if err != nil {
		return nil, err
	}
	defer mux.Close()

	sink := result.NewSink(len(cfg.Ports))
	timeout := cfg.Timeout()
	total := len(cfg.Ports)

	batchSize := cfg.Concurrency
	for start := 0; start < len(cfg.Ports); start += batchSize {
		if isCancelled(ctx) {
			log.Debug().Msg("scan cancelled before batch start")
			break
		}

		end := start + batchSize
		if end > len(cfg.Ports) {
			end = len(cfg.Ports)
		}
		batch := cfg.Ports[start:end]

		e.runBatch(ctx, mux, cfg, target, batch, timeout, sink, progress, total, log)

		if e.metrics != nil {
			e.metrics.IncBatches()
		}
	}

	return sink, nil
}

func isCancelled(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return true
	default:
		return false
	}
}

// runBatch opens one non-blocking connection per port in the batch, then
// drives the multiplexer until the batch's connection table is empty (FD
// usage bounded at len(batch) <= concurrency throughout).
func (e *Engine) runBatch(
	ctx context.Context,
	mux multiplex.Multiplexer,
	cfg scanconfig.ScanConfig,
	target resolver.Target,
	batch []uint16,
	timeout time.Duration,
	sink *result.Sink,
	progress ProgressFunc,
	total int,
	log zerolog.Logger,
) {
	table := conntable.New(len(batch))

	for _, port := range batch {
		if isCancelled(ctx) {
			break
		}
		e.openConnection(mux, table, cfg, target, port, timeout, sink, progress, total, log)
	}

	if e.metrics != nil {
		e.metrics.SetActiveConnections(table.Len())
	}

	for table.Len() > 0 {
		if isCancelled(ctx) {
			closeRemaining(mux, table, log)
			return
		}

		now := time.Now()
		pollTimeout := table.NearestDeadline(timeout, now)
		if pollTimeout < 0 {
			pollTimeout = 0
		}

		events, err := mux.Wait(pollTimeout)
		if err != nil {
			log.Warn().Err(err).Msg("multiplexer wait failed")
			continue
		}

		if len(events) == 0 {
			// Wait returned zero events: at least the nearest deadline has
			// passed, but with records at different start times not every
			// remaining one necessarily has.
			e.expireDue(mux, table, time.Now(), timeout, sink, progress, total, log)
		} else {
			for _, ev := range events {
				e.classifyEvent(mux, table, ev, cfg, target, sink, progress, total, log)
			}
		}

		if e.metrics != nil {
			e.metrics.SetActiveConnections(table.Len())
		}
	}
}

// openConnection issues one non-blocking connect(). A connect() that
// returns "in progress" is the expected path and is registered with the
// multiplexer for write-readiness; immediate success/failure are
// classified and emitted on the spot without ever entering the table.
func (e *Engine) openConnection(
	mux multiplex.Multiplexer,
	table *conntable.Table,
	cfg scanconfig.ScanConfig,
	target resolver.Target,
	port uint16,
	timeout time.Duration,
	sink *result.Sink,
	progress ProgressFunc,
	total int,
	log zerolog.Logger,
) {
	fd, err := sockopts.NewNonblockingTCPSocket(target.Family, timeout)
	if err != nil {
		log.Debug().Err(err).Uint16("port", port).Msg("socket creation failed")
		e.emit(sink, progress, total, result.ScanResult{
			Port: port, Status: result.Unknown, IPVersion: target.Family, Error: err.Error(),
		})
		return
	}

	start := time.Now()
	connResult, connErr := sockopts.Connect(fd, target.Address, port, target.Family)

	switch connResult {
	case sockopts.ConnectImmediateSuccess:
		e.emitOpen(fd, port, start, cfg, target, sink, progress, total)
	case sockopts.ConnectImmediateFailure:
		closeFD(fd)
		_ = connErr
		e.emit(sink, progress, total, result.ScanResult{
			Port: port, Status: result.Closed, ResponseTime: time.Since(start), IPVersion: target.Family,
		})
	default: // ConnectInProgress
		if err := mux.Register(fd, true); err != nil {
			closeFD(fd)
			log.Warn().Err(err).Uint16("port", port).Msg("multiplexer register failed")
			e.emit(sink, progress, total, result.ScanResult{
				Port: port, Status: result.Unknown, IPVersion: target.Family, Error: err.Error(),
			})
			return
		}
		table.Insert(fd, port, start)
	}
}

// classifyEvent classifies a write-readiness event: read SO_ERROR, map to
// Open/Closed, or Closed directly on EPOLLERR/EPOLLHUP. Always removes
// from the multiplexer, closes the descriptor, and removes the table
// record before returning.
func (e *Engine) classifyEvent(
	mux multiplex.Multiplexer,
	table *conntable.Table,
	ev multiplex.Event,
	cfg scanconfig.ScanConfig,
	target resolver.Target,
	sink *result.Sink,
	progress ProgressFunc,
	total int,
	log zerolog.Logger,
) {
	rec, ok := table.Get(ev.FD)
	if !ok {
		return
	}
	table.Remove(ev.FD)
	_ = mux.Unregister(ev.FD)

	if ev.Error || ev.Hangup {
		closeFD(ev.FD)
		log.Debug().Uint16("port", rec.Port).Int("fd", ev.FD).Msg("classified closed via EPOLLERR/EPOLLHUP")
		e.emit(sink, progress, total, result.ScanResult{
			Port: rec.Port, Status: result.Closed, ResponseTime: time.Since(rec.StartTime), IPVersion: target.Family,
		})
		return
	}

	errno, err := sockopts.SocketError(ev.FD)
	if err != nil || errno != 0 {
		closeFD(ev.FD)
		log.Debug().Uint16("port", rec.Port).Int("fd", ev.FD).Int("errno", errno).Msg("classified closed via SO_ERROR")
		e.emit(sink, progress, total, result.ScanResult{
			Port: rec.Port, Status: result.Closed, ResponseTime: time.Since(rec.StartTime), IPVersion: target.Family,
		})
		return
	}

	log.Debug().Uint16("port", rec.Port).Int("fd", ev.FD).Msg("classified open via SO_ERROR")
	e.emitOpen(ev.FD, rec.Port, rec.StartTime, cfg, target, sink, progress, total)
}

// emitOpen closes fd, runs service detection/banner grabbing if enabled,
// and emits the Open result. The descriptor used for classification is
// never reused for banner grabbing — it is closed here.
func (e *Engine) emitOpen(
	fd int,
	port uint16,
	start time.Time,
	cfg scanconfig.ScanConfig,
	target resolver.Target,
	sink *result.Sink,
	progress ProgressFunc,
	total int,
) {
	closeFD(fd)
	responseTime := time.Since(start)

	r := result.ScanResult{
		Port: port, Status: result.Open, ResponseTime: responseTime, IPVersion: target.Family,
	}

	if cfg.ServiceDetection || cfg.BannerGrabbing {
		b, svc := detectService(target.Address, port, cfg.Target, target.Family, cfg)
		r.Banner = b
		r.Service = svc
	}

	e.emit(sink, progress, total, r)
}

// expireDue classifies every table record whose deadline has passed as of
// now as Filtered, leaving records that still have time remaining in the
// table for the next Wait. Reached when Wait returns zero events against
// a non-empty table, via conntable.Table.Expired.
func (e *Engine) expireDue(
	mux multiplex.Multiplexer,
	table *conntable.Table,
	now time.Time,
	timeout time.Duration,
	sink *result.Sink,
	progress ProgressFunc,
	total int,
	log zerolog.Logger,
) {
	for _, rec := range table.Expired(timeout, now) {
		_ = mux.Unregister(rec.FD)
		closeFD(rec.FD)
		table.Remove(rec.FD)
		log.Debug().Uint16("port", rec.Port).Int("fd", rec.FD).Msg("connection attempt expired, classifying filtered")
		e.emit(sink, progress, total, result.ScanResult{
			Port: rec.Port, Status: result.Filtered, ResponseTime: time.Since(rec.StartTime),
		})
	}
}

// closeRemaining handles cancellation mid-batch: pending records are
// closed without emitting a result for them.
func closeRemaining(mux multiplex.Multiplexer, table *conntable.Table, log zerolog.Logger) {
	for _, rec := range table.All() {
		_ = mux.Unregister(rec.FD)
		closeFD(rec.FD)
		table.Remove(rec.FD)
	}
	log.Debug().Msg("scan cancelled mid-batch, pending connections closed without results")
}

func (e *Engine) emit(sink *result.Sink, progress ProgressFunc, total int, r result.ScanResult) {
	sink.Add(r)
	if e.metrics != nil {
		e.metrics.Observe(r)
	}
	progress(sink.Len(), total)
}

func closeFD(fd int) {
	_ = sockopts.CloseFD(fd)
}
