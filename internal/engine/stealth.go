package engine

import (
	"os"

	"github.com/rs/zerolog"

	"github.com/richkmeli/portscanner/internal/result"
	"github.com/richkmeli/portscanner/internal/scanconfig"
)

// scanStealthStub always returns an explicit, honest per-port result for
// the SYN stealth scan type — never a silent fallback to a connect scan.
// Modeled on a StealthScan + CanOpenRawSocket privilege check pairing.
func (e *Engine) scanStealthStub(cfg scanconfig.ScanConfig, progress ProgressFunc, log zerolog.Logger) *result.Sink {
	progress = progressOrNoop(progress)
	sink := result.NewSink(len(cfg.Ports))
	total := len(cfg.Ports)

	reason := "SYN scan requires raw-socket privileges (CAP_NET_RAW) and is not implemented in this build"
	if canOpenRawSocket() {
		reason = "SYN scan requires raw-socket packet crafting not implemented in this build"
	}
	log.Info().Str("reason", reason).Msg("stealth scan requested, reporting explicit stub result for every port")

	for _, port := range cfg.Ports {
		e.emit(sink, progress, total, result.ScanResult{
			Port: port, Status: result.Unknown, Error: reason,
		})
	}
	return sink
}

func canOpenRawSocket() bool {
	return os.Geteuid() == 0
}
