// Package scanconfig defines the scanner's configuration surface: target,
// port set, timeouts, concurrency, and the feature gates that the engine
// and service-detection pipeline read.
package scanconfig

import (
	"fmt"
	"time"
)

// IPVersion selects the socket family used for a scan.
type IPVersion int

const (
	IPAuto IPVersion = iota
	IPv4
	IPv6
)

func (v IPVersion) String() string {
	switch v {
	case IPv4:
		return "ipv4"
	case IPv6:
		return "ipv6"
	default:
		return "auto"
	}
}

// ParseIPVersion maps a CLI/config string to an IPVersion.
func ParseIPVersion(s string) (IPVersion, error) {
	switch s {
	case "", "auto":
		return IPAuto, nil
	case "4", "ipv4":
		return IPv4, nil
	case "6", "ipv6":
		return IPv6, nil
	default:
		return IPAuto, fmt.Errorf("unknown ip_version %q", s)
	}
}

// ScanType selects which probe strategy the engine runs for a batch.
// Only TCPConnect and UDP are fully implemented; SYNStealth always
// reports an explicit unimplemented-without-privileges outcome.
type ScanType int

const (
	TCPConnect ScanType = iota
	SYNStealth
	UDP
)

func (t ScanType) String() string {
	switch t {
	case SYNStealth:
		return "syn"
	case UDP:
		return "udp"
	default:
		return "connect"
	}
}

// ParseScanType maps a CLI/config string to a ScanType.
func ParseScanType(s string) (ScanType, error) {
	switch s {
	case "", "connect", "tcp":
		return TCPConnect, nil
	case "syn", "stealth":
		return SYNStealth, nil
	case "udp":
		return UDP, nil
	default:
		return TCPConnect, fmt.Errorf("unknown scan type %q", s)
	}
}

const (
	MinPort = 1
	MaxPort = 65535

	MinTimeoutMillis = 1
	MaxTimeoutMillis = 60000

	MinConcurrency = 1
	MaxConcurrency = 2000

	// DefaultBannerTimeout is the banner grab's own deadline, distinct
	// from the per-connect timeout.
	DefaultBannerTimeout = 2000 * time.Millisecond
)

// ScanConfig is the read-only input to a single scan. Build one with Default
// (or decode one from a config file, see internal/configfile) and never
// mutate it after a scan starts.
type ScanConfig struct {
	Target string
	Ports  []uint16

	TimeoutMillis int
	Concurrency   int

	ServiceDetection bool
	BannerGrabbing   bool

	IPVersion IPVersion
	ScanType  ScanType

	OutputFormat string // "text" | "json" | "xml"
	OutputFile   string

	Verbose bool
}

// Timeout returns the per-connect deadline as a time.Duration.
func (c ScanConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutMillis) * time.Millisecond
}

// Default returns a ScanConfig with a reference default port list and
// timing parameters (mirroring a ConfigManager::create_default_config
// style default), useful as a starting point before CLI flags or a
// config file override fields.
func Default() ScanConfig {
	return ScanConfig{
		Target:           "127.0.0.1",
		Ports:            []uint16{21, 22, 23, 25, 53, 80, 110, 111, 135, 139, 143, 443, 993, 995, 1723, 3306, 3389, 5432, 5900, 8080},
		TimeoutMillis:    3000,
		Concurrency:      100,
		ServiceDetection: true,
		BannerGrabbing:   true,
		IPVersion:        IPAuto,
		ScanType:         TCPConnect,
		OutputFormat:     "text",
	}
}

// Validate enforces the domain's valid ranges. A validation failure is
// fatal: the caller must not start a scan.
func (c ScanConfig) Validate() error {
	if c.Target == "" {
		return fmt.Errorf("scanconfig: target is required")
	}
	if len(c.Ports) == 0 {
		return fmt.Errorf("scanconfig: port set is empty")
	}
	for _, p := range c.Ports {
		if p < MinPort {
			return fmt.Errorf("scanconfig: port %d below minimum %d", p, MinPort)
		}
	}
	if c.TimeoutMillis < MinTimeoutMillis || c.TimeoutMillis > MaxTimeoutMillis {
		return fmt.Errorf("scanconfig: timeout %dms out of range [%d,%d]", c.TimeoutMillis, MinTimeoutMillis, MaxTimeoutMillis)
	}
	if c.Concurrency < MinConcurrency || c.Concurrency > MaxConcurrency {
		return fmt.Errorf("scanconfig: concurrency %d out of range [%d,%d]", c.Concurrency, MinConcurrency, MaxConcurrency)
	}
	switch c.OutputFormat {
	case "", "text", "json", "xml":
	default:
		return fmt.Errorf("scanconfig: unsupported output format %q", c.OutputFormat)
	}
	return nil
}
