// Package result holds the scan's output data model: PortStatus,
// ServiceInfo, ScanResult, and the append-only Sink that the engine emits
// into.
package result

import (
	"sort"
	"time"

	"github.com/richkmeli/portscanner/internal/scanconfig"
)

// PortStatus is the terminal classification of a single scan attempt.
type PortStatus int

const (
	Unknown PortStatus = iota
	Open
	Closed
	Filtered
	OpenFiltered
)

func (s PortStatus) String() string {
	switch s {
	case Open:
		return "open"
	case Closed:
		return "closed"
	case Filtered:
		return "filtered"
	case OpenFiltered:
		return "open|filtered"
	default:
		return "unknown"
	}
}

// ServiceInfo is the service-detection pipeline's output for an open port.
type ServiceInfo struct {
	Name       string
	Product    string
	Version    string
	ExtraInfo  string
	Confidence float64 // in [0.0, 1.0]
}

// ScanResult is immutable once emitted by the engine.
type ScanResult struct {
	Port         uint16
	Status       PortStatus
	ResponseTime time.Duration
	Service      ServiceInfo
	Banner       string
	IPVersion    scanconfig.IPVersion
	Error        string
}

// Sink is an append-only, ordered collection of ScanResult. It is not
// concurrency-safe by design: the engine is single-threaded on the hot
// path and is the only writer.
type Sink struct {
	results []ScanResult
}

// NewSink returns an empty Sink with capacity for n results.
func NewSink(n int) *Sink {
	return &Sink{results: make([]ScanResult, 0, n)}
}

// Add appends a result. Results are kept in arrival (completion) order,
// not port order — ordering by port is a consumer concern.
func (s *Sink) Add(r ScanResult) {
	s.results = append(s.results, r)
}

// All returns the results in arrival order. The returned slice must not be
// mutated by callers.
func (s *Sink) All() []ScanResult {
	return s.results
}

// Len returns the number of results collected so far.
func (s *Sink) Len() int {
	return len(s.results)
}

// CountByStatus returns the number of results with the given status.
func (s *Sink) CountByStatus(status PortStatus) int {
	n := 0
	for _, r := range s.results {
		if r.Status == status {
			n++
		}
	}
	return n
}

// OpenPorts returns the subset of results classified Open, in arrival
// order.
func (s *Sink) OpenPorts() []ScanResult {
	var out []ScanResult
	for _, r := range s.results {
		if r.Status == Open {
			out = append(out, r)
		}
	}
	return out
}

// SortedByPort returns a copy of the results ordered by ascending port
// number — the ordering the output formatters use.
func (s *Sink) SortedByPort() []ScanResult {
	out := append([]ScanResult(nil), s.results...)
	sort.Slice(out, func(i, j int) bool { return out[i].Port < out[j].Port })
	return out
}
