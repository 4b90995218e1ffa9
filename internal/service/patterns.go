// Package service is the pattern matcher: ordered, port-keyed
// ServicePattern lists with first-match-wins semantics, plus protocol
// analyzers for HTTP/SSH/FTP that can override a generic match on
// strictly higher confidence. Modeled on a SERVICE_PATTERNS table and
// ServiceDetector::match_patterns/analyze_* pairing, generalized from a
// flat substring list into an ordered, port-keyed pattern table.
package service

import (
	"strings"

	"github.com/richkmeli/portscanner/internal/result"
)

// Pattern is a ServicePattern: a literal prefix to look for in a banner,
// the service name and confidence to report on a hit, and an optional
// extraction rule for version/product.
type Pattern struct {
	LiteralPrefix string
	ServiceName   string
	Confidence    float64
	Extract       func(banner string) (version, product string)
}

// Patterns is the built-in table, grouped by port, first match wins.
// Covers the well-known service ports (21, 22, 25, 53, 80, 110, 143, 443,
// 3306, 5432, 6379, 27017).
var Patterns = map[uint16][]Pattern{
	21: {
		{LiteralPrefix: "220", ServiceName: "ftp", Confidence: 0.8, Extract: extractFTPGreeting},
	},
	22: {
		{LiteralPrefix: "SSH-", ServiceName: "ssh", Confidence: 0.9, Extract: extractSSHVersionProduct},
	},
	25: {
		{LiteralPrefix: "220", ServiceName: "smtp", Confidence: 0.8},
	},
	53: {
		{LiteralPrefix: "", ServiceName: "dns", Confidence: 0.7},
	},
	80: {
		{LiteralPrefix: "HTTP/", ServiceName: "http", Confidence: 0.9, Extract: extractHTTPServerHeader},
	},
	110: {
		{LiteralPrefix: "+OK", ServiceName: "pop3", Confidence: 0.8},
	},
	143: {
		{LiteralPrefix: "* OK", ServiceName: "imap", Confidence: 0.8},
	},
	443: {
		{LiteralPrefix: "HTTP/", ServiceName: "https", Confidence: 0.9, Extract: extractHTTPServerHeader},
	},
	3306: {
		{LiteralPrefix: "", ServiceName: "mysql", Confidence: 0.7},
	},
	5432: {
		{LiteralPrefix: "", ServiceName: "postgresql", Confidence: 0.7},
	},
	6379: {
		{LiteralPrefix: "", ServiceName: "redis", Confidence: 0.7},
	},
	27017: {
		{LiteralPrefix: "", ServiceName: "mongodb", Confidence: 0.7},
	},
}

// wellKnownNames is the fallback used when no pattern matches, standing
// in for an OS getservbyport lookup — Go's standard library has no
// portable port->name table, so this carries the commonly-served subset
// directly.
var wellKnownNames = map[uint16]string{
	20: "ftp-data", 21: "ftp", 22: "ssh", 23: "telnet", 25: "smtp",
	53: "domain", 80: "http", 110: "pop3", 111: "rpcbind", 135: "msrpc",
	139: "netbios-ssn", 143: "imap", 443: "https", 445: "microsoft-ds",
	993: "imaps", 995: "pop3s", 1723: "pptp", 3306: "mysql", 3389: "ms-wbt-server",
	5432: "postgresql", 5900: "vnc", 6379: "redis", 8080: "http-alt", 27017: "mongodb",
}

// WellKnownName returns the OS-style well-known name for port, or "" if
// none is known.
func WellKnownName(port uint16) string {
	return wellKnownNames[port]
}

// Match runs the full pipeline end to end: literal-prefix pattern match,
// protocol analyzer override on strictly higher confidence, then
// well-known-port fallback at 0.5 confidence. It is a pure, deterministic
// function of (port, banner).
func Match(port uint16, banner string) result.ServiceInfo {
	info := matchPatterns(port, banner)

	if analyzed, ok := analyzeForPort(port, banner); ok {
		if analyzed.Confidence > info.Confidence {
			info = analyzed
		}
	}

	if info.Name == "" {
		if name := WellKnownName(port); name != "" {
			info.Name = name
			info.Confidence = 0.5
		}
	}

	return info
}

func matchPatterns(port uint16, banner string) result.ServiceInfo {
	for _, p := range Patterns[port] {
		if p.LiteralPrefix == "" || strings.Contains(banner, p.LiteralPrefix) {
			info := result.ServiceInfo{Name: p.ServiceName, Confidence: p.Confidence}
			if p.Extract != nil {
				info.Version, info.Product = p.Extract(banner)
			}
			return info
		}
	}
	return result.ServiceInfo{}
}

func analyzeForPort(port uint16, banner string) (result.ServiceInfo, bool) {
	switch port {
	case 80, 8080, 443:
		return analyzeHTTP(banner), true
	case 22:
		return analyzeSSH(banner), true
	case 21:
		return analyzeFTP(banner), true
	default:
		return result.ServiceInfo{}, false
	}
}
