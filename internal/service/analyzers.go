package service

import (
	"strings"

	"github.com/richkmeli/portscanner/internal/result"
)

// analyzeHTTP is the HTTP analyzer rule: name "http", confidence 0.8; if
// a Server: header is present, extract it as product and raise
// confidence to 0.9.
func analyzeHTTP(banner string) result.ServiceInfo {
	info := result.ServiceInfo{Name: "http", Confidence: 0.8}
	if product := serverHeaderValue(banner); product != "" {
		info.Product = product
		info.Confidence = 0.9
	}
	return info
}

func serverHeaderValue(banner string) string {
	const marker = "Server:"
	pos := strings.Index(banner, marker)
	if pos < 0 {
		return ""
	}
	start := pos + len(marker)
	rest := banner[start:]
	rest = strings.TrimLeft(rest, " \t")
	end := len(rest)
	if i := strings.IndexAny(rest, "\r\n"); i >= 0 {
		end = i
	}
	return strings.TrimSpace(rest[:end])
}

// analyzeSSH is the SSH analyzer rule: name "ssh", confidence 0.9; on
// "SSH-<version>-<product>" fills version/product and raises confidence
// to 0.95.
func analyzeSSH(banner string) result.ServiceInfo {
	info := result.ServiceInfo{Name: "ssh", Confidence: 0.9}
	version, product := extractSSHVersionProduct(banner)
	if version != "" {
		info.Version = version
		info.Product = product
		info.Confidence = 0.95
	}
	return info
}

func extractSSHVersionProduct(banner string) (version, product string) {
	const marker = "SSH-"
	pos := strings.Index(banner, marker)
	if pos < 0 {
		return "", ""
	}
	rest := banner[pos+len(marker):]

	sep := strings.IndexByte(rest, '-')
	if sep < 0 {
		return "", ""
	}
	version = rest[:sep]

	productAndRest := rest[sep+1:]
	end := len(productAndRest)
	if i := strings.IndexAny(productAndRest, " \r\n"); i >= 0 {
		end = i
	}
	product = productAndRest[:end]
	return version, product
}

// analyzeFTP is the FTP analyzer rule: name "ftp", confidence 0.8; on a
// leading "220 " greeting, capture the remainder of the line as product
// and raise confidence to 0.85.
func analyzeFTP(banner string) result.ServiceInfo {
	info := result.ServiceInfo{Name: "ftp", Confidence: 0.8}
	if product := extractFTPProductFromGreeting(banner); product != "" {
		info.Product = product
		info.Confidence = 0.85
	}
	return info
}

func extractFTPProductFromGreeting(banner string) string {
	if !strings.HasPrefix(banner, "220 ") {
		return ""
	}
	return firstLine(banner[len("220 "):])
}

// extractFTPGreeting is the Pattern.Extract hook for the generic "220"
// literal match in the built-in table; it only populates product when the
// stricter "220 " (with trailing space) greeting form is present, matching
// analyzeFTP's extraction for consistency.
func extractFTPGreeting(banner string) (version, product string) {
	return "", extractFTPProductFromGreeting(banner)
}

// extractHTTPServerHeader is the Pattern.Extract hook for the generic
// HTTP/HTTPS pattern entries.
func extractHTTPServerHeader(banner string) (version, product string) {
	return "", serverHeaderValue(banner)
}

func firstLine(s string) string {
	if i := strings.IndexAny(s, "\r\n"); i >= 0 {
		return strings.TrimSpace(s[:i])
	}
	return strings.TrimSpace(s)
}
