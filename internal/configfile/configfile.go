// Package configfile loads and merges ScanConfig from JSON or XML files,
// the Go realization of a ConfigManager::load_from_file/merge_configs
// style config loader. This sits entirely outside the core engine, but a
// complete, runnable CLI needs it, so it lives here rather than in
// internal/engine.
package configfile

import (
	"encoding/json"
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/richkmeli/portscanner/internal/scanconfig"
)

// fileConfig is the on-disk shape, independent of scanconfig.ScanConfig's
// Go-native types (enums as strings, ports as a port-spec string) so
// JSON/XML files stay human-editable.
type fileConfig struct {
	Target           string `json:"target" xml:"target"`
	Ports            string `json:"ports" xml:"ports"`
	TimeoutMillis    int    `json:"timeout_ms" xml:"timeout_ms"`
	Concurrency      int    `json:"concurrency" xml:"concurrency"`
	ServiceDetection bool   `json:"service_detection" xml:"service_detection"`
	BannerGrabbing   bool   `json:"banner_grabbing" xml:"banner_grabbing"`
	IPVersion        string `json:"ip_version" xml:"ip_version"`
	ScanType         string `json:"scan_type" xml:"scan_type"`
	OutputFormat     string `json:"output_format" xml:"output_format"`
	OutputFile       string `json:"output_file" xml:"output_file"`
	Verbose          bool   `json:"verbose" xml:"verbose"`
}

// Load reads filename, choosing JSON or XML decoding by extension
// (case-insensitively), and returns the decoded ScanConfig. An
// unrecognized extension is an error — there is no silent fallback.
func Load(filename string) (scanconfig.ScanConfig, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return scanconfig.ScanConfig{}, fmt.Errorf("configfile: read %s: %w", filename, err)
	}

	var fc fileConfig
	switch ext := strings.ToLower(filepath.Ext(filename)); ext {
	case ".json":
		if err := json.Unmarshal(data, &fc); err != nil {
			return scanconfig.ScanConfig{}, fmt.Errorf("configfile: decode json %s: %w", filename, err)
		}
	case ".xml":
		if err := xml.Unmarshal(data, &fc); err != nil {
			return scanconfig.ScanConfig{}, fmt.Errorf("configfile: decode xml %s: %w", filename, err)
		}
	default:
		return scanconfig.ScanConfig{}, fmt.Errorf("configfile: unsupported config file format %q", ext)
	}

	return toScanConfig(fc)
}

// Save writes cfg to filename in JSON or XML, chosen by extension.
func Save(cfg scanconfig.ScanConfig, filename string) error {
	fc := fromScanConfig(cfg)

	var data []byte
	var err error
	switch ext := strings.ToLower(filepath.Ext(filename)); ext {
	case ".json":
		data, err = json.MarshalIndent(fc, "", "  ")
	case ".xml":
		data, err = xml.MarshalIndent(fc, "", "  ")
	default:
		return fmt.Errorf("configfile: unsupported config file format %q", ext)
	}
	if err != nil {
		return fmt.Errorf("configfile: encode %s: %w", filename, err)
	}

	return os.WriteFile(filename, data, 0o644)
}

func toScanConfig(fc fileConfig) (scanconfig.ScanConfig, error) {
	cfg := scanconfig.Default()
	cfg.Target = fc.Target
	cfg.TimeoutMillis = fc.TimeoutMillis
	cfg.Concurrency = fc.Concurrency
	cfg.ServiceDetection = fc.ServiceDetection
	cfg.BannerGrabbing = fc.BannerGrabbing
	cfg.OutputFormat = fc.OutputFormat
	cfg.OutputFile = fc.OutputFile
	cfg.Verbose = fc.Verbose

	if fc.Ports != "" {
		ports, err := scanconfig.ParsePortSpec(fc.Ports)
		if err != nil {
			return scanconfig.ScanConfig{}, fmt.Errorf("configfile: %w", err)
		}
		cfg.Ports = ports
	}

	if fc.IPVersion != "" {
		v, err := scanconfig.ParseIPVersion(fc.IPVersion)
		if err != nil {
			return scanconfig.ScanConfig{}, fmt.Errorf("configfile: %w", err)
		}
		cfg.IPVersion = v
	}
	if fc.ScanType != "" {
		t, err := scanconfig.ParseScanType(fc.ScanType)
		if err != nil {
			return scanconfig.ScanConfig{}, fmt.Errorf("configfile: %w", err)
		}
		cfg.ScanType = t
	}

	return cfg, nil
}

func fromScanConfig(cfg scanconfig.ScanConfig) fileConfig {
	return fileConfig{
		Target:           cfg.Target,
		Ports:            scanconfig.FormatPortSpec(cfg.Ports),
		TimeoutMillis:    cfg.TimeoutMillis,
		Concurrency:      cfg.Concurrency,
		ServiceDetection: cfg.ServiceDetection,
		BannerGrabbing:   cfg.BannerGrabbing,
		IPVersion:        cfg.IPVersion.String(),
		ScanType:         cfg.ScanType.String(),
		OutputFormat:     cfg.OutputFormat,
		OutputFile:       cfg.OutputFile,
		Verbose:          cfg.Verbose,
	}
}

// Merge overlays cli on top of file, with cli's non-zero-value fields
// winning field-by-field (CLI overrides file config).
func Merge(file, cli scanconfig.ScanConfig) scanconfig.ScanConfig {
	merged := file

	if cli.Target != "" {
		merged.Target = cli.Target
	}
	if len(cli.Ports) > 0 {
		merged.Ports = cli.Ports
	}
	if cli.TimeoutMillis != 0 {
		merged.TimeoutMillis = cli.TimeoutMillis
	}
	if cli.Concurrency != 0 {
		merged.Concurrency = cli.Concurrency
	}
	merged.ServiceDetection = cli.ServiceDetection || file.ServiceDetection
	merged.BannerGrabbing = cli.BannerGrabbing || file.BannerGrabbing
	merged.Verbose = cli.Verbose || file.Verbose
	if cli.IPVersion != scanconfig.IPAuto {
		merged.IPVersion = cli.IPVersion
	}
	if cli.ScanType != scanconfig.TCPConnect {
		merged.ScanType = cli.ScanType
	}
	if cli.OutputFormat != "" {
		merged.OutputFormat = cli.OutputFormat
	}
	if cli.OutputFile != "" {
		merged.OutputFile = cli.OutputFile
	}

	return merged
}
