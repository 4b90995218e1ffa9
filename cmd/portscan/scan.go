package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/richkmeli/portscanner/internal/configfile"
	"github.com/richkmeli/portscanner/internal/engine"
	"github.com/richkmeli/portscanner/internal/logging"
	"github.com/richkmeli/portscanner/internal/metrics"
	"github.com/richkmeli/portscanner/internal/output"
	"github.com/richkmeli/portscanner/internal/resolver"
	"github.com/richkmeli/portscanner/internal/scanconfig"
)

var (
	scanPorts            string
	scanType             string
	scanIPVersion        string
	scanTimeoutMillis    int
	scanConcurrency      int
	scanServiceDetection bool
	scanBannerGrabbing   bool
	scanOutputFormat     string
	scanOutputFile       string
	scanMetricsAddr      string
)

var scanCmd = &cobra.Command{
	Use:   "scan <target>",
	Short: "Scan a target's ports",
	Args:  cobra.ExactArgs(1),
	Example: `  portscan scan 127.0.0.1 -p 1-1024
  portscan scan scanme.example.com -p 22,80,443 --service-detection --banner-grabbing
  portscan scan 10.0.0.5 --type udp -p 53,123,161`,
	RunE: runScan,
}

func init() {
	rootCmd.AddCommand(scanCmd)

	scanCmd.Flags().StringVarP(&scanPorts, "ports", "p", "", "port spec, e.g. '22,80,8000-8100' (defaults to the built-in common-port list)")
	scanCmd.Flags().StringVar(&scanType, "type", "tcp", "scan type: tcp, udp, syn (syn always reports an explicit stub result)")
	scanCmd.Flags().StringVar(&scanIPVersion, "ip-version", "auto", "ip version: auto, ipv4, ipv6")
	scanCmd.Flags().IntVarP(&scanTimeoutMillis, "timeout", "t", 0, "per-port connect timeout in milliseconds (0 = default)")
	scanCmd.Flags().IntVarP(&scanConcurrency, "concurrency", "c", 0, "max in-flight connection attempts (0 = default)")
	scanCmd.Flags().BoolVar(&scanServiceDetection, "service-detection", false, "match banners against known service patterns")
	scanCmd.Flags().BoolVar(&scanBannerGrabbing, "banner-grabbing", false, "grab a banner from each open TCP port")
	scanCmd.Flags().StringVarP(&scanOutputFormat, "output-format", "o", output.FormatText, "output format: text, json, xml")
	scanCmd.Flags().StringVarP(&scanOutputFile, "output-file", "f", "", "write output to this file instead of stdout")
	scanCmd.Flags().StringVar(&scanMetricsAddr, "metrics-addr", "", "if set, serve Prometheus metrics on this address until the scan completes")
}

func runScan(cmd *cobra.Command, args []string) error {
	target := args[0]

	cli := scanconfig.Default()
	cli.Target = target
	if scanPorts != "" {
		ports, err := scanconfig.ParsePortSpec(scanPorts)
		if err != nil {
			return fmt.Errorf("invalid --ports: %w", err)
		}
		cli.Ports = ports
	}
	if v, err := scanconfig.ParseScanType(scanType); err == nil {
		cli.ScanType = v
	} else {
		return err
	}
	if v, err := scanconfig.ParseIPVersion(scanIPVersion); err == nil {
		cli.IPVersion = v
	} else {
		return err
	}
	if scanTimeoutMillis > 0 {
		cli.TimeoutMillis = scanTimeoutMillis
	}
	if scanConcurrency > 0 {
		cli.Concurrency = scanConcurrency
	}
	cli.ServiceDetection = scanServiceDetection
	cli.BannerGrabbing = scanBannerGrabbing
	cli.OutputFormat = scanOutputFormat
	cli.OutputFile = scanOutputFile
	cli.Verbose = verbose

	cfg := cli
	if configPath != "" {
		fileCfg, err := configfile.Load(configPath)
		if err != nil {
			return err
		}
		cfg = configfile.Merge(fileCfg, cli)
	}
	if len(cfg.Ports) == 0 {
		cfg.Ports = scanconfig.Default().Ports
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid scan config: %w", err)
	}

	level := "info"
	if cfg.Verbose {
		level = "debug"
	}
	log := logging.New(logging.Config{Level: level, Pretty: !jsonLogs})

	reg := prometheus.NewRegistry()
	mreg := metrics.NewRegistry(reg)
	if scanMetricsAddr != "" {
		srv := startMetricsServer(scanMetricsAddr, reg)
		log.Info().Str("addr", scanMetricsAddr).Msg("serving prometheus metrics")
		defer func() { _ = srv.Close() }()
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Minute)
	defer cancel()

	target2, err := resolver.Resolve(ctx, cfg.Target, cfg.IPVersion)
	if err != nil {
		return fmt.Errorf("failed to resolve target %q: %w", cfg.Target, err)
	}
	log.Info().Str("target", cfg.Target).Str("address", target2.Address).Msg("resolved target")

	eng := engine.New(engine.Options{Logger: log, Metrics: mreg})

	start := time.Now()
	sink, err := eng.Scan(ctx, cfg, target2, nil)
	elapsed := time.Since(start)
	if err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}

	stats := engine.StatsFromSink(sink, len(cfg.Ports), elapsed)
	mreg.SetPortsPerSecond(stats.PortsPerSecond)
	log.Info().
		Int("total_ports", stats.TotalPorts).
		Int("completed_ports", stats.CompletedPorts).
		Int("open_ports", stats.OpenPorts).
		Dur("elapsed", stats.Elapsed).
		Float64("ports_per_second", stats.PortsPerSecond).
		Msg("scan finished")

	if cfg.OutputFile != "" {
		return output.WriteFileAtomic(sink, cfg.Target, elapsed, cfg.OutputFormat, cfg.OutputFile)
	}
	return output.Write(os.Stdout, sink, cfg.Target, elapsed, cfg.OutputFormat)
}

func startMetricsServer(addr string, reg *prometheus.Registry) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		_ = srv.ListenAndServe()
	}()
	return srv
}
