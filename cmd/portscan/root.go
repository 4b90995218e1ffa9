// Package main is the portscan CLI entrypoint, wiring scanconfig,
// resolver, engine, logging, metrics, output, and configfile together
// behind a Cobra command tree.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	verbose    bool
	jsonLogs   bool
	configPath string
)

var rootCmd = &cobra.Command{
	Use:   "portscan",
	Short: "Asynchronous, readiness-driven TCP/UDP port scanner",
	Long: `portscan is a single-threaded, epoll-driven TCP connect scanner with
service detection via banner grabbing and pattern matching, plus a
best-effort UDP scan and an explicit (non-fallback) stealth-scan stub.`,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&jsonLogs, "json-logs", false, "emit logs as JSON instead of console format")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "load a JSON or XML config file (CLI flags override it)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
