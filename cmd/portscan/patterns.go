package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/richkmeli/portscanner/internal/service"
)

var patternsCmd = &cobra.Command{
	Use:   "patterns",
	Short: "List the built-in port/service pattern table",
	RunE:  runPatterns,
}

func init() {
	rootCmd.AddCommand(patternsCmd)
}

func runPatterns(cmd *cobra.Command, args []string) error {
	ports := make([]uint16, 0, len(service.Patterns))
	for port := range service.Patterns {
		ports = append(ports, port)
	}
	sort.Slice(ports, func(i, j int) bool { return ports[i] < ports[j] })

	for _, port := range ports {
		for _, p := range service.Patterns[port] {
			fmt.Printf("%5d  %-12s confidence=%.2f  literal=%q\n", port, p.ServiceName, p.Confidence, p.LiteralPrefix)
		}
	}
	return nil
}
