// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Erik Beerepoot

package cmd

import (
	"fmt"
	"log"
	"time"

	"github.com/erikbeerepoot/bramble-sub001/pkg/thorn"
	"github.com/spf13/cobra"
)

var (
	monitorStatsInterval int
	monitorQuiet         bool
)

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Display decoded Thorn frames in human-readable format",
	Long: `Continuously decode and display Thorn frames as they arrive on the link.

Each frame is shown with timestamp, command or response name, and decoded
payload: wake intervals, schedule entries, NACK error codes, wake reasons,
and PMU status. Framing and checksum failures are counted silently and
reported in the periodic statistics summary.

Supports both serial and WebSocket connections.`,
	RunE: runMonitor,
}

func init() {
	rootCmd.AddCommand(monitorCmd)
	monitorCmd.Flags().IntVar(&monitorStatsInterval, "stats-interval", 30, "Statistics summary interval in seconds (0 disables)")
	monitorCmd.Flags().BoolVarP(&monitorQuiet, "quiet", "q", false, "Suppress per-frame output, print statistics only")
}

func runMonitor(cmd *cobra.Command, args []string) error {
	conn, connInfo, err := OpenConnection()
	if err != nil {
		return err
	}
	defer conn.Close()

	fmt.Printf("Bramble - Thorn Link Monitor\n")
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Press Ctrl+C to exit\n\n")

	parser := thorn.NewParser()
	stats := thorn.NewStatistics()
	buf := make([]byte, 128)

	var nextStats time.Time
	if monitorStatsInterval > 0 {
		nextStats = time.Now().Add(time.Duration(monitorStatsInterval) * time.Second)
	}

	for {
		n, err := conn.Read(buf)
		if err != nil {
			// For WebSocket connections, a read error usually means
			// the connection is permanently closed - exit gracefully
			if err == ErrConnectionClosed {
				log.Printf("Connection closed")
				fmt.Print(stats.String())
				return nil
			}
			log.Printf("Read error: %v", err)
			continue
		}

		for i := 0; i < n; i++ {
			if parser.ProcessByte(buf[i]) {
				frame := parser.Frame()
				stats.RecordFrame(frame.Code)
				if !monitorQuiet {
					fmt.Print(thorn.FormatFrame(frame))
				}
				parser.Reset()
			}
		}
		stats.SyncParser(parser)

		if monitorStatsInterval > 0 && time.Now().After(nextStats) {
			fmt.Print(stats.String())
			nextStats = time.Now().Add(time.Duration(monitorStatsInterval) * time.Second)
		}
	}
}
