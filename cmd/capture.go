// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Erik Beerepoot

package cmd

import (
	"fmt"
	"io"
	"log"
	"os"

	"github.com/erikbeerepoot/bramble-sub001/pkg/thorn"
	"github.com/spf13/cobra"
)

var captureOutput string

var captureCmd = &cobra.Command{
	Use:   "capture",
	Short: "Record and replay Thorn link traffic",
	Long: `Record decoded Thorn frames to a capture file, or dump a previously
recorded capture.

Capture files are streams of CBOR records, one per frame, carrying the
timestamp, direction, code, and payload. They are append-friendly and can be
dumped without a live connection.`,
}

var captureRecordCmd = &cobra.Command{
	Use:   "record",
	Short: "Record frames from the link to a capture file",
	RunE:  runCaptureRecord,
}

var captureDumpCmd = &cobra.Command{
	Use:   "dump <file>",
	Short: "Print every frame in a capture file",
	Args:  cobra.ExactArgs(1),
	RunE:  runCaptureDump,
}

func init() {
	rootCmd.AddCommand(captureCmd)
	captureCmd.AddCommand(captureRecordCmd)
	captureCmd.AddCommand(captureDumpCmd)

	captureRecordCmd.Flags().StringVarP(&captureOutput, "output", "o", "", "Capture file to write (required)")
	captureRecordCmd.MarkFlagRequired("output")
}

func runCaptureRecord(cmd *cobra.Command, args []string) error {
	conn, connInfo, err := OpenConnection()
	if err != nil {
		return err
	}
	defer conn.Close()

	file, err := os.Create(captureOutput)
	if err != nil {
		return fmt.Errorf("failed to create capture file: %v", err)
	}
	defer file.Close()

	fmt.Printf("Bramble - Capture Recorder\n")
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Writing to: %s\n", captureOutput)
	fmt.Printf("Press Ctrl+C to exit\n\n")

	writer := thorn.NewCaptureWriter(file)
	parser := thorn.NewParser()
	buf := make([]byte, 128)
	recorded := 0

	for {
		n, err := conn.Read(buf)
		if err != nil {
			if err == ErrConnectionClosed {
				log.Printf("Connection closed, %d frames recorded", recorded)
				return nil
			}
			log.Printf("Read error: %v", err)
			continue
		}

		for i := 0; i < n; i++ {
			if !parser.ProcessByte(buf[i]) {
				continue
			}
			frame := parser.Frame()
			parser.Reset()

			if err := writer.WriteFrame(thorn.DirectionRx, frame); err != nil {
				return fmt.Errorf("failed to write capture record: %v", err)
			}
			recorded++
			fmt.Printf("\r%d frames recorded", recorded)
		}
	}
}

func runCaptureDump(cmd *cobra.Command, args []string) error {
	file, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("failed to open capture file: %v", err)
	}
	defer file.Close()

	reader := thorn.NewCaptureReader(file)
	count := 0

	for {
		rec, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read record %d: %v", count, err)
		}

		fmt.Printf("[%s] ", rec.Direction)
		fmt.Print(thorn.FormatFrame(rec.Frame()))
		if rec.Note != "" {
			fmt.Printf("  Note: %s\n", rec.Note)
		}
		count++
	}

	fmt.Printf("\n%d frames\n", count)
	return nil
}
