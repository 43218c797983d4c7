// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Erik Beerepoot
//
// Bramble - Thorn PMU Link Tool
//
// Host-side tooling for the Thorn serial protocol spoken between the
// power-management unit and the main controller of an irrigation node.

package main

import (
	"os"

	"github.com/erikbeerepoot/bramble-sub001/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
