// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Erik Beerepoot

package thorn

// CalculateChecksum computes the 8-bit additive checksum (sum modulo 256)
// over the given data. On the wire it covers the command byte and all data
// bytes, and must match between parser and builder.
func CalculateChecksum(data []byte) uint8 {
	var sum uint8
	for _, b := range data {
		sum += b
	}
	return sum
}
