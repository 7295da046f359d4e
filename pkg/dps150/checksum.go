// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package dps150

// Checksum computes (type_id + len(payload) + sum(payload)) mod 256
func Checksum(typeID byte, payload []byte) byte {
	sum := typeID + byte(len(payload))
	for _, b := range payload {
		sum += b
	}
	return sum
}
