// Copyright (c) 2016-2019 Uber Technologies, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package memsize defines human-readable byte/bit size constants.
package memsize

import "fmt"

// Byte size constants.
const (
	B  uint64 = 1
	KB        = B << (10 * (iota))
	MB
	GB
	TB
)

// Bit size constants.
const (
	Bit  uint64 = 1
	Kbit        = Bit << (10 * (iota))
	Mbit
	Gbit
	Tbit
)

// Format renders bytes as a human-readable string.
func Format(bytes uint64) string {
	return format(bytes, "B", B, KB, MB, GB, TB)
}

// BitFormat renders bits as a human-readable string.
func BitFormat(bits uint64) string {
	return format(bits, "bit", Bit, Kbit, Mbit, Gbit, Tbit)
}

func format(n uint64, unit string, b, kb, mb, gb, tb uint64) string {
	switch {
	case n >= tb:
		return fmt.Sprintf("%.2fT%s", float64(n)/float64(tb), unit)
	case n >= gb:
		return fmt.Sprintf("%.2fG%s", float64(n)/float64(gb), unit)
	case n >= mb:
		return fmt.Sprintf("%.2fM%s", float64(n)/float64(mb), unit)
	case n >= kb:
		return fmt.Sprintf("%.2fK%s", float64(n)/float64(kb), unit)
	case n == 0:
		return fmt.Sprintf("0%s", unit)
	default:
		return fmt.Sprintf("%.2f%s", float64(n)/float64(b), unit)
	}
}
