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
package wire

import (
	"fmt"

	"github.com/uber/bitswap-torrent/core"
)

// Bitfield is the wire-exact representation of piece availability: a
// ceil(numPieces/8)-byte vector in big-endian bit order, where bit i within
// byte b corresponds to piece 8b + (7-i). This layout is fixed by spec and
// does not match the internal word layout of a general-purpose bitset
// library, so it is represented directly as a byte slice rather than
// wrapping one.
type Bitfield struct {
	bytes     []byte
	numPieces int
}

// NewBitfield allocates an empty Bitfield sized for numPieces.
func NewBitfield(numPieces int) *Bitfield {
	return &Bitfield{
		bytes:     make([]byte, (numPieces+7)/8),
		numPieces: numPieces,
	}
}

// FromBytes clamps raw wire bytes to numPieces, the receiver's own known
// piece count. Trailing bits beyond numPieces must be zero; non-zero
// trailing bits are a protocol error.
func FromBytes(b []byte, numPieces int) (*Bitfield, error) {
	want := (numPieces + 7) / 8
	if len(b) != want {
		return nil, protocolErr("wire.FromBytes", fmt.Errorf(
			"bitfield length %d does not match expected %d for %d pieces", len(b), want, numPieces))
	}
	bf := &Bitfield{bytes: append([]byte(nil), b...), numPieces: numPieces}
	for i := numPieces; i < want*8; i++ {
		if bf.Test(i) {
			return nil, protocolErr("wire.FromBytes", fmt.Errorf("non-zero trailing bit at piece index %d", i))
		}
	}
	return bf, nil
}

// Bytes returns the raw wire bytes of b.
func (b *Bitfield) Bytes() []byte {
	return append([]byte(nil), b.bytes...)
}

// NumPieces returns the piece count this Bitfield was sized for.
func (b *Bitfield) NumPieces() int {
	return b.numPieces
}

// Set marks piece i as possessed. Out-of-range indices are a no-op error.
func (b *Bitfield) Set(i int) error {
	if i < 0 || i >= b.numPieces {
		return core.NewInvalidPieceIndexError("wire.Bitfield.Set", i, b.numPieces)
	}
	byteIdx, bitIdx := i/8, uint(7-i%8)
	b.bytes[byteIdx] |= 1 << bitIdx
	return nil
}

// Clear marks piece i as not possessed.
func (b *Bitfield) Clear(i int) error {
	if i < 0 || i >= b.numPieces {
		return core.NewInvalidPieceIndexError("wire.Bitfield.Clear", i, b.numPieces)
	}
	byteIdx, bitIdx := i/8, uint(7-i%8)
	b.bytes[byteIdx] &^= 1 << bitIdx
	return nil
}

// Test reports whether piece i is marked possessed. Out-of-range indices
// return false rather than erroring.
func (b *Bitfield) Test(i int) bool {
	if i < 0 || i >= b.numPieces {
		return false
	}
	byteIdx, bitIdx := i/8, uint(7-i%8)
	return b.bytes[byteIdx]&(1<<bitIdx) != 0
}

// CountOnes returns the number of pieces marked possessed.
func (b *Bitfield) CountOnes() int {
	n := 0
	for i := 0; i < b.numPieces; i++ {
		if b.Test(i) {
			n++
		}
	}
	return n
}

// IsComplete reports whether every piece is marked possessed.
func (b *Bitfield) IsComplete() bool {
	return b.CountOnes() == b.numPieces
}
