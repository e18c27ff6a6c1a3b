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

// Package storage implements the piece storage engine: the mapping from
// piece indices to on-disk byte ranges, piece verification, resume
// persistence, and the file-handle cache backing piece writes and reads.
package storage

import "go.uber.org/atomic"

// PieceState is the lifecycle state of a single piece.
type PieceState int32

const (
	// Missing is the initial state: no bytes for this piece are known to
	// be present and verified on disk.
	Missing PieceState = iota
	// Downloading indicates a write is in flight for this piece.
	Downloading
	// Downloaded indicates all bytes were written but not yet verified.
	Downloaded
	// Verified indicates the piece's on-disk bytes hash-match metadata.
	Verified
	// Corrupted indicates the last verification attempt failed.
	Corrupted
)

func (s PieceState) String() string {
	switch s {
	case Missing:
		return "missing"
	case Downloading:
		return "downloading"
	case Downloaded:
		return "downloaded"
	case Verified:
		return "verified"
	case Corrupted:
		return "corrupted"
	default:
		return "unknown"
	}
}

// pieceStates is a fixed-size, concurrency-safe array of PieceState, one
// per piece. Each slot is an independent atomic so a write to one piece
// never blocks a status read of another.
type pieceStates struct {
	slots []atomic.Int32
}

func newPieceStates(n int) *pieceStates {
	return &pieceStates{slots: make([]atomic.Int32, n)}
}

func (p *pieceStates) get(i int) PieceState {
	return PieceState(p.slots[i].Load())
}

func (p *pieceStates) set(i int, s PieceState) {
	p.slots[i].Store(int32(s))
}

// countVerified returns the number of pieces in the Verified state.
func (p *pieceStates) countVerified() int {
	n := 0
	for i := range p.slots {
		if PieceState(p.slots[i].Load()) == Verified {
			n++
		}
	}
	return n
}

// snapshot returns a byte slice with one byte per piece, suitable for
// persisting to the resume record.
func (p *pieceStates) snapshot() []byte {
	b := make([]byte, len(p.slots))
	for i := range p.slots {
		b[i] = byte(p.slots[i].Load())
	}
	return b
}

// restore loads piece states from a previously-persisted snapshot. Returns
// false if b's length does not match the number of pieces, in which case
// the caller should fall back to a full on-disk rescan.
func (p *pieceStates) restore(b []byte) bool {
	if len(b) != len(p.slots) {
		return false
	}
	for i, v := range b {
		p.slots[i].Store(int32(v))
	}
	return true
}
