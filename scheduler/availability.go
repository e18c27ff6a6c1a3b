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

// Package scheduler tracks per-peer piece availability and drives piece
// selection for an active torrent session.
package scheduler

import (
	"sync"

	"github.com/willf/bitset"

	"github.com/uber/bitswap-torrent/core"
)

// availability tracks, for each connected peer, the set of piece indices it
// advertises, and derives from that a rarity count per piece: the number of
// peers currently advertising each index.
type availability struct {
	mu        sync.RWMutex
	numPieces int
	peers     map[core.PeerID]*bitset.BitSet
	rarity    []int
}

func newAvailability(numPieces int) *availability {
	return &availability{
		numPieces: numPieces,
		peers:     make(map[core.PeerID]*bitset.BitSet),
		rarity:    make([]int, numPieces),
	}
}

// setBitfield replaces peer's entire advertised set, adjusting rarity
// counts for the difference against whatever the peer advertised before.
func (a *availability) setBitfield(peer core.PeerID, bits *bitset.BitSet) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if old, ok := a.peers[peer]; ok {
		for i, e := old.NextSet(0); e; i, e = old.NextSet(i + 1) {
			if int(i) < a.numPieces {
				a.rarity[i]--
			}
		}
	}
	clone := &bitset.BitSet{}
	bits.Copy(clone)
	a.peers[peer] = clone
	for i, e := clone.NextSet(0); e; i, e = clone.NextSet(i + 1) {
		if int(i) < a.numPieces {
			a.rarity[i]++
		}
	}
}

// noteHave records that peer now advertises idx, incrementing its rarity
// count if this is new information.
func (a *availability) noteHave(peer core.PeerID, idx int) {
	a.mu.Lock()
	defer a.mu.Unlock()

	b, ok := a.peers[peer]
	if !ok {
		b = bitset.New(uint(a.numPieces))
		a.peers[peer] = b
	}
	if !b.Test(uint(idx)) {
		b.Set(uint(idx))
		a.rarity[idx]++
	}
}

// noteDisconnect forgets peer entirely, decrementing rarity for every piece
// it had advertised.
func (a *availability) noteDisconnect(peer core.PeerID) {
	a.mu.Lock()
	defer a.mu.Unlock()

	b, ok := a.peers[peer]
	if !ok {
		return
	}
	for i, e := b.NextSet(0); e; i, e = b.NextSet(i + 1) {
		if int(i) < a.numPieces {
			a.rarity[i]--
		}
	}
	delete(a.peers, peer)
}

// peerPieces returns a snapshot of the pieces peer currently advertises.
func (a *availability) peerPieces(peer core.PeerID) *bitset.BitSet {
	a.mu.RLock()
	defer a.mu.RUnlock()

	b, ok := a.peers[peer]
	if !ok {
		return bitset.New(uint(a.numPieces))
	}
	clone := &bitset.BitSet{}
	b.Copy(clone)
	return clone
}

// rarityOf returns the number of peers currently advertising idx.
func (a *availability) rarityOf(idx int) int {
	a.mu.RLock()
	defer a.mu.RUnlock()

	return a.rarity[idx]
}
