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
package scheduler

import (
	"math/rand"
	"sync"
	"time"

	"github.com/andres-erbsen/clock"
	"github.com/willf/bitset"

	"github.com/uber/bitswap-torrent/core"
)

// Scheduler is a single-owner component tracking peer availability, piece
// rarity, and in-flight requests for one torrent session. It never touches
// bytes: it hands out piece indices for connection tasks to request, and is
// informed of outcomes via its Note* methods.
type Scheduler struct {
	mu sync.Mutex

	numPieces   int
	strategy    Strategy
	avail       *availability
	local       *bitset.BitSet
	inFlight    map[core.PeerID]*bitset.BitSet
	requestedAt map[core.PeerID]map[int]time.Time
	rng         *rand.Rand
	clk         clock.Clock
}

// ExpiredRequest names a piece whose per-block timeout (spec.md §5) has
// elapsed without the peer it was requested from delivering it.
type ExpiredRequest struct {
	Peer  core.PeerID
	Index int
}

// New constructs a Scheduler for a torrent with numPieces total pieces. rng
// drives the "random" strategy's piece selection; pass nil to seed a
// default source off the current time (every other Scheduler instance
// would otherwise pick the identical sequence).
func New(cfg Config, numPieces int, rng *rand.Rand) *Scheduler {
	cfg = cfg.applyDefaults()
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Scheduler{
		numPieces:   numPieces,
		strategy:    Strategy(cfg.Strategy),
		avail:       newAvailability(numPieces),
		local:       bitset.New(uint(numPieces)),
		inFlight:    make(map[core.PeerID]*bitset.BitSet),
		requestedAt: make(map[core.PeerID]map[int]time.Time),
		rng:         rng,
		clk:         clock.New(),
	}
}

// NoteBitfield records peer's full advertised piece set, as seeded by its
// Bitfield message.
func (s *Scheduler) NoteBitfield(peer core.PeerID, bits *bitset.BitSet) {
	s.avail.setBitfield(peer, bits)
}

// NoteHave records that peer now advertises idx, per a Have message.
func (s *Scheduler) NoteHave(peer core.PeerID, idx int) {
	s.avail.noteHave(peer, idx)
}

// NoteLocalVerified marks idx as locally Verified, removing it from every
// future candidate set.
func (s *Scheduler) NoteLocalVerified(idx int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.local.Set(uint(idx))
}

// NextRequest selects the next piece to request from peer, or returns false
// if peer has nothing we both need and have not already requested from it.
func (s *Scheduler) NextRequest(peer core.PeerID) (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	candidates := s.avail.peerPieces(peer)
	outstanding := s.inFlight[peer]

	for i, e := candidates.NextSet(0); e; i, e = candidates.NextSet(i + 1) {
		if s.local.Test(i) || (outstanding != nil && outstanding.Test(i)) {
			candidates.Clear(i)
		}
	}

	idx, ok := selectPiece(s.strategy, candidates, s.avail.rarityOf, s.rng)
	if !ok {
		return 0, false
	}

	if outstanding == nil {
		outstanding = bitset.New(uint(s.numPieces))
		s.inFlight[peer] = outstanding
	}
	outstanding.Set(uint(idx))

	if s.requestedAt[peer] == nil {
		s.requestedAt[peer] = make(map[int]time.Time)
	}
	s.requestedAt[peer][idx] = s.clk.Now()

	return idx, true
}

// ExpireTimedOut releases every outstanding request older than timeout back
// to its candidate pool and returns the pieces that need to be re-requested
// from another peer, per spec.md §5's "Outstanding Requests have a
// per-block timeout... after which the block is re-requested from another
// peer."
func (s *Scheduler) ExpireTimedOut(timeout time.Duration) []ExpiredRequest {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clk.Now()
	var expired []ExpiredRequest
	for peer, requests := range s.requestedAt {
		for idx, at := range requests {
			if now.Sub(at) < timeout {
				continue
			}
			expired = append(expired, ExpiredRequest{Peer: peer, Index: idx})
			delete(requests, idx)
			if b, ok := s.inFlight[peer]; ok {
				b.Clear(uint(idx))
			}
		}
		if len(requests) == 0 {
			delete(s.requestedAt, peer)
		}
	}
	return expired
}

// NoteCompleted marks idx as locally Verified and clears it from peer's
// in-flight set, in response to a successful piece write.
func (s *Scheduler) NoteCompleted(peer core.PeerID, idx int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.local.Set(uint(idx))
	if b, ok := s.inFlight[peer]; ok {
		b.Clear(uint(idx))
	}
	delete(s.requestedAt[peer], idx)
}

// NoteFailed clears idx from peer's in-flight set without marking it
// locally Verified, returning it to the candidate pool.
func (s *Scheduler) NoteFailed(peer core.PeerID, idx int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if b, ok := s.inFlight[peer]; ok {
		b.Clear(uint(idx))
	}
	delete(s.requestedAt[peer], idx)
}

// NoteDisconnect forgets peer: its advertised pieces no longer count toward
// rarity and its in-flight entries are released for reassignment.
func (s *Scheduler) NoteDisconnect(peer core.PeerID) {
	s.avail.noteDisconnect(peer)

	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inFlight, peer)
	delete(s.requestedAt, peer)
}
