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
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/willf/bitset"

	"github.com/uber/bitswap-torrent/core"
)

func TestAvailabilityRaritySetBitfield(t *testing.T) {
	require := require.New(t)

	a := newAvailability(3)
	p1, _ := core.RandomPeerID()
	p2, _ := core.RandomPeerID()

	b1 := bitset.New(3)
	b1.Set(0).Set(1)
	a.setBitfield(p1, b1)

	b2 := bitset.New(3)
	b2.Set(1)
	a.setBitfield(p2, b2)

	require.Equal(1, a.rarityOf(0))
	require.Equal(2, a.rarityOf(1))
	require.Equal(0, a.rarityOf(2))
}

func TestAvailabilityNoteHaveIncrementsOnce(t *testing.T) {
	require := require.New(t)

	a := newAvailability(2)
	p, _ := core.RandomPeerID()

	a.noteHave(p, 0)
	a.noteHave(p, 0)

	require.Equal(1, a.rarityOf(0))
}

func TestAvailabilityNoteDisconnectDecrements(t *testing.T) {
	require := require.New(t)

	a := newAvailability(2)
	p, _ := core.RandomPeerID()

	b := bitset.New(2)
	b.Set(0).Set(1)
	a.setBitfield(p, b)
	require.Equal(1, a.rarityOf(0))

	a.noteDisconnect(p)
	require.Equal(0, a.rarityOf(0))
	require.Equal(0, a.rarityOf(1))
}

func TestAvailabilitySetBitfieldReplacesPrevious(t *testing.T) {
	require := require.New(t)

	a := newAvailability(2)
	p, _ := core.RandomPeerID()

	first := bitset.New(2)
	first.Set(0)
	a.setBitfield(p, first)
	require.Equal(1, a.rarityOf(0))

	second := bitset.New(2)
	second.Set(1)
	a.setBitfield(p, second)
	require.Equal(0, a.rarityOf(0))
	require.Equal(1, a.rarityOf(1))
}
