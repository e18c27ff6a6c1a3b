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

	"github.com/willf/bitset"
)

// Strategy selects one piece index out of a candidate set.
type Strategy string

const (
	// Sequential always picks the lowest-index candidate.
	Sequential Strategy = "sequential"

	// RarestFirst picks the candidate with the fewest advertising peers,
	// ties broken by lower index.
	RarestFirst Strategy = "rarest_first"

	// Random picks uniformly among candidates.
	Random Strategy = "random"
)

// selectPiece applies strategy to candidates, using rarity to look up each
// candidate's advertising-peer count. Returns false if candidates is empty.
func selectPiece(strategy Strategy, candidates *bitset.BitSet, rarity func(int) int, rng *rand.Rand) (int, bool) {
	switch strategy {
	case Random:
		return selectRandom(candidates, rng)
	case RarestFirst:
		return selectRarestFirst(candidates, rarity)
	default:
		return selectSequential(candidates)
	}
}

func selectSequential(candidates *bitset.BitSet) (int, bool) {
	i, ok := candidates.NextSet(0)
	if !ok {
		return 0, false
	}
	return int(i), true
}

func selectRarestFirst(candidates *bitset.BitSet, rarity func(int) int) (int, bool) {
	best := -1
	bestCount := 0
	for i, e := candidates.NextSet(0); e; i, e = candidates.NextSet(i + 1) {
		count := rarity(int(i))
		if best == -1 || count < bestCount {
			best = int(i)
			bestCount = count
		}
	}
	if best == -1 {
		return 0, false
	}
	return best, true
}

func selectRandom(candidates *bitset.BitSet, rng *rand.Rand) (int, bool) {
	var pieces []int
	for i, e := candidates.NextSet(0); e; i, e = candidates.NextSet(i + 1) {
		pieces = append(pieces, int(i))
	}
	if len(pieces) == 0 {
		return 0, false
	}
	return pieces[rng.Intn(len(pieces))], true
}
