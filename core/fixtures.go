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
package core

import (
	"crypto/rand"
	"encoding/hex"
)

// randHex returns a random hexadecimal string decoding to n bytes.
func randHex(n int) string {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		panic(err)
	}
	return hex.EncodeToString(b)
}

// PeerIDFixture returns a randomly generated PeerID.
func PeerIDFixture() PeerID {
	p, err := RandomPeerID()
	if err != nil {
		panic(err)
	}
	return p
}

// InfoHashFixture returns a randomly generated InfoHash.
func InfoHashFixture() InfoHash {
	return NewInfoHashFromBytes([]byte(randHex(32)))
}

// DigestFixture returns a random Digest.
func DigestFixture() Digest {
	d, err := NewSHA256DigestFromHex(randHex(32))
	if err != nil {
		panic(err)
	}
	return d
}

// DigestListFixture returns a list of random Digests.
func DigestListFixture(n int) []Digest {
	var l DigestList
	for i := 0; i < n; i++ {
		l = append(l, DigestFixture())
	}
	return l
}
