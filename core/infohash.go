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
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// InfoHash is the 32-byte SHA-256 hash of a torrent's canonical info
// dictionary. It is the authoritative identifier for a swarm: two peers
// only ever exchange pieces if their InfoHash values match.
type InfoHash [32]byte

// NewInfoHashFromHex converts a hexadecimal string into an InfoHash.
func NewInfoHashFromHex(s string) (InfoHash, error) {
	if len(s) != 64 {
		return InfoHash{}, fmt.Errorf("invalid hash: expected 64 characters, got %d", len(s))
	}
	var h InfoHash
	n, err := hex.Decode(h[:], []byte(s))
	if err != nil {
		return InfoHash{}, fmt.Errorf("invalid hex: %s", err)
	}
	if n != 32 {
		return InfoHash{}, fmt.Errorf("invariant violation: expected 32 bytes, got %d", n)
	}
	return h, nil
}

// NewInfoHashFromBytes hashes raw bytes (the canonical encoding of an info
// dictionary) into an InfoHash.
func NewInfoHashFromBytes(b []byte) InfoHash {
	return InfoHash(sha256.Sum256(b))
}

// Bytes converts h to raw bytes.
func (h InfoHash) Bytes() []byte {
	return h[:]
}

// Hex converts h into a hexadecimal string.
func (h InfoHash) Hex() string {
	return hex.EncodeToString(h[:])
}

func (h InfoHash) String() string {
	return h.Hex()
}

// Empty returns true if h is the zero value.
func (h InfoHash) Empty() bool {
	return h == InfoHash{}
}
