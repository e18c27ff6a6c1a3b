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
	"encoding/binary"
	"fmt"
	"io"

	"github.com/uber/bitswap-torrent/core"
)

// ProtocolID is the required protocol string for version 1 of the wire
// protocol. Connections presenting any other string are rejected.
const ProtocolID = "BITSWAP-1-SHA256"

// ProtocolVersion is the only version this module speaks.
const ProtocolVersion byte = 1

// Handshake is the opening exchange on every connection. Unlike frames, it
// is not length-prefixed: its layout is fixed and self-describing via the
// leading protocol-length byte.
type Handshake struct {
	Protocol     string
	Version      byte
	InfoHash     core.InfoHash
	PeerID       core.PeerID
	Capabilities core.Capabilities
}

// NewHandshake builds a Handshake using this module's protocol id and
// version.
func NewHandshake(infoHash core.InfoHash, peerID core.PeerID, caps core.Capabilities) Handshake {
	return Handshake{
		Protocol:     ProtocolID,
		Version:      ProtocolVersion,
		InfoHash:     infoHash,
		PeerID:       peerID,
		Capabilities: caps,
	}
}

// Encode renders h in its wire layout:
// [protocol_len:1][protocol][version:1][info_hash:32][peer_id:16][capabilities:8].
func (h Handshake) Encode() []byte {
	buf := make([]byte, 1+len(h.Protocol)+1+32+16+8)
	i := 0
	buf[i] = byte(len(h.Protocol))
	i++
	i += copy(buf[i:], h.Protocol)
	buf[i] = h.Version
	i++
	i += copy(buf[i:], h.InfoHash.Bytes())
	i += copy(buf[i:], h.PeerID[:])
	binary.BigEndian.PutUint64(buf[i:], uint64(h.Capabilities))
	return buf
}

// ReadHandshake reads and decodes a Handshake from r.
func ReadHandshake(r io.Reader) (Handshake, error) {
	var lenBuf [1]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return Handshake{}, err
	}
	protoLen := int(lenBuf[0])

	rest := make([]byte, protoLen+1+32+16+8)
	if _, err := io.ReadFull(r, rest); err != nil {
		return Handshake{}, err
	}

	h := Handshake{
		Protocol: string(rest[:protoLen]),
		Version:  rest[protoLen],
	}
	off := protoLen + 1
	copy(h.InfoHash[:], rest[off:off+32])
	off += 32
	copy(h.PeerID[:], rest[off:off+16])
	off += 16
	h.Capabilities = core.Capabilities(binary.BigEndian.Uint64(rest[off : off+8]))

	return h, nil
}

// Validate checks h against the rejection rules of spec §4.4, given the
// set of info-hashes the local peer is currently serving or downloading.
func (h Handshake) Validate(knownInfoHashes map[core.InfoHash]bool) error {
	if h.Protocol != ProtocolID {
		return protocolErr("wire.Handshake.Validate", fmt.Errorf("unsupported protocol %q", h.Protocol))
	}
	if h.Version != ProtocolVersion {
		return protocolErr("wire.Handshake.Validate", fmt.Errorf("unsupported version %d", h.Version))
	}
	if !knownInfoHashes[h.InfoHash] {
		return protocolErr("wire.Handshake.Validate", fmt.Errorf("swarm mismatch: unknown info_hash %s", h.InfoHash))
	}
	return nil
}
