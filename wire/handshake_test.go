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
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/uber/bitswap-torrent/core"
)

func TestHandshakeZeroValueEncoding(t *testing.T) {
	require := require.New(t)

	h := NewHandshake(core.InfoHash{}, core.PeerID{}, 0)
	encoded := h.Encode()
	require.Len(encoded, 74)

	decoded, err := ReadHandshake(bytes.NewReader(encoded))
	require.NoError(err)
	require.Equal(h, decoded)
}

func TestHandshakeRoundTrip(t *testing.T) {
	require := require.New(t)

	infoHash := core.InfoHashFixture()
	peerID := core.PeerIDFixture()
	h := NewHandshake(infoHash, peerID, core.Capabilities(7))

	decoded, err := ReadHandshake(bytes.NewReader(h.Encode()))
	require.NoError(err)
	require.Equal(h, decoded)
}

func TestHandshakeValidateRejectsUnknownProtocol(t *testing.T) {
	h := Handshake{Protocol: "BITTORRENT", Version: ProtocolVersion}
	require.Error(t, h.Validate(nil))
}

func TestHandshakeValidateRejectsUnknownVersion(t *testing.T) {
	h := Handshake{Protocol: ProtocolID, Version: 2}
	require.Error(t, h.Validate(nil))
}

func TestHandshakeValidateRejectsUnknownInfoHash(t *testing.T) {
	h := NewHandshake(core.InfoHashFixture(), core.PeerIDFixture(), 0)
	require.Error(t, h.Validate(map[core.InfoHash]bool{}))
}

func TestHandshakeValidateAccepts(t *testing.T) {
	infoHash := core.InfoHashFixture()
	h := NewHandshake(infoHash, core.PeerIDFixture(), 0)
	require.NoError(t, h.Validate(map[core.InfoHash]bool{infoHash: true}))
}
