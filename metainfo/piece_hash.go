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
package metainfo

import (
	"io"

	"github.com/uber/bitswap-torrent/core"
)

// pieceHasher accumulates bytes from one or more sequentially-read sources
// into fixed-size pieces, emitting a hex SHA-256 digest each time exactly
// pieceLength bytes have been absorbed. The final, possibly short, piece is
// emitted regardless of size once all sources are exhausted.
//
// This mirrors streaming a multi-file payload as though it were a single
// logical blob: the hasher does not know or care about file boundaries.
type pieceHasher struct {
	pieceLength int64
	digester    *core.Digester
	accumulated int64
	pieces      []string
}

func newPieceHasher(pieceLength int64) *pieceHasher {
	return &pieceHasher{
		pieceLength: pieceLength,
		digester:    core.NewDigester(),
	}
}

// write absorbs b, emitting completed pieces as the pieceLength boundary is
// crossed. b may span multiple pieces.
func (h *pieceHasher) write(b []byte) {
	for len(b) > 0 {
		space := h.pieceLength - h.accumulated
		n := int64(len(b))
		if n > space {
			n = space
		}
		if _, err := h.digester.FromBytes(b[:n]); err != nil {
			// Digester never fails writing to an in-memory hash.
			panic(err)
		}
		h.accumulated += n
		b = b[n:]
		if h.accumulated == h.pieceLength {
			h.emit()
		}
	}
}

func (h *pieceHasher) emit() {
	h.pieces = append(h.pieces, h.digester.Digest().Hex())
	h.digester = core.NewDigester()
	h.accumulated = 0
}

// finish flushes any partially-accumulated final piece and returns the full
// piece list.
func (h *pieceHasher) finish() []string {
	if h.accumulated > 0 {
		h.emit()
	}
	return h.pieces
}

// hashPieces streams each reader in order through a single pieceHasher,
// producing the piece list for the concatenation of all readers' bytes.
func hashPieces(readers []io.Reader, pieceLength int64) ([]string, error) {
	h := newPieceHasher(pieceLength)
	buf := make([]byte, 64*1024)
	for _, r := range readers {
		for {
			n, err := r.Read(buf)
			if n > 0 {
				h.write(buf[:n])
			}
			if err == io.EOF {
				break
			}
			if err != nil {
				return nil, err
			}
		}
	}
	return h.finish(), nil
}
