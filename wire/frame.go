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

// Package wire implements the BitSwap-1-SHA256 wire protocol: message
// framing, the handshake, the bitfield wire representation, and the typed
// payload of every message kind.
package wire

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/uber/bitswap-torrent/core"
)

// MaxFrameLength bounds the length field of a frame. Frames claiming to be
// larger are rejected as a protocol error before any payload is read, so a
// malicious peer cannot force an unbounded allocation.
const MaxFrameLength = 16*1024*1024 + 13 // 16 MiB plus the largest payload header (Piece).

// ReadFrame reads one length-prefixed frame from r. A zero-length frame is
// the keepalive wire form and is returned as (0, nil, nil).
func ReadFrame(r io.Reader) (msgID byte, payload []byte, err error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return 0, nil, err
	}
	length := binary.BigEndian.Uint32(lenBuf[:])
	if length == 0 {
		return 0, nil, nil
	}
	if length > MaxFrameLength {
		return 0, nil, core.NewError("wire.ReadFrame", core.Protocol,
			fmt.Errorf("frame length %d exceeds max %d", length, MaxFrameLength))
	}

	var idBuf [1]byte
	if _, err := io.ReadFull(r, idBuf[:]); err != nil {
		return 0, nil, err
	}
	payload = make([]byte, length-1)
	if len(payload) > 0 {
		if _, err := io.ReadFull(r, payload); err != nil {
			return 0, nil, err
		}
	}
	return idBuf[0], payload, nil
}

// WriteFrame writes msgID and payload as a single length-prefixed frame.
func WriteFrame(w io.Writer, msgID byte, payload []byte) error {
	length := uint32(len(payload) + 1)
	buf := make([]byte, 4+len(payload)+1)
	binary.BigEndian.PutUint32(buf[0:4], length)
	buf[4] = msgID
	copy(buf[5:], payload)
	_, err := w.Write(buf)
	return err
}

// WriteKeepalive writes the zero-length keepalive frame.
func WriteKeepalive(w io.Writer) error {
	var buf [4]byte
	_, err := w.Write(buf[:])
	return err
}
