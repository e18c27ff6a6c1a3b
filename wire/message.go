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

	"github.com/uber/bitswap-torrent/core"
)

// MessageID identifies the kind of a non-handshake message.
type MessageID byte

// Message IDs as assigned by spec §4.3.
const (
	IDChoke         MessageID = 0
	IDUnchoke       MessageID = 1
	IDInterested    MessageID = 2
	IDNotInterested MessageID = 3
	IDHave          MessageID = 4
	IDBitfield      MessageID = 5
	IDRequest       MessageID = 6
	IDPiece         MessageID = 7
	IDCancel        MessageID = 8
	IDKeepalive     MessageID = 9
	IDExtended      MessageID = 20
)

// Message is the common interface implemented by every typed message kind.
type Message interface {
	// MessageID returns the wire id of the message.
	MessageID() MessageID
}

// Choke: sender will not fulfil requests from the receiver until Unchoke.
type Choke struct{}

// Unchoke: sender will fulfil requests.
type Unchoke struct{}

// Interested: sender wishes to download.
type Interested struct{}

// NotInterested: sender withdraws interest.
type NotInterested struct{}

// Keepalive keeps an idle connection open. It is also representable as a
// zero-length frame.
type Keepalive struct{}

// Have announces that the sender newly possesses the piece at Index.
type Have struct {
	Index uint32
}

// BitfieldMessage carries the sender's current piece availability. If sent
// at all, it MUST be the first non-handshake message on the connection.
type BitfieldMessage struct {
	Bits []byte
}

// Request asks for a sub-range of a piece.
type Request struct {
	Index  uint32
	Begin  uint32
	Length uint32
}

// Piece is the response to a Request; Block's length is inferred from the
// enclosing frame rather than carried explicitly.
type Piece struct {
	Index uint32
	Begin uint32
	Block []byte
}

// Cancel withdraws an outstanding Request.
type Cancel struct {
	Index  uint32
	Begin  uint32
	Length uint32
}

// Extended carries a capability-negotiated extension payload.
type Extended struct {
	ExtID   byte
	Payload []byte
}

func (Choke) MessageID() MessageID           { return IDChoke }
func (Unchoke) MessageID() MessageID         { return IDUnchoke }
func (Interested) MessageID() MessageID      { return IDInterested }
func (NotInterested) MessageID() MessageID   { return IDNotInterested }
func (Keepalive) MessageID() MessageID       { return IDKeepalive }
func (Have) MessageID() MessageID            { return IDHave }
func (BitfieldMessage) MessageID() MessageID { return IDBitfield }
func (Request) MessageID() MessageID         { return IDRequest }
func (Piece) MessageID() MessageID           { return IDPiece }
func (Cancel) MessageID() MessageID          { return IDCancel }
func (Extended) MessageID() MessageID        { return IDExtended }

// Encode renders m into a msgID/payload pair suitable for WriteFrame.
func Encode(m Message) (byte, []byte) {
	switch v := m.(type) {
	case Choke, Unchoke, Interested, NotInterested, Keepalive:
		return byte(m.MessageID()), nil
	case Have:
		var buf [4]byte
		binary.BigEndian.PutUint32(buf[:], v.Index)
		return byte(IDHave), buf[:]
	case BitfieldMessage:
		return byte(IDBitfield), v.Bits
	case Request:
		return byte(IDRequest), encodeThreeU32(v.Index, v.Begin, v.Length)
	case Piece:
		buf := make([]byte, 8+len(v.Block))
		binary.BigEndian.PutUint32(buf[0:4], v.Index)
		binary.BigEndian.PutUint32(buf[4:8], v.Begin)
		copy(buf[8:], v.Block)
		return byte(IDPiece), buf
	case Cancel:
		return byte(IDCancel), encodeThreeU32(v.Index, v.Begin, v.Length)
	case Extended:
		buf := make([]byte, 1+len(v.Payload))
		buf[0] = v.ExtID
		copy(buf[1:], v.Payload)
		return byte(IDExtended), buf
	default:
		panic(fmt.Sprintf("wire: unencodable message type %T", m))
	}
}

func encodeThreeU32(a, b, c uint32) []byte {
	buf := make([]byte, 12)
	binary.BigEndian.PutUint32(buf[0:4], a)
	binary.BigEndian.PutUint32(buf[4:8], b)
	binary.BigEndian.PutUint32(buf[8:12], c)
	return buf
}

// Decode interprets a msgID/payload pair read off the wire. Unknown IDs are
// a protocol error: receivers MUST terminate the connection rather than
// silently drop the message.
func Decode(msgID byte, payload []byte) (Message, error) {
	switch MessageID(msgID) {
	case IDChoke:
		return Choke{}, nil
	case IDUnchoke:
		return Unchoke{}, nil
	case IDInterested:
		return Interested{}, nil
	case IDNotInterested:
		return NotInterested{}, nil
	case IDKeepalive:
		return Keepalive{}, nil
	case IDHave:
		if len(payload) != 4 {
			return nil, protocolErr("wire.Decode", fmt.Errorf("Have payload must be 4 bytes, got %d", len(payload)))
		}
		return Have{Index: binary.BigEndian.Uint32(payload)}, nil
	case IDBitfield:
		bits := make([]byte, len(payload))
		copy(bits, payload)
		return BitfieldMessage{Bits: bits}, nil
	case IDRequest:
		if len(payload) != 12 {
			return nil, protocolErr("wire.Decode", fmt.Errorf("Request payload must be 12 bytes, got %d", len(payload)))
		}
		return Request{
			Index:  binary.BigEndian.Uint32(payload[0:4]),
			Begin:  binary.BigEndian.Uint32(payload[4:8]),
			Length: binary.BigEndian.Uint32(payload[8:12]),
		}, nil
	case IDPiece:
		if len(payload) < 8 {
			return nil, protocolErr("wire.Decode", fmt.Errorf("Piece payload must be at least 8 bytes, got %d", len(payload)))
		}
		block := make([]byte, len(payload)-8)
		copy(block, payload[8:])
		return Piece{
			Index: binary.BigEndian.Uint32(payload[0:4]),
			Begin: binary.BigEndian.Uint32(payload[4:8]),
			Block: block,
		}, nil
	case IDCancel:
		if len(payload) != 12 {
			return nil, protocolErr("wire.Decode", fmt.Errorf("Cancel payload must be 12 bytes, got %d", len(payload)))
		}
		return Cancel{
			Index:  binary.BigEndian.Uint32(payload[0:4]),
			Begin:  binary.BigEndian.Uint32(payload[4:8]),
			Length: binary.BigEndian.Uint32(payload[8:12]),
		}, nil
	case IDExtended:
		if len(payload) < 1 {
			return nil, protocolErr("wire.Decode", fmt.Errorf("Extended payload must be at least 1 byte"))
		}
		ext := make([]byte, len(payload)-1)
		copy(ext, payload[1:])
		return Extended{ExtID: payload[0], Payload: ext}, nil
	default:
		return nil, protocolErr("wire.Decode", fmt.Errorf("unknown message id %d", msgID))
	}
}

func protocolErr(op string, err error) *core.Error {
	return core.NewError(op, core.Protocol, err)
}
