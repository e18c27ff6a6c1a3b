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
	"errors"
	"fmt"
)

// Kind classifies an Error into the client's closed error taxonomy. Callers
// switch on Kind rather than matching error strings or using errors.Is
// against sentinel values.
type Kind int

const (
	// Other is the zero value. It is also what KindOf reports for errors
	// that are not *Error values, such as the plain errors returned by
	// LoadConfig or wire.ReadFrame.
	Other Kind = iota
	Io
	Serialization
	Transport
	Dht
	Peer
	Protocol
	Metadata
	Storage
	Crypto
	Config
	PieceVerificationFailed
	InvalidTorrent
	PeerDisconnected
	RateLimitExceeded
	InvalidPieceIndex
)

func (k Kind) String() string {
	switch k {
	case Io:
		return "io"
	case Serialization:
		return "serialization"
	case Transport:
		return "transport"
	case Dht:
		return "dht"
	case Peer:
		return "peer"
	case Protocol:
		return "protocol"
	case Metadata:
		return "metadata"
	case Storage:
		return "storage"
	case Crypto:
		return "crypto"
	case Config:
		return "config"
	case PieceVerificationFailed:
		return "piece_verification_failed"
	case InvalidTorrent:
		return "invalid_torrent"
	case PeerDisconnected:
		return "peer_disconnected"
	case RateLimitExceeded:
		return "rate_limit_exceeded"
	case InvalidPieceIndex:
		return "invalid_piece_index"
	default:
		return "other"
	}
}

// Error is the single error type returned across package boundaries in this
// module. Op names the failing operation (e.g. "storage.WritePiece") for
// logging; Err wraps the underlying cause, if any.
type Error struct {
	Kind Kind
	Op   string
	Err  error

	// Fields set only for the Kind that names them.
	PieceIndex   int    // PieceVerificationFailed, InvalidPieceIndex
	ExpectedHash string // PieceVerificationFailed
	ActualHash   string // PieceVerificationFailed
	TotalPieces  int    // InvalidPieceIndex
	PeerID       string // PeerDisconnected, RateLimitExceeded
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Op, e.Kind)
	switch e.Kind {
	case PieceVerificationFailed:
		msg += fmt.Sprintf(" (piece %d: expected %s, got %s)", e.PieceIndex, e.ExpectedHash, e.ActualHash)
	case InvalidPieceIndex:
		msg += fmt.Sprintf(" (index %d, total %d)", e.PieceIndex, e.TotalPieces)
	case PeerDisconnected, RateLimitExceeded:
		msg += fmt.Sprintf(" (peer %s)", e.PeerID)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap allows errors.Is/errors.As to see through to the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// NewError constructs a plain *Error of the given kind.
func NewError(op string, kind Kind, err error) *Error {
	return &Error{Op: op, Kind: kind, Err: err}
}

// NewPieceVerificationFailedError reports a piece hash mismatch.
func NewPieceVerificationFailedError(op string, idx int, expected, actual string) *Error {
	return &Error{
		Op:           op,
		Kind:         PieceVerificationFailed,
		PieceIndex:   idx,
		ExpectedHash: expected,
		ActualHash:   actual,
	}
}

// NewInvalidPieceIndexError reports an out-of-range piece index.
func NewInvalidPieceIndexError(op string, idx, total int) *Error {
	return &Error{
		Op:          op,
		Kind:        InvalidPieceIndex,
		PieceIndex:  idx,
		TotalPieces: total,
	}
}

// NewPeerDisconnectedError reports that peerID disconnected mid-operation.
func NewPeerDisconnectedError(op string, peerID string) *Error {
	return &Error{Op: op, Kind: PeerDisconnected, PeerID: peerID}
}

// NewRateLimitExceededError reports that peerID exceeded its rate budget.
func NewRateLimitExceededError(op string, peerID string) *Error {
	return &Error{Op: op, Kind: RateLimitExceeded, PeerID: peerID}
}

// KindOf returns the Kind of err if it is (or wraps) an *Error, and Other
// otherwise.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Other
}
