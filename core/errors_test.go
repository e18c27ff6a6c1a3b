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
	"testing"

	"github.com/stretchr/testify/require"
)

func TestErrorKindOf(t *testing.T) {
	require := require.New(t)

	err := NewPieceVerificationFailedError("storage.WritePiece", 3, "aaaa", "bbbb")
	require.Equal(PieceVerificationFailed, KindOf(err))
	require.Equal(Other, KindOf(errors.New("plain error")))
}

func TestErrorUnwrap(t *testing.T) {
	require := require.New(t)

	cause := errors.New("disk full")
	err := NewError("storage.WritePiece", Io, cause)
	require.Equal(cause, errors.Unwrap(err))
}

func TestErrorMessages(t *testing.T) {
	tests := []struct {
		desc string
		err  *Error
	}{
		{"piece verification", NewPieceVerificationFailedError("op", 1, "a", "b")},
		{"invalid piece index", NewInvalidPieceIndexError("op", 5, 3)},
		{"peer disconnected", NewPeerDisconnectedError("op", "deadbeef")},
		{"rate limit exceeded", NewRateLimitExceededError("op", "deadbeef")},
		{"plain", NewError("op", Storage, errors.New("cause"))},
	}
	for _, test := range tests {
		t.Run(test.desc, func(t *testing.T) {
			require.NotEmpty(t, test.err.Error())
		})
	}
}
