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
package client

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/uber/bitswap-torrent/core"
)

const (
	egress  = "egress"
	ingress = "ingress"
)

func reserve(l *BandwidthLimiter, nbytes int64, direction string) error {
	peerID, err := core.RandomPeerID()
	if err != nil {
		panic(err)
	}
	if direction == egress {
		return l.ReserveEgress(nbytes, peerID)
	}
	return l.ReserveIngress(nbytes, peerID)
}

func TestBandwidthLimiterReserveBytesTokenScaling(t *testing.T) {
	t.Parallel()

	for _, direction := range []string{egress, ingress} {
		t.Run(direction, func(t *testing.T) {
			require := require.New(t)

			bps := uint64(80) // 10 bytes.

			l := NewBandwidthLimiter(BandwidthConfig{
				EgressBitsPerSec:  bps,
				IngressBitsPerSec: bps,
				TokenSize:         10, // Bucket has 8 tokens.
			}, nil)

			start := time.Now()
			for i := 0; i < 4; i++ {
				// 6 bytes -> 48 bits, equal to 4 tokens.
				require.NoError(reserve(l, 6, direction))
			}
			require.InDelta(time.Second, time.Since(start), float64(50*time.Millisecond))
		})
	}
}

func TestBandwidthLimiterReserveBytesSmallerThanTokenSize(t *testing.T) {
	t.Parallel()

	for _, direction := range []string{egress, ingress} {
		t.Run(direction, func(t *testing.T) {
			require := require.New(t)

			bps := uint64(80) // 10 bytes.

			l := NewBandwidthLimiter(BandwidthConfig{
				EgressBitsPerSec:  bps,
				IngressBitsPerSec: bps,
				TokenSize:         10, // Bucket has 8 tokens.
			}, nil)

			start := time.Now()
			for i := 0; i < 16; i++ {
				// 1 byte -> 8 bits, smaller than the token size: one token.
				require.NoError(reserve(l, 1, direction))
			}
			require.InDelta(time.Second, time.Since(start), float64(50*time.Millisecond))
		})
	}
}

func TestBandwidthLimiterReserveErrorWhenBytesLargerThanBucket(t *testing.T) {
	t.Parallel()

	for _, direction := range []string{egress, ingress} {
		t.Run(direction, func(t *testing.T) {
			require := require.New(t)

			bps := uint64(80) // 10 bytes.

			l := NewBandwidthLimiter(BandwidthConfig{
				EgressBitsPerSec:  bps,
				IngressBitsPerSec: bps,
				TokenSize:         10, // Bucket has 8 tokens.
			}, nil)

			require.Error(reserve(l, 12, direction))
		})
	}
}

func TestBandwidthLimiterDisabled(t *testing.T) {
	require := require.New(t)

	l := NewBandwidthLimiter(BandwidthConfig{Disable: true}, nil)
	peerID, err := core.RandomPeerID()
	require.NoError(err)
	require.NoError(l.ReserveEgress(1<<40, peerID))
	require.NoError(l.ReserveIngress(1<<40, peerID))
}

func TestBandwidthLimiterReserveErrorIsRateLimitExceeded(t *testing.T) {
	require := require.New(t)

	l := NewBandwidthLimiter(BandwidthConfig{
		EgressBitsPerSec: 80,
		TokenSize:        10,
	}, nil)
	peerID, err := core.RandomPeerID()
	require.NoError(err)

	err = l.ReserveEgress(12, peerID)
	require.Error(err)
	require.Equal(core.RateLimitExceeded, core.KindOf(err))
}
