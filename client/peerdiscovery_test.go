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
	"errors"
	"testing"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/stretchr/testify/require"

	"github.com/uber/bitswap-torrent/core"
)

func fastRetryingDHT(dht DHT) *retryingDHT {
	return &retryingDHT{
		dht: dht,
		backOff: func() backoff.BackOff {
			return &backoff.ExponentialBackOff{
				InitialInterval:     time.Millisecond,
				RandomizationFactor: 0,
				Multiplier:          1,
				MaxInterval:         time.Millisecond,
				MaxElapsedTime:      50 * time.Millisecond,
				Clock:               backoff.SystemClock,
			}
		},
	}
}

type fakeDHT struct {
	failures   int
	findCalls  int
	announceErr error
}

func (f *fakeDHT) FindPeers(infoHash core.InfoHash) ([]string, error) {
	f.findCalls++
	if f.findCalls <= f.failures {
		return nil, errors.New("transient failure")
	}
	return []string{"10.0.0.1:6881"}, nil
}

func (f *fakeDHT) Announce(infoHash core.InfoHash, port int) error {
	return f.announceErr
}

func TestRetryingDHTRetriesFindPeers(t *testing.T) {
	require := require.New(t)

	fake := &fakeDHT{failures: 2}
	dht := fastRetryingDHT(fake)

	addrs, err := dht.FindPeers(core.InfoHash{})
	require.NoError(err)
	require.Equal([]string{"10.0.0.1:6881"}, addrs)
	require.Equal(3, fake.findCalls)
}

func TestRetryingDHTAnnouncePropagatesPersistentError(t *testing.T) {
	require := require.New(t)

	fake := &fakeDHT{announceErr: errors.New("permanent failure")}
	dht := fastRetryingDHT(fake)

	err := dht.Announce(core.InfoHash{}, 6881)
	require.Error(err)
}
