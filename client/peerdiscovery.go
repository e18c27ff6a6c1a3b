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
	"time"

	"github.com/cenkalti/backoff"

	"github.com/uber/bitswap-torrent/core"
)

// DHT is the narrow peer-discovery collaborator a Client relies on. Its
// implementation is not specified here; it is provided by whatever DHT
// library or service the deployment wires in.
type DHT interface {
	FindPeers(infoHash core.InfoHash) ([]string, error)
	Announce(infoHash core.InfoHash, port int) error
}

// retryingDHT wraps a DHT so that its failures are retried with exponential
// backoff rather than propagated on the first transient error, per spec.md
// §7's "DHT failures are non-fatal and retried".
type retryingDHT struct {
	dht     DHT
	backOff func() backoff.BackOff
}

// NewRetryingDHT wraps dht so that FindPeers/Announce calls are retried with
// exponential backoff before giving up.
func NewRetryingDHT(dht DHT) DHT {
	return &retryingDHT{dht: dht, backOff: defaultBackOff}
}

func defaultBackOff() backoff.BackOff {
	b := &backoff.ExponentialBackOff{
		InitialInterval:     time.Second,
		RandomizationFactor: 0.1,
		Multiplier:          1.5,
		MaxInterval:         30 * time.Second,
		MaxElapsedTime:      2 * time.Minute,
		Clock:               backoff.SystemClock,
	}
	b.Reset()
	return b
}

func (r *retryingDHT) FindPeers(infoHash core.InfoHash) ([]string, error) {
	var addrs []string
	operation := func() error {
		var err error
		addrs, err = r.dht.FindPeers(infoHash)
		return err
	}
	if err := backoff.Retry(operation, r.backOff()); err != nil {
		return nil, err
	}
	return addrs, nil
}

func (r *retryingDHT) Announce(infoHash core.InfoHash, port int) error {
	operation := func() error {
		return r.dht.Announce(infoHash, port)
	}
	return backoff.Retry(operation, r.backOff())
}
