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

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/uber/bitswap-torrent/core"
	"github.com/uber/bitswap-torrent/util/memsize"
)

// BandwidthConfig configures a BandwidthLimiter.
type BandwidthConfig struct {
	EgressBitsPerSec  uint64 `yaml:"egress_bits_per_sec"`
	IngressBitsPerSec uint64 `yaml:"ingress_bits_per_sec"`

	// TokenSize defines the granularity of a token in the bucket, avoiding
	// integer overflow from mapping each bit to a token.
	TokenSize uint64 `yaml:"token_size"`

	Disable bool `yaml:"disable"`
}

func (c BandwidthConfig) applyDefaults() BandwidthConfig {
	if c.EgressBitsPerSec == 0 {
		c.EgressBitsPerSec = 200 * memsize.Mbit
	}
	if c.IngressBitsPerSec == 0 {
		c.IngressBitsPerSec = 300 * memsize.Mbit
	}
	if c.TokenSize == 0 {
		c.TokenSize = memsize.Mbit
	}
	return c
}

// BandwidthLimiter limits egress and ingress bandwidth via a token-bucket
// rate limiter, one per direction.
type BandwidthLimiter struct {
	config  BandwidthConfig
	egress  *rate.Limiter
	ingress *rate.Limiter
}

// NewBandwidthLimiter creates a new BandwidthLimiter.
func NewBandwidthLimiter(config BandwidthConfig, logger *zap.SugaredLogger) *BandwidthLimiter {
	config = config.applyDefaults()
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	if config.Disable {
		logger.Warn("Bandwidth limits disabled")
	} else {
		logger.Infof("Setting egress bandwidth to %s/sec", memsize.BitFormat(config.EgressBitsPerSec))
		logger.Infof("Setting ingress bandwidth to %s/sec", memsize.BitFormat(config.IngressBitsPerSec))
	}

	etps := config.EgressBitsPerSec / config.TokenSize
	itps := config.IngressBitsPerSec / config.TokenSize

	return &BandwidthLimiter{
		config:  config,
		egress:  rate.NewLimiter(rate.Limit(etps), int(etps)),
		ingress: rate.NewLimiter(rate.Limit(itps), int(itps)),
	}
}

func (l *BandwidthLimiter) reserve(op string, rl *rate.Limiter, nbytes int64, peerID core.PeerID) error {
	if l.config.Disable {
		return nil
	}
	tokens := int(uint64(nbytes*8) / l.config.TokenSize)
	if tokens == 0 {
		tokens = 1
	}
	r := rl.ReserveN(time.Now(), tokens)
	if !r.OK() {
		return core.NewRateLimitExceededError(op, peerID.String())
	}
	time.Sleep(r.Delay())
	return nil
}

// ReserveEgress blocks until egress bandwidth for nbytes is available to
// serve peerID, or fails with a RateLimitExceeded error if the reservation
// cannot be satisfied.
func (l *BandwidthLimiter) ReserveEgress(nbytes int64, peerID core.PeerID) error {
	return l.reserve("client.BandwidthLimiter.ReserveEgress", l.egress, nbytes, peerID)
}

// ReserveIngress blocks until ingress bandwidth for nbytes is available from
// peerID, or fails with a RateLimitExceeded error if the reservation cannot
// be satisfied.
func (l *BandwidthLimiter) ReserveIngress(nbytes int64, peerID core.PeerID) error {
	return l.reserve("client.BandwidthLimiter.ReserveIngress", l.ingress, nbytes, peerID)
}
