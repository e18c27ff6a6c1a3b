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
	"fmt"
	"io"
	"time"

	"github.com/andres-erbsen/clock"
	"github.com/uber-go/tally"
	"github.com/willf/bitset"
	"go.uber.org/zap"

	"github.com/uber/bitswap-torrent/core"
	"github.com/uber/bitswap-torrent/metainfo"
	"github.com/uber/bitswap-torrent/metrics"
	"github.com/uber/bitswap-torrent/peer"
	"github.com/uber/bitswap-torrent/scheduler"
	"github.com/uber/bitswap-torrent/storage"
	"github.com/uber/bitswap-torrent/wire"
)

func errMaxPeersReached(max int) error {
	return fmt.Errorf("max_peers reached: %d", max)
}

// bitsetFromBitfield converts a wire-exact Bitfield into the *bitset.BitSet
// representation the Scheduler tracks peer availability with. The two
// types exist for different reasons (Bitfield is wire-exact; bitset is an
// efficient in-memory set) and are bridged only at this boundary.
func bitsetFromBitfield(bf *wire.Bitfield) *bitset.BitSet {
	b := bitset.New(uint(bf.NumPieces()))
	for i := 0; i < bf.NumPieces(); i++ {
		if bf.Test(i) {
			b.Set(uint(i))
		}
	}
	return b
}

// Client is the lifecycle facade for a single torrent session: it wires
// together Metadata, Storage, Scheduler, and the peer table, and is the
// single entry point a connection driver (out of scope here; see spec.md
// §1) uses to drive a download or seed.
//
// Client owns no sockets. It only tracks index and byte-range bookkeeping
// and reports what a connection driver should do next.
type Client struct {
	config   Config
	metadata *metainfo.Metadata
	storage  *storage.Storage
	sched    *scheduler.Scheduler
	peers    *peer.Table
	bw       *BandwidthLimiter
	dht      DHT
	clk      clock.Clock
	log      *zap.SugaredLogger
	stats    tally.Scope
	closer   io.Closer

	// peerSem enforces cfg.MaxPeers, the same buffered-channel semaphore
	// pattern the origin blobserver uses to gate concurrent downloads.
	peerSem chan struct{}
}

// New constructs a Client for an already-validated Metadata, opening
// Storage at cfg.DataDir and wiring up a Scheduler sized to the torrent's
// piece count.
func New(cfg Config, m *metainfo.Metadata, resume *storage.ResumeStore, dht DHT, log *zap.SugaredLogger) (*Client, error) {
	cfg = cfg.applyDefaults()
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	clk := clock.New()

	s, err := storage.Open(storage.Config{Root: cfg.DataDir}, m, resume, clk, log)
	if err != nil {
		return nil, err
	}

	var discovery DHT
	if cfg.EnableDHT && dht != nil {
		discovery = NewRetryingDHT(dht)
	}

	stats, closer, err := metrics.New(cfg.Metrics)
	if err != nil {
		s.Close()
		return nil, err
	}

	return &Client{
		config:   cfg,
		metadata: m,
		storage:  s,
		sched:    scheduler.New(cfg.Scheduler, m.PieceCount(), nil),
		peers:    peer.NewTable(),
		bw:       NewBandwidthLimiter(cfg.Bandwidth, log),
		dht:      discovery,
		clk:      clk,
		log:      log,
		stats:    stats,
		closer:   closer,
		peerSem:  make(chan struct{}, cfg.MaxPeers),
	}, nil
}

// InfoHash returns the identifying info-hash of the torrent this Client is
// serving.
func (c *Client) InfoHash() core.InfoHash {
	return c.metadata.InfoHash
}

// Bitfield returns a snapshot of the locally Verified pieces, suitable for
// sending in a Bitfield message to a newly-connected peer.
func (c *Client) Bitfield() (*wire.Bitfield, error) {
	n := c.metadata.PieceCount()
	bf := wire.NewBitfield(n)
	for i := 0; i < n; i++ {
		if c.storage.State(i) == storage.Verified {
			if err := bf.Set(i); err != nil {
				return nil, err
			}
		}
	}
	return bf, nil
}

// AddPeer registers addr as a connected peer, first claiming a slot from
// the MaxPeers semaphore. It fails with a Peer error if the session is
// already at capacity; the connection driver should reject the peer.
func (c *Client) AddPeer(peerID core.PeerID, addr string) error {
	select {
	case c.peerSem <- struct{}{}:
	default:
		return core.NewError("client.AddPeer", core.Peer, errMaxPeersReached(c.config.MaxPeers))
	}
	c.peers.Add(peerID, addr, c.clk.Now())
	return nil
}

// RemovePeer marks peerID disconnected, releases its scheduler state, and
// frees its MaxPeers slot.
func (c *Client) RemovePeer(peerID core.PeerID) {
	c.peers.Remove(peerID)
	c.sched.NoteDisconnect(peerID)
	select {
	case <-c.peerSem:
	default:
	}
}

// NoteBitfield records peerID's advertised piece set.
func (c *Client) NoteBitfield(peerID core.PeerID, bf *wire.Bitfield) {
	c.sched.NoteBitfield(peerID, bitsetFromBitfield(bf))
}

// NoteHave records that peerID now advertises piece idx.
func (c *Client) NoteHave(peerID core.PeerID, idx int) {
	c.sched.NoteHave(peerID, idx)
}

// NextRequest selects the next piece to request from peerID, reserving
// ingress bandwidth for one piece's worth of bytes.
func (c *Client) NextRequest(peerID core.PeerID) (int, bool, error) {
	idx, ok := c.sched.NextRequest(peerID)
	if !ok {
		return 0, false, nil
	}
	if err := c.bw.ReserveIngress(c.metadata.PieceSize(idx), peerID); err != nil {
		c.sched.NoteFailed(peerID, idx)
		return 0, false, err
	}
	return idx, true, nil
}

// HandlePieceReceived verifies and writes piece idx's bytes, updating
// scheduler and peer-table state accordingly. On a verification failure,
// the piece is returned to the candidate pool for reassignment.
func (c *Client) HandlePieceReceived(peerID core.PeerID, idx int, data []byte) error {
	if err := c.storage.WritePiece(idx, data); err != nil {
		c.sched.NoteFailed(peerID, idx)
		c.stats.Counter("pieces.corrupted").Inc(1)
		return err
	}
	c.sched.NoteCompleted(peerID, idx)
	c.peers.AddDownloaded(peerID, int64(len(data)))
	c.stats.Counter("pieces.verified").Inc(1)
	c.stats.Counter("bytes.downloaded").Inc(int64(len(data)))
	return nil
}

// HandlePieceRequested reserves egress bandwidth and returns the verified
// bytes of piece idx to serve to peerID.
func (c *Client) HandlePieceRequested(peerID core.PeerID, idx int) ([]byte, error) {
	data, err := c.storage.ReadPiece(idx)
	if err != nil {
		return nil, err
	}
	if err := c.bw.ReserveEgress(int64(len(data)), peerID); err != nil {
		return nil, err
	}
	c.peers.AddUploaded(peerID, int64(len(data)))
	c.stats.Counter("bytes.uploaded").Inc(int64(len(data)))
	return data, nil
}

// CompletionPercentage returns the fraction of pieces verified locally.
func (c *Client) CompletionPercentage() float64 {
	return c.storage.CompletionPercentage()
}

// Announce registers this session with the DHT, if enabled.
func (c *Client) Announce(port int) error {
	if c.dht == nil {
		return nil
	}
	return c.dht.Announce(c.metadata.InfoHash, port)
}

// FindPeers queries the DHT for peers serving this torrent, if enabled.
func (c *Client) FindPeers() ([]string, error) {
	if c.dht == nil {
		return nil, nil
	}
	return c.dht.FindPeers(c.metadata.InfoHash)
}

// Close flushes Storage to disk, persists its final resume record, and
// releases the metrics reporter.
func (c *Client) Close() error {
	defer c.closer.Close()
	return c.storage.Close()
}

// ExpireTimedOutRequests releases every outstanding piece request older
// than requestTimeout back to the scheduler's candidate pool, returning the
// pieces a connection driver should re-request from a different peer, per
// spec.md §5's per-block timeout.
func (c *Client) ExpireTimedOutRequests() []scheduler.ExpiredRequest {
	return c.sched.ExpireTimedOut(requestTimeout)
}

// idleKeepaliveInterval is the duration of inactivity on a connection
// before a Keepalive must be sent, per spec.md §5.
const idleKeepaliveInterval = 2 * time.Minute

// requestTimeout is the recommended per-block timeout after which an
// outstanding Request is re-issued to another peer, per spec.md §5.
const requestTimeout = 60 * time.Second
