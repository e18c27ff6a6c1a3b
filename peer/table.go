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

// Package peer maintains the directory of peers known to a torrent session.
// It does not manage sockets: it is a directory consulted by the connection
// driver and updated as connections come and go.
package peer

import (
	"sort"
	"sync"
	"time"

	"github.com/uber/bitswap-torrent/core"
)

// Stats accumulates monotonically over the lifetime of a peer entry.
type Stats struct {
	UploadedBytes   int64
	DownloadedBytes int64
	ConnectedAt     time.Time
}

// Entry is one peer's directory record.
type Entry struct {
	PeerID    core.PeerID
	Addr      string
	Connected bool
	Stats     Stats
}

// Table is a concurrency-safe directory of peers known to a torrent
// session, keyed by peer id.
type Table struct {
	mu      sync.RWMutex
	entries map[core.PeerID]*Entry
}

// NewTable constructs an empty Table.
func NewTable() *Table {
	return &Table{entries: make(map[core.PeerID]*Entry)}
}

// Add registers a new peer at addr, or marks an existing entry connected if
// one is already present for peerID.
func (t *Table) Add(peerID core.PeerID, addr string, now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.entries[peerID]
	if !ok {
		e = &Entry{PeerID: peerID}
		t.entries[peerID] = e
	}
	e.Addr = addr
	e.Connected = true
	e.Stats.ConnectedAt = now
}

// Remove marks peerID disconnected. The entry and its accumulated stats are
// retained so reconnection does not lose history.
func (t *Table) Remove(peerID core.PeerID) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if e, ok := t.entries[peerID]; ok {
		e.Connected = false
	}
}

// AddUploaded adds n bytes to peerID's uploaded total. No-op if peerID is
// not in the table.
func (t *Table) AddUploaded(peerID core.PeerID, n int64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if e, ok := t.entries[peerID]; ok {
		e.Stats.UploadedBytes += n
	}
}

// AddDownloaded adds n bytes to peerID's downloaded total. No-op if peerID
// is not in the table.
func (t *Table) AddDownloaded(peerID core.PeerID, n int64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if e, ok := t.entries[peerID]; ok {
		e.Stats.DownloadedBytes += n
	}
}

// Get returns a copy of peerID's entry, if present.
func (t *Table) Get(peerID core.PeerID) (Entry, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	e, ok := t.entries[peerID]
	if !ok {
		return Entry{}, false
	}
	return *e, true
}

// Enumerate returns a copy of every entry in the table, sorted by peer id
// for deterministic iteration.
func (t *Table) Enumerate() []Entry {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]Entry, 0, len(t.entries))
	for _, e := range t.entries {
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].PeerID.LessThan(out[j].PeerID)
	})
	return out
}

// Connected returns every currently-connected entry, sorted by peer id.
func (t *Table) Connected() []Entry {
	all := t.Enumerate()
	out := all[:0]
	for _, e := range all {
		if e.Connected {
			out = append(out, e)
		}
	}
	return out
}
