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
package metainfo

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	bencode "github.com/jackpal/bencode-go"

	"github.com/uber/bitswap-torrent/core"
)

const clientVersion = "bitswap-torrent/1.0"

// Metadata is the in-memory, validated representation of a .bwt envelope.
// It is immutable after construction: callers that need a modified copy
// build a new Metadata rather than mutating one in place.
type Metadata struct {
	Name        string      `json:"name"`
	PieceLength int64       `json:"piece_length"`
	Pieces      []string    `json:"pieces"`
	Files       []FileEntry `json:"files"`

	InfoHash core.InfoHash `json:"info_hash"`

	Trackers  []string          `json:"trackers,omitempty"`
	WebSeed   []string          `json:"web_seed,omitempty"`
	Extra     map[string]string `json:"extra,omitempty"`
	CreatedBy string            `json:"created_by"`
	CreatedAt time.Time         `json:"created_at"`
}

// infoDict is the canonical, hashed subset of a Metadata: exactly these
// fields, under these bencode keys. Any reimplementation that hashes a
// differently-keyed or differently-typed encoding of the same logical
// fields computes a different info-hash and will not meet compatible peers
// in a swarm.
type infoDict struct {
	Name        string      `bencode:"name"`
	PieceLength int64       `bencode:"piece length"`
	Pieces      []string    `bencode:"pieces"`
	Files       []FileEntry `bencode:"files"`
}

// New constructs and validates a Metadata from already-computed pieces and
// files, deriving the info-hash. Used by FromFile/FromDirectory and by
// tests that want to build metadata without touching a filesystem.
func New(name string, pieceLength int64, pieces []string, files []FileEntry) (*Metadata, error) {
	m := &Metadata{
		Name:        name,
		PieceLength: pieceLength,
		Pieces:      pieces,
		Files:       files,
		CreatedBy:   clientVersion,
		CreatedAt:   time.Now().UTC(),
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	m.InfoHash = m.computeInfoHash()
	return m, nil
}

// Validate checks the invariants from spec.md §3: non-empty name, at least
// one piece hash of the correct width, at least one file entry, and that
// file lengths sum to the size implied by the piece list.
func (m *Metadata) Validate() error {
	if m.Name == "" {
		return metadataErr("metainfo.Validate", fmt.Errorf("empty name"))
	}
	if m.PieceLength <= 0 || m.PieceLength > math.MaxInt32 {
		return metadataErr("metainfo.Validate", fmt.Errorf("piece_length must be a positive int32: got %d", m.PieceLength))
	}
	if len(m.Pieces) == 0 {
		return metadataErr("metainfo.Validate", fmt.Errorf("no pieces"))
	}
	if len(m.Files) == 0 {
		return metadataErr("metainfo.Validate", fmt.Errorf("no files"))
	}
	for _, h := range m.Pieces {
		if err := core.ValidateSHA256(h); err != nil {
			return metadataErr("metainfo.Validate", fmt.Errorf("invalid piece hash %q: %s", h, err))
		}
	}
	seen := make(map[string]bool, len(m.Files))
	for _, f := range m.Files {
		if err := f.Validate(); err != nil {
			return err
		}
		joined := f.JoinedPath()
		if seen[joined] {
			return metadataErr("metainfo.Validate", fmt.Errorf("duplicate file path %q", joined))
		}
		seen[joined] = true
	}

	total := m.TotalSize()
	expectedPieceCount := int(math.Ceil(float64(total) / float64(m.PieceLength)))
	if expectedPieceCount == 0 {
		expectedPieceCount = 1
	}
	if expectedPieceCount != len(m.Pieces) {
		return metadataErr("metainfo.Validate", fmt.Errorf(
			"piece count mismatch: total size %d at piece_length %d implies %d pieces, got %d",
			total, m.PieceLength, expectedPieceCount, len(m.Pieces)))
	}
	return nil
}

// TotalSize returns the sum of all file lengths.
func (m *Metadata) TotalSize() int64 {
	var total int64
	for _, f := range m.Files {
		total += f.Length
	}
	return total
}

// PieceCount returns the number of pieces.
func (m *Metadata) PieceCount() int {
	return len(m.Pieces)
}

// PieceSize returns the exact size of piece i: PieceLength for every piece
// but the last, which is TotalSize() mod PieceLength (or PieceLength if
// that remainder is zero).
func (m *Metadata) PieceSize(i int) int64 {
	if i < m.PieceCount()-1 {
		return m.PieceLength
	}
	last := m.TotalSize() - int64(m.PieceCount()-1)*m.PieceLength
	if last <= 0 {
		return m.PieceLength
	}
	return last
}

// computeInfoHash hashes the bencoded canonical encoding of m's info
// fields, the same convention BitTorrent info dictionaries use: bencode
// sorts dictionary keys lexicographically, so the encoding is stable
// regardless of infoDict's Go field order.
func (m *Metadata) computeInfoHash() core.InfoHash {
	var buf bytes.Buffer
	if err := bencode.Marshal(&buf, infoDict{
		Name:        m.Name,
		PieceLength: m.PieceLength,
		Pieces:      m.Pieces,
		Files:       m.Files,
	}); err != nil {
		// infoDict contains only primitives, strings and slices thereof;
		// marshaling cannot fail.
		panic(err)
	}
	return core.NewInfoHashFromBytes(buf.Bytes())
}

// FromFile builds Metadata for a single file at path, piece hashing its
// contents in order.
func FromFile(path string, pieceLength int64) (*Metadata, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, metadataErr("metainfo.FromFile", err)
	}
	if info.IsDir() {
		return nil, metadataErr("metainfo.FromFile", fmt.Errorf("%s is a directory", path))
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, metadataErr("metainfo.FromFile", err)
	}
	defer f.Close()

	pieces, err := hashPieces([]io.Reader{f}, pieceLength)
	if err != nil {
		return nil, metadataErr("metainfo.FromFile", fmt.Errorf("hash %s: %s", path, err))
	}

	files := []FileEntry{{
		Path:   []string{filepath.Base(path)},
		Length: info.Size(),
	}}

	return New(filepath.Base(path), pieceLength, pieces, files)
}

// FromDirectory builds Metadata for every regular file under root,
// walking the tree in lexicographic order at each level so that the
// resulting piece hashes and info-hash are stable across platforms and
// filesystem iteration orders.
func FromDirectory(root string, pieceLength int64) (*Metadata, error) {
	var files []FileEntry
	var paths []string

	if err := walkSorted(root, root, &files, &paths); err != nil {
		return nil, metadataErr("metainfo.FromDirectory", err)
	}
	if len(files) == 0 {
		return nil, metadataErr("metainfo.FromDirectory", fmt.Errorf("no files found under %s", root))
	}

	readers := make([]io.Reader, 0, len(paths))
	closers := make([]io.Closer, 0, len(paths))
	defer func() {
		for _, c := range closers {
			c.Close()
		}
	}()
	for _, p := range paths {
		f, err := os.Open(p)
		if err != nil {
			return nil, metadataErr("metainfo.FromDirectory", err)
		}
		closers = append(closers, f)
		readers = append(readers, f)
	}

	pieces, err := hashPieces(readers, pieceLength)
	if err != nil {
		return nil, metadataErr("metainfo.FromDirectory", err)
	}

	return New(filepath.Base(root), pieceLength, pieces, files)
}

// walkSorted recursively collects FileEntry/absolute-path pairs for every
// regular file under dir, visiting entries at each level in lexicographic
// order and recursing depth-first.
func walkSorted(dir, root string, files *[]FileEntry, paths *[]string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	for _, e := range entries {
		full := filepath.Join(dir, e.Name())
		if e.IsDir() {
			if err := walkSorted(full, root, files, paths); err != nil {
				return err
			}
			continue
		}
		rel, err := filepath.Rel(root, full)
		if err != nil {
			return err
		}
		info, err := e.Info()
		if err != nil {
			return err
		}
		*files = append(*files, FileEntry{
			Path:   splitPath(rel),
			Length: info.Size(),
		})
		*paths = append(*paths, full)
	}
	return nil
}

func splitPath(rel string) []string {
	return strings.Split(filepath.ToSlash(rel), "/")
}
