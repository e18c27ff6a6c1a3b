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
package storage

import (
	"sync"

	"github.com/andres-erbsen/clock"
	"go.uber.org/atomic"
	"go.uber.org/zap"

	"github.com/uber/bitswap-torrent/core"
	"github.com/uber/bitswap-torrent/metainfo"
	"github.com/uber/bitswap-torrent/util/errutil"
)

// hashOffloadThreshold is the piece size at or above which WritePiece
// offloads its verification hash to a worker goroutine instead of
// computing it inline, per spec.md §5.
const hashOffloadThreshold = 256 * 1024

// hashWorkerPoolSize bounds the number of concurrent offloaded piece
// hashes, the same buffered-channel semaphore pattern origin/blobserver
// uses to gate concurrent downloads.
const hashWorkerPoolSize = 4

// Storage is the on-disk piece storage engine for a single torrent. It owns
// the piece-state machine, the cache of open file handles backing the
// torrent's files, and (optionally) a ResumeStore used to survive restarts
// without rescanning the whole payload from scratch.
type Storage struct {
	mu sync.Mutex

	metadata *metainfo.Metadata
	states   *pieceStates
	files    *fileCache
	resume   *ResumeStore
	clk      clock.Clock
	log      *zap.SugaredLogger

	// hashSem bounds concurrent offloaded piece-hash computations.
	hashSem chan struct{}

	downloaded atomic.Int64
	uploaded   atomic.Int64
}

// Open creates or reopens storage for m rooted at cfg.Root. If resume is
// non-nil and holds a record for m.InfoHash, piece states and byte counters
// are restored from it. Regardless, any piece not already known Verified is
// rescanned: if all of its file ranges exist on disk and hash-match, it is
// marked Verified.
func Open(cfg Config, m *metainfo.Metadata, resume *ResumeStore, clk clock.Clock, log *zap.SugaredLogger) (*Storage, error) {
	if clk == nil {
		clk = clock.New()
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}

	s := &Storage{
		metadata: m,
		states:   newPieceStates(m.PieceCount()),
		files:    newFileCache(cfg.Root),
		resume:   resume,
		clk:      clk,
		log:      log,
		hashSem:  make(chan struct{}, hashWorkerPoolSize),
	}

	if resume != nil {
		rd, ok, err := resume.Load(m.InfoHash)
		if err != nil {
			return nil, err
		}
		if ok && s.states.restore(rd.PieceStates) {
			s.downloaded.Store(rd.DownloadedBytes)
			s.uploaded.Store(rd.UploadedBytes)
		}
	}

	if err := s.rescan(); err != nil {
		return nil, err
	}
	return s, nil
}

// rescan verifies every piece not already marked Verified against whatever
// bytes currently exist on disk, promoting matches to Verified.
func (s *Storage) rescan() error {
	for i := 0; i < s.metadata.PieceCount(); i++ {
		if s.states.get(i) == Verified {
			continue
		}
		data, err := s.readRanges(i)
		if err != nil {
			// Missing or partial files: leave the piece Missing.
			continue
		}
		if s.hashMatches(i, data) {
			s.states.set(i, Verified)
			s.downloaded.Add(int64(len(data)))
		}
	}
	return nil
}

func (s *Storage) hashMatches(index int, data []byte) bool {
	actual, err := digestHex(data)
	if err != nil {
		return false
	}
	return actual == s.metadata.Pieces[index]
}

// digestHex returns data's hex SHA-256 digest via core.Digester.
func digestHex(data []byte) (string, error) {
	digester := core.NewDigester()
	digest, err := digester.FromBytes(data)
	if err != nil {
		return "", err
	}
	return digest.Hex(), nil
}

// hashPiece computes data's hex SHA-256 digest. Pieces at or above
// hashOffloadThreshold are hashed on a worker goroutine gated by hashSem,
// the same buffered-channel semaphore origin/blobserver uses to gate
// concurrent downloads, so a large piece's hash computation never runs
// while the caller holds s.mu. Callers MUST invoke this before acquiring
// s.mu.
func (s *Storage) hashPiece(data []byte) (string, error) {
	if int64(len(data)) < hashOffloadThreshold {
		return digestHex(data)
	}

	type result struct {
		hex string
		err error
	}
	done := make(chan result, 1)

	s.hashSem <- struct{}{}
	go func() {
		defer func() { <-s.hashSem }()
		hex, err := digestHex(data)
		done <- result{hex, err}
	}()

	r := <-done
	return r.hex, r.err
}

// readRanges reads the full payload of piece index from disk without
// touching piece state. It fails if any underlying file is shorter than
// the range it is expected to supply.
func (s *Storage) readRanges(index int) ([]byte, error) {
	ranges, err := s.metadata.PieceLayout(index)
	if err != nil {
		return nil, err
	}
	buf := make([]byte, 0, s.metadata.PieceSize(index))
	for _, r := range ranges {
		entry := s.metadata.Files[r.FileIndex]
		f, err := s.files.get(entry.JoinedPath())
		if err != nil {
			return nil, err
		}
		chunk := make([]byte, r.Length)
		if _, err := f.ReadAt(chunk, r.Offset); err != nil {
			return nil, err
		}
		buf = append(buf, chunk...)
	}
	return buf, nil
}

// WritePiece verifies data against piece index's expected hash and, on a
// match, writes each of the piece's file ranges to disk and persists a
// resume record. On a mismatch, no bytes are written, the piece is marked
// Corrupted, and a PieceVerificationFailed error is returned.
func (s *Storage) WritePiece(index int, data []byte) error {
	total := s.metadata.PieceCount()
	if index < 0 || index >= total {
		return core.NewInvalidPieceIndexError("storage.WritePiece", index, total)
	}
	if want := s.metadata.PieceSize(index); int64(len(data)) != want {
		return storageErr("storage.WritePiece", core.NewError(
			"storage.WritePiece", core.Storage,
			errLengthMismatch(index, want, int64(len(data)))))
	}

	s.mu.Lock()
	s.states.set(index, Downloading)
	s.mu.Unlock()

	// Hashed outside s.mu: large pieces offload onto a worker goroutine via
	// hashPiece, and no piece's verification should block every other
	// Storage call while it runs.
	actual, err := s.hashPiece(data)
	if err != nil {
		return storageErr("storage.WritePiece", err)
	}
	expected := s.metadata.Pieces[index]

	s.mu.Lock()
	defer s.mu.Unlock()

	if actual != expected {
		s.states.set(index, Corrupted)
		return core.NewPieceVerificationFailedError("storage.WritePiece", index, expected, actual)
	}

	ranges, err := s.metadata.PieceLayout(index)
	if err != nil {
		return err
	}
	var off int64
	for _, r := range ranges {
		entry := s.metadata.Files[r.FileIndex]
		f, err := s.files.get(entry.JoinedPath())
		if err != nil {
			return storageErr("storage.WritePiece", err)
		}
		if _, err := f.WriteAt(data[off:off+r.Length], r.Offset); err != nil {
			return storageErr("storage.WritePiece", err)
		}
		if err := f.Sync(); err != nil {
			return storageErr("storage.WritePiece", err)
		}
		off += r.Length
	}

	s.states.set(index, Verified)
	s.downloaded.Add(int64(len(data)))
	return s.persistResume()
}

// ReadPiece returns the verified bytes of piece index. It fails unless the
// piece is currently in the Verified state.
func (s *Storage) ReadPiece(index int) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	total := s.metadata.PieceCount()
	if index < 0 || index >= total {
		return nil, core.NewInvalidPieceIndexError("storage.ReadPiece", index, total)
	}
	if s.states.get(index) != Verified {
		return nil, storageErr("storage.ReadPiece", errPieceNotAvailable(index, s.states.get(index)))
	}
	data, err := s.readRanges(index)
	if err != nil {
		return nil, storageErr("storage.ReadPiece", err)
	}
	s.uploaded.Add(int64(len(data)))
	return data, nil
}

// State returns the current lifecycle state of piece index.
func (s *Storage) State(index int) PieceState {
	return s.states.get(index)
}

// CompletionPercentage returns the fraction of pieces in the Verified state,
// expressed as a percentage in [0, 100].
func (s *Storage) CompletionPercentage() float64 {
	total := s.metadata.PieceCount()
	if total == 0 {
		return 100
	}
	return 100 * float64(s.states.countVerified()) / float64(total)
}

// DownloadedBytes returns the cumulative count of bytes written via
// WritePiece and restored from resume state.
func (s *Storage) DownloadedBytes() int64 {
	return s.downloaded.Load()
}

// UploadedBytes returns the cumulative count of bytes returned via
// ReadPiece and restored from resume state.
func (s *Storage) UploadedBytes() int64 {
	return s.uploaded.Load()
}

func (s *Storage) persistResume() error {
	if s.resume == nil {
		return nil
	}
	return s.resume.Save(s.metadata.InfoHash, ResumeData{
		PieceStates:     s.states.snapshot(),
		DownloadedBytes: s.downloaded.Load(),
		UploadedBytes:   s.uploaded.Load(),
		UpdatedAt:       s.clk.Now(),
	})
}

// Close persists a final resume record and flushes and closes every open
// file handle, returning an aggregate of any errors encountered.
func (s *Storage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var errs []error
	if err := s.persistResume(); err != nil {
		errs = append(errs, err)
	}
	if err := s.files.close(); err != nil {
		errs = append(errs, err)
	}
	return errutil.Join(errs)
}
