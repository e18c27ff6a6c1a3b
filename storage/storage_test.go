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
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"

	"github.com/andres-erbsen/clock"
	"github.com/stretchr/testify/require"

	"github.com/uber/bitswap-torrent/localdb"
	"github.com/uber/bitswap-torrent/metainfo"
)

func pieceHash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func newTestMetadata(t *testing.T, pieceLength int64, piece0, piece1 []byte) *metainfo.Metadata {
	t.Helper()
	m, err := metainfo.New("test.bin", pieceLength,
		[]string{pieceHash(piece0), pieceHash(piece1)},
		[]metainfo.FileEntry{{Path: []string{"test.bin"}, Length: int64(len(piece0) + len(piece1))}})
	require.NoError(t, err)
	return m
}

func TestWriteThenReadPiece(t *testing.T) {
	require := require.New(t)

	piece0 := []byte("0123456789")
	piece1 := []byte("abcdefghij")
	m := newTestMetadata(t, 10, piece0, piece1)

	s, err := Open(Config{Root: t.TempDir()}, m, nil, clock.NewMock(), nil)
	require.NoError(err)
	defer s.Close()

	require.Equal(Missing, s.State(0))
	require.NoError(s.WritePiece(0, piece0))
	require.Equal(Verified, s.State(0))

	got, err := s.ReadPiece(0)
	require.NoError(err)
	require.Equal(piece0, got)

	require.Equal(float64(50), s.CompletionPercentage())
}

func TestWritePieceCorruptionLeavesDiskUntouched(t *testing.T) {
	require := require.New(t)

	piece0 := []byte("0123456789")
	piece1 := []byte("abcdefghij")
	m := newTestMetadata(t, 10, piece0, piece1)

	root := t.TempDir()
	s, err := Open(Config{Root: root}, m, nil, clock.NewMock(), nil)
	require.NoError(err)
	defer s.Close()

	bad := []byte("XXXXXXXXXX")
	err = s.WritePiece(0, bad)
	require.Error(err)
	require.Equal(Corrupted, s.State(0))

	// Underlying file must not exist, or if created lazily by the cache,
	// must contain no bytes from the rejected write.
	full := filepath.Join(root, "test.bin")
	if data, statErr := os.ReadFile(full); statErr == nil {
		require.NotEqual(bad, data)
	}
}

func TestReadPieceNotVerifiedFails(t *testing.T) {
	require := require.New(t)

	piece0 := []byte("0123456789")
	piece1 := []byte("abcdefghij")
	m := newTestMetadata(t, 10, piece0, piece1)

	s, err := Open(Config{Root: t.TempDir()}, m, nil, clock.NewMock(), nil)
	require.NoError(err)
	defer s.Close()

	_, err = s.ReadPiece(1)
	require.Error(err)
}

func TestWritePieceWrongLengthFails(t *testing.T) {
	require := require.New(t)

	piece0 := []byte("0123456789")
	piece1 := []byte("abcdefghij")
	m := newTestMetadata(t, 10, piece0, piece1)

	s, err := Open(Config{Root: t.TempDir()}, m, nil, clock.NewMock(), nil)
	require.NoError(err)
	defer s.Close()

	err = s.WritePiece(0, []byte("short"))
	require.Error(err)
}

func TestOpenRescansExistingVerifiedPieces(t *testing.T) {
	require := require.New(t)

	piece0 := []byte("0123456789")
	piece1 := []byte("abcdefghij")
	m := newTestMetadata(t, 10, piece0, piece1)

	root := t.TempDir()
	require.NoError(os.WriteFile(filepath.Join(root, "test.bin"), append(piece0, piece1...), 0644))

	s, err := Open(Config{Root: root}, m, nil, clock.NewMock(), nil)
	require.NoError(err)
	defer s.Close()

	require.Equal(Verified, s.State(0))
	require.Equal(Verified, s.State(1))
	require.Equal(float64(100), s.CompletionPercentage())
}

func TestWritePieceOffloadsLargeHash(t *testing.T) {
	require := require.New(t)

	piece0 := make([]byte, hashOffloadThreshold)
	for i := range piece0 {
		piece0[i] = byte(i)
	}
	piece1 := []byte("abcdefghij")
	m := newTestMetadata(t, int64(len(piece0)), piece0, piece1)

	s, err := Open(Config{Root: t.TempDir()}, m, nil, clock.NewMock(), nil)
	require.NoError(err)
	defer s.Close()

	require.NoError(s.WritePiece(0, piece0))
	require.Equal(Verified, s.State(0))

	got, err := s.ReadPiece(0)
	require.NoError(err)
	require.Equal(piece0, got)
}

func TestResumeRoundTrip(t *testing.T) {
	require := require.New(t)

	db, cleanup := localdb.Fixture()
	defer cleanup()
	resume := NewResumeStore(db)

	piece0 := []byte("0123456789")
	piece1 := []byte("abcdefghij")
	m := newTestMetadata(t, 10, piece0, piece1)

	root := t.TempDir()
	s1, err := Open(Config{Root: root}, m, resume, clock.NewMock(), nil)
	require.NoError(err)
	require.NoError(s1.WritePiece(0, piece0))
	require.NoError(s1.Close())

	s2, err := Open(Config{Root: root}, m, resume, clock.NewMock(), nil)
	require.NoError(err)
	defer s2.Close()

	require.Equal(Verified, s2.State(0))
	require.Equal(int64(len(piece0)), s2.DownloadedBytes())
}
