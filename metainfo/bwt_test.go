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
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	require := require.New(t)

	dir := t.TempDir()
	src := filepath.Join(dir, "payload.txt")
	require.NoError(os.WriteFile(src, []byte("Hello, BitSwapTorrent!"), 0644))

	m, err := FromFile(src, 1024)
	require.NoError(err)

	bwtPath := filepath.Join(dir, "payload.bwt")
	require.NoError(m.Save(bwtPath))

	loaded, err := Load(bwtPath)
	require.NoError(err)
	require.Equal(m.InfoHash, loaded.InfoHash)
	require.Equal(m.Name, loaded.Name)
	require.Equal(m.Pieces, loaded.Pieces)
}

func TestLoadRejectsTamperedInfoHash(t *testing.T) {
	require := require.New(t)

	dir := t.TempDir()
	src := filepath.Join(dir, "payload.txt")
	require.NoError(os.WriteFile(src, []byte("Hello, BitSwapTorrent!"), 0644))

	m, err := FromFile(src, 1024)
	require.NoError(err)

	b, err := m.MarshalBWT()
	require.NoError(err)

	tampered := make([]byte, len(b))
	copy(tampered, b)
	idx := indexOf(tampered, []byte(m.Pieces[0]))
	require.GreaterOrEqual(idx, 0)
	if tampered[idx] == 'a' {
		tampered[idx] = 'b'
	} else {
		tampered[idx] = 'a'
	}

	_, err = LoadBytes(tampered)
	require.Error(err)
}

func indexOf(haystack, needle []byte) int {
	for i := 0; i+len(needle) <= len(haystack); i++ {
		match := true
		for j := range needle {
			if haystack[i+j] != needle[j] {
				match = false
				break
			}
		}
		if match {
			return i
		}
	}
	return -1
}
