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
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMagnetURL(t *testing.T) {
	require := require.New(t)

	files := []FileEntry{{Path: []string{"a.txt"}, Length: 4}}
	m, err := New("test", 1024, []string{hexDigest("abcd")}, files)
	require.NoError(err)
	m.Trackers = []string{"http://tracker.example.com:8080/announce"}

	magnet := m.MagnetURL()
	require.True(strings.HasPrefix(magnet, "magnet:?xt=urn:btih:"+m.InfoHash.Hex()))
	require.Contains(magnet, "dn=test")
	require.Contains(magnet, "tr=http%3A%2F%2Ftracker.example.com%3A8080%2Fannounce")
}
