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

// Package metainfo builds, validates, and serializes the .bwt metadata
// envelope: piece hashing over single or multi-file payloads and
// derivation of the info-hash that identifies a swarm.
package metainfo

import (
	"fmt"
	"path"
	"strings"

	"github.com/uber/bitswap-torrent/core"
)

// FileEntry describes one file within a torrent's payload: its path,
// relative to the torrent root, and its length in bytes.
type FileEntry struct {
	Path   []string `json:"path" bencode:"path"`
	Length int64    `json:"length" bencode:"length"`

	// FileHash is an optional whole-file digest. It is informational only
	// and is never consulted during piece verification.
	FileHash string `json:"file_hash,omitempty" bencode:"file_hash"`
}

// Validate checks that e's path components are well-formed: non-empty, no
// leading/trailing empty components, and no ".." traversal.
func (e FileEntry) Validate() error {
	if len(e.Path) == 0 {
		return core.NewError("metainfo.FileEntry.Validate", core.Metadata, fmt.Errorf("empty path"))
	}
	for _, c := range e.Path {
		if c == "" {
			return core.NewError("metainfo.FileEntry.Validate", core.Metadata, fmt.Errorf("path %v contains an empty component", e.Path))
		}
		if c == ".." {
			return core.NewError("metainfo.FileEntry.Validate", core.Metadata, fmt.Errorf("path %v escapes its root", e.Path))
		}
	}
	if e.Length < 0 {
		return core.NewError("metainfo.FileEntry.Validate", core.Metadata, fmt.Errorf("negative length for %v", e.Path))
	}
	return nil
}

// JoinedPath returns e.Path joined with "/", suitable for use as a relative
// filesystem path under a storage root.
func (e FileEntry) JoinedPath() string {
	return path.Join(e.Path...)
}

// String returns a human-readable rendering of e, used in error messages
// naming an offending file entry.
func (e FileEntry) String() string {
	return fmt.Sprintf("%s (%d bytes)", strings.Join(e.Path, "/"), e.Length)
}
