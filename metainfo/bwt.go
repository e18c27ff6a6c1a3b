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
	"encoding/json"
	"fmt"
	"os"
)

// bwtEnvelope is the on-disk shape of a .bwt file: it carries the
// info-hash explicitly (rather than recomputing it on load) so that a
// tampered or hand-edited file is caught when LoadBytes recomputes the
// info-hash and compares it with the stored one, instead of silently accepted.
type bwtEnvelope struct {
	Metadata
}

// Load reads and validates a .bwt file at path.
func Load(path string) (*Metadata, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, metadataErr("metainfo.Load", err)
	}
	return LoadBytes(b)
}

// LoadBytes parses a .bwt envelope from raw bytes.
func LoadBytes(b []byte) (*Metadata, error) {
	var env bwtEnvelope
	if err := json.Unmarshal(b, &env); err != nil {
		return nil, metadataErr("metainfo.LoadBytes", fmt.Errorf("parse .bwt: %s", err))
	}
	m := env.Metadata
	if err := m.Validate(); err != nil {
		return nil, err
	}
	if got := m.computeInfoHash(); got != m.InfoHash {
		return nil, metadataErr("metainfo.LoadBytes", fmt.Errorf(
			"info_hash mismatch: file claims %s, recomputed %s", m.InfoHash, got))
	}
	return &m, nil
}

// Save writes m as a .bwt file at path. The file must end in ".bwt".
func (m *Metadata) Save(path string) error {
	b, err := m.MarshalBWT()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, b, 0644); err != nil {
		return metadataErr("metainfo.Save", err)
	}
	return nil
}

// MarshalBWT renders m as the JSON contents of a .bwt file.
func (m *Metadata) MarshalBWT() ([]byte, error) {
	b, err := json.MarshalIndent(bwtEnvelope{*m}, "", "  ")
	if err != nil {
		return nil, metadataErr("metainfo.MarshalBWT", err)
	}
	return b, nil
}
