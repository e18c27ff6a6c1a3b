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
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/uber/bitswap-torrent/core"
)

// ResumeData is the persisted state Storage needs to resume a torrent
// across process restarts without a full on-disk rescan.
type ResumeData struct {
	InfoHashHex     string    `db:"info_hash_hex"`
	PieceStates     []byte    `db:"piece_states"`
	DownloadedBytes int64     `db:"downloaded_bytes"`
	UploadedBytes   int64     `db:"uploaded_bytes"`
	UpdatedAt       time.Time `db:"updated_at"`
}

// ResumeStore persists ResumeData keyed by info-hash in the embedded
// key-value store. All access is serialized through Storage; ResumeStore
// itself does no locking of its own beyond what the underlying *sqlx.DB
// provides.
type ResumeStore struct {
	db *sqlx.DB
}

// NewResumeStore wraps an already-migrated database handle.
func NewResumeStore(db *sqlx.DB) *ResumeStore {
	return &ResumeStore{db: db}
}

// Load returns the resume record for infoHash, if one exists. A missing
// record is not an error: the caller falls back to scanning the storage
// root from scratch.
func (s *ResumeStore) Load(infoHash core.InfoHash) (*ResumeData, bool, error) {
	var rows []ResumeData
	err := s.db.Select(&rows,
		`SELECT info_hash_hex, piece_states, downloaded_bytes, uploaded_bytes, updated_at
		 FROM resume_state WHERE info_hash_hex = ?`, infoHash.Hex())
	if err != nil {
		return nil, false, storageErr("storage.ResumeStore.Load", err)
	}
	if len(rows) == 0 {
		return nil, false, nil
	}
	return &rows[0], true, nil
}

// Save upserts the resume record for infoHash.
func (s *ResumeStore) Save(infoHash core.InfoHash, data ResumeData) error {
	data.InfoHashHex = infoHash.Hex()
	_, err := s.db.Exec(
		`INSERT INTO resume_state (info_hash_hex, piece_states, downloaded_bytes, uploaded_bytes, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(info_hash_hex) DO UPDATE SET
			piece_states = excluded.piece_states,
			downloaded_bytes = excluded.downloaded_bytes,
			uploaded_bytes = excluded.uploaded_bytes,
			updated_at = excluded.updated_at`,
		data.InfoHashHex, data.PieceStates, data.DownloadedBytes, data.UploadedBytes, data.UpdatedAt)
	if err != nil {
		return storageErr("storage.ResumeStore.Save", err)
	}
	return nil
}
