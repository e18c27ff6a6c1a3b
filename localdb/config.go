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

// Package localdb wraps a locally embedded SQLite database used to persist
// per-torrent resume state across process restarts.
package localdb

// Config defines the local database.
type Config struct {
	// Source is the filesystem path to the SQLite database file. Created
	// if it does not already exist.
	Source string `yaml:"source"`
}
