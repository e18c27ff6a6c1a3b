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

// Package metrics wires a Client's piece/bandwidth/peer events to a
// tally.Scope, following spec.md's "out of scope: progress rendering"
// distinction between rendering a UI (not this package's job) and emitting
// the counters a UI or dashboard would read (this package's job).
package metrics

// Config selects and configures the metrics backend.
type Config struct {
	// Backend names the registered scope factory to use. Empty defaults
	// to "disabled".
	Backend string `yaml:"backend"`
}
