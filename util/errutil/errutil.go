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

// Package errutil provides helpers for aggregating multiple errors into one.
package errutil

import "strings"

// MultiError joins a list of errors into a single error whose message is a
// comma-separated concatenation of each error's message. An empty list
// produces an empty (but non-nil) error message.
type MultiError []error

// Error implements the error interface.
func (e MultiError) Error() string {
	msgs := make([]string, len(e))
	for i, err := range e {
		msgs[i] = err.Error()
	}
	return strings.Join(msgs, ", ")
}

// Join returns a single error representing errs, or nil if errs is empty.
// Used by components which must attempt several independent operations
// (e.g. closing multiple file handles) and report all failures together.
func Join(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	return MultiError(errs)
}
