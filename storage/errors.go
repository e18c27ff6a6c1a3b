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
	"fmt"

	"github.com/uber/bitswap-torrent/core"
)

func storageErr(op string, err error) *core.Error {
	return core.NewError(op, core.Storage, err)
}

func errLengthMismatch(index int, want, got int64) error {
	return fmt.Errorf("piece %d: expected %d bytes, got %d", index, want, got)
}

func errPieceNotAvailable(index int, state PieceState) error {
	return fmt.Errorf("piece %d not available: state is %s", index, state)
}
