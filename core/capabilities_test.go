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
package core

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCapabilitiesIntersect(t *testing.T) {
	require := require.New(t)

	var a Capabilities = 0b1011
	var b Capabilities = 0b0110

	require.Equal(Capabilities(0b0010), a.Intersect(b))
	require.True(a.Has(0b1000))
	require.False(a.Has(0b0100))
}

func TestCapabilitiesNone(t *testing.T) {
	require.Equal(t, Capabilities(0), CapabilitiesNone)
}
