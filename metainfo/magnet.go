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
	"fmt"
	"net/url"
	"strings"
)

// MagnetURL renders m as a magnet link: the info-hash, display name, and
// any trackers/web-seeds, each URL-encoded.
func (m *Metadata) MagnetURL() string {
	var b strings.Builder
	fmt.Fprintf(&b, "magnet:?xt=urn:btih:%s", m.InfoHash.Hex())
	fmt.Fprintf(&b, "&dn=%s", url.QueryEscape(m.Name))
	for _, tr := range m.Trackers {
		fmt.Fprintf(&b, "&tr=%s", url.QueryEscape(tr))
	}
	for _, ws := range m.WebSeed {
		fmt.Fprintf(&b, "&ws=%s", url.QueryEscape(ws))
	}
	return b.String()
}
