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

// FileRange is the intersection of a piece with a single underlying file:
// the bytes [Offset, Offset+Length) of the file at FileIndex belong to the
// piece that produced this range.
type FileRange struct {
	FileIndex int
	Offset    int64
	Length    int64
}

// PieceLayout computes, for a given piece index, the ordered list of
// FileRanges spanning that piece across m.Files. Files are walked in
// metadata order against a running logical offset; the algorithm is
// deterministic given the same Metadata on every node, which is required
// for reassembled bytes to line up identically everywhere.
func (m *Metadata) PieceLayout(index int) ([]FileRange, error) {
	if index < 0 || index >= m.PieceCount() {
		return nil, invalidPieceIndexErr("metainfo.PieceLayout", index, m.PieceCount())
	}

	start := int64(index) * int64(m.PieceLength)
	end := start + int64(m.PieceSize(index))

	var ranges []FileRange
	var cursor int64
	for i, f := range m.Files {
		fileStart := cursor
		fileEnd := cursor + f.Length
		cursor = fileEnd

		lo := max64(start, fileStart)
		hi := min64(end, fileEnd)
		if lo >= hi {
			continue
		}
		ranges = append(ranges, FileRange{
			FileIndex: i,
			Offset:    lo - fileStart,
			Length:    hi - lo,
		})
	}
	return ranges, nil
}

func max64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}

func min64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}
