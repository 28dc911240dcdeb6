// Copyright 2025 Flow State Labs
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

package chain

// SequenceKey orders events within a single entity by block then log index.
// No ordering exists across entities.
type SequenceKey struct {
	BlockNumber uint64
	LogIndex    uint64
}

// Compare returns -1, 0, or 1 as k orders before, equal to, or after other
func (k SequenceKey) Compare(other SequenceKey) int {
	switch {
	case k.BlockNumber < other.BlockNumber:
		return -1
	case k.BlockNumber > other.BlockNumber:
		return 1
	case k.LogIndex < other.LogIndex:
		return -1
	case k.LogIndex > other.LogIndex:
		return 1
	default:
		return 0
	}
}

// After reports whether k orders strictly after other
func (k SequenceKey) After(other SequenceKey) bool {
	return k.Compare(other) > 0
}
