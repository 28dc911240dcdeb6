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

package dispute

import (
	"github.com/flowstate-labs/flowd/database/models"
	"github.com/flowstate-labs/flowd/database/types"
)

// ComputeRuling decides the outcome from the revealed tallies. A tie is a
// distinct no-decision outcome; it is not a win for either party, and
// downstream consumers must branch on it separately.
func ComputeRuling(
	requesterVotes, challengerVotes types.BigInt,
) models.Ruling {
	switch requesterVotes.Cmp(challengerVotes) {
	case 1:
		return models.RulingApproved
	case -1:
		return models.RulingRejected
	default:
		return models.RulingNoDecision
	}
}
