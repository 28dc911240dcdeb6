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
	"testing"

	"github.com/flowstate-labs/flowd/database/models"
	"github.com/flowstate-labs/flowd/database/types"
	"github.com/stretchr/testify/assert"
)

func testDispute() *models.Dispute {
	return &models.Dispute{
		ChainID:             1,
		Arbitrator:          "0xarb",
		DisputeID:           "7",
		VotingStartTime:     1000,
		VotingEndTime:       2000,
		RevealPeriodEndTime: 3000,
	}
}

func TestPhaseAt(t *testing.T) {
	d := testDispute()
	assert.Equal(t, PhaseAbsent, PhaseAt(nil, 0))
	assert.Equal(t, PhaseClearingRequested, PhaseAt(d, 500))
	assert.Equal(t, PhaseVotingOpen, PhaseAt(d, 1000))
	assert.Equal(t, PhaseVotingOpen, PhaseAt(d, 1999))
	assert.Equal(t, PhaseRevealPeriod, PhaseAt(d, 2000))
	// Still the reveal phase after the window closes, until executed
	assert.Equal(t, PhaseRevealPeriod, PhaseAt(d, 5000))
	d.IsExecuted = true
	assert.Equal(t, PhaseExecuted, PhaseAt(d, 500))
}

func TestRevealWindowOpen(t *testing.T) {
	d := testDispute()
	assert.False(t, RevealWindowOpen(d, 1999))
	assert.True(t, RevealWindowOpen(d, 2000))
	assert.True(t, RevealWindowOpen(d, 2999))
	assert.False(t, RevealWindowOpen(d, 3000))
	d.IsExecuted = true
	assert.False(t, RevealWindowOpen(d, 2500))
}

func TestComputeRuling(t *testing.T) {
	votes := types.NewBigInt
	assert.Equal(
		t,
		models.RulingApproved,
		ComputeRuling(votes(10), votes(5)),
	)
	assert.Equal(
		t,
		models.RulingRejected,
		ComputeRuling(votes(5), votes(10)),
	)
	// A tie is neither win: distinct no-decision outcome
	assert.Equal(
		t,
		models.RulingNoDecision,
		ComputeRuling(votes(7), votes(7)),
	)
	assert.Equal(
		t,
		models.RulingNoDecision,
		ComputeRuling(types.BigInt{}, types.BigInt{}),
	)
}
