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

package database

import (
	"testing"

	"github.com/flowstate-labs/flowd/database/models"
	"github.com/flowstate-labs/flowd/database/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testStoreDispute(disputeID string) *models.Dispute {
	return &models.Dispute{
		ChainID:             1,
		Arbitrator:          "0xarb",
		DisputeID:           disputeID,
		GrantID:             "0xgrant",
		VotingStartTime:     1000,
		VotingEndTime:       2000,
		RevealPeriodEndTime: 3000,
	}
}

func TestSetDisputeUpsert(t *testing.T) {
	db := newTestDatabase(t)
	dispute := testStoreDispute("7")
	require.NoError(t, db.SetDispute(dispute, nil))
	firstID := dispute.ID

	update := testStoreDispute("7")
	update.RequesterPartyVotes = types.NewBigInt(3)
	require.NoError(t, db.SetDispute(update, nil))
	assert.Equal(t, firstID, update.ID)

	got, err := db.GetDispute(1, "0xarb", "7", nil)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "3", got.RequesterPartyVotes.String())
}

func TestSetDisputeExecutedImmutable(t *testing.T) {
	db := newTestDatabase(t)
	dispute := testStoreDispute("7")
	dispute.IsExecuted = true
	require.NoError(t, db.SetDispute(dispute, nil))

	err := db.SetDispute(testStoreDispute("7"), nil)
	require.Error(t, err)
	assert.True(t, IsInvariantViolation(err))
}

func TestGetOpenDispute(t *testing.T) {
	db := newTestDatabase(t)
	open, err := db.GetOpenDispute(1, "0xgrant", nil)
	require.NoError(t, err)
	assert.Nil(t, open)

	executed := testStoreDispute("1")
	executed.IsExecuted = true
	require.NoError(t, db.SetDispute(executed, nil))
	require.NoError(t, db.SetDispute(testStoreDispute("2"), nil))

	open, err = db.GetOpenDispute(1, "0xgrant", nil)
	require.NoError(t, err)
	require.NotNil(t, open)
	assert.Equal(t, "2", open.DisputeID)

	// Two unexecuted disputes for one grant is a hard stop, not a guess
	require.NoError(t, db.SetDispute(testStoreDispute("3"), nil))
	_, err = db.GetOpenDispute(1, "0xgrant", nil)
	require.Error(t, err)
	assert.True(t, IsInvariantViolation(err))
}

func TestGetPendingRevealsFiltersVotes(t *testing.T) {
	db := newTestDatabase(t)
	require.NoError(t, db.SetDispute(testStoreDispute("7"), nil))
	choice := uint8(1)
	votes := []*models.DisputeVote{
		{
			ChainID: 1, Arbitrator: "0xarb", DisputeID: "7",
			Voter: "0xpending", CommitHash: "0xaa",
		},
		{
			ChainID: 1, Arbitrator: "0xarb", DisputeID: "7",
			Voter: "0xrevealed", CommitHash: "0xbb", Choice: &choice,
		},
		{
			ChainID: 1, Arbitrator: "0xarb", DisputeID: "7",
			Voter: "0xmissed", CommitHash: "0xcc", RevealMissed: true,
		},
	}
	for _, vote := range votes {
		require.NoError(t, db.SetDisputeVote(vote, nil))
	}

	// Voting still open: nothing pending yet
	pending, err := db.GetPendingReveals(1500, nil)
	require.NoError(t, err)
	assert.Empty(t, pending)

	// Voting closed: only the unrevealed, unflagged vote surfaces
	pending, err = db.GetPendingReveals(2500, nil)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "0xpending", pending[0].Vote.Voter)
	assert.Equal(t, "7", pending[0].Dispute.DisputeID)
}
