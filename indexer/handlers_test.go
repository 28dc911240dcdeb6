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

package indexer

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/flowstate-labs/flowd/chain"
	"github.com/flowstate-labs/flowd/database"
	"github.com/flowstate-labs/flowd/database/models"
	"github.com/flowstate-labs/flowd/database/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecipientCreatedBuildsLookups(t *testing.T) {
	idx, db := newTestIndexer(t, nil)
	ev := recipientCreatedEvent("0xgrant", 100, 0)
	ev.Args["arbitrator"] = testArbContract
	ev.Args["tcr"] = testTCRContract
	ev.Args["itemId"] = "0xitem"
	require.NoError(t, idx.applyEvent(&ev))

	grant, err := db.GetGrant(1, "0xgrant", nil)
	require.NoError(t, err)
	require.NotNil(t, grant)
	assert.True(t, grant.IsActive)
	assert.Equal(t, models.RegistryStatusRegistered, grant.Status)
	assert.Equal(t, uint64(100), grant.AppliedBlock)

	// Reverse-lookup rows land in the same transaction as the grant
	byArb, err := db.GetGrantIDByArbitrator(
		1, chain.NormalizeAddress(common.HexToAddress(testArbContract)), nil,
	)
	require.NoError(t, err)
	assert.Equal(t, "0xgrant", byArb)
	byItem, err := db.GetGrantIDByTCRItem(
		1, chain.NormalizeAddress(common.HexToAddress(testTCRContract)),
		"0xitem", nil,
	)
	require.NoError(t, err)
	assert.Equal(t, "0xgrant", byItem)
	byPair, err := db.GetGrantIDByFlowPair(
		1,
		chain.NormalizeAddress(common.HexToAddress(testFlowContract)),
		chain.NormalizeAddress(common.HexToAddress(testRecipient)),
		nil,
	)
	require.NoError(t, err)
	assert.Equal(t, "0xgrant", byPair)
}

func TestRecipientEventsIdempotentReplay(t *testing.T) {
	idx, db := newTestIndexer(t, nil)
	created := recipientCreatedEvent("0xgrant", 100, 0)
	require.NoError(t, idx.applyEvent(&created))
	removed := chain.LogEvent{
		ChainID:         1,
		ContractAddress: common.HexToAddress(testFlowContract),
		ContractKind:    chain.ContractKindFlow,
		EventName:       "RecipientRemoved",
		BlockNumber:     110,
		LogIndex:        0,
		Args:            chain.Args{"recipientId": "0xgrant"},
	}
	require.NoError(t, idx.applyEvent(&removed))

	// Redelivering the older create is dropped by the cursor: the grant stays
	// removed no matter the delivery order
	require.NoError(t, idx.applyEvent(&created))
	grant, err := db.GetGrant(1, "0xgrant", nil)
	require.NoError(t, err)
	assert.True(t, grant.IsRemoved)
	assert.False(t, grant.IsActive)
	assert.Equal(t, uint64(110), grant.AppliedBlock)

	// Redelivering the removal is equally a no-op
	require.NoError(t, idx.applyEvent(&removed))
	grant, err = db.GetGrant(1, "0xgrant", nil)
	require.NoError(t, err)
	assert.True(t, grant.IsRemoved)
}

func TestCrossEntityOrderIndependence(t *testing.T) {
	events := func() []chain.LogEvent {
		return []chain.LogEvent{
			recipientCreatedEvent("0xgrant1", 100, 0),
			recipientCreatedEvent("0xgrant2", 100, 1),
		}
	}

	idxForward, dbForward := newTestIndexer(t, nil)
	for _, ev := range events() {
		require.NoError(t, idxForward.applyEvent(&ev))
	}
	idxReverse, dbReverse := newTestIndexer(t, nil)
	reversed := events()
	for n := len(reversed) - 1; n >= 0; n-- {
		require.NoError(t, idxReverse.applyEvent(&reversed[n]))
	}

	for _, grantID := range []string{"0xgrant1", "0xgrant2"} {
		forward, err := dbForward.GetGrant(1, grantID, nil)
		require.NoError(t, err)
		reverse, err := dbReverse.GetGrant(1, grantID, nil)
		require.NoError(t, err)
		require.NotNil(t, forward)
		require.NotNil(t, reverse)
		assert.Equal(t, forward.IsActive, reverse.IsActive)
		assert.Equal(t, forward.AppliedBlock, reverse.AppliedBlock)
		assert.Equal(t, forward.AppliedLogIndex, reverse.AppliedLogIndex)
	}
}

func TestMemberUnitsRecomputePoolTotals(t *testing.T) {
	idx, db := newTestIndexer(t, nil)
	require.NoError(t, db.SetGrant(&models.Grant{
		ChainID: 1,
		GrantID: "0xflowgrant",
		IsFlow:  true,
	}, nil))
	for n, grantID := range []string{"0xgrant1", "0xgrant2"} {
		ev := recipientCreatedEvent(grantID, 100, uint64(n))
		require.NoError(t, idx.applyEvent(&ev))
	}
	for n, grantID := range []string{"0xgrant1", "0xgrant2"} {
		ev := chain.LogEvent{
			ChainID:         1,
			ContractAddress: common.HexToAddress(testFlowContract),
			ContractKind:    chain.ContractKindFlow,
			EventName:       "MemberUnitsUpdate",
			BlockNumber:     110,
			LogIndex:        uint64(n),
			Args: chain.Args{
				"recipientId":         grantID,
				"baselineMemberUnits": uint64(10 * (n + 1)),
				"bonusMemberUnits":    uint64(n + 1),
			},
		}
		require.NoError(t, idx.applyEvent(&ev))
	}

	// Pool totals are rederived from child rows, not adjusted in place
	flow, err := db.GetGrant(1, "0xflowgrant", nil)
	require.NoError(t, err)
	assert.Equal(t, types.Uint64(30), flow.BaselineMemberUnits)
	assert.Equal(t, types.Uint64(3), flow.BonusMemberUnits)
}

func TestFlowRateUpdatedFoldsIntoAggregates(t *testing.T) {
	idx, db := newTestIndexer(t, nil)
	require.NoError(t, db.SetGrant(&models.Grant{
		ChainID: 1,
		GrantID: "0xflowgrant",
		IsFlow:  true,
	}, nil))
	created := recipientCreatedEvent("0xgrant", 100, 0)
	require.NoError(t, idx.applyEvent(&created))

	ev := chain.LogEvent{
		ChainID:         1,
		ContractAddress: common.HexToAddress(testTokenContract),
		ContractKind:    chain.ContractKindSuperfluid,
		EventName:       "FlowUpdated",
		BlockNumber:     110,
		LogIndex:        0,
		Timestamp:       1700000100,
		Args: chain.Args{
			"token":    testTokenContract,
			"sender":   testFlowContract,
			"receiver": testRecipient,
			"flowRate": "2",
			"deposit":  "8000",
		},
	}
	require.NoError(t, idx.applyEvent(&ev))

	flow, err := db.GetSuperfluidFlow(
		1,
		chain.NormalizeAddress(common.HexToAddress(testTokenContract)),
		chain.NormalizeAddress(common.HexToAddress(testFlowContract)),
		chain.NormalizeAddress(common.HexToAddress(testRecipient)),
		nil,
	)
	require.NoError(t, err)
	require.NotNil(t, flow)
	assert.Equal(t, "2", flow.FlowRate.String())

	// 2/second over a 30-day month
	grant, err := db.GetGrant(1, "0xgrant", nil)
	require.NoError(t, err)
	assert.Equal(t, "5184000", grant.MonthlyIncomingFlowRate.String())
	parent, err := db.GetGrant(1, "0xflowgrant", nil)
	require.NoError(t, err)
	assert.Equal(t, "5184000", parent.MonthlyOutgoingFlowRate.String())
}

func TestDisputeLifecycle(t *testing.T) {
	idx, db := newTestIndexer(t, nil)
	submitted := chain.LogEvent{
		ChainID:         1,
		ContractAddress: common.HexToAddress(testTCRContract),
		ContractKind:    chain.ContractKindTCR,
		EventName:       "ItemSubmitted",
		BlockNumber:     100,
		LogIndex:        0,
		Args: chain.Args{
			"itemId":      "0xitem",
			"recipientId": "0xgrant",
		},
	}
	require.NoError(t, idx.applyEvent(&submitted))

	challenged := chain.LogEvent{
		ChainID:         1,
		ContractAddress: common.HexToAddress(testTCRContract),
		ContractKind:    chain.ContractKindTCR,
		EventName:       "Dispute",
		BlockNumber:     110,
		LogIndex:        0,
		Args: chain.Args{
			"itemId":              "0xitem",
			"disputeId":           "7",
			"arbitrator":          testArbContract,
			"evidenceGroupId":     "0xevidence",
			"votingStartTime":     uint64(1000),
			"votingEndTime":       uint64(2000),
			"revealPeriodEndTime": uint64(3000),
		},
	}
	require.NoError(t, idx.applyEvent(&challenged))
	grant, err := db.GetGrant(1, "0xgrant", nil)
	require.NoError(t, err)
	assert.True(t, grant.IsDisputed)
	assert.Equal(t, models.RegistryStatusClearingRequested, grant.Status)
	// The evidence group lands on the persisted grant row, not just the
	// dispute
	assert.Equal(t, "0xevidence", grant.EvidenceGroupID)

	arbitrator := chain.NormalizeAddress(common.HexToAddress(testArbContract))
	committed := chain.LogEvent{
		ChainID:         1,
		ContractAddress: common.HexToAddress(testArbContract),
		ContractKind:    chain.ContractKindArbitrator,
		EventName:       "VoteCommitted",
		BlockNumber:     120,
		LogIndex:        0,
		Timestamp:       1500,
		Args: chain.Args{
			"disputeId":  "7",
			"voter":      testRecipient,
			"commitHash": "0xaaaa",
		},
	}
	require.NoError(t, idx.applyEvent(&committed))

	revealed := chain.LogEvent{
		ChainID:         1,
		ContractAddress: common.HexToAddress(testArbContract),
		ContractKind:    chain.ContractKindArbitrator,
		EventName:       "VoteRevealed",
		BlockNumber:     130,
		LogIndex:        0,
		Timestamp:       2500,
		Args: chain.Args{
			"disputeId": "7",
			"voter":     testRecipient,
			"choice":    uint64(1),
			"votes":     "10",
			"reason":    "keep it",
		},
	}
	require.NoError(t, idx.applyEvent(&revealed))
	vote, err := db.GetDisputeVote(
		1, arbitrator, "7",
		chain.NormalizeAddress(common.HexToAddress(testRecipient)), nil,
	)
	require.NoError(t, err)
	require.True(t, vote.Revealed())
	assert.Equal(t, uint8(1), *vote.Choice)
	d, err := db.GetDispute(1, arbitrator, "7", nil)
	require.NoError(t, err)
	assert.Equal(t, "10", d.RequesterPartyVotes.String())
	assert.Equal(t, "10", d.Votes.String())

	// A redelivered reveal is final, not double-counted
	require.NoError(t, idx.applyEvent(&revealed))
	d, err = db.GetDispute(1, arbitrator, "7", nil)
	require.NoError(t, err)
	assert.Equal(t, "10", d.RequesterPartyVotes.String())

	executed := chain.LogEvent{
		ChainID:         1,
		ContractAddress: common.HexToAddress(testArbContract),
		ContractKind:    chain.ContractKindArbitrator,
		EventName:       "Ruling",
		BlockNumber:     140,
		LogIndex:        0,
		Timestamp:       3100,
		Args:            chain.Args{"disputeId": "7"},
	}
	require.NoError(t, idx.applyEvent(&executed))
	d, err = db.GetDispute(1, arbitrator, "7", nil)
	require.NoError(t, err)
	assert.True(t, d.IsExecuted)
	assert.Equal(t, models.RulingApproved, d.Ruling)
	grant, err = db.GetGrant(1, "0xgrant", nil)
	require.NoError(t, err)
	assert.False(t, grant.IsDisputed)
	assert.True(t, grant.IsResolved)
	assert.True(t, grant.IsActive)

	// Redelivered execution is a clean skip against the immutable dispute
	require.NoError(t, idx.applyEvent(&executed))
}

func TestSecondChallengeWhileOpenRejected(t *testing.T) {
	idx, db := newTestIndexer(t, nil)
	submitted := chain.LogEvent{
		ChainID:         1,
		ContractAddress: common.HexToAddress(testTCRContract),
		ContractKind:    chain.ContractKindTCR,
		EventName:       "ItemSubmitted",
		BlockNumber:     100,
		LogIndex:        0,
		Args: chain.Args{
			"itemId":      "0xitem",
			"recipientId": "0xgrant",
		},
	}
	require.NoError(t, idx.applyEvent(&submitted))
	challenge := func(disputeID string, block uint64) chain.LogEvent {
		return chain.LogEvent{
			ChainID:         1,
			ContractAddress: common.HexToAddress(testTCRContract),
			ContractKind:    chain.ContractKindTCR,
			EventName:       "Dispute",
			BlockNumber:     block,
			LogIndex:        0,
			Args: chain.Args{
				"itemId":              "0xitem",
				"disputeId":           disputeID,
				"arbitrator":          testArbContract,
				"votingStartTime":     uint64(1000),
				"votingEndTime":       uint64(2000),
				"revealPeriodEndTime": uint64(3000),
			},
		}
	}
	first := challenge("7", 110)
	require.NoError(t, idx.applyEvent(&first))

	// A second challenge before the first resolves is a fatal feed defect,
	// not a state change
	second := challenge("8", 120)
	err := idx.applyEvent(&second)
	require.Error(t, err)
	assert.True(t, database.IsInvariantViolation(err))

	open, err := db.GetOpenDispute(1, "0xgrant", nil)
	require.NoError(t, err)
	require.NotNil(t, open)
	assert.Equal(t, "7", open.DisputeID)
}

func TestPoolRateUpdatedSetsBudgets(t *testing.T) {
	idx, db := newTestIndexer(t, nil)
	ev := chain.LogEvent{
		ChainID:         1,
		ContractAddress: common.HexToAddress(testFlowContract),
		ContractKind:    chain.ContractKindFlow,
		EventName:       "FlowRateUpdated",
		BlockNumber:     100,
		LogIndex:        0,
		Timestamp:       1700000000,
		Args: chain.Args{
			"flowId":           "0xflowgrant",
			"baselineFlowRate": "3",
			"bonusFlowRate":    "1",
		},
	}
	require.NoError(t, idx.applyEvent(&ev))

	// Budgets land even before the flow's own creation event, and are stored
	// at monthly scale
	flow, err := db.GetGrant(1, "0xflowgrant", nil)
	require.NoError(t, err)
	require.NotNil(t, flow)
	assert.True(t, flow.IsFlow)
	assert.Equal(t, "7776000", flow.MonthlyBaselinePoolFlowRate.String())
	assert.Equal(t, "2592000", flow.MonthlyBonusPoolFlowRate.String())

	// A stale redelivery cannot regress the budget
	stale := ev
	stale.Args = chain.Args{
		"flowId":           "0xflowgrant",
		"baselineFlowRate": "9",
		"bonusFlowRate":    "9",
	}
	require.NoError(t, idx.applyEvent(&stale))
	flow, err = db.GetGrant(1, "0xflowgrant", nil)
	require.NoError(t, err)
	assert.Equal(t, "7776000", flow.MonthlyBaselinePoolFlowRate.String())
}

func TestFlowRateStaleRedeliveryKeepsAggregates(t *testing.T) {
	idx, db := newTestIndexer(t, nil)
	require.NoError(t, db.SetGrant(&models.Grant{
		ChainID: 1,
		GrantID: "0xflowgrant",
		IsFlow:  true,
	}, nil))
	created := recipientCreatedEvent("0xgrant", 100, 0)
	require.NoError(t, idx.applyEvent(&created))

	flowUpdated := func(rate string, block uint64, ts int64) chain.LogEvent {
		return chain.LogEvent{
			ChainID:         1,
			ContractAddress: common.HexToAddress(testTokenContract),
			ContractKind:    chain.ContractKindSuperfluid,
			EventName:       "FlowUpdated",
			BlockNumber:     block,
			LogIndex:        0,
			Timestamp:       ts,
			Args: chain.Args{
				"token":    testTokenContract,
				"sender":   testFlowContract,
				"receiver": testRecipient,
				"flowRate": rate,
				"deposit":  "8000",
			},
		}
	}
	older := flowUpdated("2", 110, 1700000100)
	require.NoError(t, idx.applyEvent(&older))
	newer := flowUpdated("3", 120, 1700000200)
	require.NoError(t, idx.applyEvent(&newer))

	// 100 seconds streamed at 2/second before the rate change
	grant, err := db.GetGrant(1, "0xgrant", nil)
	require.NoError(t, err)
	assert.Equal(t, "7776000", grant.MonthlyIncomingFlowRate.String())
	assert.Equal(t, "200", grant.TotalEarned.String())
	parent, err := db.GetGrant(1, "0xflowgrant", nil)
	require.NoError(t, err)
	assert.Equal(t, "7776000", parent.MonthlyOutgoingFlowRate.String())
	assert.Equal(t, "200", parent.TotalPaidOut.String())

	// Redelivering the older update is dropped by the flow cursor; neither
	// the rate nor the earned totals move
	require.NoError(t, idx.applyEvent(&older))
	grant, err = db.GetGrant(1, "0xgrant", nil)
	require.NoError(t, err)
	assert.Equal(t, "7776000", grant.MonthlyIncomingFlowRate.String())
	assert.Equal(t, "200", grant.TotalEarned.String())
	parent, err = db.GetGrant(1, "0xflowgrant", nil)
	require.NoError(t, err)
	assert.Equal(t, "7776000", parent.MonthlyOutgoingFlowRate.String())
	assert.Equal(t, "200", parent.TotalPaidOut.String())
}

func TestPoolStreamTracksPerPoolShare(t *testing.T) {
	idx, db := newTestIndexer(t, nil)
	baselinePool := "0x6666666666666666666666666666666666666666"
	created := recipientCreatedEvent("0xgrant", 100, 0)
	created.Args["baselinePool"] = baselinePool
	require.NoError(t, idx.applyEvent(&created))

	// A stream from the baseline pool is attributed to the grant's baseline
	// share, not just the raw incoming aggregate
	ev := chain.LogEvent{
		ChainID:         1,
		ContractAddress: common.HexToAddress(testTokenContract),
		ContractKind:    chain.ContractKindSuperfluid,
		EventName:       "FlowUpdated",
		BlockNumber:     110,
		LogIndex:        0,
		Timestamp:       1700000100,
		Args: chain.Args{
			"token":    testTokenContract,
			"sender":   baselinePool,
			"receiver": testRecipient,
			"flowRate": "2",
			"deposit":  "8000",
		},
	}
	require.NoError(t, idx.applyEvent(&ev))

	grant, err := db.GetGrant(1, "0xgrant", nil)
	require.NoError(t, err)
	assert.Equal(t, "5184000", grant.MonthlyBaselineFlowRate.String())
	assert.Equal(t, "5184000", grant.MonthlyIncomingFlowRate.String())
}

func TestAllocationSetHandler(t *testing.T) {
	idx, db := newTestIndexer(t, nil)
	ev := chain.LogEvent{
		ChainID:         1,
		ContractAddress: common.HexToAddress(testFlowContract),
		ContractKind:    chain.ContractKindAllocator,
		EventName:       "AllocationSet",
		BlockNumber:     100,
		LogIndex:        0,
		Args: chain.Args{
			"allocationKey": "0xkey",
			"strategy":      "0xstrategy",
			"allocator":     testRecipient,
			"recipientIds":  []any{"0xgrant1", "0xgrant2"},
			"bps":           []any{uint64(6000), uint64(4000)},
		},
	}
	require.NoError(t, idx.applyEvent(&ev))

	set, err := db.GetAllocationSet(
		1,
		chain.NormalizeAddress(common.HexToAddress(testFlowContract)),
		"0xkey",
		"0xstrategy",
		chain.NormalizeAddress(common.HexToAddress(testRecipient)),
		nil,
	)
	require.NoError(t, err)
	require.Len(t, set, 2)
	assert.Equal(t, uint32(6000), set[0].BPS)
}

func TestUnknownEventSkipped(t *testing.T) {
	idx, _ := newTestIndexer(t, nil)
	ev := chain.LogEvent{
		ChainID:         1,
		ContractAddress: common.HexToAddress(testFlowContract),
		ContractKind:    chain.ContractKindFlow,
		EventName:       "SomethingNew",
		Args:            chain.Args{},
	}
	assert.Equal(t, chain.EventKindUnknown, ev.Kind())
	require.NoError(t, idx.applyEvent(&ev))
}
