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

func TestGetGrantMissing(t *testing.T) {
	db := newTestDatabase(t)
	grant, err := db.GetGrant(1, "0xmissing", nil)
	require.NoError(t, err)
	assert.Nil(t, grant)
}

func TestSetGrantUpsert(t *testing.T) {
	db := newTestDatabase(t)
	grant := &models.Grant{
		ChainID:   1,
		GrantID:   "0xgrant",
		Recipient: "0xalice",
	}
	require.NoError(t, db.SetGrant(grant, nil))
	require.NotZero(t, grant.ID)
	firstID := grant.ID

	// Writing the same chain-scoped id again updates the existing row rather
	// than inserting a second one
	update := &models.Grant{
		ChainID:                 1,
		GrantID:                 "0xgrant",
		Recipient:               "0xalice",
		IsActive:                true,
		MonthlyIncomingFlowRate: types.NewBigInt(500),
	}
	require.NoError(t, db.SetGrant(update, nil))
	assert.Equal(t, firstID, update.ID)

	got, err := db.GetGrant(1, "0xgrant", nil)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, firstID, got.ID)
	assert.True(t, got.IsActive)
	assert.Equal(t, "500", got.MonthlyIncomingFlowRate.String())
}

func TestSetGrantChainScoped(t *testing.T) {
	db := newTestDatabase(t)
	// The same grant id on two chains is two independent rows
	require.NoError(t, db.SetGrant(&models.Grant{
		ChainID:   1,
		GrantID:   "0xgrant",
		Recipient: "0xalice",
	}, nil))
	require.NoError(t, db.SetGrant(&models.Grant{
		ChainID:   8453,
		GrantID:   "0xgrant",
		Recipient: "0xbob",
	}, nil))

	mainnet, err := db.GetGrant(1, "0xgrant", nil)
	require.NoError(t, err)
	base, err := db.GetGrant(8453, "0xgrant", nil)
	require.NoError(t, err)
	require.NotNil(t, mainnet)
	require.NotNil(t, base)
	assert.NotEqual(t, mainnet.ID, base.ID)
	assert.Equal(t, "0xalice", mainnet.Recipient)
	assert.Equal(t, "0xbob", base.Recipient)
}

func TestGetChildGrants(t *testing.T) {
	db := newTestDatabase(t)
	require.NoError(t, db.SetGrant(&models.Grant{
		ChainID: 1,
		GrantID: "0xflow",
		IsFlow:  true,
	}, nil))
	for _, grantID := range []string{"0xchild1", "0xchild2"} {
		require.NoError(t, db.SetGrant(&models.Grant{
			ChainID: 1,
			GrantID: grantID,
			FlowID:  "0xflow",
		}, nil))
	}
	// Child of a different flow must not appear
	require.NoError(t, db.SetGrant(&models.Grant{
		ChainID: 1,
		GrantID: "0xstranger",
		FlowID:  "0xother",
	}, nil))

	children, err := db.GetChildGrants(1, "0xflow", nil)
	require.NoError(t, err)
	require.Len(t, children, 2)
	assert.Equal(t, "0xchild1", children[0].GrantID)
	assert.Equal(t, "0xchild2", children[1].GrantID)
}

func TestCountRecipients(t *testing.T) {
	db := newTestDatabase(t)
	seed := []*models.Grant{
		{ChainID: 1, GrantID: "0xactive1", FlowID: "0xflow", IsActive: true},
		{ChainID: 1, GrantID: "0xactive2", FlowID: "0xflow", IsActive: true},
		{
			ChainID: 1,
			GrantID: "0xawaiting",
			FlowID:  "0xflow",
			Status:  models.RegistryStatusRegistrationRequested,
		},
		{
			ChainID:    1,
			GrantID:    "0xchallenged",
			FlowID:     "0xflow",
			IsActive:   true,
			IsDisputed: true,
		},
		// Removed rows are excluded entirely
		{
			ChainID:   1,
			GrantID:   "0xremoved",
			FlowID:    "0xflow",
			IsActive:  true,
			IsRemoved: true,
		},
	}
	for _, grant := range seed {
		require.NoError(t, db.SetGrant(grant, nil))
	}

	counts, err := db.CountRecipients(1, "0xflow", nil)
	require.NoError(t, err)
	assert.Equal(t, uint(2), counts.Active)
	assert.Equal(t, uint(1), counts.Awaiting)
	assert.Equal(t, uint(1), counts.Challenged)
}

func TestGetFlowGrantsSkipsRemoved(t *testing.T) {
	db := newTestDatabase(t)
	require.NoError(t, db.SetGrant(&models.Grant{
		ChainID: 1,
		GrantID: "0xflow1",
		IsFlow:  true,
	}, nil))
	require.NoError(t, db.SetGrant(&models.Grant{
		ChainID:   1,
		GrantID:   "0xflow2",
		IsFlow:    true,
		IsRemoved: true,
	}, nil))
	require.NoError(t, db.SetGrant(&models.Grant{
		ChainID: 1,
		GrantID: "0xrecipient",
	}, nil))

	flows, err := db.GetFlowGrants(1, nil)
	require.NoError(t, err)
	require.Len(t, flows, 1)
	assert.Equal(t, "0xflow1", flows[0].GrantID)
}

func TestGrantFallbackScans(t *testing.T) {
	db := newTestDatabase(t)
	require.NoError(t, db.SetGrant(&models.Grant{
		ChainID:        1,
		GrantID:        "0xgrant",
		Recipient:      "0xalice",
		ParentContract: "0xflowcontract",
		TCR:            "0xtcr",
		ItemID:         "0xitem",
		Arbitrator:     "0xarb",
	}, nil))

	byArb, err := db.GetGrantByArbitrator(1, "0xarb", nil)
	require.NoError(t, err)
	require.NotNil(t, byArb)
	assert.Equal(t, "0xgrant", byArb.GrantID)

	byItem, err := db.GetGrantByTCRItem(1, "0xtcr", "0xitem", nil)
	require.NoError(t, err)
	require.NotNil(t, byItem)
	assert.Equal(t, "0xgrant", byItem.GrantID)

	byPair, err := db.GetGrantByFlowPair(1, "0xflowcontract", "0xalice", nil)
	require.NoError(t, err)
	require.NotNil(t, byPair)
	assert.Equal(t, "0xgrant", byPair.GrantID)

	miss, err := db.GetGrantByArbitrator(1, "0xnobody", nil)
	require.NoError(t, err)
	assert.Nil(t, miss)
}
