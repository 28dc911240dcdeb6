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
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArbitratorLookup(t *testing.T) {
	db := newTestDatabase(t)
	grantID, err := db.GetGrantIDByArbitrator(1, "0xarb", nil)
	require.NoError(t, err)
	assert.Empty(t, grantID)

	require.NoError(t, db.SetArbitratorLookup(1, "0xarb", "0xgrant", nil))
	grantID, err = db.GetGrantIDByArbitrator(1, "0xarb", nil)
	require.NoError(t, err)
	assert.Equal(t, "0xgrant", grantID)

	// Rewriting the same key updates in place
	require.NoError(t, db.SetArbitratorLookup(1, "0xarb", "0xother", nil))
	grantID, err = db.GetGrantIDByArbitrator(1, "0xarb", nil)
	require.NoError(t, err)
	assert.Equal(t, "0xother", grantID)
}

func TestTCRItemLookup(t *testing.T) {
	db := newTestDatabase(t)
	require.NoError(t, db.SetTCRItemLookup(1, "0xtcr", "0xitem", "0xgrant", nil))
	grantID, err := db.GetGrantIDByTCRItem(1, "0xtcr", "0xitem", nil)
	require.NoError(t, err)
	assert.Equal(t, "0xgrant", grantID)

	// Scoped by both registry and item
	grantID, err = db.GetGrantIDByTCRItem(1, "0xtcr", "0xotheritem", nil)
	require.NoError(t, err)
	assert.Empty(t, grantID)
}

func TestFlowPairLookup(t *testing.T) {
	db := newTestDatabase(t)
	require.NoError(
		t,
		db.SetFlowPairLookup(1, "0xsender", "0xreceiver", "0xgrant", nil),
	)
	grantID, err := db.GetGrantIDByFlowPair(1, "0xsender", "0xreceiver", nil)
	require.NoError(t, err)
	assert.Equal(t, "0xgrant", grantID)

	grantID, err = db.GetGrantIDByFlowPair(1, "0xreceiver", "0xsender", nil)
	require.NoError(t, err)
	assert.Empty(t, grantID)
}

func TestPoolLookup(t *testing.T) {
	db := newTestDatabase(t)
	grantID, kind, err := db.GetPoolLookup(1, "0xpool", nil)
	require.NoError(t, err)
	assert.Empty(t, grantID)
	assert.Empty(t, kind)

	require.NoError(
		t,
		db.SetPoolLookup(1, "0xpool", "0xgrant", models.PoolKindBaseline, nil),
	)
	grantID, kind, err = db.GetPoolLookup(1, "0xpool", nil)
	require.NoError(t, err)
	assert.Equal(t, "0xgrant", grantID)
	assert.Equal(t, models.PoolKindBaseline, kind)

	// Rewriting flips the kind without duplicating the row
	require.NoError(
		t,
		db.SetPoolLookup(1, "0xpool", "0xgrant", models.PoolKindBonus, nil),
	)
	_, kind, err = db.GetPoolLookup(1, "0xpool", nil)
	require.NoError(t, err)
	assert.Equal(t, models.PoolKindBonus, kind)
}
