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

func TestResetSequencingCursors(t *testing.T) {
	db := newTestDatabase(t)
	require.NoError(t, db.SetGrant(&models.Grant{
		ChainID:         1,
		GrantID:         "0xbehind",
		AppliedBlock:    90,
		AppliedLogIndex: 4,
	}, nil))
	require.NoError(t, db.SetGrant(&models.Grant{
		ChainID:         1,
		GrantID:         "0xahead",
		AppliedBlock:    105,
		AppliedLogIndex: 2,
	}, nil))
	applied, err := db.ApplyTokenTransfer(1, "0xtoken", 7, "0xalice", 110, 0, nil)
	require.NoError(t, err)
	require.True(t, applied)

	require.NoError(t, db.ResetSequencingCursors(1, 100, nil))

	// Cursors at or past the fork block rewind to just before it
	ahead, err := db.GetGrant(1, "0xahead", nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(99), ahead.AppliedBlock)
	assert.Zero(t, ahead.AppliedLogIndex)

	// Cursors behind the fork are untouched
	behind, err := db.GetGrant(1, "0xbehind", nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(90), behind.AppliedBlock)
	assert.Equal(t, uint64(4), behind.AppliedLogIndex)

	// A replay of the replaced range now re-applies cleanly
	applied, err = db.ApplyTokenTransfer(1, "0xtoken", 7, "0xbob", 110, 0, nil)
	require.NoError(t, err)
	assert.True(t, applied)
	owner, err := db.GetTokenOwner(1, "0xtoken", 7, nil)
	require.NoError(t, err)
	assert.Equal(t, "0xbob", owner)
}

func TestResetSequencingCursorsScopedByChain(t *testing.T) {
	db := newTestDatabase(t)
	require.NoError(t, db.SetGrant(&models.Grant{
		ChainID:      8453,
		GrantID:      "0xgrant",
		AppliedBlock: 200,
	}, nil))

	require.NoError(t, db.ResetSequencingCursors(1, 100, nil))

	got, err := db.GetGrant(8453, "0xgrant", nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(200), got.AppliedBlock)
}
