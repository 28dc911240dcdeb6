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
	"fmt"

	"github.com/flowstate-labs/flowd/database/models"
	"gorm.io/gorm"
)

// ResetSequencingCursors rewinds per-entity cursors at or past the given
// block so a reorg replay can re-apply the replaced range. Derived rows are
// rebuilt by the replayed events themselves; aggregates are never partially
// rolled back.
func (d *Database) ResetSequencingCursors(
	chainID uint64,
	fromBlock uint64,
	txn *gorm.DB,
) error {
	db := d.txnOrDB(txn)
	cursor := map[string]any{
		"applied_block":     fromBlock - 1,
		"applied_log_index": 0,
	}
	if fromBlock == 0 {
		cursor["applied_block"] = 0
	}
	result := db.Model(&models.Grant{}).
		Where("chain_id = ? AND applied_block >= ?", chainID, fromBlock).
		Updates(cursor)
	if result.Error != nil {
		return fmt.Errorf("failed to rewind grant cursors: %w", result.Error)
	}
	result = db.Model(&models.TokenOwnership{}).
		Where("chain_id = ? AND applied_block >= ?", chainID, fromBlock).
		Updates(cursor)
	if result.Error != nil {
		return fmt.Errorf("failed to rewind ownership cursors: %w", result.Error)
	}
	return nil
}
