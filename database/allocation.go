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

// AllocationEntry is one recipient weight within an allocation set
type AllocationEntry struct {
	RecipientID string
	BPS         uint32
}

// ReplaceAllocationSet atomically replaces a curator's allocation set for a
// strategy. The whole set is replaced rather than patched so redelivered
// allocation events are idempotent. The bps total may not exceed 10000.
func (d *Database) ReplaceAllocationSet(
	chainID uint64,
	contract, allocationKey, strategy, allocator string,
	entries []AllocationEntry,
	block uint64,
	txn *gorm.DB,
) error {
	var bpsTotal uint64
	for _, entry := range entries {
		bpsTotal += uint64(entry.BPS)
	}
	if bpsTotal > models.MaxAllocationBPS {
		return fmt.Errorf(
			"%w: got %d for (%s, %s, %s)",
			ErrAllocationOverflow,
			bpsTotal,
			contract,
			allocationKey,
			strategy,
		)
	}
	db := d.txnOrDB(txn)
	result := db.Where(
		"chain_id = ? AND contract = ? AND allocation_key = ? AND strategy = ? AND allocator = ?",
		chainID,
		contract,
		allocationKey,
		strategy,
		allocator,
	).Delete(&models.Allocation{})
	if result.Error != nil {
		return fmt.Errorf("failed to clear allocation set: %w", result.Error)
	}
	for _, entry := range entries {
		alloc := models.Allocation{
			ChainID:          chainID,
			Contract:         contract,
			AllocationKey:    allocationKey,
			Strategy:         strategy,
			Allocator:        allocator,
			RecipientID:      entry.RecipientID,
			BPS:              entry.BPS,
			CommittedAtBlock: block,
		}
		if err := db.Create(&alloc).Error; err != nil {
			return fmt.Errorf("failed to save allocation: %w", err)
		}
	}
	return nil
}

// GetAllocationSet returns a curator's allocations for a strategy
func (d *Database) GetAllocationSet(
	chainID uint64,
	contract, allocationKey, strategy, allocator string,
	txn *gorm.DB,
) ([]models.Allocation, error) {
	db := d.txnOrDB(txn)
	var ret []models.Allocation
	result := db.Where(
		"chain_id = ? AND contract = ? AND allocation_key = ? AND strategy = ? AND allocator = ?",
		chainID,
		contract,
		allocationKey,
		strategy,
		allocator,
	).Order("recipient_id").Find(&ret)
	if result.Error != nil {
		return nil, result.Error
	}
	return ret, nil
}
