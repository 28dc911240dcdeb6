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
	"errors"
	"fmt"

	"github.com/flowstate-labs/flowd/database/models"
	"gorm.io/gorm"
)

// ApplyTokenTransfer moves a curation token to a new owner. The primary
// ownership row and both owner-bucket index rows change in one transaction,
// so a crash can never leave the reverse index disagreeing with the
// ownership table. The per-token sequencing cursor makes redelivery and
// stale delivery no-ops; the return value reports whether the transfer was
// applied.
func (d *Database) ApplyTokenTransfer(
	chainID uint64,
	tokenContract string,
	tokenID uint64,
	newOwner string,
	block, logIndex uint64,
	txn *gorm.DB,
) (bool, error) {
	applyFn := func(db *gorm.DB) (bool, error) {
		ownership := &models.TokenOwnership{}
		result := db.Where(
			"chain_id = ? AND token_contract = ? AND token_id = ?",
			chainID,
			tokenContract,
			tokenID,
		).First(ownership)
		if result.Error != nil {
			if !errors.Is(result.Error, gorm.ErrRecordNotFound) {
				return false, result.Error
			}
			ownership = &models.TokenOwnership{
				ChainID:       chainID,
				TokenContract: tokenContract,
				TokenID:       tokenID,
			}
		} else {
			// Reject events at or behind the applied cursor
			if block < ownership.AppliedBlock ||
				(block == ownership.AppliedBlock && logIndex <= ownership.AppliedLogIndex) {
				return false, nil
			}
		}
		oldOwner := ownership.Owner
		ownership.Owner = newOwner
		ownership.AppliedBlock = block
		ownership.AppliedLogIndex = logIndex
		if err := db.Save(ownership).Error; err != nil {
			return false, fmt.Errorf("failed to save token ownership: %w", err)
		}
		// Two-sided index update: drop the token from the old owner's bucket
		// and add it to the new owner's bucket
		if oldOwner != "" {
			result := db.Where(
				"chain_id = ? AND token_contract = ? AND token_id = ?",
				chainID,
				tokenContract,
				tokenID,
			).Delete(&models.OwnerTokenIndex{})
			if result.Error != nil {
				return false, fmt.Errorf(
					"failed to clear owner index: %w",
					result.Error,
				)
			}
		}
		idxRow := models.OwnerTokenIndex{
			ChainID:       chainID,
			TokenContract: tokenContract,
			Owner:         newOwner,
			TokenID:       tokenID,
		}
		if err := db.Create(&idxRow).Error; err != nil {
			return false, fmt.Errorf("failed to save owner index: %w", err)
		}
		return true, nil
	}
	if txn != nil {
		return applyFn(txn)
	}
	// No caller transaction, wrap both writes in our own
	var applied bool
	err := d.db.Transaction(func(db *gorm.DB) error {
		var applyErr error
		applied, applyErr = applyFn(db)
		return applyErr
	})
	return applied, err
}

// GetTokenOwner returns the current owner of a token, or empty when untracked
func (d *Database) GetTokenOwner(
	chainID uint64,
	tokenContract string,
	tokenID uint64,
	txn *gorm.DB,
) (string, error) {
	db := d.txnOrDB(txn)
	ret := &models.TokenOwnership{}
	result := db.Where(
		"chain_id = ? AND token_contract = ? AND token_id = ?",
		chainID,
		tokenContract,
		tokenID,
	).First(ret)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return "", nil
		}
		return "", result.Error
	}
	return ret.Owner, nil
}

// GetOwnerTokenIDs returns the token-id set in an owner's index bucket
func (d *Database) GetOwnerTokenIDs(
	chainID uint64,
	tokenContract string,
	owner string,
	txn *gorm.DB,
) ([]uint64, error) {
	db := d.txnOrDB(txn)
	var rows []models.OwnerTokenIndex
	result := db.Where(
		"chain_id = ? AND token_contract = ? AND owner = ?",
		chainID,
		tokenContract,
		owner,
	).Order("token_id").Find(&rows)
	if result.Error != nil {
		return nil, result.Error
	}
	ret := make([]uint64, 0, len(rows))
	for _, row := range rows {
		ret = append(ret, row.TokenID)
	}
	return ret, nil
}
