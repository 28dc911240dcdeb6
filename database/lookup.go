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

func lookupGrantID(db *gorm.DB, dest any, query string, args ...any) (string, error) {
	result := db.Where(query, args...).First(dest)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return "", nil
		}
		return "", result.Error
	}
	switch v := dest.(type) {
	case *models.ArbitratorLookup:
		return v.GrantID, nil
	case *models.TCRItemLookup:
		return v.GrantID, nil
	case *models.FlowPairLookup:
		return v.GrantID, nil
	case *models.PoolLookup:
		return v.GrantID, nil
	default:
		return "", fmt.Errorf("unexpected lookup row type %T", dest)
	}
}

// GetGrantIDByArbitrator resolves an arbitrator address to a grant id,
// returning empty on a miss
func (d *Database) GetGrantIDByArbitrator(
	chainID uint64,
	arbitrator string,
	txn *gorm.DB,
) (string, error) {
	return lookupGrantID(
		d.txnOrDB(txn),
		&models.ArbitratorLookup{},
		"chain_id = ? AND arbitrator = ?",
		chainID,
		arbitrator,
	)
}

// SetArbitratorLookup writes the arbitrator reverse-lookup row
func (d *Database) SetArbitratorLookup(
	chainID uint64,
	arbitrator, grantID string,
	txn *gorm.DB,
) error {
	db := d.txnOrDB(txn)
	row := &models.ArbitratorLookup{}
	result := db.FirstOrCreate(row, models.ArbitratorLookup{
		ChainID:    chainID,
		Arbitrator: arbitrator,
	})
	if result.Error != nil {
		return fmt.Errorf("failed to save arbitrator lookup: %w", result.Error)
	}
	return db.Model(row).Update("grant_id", grantID).Error
}

// GetGrantIDByTCRItem resolves a registry address plus item id to a grant id,
// returning empty on a miss
func (d *Database) GetGrantIDByTCRItem(
	chainID uint64,
	tcr, itemID string,
	txn *gorm.DB,
) (string, error) {
	return lookupGrantID(
		d.txnOrDB(txn),
		&models.TCRItemLookup{},
		"chain_id = ? AND tcr = ? AND item_id = ?",
		chainID,
		tcr,
		itemID,
	)
}

// SetTCRItemLookup writes the registry item reverse-lookup row
func (d *Database) SetTCRItemLookup(
	chainID uint64,
	tcr, itemID, grantID string,
	txn *gorm.DB,
) error {
	db := d.txnOrDB(txn)
	row := &models.TCRItemLookup{}
	result := db.FirstOrCreate(row, models.TCRItemLookup{
		ChainID: chainID,
		TCR:     tcr,
		ItemID:  itemID,
	})
	if result.Error != nil {
		return fmt.Errorf("failed to save tcr item lookup: %w", result.Error)
	}
	return db.Model(row).Update("grant_id", grantID).Error
}

// GetGrantIDByFlowPair resolves a sender/receiver pair to a grant id,
// returning empty on a miss
func (d *Database) GetGrantIDByFlowPair(
	chainID uint64,
	sender, receiver string,
	txn *gorm.DB,
) (string, error) {
	return lookupGrantID(
		d.txnOrDB(txn),
		&models.FlowPairLookup{},
		"chain_id = ? AND sender = ? AND receiver = ?",
		chainID,
		sender,
		receiver,
	)
}

// SetFlowPairLookup writes the sender/receiver reverse-lookup row
func (d *Database) SetFlowPairLookup(
	chainID uint64,
	sender, receiver, grantID string,
	txn *gorm.DB,
) error {
	db := d.txnOrDB(txn)
	row := &models.FlowPairLookup{}
	result := db.FirstOrCreate(row, models.FlowPairLookup{
		ChainID:  chainID,
		Sender:   sender,
		Receiver: receiver,
	})
	if result.Error != nil {
		return fmt.Errorf("failed to save flow pair lookup: %w", result.Error)
	}
	return db.Model(row).Update("grant_id", grantID).Error
}

// GetPoolLookup resolves a distribution pool address to its grant id and
// pool kind, returning empty on a miss
func (d *Database) GetPoolLookup(
	chainID uint64,
	pool string,
	txn *gorm.DB,
) (string, models.PoolKind, error) {
	db := d.txnOrDB(txn)
	row := &models.PoolLookup{}
	result := db.Where("chain_id = ? AND pool = ?", chainID, pool).First(row)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return "", "", nil
		}
		return "", "", result.Error
	}
	return row.GrantID, row.PoolKind, nil
}

// SetPoolLookup writes the pool reverse-lookup row
func (d *Database) SetPoolLookup(
	chainID uint64,
	pool, grantID string,
	poolKind models.PoolKind,
	txn *gorm.DB,
) error {
	db := d.txnOrDB(txn)
	row := &models.PoolLookup{}
	result := db.FirstOrCreate(row, models.PoolLookup{
		ChainID: chainID,
		Pool:    pool,
	})
	if result.Error != nil {
		return fmt.Errorf("failed to save pool lookup: %w", result.Error)
	}
	updates := map[string]any{
		"grant_id":  grantID,
		"pool_kind": poolKind,
	}
	return db.Model(row).Updates(updates).Error
}

// CountLookupFallback records a reverse-lookup miss that required a scan
func (d *Database) CountLookupFallback() {
	if d.metrics != nil {
		d.metrics.lookupFallbacks.Inc()
	}
}
