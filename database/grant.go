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

// GetGrant gets a grant by its chain-scoped id. Returns nil without error
// when no grant exists.
func (d *Database) GetGrant(
	chainID uint64,
	grantID string,
	txn *gorm.DB,
) (*models.Grant, error) {
	db := d.txnOrDB(txn)
	ret := &models.Grant{}
	result := db.Where("chain_id = ? AND grant_id = ?", chainID, grantID).
		First(ret)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return ret, nil
}

// SetGrant saves a grant, creating it when no row exists for its
// chain-scoped id
func (d *Database) SetGrant(grant *models.Grant, txn *gorm.DB) error {
	db := d.txnOrDB(txn)
	if grant.ID == 0 {
		existing := &models.Grant{}
		result := db.Where(
			"chain_id = ? AND grant_id = ?",
			grant.ChainID,
			grant.GrantID,
		).First(existing)
		if result.Error == nil {
			grant.ID = existing.ID
		} else if !errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return result.Error
		}
	}
	if err := db.Save(grant).Error; err != nil {
		return fmt.Errorf("failed to save grant: %w", err)
	}
	if d.metrics != nil {
		d.metrics.grantUpserts.Inc()
	}
	return nil
}

// GetChildGrants returns all grants funded by the given flow
func (d *Database) GetChildGrants(
	chainID uint64,
	flowID string,
	txn *gorm.DB,
) ([]models.Grant, error) {
	db := d.txnOrDB(txn)
	var ret []models.Grant
	result := db.Where("chain_id = ? AND flow_id = ?", chainID, flowID).
		Order("id").
		Find(&ret)
	if result.Error != nil {
		return nil, result.Error
	}
	return ret, nil
}

// RecipientCounts are the derived per-flow recipient totals
type RecipientCounts struct {
	Active     uint
	Awaiting   uint
	Challenged uint
}

// CountRecipients recomputes recipient counts for a flow from its child
// rows. Counts are always rederived from source rows rather than adjusted
// in place, so a missed decrement can never cause permanent drift.
func (d *Database) CountRecipients(
	chainID uint64,
	flowID string,
	txn *gorm.DB,
) (RecipientCounts, error) {
	db := d.txnOrDB(txn)
	var ret RecipientCounts
	type countRow struct {
		Status     models.RegistryStatus
		IsActive   bool
		IsDisputed bool
		Total      uint
	}
	var rows []countRow
	result := db.Model(&models.Grant{}).
		Select("status, is_active, is_disputed, count(*) as total").
		Where("chain_id = ? AND flow_id = ? AND is_removed = ?", chainID, flowID, false).
		Group("status, is_active, is_disputed").
		Find(&rows)
	if result.Error != nil {
		return ret, result.Error
	}
	for _, row := range rows {
		switch {
		case row.IsDisputed:
			ret.Challenged += row.Total
		case row.IsActive:
			ret.Active += row.Total
		case row.Status == models.RegistryStatusRegistrationRequested:
			ret.Awaiting += row.Total
		}
	}
	return ret, nil
}

// GetGrantByArbitrator scans for the grant tied to an arbitrator address.
// This is the fallback path when the reverse-lookup row is missing; callers
// backfill the lookup afterwards.
func (d *Database) GetGrantByArbitrator(
	chainID uint64,
	arbitrator string,
	txn *gorm.DB,
) (*models.Grant, error) {
	db := d.txnOrDB(txn)
	ret := &models.Grant{}
	result := db.Where(
		"chain_id = ? AND arbitrator = ?",
		chainID,
		arbitrator,
	).First(ret)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return ret, nil
}

// GetGrantByTCRItem scans for the grant tied to a registry item, the
// fallback when the reverse-lookup row is missing
func (d *Database) GetGrantByTCRItem(
	chainID uint64,
	tcr, itemID string,
	txn *gorm.DB,
) (*models.Grant, error) {
	db := d.txnOrDB(txn)
	ret := &models.Grant{}
	result := db.Where(
		"chain_id = ? AND tcr = ? AND item_id = ?",
		chainID,
		tcr,
		itemID,
	).First(ret)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return ret, nil
}

// GetGrantByFlowPair scans for the grant funded by a sender contract to a
// recipient address, the fallback when the reverse-lookup row is missing
func (d *Database) GetGrantByFlowPair(
	chainID uint64,
	sender, receiver string,
	txn *gorm.DB,
) (*models.Grant, error) {
	db := d.txnOrDB(txn)
	ret := &models.Grant{}
	result := db.Where(
		"chain_id = ? AND parent_contract = ? AND recipient = ?",
		chainID,
		sender,
		receiver,
	).First(ret)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return ret, nil
}

// GetFlowGrants returns all flow (pool) grants on a chain
func (d *Database) GetFlowGrants(
	chainID uint64,
	txn *gorm.DB,
) ([]models.Grant, error) {
	db := d.txnOrDB(txn)
	var ret []models.Grant
	result := db.Where(
		"chain_id = ? AND is_flow = ? AND is_removed = ?",
		chainID,
		true,
		false,
	).Order("id").Find(&ret)
	if result.Error != nil {
		return nil, result.Error
	}
	return ret, nil
}
