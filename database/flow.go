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
	"github.com/flowstate-labs/flowd/database/types"
	"gorm.io/gorm"
)

// GetSuperfluidFlow gets the flow row for a (token, sender, receiver) tuple.
// Returns nil without error when no flow has ever existed for the tuple.
func (d *Database) GetSuperfluidFlow(
	chainID uint64,
	token, sender, receiver string,
	txn *gorm.DB,
) (*models.SuperfluidFlow, error) {
	db := d.txnOrDB(txn)
	ret := &models.SuperfluidFlow{}
	result := db.Where(
		"chain_id = ? AND token = ? AND sender = ? AND receiver = ?",
		chainID,
		token,
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

// UpsertSuperfluidFlow applies a flow-rate update for a tuple. A zero rate
// closes the flow by stamping CloseTime; a non-zero rate on a closed flow
// reopens it, clearing CloseTime and resetting StartTime. A stale delivery
// no-ops; the return value reports whether the update was applied.
func (d *Database) UpsertSuperfluidFlow(
	chainID uint64,
	token, sender, receiver string,
	flowRate, deposit types.BigInt,
	timestamp int64,
	block, logIndex uint64,
	txn *gorm.DB,
) (*models.SuperfluidFlow, bool, error) {
	db := d.txnOrDB(txn)
	flow, err := d.GetSuperfluidFlow(chainID, token, sender, receiver, db)
	if err != nil {
		return nil, false, err
	}
	if flow == nil {
		flow = &models.SuperfluidFlow{
			ChainID:   chainID,
			Token:     token,
			Sender:    sender,
			Receiver:  receiver,
			StartTime: timestamp,
		}
	} else if block < flow.AppliedBlock ||
		(block == flow.AppliedBlock && logIndex <= flow.AppliedLogIndex) {
		// Reject events at or behind the applied cursor
		return flow, false, nil
	}
	flow.AppliedBlock = block
	flow.AppliedLogIndex = logIndex
	if flow.Closed() && flowRate.Sign() != 0 {
		// Reopening a previously-closed flow
		flow.CloseTime = nil
		flow.StartTime = timestamp
	}
	flow.FlowRate = flowRate
	flow.Deposit = deposit
	flow.LastUpdate = timestamp
	if flowRate.Sign() == 0 && flow.CloseTime == nil {
		closeTime := timestamp
		flow.CloseTime = &closeTime
	}
	if err := db.Save(flow).Error; err != nil {
		return nil, false, fmt.Errorf("failed to save superfluid flow: %w", err)
	}
	return flow, true, nil
}

// GetActiveFlowsBySender returns all open flows originating from a sender
func (d *Database) GetActiveFlowsBySender(
	chainID uint64,
	sender string,
	txn *gorm.DB,
) ([]models.SuperfluidFlow, error) {
	db := d.txnOrDB(txn)
	var ret []models.SuperfluidFlow
	result := db.Where(
		"chain_id = ? AND sender = ? AND close_time IS NULL",
		chainID,
		sender,
	).Order("id").Find(&ret)
	if result.Error != nil {
		return nil, result.Error
	}
	return ret, nil
}
