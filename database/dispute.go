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

// GetDispute gets a dispute by its arbitrator-scoped id. Returns nil without
// error when no dispute exists.
func (d *Database) GetDispute(
	chainID uint64,
	arbitrator string,
	disputeID string,
	txn *gorm.DB,
) (*models.Dispute, error) {
	db := d.txnOrDB(txn)
	ret := &models.Dispute{}
	result := db.Where(
		"chain_id = ? AND arbitrator = ? AND dispute_id = ?",
		chainID,
		arbitrator,
		disputeID,
	).First(ret)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return ret, nil
}

// GetOpenDispute returns the single unexecuted dispute for a grant, if any.
// Finding more than one is an invariant violation: the affected grant must
// not be processed further until repaired.
func (d *Database) GetOpenDispute(
	chainID uint64,
	grantID string,
	txn *gorm.DB,
) (*models.Dispute, error) {
	db := d.txnOrDB(txn)
	var ret []models.Dispute
	result := db.Where(
		"chain_id = ? AND grant_id = ? AND is_executed = ?",
		chainID,
		grantID,
		false,
	).Find(&ret)
	if result.Error != nil {
		return nil, result.Error
	}
	switch len(ret) {
	case 0:
		return nil, nil
	case 1:
		return &ret[0], nil
	default:
		return nil, InvariantViolationError{
			Entity: models.GrantEntityKey(chainID, grantID),
			Detail: fmt.Sprintf("%d unexecuted disputes found", len(ret)),
		}
	}
}

// SetDispute saves a dispute. Time bounds are validated on every write, and
// an already-executed dispute is immutable.
func (d *Database) SetDispute(dispute *models.Dispute, txn *gorm.DB) error {
	if dispute.VotingStartTime >= dispute.VotingEndTime ||
		dispute.VotingEndTime >= dispute.RevealPeriodEndTime {
		return InvariantViolationError{
			Entity: fmt.Sprintf(
				"dispute:%d:%s:%s",
				dispute.ChainID,
				dispute.Arbitrator,
				dispute.DisputeID,
			),
			Detail: "dispute time bounds not strictly increasing",
		}
	}
	db := d.txnOrDB(txn)
	if dispute.ID == 0 {
		existing := &models.Dispute{}
		result := db.Where(
			"chain_id = ? AND arbitrator = ? AND dispute_id = ?",
			dispute.ChainID,
			dispute.Arbitrator,
			dispute.DisputeID,
		).First(existing)
		if result.Error == nil {
			if existing.IsExecuted {
				return InvariantViolationError{
					Entity: fmt.Sprintf(
						"dispute:%d:%s:%s",
						dispute.ChainID,
						dispute.Arbitrator,
						dispute.DisputeID,
					),
					Detail: "attempted write to executed dispute",
				}
			}
			dispute.ID = existing.ID
		} else if !errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return result.Error
		}
	}
	if err := db.Save(dispute).Error; err != nil {
		return fmt.Errorf("failed to save dispute: %w", err)
	}
	return nil
}

// GetDisputeVote gets one voter's participation in a dispute. Returns nil
// without error when the voter has not committed.
func (d *Database) GetDisputeVote(
	chainID uint64,
	arbitrator string,
	disputeID string,
	voter string,
	txn *gorm.DB,
) (*models.DisputeVote, error) {
	db := d.txnOrDB(txn)
	ret := &models.DisputeVote{}
	result := db.Where(
		"chain_id = ? AND arbitrator = ? AND dispute_id = ? AND voter = ?",
		chainID,
		arbitrator,
		disputeID,
		voter,
	).First(ret)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return ret, nil
}

// SetDisputeVote saves a dispute vote, creating it on first commit
func (d *Database) SetDisputeVote(
	vote *models.DisputeVote,
	txn *gorm.DB,
) error {
	db := d.txnOrDB(txn)
	if vote.ID == 0 {
		existing := &models.DisputeVote{}
		result := db.Where(
			"chain_id = ? AND arbitrator = ? AND dispute_id = ? AND voter = ?",
			vote.ChainID,
			vote.Arbitrator,
			vote.DisputeID,
			vote.Voter,
		).First(existing)
		if result.Error == nil {
			vote.ID = existing.ID
		} else if !errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return result.Error
		}
	}
	if err := db.Save(vote).Error; err != nil {
		return fmt.Errorf("failed to save dispute vote: %w", err)
	}
	return nil
}

// PendingReveal pairs an unrevealed vote with its dispute for the
// auto-reveal scheduler
type PendingReveal struct {
	Vote    models.DisputeVote
	Dispute models.Dispute
}

// GetPendingReveals returns unrevealed, unflagged votes whose dispute has
// closed voting, along with their disputes. Votes already marked missed or
// halted are excluded.
func (d *Database) GetPendingReveals(
	now int64,
	txn *gorm.DB,
) ([]PendingReveal, error) {
	db := d.txnOrDB(txn)
	var disputes []models.Dispute
	result := db.Where(
		"is_executed = ? AND voting_end_time <= ?",
		false,
		now,
	).Find(&disputes)
	if result.Error != nil {
		return nil, result.Error
	}
	var ret []PendingReveal
	for _, dispute := range disputes {
		var votes []models.DisputeVote
		result := db.Where(
			"chain_id = ? AND arbitrator = ? AND dispute_id = ?"+
				" AND choice IS NULL AND reveal_missed = ? AND reveal_halted = ?",
			dispute.ChainID,
			dispute.Arbitrator,
			dispute.DisputeID,
			false,
			false,
		).Find(&votes)
		if result.Error != nil {
			return nil, result.Error
		}
		for _, vote := range votes {
			ret = append(ret, PendingReveal{Vote: vote, Dispute: dispute})
		}
	}
	return ret, nil
}
