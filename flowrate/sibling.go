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

package flowrate

import (
	"fmt"
	"math/big"

	"github.com/flowstate-labs/flowd/database"
	"github.com/flowstate-labs/flowd/database/models"
	"github.com/flowstate-labs/flowd/database/types"
)

// ChildRateChange is one observed stream update for a recipient grant.
// PoolKind names which of the parent's distribution pools the stream
// originates from; a direct stream from the flow contract leaves it empty.
// Earned is the value streamed at the previous rate since the last update.
type ChildRateChange struct {
	GrantID  string
	NewRate  *big.Int
	Earned   *big.Int
	PoolKind models.PoolKind
}

// ApplyChildRateChange records a child's new monthly rate for one stream and
// folds the delta into the parent pool's outgoing aggregate, all in one store
// transaction. The stream's previous contribution is persisted per pool and
// subtracted exactly, so concurrent updates from unrelated siblings never
// corrupt the parent aggregate the way a full child rescan under concurrency
// could. Earned value accrues to the child's lifetime total and the parent's
// paid-out total.
func ApplyChildRateChange(
	db *database.Database,
	chainID uint64,
	change ChildRateChange,
) error {
	txn := db.Transaction()
	child, err := db.GetGrant(chainID, change.GrantID, txn)
	if err != nil {
		txn.Rollback()
		return err
	}
	if child == nil {
		txn.Rollback()
		return fmt.Errorf("grant %d:%s not found", chainID, change.GrantID)
	}
	newRate := new(big.Int).Set(change.NewRate)
	var prev *big.Int
	switch change.PoolKind {
	case models.PoolKindBaseline:
		prev = bigOrZero(child.MonthlyBaselineFlowRate)
		child.MonthlyBaselineFlowRate = types.BigInt{Int: newRate}
	case models.PoolKindBonus:
		prev = bigOrZero(child.MonthlyBonusFlowRate)
		child.MonthlyBonusFlowRate = types.BigInt{Int: newRate}
	default:
		prev = bigOrZero(child.LastReportedMonthlyRate)
		child.LastReportedMonthlyRate = types.BigInt{Int: newRate}
	}
	delta := new(big.Int).Sub(newRate, prev)
	child.MonthlyIncomingFlowRate = types.BigInt{Int: new(big.Int).Add(
		bigOrZero(child.MonthlyIncomingFlowRate),
		delta,
	)}
	earned := new(big.Int)
	if change.Earned != nil {
		earned.Set(change.Earned)
	}
	if earned.Sign() != 0 {
		child.TotalEarned = types.BigInt{Int: new(big.Int).Add(
			bigOrZero(child.TotalEarned),
			earned,
		)}
	}
	if err := db.SetGrant(child, txn); err != nil {
		txn.Rollback()
		return err
	}
	if child.FlowID != "" && (delta.Sign() != 0 || earned.Sign() != 0) {
		parent, err := db.GetGrant(chainID, child.FlowID, txn)
		if err != nil {
			txn.Rollback()
			return err
		}
		if parent != nil {
			outgoing := new(big.Int).Add(
				bigOrZero(parent.MonthlyOutgoingFlowRate),
				delta,
			)
			parent.MonthlyOutgoingFlowRate = types.BigInt{Int: outgoing}
			if earned.Sign() != 0 {
				parent.TotalPaidOut = types.BigInt{Int: new(big.Int).Add(
					bigOrZero(parent.TotalPaidOut),
					earned,
				)}
			}
			if err := db.SetGrant(parent, txn); err != nil {
				txn.Rollback()
				return err
			}
		}
	}
	if err := txn.Commit().Error; err != nil {
		return fmt.Errorf("failed to commit rate change: %w", err)
	}
	return nil
}
