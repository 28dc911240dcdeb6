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

package indexer

import (
	"time"

	"gorm.io/gorm"
)

// Ratio is a derived fraction with an explicit undefined state. A zero
// denominator yields Valid=false, never NaN or a guessed 0%/100%.
type Ratio struct {
	Value float64
	Valid bool
}

// AcceptanceRatio computes accepted/total
func AcceptanceRatio(accepted, total uint) Ratio {
	if total == 0 {
		return Ratio{}
	}
	return Ratio{
		Value: float64(accepted) / float64(total),
		Valid: true,
	}
}

// recomputeAggregates rebuilds a flow's recipient counts from its child
// rows. Counts are rederived from source rows instead of adjusted in place,
// trading write amplification for immunity to missed-decrement drift.
func (i *Indexer) recomputeAggregates(
	chainID uint64,
	flowID string,
	txn *gorm.DB,
) error {
	if flowID == "" {
		return nil
	}
	flow, err := i.db.GetGrant(chainID, flowID, txn)
	if err != nil || flow == nil {
		return err
	}
	counts, err := i.db.CountRecipients(chainID, flowID, txn)
	if err != nil {
		return err
	}
	flow.ActiveRecipientCount = counts.Active
	flow.AwaitingRecipientCount = counts.Awaiting
	flow.ChallengedRecipientCount = counts.Challenged
	flow.UpdatedAtTime = time.Now().Unix()
	return i.db.SetGrant(flow, txn)
}
