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
	"github.com/flowstate-labs/flowd/database/models"
	"gorm.io/gorm"
)

// resolveGrantByArbitrator resolves an arbitrator address to its grant.
// The KV row makes this O(1) during event handling; on a miss it falls back
// to a table scan and backfills the row so the next event stays fast.
// Returns nil when no grant is tied to the arbitrator.
func (i *Indexer) resolveGrantByArbitrator(
	chainID uint64,
	arbitrator string,
	txn *gorm.DB,
) (*models.Grant, error) {
	grantID, err := i.db.GetGrantIDByArbitrator(chainID, arbitrator, txn)
	if err != nil {
		return nil, err
	}
	if grantID != "" {
		return i.db.GetGrant(chainID, grantID, txn)
	}
	i.db.CountLookupFallback()
	grant, err := i.db.GetGrantByArbitrator(chainID, arbitrator, txn)
	if err != nil || grant == nil {
		return grant, err
	}
	if err := i.db.SetArbitratorLookup(
		chainID,
		arbitrator,
		grant.GrantID,
		txn,
	); err != nil {
		return nil, err
	}
	return grant, nil
}

// resolveGrantByTCRItem resolves a registry item to its grant with the same
// lookup-then-backfill strategy
func (i *Indexer) resolveGrantByTCRItem(
	chainID uint64,
	tcr, itemID string,
	txn *gorm.DB,
) (*models.Grant, error) {
	grantID, err := i.db.GetGrantIDByTCRItem(chainID, tcr, itemID, txn)
	if err != nil {
		return nil, err
	}
	if grantID != "" {
		return i.db.GetGrant(chainID, grantID, txn)
	}
	i.db.CountLookupFallback()
	grant, err := i.db.GetGrantByTCRItem(chainID, tcr, itemID, txn)
	if err != nil || grant == nil {
		return grant, err
	}
	if err := i.db.SetTCRItemLookup(
		chainID,
		tcr,
		itemID,
		grant.GrantID,
		txn,
	); err != nil {
		return nil, err
	}
	return grant, nil
}

// resolveGrantByFlowPair resolves a (sender, receiver) streaming pair to its
// grant with the same lookup-then-backfill strategy
func (i *Indexer) resolveGrantByFlowPair(
	chainID uint64,
	sender, receiver string,
	txn *gorm.DB,
) (*models.Grant, error) {
	grantID, err := i.db.GetGrantIDByFlowPair(chainID, sender, receiver, txn)
	if err != nil {
		return nil, err
	}
	if grantID != "" {
		return i.db.GetGrant(chainID, grantID, txn)
	}
	i.db.CountLookupFallback()
	grant, err := i.db.GetGrantByFlowPair(chainID, sender, receiver, txn)
	if err != nil || grant == nil {
		return grant, err
	}
	if err := i.db.SetFlowPairLookup(
		chainID,
		sender,
		receiver,
		grant.GrantID,
		txn,
	); err != nil {
		return nil, err
	}
	return grant, nil
}
