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

package models

// Reverse-lookup rows map external composite keys to grant ids so event
// handlers resolve entities without table scans. They carry no lifecycle of
// their own and are rebuilt in the same transaction as the grant they
// reference.

// ArbitratorLookup maps an arbitrator contract address to its grant
type ArbitratorLookup struct {
	ID         uint   `gorm:"primarykey"`
	ChainID    uint64 `gorm:"uniqueIndex:idx_arbitrator_lookup"`
	Arbitrator string `gorm:"uniqueIndex:idx_arbitrator_lookup;size:42"`
	GrantID    string `gorm:"size:66"`
}

func (ArbitratorLookup) TableName() string {
	return "arbitrator_lookup"
}

// TCRItemLookup maps a registry address plus item id to its grant
type TCRItemLookup struct {
	ID      uint   `gorm:"primarykey"`
	ChainID uint64 `gorm:"uniqueIndex:idx_tcr_item_lookup"`
	TCR     string `gorm:"uniqueIndex:idx_tcr_item_lookup;size:42"`
	ItemID  string `gorm:"uniqueIndex:idx_tcr_item_lookup;size:66"`
	GrantID string `gorm:"size:66"`
}

func (TCRItemLookup) TableName() string {
	return "tcr_item_lookup"
}

// FlowPairLookup maps a streaming sender/receiver pair to the receiving grant
type FlowPairLookup struct {
	ID       uint   `gorm:"primarykey"`
	ChainID  uint64 `gorm:"uniqueIndex:idx_flow_pair_lookup"`
	Sender   string `gorm:"uniqueIndex:idx_flow_pair_lookup;size:42"`
	Receiver string `gorm:"uniqueIndex:idx_flow_pair_lookup;size:42"`
	GrantID  string `gorm:"size:66"`
}

func (FlowPairLookup) TableName() string {
	return "flow_pair_lookup"
}

// PoolKind distinguishes the two distribution pools of a flow contract
type PoolKind string

const (
	PoolKindBaseline PoolKind = "baseline"
	PoolKindBonus    PoolKind = "bonus"
)

// PoolLookup maps a distribution pool address to its owning flow grant
type PoolLookup struct {
	ID       uint     `gorm:"primarykey"`
	ChainID  uint64   `gorm:"uniqueIndex:idx_pool_lookup"`
	Pool     string   `gorm:"uniqueIndex:idx_pool_lookup;size:42"`
	GrantID  string   `gorm:"size:66"`
	PoolKind PoolKind `gorm:"size:16"`
}

func (PoolLookup) TableName() string {
	return "pool_lookup"
}
