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

import (
	"errors"
	"strconv"

	"github.com/flowstate-labs/flowd/database/types"
)

var ErrGrantNotFound = errors.New("grant not found")

// RegistryStatus is the TCR curation state of a Grant
type RegistryStatus uint8

const (
	RegistryStatusAbsent                RegistryStatus = 0
	RegistryStatusRegistered            RegistryStatus = 1
	RegistryStatusRegistrationRequested RegistryStatus = 2
	RegistryStatusClearingRequested     RegistryStatus = 3
)

// Grant is the unified materialized view of a funding pool (flow) or a funded
// recipient. A flow is a Grant with IsFlow set; its children are scoped by
// FlowID. Rows are never hard-deleted, removal is recorded via IsRemoved and
// IsActive so financial history survives.
type Grant struct {
	ID      uint   `gorm:"primarykey"`
	GrantID string `gorm:"uniqueIndex:idx_grant_chain_scope;size:66"`
	ChainID uint64 `gorm:"uniqueIndex:idx_grant_chain_scope"`

	Recipient      string `gorm:"index;size:42"`
	Submitter      string `gorm:"size:42"`
	ParentContract string `gorm:"index;size:42"`
	RootContract   string `gorm:"index;size:42"`
	FlowID         string `gorm:"index;size:66"`

	IsFlow     bool `gorm:"default:false"`
	IsTopLevel bool `gorm:"default:false"`
	IsActive   bool `gorm:"index;default:false"`
	IsRemoved  bool `gorm:"index;default:false"`
	IsDisputed bool `gorm:"index;default:false"`
	IsResolved bool `gorm:"default:false"`

	Status                RegistryStatus `gorm:"index"`
	ChallengePeriodEndsAt int64
	EvidenceGroupID       string `gorm:"size:80"`
	TCR                   string `gorm:"index;size:42"`
	Arbitrator            string `gorm:"index;size:42"`
	ItemID                string `gorm:"index;size:66"`

	BaselinePool string `gorm:"size:42"`
	BonusPool    string `gorm:"size:42"`

	MemberUnits         types.Uint64
	BaselineMemberUnits types.Uint64
	BonusMemberUnits    types.Uint64

	// Monthly streaming rates, wei-scale. Incoming/outgoing are the grant's
	// own aggregates, the pool-side fields are the totals the parent pool is
	// configured to distribute, and the grant-side fields are this grant's
	// share of each pool.
	MonthlyIncomingFlowRate     types.BigInt `gorm:"type:string"`
	MonthlyOutgoingFlowRate     types.BigInt `gorm:"type:string"`
	MonthlyBaselinePoolFlowRate types.BigInt `gorm:"type:string"`
	MonthlyBonusPoolFlowRate    types.BigInt `gorm:"type:string"`
	MonthlyBaselineFlowRate     types.BigInt `gorm:"type:string"`
	MonthlyBonusFlowRate        types.BigInt `gorm:"type:string"`

	// Last direct-stream rate reported to the parent pool aggregate; the
	// pool-sourced streams track theirs in the grant-side fields above.
	// Persisted so a rate change can subtract the exact previous value
	// instead of rescanning all siblings.
	LastReportedMonthlyRate types.BigInt `gorm:"type:string"`

	TotalEarned  types.BigInt `gorm:"type:string"`
	TotalPaidOut types.BigInt `gorm:"type:string"`

	ActiveRecipientCount     uint
	AwaitingRecipientCount   uint
	ChallengedRecipientCount uint

	// Per-entity sequencing cursor, events at or below it are already applied
	AppliedBlock    uint64 `gorm:"index"`
	AppliedLogIndex uint64

	CreatedAtBlock uint64
	UpdatedAtTime  int64
}

func (Grant) TableName() string {
	return "grant"
}

// EntityKey returns the sharding/sequencing key for this grant
func (g *Grant) EntityKey() string {
	return GrantEntityKey(g.ChainID, g.GrantID)
}

// GrantEntityKey builds the canonical entity key for a chain-scoped grant id
func GrantEntityKey(chainID uint64, grantID string) string {
	return "grant:" + strconv.FormatUint(chainID, 10) + ":" + grantID
}
