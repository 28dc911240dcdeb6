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
	"github.com/flowstate-labs/flowd/database/types"
)

// SuperfluidFlow is a single directed streaming payment. One row exists per
// (chain, token, sender, receiver) tuple; when the rate drops to zero the
// flow is closed by setting CloseTime, and reopening the same tuple clears
// it again.
type SuperfluidFlow struct {
	ID       uint   `gorm:"primarykey"`
	ChainID  uint64 `gorm:"uniqueIndex:idx_superfluid_flow_tuple"`
	Token    string `gorm:"uniqueIndex:idx_superfluid_flow_tuple;size:42"`
	Sender   string `gorm:"uniqueIndex:idx_superfluid_flow_tuple;size:42"`
	Receiver string `gorm:"uniqueIndex:idx_superfluid_flow_tuple;size:42"`

	FlowRate types.BigInt `gorm:"type:string"`
	Deposit  types.BigInt `gorm:"type:string"`

	StartTime  int64
	LastUpdate int64
	CloseTime  *int64

	// Per-entity sequencing cursor, events at or below it are already applied
	AppliedBlock    uint64
	AppliedLogIndex uint64
}

func (SuperfluidFlow) TableName() string {
	return "superfluid_flow"
}

// Closed returns true when the flow has stopped streaming
func (f *SuperfluidFlow) Closed() bool {
	return f.CloseTime != nil
}

// Allocation is one curator's weighted vote for a recipient under a named
// strategy. The bps values across an allocation set sum to at most 10000.
type Allocation struct {
	ID            uint   `gorm:"primarykey"`
	ChainID       uint64 `gorm:"uniqueIndex:idx_allocation_scope"`
	Contract      string `gorm:"uniqueIndex:idx_allocation_scope;size:42"`
	AllocationKey string `gorm:"uniqueIndex:idx_allocation_scope;size:66"`
	Strategy      string `gorm:"uniqueIndex:idx_allocation_scope;size:42"`
	Allocator     string `gorm:"uniqueIndex:idx_allocation_scope;size:42"`
	RecipientID   string `gorm:"uniqueIndex:idx_allocation_scope;size:66"`

	BPS uint32

	CommittedAtBlock uint64
}

func (Allocation) TableName() string {
	return "allocation"
}

// MaxAllocationBPS is the basis-point total an allocation set may not exceed
const MaxAllocationBPS = 10000
