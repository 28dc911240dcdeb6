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

package chain

import (
	"github.com/ethereum/go-ethereum/common"
)

// ContractKind identifies which contract family emitted an event
type ContractKind string

const (
	ContractKindFlow       ContractKind = "flow"
	ContractKindTCR        ContractKind = "tcr"
	ContractKindArbitrator ContractKind = "arbitrator"
	ContractKindSuperfluid ContractKind = "superfluid"
	ContractKindToken      ContractKind = "token"
	ContractKindAllocator  ContractKind = "allocator"
)

// EventKind is the closed set of event variants the reconciliation engine
// dispatches on. Log payloads are mapped into a kind at decode time; names
// not in the map become EventKindUnknown rather than failing.
type EventKind int

const (
	EventKindUnknown EventKind = iota
	EventKindRecipientCreated
	EventKindRecipientRemoved
	EventKindTokenTransfer
	EventKindFlowRateUpdated
	EventKindPoolRateUpdated
	EventKindMemberUnitsUpdated
	EventKindAllocationSet
	EventKindItemSubmitted
	EventKindItemStatusChange
	EventKindChallengeRaised
	EventKindEvidenceSubmitted
	EventKindVoteCommitted
	EventKindVoteRevealed
	EventKindDisputeExecuted
)

func (k EventKind) String() string {
	switch k {
	case EventKindRecipientCreated:
		return "recipient-created"
	case EventKindRecipientRemoved:
		return "recipient-removed"
	case EventKindTokenTransfer:
		return "token-transfer"
	case EventKindFlowRateUpdated:
		return "flow-rate-updated"
	case EventKindPoolRateUpdated:
		return "pool-rate-updated"
	case EventKindMemberUnitsUpdated:
		return "member-units-updated"
	case EventKindAllocationSet:
		return "allocation-set"
	case EventKindItemSubmitted:
		return "item-submitted"
	case EventKindItemStatusChange:
		return "item-status-change"
	case EventKindChallengeRaised:
		return "challenge-raised"
	case EventKindEvidenceSubmitted:
		return "evidence-submitted"
	case EventKindVoteCommitted:
		return "vote-committed"
	case EventKindVoteRevealed:
		return "vote-revealed"
	case EventKindDisputeExecuted:
		return "dispute-executed"
	default:
		return "unknown"
	}
}

// kindTable maps (contract kind, raw event name) pairs onto event kinds
var kindTable = map[ContractKind]map[string]EventKind{
	ContractKindFlow: {
		"RecipientCreated":  EventKindRecipientCreated,
		"RecipientRemoved":  EventKindRecipientRemoved,
		"MemberUnitsUpdate": EventKindMemberUnitsUpdated,
		"FlowRateUpdated":   EventKindPoolRateUpdated,
	},
	ContractKindTCR: {
		"ItemSubmitted":    EventKindItemSubmitted,
		"ItemStatusChange": EventKindItemStatusChange,
		"Dispute":          EventKindChallengeRaised,
		"Evidence":         EventKindEvidenceSubmitted,
	},
	ContractKindArbitrator: {
		"VoteCommitted": EventKindVoteCommitted,
		"VoteRevealed":  EventKindVoteRevealed,
		"DisputeReveal": EventKindVoteRevealed,
		"Ruling":        EventKindDisputeExecuted,
	},
	ContractKindSuperfluid: {
		"FlowUpdated": EventKindFlowRateUpdated,
	},
	ContractKindToken: {
		"Transfer": EventKindTokenTransfer,
	},
	ContractKindAllocator: {
		"AllocationSet":       EventKindAllocationSet,
		"AllocationCommitted": EventKindAllocationSet,
	},
}

// DecodeKind resolves a raw event name against the closed kind set
func DecodeKind(contractKind ContractKind, eventName string) EventKind {
	if names, ok := kindTable[contractKind]; ok {
		if kind, ok := names[eventName]; ok {
			return kind
		}
	}
	return EventKindUnknown
}

// LogEvent is one decoded contract log as delivered by a chain event source
type LogEvent struct {
	ChainID         uint64
	ContractAddress common.Address
	ContractKind    ContractKind
	EventName       string
	BlockNumber     uint64
	LogIndex        uint64
	TxHash          common.Hash
	Timestamp       int64
	// Removed marks logs rescinded by a reorg
	Removed bool
	Args    Args
}

// Kind resolves the event's variant from its contract kind and name
func (e *LogEvent) Kind() EventKind {
	return DecodeKind(e.ContractKind, e.EventName)
}

// Sequence returns the event's per-entity ordering key
func (e *LogEvent) Sequence() SequenceKey {
	return SequenceKey{
		BlockNumber: e.BlockNumber,
		LogIndex:    e.LogIndex,
	}
}
