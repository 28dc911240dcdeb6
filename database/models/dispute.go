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

	"github.com/flowstate-labs/flowd/database/types"
)

var (
	ErrDisputeNotFound     = errors.New("dispute not found")
	ErrDisputeVoteNotFound = errors.New("dispute vote not found")
)

// Ruling is the outcome of an executed dispute
type Ruling uint8

const (
	RulingNone       Ruling = 0 // dispute not yet executed
	RulingApproved   Ruling = 1 // requester party prevailed
	RulingRejected   Ruling = 2 // challenger party prevailed
	RulingNoDecision Ruling = 3 // executed with a tied tally
)

// Party identifies a side of a dispute in a vote commitment
type Party uint8

const (
	PartyNone       Party = 0
	PartyRequester  Party = 1
	PartyChallenger Party = 2
)

// Dispute is one challenge raised against a Grant. At most one unexecuted
// dispute may exist per grant; once IsExecuted is set the row is immutable.
type Dispute struct {
	ID         uint   `gorm:"primarykey"`
	ChainID    uint64 `gorm:"uniqueIndex:idx_dispute_scope"`
	Arbitrator string `gorm:"uniqueIndex:idx_dispute_scope;size:42"`
	DisputeID  string `gorm:"uniqueIndex:idx_dispute_scope;size:78"`
	GrantID    string `gorm:"index;size:66"`

	Challenger      string `gorm:"size:42"`
	EvidenceGroupID string `gorm:"size:80"`

	VotingStartTime     int64 `gorm:"index"`
	VotingEndTime       int64 `gorm:"index"`
	RevealPeriodEndTime int64 `gorm:"index"`

	RequesterPartyVotes  types.BigInt `gorm:"type:string"`
	ChallengerPartyVotes types.BigInt `gorm:"type:string"`
	Votes                types.BigInt `gorm:"type:string"`
	TotalSupply          types.BigInt `gorm:"type:string"`

	Ruling     Ruling
	IsExecuted bool `gorm:"index;default:false"`

	CreatedAtBlock uint64
}

func (Dispute) TableName() string {
	return "dispute"
}

// DisputeVote is one voter's participation in a dispute. Choice, Votes and
// Reason stay empty until the vote is revealed.
type DisputeVote struct {
	ID         uint   `gorm:"primarykey"`
	ChainID    uint64 `gorm:"uniqueIndex:idx_dispute_vote_scope"`
	Arbitrator string `gorm:"uniqueIndex:idx_dispute_vote_scope;size:42"`
	DisputeID  string `gorm:"uniqueIndex:idx_dispute_vote_scope;size:78"`
	Voter      string `gorm:"uniqueIndex:idx_dispute_vote_scope;size:42"`

	CommitHash  string `gorm:"index;size:66"`
	CommittedAt int64

	Choice     *uint8
	Votes      types.BigInt `gorm:"type:string"`
	Reason     string
	RevealedBy string `gorm:"size:42"`
	RevealedAt *int64

	// Reveal bookkeeping for the auto-reveal scheduler
	RevealMissed bool `gorm:"index;default:false"`
	RevealHalted bool `gorm:"default:false"`
}

func (DisputeVote) TableName() string {
	return "dispute_vote"
}

// Revealed returns true once the vote's choice has been disclosed
func (v *DisputeVote) Revealed() bool {
	return v.Choice != nil
}
