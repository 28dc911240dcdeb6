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
	"errors"
	"fmt"
	"math/big"

	"github.com/flowstate-labs/flowd/chain"
	"github.com/flowstate-labs/flowd/database"
	"github.com/flowstate-labs/flowd/database/models"
	"github.com/flowstate-labs/flowd/database/types"
	"github.com/flowstate-labs/flowd/dispute"
	"github.com/flowstate-labs/flowd/event"
	"github.com/flowstate-labs/flowd/flowrate"
	"gorm.io/gorm"
)

// secondsPerMonth converts per-second streaming rates into the monthly
// figures stored on grants (30-day month, matching the on-chain convention)
const secondsPerMonth = 60 * 60 * 24 * 30

// errStaleEvent signals an event at or behind the entity's applied cursor.
// Stale events are counted and dropped, never treated as failures.
var errStaleEvent = errors.New("stale event")

// inTxn runs fn inside one store transaction, translating the stale-event
// signal into a clean skip
func (i *Indexer) inTxn(ev *chain.LogEvent, fn func(txn *gorm.DB) error) error {
	txn := i.db.Transaction()
	if err := fn(txn); err != nil {
		txn.Rollback()
		if errors.Is(err, errStaleEvent) {
			if i.metrics != nil {
				i.metrics.eventsSkipped.WithLabelValues(ev.Kind().String()).Inc()
			}
			return nil
		}
		return err
	}
	if err := txn.Commit().Error; err != nil {
		return fmt.Errorf("failed to commit event: %w", err)
	}
	return nil
}

// checkCursor rejects events at or behind a grant's applied cursor and
// stamps the new cursor otherwise
func checkCursor(grant *models.Grant, ev *chain.LogEvent) error {
	if grant.ID != 0 && !ev.Sequence().After(chain.SequenceKey{
		BlockNumber: grant.AppliedBlock,
		LogIndex:    grant.AppliedLogIndex,
	}) {
		return errStaleEvent
	}
	grant.AppliedBlock = ev.BlockNumber
	grant.AppliedLogIndex = ev.LogIndex
	grant.UpdatedAtTime = ev.Timestamp
	return nil
}

func (i *Indexer) publishGrantUpdated(chainID uint64, grantID string) {
	if i.eventBus == nil {
		return
	}
	i.eventBus.Publish(
		event.GrantUpdatedEventType,
		event.NewEvent(
			event.GrantUpdatedEventType,
			event.GrantUpdatedEvent{ChainID: chainID, GrantID: grantID},
		),
	)
}

func (i *Indexer) handleRecipientCreated(ev *chain.LogEvent) error {
	recipientID, err := ev.Args.String("recipientId")
	if err != nil {
		return err
	}
	contract := chain.NormalizeAddress(ev.ContractAddress)
	err = i.inTxn(ev, func(txn *gorm.DB) error {
		grant, err := i.db.GetGrant(ev.ChainID, recipientID, txn)
		if err != nil {
			return err
		}
		if grant == nil {
			grant = &models.Grant{
				ChainID:        ev.ChainID,
				GrantID:        recipientID,
				CreatedAtBlock: ev.BlockNumber,
			}
		}
		if err := checkCursor(grant, ev); err != nil {
			return err
		}
		grant.ParentContract = contract
		grant.IsActive = true
		grant.IsRemoved = false
		grant.Status = models.RegistryStatusRegistered
		if recipient, err := ev.Args.AddressString("recipient"); err == nil {
			grant.Recipient = recipient
		}
		if submitter, err := ev.Args.AddressString("submitter"); err == nil {
			grant.Submitter = submitter
		}
		if root, err := ev.Args.AddressString("rootContract"); err == nil {
			grant.RootContract = root
		}
		if flowID, err := ev.Args.String("flowId"); err == nil {
			grant.FlowID = flowID
		}
		if isFlow, err := ev.Args.Bool("isFlow"); err == nil {
			grant.IsFlow = isFlow
		}
		if arbitrator, err := ev.Args.AddressString("arbitrator"); err == nil {
			grant.Arbitrator = arbitrator
		}
		if tcr, err := ev.Args.AddressString("tcr"); err == nil {
			grant.TCR = tcr
		}
		if itemID, err := ev.Args.String("itemId"); err == nil {
			grant.ItemID = itemID
		}
		if pool, err := ev.Args.AddressString("baselinePool"); err == nil {
			grant.BaselinePool = pool
		}
		if pool, err := ev.Args.AddressString("bonusPool"); err == nil {
			grant.BonusPool = pool
		}
		if err := i.db.SetGrant(grant, txn); err != nil {
			return err
		}
		// Reverse-lookup rows are rebuilt in the same transaction as the
		// grant they reference
		if grant.Arbitrator != "" {
			if err := i.db.SetArbitratorLookup(
				ev.ChainID, grant.Arbitrator, grant.GrantID, txn,
			); err != nil {
				return err
			}
		}
		if grant.TCR != "" && grant.ItemID != "" {
			if err := i.db.SetTCRItemLookup(
				ev.ChainID, grant.TCR, grant.ItemID, grant.GrantID, txn,
			); err != nil {
				return err
			}
		}
		if grant.BaselinePool != "" {
			if err := i.db.SetPoolLookup(
				ev.ChainID, grant.BaselinePool, grant.GrantID,
				models.PoolKindBaseline, txn,
			); err != nil {
				return err
			}
		}
		if grant.BonusPool != "" {
			if err := i.db.SetPoolLookup(
				ev.ChainID, grant.BonusPool, grant.GrantID,
				models.PoolKindBonus, txn,
			); err != nil {
				return err
			}
		}
		if grant.Recipient != "" {
			// Streams reach the recipient from the flow contract itself and
			// from its distribution pools; all three pairs resolve to this
			// grant
			for _, sender := range []string{
				contract,
				grant.BaselinePool,
				grant.BonusPool,
			} {
				if sender == "" {
					continue
				}
				if err := i.db.SetFlowPairLookup(
					ev.ChainID, sender, grant.Recipient, grant.GrantID, txn,
				); err != nil {
					return err
				}
			}
		}
		return i.recomputeAggregates(ev.ChainID, grant.FlowID, txn)
	})
	if err != nil {
		return err
	}
	i.publishGrantUpdated(ev.ChainID, recipientID)
	return nil
}

func (i *Indexer) handleRecipientRemoved(ev *chain.LogEvent) error {
	recipientID, err := ev.Args.String("recipientId")
	if err != nil {
		return err
	}
	err = i.inTxn(ev, func(txn *gorm.DB) error {
		grant, err := i.db.GetGrant(ev.ChainID, recipientID, txn)
		if err != nil {
			return err
		}
		if grant == nil {
			// Removal for a grant never observed; nothing to mark
			return nil
		}
		if err := checkCursor(grant, ev); err != nil {
			return err
		}
		grant.IsRemoved = true
		grant.IsActive = false
		grant.Status = models.RegistryStatusAbsent
		if err := i.db.SetGrant(grant, txn); err != nil {
			return err
		}
		return i.recomputeAggregates(ev.ChainID, grant.FlowID, txn)
	})
	if err != nil {
		return err
	}
	i.publishGrantUpdated(ev.ChainID, recipientID)
	return nil
}

func (i *Indexer) handleTokenTransfer(ev *chain.LogEvent) error {
	tokenID, err := ev.Args.Uint64("tokenId")
	if err != nil {
		return err
	}
	newOwner, err := ev.Args.AddressString("to")
	if err != nil {
		return err
	}
	contract := chain.NormalizeAddress(ev.ContractAddress)
	applied, err := i.db.ApplyTokenTransfer(
		ev.ChainID,
		contract,
		tokenID,
		newOwner,
		ev.BlockNumber,
		ev.LogIndex,
		nil,
	)
	if err != nil {
		return err
	}
	if !applied && i.metrics != nil {
		i.metrics.eventsSkipped.WithLabelValues(ev.Kind().String()).Inc()
	}
	return nil
}

func (i *Indexer) handleFlowRateUpdated(ev *chain.LogEvent) error {
	token, err := ev.Args.AddressString("token")
	if err != nil {
		return err
	}
	sender, err := ev.Args.AddressString("sender")
	if err != nil {
		return err
	}
	receiver, err := ev.Args.AddressString("receiver")
	if err != nil {
		return err
	}
	rate, err := ev.Args.BigInt("flowRate")
	if err != nil {
		return err
	}
	deposit := new(big.Int)
	if d, err := ev.Args.BigInt("deposit"); err == nil {
		deposit = d
	}
	// Value streamed at the previous rate since the tuple's last update; it
	// has to be read before the upsert overwrites the rate
	prior, err := i.db.GetSuperfluidFlow(ev.ChainID, token, sender, receiver, nil)
	if err != nil {
		return err
	}
	earned := new(big.Int)
	if prior != nil && !prior.Closed() && prior.FlowRate.Int != nil &&
		ev.Timestamp > prior.LastUpdate {
		earned.Mul(
			prior.FlowRate.Int,
			big.NewInt(ev.Timestamp-prior.LastUpdate),
		)
	}
	_, applied, err := i.db.UpsertSuperfluidFlow(
		ev.ChainID,
		token,
		sender,
		receiver,
		types.BigInt{Int: rate},
		types.BigInt{Int: deposit},
		ev.Timestamp,
		ev.BlockNumber,
		ev.LogIndex,
		nil,
	)
	if err != nil {
		return err
	}
	if !applied {
		if i.metrics != nil {
			i.metrics.eventsSkipped.WithLabelValues(ev.Kind().String()).Inc()
		}
		return nil
	}
	// Fold the new rate into the receiving grant and its parent pool
	// aggregate. Untracked pairs are plain streaming traffic, not grants.
	grant, err := i.resolveGrantByFlowPair(ev.ChainID, sender, receiver, nil)
	if err != nil {
		return err
	}
	if grant == nil {
		return nil
	}
	change := flowrate.ChildRateChange{
		GrantID: grant.GrantID,
		NewRate: new(big.Int).Mul(rate, big.NewInt(secondsPerMonth)),
		Earned:  earned,
	}
	switch sender {
	case grant.BaselinePool:
		change.PoolKind = models.PoolKindBaseline
	case grant.BonusPool:
		change.PoolKind = models.PoolKindBonus
	}
	if err := flowrate.ApplyChildRateChange(i.db, ev.ChainID, change); err != nil {
		return err
	}
	i.publishGrantUpdated(ev.ChainID, grant.GrantID)
	return nil
}

// handlePoolRateUpdated records the per-second rates a flow contract is
// configured to distribute across its baseline and bonus pools. The budgets
// are what the drift reconciler measures observed streaming against.
func (i *Indexer) handlePoolRateUpdated(ev *chain.LogEvent) error {
	flowID, err := ev.Args.String("flowId")
	if err != nil {
		return err
	}
	baseline, err := ev.Args.BigInt("baselineFlowRate")
	if err != nil {
		return err
	}
	bonus, err := ev.Args.BigInt("bonusFlowRate")
	if err != nil {
		return err
	}
	err = i.inTxn(ev, func(txn *gorm.DB) error {
		grant, err := i.db.GetGrant(ev.ChainID, flowID, txn)
		if err != nil {
			return err
		}
		if grant == nil {
			// Rate configuration can land before the flow's own creation
			// event; seed the row so the budget is never lost
			grant = &models.Grant{
				ChainID:        ev.ChainID,
				GrantID:        flowID,
				CreatedAtBlock: ev.BlockNumber,
			}
		}
		if err := checkCursor(grant, ev); err != nil {
			return err
		}
		grant.IsFlow = true
		grant.ParentContract = chain.NormalizeAddress(ev.ContractAddress)
		grant.MonthlyBaselinePoolFlowRate = monthlyFromPerSecond(baseline)
		grant.MonthlyBonusPoolFlowRate = monthlyFromPerSecond(bonus)
		return i.db.SetGrant(grant, txn)
	})
	if err != nil {
		return err
	}
	i.publishGrantUpdated(ev.ChainID, flowID)
	return nil
}

func monthlyFromPerSecond(perSecond *big.Int) types.BigInt {
	return types.BigInt{
		Int: new(big.Int).Mul(perSecond, big.NewInt(secondsPerMonth)),
	}
}

func (i *Indexer) handleMemberUnitsUpdated(ev *chain.LogEvent) error {
	recipientID, err := ev.Args.String("recipientId")
	if err != nil {
		return err
	}
	err = i.inTxn(ev, func(txn *gorm.DB) error {
		grant, err := i.db.GetGrant(ev.ChainID, recipientID, txn)
		if err != nil {
			return err
		}
		if grant == nil {
			return nil
		}
		if err := checkCursor(grant, ev); err != nil {
			return err
		}
		if units, err := ev.Args.Uint64("baselineMemberUnits"); err == nil {
			grant.BaselineMemberUnits = types.Uint64(units)
		}
		if units, err := ev.Args.Uint64("bonusMemberUnits"); err == nil {
			grant.BonusMemberUnits = types.Uint64(units)
		}
		if units, err := ev.Args.Uint64("memberUnits"); err == nil {
			grant.MemberUnits = types.Uint64(units)
		}
		if err := i.db.SetGrant(grant, txn); err != nil {
			return err
		}
		return i.recomputePoolUnits(ev.ChainID, grant.FlowID, txn)
	})
	if err != nil {
		return err
	}
	i.publishGrantUpdated(ev.ChainID, recipientID)
	return nil
}

// recomputePoolUnits rederives a pool's total member units from its child
// rows so target-rate shares always divide by the true total
func (i *Indexer) recomputePoolUnits(
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
	children, err := i.db.GetChildGrants(chainID, flowID, txn)
	if err != nil {
		return err
	}
	var baseline, bonus uint64
	for _, child := range children {
		if child.IsRemoved {
			continue
		}
		baseline += uint64(child.BaselineMemberUnits)
		bonus += uint64(child.BonusMemberUnits)
	}
	flow.BaselineMemberUnits = types.Uint64(baseline)
	flow.BonusMemberUnits = types.Uint64(bonus)
	return i.db.SetGrant(flow, txn)
}

func (i *Indexer) handleAllocationSet(ev *chain.LogEvent) error {
	allocationKey, err := ev.Args.String("allocationKey")
	if err != nil {
		return err
	}
	strategy, err := ev.Args.String("strategy")
	if err != nil {
		return err
	}
	allocator, err := ev.Args.AddressString("allocator")
	if err != nil {
		return err
	}
	entries, err := allocationEntries(ev.Args)
	if err != nil {
		return err
	}
	contract := chain.NormalizeAddress(ev.ContractAddress)
	return i.inTxn(ev, func(txn *gorm.DB) error {
		return i.db.ReplaceAllocationSet(
			ev.ChainID,
			contract,
			allocationKey,
			strategy,
			allocator,
			entries,
			ev.BlockNumber,
			txn,
		)
	})
}

func (i *Indexer) handleItemSubmitted(ev *chain.LogEvent) error {
	itemID, err := ev.Args.String("itemId")
	if err != nil {
		return err
	}
	recipientID, err := ev.Args.String("recipientId")
	if err != nil {
		// The registry item id doubles as the grant id when the submission
		// carries no explicit recipient
		recipientID = itemID
	}
	tcr := chain.NormalizeAddress(ev.ContractAddress)
	err = i.inTxn(ev, func(txn *gorm.DB) error {
		grant, err := i.db.GetGrant(ev.ChainID, recipientID, txn)
		if err != nil {
			return err
		}
		if grant == nil {
			grant = &models.Grant{
				ChainID:        ev.ChainID,
				GrantID:        recipientID,
				CreatedAtBlock: ev.BlockNumber,
			}
		}
		if err := checkCursor(grant, ev); err != nil {
			return err
		}
		grant.TCR = tcr
		grant.ItemID = itemID
		grant.Status = models.RegistryStatusRegistrationRequested
		if recipient, err := ev.Args.AddressString("recipient"); err == nil {
			grant.Recipient = recipient
		}
		if submitter, err := ev.Args.AddressString("submitter"); err == nil {
			grant.Submitter = submitter
		}
		if flowID, err := ev.Args.String("flowId"); err == nil {
			grant.FlowID = flowID
		}
		if ends, err := ev.Args.Uint64("challengePeriodEnd"); err == nil {
			grant.ChallengePeriodEndsAt = int64(ends) //nolint:gosec
		}
		if err := i.db.SetGrant(grant, txn); err != nil {
			return err
		}
		if err := i.db.SetTCRItemLookup(
			ev.ChainID, tcr, itemID, grant.GrantID, txn,
		); err != nil {
			return err
		}
		return i.recomputeAggregates(ev.ChainID, grant.FlowID, txn)
	})
	if err != nil {
		return err
	}
	i.publishGrantUpdated(ev.ChainID, recipientID)
	return nil
}

func (i *Indexer) handleItemStatusChange(ev *chain.LogEvent) error {
	itemID, err := ev.Args.String("itemId")
	if err != nil {
		return err
	}
	status, err := ev.Args.Uint64("status")
	if err != nil {
		return err
	}
	tcr := chain.NormalizeAddress(ev.ContractAddress)
	var grantID string
	err = i.inTxn(ev, func(txn *gorm.DB) error {
		grant, err := i.resolveGrantByTCRItem(ev.ChainID, tcr, itemID, txn)
		if err != nil || grant == nil {
			return err
		}
		if err := checkCursor(grant, ev); err != nil {
			return err
		}
		grantID = grant.GrantID
		grant.Status = models.RegistryStatus(status) //nolint:gosec
		switch grant.Status {
		case models.RegistryStatusRegistered:
			grant.IsActive = true
			grant.IsRemoved = false
		case models.RegistryStatusAbsent:
			grant.IsActive = false
			grant.IsRemoved = true
		}
		if err := i.db.SetGrant(grant, txn); err != nil {
			return err
		}
		return i.recomputeAggregates(ev.ChainID, grant.FlowID, txn)
	})
	if err != nil {
		return err
	}
	if grantID != "" {
		i.publishGrantUpdated(ev.ChainID, grantID)
	}
	return nil
}

func (i *Indexer) handleChallengeRaised(ev *chain.LogEvent) error {
	itemID, err := ev.Args.String("itemId")
	if err != nil {
		return err
	}
	disputeID, err := ev.Args.String("disputeId")
	if err != nil {
		return err
	}
	arbitrator, err := ev.Args.AddressString("arbitrator")
	if err != nil {
		return err
	}
	votingStart, err := ev.Args.Uint64("votingStartTime")
	if err != nil {
		return err
	}
	votingEnd, err := ev.Args.Uint64("votingEndTime")
	if err != nil {
		return err
	}
	revealEnd, err := ev.Args.Uint64("revealPeriodEndTime")
	if err != nil {
		return err
	}
	tcr := chain.NormalizeAddress(ev.ContractAddress)
	var grantID string
	err = i.inTxn(ev, func(txn *gorm.DB) error {
		grant, err := i.resolveGrantByTCRItem(ev.ChainID, tcr, itemID, txn)
		if err != nil || grant == nil {
			return err
		}
		if err := checkCursor(grant, ev); err != nil {
			return err
		}
		grantID = grant.GrantID
		// A grant carries at most one unexecuted dispute; a second challenge
		// before the first resolves means the upstream feed is corrupt
		open, err := i.db.GetOpenDispute(ev.ChainID, grant.GrantID, txn)
		if err != nil {
			return err
		}
		if open != nil && open.DisputeID != disputeID {
			return database.InvariantViolationError{
				Entity: grant.EntityKey(),
				Detail: fmt.Sprintf(
					"challenge %s raised while dispute %s is still open",
					disputeID,
					open.DisputeID,
				),
			}
		}
		grant.IsDisputed = true
		grant.IsResolved = false
		grant.Status = models.RegistryStatusClearingRequested
		grant.Arbitrator = arbitrator
		groupID, groupErr := ev.Args.String("evidenceGroupId")
		if groupErr == nil {
			grant.EvidenceGroupID = groupID
		}
		if err := i.db.SetGrant(grant, txn); err != nil {
			return err
		}
		if err := i.db.SetArbitratorLookup(
			ev.ChainID, arbitrator, grant.GrantID, txn,
		); err != nil {
			return err
		}
		d := &models.Dispute{
			ChainID:             ev.ChainID,
			Arbitrator:          arbitrator,
			DisputeID:           disputeID,
			GrantID:             grant.GrantID,
			VotingStartTime:     int64(votingStart), //nolint:gosec
			VotingEndTime:       int64(votingEnd),   //nolint:gosec
			RevealPeriodEndTime: int64(revealEnd),   //nolint:gosec
			CreatedAtBlock:      ev.BlockNumber,
		}
		if challenger, err := ev.Args.AddressString("challenger"); err == nil {
			d.Challenger = challenger
		}
		if groupErr == nil {
			d.EvidenceGroupID = groupID
		}
		if supply, err := ev.Args.BigInt("totalSupply"); err == nil {
			d.TotalSupply = types.BigInt{Int: supply}
		}
		if err := i.db.SetDispute(d, txn); err != nil {
			return err
		}
		return i.recomputeAggregates(ev.ChainID, grant.FlowID, txn)
	})
	if err != nil {
		return err
	}
	if grantID != "" {
		i.publishGrantUpdated(ev.ChainID, grantID)
	}
	return nil
}

func (i *Indexer) handleEvidenceSubmitted(ev *chain.LogEvent) error {
	groupID, err := ev.Args.String("evidenceGroupId")
	if err != nil {
		return err
	}
	itemID, err := ev.Args.String("itemId")
	if err != nil {
		return err
	}
	tcr := chain.NormalizeAddress(ev.ContractAddress)
	return i.inTxn(ev, func(txn *gorm.DB) error {
		grant, err := i.resolveGrantByTCRItem(ev.ChainID, tcr, itemID, txn)
		if err != nil || grant == nil {
			return err
		}
		if err := checkCursor(grant, ev); err != nil {
			return err
		}
		grant.EvidenceGroupID = groupID
		return i.db.SetGrant(grant, txn)
	})
}

func (i *Indexer) handleVoteCommitted(ev *chain.LogEvent) error {
	disputeID, err := ev.Args.String("disputeId")
	if err != nil {
		return err
	}
	voter, err := ev.Args.AddressString("voter")
	if err != nil {
		return err
	}
	commitHash, err := ev.Args.String("commitHash")
	if err != nil {
		return err
	}
	arbitrator := chain.NormalizeAddress(ev.ContractAddress)
	return i.inTxn(ev, func(txn *gorm.DB) error {
		vote, err := i.db.GetDisputeVote(
			ev.ChainID, arbitrator, disputeID, voter, txn,
		)
		if err != nil {
			return err
		}
		if vote == nil {
			vote = &models.DisputeVote{
				ChainID:    ev.ChainID,
				Arbitrator: arbitrator,
				DisputeID:  disputeID,
				Voter:      voter,
			}
		} else if vote.Revealed() {
			// A commit after reveal is a redelivery; the vote is final
			return errStaleEvent
		}
		vote.CommitHash = commitHash
		vote.CommittedAt = ev.Timestamp
		return i.db.SetDisputeVote(vote, txn)
	})
}

func (i *Indexer) handleVoteRevealed(ev *chain.LogEvent) error {
	disputeID, err := ev.Args.String("disputeId")
	if err != nil {
		return err
	}
	voter, err := ev.Args.AddressString("voter")
	if err != nil {
		return err
	}
	choice, err := ev.Args.Uint64("choice")
	if err != nil {
		return err
	}
	votes, err := ev.Args.BigInt("votes")
	if err != nil {
		return err
	}
	arbitrator := chain.NormalizeAddress(ev.ContractAddress)
	return i.inTxn(ev, func(txn *gorm.DB) error {
		vote, err := i.db.GetDisputeVote(
			ev.ChainID, arbitrator, disputeID, voter, txn,
		)
		if err != nil {
			return err
		}
		if vote == nil {
			// Reveal without an observed commit; record what the chain says
			vote = &models.DisputeVote{
				ChainID:    ev.ChainID,
				Arbitrator: arbitrator,
				DisputeID:  disputeID,
				Voter:      voter,
			}
		} else if vote.Revealed() {
			return errStaleEvent
		}
		choiceVal := uint8(choice) //nolint:gosec
		vote.Choice = &choiceVal
		vote.Votes = types.BigInt{Int: votes}
		revealedAt := ev.Timestamp
		vote.RevealedAt = &revealedAt
		if reason, err := ev.Args.String("reason"); err == nil {
			vote.Reason = reason
		}
		if by, err := ev.Args.AddressString("revealedBy"); err == nil {
			vote.RevealedBy = by
		}
		if err := i.db.SetDisputeVote(vote, txn); err != nil {
			return err
		}
		d, err := i.db.GetDispute(ev.ChainID, arbitrator, disputeID, txn)
		if err != nil || d == nil {
			return err
		}
		switch models.Party(choiceVal) {
		case models.PartyRequester:
			d.RequesterPartyVotes = addBig(d.RequesterPartyVotes, votes)
		case models.PartyChallenger:
			d.ChallengerPartyVotes = addBig(d.ChallengerPartyVotes, votes)
		}
		d.Votes = addBig(d.Votes, votes)
		return i.db.SetDispute(d, txn)
	})
}

func (i *Indexer) handleDisputeExecuted(ev *chain.LogEvent) error {
	disputeID, err := ev.Args.String("disputeId")
	if err != nil {
		return err
	}
	arbitrator := chain.NormalizeAddress(ev.ContractAddress)
	var grantID string
	err = i.inTxn(ev, func(txn *gorm.DB) error {
		d, err := i.db.GetDispute(ev.ChainID, arbitrator, disputeID, txn)
		if err != nil || d == nil {
			return err
		}
		if d.IsExecuted {
			return errStaleEvent
		}
		d.Ruling = dispute.ComputeRuling(
			d.RequesterPartyVotes,
			d.ChallengerPartyVotes,
		)
		d.IsExecuted = true
		if err := i.db.SetDispute(d, txn); err != nil {
			return err
		}
		grant, err := i.resolveGrantByArbitrator(ev.ChainID, arbitrator, txn)
		if err != nil || grant == nil {
			return err
		}
		if err := checkCursor(grant, ev); err != nil {
			return err
		}
		grantID = grant.GrantID
		grant.IsDisputed = false
		grant.IsResolved = true
		switch d.Ruling {
		case models.RulingApproved:
			grant.IsActive = true
			grant.IsRemoved = false
			grant.Status = models.RegistryStatusRegistered
		case models.RulingRejected:
			grant.IsActive = false
			grant.IsRemoved = true
			grant.Status = models.RegistryStatusAbsent
		case models.RulingNoDecision:
			// A tie leaves the grant in its pre-challenge state; it is
			// neither admitted nor removed by the dispute
			grant.Status = models.RegistryStatusRegistered
		}
		if err := i.db.SetGrant(grant, txn); err != nil {
			return err
		}
		return i.recomputeAggregates(ev.ChainID, grant.FlowID, txn)
	})
	if err != nil {
		return err
	}
	if grantID != "" {
		i.publishGrantUpdated(ev.ChainID, grantID)
	}
	return nil
}

func addBig(base types.BigInt, delta *big.Int) types.BigInt {
	sum := new(big.Int)
	if base.Int != nil {
		sum.Set(base.Int)
	}
	return types.BigInt{Int: sum.Add(sum, delta)}
}
