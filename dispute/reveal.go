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

package dispute

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/flowstate-labs/flowd/database"
	"github.com/flowstate-labs/flowd/event"
	"github.com/flowstate-labs/flowd/notify"
	"github.com/flowstate-labs/flowd/vault"
)

// RunReveals processes every vote awaiting automated reveal. It is invoked
// periodically by the scheduler and once at startup to catch reveals that
// became due while the process was down.
func (m *Manager) RunReveals(ctx context.Context) error {
	now := time.Now().Unix()
	pending, err := m.db.GetPendingReveals(now, nil)
	if err != nil {
		return fmt.Errorf("failed to load pending reveals: %w", err)
	}
	for _, p := range pending {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := m.processReveal(ctx, p, now); err != nil {
			m.logger.Error(
				"failed to process reveal",
				"component", "dispute",
				"arbitrator", p.Vote.Arbitrator,
				"dispute_id", p.Vote.DisputeID,
				"voter", p.Vote.Voter,
				"error", err,
			)
		}
	}
	return nil
}

func (m *Manager) processReveal(
	ctx context.Context,
	p database.PendingReveal,
	now int64,
) error {
	vote := p.Vote
	if vote.CommitHash == "" {
		// Nothing committed on chain yet; not ours to reveal
		return nil
	}
	if now >= p.Dispute.RevealPeriodEndTime {
		return m.markMissed(&p)
	}
	if m.recentlySubmitted(vote.ID) {
		return nil
	}
	key := commitKey(
		vote.ChainID,
		vote.Arbitrator,
		vote.DisputeID,
		vote.Voter,
		vote.CommitHash,
	)
	data, err := m.vault.Get(key)
	if errors.Is(err, vault.ErrKeyNotFound) {
		// The secret was generated elsewhere (or by a third party voting
		// manually); leave the vote for them
		m.logger.Debug(
			"no stored secret for committed vote",
			"component", "dispute",
			"voter", vote.Voter,
			"dispute_id", vote.DisputeID,
		)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read vault: %w", err)
	}
	secret, err := decodeVoteSecret(data)
	if err != nil {
		return err
	}
	recomputed, err := CommitHash(secret.Choice, secret.Reason, secret.Salt)
	if err != nil {
		return err
	}
	if !hashEqual(recomputed.Hex(), vote.CommitHash) {
		return m.markHalted(&p)
	}
	if m.submitter == nil {
		return ErrNoSubmitter
	}
	// Retries stay inside the reveal window; the next scheduler pass picks
	// the vote up again if this attempt fails
	deadline := time.Unix(p.Dispute.RevealPeriodEndTime, 0)
	submitCtx, cancel := context.WithDeadline(ctx, deadline)
	defer cancel()
	req := RevealRequest{
		ChainID:    vote.ChainID,
		Arbitrator: vote.Arbitrator,
		DisputeID:  vote.DisputeID,
		Voter:      vote.Voter,
		Choice:     secret.Choice,
		Reason:     secret.Reason,
		Salt:       secret.Salt,
	}
	_, err = backoff.Retry(
		submitCtx,
		func() (struct{}, error) {
			return struct{}{}, m.submitter.SubmitReveal(submitCtx, req)
		},
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(5),
	)
	if err != nil {
		if m.metrics != nil {
			m.metrics.revealFailures.Inc()
		}
		return fmt.Errorf("failed to submit reveal: %w", err)
	}
	m.markSubmitted(vote.ID)
	if m.metrics != nil {
		m.metrics.revealsSubmitted.Inc()
	}
	m.logger.Info(
		"submitted vote reveal",
		"component", "dispute",
		"arbitrator", vote.Arbitrator,
		"dispute_id", vote.DisputeID,
		"voter", vote.Voter,
	)
	return nil
}

// markMissed flags a vote whose reveal window closed before it could be
// revealed. The vote is permanently lost and the voter's stake may be
// penalized, so the alert is critical.
func (m *Manager) markMissed(p *database.PendingReveal) error {
	vote := p.Vote
	vote.RevealMissed = true
	if err := m.db.SetDisputeVote(&vote, nil); err != nil {
		return err
	}
	if m.metrics != nil {
		m.metrics.revealsMissed.Inc()
	}
	if m.eventBus != nil {
		m.eventBus.Publish(
			event.RevealMissedEventType,
			event.NewEvent(
				event.RevealMissedEventType,
				event.RevealMissedEvent{
					ChainID:    vote.ChainID,
					Arbitrator: vote.Arbitrator,
					DisputeID:  vote.DisputeID,
					Voter:      vote.Voter,
				},
			),
		)
	}
	if m.notifier != nil {
		m.notifier.Notify(notify.Alert{
			Severity: notify.SeverityCritical,
			Source:   "dispute",
			Message:  "vote reveal deadline missed",
			Fields: map[string]any{
				"chain_id":   vote.ChainID,
				"arbitrator": vote.Arbitrator,
				"dispute_id": vote.DisputeID,
				"voter":      vote.Voter,
			},
		})
	}
	return nil
}

// markHalted flags a vote whose stored secret no longer hashes to the
// on-chain commitment. Automated reveals for the vote stop until an operator
// investigates; resubmitting a wrong tuple on chain cannot succeed anyway.
func (m *Manager) markHalted(p *database.PendingReveal) error {
	vote := p.Vote
	vote.RevealHalted = true
	if err := m.db.SetDisputeVote(&vote, nil); err != nil {
		return err
	}
	if m.metrics != nil {
		m.metrics.revealsHalted.Inc()
	}
	if m.eventBus != nil {
		m.eventBus.Publish(
			event.RevealHaltedEventType,
			event.NewEvent(
				event.RevealHaltedEventType,
				event.RevealHaltedEvent{
					ChainID:    vote.ChainID,
					Arbitrator: vote.Arbitrator,
					DisputeID:  vote.DisputeID,
					Voter:      vote.Voter,
					CommitHash: vote.CommitHash,
				},
			),
		)
	}
	if m.notifier != nil {
		m.notifier.Notify(notify.Alert{
			Severity: notify.SeverityCritical,
			Source:   "dispute",
			Message:  ErrCommitmentMismatch.Error(),
			Fields: map[string]any{
				"chain_id":    vote.ChainID,
				"arbitrator":  vote.Arbitrator,
				"dispute_id":  vote.DisputeID,
				"voter":       vote.Voter,
				"commit_hash": vote.CommitHash,
			},
		})
	}
	return ErrCommitmentMismatch
}

// recentlySubmitted suppresses resubmission while a reveal transaction is
// waiting to be observed on chain
func (m *Manager) recentlySubmitted(voteID uint) bool {
	m.submittedMu.Lock()
	defer m.submittedMu.Unlock()
	at, ok := m.submitted[voteID]
	if !ok {
		return false
	}
	if time.Since(at) > m.resubmitAfter {
		delete(m.submitted, voteID)
		return false
	}
	return true
}

func (m *Manager) markSubmitted(voteID uint) {
	m.submittedMu.Lock()
	defer m.submittedMu.Unlock()
	m.submitted[voteID] = time.Now()
}
