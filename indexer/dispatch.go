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
	"encoding/json"
	"errors"

	"github.com/cenkalti/backoff/v5"
	"github.com/flowstate-labs/flowd/chain"
	"github.com/flowstate-labs/flowd/database"
	"github.com/flowstate-labs/flowd/database/models"
	"github.com/flowstate-labs/flowd/event"
	"github.com/flowstate-labs/flowd/notify"
)

// process applies one event with retries. Transient failures are retried
// with exponential backoff; exhaustion parks the event for manual replay.
// Malformed events are never retried, a redelivery would fail identically.
func (i *Indexer) process(ev chain.LogEvent) {
	kind := ev.Kind()
	if kind == chain.EventKindUnknown {
		if i.metrics != nil {
			i.metrics.unknownEvents.Inc()
		}
		i.logger.Debug(
			"skipping unknown event",
			"component", "indexer",
			"chain_id", ev.ChainID,
			"contract", chain.NormalizeAddress(ev.ContractAddress),
			"event_name", ev.EventName,
		)
		return
	}
	var attempts uint
	expBackoff := backoff.NewExponentialBackOff()
	expBackoff.InitialInterval = i.retrySeed
	_, err := backoff.Retry(
		i.ctx,
		func() (struct{}, error) {
			attempts++
			applyErr := i.applyEvent(&ev)
			if applyErr != nil && isMalformed(applyErr) {
				return struct{}{}, backoff.Permanent(applyErr)
			}
			return struct{}{}, applyErr
		},
		backoff.WithBackOff(expBackoff),
		backoff.WithMaxTries(i.maxRetries),
	)
	if err == nil {
		if i.metrics != nil {
			i.metrics.eventsApplied.WithLabelValues(kind.String()).Inc()
		}
		return
	}
	if isMalformed(err) {
		if i.metrics != nil {
			i.metrics.eventsMalformed.Inc()
		}
		i.logger.Warn(
			"skipping malformed event",
			"component", "indexer",
			"chain_id", ev.ChainID,
			"event_name", ev.EventName,
			"block", ev.BlockNumber,
			"log_index", ev.LogIndex,
			"error", err,
		)
		// Invariant violations mean the entity's stored state can no longer
		// be trusted; operators have to repair it before further events for
		// the entity can apply
		if database.IsInvariantViolation(err) && i.notifier != nil {
			i.notifier.Notify(notify.Alert{
				Severity: notify.SeverityCritical,
				Source:   "indexer",
				Message:  "invariant violation detected",
				Fields: map[string]any{
					"chain_id":   ev.ChainID,
					"event_name": ev.EventName,
					"block":      ev.BlockNumber,
					"log_index":  ev.LogIndex,
					"error":      err.Error(),
				},
			})
		}
		return
	}
	i.park(&ev, attempts, err)
}

// isMalformed classifies errors that no amount of retrying can fix
func isMalformed(err error) bool {
	return errors.Is(err, chain.ErrMissingArg) ||
		errors.Is(err, chain.ErrInvalidArg) ||
		errors.Is(err, database.ErrAllocationOverflow) ||
		database.IsInvariantViolation(err)
}

// park stores a failed event for manual replay and surfaces it to operators
func (i *Indexer) park(ev *chain.LogEvent, attempts uint, cause error) {
	payload, err := json.Marshal(ev.Args)
	if err != nil {
		payload = nil
	}
	parked := &models.ParkedEvent{
		ChainID:         ev.ChainID,
		ContractAddress: chain.NormalizeAddress(ev.ContractAddress),
		ContractKind:    string(ev.ContractKind),
		EventName:       ev.EventName,
		BlockNumber:     ev.BlockNumber,
		LogIndex:        ev.LogIndex,
		TxHash:          ev.TxHash.Hex(),
		Timestamp:       ev.Timestamp,
		Payload:         payload,
		LastError:       cause.Error(),
		Attempts:        attempts,
	}
	if err := i.db.ParkEvent(parked, nil); err != nil {
		i.logger.Error(
			"failed to park event",
			"component", "indexer",
			"chain_id", ev.ChainID,
			"event_name", ev.EventName,
			"error", err,
		)
		return
	}
	if i.metrics != nil {
		i.metrics.eventsParked.Inc()
	}
	i.logger.Error(
		"event parked after exhausting retries",
		"component", "indexer",
		"chain_id", ev.ChainID,
		"event_name", ev.EventName,
		"block", ev.BlockNumber,
		"log_index", ev.LogIndex,
		"attempts", attempts,
		"error", cause,
	)
	if i.eventBus != nil {
		i.eventBus.Publish(
			event.EventParkedEventType,
			event.NewEvent(event.EventParkedEventType, *parked),
		)
	}
	if i.notifier != nil {
		i.notifier.Notify(notify.Alert{
			Severity: notify.SeverityWarning,
			Source:   "indexer",
			Message:  "event parked after exhausting retries",
			Fields: map[string]any{
				"chain_id":   ev.ChainID,
				"event_name": ev.EventName,
				"block":      ev.BlockNumber,
				"log_index":  ev.LogIndex,
				"error":      cause.Error(),
			},
		})
	}
}

// applyEvent dispatches an event to its handler
func (i *Indexer) applyEvent(ev *chain.LogEvent) error {
	switch ev.Kind() {
	case chain.EventKindRecipientCreated:
		return i.handleRecipientCreated(ev)
	case chain.EventKindRecipientRemoved:
		return i.handleRecipientRemoved(ev)
	case chain.EventKindTokenTransfer:
		return i.handleTokenTransfer(ev)
	case chain.EventKindFlowRateUpdated:
		return i.handleFlowRateUpdated(ev)
	case chain.EventKindPoolRateUpdated:
		return i.handlePoolRateUpdated(ev)
	case chain.EventKindMemberUnitsUpdated:
		return i.handleMemberUnitsUpdated(ev)
	case chain.EventKindAllocationSet:
		return i.handleAllocationSet(ev)
	case chain.EventKindItemSubmitted:
		return i.handleItemSubmitted(ev)
	case chain.EventKindItemStatusChange:
		return i.handleItemStatusChange(ev)
	case chain.EventKindChallengeRaised:
		return i.handleChallengeRaised(ev)
	case chain.EventKindEvidenceSubmitted:
		return i.handleEvidenceSubmitted(ev)
	case chain.EventKindVoteCommitted:
		return i.handleVoteCommitted(ev)
	case chain.EventKindVoteRevealed:
		return i.handleVoteRevealed(ev)
	case chain.EventKindDisputeExecuted:
		return i.handleDisputeExecuted(ev)
	default:
		return nil
	}
}
