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
	"context"
	"encoding/json"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/flowstate-labs/flowd/chain"
	"github.com/flowstate-labs/flowd/database/models"
)

// ReplayResult summarizes one parked-event replay run
type ReplayResult struct {
	Replayed int
	Failed   int
}

// ReplayParked re-applies parked events through the normal handler path,
// single-shot with no retry budget. Successfully applied events are marked
// replayed; failures are left parked with their original error intact.
func (i *Indexer) ReplayParked(
	ctx context.Context,
	limit int,
) (ReplayResult, error) {
	var ret ReplayResult
	parked, err := i.db.GetParkedEvents(limit, nil)
	if err != nil {
		return ret, fmt.Errorf("failed to load parked events: %w", err)
	}
	for _, p := range parked {
		if err := ctx.Err(); err != nil {
			return ret, err
		}
		ev, err := eventFromParked(&p)
		if err != nil {
			ret.Failed++
			i.logger.Error(
				"failed to decode parked event",
				"component", "indexer",
				"parked_id", p.ID,
				"error", err,
			)
			continue
		}
		if err := i.applyEvent(ev); err != nil {
			ret.Failed++
			i.logger.Error(
				"parked event replay failed",
				"component", "indexer",
				"parked_id", p.ID,
				"event_name", p.EventName,
				"error", err,
			)
			continue
		}
		if err := i.db.MarkParkedEventReplayed(p.ID, nil); err != nil {
			return ret, err
		}
		ret.Replayed++
	}
	return ret, nil
}

func eventFromParked(p *models.ParkedEvent) (*chain.LogEvent, error) {
	args := chain.Args{}
	if len(p.Payload) > 0 {
		if err := json.Unmarshal(p.Payload, &args); err != nil {
			return nil, fmt.Errorf("failed to decode parked payload: %w", err)
		}
	}
	return &chain.LogEvent{
		ChainID:         p.ChainID,
		ContractAddress: common.HexToAddress(p.ContractAddress),
		ContractKind:    chain.ContractKind(p.ContractKind),
		EventName:       p.EventName,
		BlockNumber:     p.BlockNumber,
		LogIndex:        p.LogIndex,
		TxHash:          common.HexToHash(p.TxHash),
		Timestamp:       p.Timestamp,
		Args:            args,
	}, nil
}
