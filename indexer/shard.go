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
	"hash/fnv"
	"strconv"
	"strings"
	"sync"

	"github.com/flowstate-labs/flowd/chain"
)

// shard is one ordered worker queue. All events for a given entity hash to
// the same shard, which is what makes per-entity sequencing safe without
// cross-worker locking.
type shard struct {
	indexer  *Indexer
	id       string
	queue    chan chain.LogEvent
	stopOnce sync.Once
}

func newShard(i *Indexer, n, queueSize int) *shard {
	return &shard{
		indexer: i,
		id:      strconv.Itoa(n),
		queue:   make(chan chain.LogEvent, queueSize),
	}
}

func (s *shard) run() {
	i := s.indexer
	defer i.wg.Done()
	for ev := range s.queue {
		if i.metrics != nil {
			i.metrics.queueDepth.WithLabelValues(s.id).Set(float64(len(s.queue)))
		}
		i.process(ev)
	}
}

func (s *shard) stop() {
	s.stopOnce.Do(func() {
		close(s.queue)
	})
}

// route enqueues an event on the shard owning its entity
func (i *Indexer) route(ev chain.LogEvent) {
	key := entityKey(&ev)
	s := i.shards[shardFor(key, len(i.shards))]
	select {
	case <-i.ctx.Done():
	case s.queue <- ev:
	}
}

// entityKey derives the routing key an event serializes on. Events touching
// the same entity must share a key; events for unrelated entities should not,
// so unrelated work spreads across shards.
func entityKey(ev *chain.LogEvent) string {
	chainPart := strconv.FormatUint(ev.ChainID, 10)
	contract := chain.NormalizeAddress(ev.ContractAddress)
	args := ev.Args
	switch ev.Kind() {
	case chain.EventKindRecipientCreated,
		chain.EventKindRecipientRemoved,
		chain.EventKindMemberUnitsUpdated:
		if id, err := args.String("recipientId"); err == nil {
			return joinKey("grant", chainPart, id)
		}
	case chain.EventKindTokenTransfer:
		if tokenID, err := args.Uint64("tokenId"); err == nil {
			return joinKey(
				"token",
				chainPart,
				contract,
				strconv.FormatUint(tokenID, 10),
			)
		}
	case chain.EventKindPoolRateUpdated:
		// Budget updates serialize with the pool grant's own events
		if id, err := args.String("flowId"); err == nil {
			return joinKey("grant", chainPart, id)
		}
	case chain.EventKindFlowRateUpdated:
		sender, senderErr := args.AddressString("sender")
		receiver, receiverErr := args.AddressString("receiver")
		if senderErr == nil && receiverErr == nil {
			return joinKey("flow", chainPart, sender, receiver)
		}
	case chain.EventKindVoteCommitted,
		chain.EventKindVoteRevealed,
		chain.EventKindDisputeExecuted:
		if id, err := args.String("disputeId"); err == nil {
			return joinKey("dispute", chainPart, contract, id)
		}
	case chain.EventKindChallengeRaised,
		chain.EventKindEvidenceSubmitted,
		chain.EventKindItemSubmitted,
		chain.EventKindItemStatusChange:
		if id, err := args.String("itemId"); err == nil {
			return joinKey("tcr", chainPart, contract, id)
		}
	case chain.EventKindAllocationSet:
		key, keyErr := args.String("allocationKey")
		allocator, allocErr := args.AddressString("allocator")
		if keyErr == nil && allocErr == nil {
			return joinKey("alloc", chainPart, contract, key, allocator)
		}
	}
	// Unroutable events still need a stable home; the handler will produce
	// the real error or skip
	return joinKey("contract", chainPart, contract)
}

// shardFor routes an entity key onto a shard index with FNV-1a
func shardFor(key string, shards int) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return int(h.Sum32()) % shards
}

func joinKey(parts ...string) string {
	return strings.Join(parts, ":")
}
