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
	"context"
)

// ReorgSignal announces that blocks in [FromBlock, ToBlock] were replaced.
// Derived state for the range is rebuilt by replay rather than rolled back.
type ReorgSignal struct {
	ChainID   uint64
	FromBlock uint64
	ToBlock   uint64
}

// Batch is one delivery from an event source: events ordered per block,
// optionally preceded by a reorg notice for the range they replace
type Batch struct {
	ChainID uint64
	Reorg   *ReorgSignal
	Events  []LogEvent
}

// EventSource delivers per-chain event batches. Delivery is at-least-once;
// consumers are expected to apply idempotently.
type EventSource interface {
	// Batches returns the delivery channel. The channel is closed when the
	// source shuts down.
	Batches() <-chan Batch
	// Replay re-delivers all events in the given block range, used for
	// reorg recovery and parked-event repair
	Replay(ctx context.Context, chainID, fromBlock, toBlock uint64) error
	Close() error
}

// ChannelSource is an in-memory EventSource fed by the caller. It backs
// tests and embedding setups where an external ingestion process pushes
// batches directly.
type ChannelSource struct {
	ch       chan Batch
	replayFn func(ctx context.Context, chainID, fromBlock, toBlock uint64) error
}

// NewChannelSource creates a channel-backed source with the given buffer.
// The optional replayFn serves Replay requests; a nil function makes Replay
// a no-op.
func NewChannelSource(
	buffer int,
	replayFn func(ctx context.Context, chainID, fromBlock, toBlock uint64) error,
) *ChannelSource {
	return &ChannelSource{
		ch:       make(chan Batch, buffer),
		replayFn: replayFn,
	}
}

// Push delivers a batch to consumers, blocking when the buffer is full
func (s *ChannelSource) Push(batch Batch) {
	s.ch <- batch
}

func (s *ChannelSource) Batches() <-chan Batch {
	return s.ch
}

func (s *ChannelSource) Replay(
	ctx context.Context,
	chainID, fromBlock, toBlock uint64,
) error {
	if s.replayFn == nil {
		return nil
	}
	return s.replayFn(ctx, chainID, fromBlock, toBlock)
}

func (s *ChannelSource) Close() error {
	close(s.ch)
	return nil
}
