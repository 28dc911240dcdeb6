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
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// ErrReplayUnsupported is returned by sources that cannot re-deliver
// historical events
var ErrReplayUnsupported = errors.New("source does not support replay")

// streamBatch is the wire form of a Batch, one JSON object per line
type streamBatch struct {
	ChainID uint64        `json:"chainId"`
	Reorg   *streamReorg  `json:"reorg,omitempty"`
	Events  []streamEvent `json:"events,omitempty"`
}

type streamReorg struct {
	FromBlock uint64 `json:"fromBlock"`
	ToBlock   uint64 `json:"toBlock"`
}

type streamEvent struct {
	Contract     string `json:"contract"`
	ContractKind string `json:"contractKind"`
	Name         string `json:"name"`
	BlockNumber  uint64 `json:"blockNumber"`
	LogIndex     uint64 `json:"logIndex"`
	TxHash       string `json:"txHash"`
	Timestamp    int64  `json:"timestamp"`
	Removed      bool   `json:"removed,omitempty"`
	Args         Args   `json:"args,omitempty"`
}

// StreamSource decodes newline-delimited JSON batches from a reader,
// typically stdin fed by an external ingestion process. Replay is not
// supported; the ingester is expected to re-push after a reorg.
type StreamSource struct {
	logger    *slog.Logger
	reader    io.Reader
	ch        chan Batch
	startOnce sync.Once
	closeOnce sync.Once
	done      chan struct{}
}

// NewStreamSource creates a stream source reading from r. Decoding starts
// on the first call to Batches.
func NewStreamSource(r io.Reader, logger *slog.Logger) *StreamSource {
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return &StreamSource{
		logger: logger,
		reader: r,
		ch:     make(chan Batch),
		done:   make(chan struct{}),
	}
}

func (s *StreamSource) Batches() <-chan Batch {
	s.startOnce.Do(func() {
		go s.run()
	})
	return s.ch
}

func (s *StreamSource) run() {
	defer close(s.ch)
	scanner := bufio.NewScanner(s.reader)
	// Allocation batches can be large
	scanner.Buffer(make([]byte, 0, 64*1024), 8*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var wire streamBatch
		if err := json.Unmarshal(line, &wire); err != nil {
			s.logger.Warn(
				"skipping undecodable batch line",
				"component", "chain",
				"error", err,
			)
			continue
		}
		batch, err := wire.toBatch()
		if err != nil {
			s.logger.Warn(
				"skipping invalid batch",
				"component", "chain",
				"chain_id", wire.ChainID,
				"error", err,
			)
			continue
		}
		select {
		case s.ch <- batch:
		case <-s.done:
			return
		}
	}
	if err := scanner.Err(); err != nil {
		s.logger.Error(
			"event stream read failed",
			"component", "chain",
			"error", err,
		)
	}
}

func (w *streamBatch) toBatch() (Batch, error) {
	batch := Batch{
		ChainID: w.ChainID,
	}
	if w.Reorg != nil {
		batch.Reorg = &ReorgSignal{
			ChainID:   w.ChainID,
			FromBlock: w.Reorg.FromBlock,
			ToBlock:   w.Reorg.ToBlock,
		}
	}
	for _, ev := range w.Events {
		if !common.IsHexAddress(ev.Contract) {
			return batch, fmt.Errorf(
				"invalid contract address: %q",
				ev.Contract,
			)
		}
		batch.Events = append(batch.Events, LogEvent{
			ChainID:         w.ChainID,
			ContractAddress: common.HexToAddress(ev.Contract),
			ContractKind:    ContractKind(ev.ContractKind),
			EventName:       ev.Name,
			BlockNumber:     ev.BlockNumber,
			LogIndex:        ev.LogIndex,
			TxHash:          common.HexToHash(ev.TxHash),
			Timestamp:       ev.Timestamp,
			Removed:         ev.Removed,
			Args:            ev.Args,
		})
	}
	return batch, nil
}

func (s *StreamSource) Replay(
	_ context.Context,
	chainID, fromBlock, toBlock uint64,
) error {
	return fmt.Errorf(
		"%w: chain %d blocks %d-%d must be re-pushed by the ingester",
		ErrReplayUnsupported,
		chainID,
		fromBlock,
		toBlock,
	)
}

func (s *StreamSource) Close() error {
	s.closeOnce.Do(func() {
		close(s.done)
	})
	return nil
}
