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

// Package indexer is the reconciliation engine. It consumes chain event
// batches, routes them to per-entity worker shards, and applies idempotent
// upserts to the state store along with the reverse-lookup indices and
// derived aggregates.
package indexer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/flowstate-labs/flowd/chain"
	"github.com/flowstate-labs/flowd/database"
	"github.com/flowstate-labs/flowd/event"
	"github.com/flowstate-labs/flowd/notify"
	"github.com/prometheus/client_golang/prometheus"
)

const defaultShardCount = 4

// Config describes a reconciliation engine
type Config struct {
	Logger       *slog.Logger
	Database     *database.Database
	EventBus     *event.EventBus
	Notifier     *notify.Notifier
	Source       chain.EventSource
	PromRegistry prometheus.Registerer
	// Workers is the shard count; one entity always maps to the same shard
	Workers int
	// MaxRetries bounds per-event retry attempts before parking
	MaxRetries uint
	// RetryInitialInterval seeds the per-event backoff policy
	RetryInitialInterval time.Duration
	// ShardQueueSize is the per-shard buffered queue length
	ShardQueueSize int
}

// Indexer consumes chain events and reconciles the state store
type Indexer struct {
	logger     *slog.Logger
	db         *database.Database
	eventBus   *event.EventBus
	notifier   *notify.Notifier
	source     chain.EventSource
	metrics    *indexerMetrics
	shards     []*shard
	maxRetries uint
	retrySeed  time.Duration

	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	startOnce sync.Once
	stopOnce  sync.Once
}

// New creates a reconciliation engine
func New(cfg Config) (*Indexer, error) {
	if cfg.Database == nil {
		return nil, errors.New("database is required")
	}
	if cfg.Source == nil {
		return nil, errors.New("event source is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	workers := cfg.Workers
	if workers <= 0 {
		workers = defaultShardCount
	}
	queueSize := cfg.ShardQueueSize
	if queueSize <= 0 {
		queueSize = 64
	}
	maxRetries := cfg.MaxRetries
	if maxRetries == 0 {
		maxRetries = 5
	}
	retrySeed := cfg.RetryInitialInterval
	if retrySeed <= 0 {
		retrySeed = 500 * time.Millisecond
	}
	i := &Indexer{
		logger:     logger,
		db:         cfg.Database,
		eventBus:   cfg.EventBus,
		notifier:   cfg.Notifier,
		source:     cfg.Source,
		maxRetries: maxRetries,
		retrySeed:  retrySeed,
	}
	if cfg.PromRegistry != nil {
		i.metrics = registerIndexerMetrics(cfg.PromRegistry)
	}
	i.shards = make([]*shard, workers)
	for n := range i.shards {
		i.shards[n] = newShard(i, n, queueSize)
	}
	return i, nil
}

// Start launches the shard workers and the batch consumer. It returns
// immediately; processing continues until Stop.
func (i *Indexer) Start() {
	i.startOnce.Do(func() {
		i.ctx, i.cancel = context.WithCancel(context.Background())
		for _, s := range i.shards {
			i.wg.Add(1)
			go s.run()
		}
		i.wg.Add(1)
		go i.consume()
	})
}

// Stop shuts down the consumer and drains the shard queues
func (i *Indexer) Stop() {
	i.stopOnce.Do(func() {
		if i.cancel != nil {
			i.cancel()
		}
		for _, s := range i.shards {
			s.stop()
		}
	})
	i.wg.Wait()
}

func (i *Indexer) consume() {
	defer i.wg.Done()
	batches := i.source.Batches()
	for {
		select {
		case <-i.ctx.Done():
			return
		case batch, ok := <-batches:
			if !ok {
				return
			}
			i.handleBatch(batch)
		}
	}
}

func (i *Indexer) handleBatch(batch chain.Batch) {
	if batch.Reorg != nil {
		if err := i.handleReorg(*batch.Reorg); err != nil {
			i.logger.Error(
				"failed to handle reorg",
				"component", "indexer",
				"chain_id", batch.Reorg.ChainID,
				"from_block", batch.Reorg.FromBlock,
				"to_block", batch.Reorg.ToBlock,
				"error", err,
			)
		}
	}
	for _, ev := range batch.Events {
		i.route(ev)
	}
}

// handleReorg rewinds entity cursors for the replaced range and asks the
// source to replay it. Replayed events rebuild the derived rows through the
// normal apply path; there is no partial rollback of aggregates.
func (i *Indexer) handleReorg(signal chain.ReorgSignal) error {
	if i.metrics != nil {
		i.metrics.reorgs.Inc()
	}
	i.logger.Warn(
		"chain reorg detected",
		"component", "indexer",
		"chain_id", signal.ChainID,
		"from_block", signal.FromBlock,
		"to_block", signal.ToBlock,
	)
	if err := i.db.ResetSequencingCursors(
		signal.ChainID,
		signal.FromBlock,
		nil,
	); err != nil {
		return err
	}
	if err := i.source.Replay(
		i.ctx,
		signal.ChainID,
		signal.FromBlock,
		signal.ToBlock,
	); err != nil {
		return fmt.Errorf("failed to replay reorged range: %w", err)
	}
	return nil
}
