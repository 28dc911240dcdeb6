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

package flowd

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/flowstate-labs/flowd/database"
	"github.com/flowstate-labs/flowd/dispute"
	"github.com/flowstate-labs/flowd/event"
	"github.com/flowstate-labs/flowd/flowrate"
	"github.com/flowstate-labs/flowd/indexer"
	"github.com/flowstate-labs/flowd/notify"
	"github.com/flowstate-labs/flowd/scheduler"
	"github.com/flowstate-labs/flowd/vault"
)

// Flowd is the reconciliation daemon. It wires the chain event source into
// the state store, schedules dispute auto-reveals and flow-rate drift checks,
// and owns the lifecycle of every component.
type Flowd struct {
	config         Config
	db             *database.Database
	vault          *vault.Vault
	eventBus       *event.EventBus
	notifier       *notify.Notifier
	disputeManager *dispute.Manager
	reconciler     *flowrate.Reconciler
	indexer        *indexer.Indexer
	scheduler      *scheduler.Scheduler
	shutdownFuncs  []func(context.Context) error
	stopOnce       sync.Once
}

// New creates a daemon instance from the provided config. Components are
// constructed eagerly so misconfiguration fails here rather than in Run
func New(cfg Config) (*Flowd, error) {
	f := &Flowd{
		config: cfg,
	}
	if err := f.configPopulate(); err != nil {
		return nil, err
	}
	return f, nil
}

func (f *Flowd) configPopulate() error {
	cfg := &f.config
	if cfg.source == nil {
		return errors.New("no event source configured")
	}
	if cfg.dataDir != "" && len(cfg.vaultKey) == 0 {
		return errors.New("vault encryption key is required with a data directory")
	}
	if cfg.tracing {
		if err := f.setupTracing(); err != nil {
			return fmt.Errorf("failed to setup tracing: %w", err)
		}
	}
	f.eventBus = event.NewEventBus(cfg.promRegistry, cfg.logger)
	f.notifier = notify.New(&notify.Config{
		Logger:       cfg.logger,
		PromRegistry: cfg.promRegistry,
		Sink:         cfg.notifySink,
	})
	db, err := database.New(&database.Config{
		Logger:       cfg.logger,
		PromRegistry: cfg.promRegistry,
		DataDir:      cfg.dataDir,
		PostgresDSN:  cfg.postgresDSN,
		Tracing:      cfg.tracing,
	})
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	f.db = db
	vaultDir := ""
	if cfg.dataDir != "" {
		vaultDir = filepath.Join(cfg.dataDir, "vault")
	}
	v, err := vault.New(&vault.Config{
		Logger:        cfg.logger,
		DataDir:       vaultDir,
		EncryptionKey: cfg.vaultKey,
	})
	if err != nil {
		return fmt.Errorf("failed to open vault: %w", err)
	}
	f.vault = v
	f.disputeManager, err = dispute.NewManager(dispute.ManagerConfig{
		Logger:       cfg.logger,
		Database:     f.db,
		Vault:        f.vault,
		EventBus:     f.eventBus,
		Notifier:     f.notifier,
		Submitter:    cfg.submitter,
		PromRegistry: cfg.promRegistry,
	})
	if err != nil {
		return fmt.Errorf("failed to create dispute manager: %w", err)
	}
	f.reconciler, err = flowrate.NewReconciler(flowrate.ReconcilerConfig{
		Logger:       cfg.logger,
		Database:     f.db,
		EventBus:     f.eventBus,
		Notifier:     f.notifier,
		PromRegistry: cfg.promRegistry,
		ChainIDs:     cfg.chainIDs,
	})
	if err != nil {
		return fmt.Errorf("failed to create flowrate reconciler: %w", err)
	}
	f.indexer, err = indexer.New(indexer.Config{
		Logger:               cfg.logger,
		Database:             f.db,
		EventBus:             f.eventBus,
		Notifier:             f.notifier,
		Source:               cfg.source,
		PromRegistry:         cfg.promRegistry,
		Workers:              cfg.indexerWorkers,
		MaxRetries:           cfg.indexerMaxRetries,
		RetryInitialInterval: cfg.retryInitialInterval,
		ShardQueueSize:       cfg.indexerQueueSize,
	})
	if err != nil {
		return fmt.Errorf("failed to create indexer: %w", err)
	}
	f.scheduler = scheduler.New(cfg.schedulerTick)
	return nil
}

// Run starts all components and blocks until the context is canceled or a
// component fails. Shutdown is always attempted before returning.
func (f *Flowd) Run(ctx context.Context) error {
	cfg := &f.config
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	f.indexer.Start()
	revealInterval := cfg.revealInterval
	if revealInterval <= 0 {
		revealInterval = 1
	}
	flowrateInterval := cfg.flowrateInterval
	if flowrateInterval <= 0 {
		flowrateInterval = 6
	}
	f.scheduler.Register(revealInterval, func() {
		if err := f.disputeManager.RunReveals(runCtx); err != nil {
			cfg.logger.Error(
				"reveal run failed",
				"component", "flowd",
				"error", err,
			)
		}
	})
	f.scheduler.Register(flowrateInterval, func() {
		if err := f.reconciler.Run(runCtx); err != nil {
			cfg.logger.Error(
				"flowrate reconciliation failed",
				"component", "flowd",
				"error", err,
			)
		}
	})
	f.scheduler.Start()
	cfg.logger.Info(
		"flowd started",
		"component", "flowd",
		"chains", cfg.chainIDs,
	)
	<-runCtx.Done()
	return f.Stop()
}

// Stop shuts down all components in dependency order. It is safe to call
// multiple times; only the first call does any work.
func (f *Flowd) Stop() error {
	var err error
	f.stopOnce.Do(func() {
		ctx, cancel := context.WithTimeout(
			context.Background(),
			f.config.shutdownTimeout,
		)
		defer cancel()
		err = f.shutdown(ctx)
	})
	return err
}

func (f *Flowd) shutdown(ctx context.Context) error {
	var ret error
	// Stop intake first so nothing writes during teardown
	if f.scheduler != nil {
		f.scheduler.Stop()
	}
	if f.indexer != nil {
		f.indexer.Stop()
	}
	if f.eventBus != nil {
		f.eventBus.Stop()
	}
	if f.notifier != nil {
		f.notifier.Stop()
	}
	if f.vault != nil {
		if err := f.vault.Close(); err != nil {
			ret = errors.Join(ret, fmt.Errorf("failed to close vault: %w", err))
		}
	}
	if f.db != nil {
		if err := f.db.Close(); err != nil {
			ret = errors.Join(ret, fmt.Errorf("failed to close database: %w", err))
		}
	}
	// Run any extra shutdown functions (tracing, etc)
	for _, shutdownFunc := range f.shutdownFuncs {
		if err := shutdownFunc(ctx); err != nil {
			ret = errors.Join(ret, err)
		}
	}
	return ret
}

// Database returns the underlying state store
func (f *Flowd) Database() *database.Database {
	return f.db
}

// DisputeManager returns the dispute manager
func (f *Flowd) DisputeManager() *dispute.Manager {
	return f.disputeManager
}

// Indexer returns the indexer
func (f *Flowd) Indexer() *indexer.Indexer {
	return f.indexer
}
