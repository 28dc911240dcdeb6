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
	"io"
	"log/slog"
	"time"

	"github.com/flowstate-labs/flowd/chain"
	"github.com/flowstate-labs/flowd/dispute"
	"github.com/flowstate-labs/flowd/notify"
	"github.com/prometheus/client_golang/prometheus"
)

type Config struct {
	logger       *slog.Logger
	promRegistry prometheus.Registerer
	dataDir      string
	postgresDSN  string
	vaultKey     []byte
	chainIDs     []uint64
	source       chain.EventSource
	submitter    dispute.RevealSubmitter
	notifySink   notify.Sink

	indexerWorkers       int
	indexerMaxRetries    uint
	indexerQueueSize     int
	retryInitialInterval time.Duration

	schedulerTick    time.Duration
	revealInterval   int
	flowrateInterval int

	tracing       bool
	tracingStdout bool

	shutdownTimeout time.Duration
}

// ConfigOptionFunc is a type that represents functions that modify the daemon config
type ConfigOptionFunc func(*Config)

// NewConfig creates a new flowd config with the specified options
func NewConfig(opts ...ConfigOptionFunc) Config {
	c := Config{
		// Default logger will throw away logs
		// We do this so we don't have to add guards around every log operation
		logger:          slog.New(slog.NewJSONHandler(io.Discard, nil)),
		schedulerTick:   10 * time.Second,
		shutdownTimeout: 30 * time.Second,
	}
	// Apply options
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// WithLogger specifies the logger to use. This defaults to discarding log output
func WithLogger(logger *slog.Logger) ConfigOptionFunc {
	return func(c *Config) {
		c.logger = logger
	}
}

// WithDataDir specifies the persistent data directory to use. The default is
// to store everything in memory
func WithDataDir(dataDir string) ConfigOptionFunc {
	return func(c *Config) {
		c.dataDir = dataDir
	}
}

// WithPostgresDSN selects postgres for the state store instead of sqlite
func WithPostgresDSN(dsn string) ConfigOptionFunc {
	return func(c *Config) {
		c.postgresDSN = dsn
	}
}

// WithVaultKey specifies the 32-byte encryption key for the secret vault.
// Required when a data directory is configured.
func WithVaultKey(key []byte) ConfigOptionFunc {
	return func(c *Config) {
		c.vaultKey = key
	}
}

// WithChainIDs specifies the chains being indexed
func WithChainIDs(chainIDs ...uint64) ConfigOptionFunc {
	return func(c *Config) {
		c.chainIDs = append(c.chainIDs, chainIDs...)
	}
}

// WithEventSource specifies the chain event source feeding the engine
func WithEventSource(source chain.EventSource) ConfigOptionFunc {
	return func(c *Config) {
		c.source = source
	}
}

// WithRevealSubmitter specifies the collaborator submitting reveal
// transactions. The default is none, which disables automated reveals.
func WithRevealSubmitter(submitter dispute.RevealSubmitter) ConfigOptionFunc {
	return func(c *Config) {
		c.submitter = submitter
	}
}

// WithNotifySink specifies the alert delivery sink. This defaults to logging
func WithNotifySink(sink notify.Sink) ConfigOptionFunc {
	return func(c *Config) {
		c.notifySink = sink
	}
}

// WithPrometheusRegistry specifies a prometheus.Registerer instance to add metrics to. In most cases, prometheus.DefaultRegistry would be
// a good choice to get metrics working
func WithPrometheusRegistry(registry prometheus.Registerer) ConfigOptionFunc {
	return func(c *Config) {
		c.promRegistry = registry
	}
}

// WithIndexerWorkers specifies the reconciliation worker shard count
func WithIndexerWorkers(workers int) ConfigOptionFunc {
	return func(c *Config) {
		c.indexerWorkers = workers
	}
}

// WithIndexerMaxRetries specifies the per-event retry budget before parking
func WithIndexerMaxRetries(retries uint) ConfigOptionFunc {
	return func(c *Config) {
		c.indexerMaxRetries = retries
	}
}

// WithIndexerQueueSize specifies the per-shard event queue length
func WithIndexerQueueSize(size int) ConfigOptionFunc {
	return func(c *Config) {
		c.indexerQueueSize = size
	}
}

// WithRetryInitialInterval seeds the shared backoff policy
func WithRetryInitialInterval(interval time.Duration) ConfigOptionFunc {
	return func(c *Config) {
		c.retryInitialInterval = interval
	}
}

// WithSchedulerTick specifies the base tick for scheduled tasks. The default
// is 10 seconds
func WithSchedulerTick(tick time.Duration) ConfigOptionFunc {
	return func(c *Config) {
		c.schedulerTick = tick
	}
}

// WithRevealInterval specifies how many base ticks pass between auto-reveal
// runs. Zero uses the default of every tick.
func WithRevealInterval(ticks int) ConfigOptionFunc {
	return func(c *Config) {
		c.revealInterval = ticks
	}
}

// WithFlowrateInterval specifies how many base ticks pass between drift
// reconciliation runs
func WithFlowrateInterval(ticks int) ConfigOptionFunc {
	return func(c *Config) {
		c.flowrateInterval = ticks
	}
}

// WithTracing enables tracing. By default, spans are submitted to a HTTP(s) endpoint using OTLP. This can be configured
// using the OTEL_EXPORTER_OTLP_* env vars documented in the README for [go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp]
func WithTracing(tracing bool) ConfigOptionFunc {
	return func(c *Config) {
		c.tracing = tracing
	}
}

// WithTracingStdout enables tracing output to stdout. This also requires tracing to enabled separately. This is mostly useful for debugging
func WithTracingStdout(stdout bool) ConfigOptionFunc {
	return func(c *Config) {
		c.tracingStdout = stdout
	}
}

// WithShutdownTimeout specifies the timeout for graceful shutdown. The default is 30 seconds
func WithShutdownTimeout(timeout time.Duration) ConfigOptionFunc {
	return func(c *Config) {
		c.shutdownTimeout = timeout
	}
}
