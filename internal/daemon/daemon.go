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

package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	_ "net/http/pprof" // #nosec G108
	"os"
	"os/signal"
	"syscall"
	"time"

	flowd "github.com/flowstate-labs/flowd"
	"github.com/flowstate-labs/flowd/chain"
	"github.com/flowstate-labs/flowd/internal/config"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Run wires config into a daemon instance and blocks until shutdown.
// Event batches are read from stdin as newline-delimited JSON; an embedding
// ingester would use the library API with its own EventSource instead.
func Run(cfg *config.Config, logger *slog.Logger) error {
	logger.Debug(fmt.Sprintf("config: %+v", cfg), "component", "daemon")
	vaultKey, err := cfg.LoadVaultKey()
	if err != nil {
		return err
	}
	source := chain.NewStreamSource(os.Stdin, logger)
	defer source.Close()

	shutdownTimeout := config.Duration(cfg.ShutdownTimeout, 30*time.Second)
	f, err := flowd.New(
		flowd.NewConfig(
			flowd.WithLogger(logger),
			flowd.WithDataDir(cfg.DataDir),
			flowd.WithPostgresDSN(cfg.PostgresDSN),
			flowd.WithVaultKey(vaultKey),
			flowd.WithChainIDs(cfg.ChainIDs...),
			flowd.WithEventSource(source),
			flowd.WithIndexerWorkers(cfg.IndexerWorkers),
			flowd.WithIndexerMaxRetries(cfg.IndexerMaxRetries),
			flowd.WithIndexerQueueSize(cfg.IndexerQueueSize),
			flowd.WithRetryInitialInterval(
				config.Duration(cfg.RetryInitialInterval, 500*time.Millisecond),
			),
			flowd.WithSchedulerTick(
				config.Duration(cfg.SchedulerTick, 10*time.Second),
			),
			flowd.WithRevealInterval(cfg.RevealInterval),
			flowd.WithFlowrateInterval(cfg.FlowrateInterval),
			flowd.WithTracing(cfg.Tracing),
			flowd.WithTracingStdout(cfg.TracingStdout),
			flowd.WithShutdownTimeout(shutdownTimeout),
			// Enable metrics with default prometheus registry
			flowd.WithPrometheusRegistry(prometheus.DefaultRegisterer),
		),
	)
	if err != nil {
		return err
	}
	// Metrics and debug listener
	http.Handle("/metrics", promhttp.Handler())
	logger.Info(
		"serving prometheus metrics on "+fmt.Sprintf(
			"%s:%d",
			cfg.BindAddr,
			cfg.MetricsPort,
		),
		"component",
		"daemon",
	)
	metricsServer := &http.Server{
		Addr: fmt.Sprintf(
			"%s:%d",
			cfg.BindAddr,
			cfg.MetricsPort,
		),
		ReadHeaderTimeout: 60 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil &&
			err != http.ErrServerClosed {
			logger.Error(
				fmt.Sprintf("failed to start metrics listener: %s", err),
				"component", "daemon",
			)
			os.Exit(1)
		}
	}()
	// Wait for interrupt/termination signal
	signalCtx, signalCtxStop := signal.NotifyContext(
		context.Background(),
		syscall.SIGINT,
		syscall.SIGTERM,
	)
	defer signalCtxStop()

	// Run daemon in goroutine
	errChan := make(chan error, 1)
	go func() {
		//nolint:contextcheck
		err := f.Run(signalCtx)
		select {
		case errChan <- err:
		case <-signalCtx.Done():
		}
	}()

	// Wait for signal or error
	select {
	case <-signalCtx.Done():
		logger.Info("signal received, initiating graceful shutdown")

		// Shutdown metrics server
		shutdownCtx, cancel := context.WithTimeout(
			context.Background(),
			shutdownTimeout,
		)
		defer cancel()
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("metrics server shutdown error", "error", err)
		}

		// Shutdown daemon
		if err := f.Stop(); err != nil {
			logger.Error("shutdown errors occurred", "error", err)
			return err
		}
		logger.Info("shutdown complete")
		return nil

	case err := <-errChan:
		signalCtxStop()
		shutdownCtx, cancel := context.WithTimeout(
			context.Background(),
			shutdownTimeout,
		)
		defer cancel()
		if shutdownErr := metricsServer.Shutdown(shutdownCtx); shutdownErr != nil {
			logger.Error("metrics server shutdown error", "error", shutdownErr)
		}
		if stopErr := f.Stop(); stopErr != nil {
			logger.Error("shutdown errors occurred", "error", stopErr)
			if err == nil {
				return stopErr
			}
		}
		if err != nil {
			logger.Error("daemon error", "error", err)
			return err
		}
		logger.Info("daemon stopped")
		return nil
	}
}
