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

package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/flowstate-labs/flowd/chain"
	"github.com/flowstate-labs/flowd/database"
	"github.com/flowstate-labs/flowd/indexer"
	"github.com/flowstate-labs/flowd/internal/config"
	"github.com/spf13/cobra"
)

var replayFlags = struct {
	limit int
}{}

func replayRun(cmd *cobra.Command, cfg *config.Config) error {
	logger := commonRun()

	db, err := database.New(&database.Config{
		Logger:      logger,
		DataDir:     cfg.DataDir,
		PostgresDSN: cfg.PostgresDSN,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	// Replay runs without a live chain source
	source := chain.NewChannelSource(0, nil)
	defer source.Close()
	idx, err := indexer.New(indexer.Config{
		Logger:   logger,
		Database: db,
		Source:   source,
	})
	if err != nil {
		return fmt.Errorf("creating indexer: %w", err)
	}

	result, err := idx.ReplayParked(cmd.Context(), replayFlags.limit)
	if err != nil {
		return fmt.Errorf("replaying parked events: %w", err)
	}
	fmt.Printf(
		"replayed %d parked event(s), %d failed\n",
		result.Replayed,
		result.Failed,
	)
	return nil
}

func replayCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Replay parked events through the reconciliation handlers",
		Run: func(cmd *cobra.Command, args []string) {
			cfg := config.FromContext(cmd.Context())
			if cfg == nil {
				slog.Error("no config found in context")
				os.Exit(1)
			}
			if err := replayRun(cmd, cfg); err != nil {
				slog.Error(err.Error())
				os.Exit(1)
			}
		},
	}
	cmd.Flags().
		IntVar(&replayFlags.limit, "limit", 100, "maximum parked events to replay")
	return cmd
}
