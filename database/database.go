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

package database

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/flowstate-labs/flowd/database/models"
	"github.com/glebarez/sqlite"
	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
	"gorm.io/plugin/opentelemetry/tracing"
)

// Config describes the state store backing
type Config struct {
	Logger       *slog.Logger
	PromRegistry prometheus.Registerer
	// DataDir selects a file-backed sqlite store; empty means in-memory
	DataDir string
	// PostgresDSN selects postgres instead of sqlite when non-empty
	PostgresDSN string
	Tracing     bool
}

// Database is the transactional state store for all materialized entities
// and their reverse-lookup indices
type Database struct {
	logger  *slog.Logger
	db      *gorm.DB
	dataDir string
	metrics *databaseMetrics
}

// New creates a database instance. Postgres is used when a DSN is configured,
// otherwise sqlite (in-memory if no data directory is given).
func New(cfg *Config) (*Database, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	logger := cfg.Logger
	if logger == nil {
		// Create logger to throw away logs
		// We do this so we don't have to add guards around every log operation
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	gormCfg := &gorm.Config{
		Logger:                 gormlogger.Discard,
		SkipDefaultTransaction: true,
	}
	var db *gorm.DB
	var err error
	switch {
	case cfg.PostgresDSN != "":
		db, err = gorm.Open(postgres.Open(cfg.PostgresDSN), gormCfg)
	case cfg.DataDir == "":
		// In-memory database when no data directory is specified, useful for testing.
		// cache=shared allows multiple connections to share the same in-memory database
		db, err = gorm.Open(
			sqlite.Open("file::memory:?cache=shared"),
			gormCfg,
		)
	default:
		if _, statErr := os.Stat(cfg.DataDir); statErr != nil {
			if !errors.Is(statErr, fs.ErrNotExist) {
				return nil, fmt.Errorf("failed to read data dir: %w", statErr)
			}
			if mkErr := os.MkdirAll(cfg.DataDir, fs.ModePerm); mkErr != nil {
				return nil, fmt.Errorf("failed to create data dir: %w", mkErr)
			}
		}
		dbPath := filepath.Join(cfg.DataDir, "state.sqlite")
		// WAL journal mode, disable sync on write, increase cache size to 50MB
		connOpts := "_pragma=journal_mode(WAL)&_pragma=sync(OFF)&_pragma=cache_size(-50000)"
		db, err = gorm.Open(
			sqlite.Open(fmt.Sprintf("file:%s?%s", dbPath, connOpts)),
			gormCfg,
		)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open state store: %w", err)
	}
	if cfg.Tracing {
		if err := db.Use(tracing.NewPlugin(tracing.WithoutMetrics())); err != nil {
			return nil, fmt.Errorf("failed to enable database tracing: %w", err)
		}
	}
	if err := db.AutoMigrate(models.MigrateModels...); err != nil {
		return nil, fmt.Errorf("failed to migrate models: %w", err)
	}
	d := &Database{
		logger:  logger,
		db:      db,
		dataDir: cfg.DataDir,
	}
	if cfg.PromRegistry != nil {
		d.metrics = registerDatabaseMetrics(cfg.PromRegistry)
	}
	return d, nil
}

// DB returns the underlying gorm handle
func (d *Database) DB() *gorm.DB {
	return d.db
}

// DataDir returns the path to the data directory used for storage
func (d *Database) DataDir() string {
	return d.dataDir
}

// Logger returns the logger instance
func (d *Database) Logger() *slog.Logger {
	return d.logger
}

// Transaction starts a new database transaction and returns a handle to it
func (d *Database) Transaction() *gorm.DB {
	return d.db.Begin()
}

// Close cleans up the database connection
func (d *Database) Close() error {
	sqlDB, err := d.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// txnOrDB returns the given transaction, falling back to the base handle
func (d *Database) txnOrDB(txn *gorm.DB) *gorm.DB {
	if txn != nil {
		return txn
	}
	return d.db
}
