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

package vault

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"

	badger "github.com/dgraph-io/badger/v4"
)

// ErrKeyNotFound is returned by Get for absent keys
var ErrKeyNotFound = errors.New("vault key not found")

// EncryptionKeySize is the required key length for the vault cipher
const EncryptionKeySize = 32

// Vault is an encrypted write-once key-value store for off-chain vote
// secrets. Values are encrypted at rest; keys are deterministic composites
// so repeated writers converge on the same entry.
type Vault struct {
	logger *slog.Logger
	db     *badger.DB
}

// Config describes the vault backing store
type Config struct {
	Logger *slog.Logger
	// DataDir selects a file-backed store; empty means in-memory (tests)
	DataDir string
	// EncryptionKey encrypts values at rest; must be 32 bytes when set.
	// An empty key is only permitted for the in-memory store.
	EncryptionKey []byte
}

// New opens the vault
func New(cfg *Config) (*Vault, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	var opts badger.Options
	if cfg.DataDir == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
		if len(cfg.EncryptionKey) > 0 {
			opts = opts.WithEncryptionKey(cfg.EncryptionKey).
				WithIndexCacheSize(32 << 20)
		}
	} else {
		if len(cfg.EncryptionKey) != EncryptionKeySize {
			return nil, fmt.Errorf(
				"vault encryption key must be %d bytes, got %d",
				EncryptionKeySize,
				len(cfg.EncryptionKey),
			)
		}
		opts = badger.DefaultOptions(filepath.Join(cfg.DataDir, "vault")).
			WithEncryptionKey(cfg.EncryptionKey).
			// Badger requires a dedicated index cache when encryption is on
			WithIndexCacheSize(32 << 20)
	}
	// The default INFO logging is a bit verbose
	opts = opts.WithLogger(newBadgerLogger(logger)).
		WithLoggingLevel(badger.WARNING)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open vault: %w", err)
	}
	return &Vault{
		logger: logger,
		db:     db,
	}, nil
}

// Get fetches the value at a key
func (v *Vault) Get(key []byte) ([]byte, error) {
	var ret []byte
	err := v.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return ErrKeyNotFound
			}
			return err
		}
		ret, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		return nil, err
	}
	return ret, nil
}

// PutIfAbsent writes a value only when the key has no existing entry. The
// existing value is returned on conflict, so concurrent writers always
// observe a single canonical secret. The check and write share one
// transaction.
func (v *Vault) PutIfAbsent(key, value []byte) ([]byte, bool, error) {
	var existing []byte
	var wrote bool
	err := v.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err == nil {
			existing, err = item.ValueCopy(nil)
			return err
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		if err := txn.Set(key, value); err != nil {
			return err
		}
		wrote = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	if wrote {
		return value, true, nil
	}
	return existing, false, nil
}

// PutIfAbsentPair writes a primary entry and an alias entry atomically,
// applying put-if-absent semantics to the primary key. Used to store one
// secret under both its generation key and its commit-hash key.
func (v *Vault) PutIfAbsentPair(
	primaryKey, aliasKey, value []byte,
) ([]byte, bool, error) {
	var existing []byte
	var wrote bool
	err := v.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(primaryKey)
		if err == nil {
			existing, err = item.ValueCopy(nil)
			return err
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		if err := txn.Set(primaryKey, value); err != nil {
			return err
		}
		if err := txn.Set(aliasKey, value); err != nil {
			return err
		}
		wrote = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	if wrote {
		return value, true, nil
	}
	return existing, false, nil
}

// KeysWithPrefix returns all keys under a prefix, for diagnostics
func (v *Vault) KeysWithPrefix(prefix []byte) ([][]byte, error) {
	var ret [][]byte
	err := v.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			ret = append(ret, it.Item().KeyCopy(nil))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ret, nil
}

// Close cleans up the vault
func (v *Vault) Close() error {
	return v.db.Close()
}
