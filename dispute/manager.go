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

package dispute

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/flowstate-labs/flowd/database"
	"github.com/flowstate-labs/flowd/database/models"
	"github.com/flowstate-labs/flowd/event"
	"github.com/flowstate-labs/flowd/notify"
	"github.com/flowstate-labs/flowd/vault"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// ErrCommitmentMismatch means a stored secret no longer hashes to the
	// commitment observed on chain. This is a protocol bug: automated
	// reveals for the voter are halted until investigated, since blind
	// resubmission could leak information.
	ErrCommitmentMismatch = errors.New("stored secret does not match commitment")
	// ErrNoSubmitter is returned when reveal submission is attempted
	// without a configured submitter
	ErrNoSubmitter = errors.New("no reveal submitter configured")
)

// RevealRequest carries everything the on-chain verifier needs to accept a
// reveal. The (choice, reason, salt) tuple must hash to the previously
// committed value.
type RevealRequest struct {
	ChainID    uint64
	Arbitrator string
	DisputeID  string
	Voter      string
	Choice     uint8
	Reason     string
	Salt       [SaltSize]byte
}

// RevealSubmitter submits reveal transactions. Implemented by the external
// wallet/submission collaborator; the protocol itself never signs.
type RevealSubmitter interface {
	SubmitReveal(ctx context.Context, req RevealRequest) error
}

// ManagerConfig configures the dispute protocol manager
type ManagerConfig struct {
	Logger       *slog.Logger
	Database     *database.Database
	Vault        *vault.Vault
	EventBus     *event.EventBus
	Notifier     *notify.Notifier
	Submitter    RevealSubmitter
	PromRegistry prometheus.Registerer
	// RevealResubmitAfter is how long a submitted reveal may stay
	// unconfirmed before the scheduler tries again
	RevealResubmitAfter time.Duration
}

// Manager owns commitment generation, secret persistence, and scheduled
// auto-reveal for dispute votes
type Manager struct {
	logger    *slog.Logger
	db        *database.Database
	vault     *vault.Vault
	eventBus  *event.EventBus
	notifier  *notify.Notifier
	submitter RevealSubmitter
	metrics   *disputeMetrics

	resubmitAfter time.Duration
	submittedMu   sync.Mutex
	submitted     map[uint]time.Time
}

// NewManager creates a dispute protocol manager
func NewManager(cfg ManagerConfig) (*Manager, error) {
	if cfg.Database == nil {
		return nil, errors.New("database is required")
	}
	if cfg.Vault == nil {
		return nil, errors.New("vault is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	resubmitAfter := cfg.RevealResubmitAfter
	if resubmitAfter <= 0 {
		resubmitAfter = 10 * time.Minute
	}
	m := &Manager{
		logger:        logger,
		db:            cfg.Database,
		vault:         cfg.Vault,
		eventBus:      cfg.EventBus,
		notifier:      cfg.Notifier,
		submitter:     cfg.Submitter,
		resubmitAfter: resubmitAfter,
		submitted:     make(map[uint]time.Time),
	}
	if cfg.PromRegistry != nil {
		m.metrics = registerDisputeMetrics(cfg.PromRegistry)
	}
	return m, nil
}

// GenerateVoteHash returns the commitment hash for a voter's choice on a
// dispute, minting and persisting a new salt only when no secret exists yet.
// Repeated calls during a voting session return the identical hash, so the
// on-chain commit always matches the stored secret.
func (m *Manager) GenerateVoteHash(
	chainID uint64,
	arbitrator, disputeID, voter string,
	choice uint8,
) (common.Hash, error) {
	key := secretKey(chainID, arbitrator, disputeID, voter, choice)
	existing, err := m.vault.Get(key)
	if err == nil {
		secret, err := decodeVoteSecret(existing)
		if err != nil {
			return common.Hash{}, err
		}
		return CommitHash(secret.Choice, secret.Reason, secret.Salt)
	}
	if !errors.Is(err, vault.ErrKeyNotFound) {
		return common.Hash{}, fmt.Errorf("failed to read vault: %w", err)
	}
	salt, err := NewSalt()
	if err != nil {
		return common.Hash{}, err
	}
	// Reason is always empty at commit time; it is supplied at reveal and
	// participates in the hash as the empty string
	secret := &VoteSecret{
		Choice: choice,
		Salt:   salt,
	}
	commitHash, err := CommitHash(secret.Choice, secret.Reason, secret.Salt)
	if err != nil {
		return common.Hash{}, err
	}
	encoded, err := secret.encode()
	if err != nil {
		return common.Hash{}, err
	}
	aliasKey := commitKey(chainID, arbitrator, disputeID, voter, commitHash.Hex())
	stored, wrote, err := m.vault.PutIfAbsentPair(key, aliasKey, encoded)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to persist vote secret: %w", err)
	}
	if !wrote {
		// Lost a write race; the canonical secret is whatever landed first
		canonical, err := decodeVoteSecret(stored)
		if err != nil {
			return common.Hash{}, err
		}
		return CommitHash(canonical.Choice, canonical.Reason, canonical.Salt)
	}
	if m.metrics != nil {
		m.metrics.secretsGenerated.Inc()
	}
	return commitHash, nil
}

// PrepareCommitments precomputes the commitment for both parties as soon as
// a voter starts interacting with a dispute, so either choice can be
// submitted on-chain without a round-trip. Only the committed choice is ever
// revealed.
func (m *Manager) PrepareCommitments(
	chainID uint64,
	arbitrator, disputeID, voter string,
) (map[models.Party]common.Hash, error) {
	ret := make(map[models.Party]common.Hash, 2)
	for _, party := range []models.Party{
		models.PartyRequester,
		models.PartyChallenger,
	} {
		hash, err := m.GenerateVoteHash(
			chainID,
			arbitrator,
			disputeID,
			voter,
			uint8(party),
		)
		if err != nil {
			return nil, fmt.Errorf(
				"failed to prepare commitment for party %d: %w",
				party,
				err,
			)
		}
		ret[party] = hash
	}
	return ret, nil
}
