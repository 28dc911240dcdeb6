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

package event

const (
	// GrantUpdatedEventType fires after a grant row or its aggregates change
	GrantUpdatedEventType = "indexer.grant-updated"
	// EventParkedEventType fires when an event exhausts its retry budget
	EventParkedEventType = "indexer.event-parked"
	// DriftDetectedEventType fires when the flow-rate reconciler produces a
	// rebalance recommendation
	DriftDetectedEventType = "flowrate.drift-detected"
	// RevealMissedEventType fires when a vote cannot be revealed before the
	// deadline; the vote is permanently lost
	RevealMissedEventType = "dispute.reveal-missed"
	// RevealHaltedEventType fires when a stored secret no longer matches its
	// on-chain commitment and automated reveals for the voter are halted
	RevealHaltedEventType = "dispute.reveal-halted"
)

// GrantUpdatedEvent carries the identity of a changed grant
type GrantUpdatedEvent struct {
	ChainID uint64
	GrantID string
}

// DriftDetectedEvent carries a flow-rate rebalance recommendation. Amounts
// are base-10 strings since rates routinely exceed int64.
type DriftDetectedEvent struct {
	ChainID           uint64
	GrantID           string
	Actual            string
	Max               string
	Target            string
	NeedsIncrease     bool
	NeedsDecrease     bool
	RecommendedAmount string
}

// RevealMissedEvent identifies a vote lost to the reveal deadline
type RevealMissedEvent struct {
	ChainID    uint64
	Arbitrator string
	DisputeID  string
	Voter      string
}

// RevealHaltedEvent identifies a voter whose automated reveals are stopped
// pending investigation
type RevealHaltedEvent struct {
	ChainID    uint64
	Arbitrator string
	DisputeID  string
	Voter      string
	CommitHash string
}
