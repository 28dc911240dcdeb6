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
	"github.com/flowstate-labs/flowd/database/models"
)

// Phase is the lifecycle stage of a dispute
type Phase string

const (
	PhaseAbsent            Phase = "absent"
	PhaseClearingRequested Phase = "clearing-requested"
	PhaseVotingOpen        Phase = "voting-open"
	PhaseRevealPeriod      Phase = "reveal-period"
	PhaseExecuted          Phase = "executed"
)

// PhaseAt returns the dispute's phase at the given unix time. Executed is
// terminal regardless of clock.
func PhaseAt(d *models.Dispute, now int64) Phase {
	if d == nil {
		return PhaseAbsent
	}
	switch {
	case d.IsExecuted:
		return PhaseExecuted
	case now < d.VotingStartTime:
		return PhaseClearingRequested
	case now < d.VotingEndTime:
		return PhaseVotingOpen
	default:
		// Remains the reveal phase until an execution event is observed,
		// even once the window itself has closed
		return PhaseRevealPeriod
	}
}

// RevealWindowOpen reports whether reveals are currently accepted
func RevealWindowOpen(d *models.Dispute, now int64) bool {
	return !d.IsExecuted &&
		now >= d.VotingEndTime &&
		now < d.RevealPeriodEndTime
}
