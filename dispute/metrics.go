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
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type disputeMetrics struct {
	secretsGenerated prometheus.Counter
	revealsSubmitted prometheus.Counter
	revealsMissed    prometheus.Counter
	revealsHalted    prometheus.Counter
	revealFailures   prometheus.Counter
}

func registerDisputeMetrics(
	promRegistry prometheus.Registerer,
) *disputeMetrics {
	return &disputeMetrics{
		secretsGenerated: promauto.With(promRegistry).NewCounter(
			prometheus.CounterOpts{
				Name: "flowd_dispute_secrets_generated_total",
				Help: "vote secrets generated and persisted",
			},
		),
		revealsSubmitted: promauto.With(promRegistry).NewCounter(
			prometheus.CounterOpts{
				Name: "flowd_dispute_reveals_submitted_total",
				Help: "vote reveals submitted on chain",
			},
		),
		revealsMissed: promauto.With(promRegistry).NewCounter(
			prometheus.CounterOpts{
				Name: "flowd_dispute_reveals_missed_total",
				Help: "votes lost to the reveal deadline",
			},
		),
		revealsHalted: promauto.With(promRegistry).NewCounter(
			prometheus.CounterOpts{
				Name: "flowd_dispute_reveals_halted_total",
				Help: "votes with a secret/commitment mismatch",
			},
		),
		revealFailures: promauto.With(promRegistry).NewCounter(
			prometheus.CounterOpts{
				Name: "flowd_dispute_reveal_failures_total",
				Help: "reveal submission attempts that exhausted retries",
			},
		),
	}
}
