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

package indexer

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type indexerMetrics struct {
	eventsApplied   *prometheus.CounterVec
	eventsSkipped   *prometheus.CounterVec
	eventsParked    prometheus.Counter
	eventsMalformed prometheus.Counter
	unknownEvents   prometheus.Counter
	reorgs          prometheus.Counter
	queueDepth      *prometheus.GaugeVec
}

func registerIndexerMetrics(
	promRegistry prometheus.Registerer,
) *indexerMetrics {
	return &indexerMetrics{
		eventsApplied: promauto.With(promRegistry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "flowd_indexer_events_applied_total",
				Help: "events applied to the state store per kind",
			},
			[]string{"kind"},
		),
		eventsSkipped: promauto.With(promRegistry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "flowd_indexer_events_skipped_total",
				Help: "events rejected as stale or duplicate per kind",
			},
			[]string{"kind"},
		),
		eventsParked: promauto.With(promRegistry).NewCounter(
			prometheus.CounterOpts{
				Name: "flowd_indexer_events_parked_total",
				Help: "events parked after exhausting their retry budget",
			},
		),
		eventsMalformed: promauto.With(promRegistry).NewCounter(
			prometheus.CounterOpts{
				Name: "flowd_indexer_events_malformed_total",
				Help: "events skipped due to missing or malformed arguments",
			},
		),
		unknownEvents: promauto.With(promRegistry).NewCounter(
			prometheus.CounterOpts{
				Name: "flowd_indexer_events_unknown_total",
				Help: "events with names outside the known set",
			},
		),
		reorgs: promauto.With(promRegistry).NewCounter(
			prometheus.CounterOpts{
				Name: "flowd_indexer_reorgs_total",
				Help: "reorg signals processed",
			},
		),
		queueDepth: promauto.With(promRegistry).NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "flowd_indexer_shard_queue_depth",
				Help: "events waiting per worker shard",
			},
			[]string{"shard"},
		),
	}
}
