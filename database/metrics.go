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
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type databaseMetrics struct {
	grantUpserts    prometheus.Counter
	lookupFallbacks prometheus.Counter
	parkedEvents    prometheus.Gauge
}

func registerDatabaseMetrics(
	registry prometheus.Registerer,
) *databaseMetrics {
	return &databaseMetrics{
		grantUpserts: promauto.With(registry).NewCounter(prometheus.CounterOpts{
			Name: "flowd_database_grant_upserts_total",
			Help: "total number of grant upsert operations",
		}),
		lookupFallbacks: promauto.With(registry).NewCounter(prometheus.CounterOpts{
			Name: "flowd_database_lookup_fallbacks_total",
			Help: "grant resolutions that missed the reverse-lookup tables",
		}),
		parkedEvents: promauto.With(registry).NewGauge(prometheus.GaugeOpts{
			Name: "flowd_database_parked_events",
			Help: "events parked after exhausting their retry budget",
		}),
	}
}
