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

package flowrate

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/big"

	"github.com/flowstate-labs/flowd/database"
	"github.com/flowstate-labs/flowd/database/models"
	"github.com/flowstate-labs/flowd/event"
	"github.com/flowstate-labs/flowd/notify"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ReconcilerConfig configures the periodic drift reconciler
type ReconcilerConfig struct {
	Logger       *slog.Logger
	Database     *database.Database
	EventBus     *event.EventBus
	Notifier     *notify.Notifier
	PromRegistry prometheus.Registerer
	ChainIDs     []uint64
}

// Reconciler periodically compares configured pool rates against observed
// streaming aggregates and surfaces rebalance recommendations
type Reconciler struct {
	logger   *slog.Logger
	db       *database.Database
	eventBus *event.EventBus
	notifier *notify.Notifier
	chainIDs []uint64
	metrics  *reconcilerMetrics
}

type reconcilerMetrics struct {
	checks        prometheus.Counter
	driftDetected *prometheus.CounterVec
}

// NewReconciler creates a drift reconciler
func NewReconciler(cfg ReconcilerConfig) (*Reconciler, error) {
	if cfg.Database == nil {
		return nil, errors.New("database is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	r := &Reconciler{
		logger:   logger,
		db:       cfg.Database,
		eventBus: cfg.EventBus,
		notifier: cfg.Notifier,
		chainIDs: cfg.ChainIDs,
	}
	if cfg.PromRegistry != nil {
		r.metrics = &reconcilerMetrics{
			checks: promauto.With(cfg.PromRegistry).NewCounter(
				prometheus.CounterOpts{
					Name: "flowd_flowrate_checks_total",
					Help: "flow grants checked for rate drift",
				},
			),
			driftDetected: promauto.With(cfg.PromRegistry).NewCounterVec(
				prometheus.CounterOpts{
					Name: "flowd_flowrate_drift_detected_total",
					Help: "drift recommendations produced per direction",
				},
				[]string{"direction"},
			),
		}
	}
	return r, nil
}

// Run checks every flow grant on the configured chains for rate drift. It is
// invoked periodically by the scheduler.
func (r *Reconciler) Run(ctx context.Context) error {
	for _, chainID := range r.chainIDs {
		if err := ctx.Err(); err != nil {
			return err
		}
		flows, err := r.db.GetFlowGrants(chainID, nil)
		if err != nil {
			return fmt.Errorf("failed to load flow grants: %w", err)
		}
		for _, flow := range flows {
			if err := ctx.Err(); err != nil {
				return err
			}
			r.checkFlow(&flow)
		}
	}
	return nil
}

// checkFlow evaluates one pool. Actual is the observed outgoing aggregate;
// max is what the pool is configured to sustain (baseline + bonus budgets).
func (r *Reconciler) checkFlow(flow *models.Grant) {
	if r.metrics != nil {
		r.metrics.checks.Inc()
	}
	maxRate := new(big.Int).Add(
		bigOrZero(flow.MonthlyBaselinePoolFlowRate),
		bigOrZero(flow.MonthlyBonusPoolFlowRate),
	)
	if maxRate.Sign() == 0 {
		// Unconfigured pool, nothing to compare against
		return
	}
	actual := bigOrZero(flow.MonthlyOutgoingFlowRate)
	target := r.targetForFlow(flow, maxRate)
	report := DetectDrift(actual, maxRate, target)
	if !report.NeedsIncrease && !report.NeedsDecrease {
		return
	}
	direction := "increase"
	severity := notify.SeverityInfo
	if report.NeedsDecrease {
		direction = "decrease"
		severity = notify.SeverityWarning
	}
	if r.metrics != nil {
		r.metrics.driftDetected.WithLabelValues(direction).Inc()
	}
	r.logger.Info(
		"flow rate drift detected",
		"component", "flowrate",
		"chain_id", flow.ChainID,
		"grant_id", flow.GrantID,
		"direction", direction,
		"actual", report.Actual.String(),
		"max", report.Max.String(),
		"target", report.Target.String(),
		"recommended", report.RecommendedAmount.String(),
	)
	if r.eventBus != nil {
		r.eventBus.Publish(
			event.DriftDetectedEventType,
			event.NewEvent(
				event.DriftDetectedEventType,
				event.DriftDetectedEvent{
					ChainID:           flow.ChainID,
					GrantID:           flow.GrantID,
					Actual:            report.Actual.String(),
					Max:               report.Max.String(),
					Target:            report.Target.String(),
					NeedsIncrease:     report.NeedsIncrease,
					NeedsDecrease:     report.NeedsDecrease,
					RecommendedAmount: report.RecommendedAmount.String(),
				},
			),
		)
	}
	if r.notifier != nil {
		r.notifier.Notify(notify.Alert{
			Severity: severity,
			Source:   "flowrate",
			Message:  "flow rate drift detected",
			Fields: map[string]any{
				"chain_id":    flow.ChainID,
				"grant_id":    flow.GrantID,
				"direction":   direction,
				"actual":      report.Actual.String(),
				"max":         report.Max.String(),
				"recommended": report.RecommendedAmount.String(),
			},
		})
	}
}

// targetForFlow sums the per-child target rates. A pool with no curated
// members targets zero so an idle pool never reports phantom increase
// recommendations.
func (r *Reconciler) targetForFlow(flow *models.Grant, maxRate *big.Int) *big.Int {
	children, err := r.db.GetChildGrants(flow.ChainID, flow.GrantID, nil)
	if err != nil {
		r.logger.Warn(
			"failed to load child grants",
			"component", "flowrate",
			"chain_id", flow.ChainID,
			"grant_id", flow.GrantID,
			"error", err,
		)
		return new(big.Int).Set(maxRate)
	}
	target := new(big.Int)
	curated := false
	for _, child := range children {
		if child.IsRemoved || !child.IsActive {
			continue
		}
		curated = true
		target.Add(target, ComputeTargetRates(&child, flow).Total())
	}
	if !curated {
		return new(big.Int)
	}
	return target
}
