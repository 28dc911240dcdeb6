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

// Package flowrate derives target streaming rates from curation weights and
// detects drift between targets and what is actually streaming on chain. It
// only ever produces recommendations; nothing in this package moves funds.
package flowrate

import (
	"math/big"

	"github.com/flowstate-labs/flowd/database/models"
	"github.com/flowstate-labs/flowd/database/types"
)

// TargetRates are the intended monthly streaming rates for one recipient
type TargetRates struct {
	Baseline *big.Int
	Bonus    *big.Int
}

// Total returns baseline + bonus
func (t TargetRates) Total() *big.Int {
	return new(big.Int).Add(t.Baseline, t.Bonus)
}

// ComputeTargetRates derives a recipient's intended monthly rates from its
// member-unit share of the parent pool. Rates are wei-scale integers; shares
// use floor division, so the sum over all members never exceeds the pool
// rate. A pool with zero total units yields zero rates.
func ComputeTargetRates(child, pool *models.Grant) TargetRates {
	return TargetRates{
		Baseline: poolShare(
			uint64(child.BaselineMemberUnits),
			uint64(pool.BaselineMemberUnits),
			pool.MonthlyBaselinePoolFlowRate,
		),
		Bonus: poolShare(
			uint64(child.BonusMemberUnits),
			uint64(pool.BonusMemberUnits),
			pool.MonthlyBonusPoolFlowRate,
		),
	}
}

// poolShare computes units/totalUnits of the pool monthly rate with floor
// division
func poolShare(units, totalUnits uint64, poolRate types.BigInt) *big.Int {
	ret := new(big.Int)
	if totalUnits == 0 || units == 0 || poolRate.Int == nil {
		return ret
	}
	ret.Mul(poolRate.Int, new(big.Int).SetUint64(units))
	ret.Quo(ret, new(big.Int).SetUint64(totalUnits))
	return ret
}

func bigOrZero(b types.BigInt) *big.Int {
	if b.Int == nil {
		return new(big.Int)
	}
	return b.Int
}
