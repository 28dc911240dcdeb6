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
	"math/big"
	"testing"

	"github.com/flowstate-labs/flowd/database/models"
	"github.com/flowstate-labs/flowd/database/types"
	"github.com/stretchr/testify/assert"
)

func TestComputeTargetRates(t *testing.T) {
	// A member holding 100 of 1000 units of a 10000/month pool is owed
	// 1000/month from that pool
	pool := &models.Grant{
		BaselineMemberUnits:         types.Uint64(1000),
		BonusMemberUnits:            types.Uint64(500),
		MonthlyBaselinePoolFlowRate: types.NewBigInt(10000),
		MonthlyBonusPoolFlowRate:    types.NewBigInt(3000),
	}
	child := &models.Grant{
		BaselineMemberUnits: types.Uint64(100),
		BonusMemberUnits:    types.Uint64(50),
	}
	rates := ComputeTargetRates(child, pool)
	assert.Equal(t, int64(1000), rates.Baseline.Int64())
	assert.Equal(t, int64(300), rates.Bonus.Int64())
	assert.Equal(t, int64(1300), rates.Total().Int64())
}

func TestComputeTargetRatesFloorDivision(t *testing.T) {
	pool := &models.Grant{
		BaselineMemberUnits:         types.Uint64(3),
		MonthlyBaselinePoolFlowRate: types.NewBigInt(100),
	}
	total := new(big.Int)
	for i := 0; i < 3; i++ {
		child := &models.Grant{
			BaselineMemberUnits: types.Uint64(1),
		}
		total.Add(total, ComputeTargetRates(child, pool).Baseline)
	}
	// Floor shares never sum past the pool rate
	assert.LessOrEqual(t, total.Int64(), int64(100))
	assert.Equal(t, int64(99), total.Int64())
}

func TestComputeTargetRatesZeroUnits(t *testing.T) {
	pool := &models.Grant{
		MonthlyBaselinePoolFlowRate: types.NewBigInt(10000),
	}
	child := &models.Grant{
		BaselineMemberUnits: types.Uint64(100),
	}
	rates := ComputeTargetRates(child, pool)
	assert.Zero(t, rates.Baseline.Sign())
	assert.Zero(t, rates.Bonus.Sign())
}

func TestDetectDriftDecrease(t *testing.T) {
	// Streaming 1200 against a 1100 budget: over the 1089 ceiling
	report := DetectDrift(
		big.NewInt(1200),
		big.NewInt(1100),
		big.NewInt(1000),
	)
	assert.True(t, report.NeedsDecrease)
	assert.False(t, report.NeedsIncrease)
	// Shrink all the way to target since target is under the ceiling
	assert.Equal(t, int64(200), report.RecommendedAmount.Int64())
}

func TestDetectDriftDecreaseToCeiling(t *testing.T) {
	// Target itself is above the ceiling: only recommend backing under it
	report := DetectDrift(
		big.NewInt(1200),
		big.NewInt(1100),
		big.NewInt(1150),
	)
	assert.True(t, report.NeedsDecrease)
	assert.Equal(t, int64(1200-1089), report.RecommendedAmount.Int64())
}

func TestDetectDriftIncrease(t *testing.T) {
	report := DetectDrift(
		big.NewInt(500),
		big.NewInt(1100),
		big.NewInt(1000),
	)
	assert.True(t, report.NeedsIncrease)
	assert.False(t, report.NeedsDecrease)
	assert.Equal(t, int64(500), report.RecommendedAmount.Int64())
}

func TestDetectDriftIncreaseCappedAtCeiling(t *testing.T) {
	// Target above the ceiling: recommendation stops at the ceiling
	report := DetectDrift(
		big.NewInt(500),
		big.NewInt(1000),
		big.NewInt(2000),
	)
	assert.True(t, report.NeedsIncrease)
	assert.Equal(t, int64(990-500), report.RecommendedAmount.Int64())
}

func TestDetectDriftNone(t *testing.T) {
	report := DetectDrift(
		big.NewInt(1000),
		big.NewInt(1100),
		big.NewInt(1000),
	)
	assert.False(t, report.NeedsIncrease)
	assert.False(t, report.NeedsDecrease)
	assert.Zero(t, report.RecommendedAmount.Sign())
}

func TestDetectDriftDecreaseTakesPrecedence(t *testing.T) {
	// Even with a target above actual, exceeding the ceiling is flagged as
	// a decrease, never an increase
	report := DetectDrift(
		big.NewInt(1095),
		big.NewInt(1100),
		big.NewInt(2000),
	)
	assert.True(t, report.NeedsDecrease)
	assert.False(t, report.NeedsIncrease)
}
