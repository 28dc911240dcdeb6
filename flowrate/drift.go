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
)

// ceilingNumerator/ceilingDenominator express the 99% safety margin below
// the maximum sustainable rate
const (
	ceilingNumerator   = 99
	ceilingDenominator = 100
)

// DriftReport is a read-only rebalance recommendation. NeedsDecrease is a
// safety violation and takes precedence over NeedsIncrease; an increase is
// never executed automatically because it moves funds.
type DriftReport struct {
	Actual            *big.Int
	Max               *big.Int
	Target            *big.Int
	NeedsIncrease     bool
	NeedsDecrease     bool
	RecommendedAmount *big.Int
}

// DetectDrift compares the observed on-chain monthly rate against the safety
// ceiling (99% of max) and the computed target.
func DetectDrift(actual, maxRate, target *big.Int) DriftReport {
	ret := DriftReport{
		Actual:            new(big.Int).Set(actual),
		Max:               new(big.Int).Set(maxRate),
		Target:            new(big.Int).Set(target),
		RecommendedAmount: new(big.Int),
	}
	ceiling := new(big.Int).Mul(maxRate, big.NewInt(ceilingNumerator))
	ceiling.Quo(ceiling, big.NewInt(ceilingDenominator))
	if actual.Cmp(ceiling) > 0 {
		ret.NeedsDecrease = true
		// Shrink to target when the target itself is under the ceiling,
		// otherwise just back under the ceiling
		if target.Cmp(actual) < 0 && target.Cmp(ceiling) <= 0 {
			ret.RecommendedAmount.Sub(actual, target)
		} else {
			ret.RecommendedAmount.Sub(actual, ceiling)
		}
		return ret
	}
	if target.Cmp(actual) > 0 {
		ret.NeedsIncrease = true
		// Never recommend streaming past the ceiling
		upper := target
		if ceiling.Cmp(target) < 0 {
			upper = ceiling
		}
		ret.RecommendedAmount.Sub(upper, actual)
	}
	return ret
}
