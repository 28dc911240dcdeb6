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

package types

import (
	"database/sql/driver"
	"fmt"
	"math/big"
	"strconv"
)

// BigInt stores a signed arbitrary-precision integer as a base-10 string
// column. Flow rates and earned totals are token amounts in wei-scale units
// and routinely exceed the int64 range.
//
//nolint:recvcheck
type BigInt struct {
	*big.Int
}

// NewBigInt returns a BigInt wrapping the given int64 value
func NewBigInt(val int64) BigInt {
	return BigInt{Int: big.NewInt(val)}
}

// NewBigIntFromString returns a BigInt parsed from a base-10 string
func NewBigIntFromString(val string) (BigInt, error) {
	i, ok := new(big.Int).SetString(val, 10)
	if !ok {
		return BigInt{}, fmt.Errorf("failed to parse big.Int from string: %s", val)
	}
	return BigInt{Int: i}, nil
}

func (b BigInt) Value() (driver.Value, error) {
	if b.Int == nil {
		return "0", nil
	}
	return b.String(), nil
}

func (b *BigInt) Scan(val any) error {
	if b.Int == nil {
		b.Int = new(big.Int)
	}
	var strVal string
	switch v := val.(type) {
	case string:
		strVal = v
	case []byte:
		strVal = string(v)
	case int64:
		b.SetInt64(v)
		return nil
	default:
		return fmt.Errorf(
			"value was not expected type, wanted string, got %T",
			val,
		)
	}
	if _, ok := b.SetString(strVal, 10); !ok {
		return fmt.Errorf("failed to set big.Int value from string: %s", strVal)
	}
	return nil
}

// Cmp compares against another BigInt, treating a nil inner value as zero
func (b BigInt) Cmp(other BigInt) int {
	x := b.Int
	if x == nil {
		x = new(big.Int)
	}
	y := other.Int
	if y == nil {
		y = new(big.Int)
	}
	return x.Cmp(y)
}

// Sign returns the sign of the value, treating a nil inner value as zero
func (b BigInt) Sign() int {
	if b.Int == nil {
		return 0
	}
	return b.Int.Sign()
}

// Uint64 wraps uint64 values for storage as strings to avoid range issues
// with signed 64-bit database integer columns
//
//nolint:recvcheck
type Uint64 uint64

func (u Uint64) Value() (driver.Value, error) {
	return strconv.FormatUint(uint64(u), 10), nil
}

func (u *Uint64) Scan(val any) error {
	var strVal string
	switch v := val.(type) {
	case string:
		strVal = v
	case []byte:
		strVal = string(v)
	case int64:
		if v < 0 {
			return fmt.Errorf("cannot scan negative value into Uint64: %d", v)
		}
		*u = Uint64(v)
		return nil
	default:
		return fmt.Errorf(
			"value was not expected type, wanted string, got %T",
			val,
		)
	}
	tmpUint, err := strconv.ParseUint(strVal, 10, 64)
	if err != nil {
		return fmt.Errorf("failed to parse uint64 from string: %w", err)
	}
	*u = Uint64(tmpUint)
	return nil
}
