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
	"fmt"
	"math/big"

	"github.com/flowstate-labs/flowd/chain"
	"github.com/flowstate-labs/flowd/database"
)

// allocationEntries extracts the parallel recipientIds/bps lists from an
// allocation event's arguments
func allocationEntries(args chain.Args) ([]database.AllocationEntry, error) {
	recipients, err := stringList(args, "recipientIds")
	if err != nil {
		return nil, err
	}
	weights, err := uint32List(args, "bps")
	if err != nil {
		return nil, err
	}
	if len(recipients) != len(weights) {
		return nil, fmt.Errorf(
			"%w: allocation lists disagree: %d recipients, %d weights",
			chain.ErrInvalidArg,
			len(recipients),
			len(weights),
		)
	}
	ret := make([]database.AllocationEntry, 0, len(recipients))
	for n, recipientID := range recipients {
		ret = append(ret, database.AllocationEntry{
			RecipientID: recipientID,
			BPS:         weights[n],
		})
	}
	return ret, nil
}

func stringList(args chain.Args, name string) ([]string, error) {
	raw, ok := args[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", chain.ErrMissingArg, name)
	}
	switch v := raw.(type) {
	case []string:
		return v, nil
	case []any:
		ret := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf(
					"%w: %s has non-string element %T",
					chain.ErrInvalidArg,
					name,
					item,
				)
			}
			ret = append(ret, s)
		}
		return ret, nil
	default:
		return nil, fmt.Errorf(
			"%w: %s has unexpected type %T",
			chain.ErrInvalidArg,
			name,
			raw,
		)
	}
}

func uint32List(args chain.Args, name string) ([]uint32, error) {
	raw, ok := args[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", chain.ErrMissingArg, name)
	}
	toUint32 := func(item any) (uint32, error) {
		switch v := item.(type) {
		case uint32:
			return v, nil
		case int:
			if v < 0 || v > int(^uint32(0)) {
				return 0, fmt.Errorf("element out of uint32 range: %d", v)
			}
			return uint32(v), nil
		case int64:
			if v < 0 || v > int64(^uint32(0)) {
				return 0, fmt.Errorf("element out of uint32 range: %d", v)
			}
			return uint32(v), nil
		case uint64:
			if v > uint64(^uint32(0)) {
				return 0, fmt.Errorf("element out of uint32 range: %d", v)
			}
			return uint32(v), nil
		case *big.Int:
			if !v.IsUint64() || v.Uint64() > uint64(^uint32(0)) {
				return 0, fmt.Errorf("element out of uint32 range: %s", v)
			}
			return uint32(v.Uint64()), nil
		case float64:
			// JSON round-trips (stream batches, parked payloads) decode
			// numeric lists as float64
			if v != float64(int64(v)) {
				return 0, fmt.Errorf("element is not an integer: %v", v)
			}
			n := int64(v)
			if n < 0 || n > int64(^uint32(0)) {
				return 0, fmt.Errorf("element out of uint32 range: %d", n)
			}
			return uint32(n), nil
		default:
			return 0, fmt.Errorf("element has unexpected type %T", item)
		}
	}
	switch v := raw.(type) {
	case []uint32:
		return v, nil
	case []any:
		ret := make([]uint32, 0, len(v))
		for _, item := range v {
			val, err := toUint32(item)
			if err != nil {
				return nil, fmt.Errorf(
					"%w: %s: %s",
					chain.ErrInvalidArg,
					name,
					err,
				)
			}
			ret = append(ret, val)
		}
		return ret, nil
	default:
		return nil, fmt.Errorf(
			"%w: %s has unexpected type %T",
			chain.ErrInvalidArg,
			name,
			raw,
		)
	}
}
