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

package chain

import (
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// ErrMissingArg is returned when an expected event argument is absent
var ErrMissingArg = errors.New("missing event argument")

// ErrInvalidArg is returned when an event argument cannot be coerced to the
// requested type. Redelivering the same payload fails identically, so these
// errors are never worth retrying.
var ErrInvalidArg = errors.New("invalid event argument")

// Args wraps decoded log arguments with typed accessors. Sources deliver
// values as native Go types or decimal/hex strings depending on transport;
// accessors normalize both.
type Args map[string]any

// Address returns an argument as a checksummed-insensitive address
func (a Args) Address(name string) (common.Address, error) {
	raw, ok := a[name]
	if !ok {
		return common.Address{}, fmt.Errorf("%w: %s", ErrMissingArg, name)
	}
	switch v := raw.(type) {
	case common.Address:
		return v, nil
	case string:
		if !common.IsHexAddress(v) {
			return common.Address{}, fmt.Errorf(
				"%w: %s is not a hex address: %q",
				ErrInvalidArg,
				name,
				v,
			)
		}
		return common.HexToAddress(v), nil
	default:
		return common.Address{}, fmt.Errorf(
			"argument %s has unexpected type %T",
			name,
			raw,
		)
	}
}

// BigInt returns an argument as an arbitrary-precision integer
func (a Args) BigInt(name string) (*big.Int, error) {
	raw, ok := a[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingArg, name)
	}
	switch v := raw.(type) {
	case *big.Int:
		return new(big.Int).Set(v), nil
	case int64:
		return big.NewInt(v), nil
	case int:
		return big.NewInt(int64(v)), nil
	case uint64:
		return new(big.Int).SetUint64(v), nil
	case float64:
		// JSON round-trips (parked event payloads) decode numbers as float64
		if v != float64(int64(v)) {
			return nil, fmt.Errorf(
				"%w: %s is not an integer: %v",
				ErrInvalidArg,
				name,
				v,
			)
		}
		return big.NewInt(int64(v)), nil
	case string:
		base := 10
		str := v
		if strings.HasPrefix(v, "0x") || strings.HasPrefix(v, "0X") {
			base = 16
			str = v[2:]
		}
		ret, ok := new(big.Int).SetString(str, base)
		if !ok {
			return nil, fmt.Errorf(
				"%w: %s is not an integer: %q",
				ErrInvalidArg,
				name,
				v,
			)
		}
		return ret, nil
	default:
		return nil, fmt.Errorf("%w: %s has unexpected type %T", ErrInvalidArg, name, raw)
	}
}

// Uint64 returns an argument as a uint64
func (a Args) Uint64(name string) (uint64, error) {
	val, err := a.BigInt(name)
	if err != nil {
		return 0, err
	}
	if !val.IsUint64() {
		return 0, fmt.Errorf(
			"%w: %s out of uint64 range: %s",
			ErrInvalidArg,
			name,
			val.String(),
		)
	}
	return val.Uint64(), nil
}

// String returns an argument as a string
func (a Args) String(name string) (string, error) {
	raw, ok := a[name]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrMissingArg, name)
	}
	switch v := raw.(type) {
	case string:
		return v, nil
	case common.Hash:
		return v.Hex(), nil
	case fmt.Stringer:
		return v.String(), nil
	default:
		return "", fmt.Errorf("%w: %s has unexpected type %T", ErrInvalidArg, name, raw)
	}
}

// Bool returns an argument as a bool
func (a Args) Bool(name string) (bool, error) {
	raw, ok := a[name]
	if !ok {
		return false, fmt.Errorf("%w: %s", ErrMissingArg, name)
	}
	switch v := raw.(type) {
	case bool:
		return v, nil
	case string:
		ret, err := strconv.ParseBool(v)
		if err != nil {
			return false, fmt.Errorf(
				"%w: %s is not a bool: %q",
				ErrInvalidArg,
				name,
				v,
			)
		}
		return ret, nil
	default:
		return false, fmt.Errorf("%w: %s has unexpected type %T", ErrInvalidArg, name, raw)
	}
}

// AddressString returns an argument as a normalized lowercase hex address
// string, the form stored in the state store
func (a Args) AddressString(name string) (string, error) {
	addr, err := a.Address(name)
	if err != nil {
		return "", err
	}
	return NormalizeAddress(addr), nil
}

// NormalizeAddress renders an address in the canonical stored form
func NormalizeAddress(addr common.Address) string {
	return strings.ToLower(addr.Hex())
}
