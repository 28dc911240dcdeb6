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
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// SaltSize is the fixed width of commitment salts
const SaltSize = 32

// commitArguments is the ABI tuple the on-chain verifier hashes at reveal:
// (uint256 choice, string reason, bytes32 salt). Any deviation from this
// encoding makes every stored secret unrevealable, so the encoding is pinned
// by golden-value tests.
var commitArguments = abi.Arguments{
	{Type: mustABIType("uint256")},
	{Type: mustABIType("string")},
	{Type: mustABIType("bytes32")},
}

func mustABIType(t string) abi.Type {
	ty, err := abi.NewType(t, "", nil)
	if err != nil {
		panic(fmt.Sprintf("invalid ABI type %q: %s", t, err))
	}
	return ty
}

// CommitHash computes the keccak256 commitment over the fixed encoding of
// (choice, reason, salt)
func CommitHash(
	choice uint8,
	reason string,
	salt [SaltSize]byte,
) (common.Hash, error) {
	packed, err := commitArguments.Pack(
		new(big.Int).SetUint64(uint64(choice)),
		reason,
		salt,
	)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to pack commitment: %w", err)
	}
	return crypto.Keccak256Hash(packed), nil
}

// NewSalt draws a fresh random commitment salt
func NewSalt() ([SaltSize]byte, error) {
	var salt [SaltSize]byte
	if _, err := rand.Read(salt[:]); err != nil {
		return salt, fmt.Errorf("failed to generate salt: %w", err)
	}
	return salt, nil
}

// hashEqual compares hex-encoded hashes ignoring case and 0x prefix
func hashEqual(a, b string) bool {
	return common.HexToHash(a) == common.HexToHash(b)
}
