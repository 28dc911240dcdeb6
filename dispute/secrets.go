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
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// VoteSecret is the off-chain half of a commitment. It is stored encrypted
// in the vault and must survive until reveal; losing it loses the vote.
type VoteSecret struct {
	Choice uint8          `json:"choice"`
	Reason string         `json:"reason"`
	Salt   [SaltSize]byte `json:"salt"`
}

func (s *VoteSecret) encode() ([]byte, error) {
	ret, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("failed to encode vote secret: %w", err)
	}
	return ret, nil
}

func decodeVoteSecret(data []byte) (*VoteSecret, error) {
	ret := &VoteSecret{}
	if err := json.Unmarshal(data, ret); err != nil {
		return nil, fmt.Errorf("failed to decode vote secret: %w", err)
	}
	return ret, nil
}

// secretKey is the generation-side vault key. It is deterministic before
// any hash exists, which is what makes repeated hash generation idempotent
// for a voting session.
func secretKey(
	chainID uint64,
	arbitrator, disputeID, voter string,
	choice uint8,
) []byte {
	return []byte(strings.Join([]string{
		"vote",
		strconv.FormatUint(chainID, 10),
		strings.ToLower(arbitrator),
		disputeID,
		strings.ToLower(voter),
		strconv.FormatUint(uint64(choice), 10),
	}, "/"))
}

// commitKey is the reveal-side vault alias. The auto-reveal scheduler only
// knows the hash observed on chain, so the same secret is reachable by
// (arbitrator, disputeId, voter, commitHash).
func commitKey(
	chainID uint64,
	arbitrator, disputeID, voter, commitHash string,
) []byte {
	return []byte(strings.Join([]string{
		"commit",
		strconv.FormatUint(chainID, 10),
		strings.ToLower(arbitrator),
		disputeID,
		strings.ToLower(voter),
		strings.ToLower(commitHash),
	}, "/"))
}
