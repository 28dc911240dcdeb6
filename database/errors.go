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
	"errors"
	"fmt"
)

// ErrAllocationOverflow is returned when an allocation set exceeds the
// basis-point ceiling
var ErrAllocationOverflow = errors.New("allocation set exceeds 10000 bps")

// InvariantViolationError marks a state that should be impossible under
// correct event processing. Processing for the affected entity must stop and
// the condition surfaced to operators; it is never repaired by guessing.
type InvariantViolationError struct {
	Entity string
	Detail string
}

func (e InvariantViolationError) Error() string {
	return fmt.Sprintf("invariant violation on %s: %s", e.Entity, e.Detail)
}

// IsInvariantViolation reports whether err is an invariant violation
func IsInvariantViolation(err error) bool {
	var tmpErr InvariantViolationError
	return errors.As(err, &tmpErr)
}
