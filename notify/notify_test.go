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

package notify

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDeliverToSink(t *testing.T) {
	var mu sync.Mutex
	var delivered []Alert
	n := New(&Config{
		Sink: SinkFunc(func(_ context.Context, alert Alert) error {
			mu.Lock()
			defer mu.Unlock()
			delivered = append(delivered, alert)
			return nil
		}),
	})
	defer n.Stop()
	n.Notify(Alert{
		Severity: SeverityCritical,
		Source:   "test",
		Message:  "something happened",
	})
	assert.Eventually(
		t,
		func() bool {
			mu.Lock()
			defer mu.Unlock()
			return len(delivered) == 1
		},
		time.Second,
		5*time.Millisecond,
	)
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, SeverityCritical, delivered[0].Severity)
	assert.Equal(t, "test", delivered[0].Source)
	// Time is stamped on enqueue when unset
	assert.False(t, delivered[0].Time.IsZero())
}

func TestDeliveryRetried(t *testing.T) {
	var attempts atomic.Int64
	n := New(&Config{
		Sink: SinkFunc(func(_ context.Context, _ Alert) error {
			if attempts.Add(1) < 3 {
				return errors.New("transient")
			}
			return nil
		}),
	})
	defer n.Stop()
	n.Notify(Alert{Severity: SeverityWarning, Source: "test"})
	assert.Eventually(
		t,
		func() bool { return attempts.Load() >= 3 },
		5*time.Second,
		10*time.Millisecond,
	)
}

func TestFullQueueDropsInsteadOfBlocking(t *testing.T) {
	release := make(chan struct{})
	n := New(&Config{
		QueueSize: 1,
		Sink: SinkFunc(func(_ context.Context, _ Alert) error {
			<-release
			return nil
		}),
	})
	defer n.Stop()
	defer close(release)
	// First alert occupies the worker, second fills the queue, the rest
	// must drop without blocking this goroutine
	for i := 0; i < 5; i++ {
		n.Notify(Alert{Severity: SeverityInfo, Source: "test"})
	}
}

func TestStopIdempotent(t *testing.T) {
	n := New(nil)
	n.Stop()
	n.Stop()
}
