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

package event

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testEventType EventType = "test.event"

func TestSubscribeAndPublish(t *testing.T) {
	bus := NewEventBus(nil, nil)
	defer bus.Stop()
	_, ch := bus.Subscribe(testEventType)
	bus.Publish(testEventType, NewEvent(testEventType, "payload"))
	select {
	case evt := <-ch:
		assert.Equal(t, testEventType, evt.Type)
		assert.Equal(t, "payload", evt.Data)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestPublishFansOut(t *testing.T) {
	bus := NewEventBus(nil, nil)
	defer bus.Stop()
	_, ch1 := bus.Subscribe(testEventType)
	_, ch2 := bus.Subscribe(testEventType)
	bus.Publish(testEventType, NewEvent(testEventType, 42))
	for _, ch := range []<-chan Event{ch1, ch2} {
		select {
		case evt := <-ch:
			assert.Equal(t, 42, evt.Data)
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for event")
		}
	}
}

func TestPublishIgnoresOtherTypes(t *testing.T) {
	bus := NewEventBus(nil, nil)
	defer bus.Stop()
	_, ch := bus.Subscribe(testEventType)
	bus.Publish(EventType("other.event"), NewEvent("other.event", nil))
	select {
	case <-ch:
		t.Fatal("received event for type we did not subscribe to")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestSubscribeFunc(t *testing.T) {
	bus := NewEventBus(nil, nil)
	defer bus.Stop()
	var received atomic.Int64
	bus.SubscribeFunc(testEventType, func(evt Event) {
		received.Add(1)
	})
	bus.Publish(testEventType, NewEvent(testEventType, nil))
	bus.Publish(testEventType, NewEvent(testEventType, nil))
	assert.Eventually(
		t,
		func() bool { return received.Load() == 2 },
		time.Second,
		5*time.Millisecond,
	)
}

func TestUnsubscribe(t *testing.T) {
	bus := NewEventBus(nil, nil)
	defer bus.Stop()
	subId, ch := bus.Subscribe(testEventType)
	bus.Unsubscribe(testEventType, subId)
	// Channel is closed on unsubscribe
	_, ok := <-ch
	require.False(t, ok)
	// Publishing afterward must not panic or block
	bus.Publish(testEventType, NewEvent(testEventType, nil))
}

func TestStopClosesSubscribers(t *testing.T) {
	bus := NewEventBus(nil, nil)
	_, ch := bus.Subscribe(testEventType)
	bus.Stop()
	_, ok := <-ch
	assert.False(t, ok)
}
