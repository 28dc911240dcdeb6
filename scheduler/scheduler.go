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

// Package scheduler runs registered tasks on multiples of a base tick. The
// dispute auto-reveal and flow-rate reconciliation processes are scheduled
// here rather than inline with event ingestion, since both act on wall-clock
// deadlines unrelated to any single incoming event.
package scheduler

import (
	"sync"
	"time"
)

type scheduledTask struct {
	interval          int
	ticksSinceLastRun int
	task              func()
}

type Scheduler struct {
	mutex     sync.Mutex
	interval  time.Duration
	ticker    *time.Ticker
	quit      chan struct{}
	tasks     []*scheduledTask
	startOnce sync.Once
	stopOnce  sync.Once
}

func New(interval time.Duration) *Scheduler {
	return &Scheduler{
		interval: interval,
		quit:     make(chan struct{}),
		tasks:    []*scheduledTask{},
	}
}

// Register adds a task to run every interval ticks. Tasks registered before
// Start are all aligned to the same ticker.
func (s *Scheduler) Register(interval int, task func()) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.tasks = append(s.tasks, &scheduledTask{
		interval: interval,
		task:     task,
	})
}

// Start the ticker (run goroutine once)
func (s *Scheduler) Start() {
	s.startOnce.Do(func() {
		s.ticker = time.NewTicker(s.interval)
		go s.run()
	})
}

// Stop halts the ticker; registered tasks will not fire again
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		close(s.quit)
	})
}

func (s *Scheduler) run() {
	for {
		select {
		case <-s.ticker.C:
			s.tick()
		case <-s.quit:
			s.ticker.Stop()
			return
		}
	}
}

// Increments per-task tick counters and executes tasks when due
func (s *Scheduler) tick() {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	for _, task := range s.tasks {
		task.ticksSinceLastRun++
		if task.ticksSinceLastRun >= task.interval {
			go task.task()
			task.ticksSinceLastRun = 0
		}
	}
}
