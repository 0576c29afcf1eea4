// Copyright 2026 VidConf, Inc.
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

package vcsdk

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

// timerSet owns the scheduled flag-clearing tasks of a session, keyed
// by participant id. Timers are explicit and cancellable so they can
// be dropped when a participant leaves or the session tears down.
type timerSet struct {
	clock clock.Clock

	mu     sync.Mutex
	timers map[string]*clock.Timer
}

func newTimerSet(c clock.Clock) *timerSet {
	return &timerSet{
		clock:  c,
		timers: make(map[string]*clock.Timer),
	}
}

// ScheduleOnce arms a timer for key unless one is already pending. The
// pending timer is not renewed: it fires on its original schedule and
// only ever runs its own fn. Returns whether a new timer was armed.
func (s *timerSet) ScheduleOnce(key string, d time.Duration, fn func()) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.timers[key]; ok {
		return false
	}
	s.arm(key, d, fn)
	return true
}

// Reschedule cancels any pending timer for key and arms a new one.
func (s *timerSet) Reschedule(key string, d time.Duration, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.timers[key]; ok {
		t.Stop()
	}
	s.arm(key, d, fn)
}

// arm must be called with s.mu held.
func (s *timerSet) arm(key string, d time.Duration, fn func()) {
	var t *clock.Timer
	t = s.clock.AfterFunc(d, func() {
		s.expire(key, t)
		fn()
	})
	s.timers[key] = t
}

// expire removes the map entry only if it still belongs to the timer
// that fired, so a stale callback cannot evict a rescheduled timer.
func (s *timerSet) expire(key string, t *clock.Timer) {
	s.mu.Lock()
	if cur, ok := s.timers[key]; ok && cur == t {
		delete(s.timers, key)
	}
	s.mu.Unlock()
}

func (s *timerSet) Cancel(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.timers[key]; ok {
		t.Stop()
		delete(s.timers, key)
	}
}

func (s *timerSet) StopAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, t := range s.timers {
		t.Stop()
		delete(s.timers, key)
	}
}
