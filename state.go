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
	"sort"
	"sync"

	"github.com/benbjohnson/clock"
	"github.com/gammazero/deque"
)

// pendingUpdate is a participant mutation that arrived before the
// participant row existed. Tracks it carries are stopped if the queue
// is dropped, so a participant that never materializes cannot leak
// media.
type pendingUpdate struct {
	apply  func(*Participant)
	tracks []Track
}

// StateStore is the single source of truth for one room session. All
// mutation goes through reducers, which are synchronous and never do
// async work; reads return copies. The store is created per session
// and returned to its pristine state only by Reset.
type StateStore struct {
	clock clock.Clock

	mu              sync.RWMutex
	room            *Room
	connectionState ConnectionState
	local           *Participant
	participants    map[string]*Participant
	pinnedID        string
	dominantID      string

	isChatOpen  bool
	isPanelOpen bool
	unread      int
	messages    []ChatMessage
	reactions   []Reaction

	// mutations keyed by participants that have not joined yet
	pending map[string]*deque.Deque[pendingUpdate]

	subMu   sync.Mutex
	subs    map[int]func()
	nextSub int
}

type StateStoreOption func(*StateStore)

// WithStoreClock substitutes the wall clock, for tests.
func WithStoreClock(c clock.Clock) StateStoreOption {
	return func(s *StateStore) {
		s.clock = c
	}
}

func NewStateStore(opts ...StateStoreOption) *StateStore {
	s := &StateStore{
		clock:           clock.New(),
		connectionState: ConnectionDisconnected,
		participants:    make(map[string]*Participant),
		pending:         make(map[string]*deque.Deque[pendingUpdate]),
		subs:            make(map[int]func()),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Subscribe registers fn to run after every mutation. The returned
// function unsubscribes.
func (s *StateStore) Subscribe(fn func()) func() {
	s.subMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.subMu.Unlock()
	return func() {
		s.subMu.Lock()
		delete(s.subs, id)
		s.subMu.Unlock()
	}
}

func (s *StateStore) notify() {
	s.subMu.Lock()
	fns := make([]func(), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subMu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

func (s *StateStore) SetRoom(room Room) {
	s.mu.Lock()
	s.room = &room
	s.mu.Unlock()
	s.notify()
}

func (s *StateStore) Room() (Room, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.room == nil {
		return Room{}, false
	}
	return *s.room, true
}

func (s *StateStore) SetRecording(recording bool) {
	s.mu.Lock()
	if s.room != nil {
		s.room.IsRecording = recording
	}
	s.mu.Unlock()
	s.notify()
}

func (s *StateStore) SetConnectionState(cs ConnectionState) {
	s.mu.Lock()
	s.connectionState = cs
	s.mu.Unlock()
	s.notify()
}

func (s *StateStore) ConnectionState() ConnectionState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.connectionState
}

func (s *StateStore) SetLocalParticipant(p Participant) {
	p.ID = LocalID
	s.mu.Lock()
	s.local = &p
	s.mu.Unlock()
	s.notify()
}

func (s *StateStore) LocalParticipant() (Participant, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.local == nil {
		return Participant{}, false
	}
	return *s.local, true
}

// UpdateLocalParticipant applies patch to the local row, if present.
func (s *StateStore) UpdateLocalParticipant(patch func(*Participant)) bool {
	s.mu.Lock()
	if s.local == nil {
		s.mu.Unlock()
		return false
	}
	patch(s.local)
	s.mu.Unlock()
	s.notify()
	return true
}

// UpsertParticipant inserts or refreshes a remote participant row. The
// local sentinel id is never inserted into the map. Any mutations
// queued for the participant before it joined are drained in arrival
// order.
func (s *StateStore) UpsertParticipant(info ParticipantInfo) {
	if info.ID == LocalID || info.ID == "" {
		return
	}
	s.mu.Lock()
	p, ok := s.participants[info.ID]
	if !ok {
		p = &Participant{
			ID:       info.ID,
			Name:     displayName(info),
			IsHost:   info.IsHost,
			JoinedAt: s.clock.Now(),
		}
		s.participants[info.ID] = p
	} else {
		if info.Name != "" {
			p.Name = info.Name
		}
		p.IsHost = info.IsHost
	}
	if q, ok := s.pending[info.ID]; ok {
		delete(s.pending, info.ID)
		for q.Len() > 0 {
			u := q.PopFront()
			u.apply(p)
		}
	}
	s.mu.Unlock()
	s.notify()
}

// PatchParticipant applies patch to a remote row. Unknown ids are a
// silent no-op.
func (s *StateStore) PatchParticipant(id string, patch func(*Participant)) bool {
	s.mu.Lock()
	p, ok := s.participants[id]
	if !ok {
		s.mu.Unlock()
		return false
	}
	patch(p)
	s.mu.Unlock()
	s.notify()
	return true
}

// ApplyOrQueue applies patch if the participant row exists, otherwise
// queues it until the row appears. Tracks captured by the patch must
// be listed so they can be released if the queue is dropped.
func (s *StateStore) ApplyOrQueue(id string, tracks []Track, patch func(*Participant)) {
	if id == "" {
		return
	}
	s.mu.Lock()
	if p, ok := s.participants[id]; ok {
		patch(p)
		s.mu.Unlock()
		s.notify()
		return
	}
	q, ok := s.pending[id]
	if !ok {
		q = &deque.Deque[pendingUpdate]{}
		s.pending[id] = q
	}
	q.PushBack(pendingUpdate{apply: patch, tracks: tracks})
	s.mu.Unlock()
}

// RemoveParticipant deletes a remote row, releasing its tracks and any
// queued mutations. Removing the pinned participant clears the pin in
// the same mutation; likewise the dominant-speaker reference.
func (s *StateStore) RemoveParticipant(id string) bool {
	s.mu.Lock()
	p, ok := s.participants[id]
	if ok {
		delete(s.participants, id)
		p.stopTracks()
	}
	if q, qok := s.pending[id]; qok {
		delete(s.pending, id)
		dropPending(q)
	}
	if s.pinnedID == id {
		s.pinnedID = ""
	}
	if s.dominantID == id {
		s.dominantID = ""
	}
	s.mu.Unlock()
	if ok {
		s.notify()
	}
	return ok
}

func dropPending(q *deque.Deque[pendingUpdate]) {
	for q.Len() > 0 {
		u := q.PopFront()
		for _, t := range u.tracks {
			if t != nil {
				t.Stop()
			}
		}
	}
}

func (s *StateStore) Participant(id string) (Participant, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.participants[id]
	if !ok {
		return Participant{}, false
	}
	return *p, true
}

// Participants returns a copy of the remote rows, ordered by join
// time.
func (s *StateStore) Participants() []Participant {
	s.mu.RLock()
	out := make([]Participant, 0, len(s.participants))
	for _, p := range s.participants {
		out = append(out, *p)
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].JoinedAt.Equal(out[j].JoinedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].JoinedAt.Before(out[j].JoinedAt)
	})
	return out
}

func (s *StateStore) ParticipantCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.participants)
}

// SetPinned pins a participant. The id must reference the local
// participant or a present remote row; an empty id clears the pin.
func (s *StateStore) SetPinned(id string) error {
	s.mu.Lock()
	if id != "" && id != LocalID {
		if _, ok := s.participants[id]; !ok {
			s.mu.Unlock()
			return ErrInvalidPin
		}
	}
	s.pinnedID = id
	s.mu.Unlock()
	s.notify()
	return nil
}

func (s *StateStore) PinnedParticipantID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pinnedID
}

func (s *StateStore) SetDominantSpeaker(id string) {
	s.mu.Lock()
	s.dominantID = id
	s.mu.Unlock()
	s.notify()
}

// ClearDominantSpeaker clears the reference only if it still points at
// id, so a stale expiry cannot clobber a newer speaker.
func (s *StateStore) ClearDominantSpeaker(id string) {
	s.mu.Lock()
	if s.dominantID != id {
		s.mu.Unlock()
		return
	}
	s.dominantID = ""
	s.mu.Unlock()
	s.notify()
}

func (s *StateStore) DominantSpeakerID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dominantID
}

func (s *StateStore) SetPanelOpen(open bool) {
	s.mu.Lock()
	s.isPanelOpen = open
	s.mu.Unlock()
	s.notify()
}

func (s *StateStore) IsPanelOpen() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isPanelOpen
}

// Reset restores every field to its initial value, releasing all
// referenced tracks. This is the only path back to a pristine store
// and is invoked by session disconnect.
func (s *StateStore) Reset() {
	s.mu.Lock()
	if s.local != nil {
		s.local.stopTracks()
	}
	for _, p := range s.participants {
		p.stopTracks()
	}
	for _, q := range s.pending {
		dropPending(q)
	}
	s.room = nil
	s.connectionState = ConnectionDisconnected
	s.local = nil
	s.participants = make(map[string]*Participant)
	s.pinnedID = ""
	s.dominantID = ""
	s.isChatOpen = false
	s.isPanelOpen = false
	s.unread = 0
	s.messages = nil
	s.reactions = nil
	s.pending = make(map[string]*deque.Deque[pendingUpdate])
	s.mu.Unlock()
	s.notify()
}
