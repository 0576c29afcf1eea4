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
	"time"

	"github.com/google/uuid"
)

type MessageType string

const (
	MessageTypeUser   MessageType = "user"
	MessageTypeSystem MessageType = "system"
)

// ChatMessage is append-only: insertion order is display order and
// messages are never mutated after creation. The sequence is cleared
// only by a full room reset.
type ChatMessage struct {
	ID         string
	SenderID   string
	SenderName string
	Content    string
	Timestamp  time.Time
	Type       MessageType
}

// Reaction is ephemeral: it self-removes after reactionLifetime and is
// never persisted.
type Reaction struct {
	ID            string
	ParticipantID string
	Emoji         string
	Timestamp     time.Time
}

const reactionLifetime = 3 * time.Second

// AppendMessage appends a chat message and increments the unread
// counter while the chat panel is closed.
func (s *StateStore) AppendMessage(senderID, senderName, content string, typ MessageType) ChatMessage {
	msg := ChatMessage{
		ID:         uuid.NewString(),
		SenderID:   senderID,
		SenderName: senderName,
		Content:    content,
		Timestamp:  s.clock.Now(),
		Type:       typ,
	}
	s.mu.Lock()
	s.messages = append(s.messages, msg)
	if !s.isChatOpen {
		s.unread++
	}
	s.mu.Unlock()
	s.notify()
	return msg
}

func (s *StateStore) appendSystemMessage(content string) {
	s.AppendMessage("", "", content, MessageTypeSystem)
}

// SetChatOpen toggles the chat panel. Opening resets the unread
// counter atomically with the open flag.
func (s *StateStore) SetChatOpen(open bool) {
	s.mu.Lock()
	s.isChatOpen = open
	if open {
		s.unread = 0
	}
	s.mu.Unlock()
	s.notify()
}

func (s *StateStore) IsChatOpen() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isChatOpen
}

func (s *StateStore) UnreadCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.unread
}

func (s *StateStore) Messages() []ChatMessage {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]ChatMessage, len(s.messages))
	copy(out, s.messages)
	return out
}

// AddReaction records a reaction and schedules its own removal. The
// timer only ever removes the reaction it created.
func (s *StateStore) AddReaction(participantID, emoji string) Reaction {
	r := Reaction{
		ID:            uuid.NewString(),
		ParticipantID: participantID,
		Emoji:         emoji,
		Timestamp:     s.clock.Now(),
	}
	s.mu.Lock()
	s.reactions = append(s.reactions, r)
	s.mu.Unlock()
	s.notify()
	s.clock.AfterFunc(reactionLifetime, func() {
		s.RemoveReaction(r.ID)
	})
	return r
}

func (s *StateStore) RemoveReaction(id string) {
	s.mu.Lock()
	kept := s.reactions[:0]
	for _, r := range s.reactions {
		if r.ID != id {
			kept = append(kept, r)
		}
	}
	s.reactions = kept
	s.mu.Unlock()
	s.notify()
}

func (s *StateStore) Reactions() []Reaction {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Reaction, len(s.reactions))
	copy(out, s.reactions)
	return out
}

// RaiseHand sets the hand-raised flag for the local or a remote
// participant, recording when it was raised so raised hands can be
// ordered.
func (s *StateStore) RaiseHand(id string) bool {
	raise := func(p *Participant) {
		if !p.IsHandRaised {
			p.IsHandRaised = true
			p.HandRaisedAt = s.clock.Now()
		}
	}
	if id == LocalID {
		return s.UpdateLocalParticipant(raise)
	}
	return s.PatchParticipant(id, raise)
}

func (s *StateStore) LowerHand(id string) bool {
	lower := func(p *Participant) {
		p.IsHandRaised = false
		p.HandRaisedAt = time.Time{}
	}
	if id == LocalID {
		return s.UpdateLocalParticipant(lower)
	}
	return s.PatchParticipant(id, lower)
}
