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
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/require"
)

func TestChatUnreadCounter(t *testing.T) {
	s := NewStateStore()

	s.AppendMessage("bob", "Bob", "hi", MessageTypeUser)
	s.appendSystemMessage("Bob joined the meeting")
	require.Equal(t, 2, s.UnreadCount())

	// opening the panel reads everything at once
	s.SetChatOpen(true)
	require.Zero(t, s.UnreadCount())

	// messages landing while open are already read
	s.AppendMessage("bob", "Bob", "still here?", MessageTypeUser)
	require.Zero(t, s.UnreadCount())

	s.SetChatOpen(false)
	s.AppendMessage("bob", "Bob", "hello?", MessageTypeUser)
	require.Equal(t, 1, s.UnreadCount())
}

func TestChatMessageOrder(t *testing.T) {
	s := NewStateStore()
	s.AppendMessage("a", "A", "one", MessageTypeUser)
	s.AppendMessage("b", "B", "two", MessageTypeUser)

	messages := s.Messages()
	require.Len(t, messages, 2)
	require.Equal(t, "one", messages[0].Content)
	require.Equal(t, "two", messages[1].Content)
	require.NotEqual(t, messages[0].ID, messages[1].ID)
}

func TestReactionsExpire(t *testing.T) {
	mock := clock.NewMock()
	s := NewStateStore(WithStoreClock(mock))

	first := s.AddReaction("bob", "👍")
	mock.Add(reactionLifetime / 2)
	s.AddReaction("carol", "🎉")

	mock.Add(reactionLifetime / 2)
	remaining := s.Reactions()
	require.Len(t, remaining, 1)
	require.Equal(t, "carol", remaining[0].ParticipantID)
	require.NotEqual(t, first.ID, remaining[0].ID)

	mock.Add(reactionLifetime / 2)
	require.Empty(t, s.Reactions())
}

func TestHandRaise(t *testing.T) {
	mock := clock.NewMock()
	s := NewStateStore(WithStoreClock(mock))
	s.SetLocalParticipant(Participant{Name: "me"})
	s.UpsertParticipant(ParticipantInfo{ID: "bob"})

	require.True(t, s.RaiseHand(LocalID))
	local, _ := s.LocalParticipant()
	require.True(t, local.IsHandRaised)
	raisedAt := local.HandRaisedAt

	// raising again keeps the original timestamp for ordering
	mock.Add(time.Minute)
	require.True(t, s.RaiseHand(LocalID))
	local, _ = s.LocalParticipant()
	require.Equal(t, raisedAt, local.HandRaisedAt)

	require.True(t, s.RaiseHand("bob"))
	require.True(t, s.LowerHand("bob"))
	p, _ := s.Participant("bob")
	require.False(t, p.IsHandRaised)
	require.True(t, p.HandRaisedAt.IsZero())

	require.False(t, s.RaiseHand("stranger"))
}
