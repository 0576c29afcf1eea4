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

func TestStoreParticipants(t *testing.T) {
	t.Run("local sentinel never enters the remote map", func(t *testing.T) {
		s := NewStateStore()
		s.UpsertParticipant(ParticipantInfo{ID: LocalID, Name: "me"})
		s.UpsertParticipant(ParticipantInfo{ID: ""})
		require.Zero(t, s.ParticipantCount())
	})

	t.Run("upsert refreshes without losing attached state", func(t *testing.T) {
		s := NewStateStore()
		s.UpsertParticipant(ParticipantInfo{ID: "bob"})
		s.PatchParticipant("bob", func(p *Participant) { p.IsSpeaking = true })

		s.UpsertParticipant(ParticipantInfo{ID: "bob", Name: "Bob", IsHost: true})

		p, ok := s.Participant("bob")
		require.True(t, ok)
		require.Equal(t, "Bob", p.Name)
		require.True(t, p.IsHost)
		require.True(t, p.IsSpeaking)
		require.Equal(t, 1, s.ParticipantCount())
	})

	t.Run("anonymous participants get a fallback display name", func(t *testing.T) {
		s := NewStateStore()
		s.UpsertParticipant(ParticipantInfo{ID: "abcdef123456"})
		p, _ := s.Participant("abcdef123456")
		require.Equal(t, "Guest abcdef", p.Name)
	})

	t.Run("patch of an unknown id is a silent no-op", func(t *testing.T) {
		s := NewStateStore()
		require.False(t, s.PatchParticipant("nobody", func(p *Participant) { p.IsMuted = true }))
	})

	t.Run("participants are ordered by join time", func(t *testing.T) {
		mock := clock.NewMock()
		s := NewStateStore(WithStoreClock(mock))
		s.UpsertParticipant(ParticipantInfo{ID: "z-first"})
		mock.Add(time.Second)
		s.UpsertParticipant(ParticipantInfo{ID: "a-second"})
		all := s.Participants()
		require.Len(t, all, 2)
		require.Equal(t, "z-first", all[0].ID)
	})
}

func TestStorePendingUpdates(t *testing.T) {
	t.Run("queued mutations drain in arrival order on join", func(t *testing.T) {
		s := NewStateStore()
		s.ApplyOrQueue("bob", nil, func(p *Participant) { p.Name = "first" })
		s.ApplyOrQueue("bob", nil, func(p *Participant) { p.Name = "second" })
		_, ok := s.Participant("bob")
		require.False(t, ok)

		s.UpsertParticipant(ParticipantInfo{ID: "bob"})
		p, ok := s.Participant("bob")
		require.True(t, ok)
		require.Equal(t, "second", p.Name)
	})

	t.Run("applies immediately when the row exists", func(t *testing.T) {
		s := NewStateStore()
		s.UpsertParticipant(ParticipantInfo{ID: "bob"})
		s.ApplyOrQueue("bob", nil, func(p *Participant) { p.IsScreenSharing = true })
		p, _ := s.Participant("bob")
		require.True(t, p.IsScreenSharing)
	})

	t.Run("removing a never-joined participant releases queued tracks", func(t *testing.T) {
		s := NewStateStore()
		track := newFakeTrack("orphan", TrackKindAudio)
		s.ApplyOrQueue("ghost", []Track{track}, func(p *Participant) { p.AudioTrack = track })

		s.RemoveParticipant("ghost")
		require.Equal(t, TrackStateEnded, track.ReadyState())

		// the queue is gone: a later join must not resurrect the patch
		s.UpsertParticipant(ParticipantInfo{ID: "ghost"})
		p, _ := s.Participant("ghost")
		require.Nil(t, p.AudioTrack)
	})
}

func TestStoreRemoveParticipant(t *testing.T) {
	s := NewStateStore()
	audio := newFakeTrack("bob-mic", TrackKindAudio)
	s.UpsertParticipant(ParticipantInfo{ID: "bob"})
	s.PatchParticipant("bob", func(p *Participant) { p.AudioTrack = audio })
	require.NoError(t, s.SetPinned("bob"))
	s.SetDominantSpeaker("bob")

	require.True(t, s.RemoveParticipant("bob"))

	require.Equal(t, TrackStateEnded, audio.ReadyState())
	require.Empty(t, s.PinnedParticipantID())
	require.Empty(t, s.DominantSpeakerID())
	require.False(t, s.RemoveParticipant("bob"))
}

func TestStorePin(t *testing.T) {
	s := NewStateStore()
	require.ErrorIs(t, s.SetPinned("stranger"), ErrInvalidPin)
	require.NoError(t, s.SetPinned(LocalID))
	require.NoError(t, s.SetPinned(""))
	require.Empty(t, s.PinnedParticipantID())
}

func TestStoreDominantSpeaker(t *testing.T) {
	s := NewStateStore()
	s.SetDominantSpeaker("bob")

	// a stale expiry for a previous speaker must not clear the newer one
	s.SetDominantSpeaker("carol")
	s.ClearDominantSpeaker("bob")
	require.Equal(t, "carol", s.DominantSpeakerID())

	s.ClearDominantSpeaker("carol")
	require.Empty(t, s.DominantSpeakerID())
}

func TestStoreLocalParticipant(t *testing.T) {
	s := NewStateStore()
	require.False(t, s.UpdateLocalParticipant(func(p *Participant) { p.IsMuted = true }))

	s.SetLocalParticipant(Participant{ID: "whatever", Name: "me"})
	local, ok := s.LocalParticipant()
	require.True(t, ok)
	require.Equal(t, LocalID, local.ID)

	require.True(t, s.UpdateLocalParticipant(func(p *Participant) { p.IsMuted = true }))
	local, _ = s.LocalParticipant()
	require.True(t, local.IsMuted)
}

func TestStoreSubscribe(t *testing.T) {
	s := NewStateStore()
	n := 0
	unsubscribe := s.Subscribe(func() { n++ })

	s.SetConnectionState(ConnectionConnecting)
	require.Equal(t, 1, n)

	unsubscribe()
	s.SetConnectionState(ConnectionConnected)
	require.Equal(t, 1, n)
}

func TestStoreReset(t *testing.T) {
	s := NewStateStore()
	localMic := newFakeTrack("mic", TrackKindAudio)
	remoteMic := newFakeTrack("bob-mic", TrackKindAudio)
	queued := newFakeTrack("queued", TrackKindVideo)

	s.SetRoom(Room{ID: "room-1"})
	s.SetConnectionState(ConnectionConnected)
	s.SetLocalParticipant(Participant{Name: "me", AudioTrack: localMic})
	s.UpsertParticipant(ParticipantInfo{ID: "bob"})
	s.PatchParticipant("bob", func(p *Participant) { p.AudioTrack = remoteMic })
	s.ApplyOrQueue("ghost", []Track{queued}, func(p *Participant) { p.VideoTrack = queued })
	require.NoError(t, s.SetPinned("bob"))
	s.SetDominantSpeaker("bob")
	s.AppendMessage("bob", "Bob", "hello", MessageTypeUser)
	s.SetChatOpen(true)
	s.SetPanelOpen(true)

	s.Reset()

	require.Equal(t, TrackStateEnded, localMic.ReadyState())
	require.Equal(t, TrackStateEnded, remoteMic.ReadyState())
	require.Equal(t, TrackStateEnded, queued.ReadyState())

	_, hasRoom := s.Room()
	require.False(t, hasRoom)
	require.Equal(t, ConnectionDisconnected, s.ConnectionState())
	_, hasLocal := s.LocalParticipant()
	require.False(t, hasLocal)
	require.Zero(t, s.ParticipantCount())
	require.Empty(t, s.PinnedParticipantID())
	require.Empty(t, s.DominantSpeakerID())
	require.Empty(t, s.Messages())
	require.Zero(t, s.UnreadCount())
	require.False(t, s.IsChatOpen())
	require.False(t, s.IsPanelOpen())
}
