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

// RoomEvent is the closed set of events a RoomService delivers to the
// session. The session consumes them through a single exhaustive
// dispatcher; ordering between independently arriving events is not
// guaranteed by the transport, so handlers tolerate either order.
type RoomEvent interface {
	isRoomEvent()
}

// ParticipantInfo describes an attendee as reported by the room
// service.
type ParticipantInfo struct {
	ID     string
	Name   string
	IsHost bool
}

// StreamInfo identifies one published stream.
type StreamInfo struct {
	ParticipantID string
	Key           StreamKey
}

// ConnectedEvent fires once the transport handshake completes. It
// carries the participants and streams already present at join time:
// there is no replay mechanism, so late joiners catch up by
// enumerating this snapshot.
type ConnectedEvent struct {
	ExistingParticipants []ParticipantInfo
	ExistingStreams      []StreamInfo
}

// DisconnectedEvent signals a mid-session transport failure. When
// Resumable is set the service may recover the session; the SDK does
// not retry on its own either way.
type DisconnectedEvent struct {
	Resumable bool
	Reason    string
}

type ParticipantJoinedEvent struct {
	Participant ParticipantInfo
}

type ParticipantLeftEvent struct {
	ParticipantID string
}

type StreamPublishedEvent struct {
	Stream StreamInfo
}

type StreamUnpublishedEvent struct {
	Stream StreamInfo
}

// SubscriptionStartedEvent fires when media for a subscribed stream
// becomes readable. This is the point at which remote tracks can be
// fetched and attached to the participant row.
type SubscriptionStartedEvent struct {
	Stream StreamInfo
}

// AudioActivityEvent reports voice activity on a stream.
type AudioActivityEvent struct {
	ParticipantID string
	Key           StreamKey
}

// TrackEnabledEvent and TrackDisabledEvent reflect the authoritative
// network-level mute state of a participant's track and take priority
// over any locally optimistic flag.
type TrackEnabledEvent struct {
	ParticipantID string
	Kind          TrackKind
}

type TrackDisabledEvent struct {
	ParticipantID string
	Kind          TrackKind
}

func (ConnectedEvent) isRoomEvent()           {}
func (DisconnectedEvent) isRoomEvent()        {}
func (ParticipantJoinedEvent) isRoomEvent()   {}
func (ParticipantLeftEvent) isRoomEvent()     {}
func (StreamPublishedEvent) isRoomEvent()     {}
func (StreamUnpublishedEvent) isRoomEvent()   {}
func (SubscriptionStartedEvent) isRoomEvent() {}
func (AudioActivityEvent) isRoomEvent()       {}
func (TrackEnabledEvent) isRoomEvent()        {}
func (TrackDisabledEvent) isRoomEvent()       {}
