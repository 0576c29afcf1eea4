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

import "context"

// RoomService is the narrow capability the session requires from the
// vendor room object: connect/disconnect, local stream publication,
// remote subscriptions, and the event stream. The default engine
// implements it over a websocket-signaled SFU; tests substitute a
// fake.
type RoomService interface {
	// Connect performs the transport handshake. A ConnectedEvent is
	// delivered on the event stream once the room snapshot is known.
	Connect(ctx context.Context) error
	// Disconnect tears the session down and closes the event stream.
	// Safe to call more than once.
	Disconnect() error

	// AddStream publishes tracks under key. UpdateStream replaces the
	// published tracks in place; RemoveStream unpublishes the key.
	AddStream(ctx context.Context, key StreamKey, tracks []LocalTrack) error
	UpdateStream(ctx context.Context, key StreamKey, tracks []LocalTrack) error
	RemoveStream(ctx context.Context, key StreamKey) error

	// AddSubscription requests delivery of a remote stream. Media
	// readiness is reported later via SubscriptionStartedEvent.
	AddSubscription(ctx context.Context, participantID string, key StreamKey) error
	// ParticipantStream returns the subscribed media for a stream, if
	// it has arrived.
	ParticipantStream(participantID string, key StreamKey) (*RemoteStream, bool)

	// LocalParticipantID is the service-assigned id of the local
	// attendee, valid after Connect.
	LocalParticipantID() string

	Events() <-chan RoomEvent
}

// RoomServiceProvider initializes a room service session for a named
// room with a signed join token.
type RoomServiceProvider interface {
	Initialize(ctx context.Context, roomID, token string) (RoomService, error)
}
