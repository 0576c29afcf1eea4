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

	"github.com/pion/webrtc/v4"
)

type TrackKind string

const (
	TrackKindAudio TrackKind = "audio"
	TrackKindVideo TrackKind = "video"
)

func (k TrackKind) String() string {
	return string(k)
}

type TrackState string

const (
	TrackStateLive  TrackState = "live"
	TrackStateEnded TrackState = "ended"
)

// StreamKey names the logical channel a participant publishes media
// under. Every participant has at most one stream per key.
type StreamKey string

const (
	// StreamKeySelf carries the camera and microphone tracks.
	StreamKeySelf StreamKey = "self"
	// StreamKeyPresentation carries the screen-share tracks,
	// published and unpublished independently of the camera stream.
	StreamKeyPresentation StreamKey = "presentation"
)

func (k StreamKey) IsPresentation() bool {
	return k == StreamKeyPresentation
}

// Track is a single piece of live media. Each track is exclusively
// owned by one logical slot (local camera, local microphone, local
// screen capture, or one remote subscription); transferring ownership
// requires stopping the previous track first.
type Track interface {
	ID() string
	Kind() TrackKind
	ReadyState() TrackState
	// Stop releases the underlying source. For local tracks this
	// releases the hardware; merely muting is not sufficient.
	Stop()
}

// LocalTrack is a locally captured track that can be published to the
// room service.
type LocalTrack interface {
	Track
	// OnEnded registers f to run when capture terminates outside of
	// Stop, e.g. the user ending a display capture from the browser
	// chrome. Stop itself does not fire the callback.
	OnEnded(f func())
}

// RTPTrackProvider is implemented by local tracks backed by a pion
// TrackLocal, allowing the default engine to publish them.
type RTPTrackProvider interface {
	RTPTrack() webrtc.TrackLocal
}

// RemoteStream groups the tracks delivered by one subscription to a
// participant's stream key.
type RemoteStream struct {
	ParticipantID string
	Key           StreamKey
	AudioTrack    Track
	VideoTrack    Track
}

// remoteTrack adapts a webrtc.TrackRemote to the Track interface.
// Remote tracks have no local hardware to release; Stop only marks
// the local view of the track as ended.
type remoteTrack struct {
	inner *webrtc.TrackRemote
	kind  TrackKind

	mu    sync.Mutex
	ended bool
}

func newRemoteTrack(t *webrtc.TrackRemote) *remoteTrack {
	return &remoteTrack{
		inner: t,
		kind:  TrackKind(t.Kind().String()),
	}
}

func (t *remoteTrack) ID() string {
	return t.inner.ID()
}

func (t *remoteTrack) Kind() TrackKind {
	return t.kind
}

// TrackRemote exposes the underlying pion track so applications can
// read RTP from subscriptions they render themselves.
func (t *remoteTrack) TrackRemote() *webrtc.TrackRemote {
	return t.inner
}

func (t *remoteTrack) ReadyState() TrackState {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.ended {
		return TrackStateEnded
	}
	return TrackStateLive
}

func (t *remoteTrack) Stop() {
	t.mu.Lock()
	t.ended = true
	t.mu.Unlock()
}
