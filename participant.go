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

import "time"

// LocalID is the sentinel id of the local participant. It never
// appears as a key in the remote participant map.
const LocalID = "local"

type ConnectionState string

const (
	ConnectionDisconnected ConnectionState = "disconnected"
	ConnectionConnecting   ConnectionState = "connecting"
	ConnectionConnected    ConnectionState = "connected"
	ConnectionReconnecting ConnectionState = "reconnecting"
	ConnectionFailed       ConnectionState = "failed"
)

// Room holds the metadata of the connected session. It exists from a
// successful connect until disconnect/reset.
type Room struct {
	ID              string
	Name            string
	CreatedAt       time.Time
	MaxParticipants int
	IsRecording     bool
}

// Participant is one attendee of the room, local or remote. Rows are
// owned by the state store and mutated only through its reducers.
type Participant struct {
	ID              string
	Name            string
	IsHost          bool
	IsMuted         bool
	IsVideoOff      bool
	IsSpeaking      bool
	IsScreenSharing bool
	IsHandRaised    bool
	HandRaisedAt    time.Time
	JoinedAt        time.Time

	AudioTrack  Track
	VideoTrack  Track
	ScreenTrack Track
}

func (p *Participant) IsLocal() bool {
	return p.ID == LocalID
}

// stopTracks releases every track the row references and nils the
// references in the same step, so the row never points at a stopped
// track.
func (p *Participant) stopTracks() {
	for _, t := range []Track{p.AudioTrack, p.VideoTrack, p.ScreenTrack} {
		if t != nil {
			t.Stop()
		}
	}
	p.AudioTrack = nil
	p.VideoTrack = nil
	p.ScreenTrack = nil
}

// displayName falls back to a truncated anonymous id when the service
// reports no display name.
func displayName(info ParticipantInfo) string {
	if info.Name != "" {
		return info.Name
	}
	id := info.ID
	if len(id) > 6 {
		id = id[:6]
	}
	return "Guest " + id
}
