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
	"context"
	"strings"
)

type DeviceKind string

const (
	DeviceKindAudioInput  DeviceKind = "audioinput"
	DeviceKindAudioOutput DeviceKind = "audiooutput"
	DeviceKindVideoInput  DeviceKind = "videoinput"
)

// DeviceInfo describes one capture or playback device. Labels are
// blank until the user has granted media permissions.
type DeviceInfo struct {
	ID    string
	Kind  DeviceKind
	Label string
}

// MediaConstraints selects what GetUserMedia should acquire. Device
// ids are optional; empty means the platform default.
type MediaConstraints struct {
	Audio         bool
	Video         bool
	AudioDeviceID string
	VideoDeviceID string
}

// UserMedia holds the tracks of one camera/microphone acquisition.
// Either track may be nil when the corresponding kind was not
// requested or could not be acquired.
type UserMedia struct {
	AudioTrack LocalTrack
	VideoTrack LocalTrack
}

func (m *UserMedia) StopAll() {
	if m == nil {
		return
	}
	if m.AudioTrack != nil {
		m.AudioTrack.Stop()
	}
	if m.VideoTrack != nil {
		m.VideoTrack.Stop()
	}
}

// DisplayMedia holds the tracks of one display capture. AudioTrack is
// present only when system audio capture was requested and granted.
type DisplayMedia struct {
	VideoTrack LocalTrack
	AudioTrack LocalTrack
}

// MediaProvider is the capability behind which platform media capture
// lives: device enumeration, camera/microphone acquisition, and
// display capture. Implementations are platform-specific; tests use a
// fake.
type MediaProvider interface {
	EnumerateDevices(ctx context.Context) ([]DeviceInfo, error)
	GetUserMedia(ctx context.Context, constraints MediaConstraints) (*UserMedia, error)
	GetDisplayMedia(ctx context.Context, withAudio bool) (*DisplayMedia, error)
}

// classifyMediaError maps browser-style acquisition failures onto the
// SDK's sentinel errors so callers get a user-facing classification
// instead of a raw platform error.
func classifyMediaError(kind TrackKind, err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, "NotAllowedError"):
		return &MediaAcquisitionError{Kind: kind, Err: ErrPermissionDenied}
	case strings.Contains(msg, "NotFoundError"):
		return &MediaAcquisitionError{Kind: kind, Err: ErrDeviceNotFound}
	}
	return &MediaAcquisitionError{Kind: kind, Err: err}
}
