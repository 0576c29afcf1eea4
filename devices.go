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
	"sync"
)

// DeviceManager enumerates capture/playback devices and owns the
// permission lifecycle that gates full enumeration: browsers report
// blank device labels until a media permission has been granted.
type DeviceManager struct {
	media MediaProvider

	mu            sync.Mutex
	devices       []DeviceInfo
	hasPermission bool
	audioInputID  string
	videoInputID  string
	audioOutputID string
}

func NewDeviceManager(media MediaProvider) *DeviceManager {
	return &DeviceManager{media: media}
}

// RequestPermissions acquires a throwaway combined audio+video stream
// solely to trigger the permission prompt, releases it immediately so
// no hardware stays open for enumeration purposes, then re-enumerates
// to pick up device labels.
func (m *DeviceManager) RequestPermissions(ctx context.Context) error {
	um, err := m.media.GetUserMedia(ctx, MediaConstraints{Audio: true, Video: true})
	if err != nil {
		// the combined request does not say which constraint failed;
		// retry audio alone to attribute the error to the right device
		if probe, audioErr := m.media.GetUserMedia(ctx, MediaConstraints{Audio: true}); audioErr == nil {
			probe.StopAll()
			return classifyMediaError(TrackKindVideo, err)
		}
		return classifyMediaError(TrackKindAudio, err)
	}
	um.StopAll()

	m.mu.Lock()
	m.hasPermission = true
	m.mu.Unlock()

	return m.RefreshDevices(ctx)
}

// RefreshDevices re-enumerates. Idempotent and safe to call on every
// OS device-change notification.
func (m *DeviceManager) RefreshDevices(ctx context.Context) error {
	devices, err := m.media.EnumerateDevices(ctx)
	if err != nil {
		return err
	}

	m.mu.Lock()
	m.devices = devices
	m.audioInputID = defaultSelection(devices, DeviceKindAudioInput, m.audioInputID)
	m.videoInputID = defaultSelection(devices, DeviceKindVideoInput, m.videoInputID)
	m.audioOutputID = defaultSelection(devices, DeviceKindAudioOutput, m.audioOutputID)
	m.mu.Unlock()
	return nil
}

// defaultSelection keeps the current selection while it still exists,
// otherwise falls back to the first device of the kind.
func defaultSelection(devices []DeviceInfo, kind DeviceKind, current string) string {
	first := ""
	for _, d := range devices {
		if d.Kind != kind {
			continue
		}
		if d.ID == current {
			return current
		}
		if first == "" {
			first = d.ID
		}
	}
	return first
}

func (m *DeviceManager) Devices(kind DeviceKind) []DeviceInfo {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []DeviceInfo
	for _, d := range m.devices {
		if d.Kind == kind {
			out = append(out, d)
		}
	}
	return out
}

func (m *DeviceManager) HasPermission() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.hasPermission
}

func (m *DeviceManager) SelectAudioInput(id string) {
	m.mu.Lock()
	m.audioInputID = id
	m.mu.Unlock()
}

func (m *DeviceManager) SelectVideoInput(id string) {
	m.mu.Lock()
	m.videoInputID = id
	m.mu.Unlock()
}

func (m *DeviceManager) SelectAudioOutput(id string) {
	m.mu.Lock()
	m.audioOutputID = id
	m.mu.Unlock()
}

func (m *DeviceManager) AudioInputID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.audioInputID
}

func (m *DeviceManager) VideoInputID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.videoInputID
}

func (m *DeviceManager) AudioOutputID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.audioOutputID
}
